package control

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/open-teleop/invkin/domain/diagnostic"
	"github.com/open-teleop/invkin/pkg/config"
	"github.com/open-teleop/invkin/pkg/log"
)

// ErrHomingTimeout is returned when the arm does not reach the homing posture
// within the configured timeout.
var ErrHomingTimeout = errors.New("homing timed out")

// HomingRoutine drives the arm to a fixed posture and waits until every joint
// is within threshold of it.
type HomingRoutine struct {
	state     *RobotState
	publisher CommandPublisher
	diag      *diagnostic.DiagnosticService
	logger    log.Logger
	clock     clock.Clock

	target    []float64
	threshold float64
	pollHz    float64
	settle    time.Duration
	timeout   time.Duration
}

// NewHomingRoutine builds the routine from configuration. The target length
// must match the state's joint count.
func NewHomingRoutine(state *RobotState, publisher CommandPublisher, cfg config.HomingConfig,
	diag *diagnostic.DiagnosticService, logger log.Logger, clk clock.Clock) (*HomingRoutine, error) {
	if len(cfg.Target) != state.NumJoints() {
		return nil, errors.Errorf("homing target has %d joints, chain has %d", len(cfg.Target), state.NumJoints())
	}
	return &HomingRoutine{
		state:     state,
		publisher: publisher,
		diag:      diag,
		logger:    logger,
		clock:     clk,
		target:    append([]float64(nil), cfg.Target...),
		threshold: cfg.Threshold,
		pollHz:    cfg.PollHz,
		settle:    seconds(cfg.SettleSeconds),
		timeout:   seconds(cfg.TimeoutSeconds),
	}, nil
}

// Target returns a copy of the homing posture.
func (h *HomingRoutine) Target() []float64 {
	return append([]float64(nil), h.target...)
}

// Run commands the target every poll until the largest joint error drops
// below the threshold, then waits out the settle period.
func (h *HomingRoutine) Run(ctx context.Context) error {
	started := h.clock.Now()
	rate := NewRate(h.clock, h.pollHz)

	h.logger.Infof("Homing to %v", h.target)
	for {
		if err := h.publisher.PublishJointCommands(h.Target()); err != nil {
			h.diag.RecordPublishError()
			h.logger.Warnf("Failed to publish homing command: %v", err)
		}

		maxErr := floats.Distance(h.target, h.state.JointPositions(), math.Inf(1))
		h.diag.RecordHomingError(maxErr)
		h.logger.Infof("Homing, max joint error %.4f rad", maxErr)
		if maxErr < h.threshold {
			break
		}

		if h.timeout > 0 && h.clock.Since(started) >= h.timeout {
			return errors.Wrapf(ErrHomingTimeout, "max joint error %.4f rad after %s", maxErr, h.timeout)
		}
		if _, err := rate.Sleep(ctx); err != nil {
			return err
		}
	}

	if err := sleepCtx(ctx, h.clock, h.settle); err != nil {
		return err
	}

	elapsed := h.clock.Since(started)
	h.diag.RecordHomingDone(elapsed)
	h.logger.Infof("Homing done in %s", elapsed.Round(time.Millisecond))
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func sleepCtx(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := clk.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
