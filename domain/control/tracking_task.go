package control

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/open-teleop/invkin/domain/diagnostic"
	"github.com/open-teleop/invkin/pkg/kinematics"
	"github.com/open-teleop/invkin/pkg/log"
)

// Phase is the tracking task's position in its startup sequence.
type Phase string

const (
	PhaseWaitingForPose Phase = "waiting_for_pose"
	PhaseHoming         Phase = "homing"
	PhaseAwaitingStart  Phase = "awaiting_start"
	PhaseTracking       Phase = "tracking"
	PhaseStopped        Phase = "stopped"
)

// TrackingControlTask homes the arm, waits for the operator and then follows
// the trajectory with inverse kinematics.
type TrackingControlTask struct {
	state        *RobotState
	ik           *kinematics.IKSolver
	trajectory   Trajectory
	homing       *HomingRoutine
	start        StartSignal
	startTimeout time.Duration
	publisher    CommandPublisher
	diag         *diagnostic.DiagnosticService
	logger       log.Logger
	clock        clock.Clock
	hz           float64

	phase atomic.String
}

// TrackingOptions groups the collaborators of a TrackingControlTask.
type TrackingOptions struct {
	State        *RobotState
	IK           *kinematics.IKSolver
	Trajectory   Trajectory
	Homing       *HomingRoutine
	Start        StartSignal
	StartTimeout time.Duration
	Publisher    CommandPublisher
	Hz           float64
	Diagnostics  *diagnostic.DiagnosticService
	Logger       log.Logger
	Clock        clock.Clock
}

func NewTrackingControlTask(opts TrackingOptions) *TrackingControlTask {
	t := &TrackingControlTask{
		state:        opts.State,
		ik:           opts.IK,
		trajectory:   opts.Trajectory,
		homing:       opts.Homing,
		start:        opts.Start,
		startTimeout: opts.StartTimeout,
		publisher:    opts.Publisher,
		diag:         opts.Diagnostics,
		logger:       opts.Logger,
		clock:        opts.Clock,
		hz:           opts.Hz,
	}
	t.phase.Store(string(PhaseWaitingForPose))
	return t
}

// Phase returns the current phase.
func (t *TrackingControlTask) Phase() Phase {
	return Phase(t.phase.Load())
}

func (t *TrackingControlTask) setPhase(p Phase) {
	t.phase.Store(string(p))
	t.logger.Debugf("Tracking phase %s", p)
}

// Run executes the startup sequence and the tracking loop. It returns when
// ctx is done or on an unrecoverable error.
func (t *TrackingControlTask) Run(ctx context.Context) error {
	defer t.setPhase(PhaseStopped)

	if err := t.state.WaitPose(ctx); err != nil {
		return err
	}

	t.setPhase(PhaseHoming)
	if err := t.homing.Run(ctx); err != nil {
		return errors.Wrap(err, "homing")
	}

	t.setPhase(PhaseAwaitingStart)
	if err := t.awaitStart(ctx); err != nil {
		return err
	}

	t.state.ActivateTracking()
	t.setPhase(PhaseTracking)
	t.logger.Infof("Tracking started at %.0f Hz", t.hz)

	rate := NewRate(t.clock, t.hz)
	for {
		if err := t.step(); err != nil {
			return err
		}

		met, err := rate.Sleep(ctx)
		if err != nil {
			return err
		}
		t.diag.RecordTrackingTick(!met)
	}
}

func (t *TrackingControlTask) awaitStart(ctx context.Context) error {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if t.startTimeout > 0 {
		timer := t.clock.AfterFunc(t.startTimeout, cancel)
		defer timer.Stop()
	}

	err := t.start.Wait(waitCtx)
	if err != nil && ctx.Err() == nil && waitCtx.Err() != nil {
		return errors.Wrapf(ErrStartTimeout, "no confirmation after %s", t.startTimeout)
	}
	return errors.Wrap(err, "operator confirmation")
}

// step runs one tracking tick. Convergence failures are absorbed so that the
// next tick retries from fresh feedback.
func (t *TrackingControlTask) step() error {
	desired := t.trajectory.At(t.state.ElapsedTime())

	sol, err := t.ik.CartToJnt(t.state.JointPositions(), desired)
	switch {
	case err == nil:
	case errors.Is(err, kinematics.ErrConvergenceFailure):
		t.diag.RecordIK(sol.Iterations, sol.Residual, false)
		t.logger.Warnf("failing in ik! %v", err)
		return nil
	default:
		return errors.Wrap(err, "inverse kinematics")
	}
	t.diag.RecordIK(sol.Iterations, sol.Residual, true)

	if err := t.publisher.PublishJointCommands(sol.Joints); err != nil {
		t.diag.RecordPublishError()
		t.logger.Warnf("Failed to publish joint commands: %v", err)
		return nil
	}
	t.diag.RecordCommandsPublished()
	return nil
}
