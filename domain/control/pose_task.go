package control

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/open-teleop/invkin/domain/diagnostic"
	"github.com/open-teleop/invkin/pkg/kinematics"
	"github.com/open-teleop/invkin/pkg/log"
)

// PoseEstimationTask turns the latest feedback into an end-effector pose at a
// fixed rate and advances the tracking clock.
type PoseEstimationTask struct {
	state     *RobotState
	fk        *kinematics.FKSolver
	publisher PosePublisher
	diag      *diagnostic.DiagnosticService
	logger    log.Logger
	clock     clock.Clock
	hz        float64
}

func NewPoseEstimationTask(state *RobotState, fk *kinematics.FKSolver, publisher PosePublisher, hz float64,
	diag *diagnostic.DiagnosticService, logger log.Logger, clk clock.Clock) *PoseEstimationTask {
	return &PoseEstimationTask{
		state:     state,
		fk:        fk,
		publisher: publisher,
		diag:      diag,
		logger:    logger,
		clock:     clk,
		hz:        hz,
	}
}

// Run waits for the first feedback and then ticks until ctx is done or
// forward kinematics rejects the joint vector.
func (t *PoseEstimationTask) Run(ctx context.Context) error {
	t.logger.Debugf("Waiting for joint feedback")
	if err := t.state.WaitFeedback(ctx); err != nil {
		return err
	}
	t.logger.Infof("Joint feedback received, estimating pose at %.0f Hz", t.hz)

	dt := 1 / t.hz
	rate := NewRate(t.clock, t.hz)
	for {
		t.state.AdvanceElapsed(dt)

		pose, err := t.fk.JntToCart(t.state.JointPositions())
		if err != nil {
			return errors.Wrap(err, "forward kinematics")
		}
		t.state.SetPose(pose)

		if err := t.publisher.PublishPose(pose); err != nil {
			t.diag.RecordPublishError()
			t.logger.Warnf("Failed to publish pose: %v", err)
		}

		met, err := rate.Sleep(ctx)
		if err != nil {
			return err
		}
		t.diag.RecordPoseTick(!met)
	}
}
