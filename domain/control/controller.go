package control

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/open-teleop/invkin/domain/diagnostic"
	"github.com/open-teleop/invkin/pkg/config"
	"github.com/open-teleop/invkin/pkg/kinematics"
	"github.com/open-teleop/invkin/pkg/log"
)

// Controller owns the shared robot state and the two periodic tasks.
type Controller struct {
	chain  *kinematics.Chain
	state  *RobotState
	mapper *JointMapper
	diag   *diagnostic.DiagnosticService
	logger log.Logger

	pose     *PoseEstimationTask
	tracking *TrackingControlTask
}

// NewController wires the control tasks for chain from cfg.
func NewController(chain *kinematics.Chain, cfg *config.ControlConfig, publisher Publisher, start StartSignal,
	diag *diagnostic.DiagnosticService, logger log.Logger, clk clock.Clock) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mapper, err := NewJointMapper(chain.JointNames(), cfg.Robot.FeedbackJointNames)
	if err != nil {
		return nil, err
	}

	state := NewRobotState(chain.NumJoints())
	homing, err := NewHomingRoutine(state, publisher, cfg.Homing, diag, logger.WithField("task", "homing"), clk)
	if err != nil {
		return nil, err
	}

	ik := kinematics.NewIKSolver(chain, kinematics.IKConfig{
		MaxIterations: cfg.IK.MaxIterations,
		Tolerance:     cfg.IK.Tolerance,
		Damping: kinematics.DampingConfig{
			Lambda:            cfg.IK.Damping,
			SingularThreshold: cfg.IK.SingularThreshold,
		},
		EnforceJointLimits: cfg.IK.EnforceJointLimits,
	})

	c := &Controller{
		chain:  chain,
		state:  state,
		mapper: mapper,
		diag:   diag,
		logger: logger,
		pose: NewPoseEstimationTask(state, kinematics.NewFKSolver(chain), publisher, cfg.Rates.PoseEstimationHz,
			diag, logger.WithField("task", "pose"), clk),
		tracking: NewTrackingControlTask(TrackingOptions{
			State:        state,
			IK:           ik,
			Trajectory:   NewCircularTrajectory(cfg.Trajectory),
			Homing:       homing,
			Start:        start,
			StartTimeout: seconds(cfg.Operator.TimeoutSeconds),
			Publisher:    publisher,
			Hz:           cfg.Rates.TrackingHz(),
			Diagnostics:  diag,
			Logger:       logger.WithField("task", "tracking"),
			Clock:        clk,
		}),
	}
	return c, nil
}

func (c *Controller) State() *RobotState { return c.state }

func (c *Controller) Phase() Phase { return c.tracking.Phase() }

func (c *Controller) Chain() *kinematics.Chain { return c.chain }

// HandleFeedback ingests one joint state message. Rejected messages leave the
// state untouched and are reported to the caller.
func (c *Controller) HandleFeedback(names []string, positions []float64) error {
	q, err := c.mapper.Map(names, positions)
	if err == nil {
		err = c.state.IngestFeedback(q)
	}
	if err != nil {
		c.diag.RecordFeedback(false)
		c.logger.Warnf("Dropping joint state: %v", err)
		return err
	}
	c.diag.RecordFeedback(true)
	return nil
}

// Run starts both tasks and blocks until ctx is cancelled or one of them
// fails. The first failure cancels the other task and is returned.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := fn(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			once.Do(func() {
				firstErr = errors.Wrapf(err, "%s task", name)
				cancel()
			})
		}()
	}

	run("pose estimation", c.pose.Run)
	run("tracking", c.tracking.Run)
	wg.Wait()

	if firstErr != nil {
		c.logger.Errorf("Control stopped: %v", firstErr)
	}
	return firstErr
}
