package control

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/invkin/pkg/config"
	"github.com/open-teleop/invkin/pkg/kinematics"
)

func fastControlConfig() *config.ControlConfig {
	cfg := config.DefaultControlConfig()
	cfg.Rates.PoseEstimationHz = 100
	cfg.Rates.TrackingMultiplier = 2
	cfg.Homing.PollHz = 200
	cfg.Homing.SettleSeconds = 0
	return cfg
}

func TestNewControllerValidation(t *testing.T) {
	chain := loadIiwa(t)
	logger, _ := newTestLogger()

	cfg := fastControlConfig()
	cfg.Robot.FeedbackJointNames = []string{"lbr_iiwa_joint_1"}
	_, err := NewController(chain, cfg, &fakePublisher{}, NewManualTrigger(), newTestDiagnostics(), logger, clock.New())
	assert.True(t, errors.Is(err, kinematics.ErrInvalidInput))

	cfg = fastControlConfig()
	cfg.Rates.PoseEstimationHz = 0
	_, err = NewController(chain, cfg, &fakePublisher{}, NewManualTrigger(), newTestDiagnostics(), logger, clock.New())
	assert.Error(t, err)
}

func TestControllerHandleFeedback(t *testing.T) {
	logger, _ := newTestLogger()
	diag := newTestDiagnostics()
	c, err := NewController(loadIiwa(t), fastControlConfig(), &fakePublisher{}, NewManualTrigger(), diag, logger, clock.New())
	require.NoError(t, err)

	require.NoError(t, c.HandleFeedback(nil, samplePose))
	assert.Equal(t, samplePose, c.State().JointPositions())

	err = c.HandleFeedback(nil, []float64{1, 2})
	assert.True(t, errors.Is(err, kinematics.ErrInvalidInput))
	assert.Equal(t, samplePose, c.State().JointPositions())

	m := diag.GetMetrics()
	assert.EqualValues(t, 2, m.FeedbackMessages)
	assert.EqualValues(t, 1, m.FeedbackRejected)
}

func TestControllerTracksCircle(t *testing.T) {
	pub := &fakePublisher{}
	trig := NewManualTrigger()
	logger, _ := newTestLogger()

	c, err := NewController(loadIiwa(t), fastControlConfig(), pub, trig, newTestDiagnostics(), logger, clock.New())
	require.NoError(t, err)
	pub.onCommand = func(q []float64) { _ = c.HandleFeedback(nil, q) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	assert.Never(t, func() bool { return pub.numPoses() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	require.NoError(t, c.HandleFeedback(nil, make([]float64, 7)))

	assert.Eventually(t, func() bool { return c.Phase() == PhaseAwaitingStart }, 2*time.Second, 5*time.Millisecond)
	assert.InDeltaSlice(t, homePosture, c.State().JointPositions(), 1e-9)
	assert.Equal(t, 0.0, c.State().ElapsedTime())

	trig.Fire()
	assert.Eventually(t, func() bool { return c.State().ElapsedTime() > 0.5 }, 3*time.Second, 10*time.Millisecond)

	pose, ok := pub.lastPose()
	require.True(t, ok)
	assert.InDelta(t, 1.0, pose.Position.Z, 1e-3)
	assert.InDelta(t, 0.3, math.Hypot(pose.Position.X, pose.Position.Y), 1e-3)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not stop")
	}
}
