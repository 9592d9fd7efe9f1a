package control

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/invkin/pkg/config"
)

func fastHoming(target []float64) config.HomingConfig {
	return config.HomingConfig{
		Target:    target,
		Threshold: 0.002,
		PollHz:    500,
	}
}

func TestHomingRejectsWrongTargetLength(t *testing.T) {
	logger, _ := newTestLogger()
	_, err := NewHomingRoutine(NewRobotState(7), &fakePublisher{}, fastHoming([]float64{0, 1}), newTestDiagnostics(), logger, clock.New())
	assert.Error(t, err)
}

func TestHomingWaitsForThreshold(t *testing.T) {
	state := NewRobotState(7)
	pub := &fakePublisher{}
	logger, _ := newTestLogger()
	target := make([]float64, 7)

	// exactly at the threshold is not close enough
	require.NoError(t, state.IngestFeedback([]float64{0, 0, 0.002, 0, 0, 0, 0}))

	h, err := NewHomingRoutine(state, pub, fastHoming(target), newTestDiagnostics(), logger, clock.New())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- h.Run(context.Background()) }()

	assert.Never(t, func() bool { return len(done) > 0 }, 100*time.Millisecond, 5*time.Millisecond)
	assert.Greater(t, pub.numCommands(), 1)
	assert.Equal(t, target, pub.lastCommand())

	require.NoError(t, state.IngestFeedback([]float64{0, 0, 0.0019, 0, 0, 0, -0.001}))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("homing did not finish")
	}
}

func TestHomingSettles(t *testing.T) {
	state := NewRobotState(7)
	require.NoError(t, state.IngestFeedback(homePosture))
	logger, _ := newTestLogger()
	diag := newTestDiagnostics()

	cfg := fastHoming(homePosture)
	cfg.SettleSeconds = 0.05
	h, err := NewHomingRoutine(state, &fakePublisher{}, cfg, diag, logger, clock.New())
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, h.Run(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.GreaterOrEqual(t, diag.GetMetrics().HomingDurationSeconds, 0.05)
}

func TestHomingTimeout(t *testing.T) {
	state := NewRobotState(7)
	logger, _ := newTestLogger()

	cfg := fastHoming(homePosture)
	cfg.TimeoutSeconds = 0.05
	h, err := NewHomingRoutine(state, &fakePublisher{}, cfg, newTestDiagnostics(), logger, clock.New())
	require.NoError(t, err)

	err = h.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHomingTimeout))
}

func TestHomingCancelled(t *testing.T) {
	state := NewRobotState(7)
	logger, _ := newTestLogger()
	h, err := NewHomingRoutine(state, &fakePublisher{}, fastHoming(homePosture), newTestDiagnostics(), logger, clock.New())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.True(t, errors.Is(h.Run(ctx), context.DeadlineExceeded))
}
