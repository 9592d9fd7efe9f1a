package control

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepResult struct {
	met bool
	err error
}

// advanceUntil moves the mock clock forward in small steps until Sleep returns.
func advanceUntil(t *testing.T, mock *clock.Mock, done <-chan sleepResult) sleepResult {
	t.Helper()
	for i := 0; i < 1000; i++ {
		select {
		case res := <-done:
			return res
		default:
			mock.Add(5 * time.Millisecond)
		}
	}
	t.Fatal("Sleep did not return")
	return sleepResult{}
}

func TestRatePeriod(t *testing.T) {
	r := NewRate(clock.NewMock(), 50)
	assert.Equal(t, 20*time.Millisecond, r.Period())

	r = NewRate(clock.NewMock(), 200)
	assert.Equal(t, 5*time.Millisecond, r.Period())
}

func TestRateSleepsRemainderOfPeriod(t *testing.T) {
	mock := clock.NewMock()
	r := NewRate(mock, 10)
	start := mock.Now()

	mock.Add(30 * time.Millisecond)

	done := make(chan sleepResult, 1)
	go func() {
		met, err := r.Sleep(context.Background())
		done <- sleepResult{met, err}
	}()

	res := advanceUntil(t, mock, done)
	require.NoError(t, res.err)
	assert.True(t, res.met)
	assert.GreaterOrEqual(t, mock.Since(start), 100*time.Millisecond)
}

func TestRateOverrun(t *testing.T) {
	mock := clock.NewMock()
	r := NewRate(mock, 10)

	mock.Add(250 * time.Millisecond)
	met, err := r.Sleep(context.Background())
	require.NoError(t, err)
	assert.False(t, met)

	// the schedule restarted from the overrun, so the next cycle is a full period
	restarted := mock.Now()
	done := make(chan sleepResult, 1)
	go func() {
		met, err := r.Sleep(context.Background())
		done <- sleepResult{met, err}
	}()

	res := advanceUntil(t, mock, done)
	require.NoError(t, res.err)
	assert.True(t, res.met)
	assert.GreaterOrEqual(t, mock.Since(restarted), 100*time.Millisecond)
}

func TestRateSleepCancelled(t *testing.T) {
	r := NewRate(clock.NewMock(), 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	met, err := r.Sleep(ctx)
	assert.False(t, met)
	assert.True(t, errors.Is(err, context.Canceled))
}
