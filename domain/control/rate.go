package control

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Rate keeps a loop at a fixed frequency by sleeping whatever remains of the
// current period after the loop body has run.
type Rate struct {
	clock  clock.Clock
	period time.Duration
	start  time.Time
}

// NewRate returns a Rate for hz cycles per second, starting now.
func NewRate(clk clock.Clock, hz float64) *Rate {
	return &Rate{
		clock:  clk,
		period: time.Duration(float64(time.Second) / hz),
		start:  clk.Now(),
	}
}

// Period is the cycle length.
func (r *Rate) Period() time.Duration {
	return r.period
}

// Reset restarts the schedule from now.
func (r *Rate) Reset() {
	r.start = r.clock.Now()
}

// Sleep waits until the end of the current cycle. met is false when the
// cycle had already overrun; if it overran by more than a full period the
// schedule restarts from now instead of trying to catch up.
func (r *Rate) Sleep(ctx context.Context) (met bool, err error) {
	expected := r.start.Add(r.period)
	now := r.clock.Now()

	// clock went backwards
	if now.Before(r.start) {
		expected = now.Add(r.period)
	}

	r.start = expected
	remaining := expected.Sub(now)
	if remaining <= 0 {
		if now.After(expected.Add(r.period)) {
			r.start = now
		}
		return false, ctx.Err()
	}

	timer := r.clock.Timer(remaining)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
		return true, nil
	}
}
