package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrNoConfirmation is returned when a confirmation source closes without
	// confirming.
	ErrNoConfirmation = errors.New("operator confirmation source closed")

	// ErrStartTimeout is returned when the operator does not confirm within the
	// configured timeout.
	ErrStartTimeout = errors.New("timed out waiting for operator confirmation")
)

// StartSignal gates the start of tracking on an operator decision.
type StartSignal interface {
	Wait(ctx context.Context) error
}

// LineConfirmation prints a prompt and waits for any line on its input.
type LineConfirmation struct {
	in     *bufio.Reader
	out    io.Writer
	prompt string
}

// NewLineConfirmation reads from in and writes the prompt to out.
func NewLineConfirmation(in io.Reader, out io.Writer, prompt string) *LineConfirmation {
	return &LineConfirmation{in: bufio.NewReader(in), out: out, prompt: prompt}
}

// Wait returns once a line is read. The read itself cannot be interrupted, so
// on cancellation the pending read is abandoned.
func (c *LineConfirmation) Wait(ctx context.Context) error {
	if c.prompt != "" {
		fmt.Fprintln(c.out, c.prompt)
	}

	done := make(chan error, 1)
	go func() {
		line, err := c.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			done <- errors.Wrap(ErrNoConfirmation, err.Error())
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ManualTrigger is fired programmatically, e.g. from the HTTP API.
type ManualTrigger struct {
	once sync.Once
	ch   chan struct{}
}

func NewManualTrigger() *ManualTrigger {
	return &ManualTrigger{ch: make(chan struct{})}
}

// Fire releases waiters. It reports whether this call fired the trigger.
func (t *ManualTrigger) Fire() bool {
	fired := false
	t.once.Do(func() {
		close(t.ch)
		fired = true
	})
	return fired
}

func (t *ManualTrigger) Wait(ctx context.Context) error {
	select {
	case <-t.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AnySignal confirms as soon as any of its sources confirms. A source that
// fails is ignored unless every source fails.
type AnySignal []StartSignal

func (a AnySignal) Wait(ctx context.Context) error {
	if len(a) == 0 {
		return errors.New("no operator confirmation source configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan error, len(a))
	for _, s := range a {
		go func(s StartSignal) {
			results <- s.Wait(ctx)
		}(s)
	}

	var lastErr error
	for range a {
		err := <-results
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}
	return lastErr
}
