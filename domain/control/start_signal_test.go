package control

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineConfirmationAcceptsAnyLine(t *testing.T) {
	for _, input := range []string{"\n", "y\n", "go ahead\n", "no newline"} {
		var out bytes.Buffer
		c := NewLineConfirmation(strings.NewReader(input), &out, "Press enter")

		require.NoError(t, c.Wait(context.Background()), "input %q", input)
		assert.Equal(t, "Press enter\n", out.String())
	}
}

func TestLineConfirmationEOF(t *testing.T) {
	c := NewLineConfirmation(strings.NewReader(""), io.Discard, "")

	err := c.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoConfirmation))
}

func TestLineConfirmationCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	c := NewLineConfirmation(r, io.Discard, "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.True(t, errors.Is(c.Wait(ctx), context.DeadlineExceeded))
}

func TestManualTrigger(t *testing.T) {
	trig := NewManualTrigger()

	done := make(chan error, 1)
	go func() { done <- trig.Wait(context.Background()) }()

	assert.True(t, trig.Fire())
	assert.False(t, trig.Fire())
	require.NoError(t, <-done)
	require.NoError(t, trig.Wait(context.Background()))
}

func TestAnySignal(t *testing.T) {
	trig := NewManualTrigger()
	closed := NewLineConfirmation(strings.NewReader(""), io.Discard, "")
	signal := AnySignal{closed, trig}

	done := make(chan error, 1)
	go func() { done <- signal.Wait(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	trig.Fire()
	require.NoError(t, <-done)
}

func TestAnySignalAllFail(t *testing.T) {
	signal := AnySignal{
		NewLineConfirmation(strings.NewReader(""), io.Discard, ""),
		NewLineConfirmation(strings.NewReader(""), io.Discard, ""),
	}
	assert.True(t, errors.Is(signal.Wait(context.Background()), ErrNoConfirmation))

	assert.Error(t, AnySignal{}.Wait(context.Background()))
}
