package shutdown

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInReverseOrderOnce(t *testing.T) {
	t.Parallel()

	h := New(slogt.New(t))

	var order []string

	errFirst := errors.New("first failure")

	h.BeforeShutdown("db", func(context.Context) error {
		order = append(order, "db")

		return errors.New("late failure")
	})
	h.BeforeShutdown("tracer", func(context.Context) error {
		order = append(order, "tracer")

		return errFirst
	})
	h.BeforeShutdown("prompt", func(context.Context) error {
		order = append(order, "prompt")

		return nil
	})

	err := h.Run(t.Context())
	require.ErrorIs(t, err, errFirst)
	assert.Equal(t, []string{"prompt", "tracer", "db"}, order)

	require.NoError(t, h.Run(t.Context()))
	assert.Len(t, order, 3)
}

func TestNotifyCancelsOnSignal(t *testing.T) { //nolint:paralleltest
	h := New(slogt.New(t))

	ctx, stop := h.Notify(t.Context())
	defer stop()

	select {
	case <-ctx.Done():
		t.Fatal("context should not be canceled initially")
	default:
	}

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not canceled by SIGTERM")
	}
}
