package statemachine

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTransitionMetrics verifies that commits and rejections are counted.
// Note: Cannot use t.Parallel() because this test resets global Prometheus metrics.
//
//nolint:paralleltest // Test modifies global Prometheus metric state
func TestTransitionMetrics(t *testing.T) {
	transitionsTotal.Reset()
	rejectionsTotal.Reset()

	engine := newDoor(t, doorTable(t), WithName[*doorCtx]("metrics-door"))
	ctx := context.Background()

	require.True(t, engine.Fire(ctx, testEvent("open")))
	assert.False(t, engine.Fire(ctx, testEvent("open")))

	engine.Update(ctx, func(d *doorCtx) { d.Locked = true })
	require.True(t, engine.Fire(ctx, testEvent("close")))
	assert.False(t, engine.Fire(ctx, testEvent("open")))

	assert.InDelta(t, 1, testutil.ToFloat64(transitionsTotal.WithLabelValues(
		"metrics-door", "closed", "open", "opened", "none",
	)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rejectionsTotal.WithLabelValues(
		"metrics-door", "opened", "open", "no_transition",
	)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rejectionsTotal.WithLabelValues(
		"metrics-door", "closed", "open", "guard",
	)), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(transitionsTotal))
}

func TestSanitization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
		fn       func(string) string
	}{
		{"empty instance", "", "none", sanitizeInstance},
		{"empty machine", "", "unknown", sanitizeMachine},
		{"machine", "onboarding", "onboarding", sanitizeMachine},
		{"short instance", "u", "8-char-hash", sanitizeInstance},
		{"user id", "user-1234567890", "8-char-hash", sanitizeInstance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := tt.fn(tt.input)
			if tt.expected == "8-char-hash" {
				assert.Len(t, result, 8)
				assert.NotEqual(t, tt.input, result)
			} else {
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestSanitizeInstanceIsStable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, sanitizeInstance("user-1"), sanitizeInstance("user-1"))
	assert.NotEqual(t, sanitizeInstance("user-1"), sanitizeInstance("user-2"))
}
