package statemachine

import (
	"context"
	"log/slog"
	"time"
)

// Logger provides logging hooks for engine activity.
type Logger interface {
	TransitionExecuted(ctx context.Context, from, event, to string)
	TransitionRejected(ctx context.Context, from, event string, err error)
	ActionFailed(ctx context.Context, from, event string, duration time.Duration, err error)
	ContextUpdated(ctx context.Context, state string)
}

// ObservabilityLabels contains contextual labels for observability.
type ObservabilityLabels struct {
	Machine  string
	Instance string
	State    string
}

// withObservabilityLabels stores labels in the Go context for loggers and hooks.
func withObservabilityLabels(ctx context.Context, labels ObservabilityLabels) context.Context {
	return context.WithValue(ctx, stateMachineContextKey, labels)
}

// GetObservabilityLabels extracts observability labels from the context.
// Returns an empty ObservabilityLabels struct if none were set.
func GetObservabilityLabels(ctx context.Context) ObservabilityLabels {
	labels, ok := ctx.Value(stateMachineContextKey).(ObservabilityLabels)
	if !ok {
		return ObservabilityLabels{}
	}

	return labels
}

// DefaultLogger implements Logger using slog.
//
// Rejections caused by a guard are logged at debug level: callers check
// transitions speculatively and a false guard is an expected answer. A missing
// transition or a malformed payload is a developer mistake and logs a warning.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger creates a new default logger backed by slog.Default().
func NewDefaultLogger() *DefaultLogger {
	return NewSlogLogger(slog.Default())
}

// NewSlogLogger creates a logger writing to the given slog logger.
func NewSlogLogger(logger *slog.Logger) *DefaultLogger {
	if logger == nil {
		logger = slog.Default()
	}

	return &DefaultLogger{
		logger: logger,
	}
}

func (l *DefaultLogger) fields(ctx context.Context, extra ...any) []any {
	labels := GetObservabilityLabels(ctx)

	fields := []any{
		"machine", labels.Machine,
	}

	if labels.Instance != "" {
		fields = append(fields, "instance", labels.Instance)
	}

	return append(fields, extra...)
}

func (l *DefaultLogger) TransitionExecuted(ctx context.Context, from, event, to string) {
	l.logger.InfoContext(ctx, "Transition executed", l.fields(ctx,
		"from", from,
		"event", event,
		"to", to,
	)...)
}

func (l *DefaultLogger) TransitionRejected(ctx context.Context, from, event string, err error) {
	fields := l.fields(ctx,
		"from", from,
		"event", event,
		"reason", rejectionReason(err),
		"error", err,
	)

	if rejectionReason(err) == "guard" {
		l.logger.DebugContext(ctx, "Transition rejected", fields...)

		return
	}

	l.logger.WarnContext(ctx, "Transition rejected", fields...)
}

func (l *DefaultLogger) ActionFailed(ctx context.Context, from, event string, duration time.Duration, err error) {
	l.logger.ErrorContext(ctx, "Action failed", l.fields(ctx,
		"from", from,
		"event", event,
		"duration_ms", duration.Milliseconds(),
		"error", err,
	)...)
}

func (l *DefaultLogger) ContextUpdated(ctx context.Context, state string) {
	l.logger.DebugContext(ctx, "Context updated", l.fields(ctx, "state", state)...)
}

type nopLogger struct{}

func (nopLogger) TransitionExecuted(context.Context, string, string, string)         {}
func (nopLogger) TransitionRejected(context.Context, string, string, error)          {}
func (nopLogger) ActionFailed(context.Context, string, string, time.Duration, error) {}
func (nopLogger) ContextUpdated(context.Context, string)                             {}

// NopLogger discards everything.
func NopLogger() Logger {
	return nopLogger{}
}
