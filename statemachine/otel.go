package statemachine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startFireSpan creates a span covering one event dispatch.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startFireSpan(ctx context.Context, labels ObservabilityLabels, event string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.fire")
	addLabelAttributes(span, labels)
	span.SetAttributes(attribute.String("event", event))

	return ctx, span
}

// startUpdateSpan creates a span covering a direct context update.
//
//nolint:spancheck // Span lifecycle managed by caller
func startUpdateSpan(ctx context.Context, labels ObservabilityLabels) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.update")
	addLabelAttributes(span, labels)

	return ctx, span
}

func addLabelAttributes(span trace.Span, labels ObservabilityLabels) {
	span.SetAttributes(
		attribute.String("machine", labels.Machine),
		attribute.String("state", labels.State),
		attribute.String("instance_hash", sanitizeInstance(labels.Instance)),
	)
}
