package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartInitSpan starts a span covering one feed's initialization.
func StartInitSpan(ctx context.Context, tracer trace.Tracer, feedName string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "feed init "+feedName,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(attribute.String("feedrig.feed", feedName))
	return ctx, span
}

// StartScenarioSpan starts a span covering one scenario's execution.
func StartScenarioSpan(ctx context.Context, tracer trace.Tracer, scenario string, vus int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "scenario "+scenario,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		attribute.String("feedrig.scenario", scenario),
		attribute.Int("feedrig.vus", vus),
	)
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
