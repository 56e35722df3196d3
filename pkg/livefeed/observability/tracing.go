package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the livefeed tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("livefeed")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartDispatchSpan starts a span covering one event's dispatch:
	// history append, routing, and invalidation calls.
	StartDispatchSpan(ctx context.Context, kind string) (context.Context, trace.Span)

	// StartInvalidateSpan starts a span for one invalidation call,
	// as a child of the dispatch span.
	StartInvalidateSpan(ctx context.Context, key string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartDispatchSpan starts a span covering one event's dispatch.
func (m *otelSpanManager) StartDispatchSpan(ctx context.Context, kind string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "livefeed.dispatch",
		trace.WithAttributes(
			attribute.String("event.kind", kind),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
}

// StartInvalidateSpan starts a span for one invalidation call.
func (m *otelSpanManager) StartInvalidateSpan(ctx context.Context, key string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "livefeed.invalidate",
		trace.WithAttributes(
			attribute.String("cache.key", key),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
