package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordEventAccepted does nothing.
func (NoopMetrics) RecordEventAccepted(_ context.Context, _ string, _ time.Duration) {}

// RecordEventRejected does nothing.
func (NoopMetrics) RecordEventRejected(_ context.Context, _ string) {}

// RecordReconnect does nothing.
func (NoopMetrics) RecordReconnect(_ context.Context, _ time.Duration) {}

// RecordInvalidation does nothing.
func (NoopMetrics) RecordInvalidation(_ context.Context, _ string, _ error) {}

// NoopSpanManager is a SpanManager that does nothing.
// Use when tracing is disabled to avoid overhead.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

// noopSpan is a span that does nothing.
// We use the OTel noop package for a proper no-op span implementation.
var noopSpan = noop.Span{}

// StartDispatchSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartDispatchSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartInvalidateSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartInvalidateSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}
