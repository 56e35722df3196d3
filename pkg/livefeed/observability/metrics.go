package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records livefeed metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordEventAccepted records a dispatched event with its
	// end-to-end dispatch latency.
	RecordEventAccepted(ctx context.Context, kind string, duration time.Duration)

	// RecordEventRejected records a dropped wire message by reason.
	RecordEventRejected(ctx context.Context, reason string)

	// RecordReconnect records a scheduled reconnect attempt.
	RecordReconnect(ctx context.Context, delay time.Duration)

	// RecordInvalidation records one cache invalidation call.
	RecordInvalidation(ctx context.Context, key string, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	eventsAccepted  metric.Int64Counter
	eventsRejected  metric.Int64Counter
	reconnects      metric.Int64Counter
	invalidations   metric.Int64Counter
	dispatchLatency metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("livefeed")

	eventsAccepted, err := meter.Int64Counter("livefeed.events.accepted",
		metric.WithDescription("Number of accepted domain events"),
	)
	if err != nil {
		return nil, err
	}

	eventsRejected, err := meter.Int64Counter("livefeed.events.rejected",
		metric.WithDescription("Number of rejected wire messages"),
	)
	if err != nil {
		return nil, err
	}

	reconnects, err := meter.Int64Counter("livefeed.reconnects",
		metric.WithDescription("Number of scheduled reconnect attempts"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter("livefeed.invalidations",
		metric.WithDescription("Number of cache invalidation calls"),
	)
	if err != nil {
		return nil, err
	}

	dispatchLatency, err := meter.Float64Histogram("livefeed.dispatch.latency_ms",
		metric.WithDescription("Event dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		eventsAccepted:  eventsAccepted,
		eventsRejected:  eventsRejected,
		reconnects:      reconnects,
		invalidations:   invalidations,
		dispatchLatency: dispatchLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global
// OTel meter provider. Configure the provider before calling this
// function; if metric creation fails, a noop recorder is returned and
// the error is logged.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("livefeed metrics disabled", slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordEventAccepted implements MetricsRecorder.
func (m *otelMetrics) RecordEventAccepted(ctx context.Context, kind string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	m.eventsAccepted.Add(ctx, 1, attrs)
	m.dispatchLatency.Record(ctx, float64(duration.Microseconds())/1000.0, attrs)
}

// RecordEventRejected implements MetricsRecorder.
func (m *otelMetrics) RecordEventRejected(ctx context.Context, reason string) {
	m.eventsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordReconnect implements MetricsRecorder.
func (m *otelMetrics) RecordReconnect(ctx context.Context, delay time.Duration) {
	m.reconnects.Add(ctx, 1, metric.WithAttributes(
		attribute.Float64("delay_seconds", delay.Seconds()),
	))
}

// RecordInvalidation implements MetricsRecorder.
func (m *otelMetrics) RecordInvalidation(ctx context.Context, key string, err error) {
	m.invalidations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key", key),
		attribute.Bool("error", err != nil),
	))
}
