// Package observability provides structured logging, metrics, and
// tracing for the livefeed client.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// LogStateChange logs a connection state transition.
func LogStateChange(logger *slog.Logger, from, to string) {
	if logger == nil {
		return
	}
	logger.Info("connection state changed",
		slog.String("from", from),
		slog.String("to", to),
	)
}

// LogReconnectScheduled logs a scheduled reconnect attempt.
func LogReconnectScheduled(logger *slog.Logger, attempt int, delay time.Duration, err error) {
	if logger == nil {
		return
	}
	logger.Warn("reconnect scheduled",
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay),
		slog.String("error", errString(err)),
	)
}

// LogEventAccepted logs a dispatched domain event.
func LogEventAccepted(logger *slog.Logger, kind string, keys int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("event dispatched",
		slog.String("kind", kind),
		slog.Int("invalidated_keys", keys),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogEventRejected logs a dropped wire message. Rejects are routine
// and never fatal.
func LogEventRejected(logger *slog.Logger, name string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("dropping message",
		slog.String("event", name),
		slog.String("error", errString(err)),
	)
}

// LogInvalidationError logs a failed cache invalidation (non-fatal).
func LogInvalidationError(logger *slog.Logger, key string, err error) {
	if logger == nil {
		return
	}
	logger.Error("cache invalidation failed",
		slog.String("key", key),
		slog.String("error", errString(err)),
	)
}

// LogJournalError logs a failed journal append (non-fatal).
func LogJournalError(logger *slog.Logger, eventID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("journal append failed",
		slog.String("event_id", eventID),
		slog.String("error", errString(err)),
	)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
