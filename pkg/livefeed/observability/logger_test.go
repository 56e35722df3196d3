package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogger returns a debug-level JSON logger writing to buf.
func captureLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &rec))
	return rec
}

func TestLogStateChange(t *testing.T) {
	logger, buf := captureLogger()
	LogStateChange(logger, "connecting", "connected")

	rec := lastRecord(t, buf)
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "connection state changed", rec["msg"])
	assert.Equal(t, "connecting", rec["from"])
	assert.Equal(t, "connected", rec["to"])
}

func TestLogReconnectScheduled(t *testing.T) {
	logger, buf := captureLogger()
	LogReconnectScheduled(logger, 3, 4*time.Second, errors.New("connection refused"))

	rec := lastRecord(t, buf)
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, float64(3), rec["attempt"])
	assert.Equal(t, "connection refused", rec["error"])
}

func TestLogEventRejected(t *testing.T) {
	logger, buf := captureLogger()
	LogEventRejected(logger, "agent.deleted", errors.New("unknown event kind"))

	rec := lastRecord(t, buf)
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "dropping message", rec["msg"])
	assert.Equal(t, "agent.deleted", rec["event"])
}

func TestLogEventAccepted(t *testing.T) {
	logger, buf := captureLogger()
	LogEventAccepted(logger, "reputation.changed", 4, 1.5)

	rec := lastRecord(t, buf)
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "reputation.changed", rec["kind"])
	assert.Equal(t, float64(4), rec["invalidated_keys"])
}

func TestLogInvalidationError(t *testing.T) {
	logger, buf := captureLogger()
	LogInvalidationError(logger, "agent-list", errors.New("redis down"))

	rec := lastRecord(t, buf)
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "agent-list", rec["key"])
}

func TestLogHelpers_NilLoggerSafe(t *testing.T) {
	LogStateChange(nil, "a", "b")
	LogReconnectScheduled(nil, 1, time.Second, nil)
	LogEventAccepted(nil, "agent.created", 0, 0)
	LogEventRejected(nil, "x", nil)
	LogInvalidationError(nil, "k", nil)
	LogJournalError(nil, "e1", nil)
}
