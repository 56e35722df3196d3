package livefeed

import (
	"log/slog"
	"time"

	"github.com/agentindex/livefeed/pkg/livefeed/backoff"
	"github.com/agentindex/livefeed/pkg/livefeed/config"
	"github.com/agentindex/livefeed/pkg/livefeed/journal"
	"github.com/agentindex/livefeed/pkg/livefeed/observability"
)

// Option configures a Client.
type Option func(*Client)

// WithEndpoint sets the stream URL. Defaults to "/api/events".
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithEnabled gates the client. When disabled, Start is a no-op and
// the client stays disconnected.
func WithEnabled(enabled bool) Option {
	return func(c *Client) {
		c.enabled = enabled
	}
}

// WithHistorySize bounds the recent-event buffer. Defaults to 20.
func WithHistorySize(n int) Option {
	return func(c *Client) {
		c.historySize = n
	}
}

// WithBackoff sets the reconnect delay schedule. Defaults to 1s
// initial, 30s ceiling, factor 2.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) {
		c.sched = backoff.NewScheduler(
			backoff.WithInitial(initial),
			backoff.WithMax(max),
		)
	}
}

// WithScheduler replaces the backoff scheduler entirely, for custom
// factors or jitter.
func WithScheduler(s *backoff.Scheduler) Option {
	return func(c *Client) {
		if s != nil {
			c.sched = s
		}
	}
}

// WithMaxRetries caps consecutive failed connection attempts; once
// exceeded the client gives up and disconnects. Zero, the default,
// retries forever at the capped delay.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithLogger sets the structured logger. Nil, the default, disables
// logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Defaults to noop.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpanManager sets the trace span manager. Defaults to noop.
func WithSpanManager(sm observability.SpanManager) Option {
	return func(c *Client) {
		if sm != nil {
			c.spans = sm
		}
	}
}

// WithJournal persists every accepted event to the store. Journal
// failures are logged and never affect dispatch. The caller owns the
// store's lifecycle.
func WithJournal(store journal.Store) Option {
	return func(c *Client) {
		c.journal = store
	}
}

// FromConfig expands a FeedConfig into the equivalent options. Redis
// and journal settings name external resources, so the caller
// constructs those collaborators itself (see examples).
func FromConfig(fc config.FeedConfig) []Option {
	return []Option{
		WithEndpoint(fc.Endpoint),
		WithEnabled(fc.Enabled),
		WithHistorySize(fc.HistorySize),
		WithBackoff(fc.BackoffInitial, fc.BackoffMax),
		WithMaxRetries(fc.MaxRetries),
	}
}
