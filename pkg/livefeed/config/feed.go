package config

import "time"

// Feed settings defaults.
const (
	DefaultEndpoint       = "/api/events"
	DefaultHistorySize    = 20
	DefaultBackoffInitial = 1 * time.Second
	DefaultBackoffMax     = 30 * time.Second
)

// FeedConfig carries the typed settings for a stream client and its
// collaborators.
type FeedConfig struct {
	// Endpoint is the URL of the push stream.
	Endpoint string

	// Enabled gates the client entirely; when false Start is a no-op
	// and the client stays disconnected.
	Enabled bool

	// HistorySize bounds the recent-event buffer.
	HistorySize int

	// BackoffInitial and BackoffMax shape the reconnect schedule.
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// MaxRetries caps consecutive failed reconnect attempts;
	// 0 retries forever.
	MaxRetries int

	// RedisAddr selects the Redis-backed invalidator when non-empty.
	RedisAddr string

	// RedisPrefix namespaces the cache keys in Redis.
	RedisPrefix string

	// JournalPath enables the SQLite event journal when non-empty.
	JournalPath string
}

// Feed extracts the feed settings from a Config, filling defaults for
// anything absent.
func Feed(c Config) FeedConfig {
	return FeedConfig{
		Endpoint:       c.String("endpoint", DefaultEndpoint),
		Enabled:        c.Bool("enabled", true),
		HistorySize:    c.Int("history_size", DefaultHistorySize),
		BackoffInitial: c.Duration("backoff_initial", DefaultBackoffInitial),
		BackoffMax:     c.Duration("backoff_max", DefaultBackoffMax),
		MaxRetries:     c.Int("max_retries", 0),
		RedisAddr:      c.String("redis_addr", ""),
		RedisPrefix:    c.String("redis_prefix", ""),
		JournalPath:    c.String("journal_path", ""),
	}
}
