package invalidate

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultScanCount is the SCAN batch size for namespace deletes.
const DefaultScanCount = 100

// RedisInvalidator evicts cached results held in Redis. Each key is
// deleted both as an exact entry and as a namespace: list and
// collection caches store per-page entries under "key:page" style
// subkeys, so Invalidate also clears "key:*".
type RedisInvalidator struct {
	client    redis.UniversalClient
	prefix    string
	scanCount int64
}

// RedisOption configures a RedisInvalidator.
type RedisOption func(*RedisInvalidator)

// WithKeyPrefix namespaces all cache keys, e.g. "cache:".
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisInvalidator) {
		r.prefix = prefix
	}
}

// WithScanCount sets the SCAN batch size.
func WithScanCount(n int64) RedisOption {
	return func(r *RedisInvalidator) {
		if n > 0 {
			r.scanCount = n
		}
	}
}

// NewRedisInvalidator creates an invalidator over an existing client.
// The caller owns the client's lifecycle.
func NewRedisInvalidator(client redis.UniversalClient, opts ...RedisOption) *RedisInvalidator {
	r := &RedisInvalidator{
		client:    client,
		scanCount: DefaultScanCount,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Invalidate implements Invalidator. Deleting an absent key is a
// no-op in Redis, so redundant invalidations are safe.
func (r *RedisInvalidator) Invalidate(ctx context.Context, key Key) error {
	full := r.prefix + string(key)

	if err := r.client.Del(ctx, full).Err(); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}

	iter := r.client.Scan(ctx, 0, full+":*", r.scanCount).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("invalidate %s: delete %s: %w", key, iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("invalidate %s: scan: %w", key, err)
	}
	return nil
}
