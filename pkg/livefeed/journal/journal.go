// Package journal persists accepted domain events for later replay
// and inspection. The journal is strictly an audit trail: writes are
// best-effort from the client's point of view, and a journal failure
// never affects the in-memory history or cache invalidation.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/agentindex/livefeed/pkg/livefeed/event"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("journal store is closed")

// Entry is one persisted event.
type Entry struct {
	// EventID is the decode-time id of the event.
	EventID string

	// Kind is the wire name of the event kind.
	Kind string

	// Timestamp is the event's decode-time wall clock.
	Timestamp time.Time

	// Payload is the event body re-serialized as JSON.
	Payload []byte
}

// FromEvent converts a domain event into a journal entry.
func FromEvent(evt *event.DomainEvent) Entry {
	// The payload came in as valid JSON, so re-marshalling a
	// map[string]any of it cannot fail.
	payload, _ := json.Marshal(evt.Payload)
	return Entry{
		EventID:   evt.ID,
		Kind:      evt.Kind.String(),
		Timestamp: evt.Timestamp,
		Payload:   payload,
	}
}

// Store persists journal entries. Implementations must be safe for
// concurrent use.
type Store interface {
	// Append persists one entry.
	Append(ctx context.Context, entry Entry) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Purge removes entries older than the cutoff and reports how
	// many were removed.
	Purge(ctx context.Context, before time.Time) (int64, error)

	// Close releases the store's resources.
	Close() error
}

// MemoryStore is an in-memory Store. Suitable for tests and hosts
// that only want a bounded-lifetime journal.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry // append order, oldest first
	closed  bool
}

// NewMemoryStore creates an empty in-memory journal.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.entries = append(s.entries, entry)
	return nil
}

// Recent implements Store.
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	n := len(s.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Purge implements Store.
func (s *MemoryStore) Purge(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}

	kept := s.entries[:0]
	var removed int64
	for _, e := range s.entries {
		if e.Timestamp.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
