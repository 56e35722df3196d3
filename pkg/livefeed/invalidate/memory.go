package invalidate

import (
	"context"
	"sync"
)

// MemoryInvalidator records invalidated keys in memory. It backs
// embedded per-process caches and doubles as a test collaborator.
type MemoryInvalidator struct {
	mu     sync.Mutex
	order  []Key
	counts map[Key]int
}

// NewMemoryInvalidator creates an empty recorder.
func NewMemoryInvalidator() *MemoryInvalidator {
	return &MemoryInvalidator{counts: make(map[Key]int)}
}

// Invalidate implements Invalidator. It never fails and is idempotent;
// repeat invalidations only bump the per-key count.
func (m *MemoryInvalidator) Invalidate(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts[key] == 0 {
		m.order = append(m.order, key)
	}
	m.counts[key]++
	return nil
}

// Keys returns the distinct invalidated keys in first-seen order.
func (m *MemoryInvalidator) Keys() []Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Key(nil), m.order...)
}

// Count returns how many times the key was invalidated.
func (m *MemoryInvalidator) Count(key Key) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

// Reset forgets all recorded invalidations.
func (m *MemoryInvalidator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = nil
	m.counts = make(map[Key]int)
}
