package event

import "sync"

// DefaultHistorySize is the bounded buffer capacity used when no size
// is configured.
const DefaultHistorySize = 20

// History is a bounded, newest-first buffer of accepted events plus
// monotonic counters. It is safe for concurrent use: Append, Clear and
// Snapshot share one lock so readers never observe a partial update.
type History struct {
	mu     sync.Mutex
	cap    int
	recent []*DomainEvent // index 0 is newest
	total  uint64
	last   *DomainEvent
}

// HistorySnapshot is a consistent view of the buffer and counters.
type HistorySnapshot struct {
	// Recent holds at most the configured capacity, newest first.
	Recent []*DomainEvent

	// Total counts every accepted append since the last Clear,
	// regardless of buffer truncation.
	Total uint64

	// Last is the most recent event, or nil when empty.
	Last *DomainEvent
}

// NewHistory creates a history with the given capacity. Non-positive
// capacities fall back to DefaultHistorySize.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{
		cap:    capacity,
		recent: make([]*DomainEvent, 0, capacity),
	}
}

// Append inserts an event at the front, evicting the oldest entry when
// the buffer is full. The total counter always increments.
func (h *History) Append(evt *DomainEvent) {
	if evt == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.recent) < h.cap {
		h.recent = append(h.recent, nil)
	}
	copy(h.recent[1:], h.recent)
	h.recent[0] = evt

	h.total++
	h.last = evt
}

// Clear empties the buffer and resets the counters. This is the only
// mutation path besides Append.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recent = h.recent[:0]
	h.total = 0
	h.last = nil
}

// Len returns the current buffer length.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.recent)
}

// Snapshot returns a consistent copy of the buffer and counters. The
// returned slice is owned by the caller.
func (h *History) Snapshot() HistorySnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HistorySnapshot{
		Recent: append([]*DomainEvent(nil), h.recent...),
		Total:  h.total,
		Last:   h.last,
	}
}
