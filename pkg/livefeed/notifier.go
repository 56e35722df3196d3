package livefeed

import (
	"sort"
	"sync"
)

// observerSet fans a snapshot out to registered observers. Delivery is
// synchronous from the client's dispatch path so observers see
// snapshots in arrival order; callbacks must be quick.
type observerSet struct {
	mu        sync.RWMutex
	nextID    int64
	observers map[int64]func(Snapshot)
}

func newObserverSet() *observerSet {
	return &observerSet{observers: make(map[int64]func(Snapshot))}
}

// add registers an observer and returns its cancel function. Cancel
// is idempotent.
func (s *observerSet) add(fn func(Snapshot)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// notify delivers the snapshot to every observer in registration
// order.
func (s *observerSet) notify(snap Snapshot) {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *observerSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}
