// Package backoff computes reconnect delays with exponential growth
// and a ceiling. A Scheduler is owned by a single stream client and
// reset on every successful connection open, so a failure after a good
// connection restarts from the smallest delay.
package backoff

import (
	"math/rand"
	"sync"
	"time"
)

// Defaults for the reconnect schedule. With these, sustained failure
// produces 1s, 2s, 4s, 8s, 16s, 30s, 30s, ...
const (
	DefaultInitial = 1 * time.Second
	DefaultMax     = 30 * time.Second
	DefaultFactor  = 2.0
)

// Scheduler tracks the current reconnect delay. Safe for concurrent
// use, though in practice one goroutine owns it.
type Scheduler struct {
	initial time.Duration
	max     time.Duration
	factor  float64
	jitter  float64

	mu      sync.Mutex
	current time.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInitial sets the first delay after a failure.
func WithInitial(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.initial = d
		}
	}
}

// WithMax sets the delay ceiling.
func WithMax(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.max = d
		}
	}
}

// WithFactor sets the growth multiplier.
func WithFactor(f float64) Option {
	return func(s *Scheduler) {
		if f > 1 {
			s.factor = f
		}
	}
}

// WithJitter sets a random jitter fraction (0.0-1.0) applied to each
// returned delay. Zero keeps the schedule exact.
func WithJitter(j float64) Option {
	return func(s *Scheduler) {
		if j >= 0 && j <= 1 {
			s.jitter = j
		}
	}
}

// NewScheduler creates a scheduler starting at the initial delay.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		initial: DefaultInitial,
		max:     DefaultMax,
		factor:  DefaultFactor,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.max < s.initial {
		s.max = s.initial
	}
	s.current = s.initial
	return s
}

// Next returns the delay to wait before the next reconnect attempt and
// advances the schedule: the tracked delay is multiplied by the factor
// and capped at the ceiling.
func (s *Scheduler) Next() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.current

	next := time.Duration(float64(s.current) * s.factor)
	if next > s.max {
		next = s.max
	}
	s.current = next

	return withJitter(d, s.jitter)
}

// Reset returns the schedule to the initial delay. Called on every
// successful connection open; no memory of prior failure streaks
// survives it.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.initial
}

// Current returns the delay the next failure would schedule, without
// advancing.
func (s *Scheduler) Current() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// withJitter spreads d by +/- d*jitter*random.
func withJitter(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return d
	}
	amount := float64(d) * jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(d) + amount)
}
