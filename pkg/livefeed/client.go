package livefeed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/agentindex/livefeed/pkg/livefeed/backoff"
	"github.com/agentindex/livefeed/pkg/livefeed/event"
	"github.com/agentindex/livefeed/pkg/livefeed/invalidate"
	"github.com/agentindex/livefeed/pkg/livefeed/journal"
	"github.com/agentindex/livefeed/pkg/livefeed/observability"
	"github.com/agentindex/livefeed/pkg/livefeed/transport"
)

// Snapshot is the observable surface exposed to consumers.
type Snapshot struct {
	// Connected reports whether the stream is currently open.
	Connected bool

	// State is the full connection state.
	State State

	// LastEvent is the most recently accepted event, or nil.
	LastEvent *event.DomainEvent

	// EventCount is the number of accepted events since the last
	// ClearEvents, regardless of buffer truncation.
	EventCount uint64

	// Recent holds the accepted events newest first, bounded by the
	// configured history size.
	Recent []*event.DomainEvent
}

// Client subscribes to the platform's push stream and keeps
// downstream caches consistent with it. It owns the only connection
// handle and the only pending-reconnect timer; one run goroutine
// drives dialing, listening, and reconnecting, so events are
// processed strictly in arrival order.
//
// Construct with New, then Start. Stop tears everything down,
// including a pending reconnect: after Stop returns no connection
// exists and none will be opened.
type Client struct {
	endpoint    string
	enabled     bool
	historySize int
	maxRetries  int

	dialer  transport.Dialer
	codec   *event.Codec
	history *event.History
	inv     invalidate.Invalidator
	journal journal.Store
	sched   *backoff.Scheduler
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	observers *observerSet

	mu      sync.Mutex
	state   State
	delay   time.Duration // armed reconnect delay, valid in StateReconnectScheduled
	cancel  context.CancelFunc
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// New creates a stopped client. The dialer opens the underlying
// stream; the invalidator owns the caches this client keeps fresh.
// A nil invalidator falls back to an in-memory recorder.
func New(dialer transport.Dialer, inv invalidate.Invalidator, opts ...Option) *Client {
	c := &Client{
		endpoint:  transport.DefaultEndpoint,
		enabled:   true,
		dialer:    dialer,
		codec:     event.NewCodec(),
		inv:       inv,
		sched:     backoff.NewScheduler(),
		metrics:   observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},
		observers: newObserverSet(),
		state:     StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.inv == nil {
		c.inv = invalidate.NewMemoryInvalidator()
	}
	c.history = event.NewHistory(c.historySize)
	return c
}

// Start opens the stream and begins dispatching events. It returns
// immediately; connection progress is visible through State and
// observers. Starting a disabled client is a no-op; starting a
// stopped client returns ErrClientStopped; starting twice is a no-op.
func (c *Client) Start() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrClientStopped
	}
	if !c.enabled || c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(ctx)
	return nil
}

// Stop cancels any pending reconnect, closes any open connection, and
// transitions to Disconnected. It blocks until the run goroutine has
// exited, so when Stop returns no connection exists and none will be
// opened, even if a reconnect timer was about to fire. Stop is
// idempotent and callable from any state.
func (c *Client) Stop() {
	c.mu.Lock()
	alreadyStopped := c.stopped
	c.stopped = true
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()

	if !alreadyStopped {
		c.transition(StateDisconnected, 0)
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the stream is currently open.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// PendingReconnect returns the armed reconnect delay, valid only when
// the state is ReconnectScheduled.
func (c *Client) PendingReconnect() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delay, c.state == StateReconnectScheduled
}

// Snapshot returns the observable surface: connection flag, last
// event, counters, and the recent buffer.
func (c *Client) Snapshot() Snapshot {
	state := c.State()
	hs := c.history.Snapshot()
	return Snapshot{
		Connected:  state == StateConnected,
		State:      state,
		LastEvent:  hs.Last,
		EventCount: hs.Total,
		Recent:     hs.Recent,
	}
}

// ClearEvents empties the recent buffer and resets the counters. It
// never affects connection state and may be called at any time.
func (c *Client) ClearEvents() {
	c.history.Clear()
	c.observers.notify(c.Snapshot())
}

// Subscribe registers an observer that receives a fresh snapshot
// after every accepted event and every connection state change.
// Callbacks run synchronously on the dispatch path and must be quick.
// The returned cancel function removes the observer; subscribing to a
// stopped client is a contract violation and returns ErrClientStopped.
func (c *Client) Subscribe(fn func(Snapshot)) (func(), error) {
	if fn == nil {
		return nil, ErrNilObserver
	}
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return nil, ErrClientStopped
	}
	return c.observers.add(fn), nil
}

// transition moves to a new state, logging and notifying observers.
// Same-state transitions are silent no-ops.
func (c *Client) transition(to State, delay time.Duration) {
	c.mu.Lock()
	from := c.state
	if from == to {
		c.mu.Unlock()
		return
	}
	c.state = to
	c.delay = delay
	c.mu.Unlock()

	observability.LogStateChange(c.logger, from.String(), to.String())
	c.observers.notify(c.Snapshot())
}

// run is the single coordinating goroutine. It owns the connection
// handle and the reconnect timer for the client's whole lifetime.
func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()
	defer c.transition(StateDisconnected, 0)

	failures := 0
	for {
		c.transition(StateConnecting, 0)

		conn, err := c.dialer.Dial(ctx, c.endpoint)
		if err == nil {
			c.markConnected()
			failures = 0
			err = c.listen(ctx, conn)
			conn.Close()
		}

		if ctx.Err() != nil {
			return
		}

		failures++
		if c.maxRetries > 0 && failures > c.maxRetries {
			if c.logger != nil {
				c.logger.Error("giving up after max retries",
					slog.Int("attempts", failures-1),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		delay := c.sched.Next()
		c.metrics.RecordReconnect(ctx, delay)
		observability.LogReconnectScheduled(c.logger, failures, delay, err)
		c.transition(StateReconnectScheduled, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			// Stop wins the race against the timer: the goroutine
			// exits before any new dial, and Stop's wg.Wait ensures
			// callers observe that.
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// markConnected transitions to Connected and restarts the backoff
// schedule from the smallest delay.
func (c *Client) markConnected() {
	c.transition(StateConnected, 0)
	c.sched.Reset()
}

// listen consumes the open stream until it fails or the context is
// cancelled.
func (c *Client) listen(ctx context.Context, conn transport.Conn) error {
	for {
		msg, err := conn.Recv(ctx)
		if err != nil {
			return err
		}
		if msg.Name == event.LivenessEvent {
			// Liveness marker: confirms the stream like a transport
			// open, for transports where open and first byte differ.
			c.markConnected()
			continue
		}
		c.dispatch(ctx, msg)
	}
}

// dispatch validates one wire message and, if accepted, applies it:
// history append, journal write, cache invalidation, observer notify.
// Rejections drop the message and nothing else.
func (c *Client) dispatch(ctx context.Context, msg transport.Message) {
	evt, err := c.codec.Decode(msg.Name, msg.Data)
	if err != nil {
		reason := "unknown"
		var de *event.DecodeError
		if errors.As(err, &de) {
			reason = de.Reason()
		}
		c.metrics.RecordEventRejected(ctx, reason)
		observability.LogEventRejected(c.logger, msg.Name, err)
		return
	}

	start := time.Now()
	spanCtx, span := c.spans.StartDispatchSpan(ctx, evt.Kind.String())

	c.history.Append(evt)

	if c.journal != nil {
		if err := c.journal.Append(spanCtx, journal.FromEvent(evt)); err != nil {
			observability.LogJournalError(c.logger, evt.ID, err)
		}
	}

	keys := invalidate.Route(evt)
	var dispatchErr error
	for _, key := range keys {
		keyCtx, keySpan := c.spans.StartInvalidateSpan(spanCtx, key.String())
		invErr := c.inv.Invalidate(keyCtx, key)
		c.spans.EndSpanWithError(keySpan, invErr)
		c.metrics.RecordInvalidation(keyCtx, key.String(), invErr)
		if invErr != nil {
			dispatchErr = invErr
			observability.LogInvalidationError(c.logger, key.String(), invErr)
		}
	}

	duration := time.Since(start)
	c.metrics.RecordEventAccepted(ctx, evt.Kind.String(), duration)
	observability.LogEventAccepted(c.logger, evt.Kind.String(), len(keys),
		float64(duration.Microseconds())/1000.0)
	c.spans.EndSpanWithError(span, dispatchErr)

	c.observers.notify(c.Snapshot())
}
