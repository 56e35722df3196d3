// Package transport provides the long-lived streaming connection the
// feed client listens on. The wire contract is minimal: named push
// events with UTF-8 text bodies over a single long-lived HTTP
// connection. SSEDialer implements it with Server-Sent Events.
package transport

import (
	"context"
	"fmt"
)

// DefaultEndpoint is the server path carrying the push stream.
const DefaultEndpoint = "/api/events"

// Message is one named event received from the stream.
type Message struct {
	// Name is the event name; defaults to "message" when the server
	// sends none.
	Name string

	// Data is the raw event body.
	Data string

	// ID is the server-assigned event id, when present.
	ID string
}

// Conn is a single open streaming connection. Recv blocks until the
// next message, the stream ends, or the context that opened the
// connection is cancelled. Conns are not safe for concurrent Recv.
type Conn interface {
	Recv(ctx context.Context) (Message, error)
	Close() error
}

// Dialer opens streaming connections. The client holds exactly one
// open Conn at a time and re-dials through the same Dialer after a
// failure, so implementations may carry resume state across dials.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// OpError is a transport-level failure: a connection that could not be
// opened or that dropped mid-stream. It is always recoverable; the
// client answers it with a scheduled reconnect, never a crash.
type OpError struct {
	Op       string // "dial" or "recv"
	Endpoint string
	Err      error
}

// Error implements error.
func (e *OpError) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Endpoint, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error { return e.Err }
