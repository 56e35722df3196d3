package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownKind indicates the wire event name is not in the known set.
var ErrUnknownKind = errors.New("unknown event kind")

// ErrMalformedPayload indicates the event body is not a JSON object.
var ErrMalformedPayload = errors.New("malformed event payload")

// DecodeError reports why a wire message was rejected. It always wraps
// ErrUnknownKind or ErrMalformedPayload so callers can branch with
// errors.Is without parsing messages.
type DecodeError struct {
	// Name is the wire event name of the rejected message.
	Name string

	// Err is the rejection reason sentinel.
	Err error

	// Cause is the underlying parse error, if any.
	Cause error
}

// Error implements error.
func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode %q: %v: %v", e.Name, e.Err, e.Cause)
	}
	return fmt.Sprintf("decode %q: %v", e.Name, e.Err)
}

// Unwrap returns the rejection reason sentinel.
func (e *DecodeError) Unwrap() error { return e.Err }

// Reason returns a short label for the rejection, suitable as a metric
// attribute.
func (e *DecodeError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrUnknownKind):
		return "unknown_kind"
	case errors.Is(e.Err, ErrMalformedPayload):
		return "malformed_payload"
	default:
		return "unknown"
	}
}

// Codec turns raw (name, body) wire pairs into domain events. The zero
// value is not usable; use NewCodec.
type Codec struct {
	now func() time.Time
}

// NewCodec creates a codec that stamps events with the wall clock.
func NewCodec() *Codec {
	return &Codec{now: time.Now}
}

// NewCodecAt creates a codec with a custom clock, for tests.
func NewCodecAt(now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{now: now}
}

// Decode validates a raw wire message and returns the typed event.
//
// The name must exactly match one of the five known kinds; the body
// must be a JSON object. Rejections are reported as *DecodeError and
// must never be treated as fatal by the caller: the stream stays open
// and the message is dropped.
func (c *Codec) Decode(name, body string) (*DomainEvent, error) {
	kind, ok := kinds[name]
	if !ok {
		return nil, &DecodeError{Name: name, Err: ErrUnknownKind}
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, &DecodeError{Name: name, Err: ErrMalformedPayload, Cause: err}
	}
	if payload == nil {
		// "null" parses cleanly but is not an object.
		return nil, &DecodeError{Name: name, Err: ErrMalformedPayload}
	}

	return newEvent(kind, payload, c.now), nil
}
