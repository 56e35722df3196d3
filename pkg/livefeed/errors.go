package livefeed

import "errors"

// ErrClientStopped is returned when Start or Subscribe is called on a
// client that has been stopped. Misusing a stopped client is the only
// condition this package surfaces to callers as an error; transport
// churn and decode rejects are absorbed internally.
var ErrClientStopped = errors.New("livefeed: client stopped")

// ErrNilObserver is returned by Subscribe when the callback is nil.
var ErrNilObserver = errors.New("livefeed: nil observer")
