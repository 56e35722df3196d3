package livefeed

// State is the connection state of a Client. Exactly one state is
// live per client; transitions are driven solely by the client's run
// goroutine and by Stop.
type State int

const (
	// StateDisconnected is the initial state and the terminal state
	// after an explicit Stop.
	StateDisconnected State = iota

	// StateConnecting means a dial is in flight.
	StateConnecting

	// StateConnected means the stream is open and delivering events.
	StateConnected

	// StateReconnectScheduled means the last connection failed and a
	// one-shot timer is armed for the next attempt.
	StateReconnectScheduled
)

// String returns a lowercase label for logs and metrics.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnectScheduled:
		return "reconnect_scheduled"
	default:
		return "unknown"
	}
}
