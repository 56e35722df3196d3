// Package event defines the domain events pushed by the agent index
// platform and the codec that turns raw wire messages into them.
//
// The event vocabulary is a closed set: the platform announces agent
// lifecycle changes (created, updated, classified), reputation score
// changes, and completed evaluations. Anything else on the wire is
// rejected by the codec and dropped by the caller.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies a domain event type. The values are the wire names
// used by the server's push stream.
type Kind string

const (
	// KindAgentCreated signals a new agent was registered.
	KindAgentCreated Kind = "agent.created"

	// KindAgentUpdated signals an existing agent's record changed.
	KindAgentUpdated Kind = "agent.updated"

	// KindAgentClassified signals an agent received a new classification.
	KindAgentClassified Kind = "agent.classified"

	// KindReputationChanged signals an agent's reputation score moved.
	KindReputationChanged Kind = "reputation.changed"

	// KindEvaluationCompleted signals an evaluation run finished.
	KindEvaluationCompleted Kind = "evaluation.completed"
)

// LivenessEvent is the connection-liveness marker the server emits on
// stream open. It carries no payload semantics and never becomes a
// DomainEvent.
const LivenessEvent = "connected"

// kinds maps wire names to known kinds. Lookup is case-sensitive.
var kinds = map[string]Kind{
	string(KindAgentCreated):        KindAgentCreated,
	string(KindAgentUpdated):        KindAgentUpdated,
	string(KindAgentClassified):     KindAgentClassified,
	string(KindReputationChanged):   KindReputationChanged,
	string(KindEvaluationCompleted): KindEvaluationCompleted,
}

// Kinds returns all known domain event kinds.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k)
	}
	return out
}

// KindOf resolves a wire name to a known kind.
func KindOf(name string) (Kind, bool) {
	k, ok := kinds[name]
	return k, ok
}

// String returns the wire name of the kind.
func (k Kind) String() string { return string(k) }

// DomainEvent is a validated, typed notification of a state change in
// the agent index. Events are immutable once constructed; they are
// created only by Decode and destroyed only by eviction from History.
type DomainEvent struct {
	// ID is a unique identifier assigned at decode time.
	ID string

	// Kind is the event type.
	Kind Kind

	// Timestamp is the decode-time wall clock, not a payload value.
	Timestamp time.Time

	// Payload is the parsed JSON body. Fields are read defensively;
	// a missing field means no targeted invalidation for it.
	Payload map[string]any
}

// StringField returns the named payload field if it is a non-empty
// string. Routing rules use this to decide whether an entity-scoped
// invalidation fires.
func (e *DomainEvent) StringField(name string) (string, bool) {
	if e == nil || e.Payload == nil {
		return "", false
	}
	v, ok := e.Payload[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// newEvent constructs an event with a fresh ID and the current time.
func newEvent(kind Kind, payload map[string]any, now func() time.Time) *DomainEvent {
	return &DomainEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: now(),
		Payload:   payload,
	}
}
