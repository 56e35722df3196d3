package invalidate

import (
	"context"

	"github.com/agentindex/livefeed/pkg/livefeed/event"
)

// Invalidator evicts a cached result so the next read fetches fresh
// data. Implementations must tolerate redundant calls: the same key
// may be emitted by multiple events.
type Invalidator interface {
	Invalidate(ctx context.Context, key Key) error
}

// InvalidatorFunc adapts a function to the Invalidator interface.
type InvalidatorFunc func(ctx context.Context, key Key) error

// Invalidate implements Invalidator.
func (f InvalidatorFunc) Invalidate(ctx context.Context, key Key) error {
	return f(ctx, key)
}

// scopedRule emits an entity key when the payload field carries a
// non-empty string id.
type scopedRule struct {
	field string
	key   func(id string) Key
}

// rule is one row of the routing table.
type rule struct {
	always []Key
	scoped []scopedRule
}

// rules is the complete routing table. Unconditional keys fire on
// every event of the kind; scoped keys fire only when the id field is
// present.
var rules = map[event.Kind]rule{
	event.KindAgentCreated: {
		always: []Key{AgentList(), PlatformStats()},
	},
	event.KindAgentUpdated: {
		always: []Key{AgentList()},
		scoped: []scopedRule{{"agentId", AgentDetail}},
	},
	event.KindAgentClassified: {
		always: []Key{AgentList()},
		scoped: []scopedRule{{"agentId", AgentDetail}},
	},
	event.KindReputationChanged: {
		always: []Key{AgentList()},
		scoped: []scopedRule{
			{"agentId", AgentDetail},
			{"agentId", AgentReputation},
			{"agentId", AgentFeedback},
		},
	},
	event.KindEvaluationCompleted: {
		always: []Key{EvaluationsCollection()},
		scoped: []scopedRule{
			{"evaluationId", EvaluationDetail},
			{"agentId", AgentEvaluations},
		},
	},
}

// Route returns the cache keys staled by the event. It is pure: the
// caller performs the actual invalidation. Unknown kinds route to
// nothing.
func Route(evt *event.DomainEvent) []Key {
	if evt == nil {
		return nil
	}
	r, ok := rules[evt.Kind]
	if !ok {
		return nil
	}

	keys := append([]Key(nil), r.always...)
	for _, s := range r.scoped {
		if id, ok := evt.StringField(s.field); ok {
			keys = append(keys, s.key(id))
		}
	}
	return keys
}
