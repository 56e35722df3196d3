// Package invalidate maps domain events to the downstream cache keys
// that must be refreshed, and ships invalidators that perform the
// actual eviction against a cache backend.
//
// The routing table is static: each event kind names the list and
// collection caches it always stales plus the entity-scoped caches it
// stales only when the corresponding id is present in the payload.
package invalidate

// Key is an opaque identifier naming a unit of downstream cached data:
// a list, a collection, or a single entity by id. Entity keys embed
// the id after a colon so backends can treat the bare name as a
// namespace.
type Key string

const (
	keyAgentList             = "agent-list"
	keyPlatformStats         = "platform-stats"
	keyEvaluationsCollection = "evaluations-collection"

	prefixAgentDetail      = "agent-detail:"
	prefixAgentReputation  = "agent-reputation:"
	prefixAgentFeedback    = "agent-feedback:"
	prefixEvaluationDetail = "evaluation-detail:"
	prefixAgentEvaluations = "agent-evaluations:"
)

// AgentList names the cached agent list results.
func AgentList() Key { return keyAgentList }

// PlatformStats names the cached platform-wide statistics.
func PlatformStats() Key { return keyPlatformStats }

// EvaluationsCollection names the cached evaluation collection results.
func EvaluationsCollection() Key { return keyEvaluationsCollection }

// AgentDetail names a single agent's cached detail record.
func AgentDetail(agentID string) Key { return Key(prefixAgentDetail + agentID) }

// AgentReputation names a single agent's cached reputation record.
func AgentReputation(agentID string) Key { return Key(prefixAgentReputation + agentID) }

// AgentFeedback names a single agent's cached feedback entries.
func AgentFeedback(agentID string) Key { return Key(prefixAgentFeedback + agentID) }

// EvaluationDetail names a single evaluation's cached record.
func EvaluationDetail(evaluationID string) Key { return Key(prefixEvaluationDetail + evaluationID) }

// AgentEvaluations names the cached evaluations belonging to an agent.
func AgentEvaluations(agentID string) Key { return Key(prefixAgentEvaluations + agentID) }

// String returns the key text.
func (k Key) String() string { return string(k) }
