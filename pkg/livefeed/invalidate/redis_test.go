package invalidate_test

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentindex/livefeed/pkg/livefeed/invalidate"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	m, err := miniredis.Run()
	require.NoError(t, err)
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		rc.Close()
		m.Close()
	})
	return m, rc
}

func TestRedisInvalidator_DeletesExactKey(t *testing.T) {
	m, rc := newTestRedis(t)
	inv := invalidate.NewRedisInvalidator(rc)
	ctx := testContext(t)

	require.NoError(t, m.Set("agent-detail:a1", `{"name":"alpha"}`))
	require.NoError(t, m.Set("agent-detail:a2", `{"name":"beta"}`))

	require.NoError(t, inv.Invalidate(ctx, invalidate.AgentDetail("a1")))

	assert.False(t, m.Exists("agent-detail:a1"))
	assert.True(t, m.Exists("agent-detail:a2"))
}

func TestRedisInvalidator_ClearsNamespace(t *testing.T) {
	m, rc := newTestRedis(t)
	inv := invalidate.NewRedisInvalidator(rc)
	ctx := testContext(t)

	require.NoError(t, m.Set("agent-list", "page-index"))
	require.NoError(t, m.Set("agent-list:page1", "[...]"))
	require.NoError(t, m.Set("agent-list:page2", "[...]"))
	require.NoError(t, m.Set("platform-stats", "{}"))

	require.NoError(t, inv.Invalidate(ctx, invalidate.AgentList()))

	assert.False(t, m.Exists("agent-list"))
	assert.False(t, m.Exists("agent-list:page1"))
	assert.False(t, m.Exists("agent-list:page2"))
	assert.True(t, m.Exists("platform-stats"))
}

func TestRedisInvalidator_KeyPrefix(t *testing.T) {
	m, rc := newTestRedis(t)
	inv := invalidate.NewRedisInvalidator(rc, invalidate.WithKeyPrefix("cache:"))
	ctx := testContext(t)

	require.NoError(t, m.Set("cache:agent-list", "x"))
	require.NoError(t, m.Set("cache:agent-list:page1", "x"))
	require.NoError(t, m.Set("agent-list", "unprefixed"))

	require.NoError(t, inv.Invalidate(ctx, invalidate.AgentList()))

	assert.False(t, m.Exists("cache:agent-list"))
	assert.False(t, m.Exists("cache:agent-list:page1"))
	assert.True(t, m.Exists("agent-list"))
}

func TestRedisInvalidator_IdempotentOnMissingKey(t *testing.T) {
	_, rc := newTestRedis(t)
	inv := invalidate.NewRedisInvalidator(rc)
	ctx := testContext(t)

	// Absent keys are a no-op, never an error.
	assert.NoError(t, inv.Invalidate(ctx, invalidate.AgentReputation("ghost")))
	assert.NoError(t, inv.Invalidate(ctx, invalidate.AgentReputation("ghost")))
}

func TestRedisInvalidator_ClosedConnectionSurfacesError(t *testing.T) {
	m, rc := newTestRedis(t)
	inv := invalidate.NewRedisInvalidator(rc)

	m.Close()

	err := inv.Invalidate(testContext(t), invalidate.AgentList())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "agent-list")
}

// testContext returns a context canceled when the test ends, matching
// the semantics of (*testing.T).Context from newer Go releases.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
