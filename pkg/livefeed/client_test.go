package livefeed_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentindex/livefeed/pkg/livefeed"
	"github.com/agentindex/livefeed/pkg/livefeed/backoff"
	"github.com/agentindex/livefeed/pkg/livefeed/event"
	"github.com/agentindex/livefeed/pkg/livefeed/invalidate"
	"github.com/agentindex/livefeed/pkg/livefeed/journal"
	"github.com/agentindex/livefeed/pkg/livefeed/transport"
)

// fakeConn is a scripted stream connection.
type fakeConn struct {
	msgs   chan transport.Message
	errs   chan error
	closed atomic.Bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		msgs: make(chan transport.Message),
		errs: make(chan error, 1),
	}
}

func (c *fakeConn) Recv(ctx context.Context) (transport.Message, error) {
	select {
	case <-ctx.Done():
		return transport.Message{}, ctx.Err()
	case err := <-c.errs:
		return transport.Message{}, err
	case m := <-c.msgs:
		return m, nil
	}
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *fakeConn) send(name, data string) {
	c.msgs <- transport.Message{Name: name, Data: data}
}

func (c *fakeConn) fail(err error) {
	c.errs <- err
}

// fakeDialer fails its first failN dials, then hands out fakeConns.
type fakeDialer struct {
	failN int

	mu    sync.Mutex
	dials int
	conns chan *fakeConn
}

func newFakeDialer(failN int) *fakeDialer {
	return &fakeDialer{failN: failN, conns: make(chan *fakeConn, 16)}
}

func (d *fakeDialer) Dial(ctx context.Context, endpoint string) (transport.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.dials++
	fail := d.dials <= d.failN
	d.mu.Unlock()

	if fail {
		return nil, &transport.OpError{Op: "dial", Endpoint: endpoint, Err: errors.New("connection refused")}
	}
	c := newFakeConn()
	d.conns <- c
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// waitConn returns the next successfully dialed connection.
func (d *fakeDialer) waitConn(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-d.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection dialed")
		return nil
	}
}

func waitForCount(t *testing.T, c *livefeed.Client, n uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.Snapshot().EventCount == n
	}, 2*time.Second, time.Millisecond)
}

func waitForState(t *testing.T, c *livefeed.Client, s livefeed.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.State() == s
	}, 2*time.Second, time.Millisecond)
}

func TestClient_StartConnects(t *testing.T) {
	dialer := newFakeDialer(0)
	client := livefeed.New(dialer, nil)
	defer client.Stop()

	require.NoError(t, client.Start())
	dialer.waitConn(t)
	waitForState(t, client, livefeed.StateConnected)
	assert.True(t, client.IsConnected())
}

func TestClient_DispatchInvalidatesAndRecords(t *testing.T) {
	dialer := newFakeDialer(0)
	inv := invalidate.NewMemoryInvalidator()
	client := livefeed.New(dialer, inv)
	defer client.Stop()

	require.NoError(t, client.Start())
	conn := dialer.waitConn(t)

	conn.send("reputation.changed", `{"agentId":"X","previousScore":10,"newScore":12,"feedbackId":"f1"}`)
	waitForCount(t, client, 1)

	assert.Equal(t, []invalidate.Key{
		invalidate.AgentList(),
		invalidate.AgentDetail("X"),
		invalidate.AgentReputation("X"),
		invalidate.AgentFeedback("X"),
	}, inv.Keys())

	snap := client.Snapshot()
	require.NotNil(t, snap.LastEvent)
	assert.Equal(t, event.KindReputationChanged, snap.LastEvent.Kind)
	assert.Len(t, snap.Recent, 1)
}

func TestClient_RejectsDoNotChangeAnything(t *testing.T) {
	dialer := newFakeDialer(0)
	inv := invalidate.NewMemoryInvalidator()
	client := livefeed.New(dialer, inv)
	defer client.Stop()

	require.NoError(t, client.Start())
	conn := dialer.waitConn(t)

	conn.send("agent.created", `{"agentId":"a1"}`)
	waitForCount(t, client, 1)

	// Unknown kind, malformed payload: dropped without side effects.
	conn.send("agent.deleted", `{"agentId":"a1"}`)
	conn.send("agent.updated", `{broken`)
	// A subsequent valid event proves both were processed and dropped.
	conn.send("agent.updated", `{"agentId":"a2"}`)
	waitForCount(t, client, 2)

	snap := client.Snapshot()
	assert.Equal(t, uint64(2), snap.EventCount)
	assert.Len(t, snap.Recent, 2)
	assert.True(t, snap.Connected)
	assert.NotContains(t, inv.Keys(), invalidate.AgentDetail("a1"))
}

func TestClient_HistoryOrderAndBound(t *testing.T) {
	dialer := newFakeDialer(0)
	client := livefeed.New(dialer, nil)
	defer client.Stop()

	require.NoError(t, client.Start())
	conn := dialer.waitConn(t)

	for i := 0; i < 25; i++ {
		conn.send("agent.updated", fmt.Sprintf(`{"agentId":"a%d"}`, i))
	}
	waitForCount(t, client, 25)

	snap := client.Snapshot()
	assert.Equal(t, uint64(25), snap.EventCount)
	require.Len(t, snap.Recent, 20)
	assert.Equal(t, "a24", snap.Recent[0].Payload["agentId"])
	assert.Equal(t, "a5", snap.Recent[19].Payload["agentId"])
}

func TestClient_ClearEventsIndependentOfConnection(t *testing.T) {
	dialer := newFakeDialer(0)
	client := livefeed.New(dialer, nil)
	defer client.Stop()

	require.NoError(t, client.Start())
	conn := dialer.waitConn(t)

	conn.send("agent.created", `{}`)
	waitForCount(t, client, 1)

	client.ClearEvents()

	snap := client.Snapshot()
	assert.Zero(t, snap.EventCount)
	assert.Empty(t, snap.Recent)
	assert.Nil(t, snap.LastEvent)
	assert.True(t, snap.Connected, "clearing events must not touch the connection")
}

func TestClient_LivenessMarkerConfirmsWithoutCounting(t *testing.T) {
	dialer := newFakeDialer(0)
	client := livefeed.New(dialer, nil)
	defer client.Stop()

	require.NoError(t, client.Start())
	conn := dialer.waitConn(t)

	conn.send(event.LivenessEvent, `{}`)
	conn.send("agent.created", `{}`)
	waitForCount(t, client, 1)

	assert.True(t, client.IsConnected())
	assert.Equal(t, uint64(1), client.Snapshot().EventCount)
}

func TestClient_ReconnectsAfterStreamFailure(t *testing.T) {
	dialer := newFakeDialer(0)
	client := livefeed.New(dialer, nil,
		livefeed.WithBackoff(time.Millisecond, 4*time.Millisecond),
	)
	defer client.Stop()

	require.NoError(t, client.Start())
	conn := dialer.waitConn(t)
	waitForState(t, client, livefeed.StateConnected)

	conn.fail(io.EOF)

	// A fresh connection appears and the client reports connected.
	conn2 := dialer.waitConn(t)
	waitForState(t, client, livefeed.StateConnected)
	assert.True(t, conn.closed.Load(), "failed connection must be closed")
	assert.GreaterOrEqual(t, dialer.dialCount(), 2)

	// The new stream still dispatches.
	conn2.send("agent.created", `{}`)
	waitForCount(t, client, 1)
}

func TestClient_BackoffGrowsAndResetsOnSuccess(t *testing.T) {
	dialer := newFakeDialer(3)
	var mu sync.Mutex
	var delays []time.Duration

	client := livefeed.New(dialer, nil,
		livefeed.WithScheduler(backoff.NewScheduler(
			backoff.WithInitial(2*time.Millisecond),
			backoff.WithMax(16*time.Millisecond),
		)),
	)
	defer client.Stop()

	cancel, err := client.Subscribe(func(snap livefeed.Snapshot) {
		if snap.State == livefeed.StateReconnectScheduled {
			if d, ok := client.PendingReconnect(); ok {
				mu.Lock()
				delays = append(delays, d)
				mu.Unlock()
			}
		}
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, client.Start())

	// Three failed dials, then a connection that we immediately kill.
	conn := dialer.waitConn(t)
	waitForState(t, client, livefeed.StateConnected)
	conn.fail(io.EOF)
	dialer.waitConn(t)
	waitForState(t, client, livefeed.StateConnected)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delays, 4)
	assert.Equal(t, 2*time.Millisecond, delays[0])
	assert.Equal(t, 4*time.Millisecond, delays[1])
	assert.Equal(t, 8*time.Millisecond, delays[2])
	// The successful open reset the schedule before the next failure.
	assert.Equal(t, 2*time.Millisecond, delays[3])
}

func TestClient_StopCancelsScheduledReconnect(t *testing.T) {
	dialer := newFakeDialer(1000)
	client := livefeed.New(dialer, nil,
		livefeed.WithBackoff(time.Hour, time.Hour),
	)

	require.NoError(t, client.Start())
	waitForState(t, client, livefeed.StateReconnectScheduled)
	before := dialer.dialCount()

	client.Stop()

	assert.Equal(t, livefeed.StateDisconnected, client.State())
	// No dial happens after Stop returns, even past the delay.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, dialer.dialCount())
}

func TestClient_StopClosesOpenConnection(t *testing.T) {
	dialer := newFakeDialer(0)
	client := livefeed.New(dialer, nil)

	require.NoError(t, client.Start())
	conn := dialer.waitConn(t)
	waitForState(t, client, livefeed.StateConnected)

	client.Stop()

	assert.True(t, conn.closed.Load())
	assert.Equal(t, livefeed.StateDisconnected, client.State())
	assert.False(t, client.IsConnected())
}

func TestClient_StopIdempotentAndStartAfterStop(t *testing.T) {
	dialer := newFakeDialer(0)
	client := livefeed.New(dialer, nil)

	require.NoError(t, client.Start())
	dialer.waitConn(t)

	client.Stop()
	client.Stop()

	assert.ErrorIs(t, client.Start(), livefeed.ErrClientStopped)

	_, err := client.Subscribe(func(livefeed.Snapshot) {})
	assert.ErrorIs(t, err, livefeed.ErrClientStopped)
}

func TestClient_StopWithoutStart(t *testing.T) {
	client := livefeed.New(newFakeDialer(0), nil)
	client.Stop()
	assert.Equal(t, livefeed.StateDisconnected, client.State())
}

func TestClient_DoubleStartIsNoop(t *testing.T) {
	dialer := newFakeDialer(0)
	client := livefeed.New(dialer, nil)
	defer client.Stop()

	require.NoError(t, client.Start())
	require.NoError(t, client.Start())
	dialer.waitConn(t)
	waitForState(t, client, livefeed.StateConnected)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, dialer.dialCount())
}

func TestClient_DisabledNeverDials(t *testing.T) {
	dialer := newFakeDialer(0)
	client := livefeed.New(dialer, nil, livefeed.WithEnabled(false))
	defer client.Stop()

	require.NoError(t, client.Start())
	time.Sleep(10 * time.Millisecond)

	assert.Zero(t, dialer.dialCount())
	assert.Equal(t, livefeed.StateDisconnected, client.State())
}

func TestClient_MaxRetriesGivesUp(t *testing.T) {
	dialer := newFakeDialer(1000)
	client := livefeed.New(dialer, nil,
		livefeed.WithBackoff(time.Millisecond, time.Millisecond),
		livefeed.WithMaxRetries(3),
	)
	defer client.Stop()

	require.NoError(t, client.Start())
	// One initial attempt plus three retries, then the loop exits.
	require.Eventually(t, func() bool {
		return dialer.dialCount() == 4 && client.State() == livefeed.StateDisconnected
	}, 2*time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 4, dialer.dialCount())
}

func TestClient_SubscribeReceivesSnapshots(t *testing.T) {
	dialer := newFakeDialer(0)
	client := livefeed.New(dialer, nil)
	defer client.Stop()

	var mu sync.Mutex
	var counts []uint64
	cancel, err := client.Subscribe(func(snap livefeed.Snapshot) {
		mu.Lock()
		counts = append(counts, snap.EventCount)
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, client.Start())
	conn := dialer.waitConn(t)

	conn.send("agent.created", `{}`)
	conn.send("agent.updated", `{"agentId":"a1"}`)

	seen := func(n uint64) bool {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range counts {
			if c == n {
				return true
			}
		}
		return false
	}
	require.Eventually(t, func() bool { return seen(1) && seen(2) }, 2*time.Second, time.Millisecond)

	cancel()
	cancel() // idempotent

	mu.Lock()
	got := len(counts)
	mu.Unlock()

	conn.send("agent.created", `{}`)
	waitForCount(t, client, 3)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, counts, got, "no notifications after cancel")
}

func TestClient_SubscribeNilObserver(t *testing.T) {
	client := livefeed.New(newFakeDialer(0), nil)
	_, err := client.Subscribe(nil)
	assert.ErrorIs(t, err, livefeed.ErrNilObserver)
}

func TestClient_JournalRecordsAcceptedEvents(t *testing.T) {
	dialer := newFakeDialer(0)
	store := journal.NewMemoryStore()
	client := livefeed.New(dialer, nil, livefeed.WithJournal(store))
	defer client.Stop()

	require.NoError(t, client.Start())
	conn := dialer.waitConn(t)

	conn.send("evaluation.completed", `{"evaluationId":"e1","agentId":"a1"}`)
	conn.send("agent.deleted", `{}`) // rejected, never journaled
	conn.send("agent.created", `{}`)
	waitForCount(t, client, 2)

	entries, err := store.Recent(testContext(t), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "agent.created", entries[0].Kind)
	assert.Equal(t, "evaluation.completed", entries[1].Kind)
}

func TestClient_FailingInvalidatorDoesNotStopDispatch(t *testing.T) {
	dialer := newFakeDialer(0)
	inv := invalidate.InvalidatorFunc(func(context.Context, invalidate.Key) error {
		return errors.New("cache backend down")
	})
	client := livefeed.New(dialer, inv)
	defer client.Stop()

	require.NoError(t, client.Start())
	conn := dialer.waitConn(t)

	conn.send("agent.created", `{}`)
	conn.send("agent.created", `{}`)
	waitForCount(t, client, 2)
	assert.True(t, client.IsConnected())
}

// TestClient_EndToEndSSE runs the full path over a real SSE server:
// dial, liveness marker, one evaluation.completed event, invalidation.
func TestClient_EndToEndSSE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		fmt.Fprint(w, "event: connected\ndata: {}\n\n")
		fl.Flush()
		fmt.Fprint(w, "event: evaluation.completed\ndata: {\"evaluationId\":\"e1\",\"agentId\":\"a1\"}\n\n")
		fl.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	inv := invalidate.NewMemoryInvalidator()
	client := livefeed.New(&transport.SSEDialer{}, inv,
		livefeed.WithEndpoint(srv.URL),
	)
	defer client.Stop()

	require.NoError(t, client.Start())
	waitForCount(t, client, 1)

	snap := client.Snapshot()
	assert.True(t, snap.Connected)
	require.NotNil(t, snap.LastEvent)
	assert.Equal(t, event.KindEvaluationCompleted, snap.LastEvent.Kind)

	assert.Equal(t, []invalidate.Key{
		invalidate.EvaluationsCollection(),
		invalidate.EvaluationDetail("e1"),
		invalidate.AgentEvaluations("a1"),
	}, inv.Keys())
}

func TestClient_HistorySizeOption(t *testing.T) {
	dialer := newFakeDialer(0)
	client := livefeed.New(dialer, nil, livefeed.WithHistorySize(2))
	defer client.Stop()

	require.NoError(t, client.Start())
	conn := dialer.waitConn(t)

	for i := 0; i < 3; i++ {
		conn.send("agent.created", `{}`)
	}
	waitForCount(t, client, 3)
	assert.Len(t, client.Snapshot().Recent, 2)
}

// testContext returns a context canceled when the test ends, matching
// the semantics of (*testing.T).Context from newer Go releases.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
