package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/janpai/server/internal/engine"
	"github.com/janpai/server/internal/event"
)

type stubConn struct {
	mu       sync.Mutex
	payloads []any
	closed   string
	lastSeen time.Time
}

func (c *stubConn) Send(payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
}

func (c *stubConn) Close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = reason
}

func (c *stubConn) LastSeen() time.Time { return c.lastSeen }
func (c *stubConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed != ""
}

func (c *stubConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func TestDeliverRoutesTargets(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	a, b := &stubConn{}, &stubConn{}
	r.Bind("g", 0, a)
	r.Bind("g", 1, b)

	r.Deliver("g", []event.ServiceEvent{
		{Target: event.BroadcastTarget{}, Kind: engine.EvDiscard, Payload: "discard"},
		{Target: event.SeatTarget{Seat: 1}, Kind: engine.EvDraw, Payload: "draw"},
		{Target: event.SeatTarget{Seat: 3}, Kind: engine.EvDraw, Payload: "orphan"},
	})

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 2, b.count())
}

func TestUnbindOnlyOwner(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	old, next := &stubConn{}, &stubConn{}
	r.Bind("g", 0, old)
	r.Bind("g", 0, next) // reconnect replaced the binding

	// The old connection's deferred unbind must not evict the new one.
	r.Unbind("g", 0, old)
	conn, ok := r.Seat("g", 0)
	assert.True(t, ok)
	assert.Same(t, next, conn.(*stubConn))

	r.Unbind("g", 0, next)
	_, ok = r.Seat("g", 0)
	assert.False(t, ok)
}

func TestGameClosedHook(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	var closedID string
	r.OnGameClosed = func(gameID string, cause error) { closedID = gameID }
	r.Bind("g", 0, &stubConn{})

	r.GameClosed("g", nil)
	assert.Equal(t, "g", closedID)
	_, ok := r.Seat("g", 0)
	assert.False(t, ok)
}

func TestMonitorClosesStale(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	fresh := &stubConn{lastSeen: time.Now()}
	stale := &stubConn{lastSeen: time.Now().Add(-2 * time.Minute)}
	r.Bind("g", 0, fresh)
	r.Bind("g", 1, stale)

	r.Monitor(time.Minute)
	assert.Equal(t, "", fresh.closed)
	assert.Equal(t, "heartbeat_timeout", stale.closed)
}
