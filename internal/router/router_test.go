package router

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/janpai/server/internal/auth"
	"github.com/janpai/server/internal/config"
	"github.com/janpai/server/internal/engine"
	"github.com/janpai/server/internal/game"
	"github.com/janpai/server/internal/proto"
	"github.com/janpai/server/internal/room"
	"github.com/janpai/server/internal/session"
	"github.com/janpai/server/internal/transport"
)

type fakeConn struct {
	mu       sync.Mutex
	payloads []any
	closed   string
}

func (c *fakeConn) Send(payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
}

func (c *fakeConn) Close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = reason
}

func (c *fakeConn) LastSeen() time.Time { return time.Now() }

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed != ""
}

func (c *fakeConn) lastError() *proto.SessionError {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.payloads) - 1; i >= 0; i-- {
		if se, ok := c.payloads[i].(*proto.SessionError); ok {
			return se
		}
	}
	return nil
}

func (c *fakeConn) gameStarting() *proto.GameStarting {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.payloads {
		if gs, ok := p.(*proto.GameStarting); ok {
			return gs
		}
	}
	return nil
}

func (c *fakeConn) has(match func(any) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.payloads {
		if match(p) {
			return true
		}
	}
	return false
}

type routerEnv struct {
	rt       *Router
	signer   *auth.Signer
	rooms    *room.Manager
	games    *game.Service
	sessions *session.Store
	registry *transport.Registry
}

func newEnv(t *testing.T) *routerEnv {
	t.Helper()
	log := zaptest.NewLogger(t)
	signer := auth.NewSigner([]byte("secret"))
	sessions := session.NewStore()
	registry := transport.NewRegistry(log)
	cfg := config.GameConfig{
		BaseTurnSeconds:     30,
		InitialBankSeconds:  30,
		MaxBankSeconds:      60,
		MeldDecisionSeconds: 30,
		RoundConfirmSeconds: 30,
		MaxCapacity:         8,
	}
	games := game.NewService(cfg, engine.DefaultSettings(), registry, game.NewTimerManager(cfg, log), nil, log)
	rooms := room.NewManager(signer, games, sessions, time.Hour, log)
	rt := New(signer, rooms, games, sessions, registry, log)
	rooms.Binder = rt
	t.Cleanup(rooms.Close)
	t.Cleanup(games.Shutdown)
	return &routerEnv{rt: rt, signer: signer, rooms: rooms, games: games, sessions: sessions, registry: registry}
}

func frame(t *testing.T, msg proto.ClientMessage) []byte {
	t.Helper()
	out, err := proto.Encode(&msg)
	require.NoError(t, err)
	return out
}

func (e *routerEnv) joinTicket(t *testing.T, userID, name, roomID string) string {
	t.Helper()
	tk, err := e.signer.Issue(userID, name, roomID, time.Hour)
	require.NoError(t, err)
	return tk
}

func TestPingPong(t *testing.T) {
	e := newEnv(t)
	conn := &fakeConn{}
	c := e.rt.NewClient(conn, "room-1")

	c.Handle(frame(t, proto.ClientMessage{T: proto.MsgPing}))
	assert.True(t, conn.has(func(p any) bool {
		_, ok := p.(*proto.Pong)
		return ok
	}))
}

func TestMalformedFrame(t *testing.T) {
	e := newEnv(t)
	conn := &fakeConn{}
	c := e.rt.NewClient(conn, "room-1")

	c.Handle([]byte{0xc1})
	se := conn.lastError()
	require.NotNil(t, se)
	assert.Equal(t, CodeInvalidMessage, se.Code)
}

func TestJoinTicketRejections(t *testing.T) {
	e := newEnv(t)
	conn := &fakeConn{}
	c := e.rt.NewClient(conn, "room-1")

	// Ticket signed for a different room.
	c.Handle(frame(t, proto.ClientMessage{
		T:          proto.MsgJoinRoom,
		RoomID:     "room-1",
		GameTicket: e.joinTicket(t, "u1", "alice", "room-2"),
	}))
	se := conn.lastError()
	require.NotNil(t, se)
	assert.Equal(t, CodeInvalidTicket, se.Code)

	// room_id disagreeing with the connection path.
	c.Handle(frame(t, proto.ClientMessage{
		T:          proto.MsgJoinRoom,
		RoomID:     "room-2",
		GameTicket: e.joinTicket(t, "u1", "alice", "room-2"),
	}))
	assert.Equal(t, CodeInvalidTicket, conn.lastError().Code)
}

func (e *routerEnv) join(t *testing.T, conn *fakeConn, userID, name, roomID string) *Client {
	t.Helper()
	c := e.rt.NewClient(conn, roomID)
	c.Handle(frame(t, proto.ClientMessage{
		T:          proto.MsgJoinRoom,
		RoomID:     roomID,
		GameTicket: e.joinTicket(t, userID, name, roomID),
	}))
	require.True(t, conn.has(func(p any) bool {
		_, ok := p.(*proto.RoomJoined)
		return ok
	}), "join failed for %s", name)
	return c
}

func TestJoinReadyChat(t *testing.T) {
	e := newEnv(t)
	connA, connB := &fakeConn{}, &fakeConn{}
	e.join(t, connA, "u1", "alice", "room-1")
	cb := e.join(t, connB, "u2", "bob", "room-1")

	cb.Handle(frame(t, proto.ClientMessage{T: proto.MsgSetReady, Ready: true}))
	assert.True(t, connA.has(func(p any) bool {
		rc, ok := p.(*proto.ReadyChanged)
		return ok && rc.Name == "bob" && rc.Ready
	}))

	cb.Handle(frame(t, proto.ClientMessage{T: proto.MsgChat, Text: "hello"}))
	assert.True(t, connA.has(func(p any) bool {
		ch, ok := p.(*proto.Chat)
		return ok && ch.Name == "bob" && ch.Text == "hello"
	}))
}

func TestReadyWithoutJoin(t *testing.T) {
	e := newEnv(t)
	conn := &fakeConn{}
	c := e.rt.NewClient(conn, "room-1")

	c.Handle(frame(t, proto.ClientMessage{T: proto.MsgSetReady, Ready: true}))
	se := conn.lastError()
	require.NotNil(t, se)
	assert.Equal(t, room.CodeNotInRoom, se.Code)
}

// startGame drives two players through join → ready → host ready and
// returns their clients once the deal has been delivered.
func (e *routerEnv) startGame(t *testing.T, connA, connB *fakeConn) (*Client, *Client) {
	t.Helper()
	ca := e.join(t, connA, "u1", "alice", "room-1")
	cb := e.join(t, connB, "u2", "bob", "room-1")

	cb.Handle(frame(t, proto.ClientMessage{T: proto.MsgSetReady, Ready: true}))
	ca.Handle(frame(t, proto.ClientMessage{T: proto.MsgSetReady, Ready: true}))

	require.NotNil(t, connA.gameStarting())
	require.NotNil(t, connB.gameStarting())
	require.True(t, connA.has(func(p any) bool {
		_, ok := p.(*proto.RoundStarted)
		return ok
	}), "deal never reached alice")
	return ca, cb
}

func TestStartDeliversDealToBoundConnections(t *testing.T) {
	e := newEnv(t)
	connA, connB := &fakeConn{}, &fakeConn{}
	ca, _ := e.startGame(t, connA, connB)

	// The host's action on a fresh game goes through the game service.
	ca.Handle(frame(t, proto.ClientMessage{
		T: proto.MsgGameAction,
		A: string(engine.ActionTsumo),
	}))
	se := connA.lastError()
	require.NotNil(t, se)
	assert.Equal(t, CodeActionFailed, se.Code)

	gameID, seat := ca.Bound()
	assert.Equal(t, connA.gameStarting().GameID, gameID)
	assert.GreaterOrEqual(t, seat, 0)
}

func TestActionWithoutGame(t *testing.T) {
	e := newEnv(t)
	conn := &fakeConn{}
	c := e.rt.NewClient(conn, "room-1")

	c.Handle(frame(t, proto.ClientMessage{
		T: proto.MsgGameAction,
		A: string(engine.ActionPass),
	}))
	se := conn.lastError()
	require.NotNil(t, se)
	assert.Equal(t, CodeNotInGame, se.Code)
}

func TestReconnectFlow(t *testing.T) {
	e := newEnv(t)
	connA, connB := &fakeConn{}, &fakeConn{}
	ca, _ := e.startGame(t, connA, connB)
	gameID, seat := ca.Bound()

	ca.OnDisconnect()
	_, ok := e.registry.Seat(gameID, seat)
	assert.False(t, ok, "disconnect left the seat bound")

	// Fresh socket, same user, reconnecting with the original ticket.
	connA2 := &fakeConn{}
	c2 := e.rt.NewClient(connA2, "room-1")
	c2.Handle(frame(t, proto.ClientMessage{
		T:          proto.MsgReconnect,
		RoomID:     "room-1",
		GameTicket: e.joinTicket(t, "u1", "alice", "room-1"),
	}))

	require.True(t, connA2.has(func(p any) bool {
		gr, ok := p.(*proto.GameReconnected)
		return ok && gr.Snapshot != nil && gr.Snapshot.GameID == gameID && gr.Snapshot.Seat == seat
	}), "no snapshot delivered")
	assert.True(t, connB.has(func(p any) bool {
		pr, ok := p.(*proto.PlayerReconnected)
		return ok && pr.Name == "alice"
	}))

	// The seat is live again; a second reconnect for the same user
	// must be refused while this one holds it.
	connA3 := &fakeConn{}
	c3 := e.rt.NewClient(connA3, "room-1")
	c3.Handle(frame(t, proto.ClientMessage{
		T:          proto.MsgReconnect,
		RoomID:     "room-1",
		GameTicket: e.joinTicket(t, "u1", "alice", "room-1"),
	}))
	require.NotNil(t, connA3.lastError())
	assert.Equal(t, CodeReconActive, connA3.lastError().Code)
}

func TestReconnectRejections(t *testing.T) {
	e := newEnv(t)
	conn := &fakeConn{}
	c := e.rt.NewClient(conn, "room-1")

	c.Handle(frame(t, proto.ClientMessage{
		T:          proto.MsgReconnect,
		RoomID:     "room-1",
		GameTicket: e.joinTicket(t, "ghost", "ghost", "room-1"),
	}))
	se := conn.lastError()
	require.NotNil(t, se)
	assert.Equal(t, CodeReconNoSession, se.Code)
}

func TestInGameChatBroadcasts(t *testing.T) {
	e := newEnv(t)
	connA, connB := &fakeConn{}, &fakeConn{}
	ca, _ := e.startGame(t, connA, connB)

	ca.Handle(frame(t, proto.ClientMessage{T: proto.MsgChat, Text: "good luck"}))
	assert.True(t, connB.has(func(p any) bool {
		ch, ok := p.(*proto.Chat)
		return ok && ch.Name == "alice" && ch.Text == "good luck"
	}))
}

func TestDisconnectBeforeStartLeavesRoom(t *testing.T) {
	e := newEnv(t)
	connA, connB := &fakeConn{}, &fakeConn{}
	ca := e.join(t, connA, "u1", "alice", "room-1")
	e.join(t, connB, "u2", "bob", "room-1")

	ca.OnDisconnect()
	assert.True(t, connB.has(func(p any) bool {
		pl, ok := p.(*proto.PlayerLeft)
		return ok && pl.Name == "alice"
	}))
}
