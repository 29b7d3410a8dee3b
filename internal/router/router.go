// Package router dispatches decoded client frames. One Client exists
// per websocket; its handler runs on the connection's read loop, so
// per-connection state needs no locking.
package router

import (
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/janpai/server/internal/auth"
	"github.com/janpai/server/internal/engine"
	"github.com/janpai/server/internal/game"
	"github.com/janpai/server/internal/proto"
	"github.com/janpai/server/internal/room"
	"github.com/janpai/server/internal/session"
	"github.com/janpai/server/internal/transport"
)

// Session-level error codes the router itself produces. Room and game
// failures carry their own codes.
const (
	CodeInvalidMessage = "INVALID_MESSAGE"
	CodeInvalidTicket  = "INVALID_TICKET"
	CodeActionFailed   = "ACTION_FAILED"
	CodeNotInGame      = "NOT_IN_GAME"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeReconNoSession = "RECONNECT_NO_SESSION"
	CodeReconNoSeat    = "RECONNECT_NO_SEAT"
	CodeReconGameGone  = "RECONNECT_GAME_GONE"
	CodeReconActive    = "RECONNECT_ALREADY_ACTIVE"
	CodeReconSnapshot  = "RECONNECT_SNAPSHOT_FAILED"
)

// Router carries the shared services every connection dispatches into.
type Router struct {
	log      *zap.Logger
	signer   *auth.Signer
	rooms    *room.Manager
	games    *game.Service
	sessions *session.Store
	registry *transport.Registry
}

func New(signer *auth.Signer, rooms *room.Manager, games *game.Service, sessions *session.Store, registry *transport.Registry, log *zap.Logger) *Router {
	return &Router{
		log:      log,
		signer:   signer,
		rooms:    rooms,
		games:    games,
		sessions: sessions,
		registry: registry,
	}
}

// Bind implements the room manager's start handoff: each player's live
// connection goes into the game fan-out before the deal is dealt.
func (r *Router) Bind(gameID string, seat int, conn room.Conn) {
	if c, ok := conn.(*Client); ok {
		r.registry.Bind(gameID, seat, c.conn)
	}
}

// Client is the per-connection dispatch state. The room ID comes from
// the websocket path and every ticket must match it.
type Client struct {
	r    *Router
	conn transport.Sendable

	pathRoom string

	token  string
	userID string
	name   string
	gameID string
	seat   int
}

// NewClient wraps one accepted connection.
func (r *Router) NewClient(conn transport.Sendable, pathRoom string) *Client {
	return &Client{r: r, conn: conn, pathRoom: pathRoom, seat: -1}
}

// Send and Close make Client the room layer's view of the connection.
func (c *Client) Send(payload any)    { c.conn.Send(payload) }
func (c *Client) Close(reason string) { c.conn.Close(reason) }

func (c *Client) sendErr(code, format string, args ...any) {
	c.conn.Send(&proto.SessionError{
		T:       proto.SessError,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

// Handle processes one inbound frame. A panic in a handler is contained
// to the frame; the connection survives.
func (c *Client) Handle(frame []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			c.r.log.Error("panic handling frame",
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
			c.sendErr(CodeInternalError, "internal error")
		}
	}()

	msg, err := proto.DecodeClient(frame)
	if err != nil {
		c.sendErr(CodeInvalidMessage, "%v", err)
		return
	}

	switch msg.T {
	case proto.MsgPing:
		c.conn.Send(&proto.Pong{T: proto.SessPong})
	case proto.MsgJoinRoom:
		c.handleJoin(msg)
	case proto.MsgLeaveRoom:
		c.handleLeave()
	case proto.MsgReconnect:
		c.handleReconnect(msg)
	case proto.MsgSetReady:
		c.roomCall(func() error {
			return c.r.rooms.SetReady(c.pathRoom, c.userID, msg.Ready)
		})
	case proto.MsgChat:
		c.handleChat(msg)
	case proto.MsgGameAction:
		c.handleAction(msg)
	}
}

// adoptGame picks up a seat the room's start handoff bound to this
// connection's session. It runs on the read loop, never concurrently
// with other Client mutations.
func (c *Client) adoptGame() {
	if c.gameID != "" || c.token == "" {
		return
	}
	if sess, ok := c.r.sessions.Get(c.token); ok && sess.GameID != "" && sess.Seat >= 0 {
		c.gameID = sess.GameID
		c.seat = sess.Seat
	}
}

// roomCall runs a room operation and turns its coded error into a
// session_error frame.
func (c *Client) roomCall(fn func() error) {
	if c.token == "" {
		c.sendErr(room.CodeNotInRoom, "join the room first")
		return
	}
	if err := fn(); err != nil {
		c.sendRoomErr(err)
	}
}

func (c *Client) sendRoomErr(err error) {
	var re *room.Error
	if errors.As(err, &re) {
		c.sendErr(re.Code, "%s", re.Message)
		return
	}
	c.sendErr(CodeInternalError, "%v", err)
}

func (c *Client) handleJoin(msg *proto.ClientMessage) {
	if c.token != "" {
		c.sendErr(room.CodeAlreadyInRoom, "connection already joined")
		return
	}
	ticket, err := c.verifyTicket(msg)
	if err != nil {
		return
	}
	token, err := c.r.rooms.Join(c.pathRoom, ticket, c)
	if err != nil {
		c.sendRoomErr(err)
		return
	}
	c.token = token
	c.userID = ticket.UserID
	c.name = ticket.Username
}

// verifyTicket checks the frame's ticket against the connection's path
// room. A room_id that disagrees with the path is treated as a forgery.
func (c *Client) verifyTicket(msg *proto.ClientMessage) (*auth.Ticket, error) {
	if msg.RoomID != c.pathRoom {
		c.sendErr(CodeInvalidTicket, "room_id does not match connection path")
		return nil, auth.ErrInvalidTicket
	}
	ticket, err := c.r.signer.Verify(msg.GameTicket, c.pathRoom)
	if err != nil {
		c.sendErr(CodeInvalidTicket, "ticket rejected")
		return nil, err
	}
	return ticket, nil
}

func (c *Client) handleLeave() {
	c.adoptGame()
	if c.gameID != "" {
		c.r.registry.Unbind(c.gameID, c.seat, c.conn)
		c.r.sessions.MarkDisconnected(c.token)
		c.conn.Send(&proto.GameLeft{T: proto.SessGameLeft})
		c.gameID = ""
		c.seat = -1
		c.token = ""
		return
	}
	c.roomCall(func() error {
		if err := c.r.rooms.Leave(c.pathRoom, c.userID); err != nil {
			return err
		}
		c.token = ""
		c.userID = ""
		return nil
	})
}

func (c *Client) handleReconnect(msg *proto.ClientMessage) {
	if c.token != "" {
		c.sendErr(CodeReconActive, "connection already attached")
		return
	}
	ticket, err := c.verifyTicket(msg)
	if err != nil {
		return
	}
	sess, ok := c.r.sessions.FindByRoomUser(c.pathRoom, ticket.UserID)
	if !ok {
		c.sendErr(CodeReconNoSession, "no session for this room")
		return
	}
	if sess.GameID == "" || sess.Seat < 0 {
		c.sendErr(CodeReconNoSeat, "game has not started")
		return
	}
	if !c.r.games.Exists(sess.GameID) {
		c.sendErr(CodeReconGameGone, "game already finished")
		return
	}
	if !c.r.sessions.Reattach(sess.Token) {
		c.sendErr(CodeReconActive, "another connection holds the seat")
		return
	}

	// Bind before snapshotting so nothing committed after the snapshot
	// is lost; the client applies the snapshot first regardless.
	c.r.registry.Bind(sess.GameID, sess.Seat, c.conn)
	snap, err := c.r.games.BuildSnapshot(sess.GameID, sess.Seat)
	if err != nil {
		c.r.registry.Unbind(sess.GameID, sess.Seat, c.conn)
		c.r.sessions.MarkDisconnected(sess.Token)
		c.sendErr(CodeReconSnapshot, "snapshot failed")
		return
	}

	c.token = sess.Token
	c.userID = sess.UserID
	c.name = sess.PlayerName
	c.gameID = sess.GameID
	c.seat = sess.Seat

	c.conn.Send(&proto.GameReconnected{T: proto.SessGameReconnected, Snapshot: snap})
	c.r.registry.Broadcast(sess.GameID, &proto.PlayerReconnected{
		T:    proto.SessPlayerReconnected,
		Seat: sess.Seat,
		Name: sess.PlayerName,
	})
	c.r.log.Info("player reconnected",
		zap.String("game_id", sess.GameID), zap.Int("seat", sess.Seat))
}

func (c *Client) handleChat(msg *proto.ClientMessage) {
	c.adoptGame()
	if c.gameID != "" {
		if err := proto.ValidateChatText(msg.Text); err != nil {
			c.sendErr(CodeInvalidMessage, "%v", err)
			return
		}
		c.r.registry.Broadcast(c.gameID, &proto.Chat{
			T:    proto.SessChat,
			Name: c.name,
			Text: msg.Text,
		})
		return
	}
	c.roomCall(func() error {
		return c.r.rooms.Chat(c.pathRoom, c.userID, msg.Text)
	})
}

func (c *Client) handleAction(msg *proto.ClientMessage) {
	c.adoptGame()
	if c.gameID == "" {
		c.sendErr(CodeNotInGame, "no game on this connection")
		return
	}
	err := c.r.games.HandleAction(c.gameID, c.seat, engine.Action(msg.A), msg.ActionData())
	if err == nil {
		return
	}
	var rule *engine.RuleError
	if errors.As(err, &rule) {
		c.sendErr(CodeActionFailed, "%s: %s", rule.Code, rule.Msg)
		return
	}
	c.sendErr(CodeActionFailed, "%v", err)
}

// Bound reports the game binding, for disconnect handling and tests.
func (c *Client) Bound() (gameID string, seat int) { return c.gameID, c.seat }

// OnDisconnect runs after the read loop exits. In-game sessions survive
// for reconnection; pre-game players leave their room.
func (c *Client) OnDisconnect() {
	c.adoptGame()
	if c.token == "" {
		return
	}
	if c.gameID != "" {
		c.r.registry.Unbind(c.gameID, c.seat, c.conn)
		c.r.sessions.MarkDisconnected(c.token)
		return
	}
	if err := c.r.rooms.Leave(c.pathRoom, c.userID); err != nil {
		// A room mid-transition keeps its roster; the session stays
		// reattachable once the game exists.
		c.r.sessions.MarkDisconnected(c.token)
	}
}
