package room

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/janpai/server/internal/auth"
	"github.com/janpai/server/internal/game"
	"github.com/janpai/server/internal/proto"
	"github.com/janpai/server/internal/session"
)

// MaxPlayers is the table size; rooms start games with AI fill below it.
const MaxPlayers = 4

// reapInterval is how often the reaper sweeps expired rooms.
const reapInterval = 30 * time.Second

// Error is a session-level failure with a wire code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func roomErr(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

const (
	CodeRoomNotFound      = "ROOM_NOT_FOUND"
	CodeRoomFull          = "ROOM_FULL"
	CodeRoomTransitioning = "ROOM_TRANSITIONING"
	CodeAlreadyInRoom     = "ALREADY_IN_ROOM"
	CodeNotInRoom         = "NOT_IN_ROOM"
	CodeNotHost           = "NOT_HOST"
	CodeNotReady          = "NOT_READY"
	CodeStartFailed       = "START_FAILED"
)

// Conn is the slice of a connection the room layer touches.
type Conn interface {
	Send(payload any)
	Close(reason string)
}

// Starter creates the game from a finished room; the game service
// implements it in-process, standing in for POST /games. Creation is
// staged so the room can bind connections before Begin deals tiles.
type Starter interface {
	CreateGame(gameID string, humans []game.CreatePlayer, numAI int, seedHex string) (map[string]int, error)
	Begin(gameID string) error
}

// Binder attaches a player's connection to its seat in the game
// fan-out. The transport registry implements it.
type Binder interface {
	Bind(gameID string, seat int, conn Conn)
}

type player struct {
	userID string
	name   string
	ready  bool
	host   bool
	token  string
	conn   Conn
}

// Room is one pending table. joinMu serializes the whole join/leave/
// ready/start sequence so concurrent connections never observe a
// half-applied roster.
type Room struct {
	ID        string
	CreatedAt time.Time

	joinMu        sync.Mutex
	players       []*player
	transitioning bool
}

func (r *Room) roster() []proto.RoomPlayer {
	out := make([]proto.RoomPlayer, len(r.players))
	for i, p := range r.players {
		out[i] = proto.RoomPlayer{Name: p.name, Ready: p.ready, Host: p.host}
	}
	return out
}

func (r *Room) broadcast(payload any) {
	for _, p := range r.players {
		p.conn.Send(payload)
	}
}

func (r *Room) find(userID string) *player {
	for _, p := range r.players {
		if p.userID == userID {
			return p
		}
	}
	return nil
}

// Manager owns the room index. The index mutex is held only for
// lookup/insert/remove; per-room work runs under the room's join lock.
type Manager struct {
	log      *zap.Logger
	signer   *auth.Signer
	starter  Starter
	sessions *session.Store
	ttl      time.Duration

	// Binder, when set, receives each player's connection at game
	// start so deal events reach seats that are already online.
	Binder Binder

	mu    sync.Mutex
	rooms map[string]*Room

	stop chan struct{}
	done chan struct{}
}

func NewManager(signer *auth.Signer, starter Starter, sessions *session.Store, ttl time.Duration, log *zap.Logger) *Manager {
	m := &Manager{
		log:      log,
		signer:   signer,
		starter:  starter,
		sessions: sessions,
		ttl:      ttl,
		rooms:    make(map[string]*Room),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.reaper()
	return m
}

// Close stops the reaper.
func (m *Manager) Close() {
	close(m.stop)
	<-m.done
}

func (m *Manager) get(roomID string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

// List reports pending rooms for GET /rooms.
type Listing struct {
	RoomID    string `json:"room_id"`
	Players   int    `json:"players"`
	Max       int    `json:"max_players"`
	CreatedAt int64  `json:"created_at"`
}

func (m *Manager) List() []Listing {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	out := make([]Listing, 0, len(rooms))
	for _, r := range rooms {
		r.joinMu.Lock()
		if !r.transitioning {
			out = append(out, Listing{
				RoomID:    r.ID,
				Players:   len(r.players),
				Max:       MaxPlayers,
				CreatedAt: r.CreatedAt.Unix(),
			})
		}
		r.joinMu.Unlock()
	}
	return out
}

// Join authenticates into the room (creating it on first join; the
// first joiner hosts) and runs the full join sequence under the join
// lock: seat, room_joined to the joiner, player_joined to the rest.
// It returns the session token.
func (m *Manager) Join(roomID string, ticket *auth.Ticket, conn Conn) (string, error) {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if !ok {
		r = &Room{ID: roomID, CreatedAt: time.Now()}
		m.rooms[roomID] = r
	}
	m.mu.Unlock()

	r.joinMu.Lock()
	defer r.joinMu.Unlock()

	// The reaper may have removed the room between lookup and lock.
	if current, ok := m.get(roomID); !ok || current != r {
		return "", roomErr(CodeRoomNotFound, "room %s is gone", roomID)
	}
	if r.transitioning {
		return "", roomErr(CodeRoomTransitioning, "room %s is starting a game", roomID)
	}
	if r.find(ticket.UserID) != nil {
		return "", roomErr(CodeAlreadyInRoom, "user already joined")
	}
	if len(r.players) >= MaxPlayers {
		return "", roomErr(CodeRoomFull, "room %s is full", roomID)
	}

	sess := m.sessions.Create("", ticket.UserID, ticket.Username, roomID)
	p := &player{
		userID: ticket.UserID,
		name:   ticket.Username,
		host:   len(r.players) == 0,
		token:  sess.Token,
		conn:   conn,
	}
	r.players = append(r.players, p)

	conn.Send(&proto.RoomJoined{
		T:       proto.SessRoomJoined,
		RoomID:  roomID,
		You:     p.name,
		Players: r.roster(),
	})
	for _, other := range r.players {
		if other != p {
			other.conn.Send(&proto.PlayerJoined{T: proto.SessPlayerJoined, Name: p.name})
		}
	}
	m.log.Info("player joined room",
		zap.String("room_id", roomID), zap.String("player", p.name))
	return sess.Token, nil
}

// Leave removes the player before game start. The host leaving hands
// the room to the next joiner; an empty room is removed.
func (m *Manager) Leave(roomID, userID string) error {
	r, ok := m.get(roomID)
	if !ok {
		return roomErr(CodeRoomNotFound, "room %s not found", roomID)
	}
	r.joinMu.Lock()
	defer r.joinMu.Unlock()

	if r.transitioning {
		return roomErr(CodeRoomTransitioning, "room %s is starting a game", roomID)
	}
	idx := -1
	for i, p := range r.players {
		if p.userID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return roomErr(CodeNotInRoom, "user not in room")
	}
	leaving := r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	m.sessions.Remove(leaving.token)

	leaving.conn.Send(&proto.RoomLeft{T: proto.SessRoomLeft})
	if len(r.players) == 0 {
		m.mu.Lock()
		delete(m.rooms, roomID)
		m.mu.Unlock()
		return nil
	}
	if leaving.host {
		r.players[0].host = true
	}
	r.broadcast(&proto.PlayerLeft{T: proto.SessPlayerLeft, Name: leaving.name})
	return nil
}

// SetReady flips the ready flag and broadcasts the change. The host
// readying up while everyone else is ready triggers the game start.
func (m *Manager) SetReady(roomID, userID string, ready bool) error {
	r, ok := m.get(roomID)
	if !ok {
		return roomErr(CodeRoomNotFound, "room %s not found", roomID)
	}
	r.joinMu.Lock()
	defer r.joinMu.Unlock()

	if r.transitioning {
		return roomErr(CodeRoomTransitioning, "room %s is starting a game", roomID)
	}
	p := r.find(userID)
	if p == nil {
		return roomErr(CodeNotInRoom, "user not in room")
	}
	p.ready = ready
	r.broadcast(&proto.ReadyChanged{T: proto.SessReadyChanged, Name: p.name, Ready: ready})
	if p.host && ready && r.othersReady() {
		return m.startLocked(r)
	}
	return nil
}

// Chat relays a validated chat line to the whole room.
func (m *Manager) Chat(roomID, userID, text string) error {
	if err := proto.ValidateChatText(text); err != nil {
		return roomErr("INVALID_MESSAGE", "%v", err)
	}
	r, ok := m.get(roomID)
	if !ok {
		return roomErr(CodeRoomNotFound, "room %s not found", roomID)
	}
	r.joinMu.Lock()
	defer r.joinMu.Unlock()

	p := r.find(userID)
	if p == nil {
		return roomErr(CodeNotInRoom, "user not in room")
	}
	r.broadcast(&proto.Chat{T: proto.SessChat, Name: p.name, Text: text})
	return nil
}

// StartGame runs the room→game transition: host only, everyone else
// ready. It signs a fresh game ticket per player, creates the game
// with AI fill, binds seats, and hands each player its own
// game_starting. On any failure the flags roll back and the room stays.
func (m *Manager) StartGame(roomID, userID string) error {
	r, ok := m.get(roomID)
	if !ok {
		return roomErr(CodeRoomNotFound, "room %s not found", roomID)
	}
	r.joinMu.Lock()
	defer r.joinMu.Unlock()

	if r.transitioning {
		return roomErr(CodeRoomTransitioning, "start already in progress")
	}
	host := r.find(userID)
	if host == nil {
		return roomErr(CodeNotInRoom, "user not in room")
	}
	if !host.host {
		return roomErr(CodeNotHost, "only the host starts the game")
	}
	if !r.othersReady() {
		return roomErr(CodeNotReady, "players are not ready")
	}
	return m.startLocked(r)
}

// othersReady reports whether every non-host player is ready.
func (r *Room) othersReady() bool {
	for _, p := range r.players {
		if !p.host && !p.ready {
			return false
		}
	}
	return true
}

// startLocked runs the transition under the caller's join lock.
func (m *Manager) startLocked(r *Room) error {
	roomID := r.ID
	r.transitioning = true
	gameID := uuid.NewString()

	rollback := func(cause error) error {
		r.transitioning = false
		for _, p := range r.players {
			p.ready = false
		}
		m.log.Error("game start failed",
			zap.String("room_id", roomID), zap.Error(cause))
		failure := &proto.SessionError{
			T:       proto.SessError,
			Code:    CodeStartFailed,
			Message: "game start failed, room reset",
		}
		r.broadcast(failure)
		return roomErr(CodeStartFailed, "game start failed")
	}

	humans := make([]game.CreatePlayer, len(r.players))
	tickets := make([]string, len(r.players))
	for i, p := range r.players {
		humans[i] = game.CreatePlayer{Name: p.name, UserID: p.userID}
		ticket, err := m.signer.Issue(p.userID, p.name, roomID, auth.MaxTicketLifetime)
		if err != nil {
			return rollback(err)
		}
		tickets[i] = ticket
	}

	seats, err := m.starter.CreateGame(gameID, humans, MaxPlayers-len(humans), "")
	if err != nil {
		return rollback(err)
	}
	for _, p := range r.players {
		m.sessions.BindSeat(p.token, gameID, seats[p.userID])
		if m.Binder != nil {
			m.Binder.Bind(gameID, seats[p.userID], p.conn)
		}
	}
	for i, p := range r.players {
		p.conn.Send(&proto.GameStarting{
			T:          proto.SessGameStarting,
			GameID:     gameID,
			GameTicket: tickets[i],
		})
	}
	if err := m.starter.Begin(gameID); err != nil {
		return rollback(err)
	}

	m.mu.Lock()
	delete(m.rooms, roomID)
	m.mu.Unlock()
	m.log.Info("room transitioned to game",
		zap.String("room_id", roomID), zap.String("game_id", gameID))
	return nil
}

// reaper closes rooms past their TTL. The room leaves the index before
// its connections close, so racing joiners fail with room_not_found.
func (m *Manager) reaper() {
	defer close(m.done)
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.reapOnce(time.Now())
		}
	}
}

func (m *Manager) reapOnce(now time.Time) {
	m.mu.Lock()
	var expired []*Room
	for _, r := range m.rooms {
		if now.Sub(r.CreatedAt) > m.ttl {
			expired = append(expired, r)
		}
	}
	m.mu.Unlock()

	for _, r := range expired {
		r.joinMu.Lock()
		if r.transitioning {
			r.joinMu.Unlock()
			continue
		}
		m.mu.Lock()
		delete(m.rooms, r.ID)
		m.mu.Unlock()

		for _, p := range r.players {
			m.sessions.Remove(p.token)
			p.conn.Close("room_expired")
		}
		m.log.Info("room expired", zap.String("room_id", r.ID))
		r.joinMu.Unlock()
	}
}
