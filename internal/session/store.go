package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session tracks one authenticated player across connections. A seat is
// bound at game start; the session outlives its websocket so the player
// can reconnect until the game is cleaned up.
type Session struct {
	Token      string
	UserID     string
	PlayerName string
	RoomID     string
	GameID     string
	Seat       int // -1 until bound

	// DisconnectedAt is zero while a live connection is attached.
	DisconnectedAt time.Time

	attached bool
}

// Attached reports whether a live connection currently owns the session.
func (s *Session) Attached() bool { return s.attached }

// Store is the in-memory token index. All access goes through the
// mutex; the maps never escape.
type Store struct {
	mu      sync.Mutex
	byToken map[string]*Session
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{byToken: make(map[string]*Session), now: time.Now}
}

// Create registers a session with a fresh UUID token. An empty token
// argument generates one; a room join may supply a client-chosen token.
func (st *Store) Create(token, userID, playerName, roomID string) *Session {
	if token == "" {
		token = uuid.NewString()
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	s := &Session{
		Token:      token,
		UserID:     userID,
		PlayerName: playerName,
		RoomID:     roomID,
		Seat:       -1,
		attached:   true,
	}
	st.byToken[token] = s
	return s
}

// Get returns a copy of the session; mutations go through the store.
func (st *Store) Get(token string) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.byToken[token]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// FindByGameUser locates the session a user holds in a game.
func (st *Store) FindByGameUser(gameID, userID string) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, s := range st.byToken {
		if s.GameID == gameID && s.UserID == userID {
			return *s, true
		}
	}
	return Session{}, false
}

// FindByRoomUser locates the session a user created in a room. Used on
// reconnect, where the ticket names the room rather than the game.
func (st *Store) FindByRoomUser(roomID, userID string) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, s := range st.byToken {
		if s.RoomID == roomID && s.UserID == userID {
			return *s, true
		}
	}
	return Session{}, false
}

// BindSeat attaches the game and seat at game start.
func (st *Store) BindSeat(token, gameID string, seat int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.byToken[token]
	if !ok {
		return false
	}
	s.GameID = gameID
	s.Seat = seat
	return true
}

// MarkDisconnected records the drop time and frees the attachment.
func (st *Store) MarkDisconnected(token string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.byToken[token]; ok {
		s.attached = false
		s.DisconnectedAt = st.now()
	}
}

// Reattach claims the session for a new connection. It fails when a
// live connection already owns it.
func (st *Store) Reattach(token string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.byToken[token]
	if !ok || s.attached {
		return false
	}
	s.attached = true
	s.DisconnectedAt = time.Time{}
	return true
}

// Remove drops the session; used on pre-start leaves and game cleanup.
func (st *Store) Remove(token string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.byToken, token)
}

// RemoveGame drops every session bound to the game.
func (st *Store) RemoveGame(gameID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for token, s := range st.byToken {
		if s.GameID == gameID {
			delete(st.byToken, token)
		}
	}
}

// Len reports the number of live sessions; used by /status.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.byToken)
}
