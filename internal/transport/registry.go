package transport

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/janpai/server/internal/event"
)

// Sendable is what the registry needs from a connection.
type Sendable interface {
	Send(payload any)
	Close(reason string)
	LastSeen() time.Time
	IsClosed() bool
}

// Registry is the fan-out table: game → seat → live connection. It
// implements the game service's sink, so every committed batch reaches
// the seats its targets name.
type Registry struct {
	log *zap.Logger

	mu    sync.Mutex
	games map[string]map[int]Sendable

	// OnGameClosed, when set, runs after a game's bindings are dropped.
	OnGameClosed func(gameID string, cause error)
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{log: log, games: make(map[string]map[int]Sendable)}
}

// Bind attaches a connection to a seat, replacing any previous one.
func (r *Registry) Bind(gameID string, seat int, conn Sendable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seats, ok := r.games[gameID]
	if !ok {
		seats = make(map[int]Sendable)
		r.games[gameID] = seats
	}
	seats[seat] = conn
}

// Unbind detaches the seat if conn still owns it.
func (r *Registry) Unbind(gameID string, seat int, conn Sendable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seats, ok := r.games[gameID]; ok && seats[seat] == conn {
		delete(seats, seat)
		if len(seats) == 0 {
			delete(r.games, gameID)
		}
	}
}

// Seat returns the connection bound to a seat, if any.
func (r *Registry) Seat(gameID string, seat int) (Sendable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.games[gameID][seat]
	return conn, ok
}

// Deliver sends each event to the connections its target names. Seats
// without a live connection are skipped; the snapshot covers them on
// reconnect.
func (r *Registry) Deliver(gameID string, events []event.ServiceEvent) {
	r.mu.Lock()
	seats := make(map[int]Sendable, len(r.games[gameID]))
	for seat, conn := range r.games[gameID] {
		seats[seat] = conn
	}
	r.mu.Unlock()

	for _, ev := range events {
		switch target := ev.Target.(type) {
		case event.BroadcastTarget:
			for _, conn := range seats {
				conn.Send(ev.Payload)
			}
		case event.SeatTarget:
			if conn, ok := seats[target.Seat]; ok {
				conn.Send(ev.Payload)
			}
		}
	}
}

// Broadcast sends one payload to every seat bound to the game.
func (r *Registry) Broadcast(gameID string, payload any) {
	r.mu.Lock()
	conns := make([]Sendable, 0, len(r.games[gameID]))
	for _, conn := range r.games[gameID] {
		conns = append(conns, conn)
	}
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Send(payload)
	}
}

// GameClosed drops the game's bindings and runs the teardown hook.
func (r *Registry) GameClosed(gameID string, cause error) {
	r.mu.Lock()
	delete(r.games, gameID)
	r.mu.Unlock()
	if r.OnGameClosed != nil {
		r.OnGameClosed(gameID, cause)
	}
}

// Monitor walks every bound connection and closes the ones whose last
// inbound frame is older than timeout. Run it on a ticker.
func (r *Registry) Monitor(timeout time.Duration) {
	r.mu.Lock()
	var stale []Sendable
	cutoff := time.Now().Add(-timeout)
	for _, seats := range r.games {
		for _, conn := range seats {
			if !conn.IsClosed() && conn.LastSeen().Before(cutoff) {
				stale = append(stale, conn)
			}
		}
	}
	r.mu.Unlock()

	for _, conn := range stale {
		r.log.Info("closing stale connection")
		conn.Close("heartbeat_timeout")
	}
}
