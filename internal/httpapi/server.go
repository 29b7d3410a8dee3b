// Package httpapi is the server's HTTP surface: health and status
// probes, out-of-band game creation, room listings, and the websocket
// entry point.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/janpai/server/internal/auth"
	"github.com/janpai/server/internal/config"
	"github.com/janpai/server/internal/game"
	"github.com/janpai/server/internal/persist"
	"github.com/janpai/server/internal/room"
	"github.com/janpai/server/internal/router"
	"github.com/janpai/server/internal/transport"
)

type Server struct {
	log    *zap.Logger
	cfg    *config.Config
	games  *game.Service
	rooms  *room.Manager
	rt     *router.Router
	signer *auth.Signer
	users  *persist.UserRepo // nil when no database is configured

	upgrader websocket.Upgrader
}

func New(cfg *config.Config, games *game.Service, rooms *room.Manager, rt *router.Router, signer *auth.Signer, users *persist.UserRepo, log *zap.Logger) *Server {
	return &Server{
		log:    log,
		cfg:    cfg,
		games:  games,
		rooms:  rooms,
		rt:     rt,
		signer: signer,
		users:  users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Game tickets authenticate the session; the HTTP origin
			// carries no trust.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/rooms", s.handleRooms)
	r.Post("/games", s.handleCreateGame)
	r.Post("/users", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Get("/ws/{room_id}", s.handleWS)
	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Debug("write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.cfg.Server.Version,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	active, capacity := s.games.Counts()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"version":       s.cfg.Server.Version,
		"pending_games": len(s.rooms.List()),
		"active_games":  active,
		"capacity_used": active,
		"max_capacity":  capacity,
	})
}

func (s *Server) handleRooms(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"rooms": s.rooms.List()})
}

type createGameRequest struct {
	GameID  string `json:"game_id"`
	Players []struct {
		Name       string `json:"name"`
		UserID     string `json:"user_id"`
		GameTicket string `json:"game_ticket"`
	} `json:"players"`
	NumAIPlayers int `json:"num_ai_players"`
}

// handleCreateGame is the out-of-band creation path: a table with no
// pre-bound connections, started immediately. Players join it later by
// reconnecting with their tickets.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Network.MaxBodyBytes)

	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.GameID == "" {
		s.writeError(w, http.StatusBadRequest, "game_id is required")
		return
	}

	humans := make([]game.CreatePlayer, 0, len(req.Players))
	for _, p := range req.Players {
		humans = append(humans, game.CreatePlayer{Name: p.Name, UserID: p.UserID})
	}

	seats, err := s.games.CreateGame(req.GameID, humans, req.NumAIPlayers, "")
	switch {
	case err == nil:
	case errors.Is(err, game.ErrDuplicateGame):
		s.writeError(w, http.StatusConflict, "game already exists")
		return
	case errors.Is(err, game.ErrCapacity):
		s.writeError(w, http.StatusServiceUnavailable, "server at capacity")
		return
	default:
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.games.Begin(req.GameID); err != nil {
		s.writeError(w, http.StatusInternalServerError, "game start failed")
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"game_id": req.GameID,
		"seats":   seats,
	})
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	RoomID   string `json:"room_id"`
}

func (s *Server) decodeCredentials(w http.ResponseWriter, r *http.Request) (*credentialsRequest, bool) {
	if s.users == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no database configured")
		return nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Network.MaxBodyBytes)
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return nil, false
	}
	if req.Name == "" || req.Password == "" {
		s.writeError(w, http.StatusBadRequest, "name and password are required")
		return nil, false
	}
	return &req, true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}

	row, err := s.users.Create(r.Context(), req.Name, req.Password)
	if persist.IsUniqueViolation(err) {
		s.writeError(w, http.StatusConflict, "name already taken")
		return
	}
	if err != nil {
		s.log.Error("create user", zap.String("name", req.Name), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"user_id": strconv.FormatInt(row.ID, 10),
		"name":    row.Name,
	})
}

// handleLogin validates credentials and issues a signed ticket for the
// requested room. Unknown name and wrong password produce the same
// response.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}
	if req.RoomID == "" {
		s.writeError(w, http.StatusBadRequest, "room_id is required")
		return
	}

	row, err := s.users.Load(r.Context(), req.Name)
	if err != nil {
		s.log.Error("load user", zap.String("name", req.Name), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if row == nil || !s.users.ValidatePassword(row.PasswordHash, req.Password) {
		s.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := s.users.TouchLastSeen(r.Context(), req.Name); err != nil {
		s.log.Debug("touch last_seen", zap.Error(err))
	}

	userID := strconv.FormatInt(row.ID, 10)
	ticket, err := s.signer.Issue(userID, row.Name, req.RoomID, auth.MaxTicketLifetime)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "ticket issue failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"name":        row.Name,
		"game_ticket": ticket,
	})
}

// handleWS upgrades the socket and runs the connection to completion.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room_id")
	if roomID == "" {
		s.writeError(w, http.StatusBadRequest, "room_id is required")
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	net := s.cfg.Network
	msgPerSec := 0
	if s.cfg.RateLimit.Enabled {
		msgPerSec = s.cfg.RateLimit.MessagesPerSecond
	}
	conn := transport.NewConn(ws, net.OutQueueSize, msgPerSec, net.WriteTimeout, s.log)
	client := s.rt.NewClient(conn, roomID)

	conn.ReadLoop(client.Handle)
	client.OnDisconnect()
}
