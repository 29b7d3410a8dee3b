package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap/zaptest"

	"github.com/janpai/server/internal/auth"
	"github.com/janpai/server/internal/config"
	"github.com/janpai/server/internal/engine"
	"github.com/janpai/server/internal/game"
	"github.com/janpai/server/internal/proto"
	"github.com/janpai/server/internal/room"
	"github.com/janpai/server/internal/router"
	"github.com/janpai/server/internal/session"
	"github.com/janpai/server/internal/transport"
)

type apiEnv struct {
	api    *Server
	signer *auth.Signer
	games  *game.Service
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	log := zaptest.NewLogger(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Game.MaxCapacity = 4

	signer := auth.NewSigner([]byte("secret"))
	sessions := session.NewStore()
	registry := transport.NewRegistry(log)
	games := game.NewService(cfg.Game, engine.DefaultSettings(), registry, game.NewTimerManager(cfg.Game, log), nil, log)
	rooms := room.NewManager(signer, games, sessions, cfg.Game.RoomTTL, log)
	rt := router.New(signer, rooms, games, sessions, registry, log)
	rooms.Binder = rt
	t.Cleanup(rooms.Close)
	t.Cleanup(games.Shutdown)
	return &apiEnv{
		api:    New(cfg, games, rooms, rt, signer, nil, log),
		signer: signer,
		games:  games,
	}
}

func TestHealth(t *testing.T) {
	e := newAPI(t)
	rec := httptest.NewRecorder()
	e.api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["version"])
}

func TestStatusCounts(t *testing.T) {
	e := newAPI(t)
	_, err := e.games.CreateGame("g1", []game.CreatePlayer{{Name: "alice", UserID: "u1"}}, 3, "")
	require.NoError(t, err)
	require.NoError(t, e.games.Begin("g1"))

	rec := httptest.NewRecorder()
	e.api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["active_games"])
	assert.EqualValues(t, 4, body["max_capacity"])
}

func postGames(t *testing.T, e *apiEnv, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/games", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	e.api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestCreateGameEndpoint(t *testing.T) {
	e := newAPI(t)
	body, _ := json.Marshal(map[string]any{
		"game_id": "g1",
		"players": []map[string]string{
			{"name": "alice", "user_id": "u1", "game_ticket": "tk"},
		},
		"num_ai_players": 3,
	})

	rec := postGames(t, e, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		GameID string         `json:"game_id"`
		Seats  map[string]int `json:"seats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "g1", resp.GameID)
	assert.Contains(t, resp.Seats, "u1")

	// Same game again: conflict.
	assert.Equal(t, http.StatusConflict, postGames(t, e, body).Code)
}

func TestCreateGameRejections(t *testing.T) {
	e := newAPI(t)

	assert.Equal(t, http.StatusBadRequest, postGames(t, e, []byte("{nope")).Code)

	empty, _ := json.Marshal(map[string]any{"players": []any{}, "num_ai_players": 4})
	assert.Equal(t, http.StatusBadRequest, postGames(t, e, empty).Code)

	// Roster that does not sum to a full table.
	short, _ := json.Marshal(map[string]any{
		"game_id":        "g1",
		"players":        []map[string]string{{"name": "alice", "user_id": "u1"}},
		"num_ai_players": 1,
	})
	assert.Equal(t, http.StatusBadRequest, postGames(t, e, short).Code)

	// Oversized body.
	big := []byte(`{"game_id":"` + strings.Repeat("x", 5000) + `"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, postGames(t, e, big).Code)
}

func TestCreateGameCapacity(t *testing.T) {
	e := newAPI(t)
	for _, id := range []string{"g1", "g2", "g3", "g4"} {
		body, _ := json.Marshal(map[string]any{
			"game_id":        id,
			"players":        []map[string]string{{"name": "p-" + id, "user_id": "u-" + id}},
			"num_ai_players": 3,
		})
		require.Equal(t, http.StatusCreated, postGames(t, e, body).Code)
	}
	body, _ := json.Marshal(map[string]any{
		"game_id":        "g5",
		"players":        []map[string]string{{"name": "late", "user_id": "u9"}},
		"num_ai_players": 3,
	})
	assert.Equal(t, http.StatusServiceUnavailable, postGames(t, e, body).Code)
}

func TestAccountsWithoutDatabase(t *testing.T) {
	e := newAPI(t)
	body, _ := json.Marshal(map[string]string{"name": "alice", "password": "hunter2"})

	for _, path := range []string{"/users", "/login"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
		e.api.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestWebsocketPing(t *testing.T) {
	e := newAPI(t)
	srv := httptest.NewServer(e.api.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/room-1"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	frame, err := proto.Encode(&proto.ClientMessage{T: proto.MsgPing})
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, frame))

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, reply, err := ws.ReadMessage()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, msgpack.Unmarshal(reply, &decoded))
	assert.Equal(t, proto.SessPong, decoded["t"])
}
