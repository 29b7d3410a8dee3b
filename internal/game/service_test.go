package game

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/janpai/server/internal/config"
	"github.com/janpai/server/internal/engine"
	"github.com/janpai/server/internal/event"
	"github.com/janpai/server/internal/proto"
)

type fakeSink struct {
	mu      sync.Mutex
	batches [][]event.ServiceEvent
	closed  []string
}

func (f *fakeSink) Deliver(gameID string, events []event.ServiceEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, events)
}

func (f *fakeSink) GameClosed(gameID string, cause error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, gameID)
}

func (f *fakeSink) kinds() []engine.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []engine.EventType
	for _, batch := range f.batches {
		for _, ev := range batch {
			out = append(out, ev.Kind)
		}
	}
	return out
}

func testService(t *testing.T, sink Sink) *Service {
	t.Helper()
	cfg := config.GameConfig{
		BaseTurnSeconds:     30,
		InitialBankSeconds:  30,
		MaxBankSeconds:      60,
		MeldDecisionSeconds: 30,
		RoundConfirmSeconds: 30,
		RoundBonusSeconds:   5,
		MaxCapacity:         4,
	}
	log := zaptest.NewLogger(t)
	return NewService(cfg, engine.DefaultSettings(), sink, NewTimerManager(cfg, log), nil, log)
}

func fixedSeed() string { return strings.Repeat("ab", 96) }

// mustStart stages and begins a game in one step.
func mustStart(t *testing.T, s *Service, gameID string, humans []CreatePlayer, numAI int) map[string]int {
	t.Helper()
	seats, err := s.CreateGame(gameID, humans, numAI, fixedSeed())
	require.NoError(t, err)
	require.NoError(t, s.Begin(gameID))
	return seats
}

func TestCreateGameDealsAndPumps(t *testing.T) {
	sink := &fakeSink{}
	s := testService(t, sink)

	seats := mustStart(t, s, "g1", []CreatePlayer{{Name: "alice", UserID: "u1"}}, 3)
	require.Len(t, seats, 1)

	kinds := sink.kinds()
	assert.Equal(t, engine.EvGameStarted, kinds[0])
	assert.Equal(t, engine.EvRoundStarted, kinds[1])
	// The pump must have run AI turns up to the human's blocking point.
	c, err := s.get("g1")
	require.NoError(t, err)
	c.mu.Lock()
	defer c.mu.Unlock()
	r := &c.state.Round
	blocked := (r.Prompt != nil && r.Prompt.PendingSeats[seats["u1"]]) ||
		(r.Phase == engine.PhasePlaying && !c.seats[r.CurrentSeat].AI)
	assert.True(t, blocked, "pump stopped without a pending human decision")
}

func TestCreateGameRosterValidation(t *testing.T) {
	s := testService(t, &fakeSink{})
	_, err := s.CreateGame("g1", []CreatePlayer{{Name: "a", UserID: "u"}}, 2, fixedSeed())
	require.ErrorIs(t, err, ErrBadRoster)

	_, err = s.CreateGame("g1", nil, 4, fixedSeed())
	require.ErrorIs(t, err, ErrBadRoster)

	_, err = s.CreateGame("g1", []CreatePlayer{
		{Name: "a", UserID: "u1"}, {Name: "a", UserID: "u2"},
	}, 2, fixedSeed())
	require.ErrorIs(t, err, ErrBadRoster)
}

func TestCreateGameDuplicateAndCapacity(t *testing.T) {
	s := testService(t, &fakeSink{})
	roster := []CreatePlayer{{Name: "alice", UserID: "u1"}}

	_, err := s.CreateGame("g1", roster, 3, fixedSeed())
	require.NoError(t, err)
	_, err = s.CreateGame("g1", roster, 3, fixedSeed())
	require.ErrorIs(t, err, ErrDuplicateGame)

	for _, id := range []string{"g2", "g3", "g4"} {
		_, err = s.CreateGame(id, roster, 3, fixedSeed())
		require.NoError(t, err)
	}
	_, err = s.CreateGame("g5", roster, 3, fixedSeed())
	require.ErrorIs(t, err, ErrCapacity)
}

func TestHandleActionRuleError(t *testing.T) {
	s := testService(t, &fakeSink{})
	seats := mustStart(t, s, "g1", []CreatePlayer{{Name: "alice", UserID: "u1"}}, 3)

	err := s.HandleAction("g1", seats["u1"], engine.ActionTsumo, engine.ActionData{})
	var rule *engine.RuleError
	require.ErrorAs(t, err, &rule)

	err = s.HandleAction("missing", 0, engine.ActionPass, engine.ActionData{})
	require.ErrorIs(t, err, ErrGameNotFound)
}

// humanMove picks the forced move for the human seat, mirroring what a
// tsumogiri client would send.
func humanMove(t *testing.T, s *Service, gameID string, seat int) (engine.Action, engine.ActionData, bool) {
	t.Helper()
	c, err := s.get(gameID)
	if err != nil {
		return "", engine.ActionData{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r := &c.state.Round
	if r.Prompt != nil {
		if r.Prompt.PendingSeats[seat] {
			return engine.ActionPass, engine.ActionData{}, true
		}
		return "", engine.ActionData{}, false
	}
	if r.Phase == engine.PhaseFinished {
		if r.PendingConfirm[seat] {
			return engine.ActionConfirm, engine.ActionData{}, true
		}
		return "", engine.ActionData{}, false
	}
	if r.Phase == engine.PhasePlaying && r.CurrentSeat == seat {
		tile := int(r.Players[seat].LastDraw)
		if tile < 0 {
			return "", engine.ActionData{}, false
		}
		return engine.ActionDiscard, engine.ActionData{TileID: &tile}, true
	}
	return "", engine.ActionData{}, false
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []GameRecord
}

func (f *fakeRecorder) RecordFinished(rec GameRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
}

func TestFullGameWithAITable(t *testing.T) {
	sink := &fakeSink{}
	s := testService(t, sink)
	rec := &fakeRecorder{}
	s.SetRecorder(rec)
	seats := mustStart(t, s, "g1", []CreatePlayer{{Name: "alice", UserID: "u1"}}, 3)
	human := seats["u1"]

	for i := 0; i < 100000; i++ {
		if !s.Exists("g1") {
			break
		}
		action, data, ok := humanMove(t, s, "g1", human)
		require.True(t, ok, "no human move available but game still live")
		require.NoError(t, s.HandleAction("g1", human, action, data))
	}

	assert.False(t, s.Exists("g1"), "game did not finish")
	kinds := sink.kinds()
	assert.Equal(t, engine.EvGameEnd, kinds[len(kinds)-1])
	assert.Equal(t, []string{"g1"}, sink.closed)
	active, _ := s.Counts()
	assert.Zero(t, active)

	require.Len(t, rec.recs, 1)
	assert.Equal(t, "g1", rec.recs[0].GameID)
	assert.Equal(t, fixedSeed(), rec.recs[0].Seed)
	assert.Len(t, rec.recs[0].Seats, 4)
	assert.Len(t, rec.recs[0].Scores, 4)
}

func TestBuildSnapshot(t *testing.T) {
	s := testService(t, &fakeSink{})
	seats := mustStart(t, s, "g1", []CreatePlayer{{Name: "alice", UserID: "u1"}}, 3)
	human := seats["u1"]

	snap, err := s.BuildSnapshot("g1", human)
	require.NoError(t, err)
	assert.Equal(t, "g1", snap.GameID)
	assert.Equal(t, human, snap.Seat)
	assert.NotEmpty(t, snap.Tiles)
	require.Len(t, snap.Players, 4)
	aiCount := 0
	for _, p := range snap.Players {
		if p.AI {
			aiCount++
		}
	}
	assert.Equal(t, 3, aiCount)
	require.Len(t, snap.Seats, 4)
	assert.Len(t, snap.Indicators, 1)
	assert.Positive(t, snap.Remaining)

	_, err = s.BuildSnapshot("g1", 7)
	require.Error(t, err)
	_, err = s.BuildSnapshot("missing", 0)
	require.ErrorIs(t, err, ErrGameNotFound)
}

func TestDefaultActionValidation(t *testing.T) {
	s := testService(t, &fakeSink{})
	seats := mustStart(t, s, "g1", []CreatePlayer{{Name: "alice", UserID: "u1"}}, 3)
	human := seats["u1"]

	c, err := s.get("g1")
	require.NoError(t, err)
	c.mu.Lock()
	defer c.mu.Unlock()
	r := &c.state.Round

	if r.Phase == engine.PhasePlaying && r.Prompt == nil && r.CurrentSeat == human {
		action, data, ok := defaultAction(&c.state, human, TimeoutTurn)
		require.True(t, ok)
		assert.Equal(t, engine.ActionDiscard, action)
		assert.Equal(t, int(r.Players[human].LastDraw), *data.TileID)
	}
	// A meld timeout with no prompt pending is stale and must be dropped.
	if r.Prompt == nil {
		_, _, ok := defaultAction(&c.state, human, TimeoutMeld)
		assert.False(t, ok)
	}
	// Confirm timeouts only apply between rounds.
	_, _, ok := defaultAction(&c.state, human, TimeoutConfirm)
	assert.False(t, ok)
}

func TestTeardownOnShutdown(t *testing.T) {
	sink := &fakeSink{}
	s := testService(t, sink)
	mustStart(t, s, "g1", []CreatePlayer{{Name: "alice", UserID: "u1"}}, 3)

	s.Shutdown()
	assert.False(t, s.Exists("g1"))
	assert.Equal(t, []string{"g1"}, sink.closed)

	// Every seat got a terminal error payload.
	var errSeen bool
	for _, batch := range sink.batches {
		for _, ev := range batch {
			if ge, ok := ev.Payload.(*proto.GameError); ok && ge.Code == "INTERNAL_ERROR" {
				errSeen = true
			}
		}
	}
	assert.True(t, errSeen)
}
