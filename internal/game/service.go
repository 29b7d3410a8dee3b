package game

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/janpai/server/internal/config"
	"github.com/janpai/server/internal/engine"
	"github.com/janpai/server/internal/event"
	"github.com/janpai/server/internal/proto"
	"github.com/janpai/server/internal/replay"
)

// numSeats is the table size; the rule engine only supports four.
const numSeats = 4

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrDuplicateGame = errors.New("game already exists")
	ErrCapacity      = errors.New("server at capacity")
	ErrBadRoster     = errors.New("bad roster")
)

// Sink receives the targeted events of every committed transition, and
// the teardown notice when a game closes.
type Sink interface {
	Deliver(gameID string, events []event.ServiceEvent)
	GameClosed(gameID string, cause error)
}

// Seat describes one seat after the deal permutation.
type Seat struct {
	Name   string
	UserID string // empty for AI seats
	AI     bool
}

// CreatePlayer is one human roster entry on game creation.
type CreatePlayer struct {
	Name   string
	UserID string
}

// GameRecord is the archived outcome of one finished game.
type GameRecord struct {
	GameID     string
	Seed       string
	Seats      []Seat
	Scores     []engine.FinalScore
	ReplayPath string
}

// Recorder archives finished games. Implementations must not block;
// archival failures never affect the game.
type Recorder interface {
	RecordFinished(rec GameRecord)
}

// container owns one game. All mutation happens under mu; the engine
// state is replaced wholesale on every committed transition.
type container struct {
	mu        sync.Mutex
	id        string
	seed      string
	state     engine.GameState
	seats     []Seat
	collector *replay.Collector
	finished  bool

	// pending holds the deal events between CreateGame and Begin, so
	// callers can bind connections before the first delivery.
	pending []engine.Event
}

// Service is the game server core: it creates games, serializes
// actions per game, pumps AI turns, and drives timers and replays.
type Service struct {
	log    *zap.Logger
	cfg    config.GameConfig
	rules  engine.Settings
	sink   Sink
	timers *TimerManager
	saver  *replay.Saver // nil disables replays

	// recorder, when set, archives finished games.
	recorder Recorder

	mu    sync.Mutex
	games map[string]*container
}

func NewService(cfg config.GameConfig, rules engine.Settings, sink Sink, timers *TimerManager, saver *replay.Saver, log *zap.Logger) *Service {
	return &Service{
		log:    log,
		cfg:    cfg,
		rules:  rules,
		sink:   sink,
		timers: timers,
		saver:  saver,
		games:  make(map[string]*container),
	}
}

// SetRecorder installs the finished-game archive; call before serving.
func (s *Service) SetRecorder(rec Recorder) { s.recorder = rec }

// Counts reports (active games, capacity) for /status.
func (s *Service) Counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games), s.cfg.MaxCapacity
}

// NewSeed draws a fresh 192-hex-char wall seed.
func NewSeed() string {
	buf := make([]byte, engine.SeedLen)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}

// CreateGame stages the table: human roster plus AI fill to four
// players, a fresh seed unless one is supplied, and the opening deal.
// Nothing is delivered until Begin, so the caller can bind connections
// to the returned seats first.
func (s *Service) CreateGame(gameID string, humans []CreatePlayer, numAI int, seedHex string) (map[string]int, error) {
	if len(humans)+numAI != numSeats || len(humans) == 0 {
		return nil, fmt.Errorf("%w: %d humans + %d ai", ErrBadRoster, len(humans), numAI)
	}
	names := make([]string, 0, numSeats)
	byName := make(map[string]CreatePlayer, len(humans))
	for _, p := range humans {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: empty player name", ErrBadRoster)
		}
		if _, dup := byName[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate player name %q", ErrBadRoster, p.Name)
		}
		byName[p.Name] = p
		names = append(names, p.Name)
	}
	for i := 0; i < numAI; i++ {
		names = append(names, fmt.Sprintf("cpu-%d", i+1))
	}
	if seedHex == "" {
		seedHex = NewSeed()
	}

	state, events, err := engine.NewGame(names, seedHex, s.rules)
	if err != nil {
		return nil, err
	}

	c := &container{id: gameID, seed: seedHex, state: state}
	if s.saver != nil {
		c.collector = replay.NewCollector(gameID)
	}
	c.seats = make([]Seat, numSeats)
	seatByUser := make(map[string]int, len(humans))
	for seat := 0; seat < numSeats; seat++ {
		name := state.Round.Players[seat].Name
		entry, human := byName[name]
		c.seats[seat] = Seat{Name: name, UserID: entry.UserID, AI: !human}
		if human {
			seatByUser[entry.UserID] = seat
		}
	}

	s.mu.Lock()
	if len(s.games) >= s.cfg.MaxCapacity {
		s.mu.Unlock()
		return nil, ErrCapacity
	}
	if _, exists := s.games[gameID]; exists {
		s.mu.Unlock()
		return nil, ErrDuplicateGame
	}
	s.games[gameID] = c
	s.mu.Unlock()

	s.timers.CreateTimers(gameID, numSeats)
	s.log.Info("game created",
		zap.String("game_id", gameID),
		zap.Int("humans", len(humans)),
		zap.Int("ai", numAI))

	c.mu.Lock()
	c.pending = events
	c.mu.Unlock()
	return seatByUser, nil
}

// Begin delivers the staged deal and runs the AI pump up to the first
// human decision.
func (s *Service) Begin(gameID string) error {
	c, err := s.get(gameID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	events := c.pending
	c.pending = nil
	if len(events) == 0 {
		return nil
	}
	s.commit(c, events)
	s.pump(c)
	return nil
}

func (s *Service) get(gameID string) (*container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.games[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return c, nil
}

// Exists reports whether the game is still live.
func (s *Service) Exists(gameID string) bool {
	_, err := s.get(gameID)
	return err == nil
}

// SeatInfo returns the roster entry for one seat.
func (s *Service) SeatInfo(gameID string, seat int) (Seat, error) {
	c, err := s.get(gameID)
	if err != nil {
		return Seat{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if seat < 0 || seat >= len(c.seats) {
		return Seat{}, fmt.Errorf("seat %d out of range", seat)
	}
	return c.seats[seat], nil
}

// HandleAction applies one player action. Rule violations come back as
// *engine.RuleError for the router to surface; a panic inside the
// engine tears down this game only.
func (s *Service) HandleAction(gameID string, seat int, action engine.Action, data engine.ActionData) (err error) {
	c, getErr := s.get(gameID)
	if getErr != nil {
		return getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("engine panic, closing game",
				zap.String("game_id", gameID),
				zap.Int("seat", seat),
				zap.Any("panic", r),
				zap.Stack("stack"))
			err = fmt.Errorf("internal engine failure")
			s.teardownLocked(c, err)
		}
	}()

	next, events, err := engine.Transition(c.state, seat, action, data)
	if err != nil {
		return err
	}
	c.state = next
	s.commit(c, events)
	s.pump(c)
	return nil
}

// HandleTimeout synthesizes the phase's default action for a seat that
// ran out of time: pass on a prompt, tsumogiri on a turn, confirm on
// round advance. Stale timeouts are dropped.
func (s *Service) HandleTimeout(gameID string, seat int, kind TimeoutKind) {
	c, err := s.get(gameID)
	if err != nil {
		return
	}
	c.mu.Lock()
	action, data, ok := defaultAction(&c.state, seat, kind)
	c.mu.Unlock()
	if !ok {
		return
	}
	s.log.Debug("timeout action",
		zap.String("game_id", gameID),
		zap.Int("seat", seat),
		zap.String("kind", string(kind)),
		zap.String("action", string(action)))
	if err := s.HandleAction(gameID, seat, action, data); err != nil {
		var rule *engine.RuleError
		if !errors.As(err, &rule) {
			s.log.Warn("timeout action failed",
				zap.String("game_id", gameID), zap.Error(err))
		}
	}
}

// defaultAction validates the timeout against the live phase so a fire
// that lost the race with the player's own action becomes a no-op.
func defaultAction(gs *engine.GameState, seat int, kind TimeoutKind) (engine.Action, engine.ActionData, bool) {
	r := &gs.Round
	switch kind {
	case TimeoutMeld:
		if r.Prompt == nil || !r.Prompt.PendingSeats[seat] {
			return "", engine.ActionData{}, false
		}
		return engine.ActionPass, engine.ActionData{}, true
	case TimeoutTurn:
		if r.Phase != engine.PhasePlaying || r.Prompt != nil || r.CurrentSeat != seat {
			return "", engine.ActionData{}, false
		}
		tile := int(r.Players[seat].LastDraw)
		if tile < 0 {
			return "", engine.ActionData{}, false
		}
		return engine.ActionDiscard, engine.ActionData{TileID: &tile}, true
	case TimeoutConfirm:
		if r.Phase != engine.PhaseFinished || !r.PendingConfirm[seat] {
			return "", engine.ActionData{}, false
		}
		return engine.ActionConfirm, engine.ActionData{}, true
	}
	return "", engine.ActionData{}, false
}

// commit converts, records and delivers one batch, then re-arms the
// timers for whatever the new state waits on. Called under c.mu.
func (s *Service) commit(c *container, events []engine.Event) {
	if len(events) == 0 {
		return
	}
	batch, err := event.Convert(events)
	if err != nil {
		// Conversion only fails on an unmapped event type, which is a
		// programming error; the game cannot continue coherently.
		s.log.Error("event conversion failed", zap.String("game_id", c.id), zap.Error(err))
		s.teardownLocked(c, err)
		return
	}
	if c.collector != nil {
		c.collector.Observe(batch)
	}
	s.sink.Deliver(c.id, batch)
	s.armTimers(c, events)

	if c.state.Phase == engine.GameFinished && !c.finished {
		c.finished = true
		s.finishLocked(c)
	}
}

// armTimers schedules the default-action clock for every human seat the
// new state is waiting on.
func (s *Service) armTimers(c *container, events []engine.Event) {
	gameID := c.id
	r := &c.state.Round

	for _, ev := range events {
		if ev.Type() == engine.EvRoundEnd {
			s.timers.CancelOtherTimers(gameID, -1)
			s.timers.AddRoundBonus(gameID)
		}
	}
	if c.state.Phase == engine.GameFinished {
		s.timers.CancelOtherTimers(gameID, -1)
		return
	}

	switch {
	case r.Prompt != nil:
		for _, seat := range r.Prompt.Seats() {
			if c.seats[seat].AI {
				continue
			}
			seat := seat
			s.timers.StartMeldTimer(gameID, seat, func() {
				s.HandleTimeout(gameID, seat, TimeoutMeld)
			})
		}
	case r.Phase == engine.PhaseFinished:
		for seat := range r.PendingConfirm {
			if c.seats[seat].AI {
				continue
			}
			seat := seat
			s.timers.StartConfirmTimer(gameID, seat, func() {
				s.HandleTimeout(gameID, seat, TimeoutConfirm)
			})
		}
	case r.Phase == engine.PhasePlaying:
		seat := r.CurrentSeat
		s.timers.CancelOtherTimers(gameID, seat)
		if !c.seats[seat].AI {
			s.timers.StartTurnTimer(gameID, seat, func() {
				s.HandleTimeout(gameID, seat, TimeoutTurn)
			})
		}
	}
}

// pump plays the AI seats until a human decision blocks progress:
// tsumogiri on their turns, pass on their prompts, confirm on round
// advance. Called under c.mu.
func (s *Service) pump(c *container) {
	for steps := 0; steps < 100000; steps++ {
		if c.finished || c.state.Phase == engine.GameFinished {
			return
		}
		seat, action, data, ok := s.nextAIMove(c)
		if !ok {
			return
		}
		next, events, err := engine.Transition(c.state, seat, action, data)
		if err != nil {
			// The AI only plays forced moves; a rejection means the
			// pump logic disagrees with the engine.
			s.log.Error("ai move rejected",
				zap.String("game_id", c.id),
				zap.Int("seat", seat),
				zap.String("action", string(action)),
				zap.Error(err))
			return
		}
		c.state = next
		s.commit(c, events)
	}
	s.log.Error("ai pump did not converge", zap.String("game_id", c.id))
}

func (s *Service) nextAIMove(c *container) (int, engine.Action, engine.ActionData, bool) {
	r := &c.state.Round
	if r.Prompt != nil {
		for _, seat := range r.Prompt.Seats() {
			if c.seats[seat].AI {
				return seat, engine.ActionPass, engine.ActionData{}, true
			}
		}
		return 0, "", engine.ActionData{}, false
	}
	if r.Phase == engine.PhaseFinished {
		for seat := 0; seat < numSeats; seat++ {
			if r.PendingConfirm[seat] && c.seats[seat].AI {
				return seat, engine.ActionConfirm, engine.ActionData{}, true
			}
		}
		return 0, "", engine.ActionData{}, false
	}
	if r.Phase == engine.PhasePlaying && c.seats[r.CurrentSeat].AI {
		tile := int(r.Players[r.CurrentSeat].LastDraw)
		if tile < 0 {
			return 0, "", engine.ActionData{}, false
		}
		return r.CurrentSeat, engine.ActionDiscard, engine.ActionData{TileID: &tile}, true
	}
	return 0, "", engine.ActionData{}, false
}

// finishLocked runs end-of-game bookkeeping: replay save and removal.
// The sink hears GameClosed after the final events were delivered.
func (s *Service) finishLocked(c *container) {
	var replayPath string
	if c.collector != nil && s.saver != nil {
		s.saver.Save(c.id, c.collector.Bytes())
		replayPath = s.saver.Path(c.id)
	}
	if s.recorder != nil {
		s.recorder.RecordFinished(GameRecord{
			GameID:     c.id,
			Seed:       c.seed,
			Seats:      append([]Seat(nil), c.seats...),
			Scores:     append([]engine.FinalScore(nil), c.state.FinalScores...),
			ReplayPath: replayPath,
		})
	}
	s.removeLocked(c, nil)
	s.log.Info("game finished", zap.String("game_id", c.id))
}

// teardownLocked closes a game on a fatal error: every seat gets a
// terminal error event, then the game is removed.
func (s *Service) teardownLocked(c *container, cause error) {
	if c.finished {
		return
	}
	c.finished = true
	var batch []event.ServiceEvent
	for seat := 0; seat < numSeats; seat++ {
		batch = append(batch, event.ServiceEvent{
			Target: event.SeatTarget{Seat: seat},
			Kind:   engine.EvError,
			Payload: &proto.GameError{
				T:       string(engine.EvError),
				Seat:    seat,
				Code:    "INTERNAL_ERROR",
				Message: "the game was closed due to a server error",
			},
		})
	}
	s.sink.Deliver(c.id, batch)
	s.removeLocked(c, cause)
}

func (s *Service) removeLocked(c *container, cause error) {
	s.timers.CleanupGame(c.id)
	s.mu.Lock()
	delete(s.games, c.id)
	s.mu.Unlock()
	s.sink.GameClosed(c.id, cause)
}

// Shutdown tears down every live game; used on graceful stop.
func (s *Service) Shutdown() {
	s.mu.Lock()
	var all []*container
	for _, c := range s.games {
		all = append(all, c)
	}
	s.mu.Unlock()
	for _, c := range all {
		c.mu.Lock()
		s.teardownLocked(c, errors.New("server shutting down"))
		c.mu.Unlock()
	}
}
