package game

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/janpai/server/internal/config"
)

// TimeoutKind says which default action a fired timer synthesizes.
type TimeoutKind string

const (
	TimeoutTurn    TimeoutKind = "turn"
	TimeoutMeld    TimeoutKind = "meld"
	TimeoutConfirm TimeoutKind = "confirm"
)

// TurnTimer is one seat's clock: free base time per turn plus a bank
// that drains when a turn runs long. Meld and confirm waits are fixed
// and never touch the bank.
type TurnTimer struct {
	mu        sync.Mutex
	bank      float64
	base      float64
	maxBank   float64
	cancel    context.CancelFunc
	startedAt time.Time
	banked    bool
}

func newTurnTimer(cfg config.GameConfig) *TurnTimer {
	return &TurnTimer{
		bank:    cfg.InitialBankSeconds,
		base:    cfg.BaseTurnSeconds,
		maxBank: cfg.MaxBankSeconds,
	}
}

// Bank returns the remaining banked seconds.
func (t *TurnTimer) Bank() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bank
}

// StartTurn fires cb after base+bank seconds unless stopped.
func (t *TurnTimer) StartTurn(log *zap.Logger, cb func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked(false)
	t.startedAt = time.Now()
	t.banked = true
	t.startLocked(log, time.Duration((t.base+t.bank)*float64(time.Second)), cb)
}

// StartFixed fires cb after d; used for meld and round-confirm waits.
func (t *TurnTimer) StartFixed(log *zap.Logger, d time.Duration, cb func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked(false)
	t.banked = false
	t.startLocked(log, d, cb)
}

func (t *TurnTimer) startLocked(log *zap.Logger, d time.Duration, cb func()) {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			defer func() {
				if r := recover(); r != nil {
					log.Error("timer callback panicked", zap.Any("panic", r))
				}
			}()
			cb()
		}
	}()
}

// Stop cancels the pending fire. A stopped turn timer deducts the time
// spent beyond the free base from the bank.
func (t *TurnTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked(true)
}

func (t *TurnTimer) stopLocked(deduct bool) {
	if t.cancel == nil {
		return
	}
	t.cancel()
	t.cancel = nil
	if deduct && t.banked {
		elapsed := time.Since(t.startedAt).Seconds()
		if over := elapsed - t.base; over > 0 {
			t.bank -= over
			if t.bank < 0 {
				t.bank = 0
			}
		}
	}
	t.banked = false
}

// addBonus tops the bank up, capped.
func (t *TurnTimer) addBonus(bonus float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bank += bonus
	if t.bank > t.maxBank {
		t.bank = t.maxBank
	}
}

// TimerManager owns the per-game seat timers. Cancellation is
// synchronous and idempotent; a fired callback may race a cancel, so
// timeout handlers re-validate game state before acting.
type TimerManager struct {
	mu    sync.Mutex
	log   *zap.Logger
	cfg   config.GameConfig
	games map[string][]*TurnTimer
}

func NewTimerManager(cfg config.GameConfig, log *zap.Logger) *TimerManager {
	return &TimerManager{log: log, cfg: cfg, games: make(map[string][]*TurnTimer)}
}

func (m *TimerManager) CreateTimers(gameID string, seats int) {
	timers := make([]*TurnTimer, seats)
	for i := range timers {
		timers[i] = newTurnTimer(m.cfg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[gameID] = timers
}

func (m *TimerManager) seat(gameID string, seat int) *TurnTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	timers := m.games[gameID]
	if seat < 0 || seat >= len(timers) {
		return nil
	}
	return timers[seat]
}

func (m *TimerManager) StartTurnTimer(gameID string, seat int, cb func()) {
	if t := m.seat(gameID, seat); t != nil {
		t.StartTurn(m.log, cb)
	}
}

func (m *TimerManager) StartMeldTimer(gameID string, seat int, cb func()) {
	if t := m.seat(gameID, seat); t != nil {
		t.StartFixed(m.log, time.Duration(m.cfg.MeldDecisionSeconds*float64(time.Second)), cb)
	}
}

func (m *TimerManager) StartConfirmTimer(gameID string, seat int, cb func()) {
	if t := m.seat(gameID, seat); t != nil {
		t.StartFixed(m.log, time.Duration(m.cfg.RoundConfirmSeconds*float64(time.Second)), cb)
	}
}

// StopTimer cancels one seat's pending fire, deducting bank for turns.
func (m *TimerManager) StopTimer(gameID string, seat int) {
	if t := m.seat(gameID, seat); t != nil {
		t.Stop()
	}
}

// CancelOtherTimers stops every seat except exclude; -1 stops all.
func (m *TimerManager) CancelOtherTimers(gameID string, exclude int) {
	m.mu.Lock()
	timers := m.games[gameID]
	m.mu.Unlock()
	for i, t := range timers {
		if i != exclude {
			t.Stop()
		}
	}
}

// AddRoundBonus grants every seat its between-round top-up.
func (m *TimerManager) AddRoundBonus(gameID string) {
	m.mu.Lock()
	timers := m.games[gameID]
	m.mu.Unlock()
	for _, t := range timers {
		t.addBonus(m.cfg.RoundBonusSeconds)
	}
}

func (m *TimerManager) CleanupGame(gameID string) {
	m.mu.Lock()
	timers := m.games[gameID]
	delete(m.games, gameID)
	m.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
}
