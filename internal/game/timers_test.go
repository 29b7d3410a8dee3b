package game

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/janpai/server/internal/config"
)

func timerConfig() config.GameConfig {
	return config.GameConfig{
		BaseTurnSeconds:     0.02,
		InitialBankSeconds:  0.05,
		MaxBankSeconds:      0.1,
		MeldDecisionSeconds: 0.02,
		RoundConfirmSeconds: 0.02,
		RoundBonusSeconds:   0.03,
	}
}

func TestTurnTimerFires(t *testing.T) {
	m := NewTimerManager(timerConfig(), zaptest.NewLogger(t))
	m.CreateTimers("g", 4)

	fired := make(chan struct{})
	m.StartTurnTimer("g", 0, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("turn timer never fired")
	}
}

func TestStopPreventsFire(t *testing.T) {
	m := NewTimerManager(timerConfig(), zaptest.NewLogger(t))
	m.CreateTimers("g", 4)

	var fired atomic.Bool
	m.StartTurnTimer("g", 1, func() { fired.Store(true) })
	m.StopTimer("g", 1)
	time.Sleep(200 * time.Millisecond)
	assert.False(t, fired.Load())

	// Stopping again is a no-op.
	m.StopTimer("g", 1)
}

func TestStopDeductsBank(t *testing.T) {
	m := NewTimerManager(timerConfig(), zaptest.NewLogger(t))
	m.CreateTimers("g", 4)
	timer := m.seat("g", 0)
	require.NotNil(t, timer)
	before := timer.Bank()

	m.StartTurnTimer("g", 0, func() {})
	time.Sleep(60 * time.Millisecond) // past the free base time
	m.StopTimer("g", 0)
	assert.Less(t, timer.Bank(), before)

	// Fixed waits never touch the bank.
	after := timer.Bank()
	m.StartMeldTimer("g", 0, func() {})
	time.Sleep(60 * time.Millisecond)
	m.StopTimer("g", 0)
	assert.Equal(t, after, timer.Bank())
}

func TestRoundBonusCapped(t *testing.T) {
	m := NewTimerManager(timerConfig(), zaptest.NewLogger(t))
	m.CreateTimers("g", 4)
	timer := m.seat("g", 0)

	for i := 0; i < 10; i++ {
		m.AddRoundBonus("g")
	}
	assert.InDelta(t, 0.1, timer.Bank(), 1e-9)
}

func TestCancelOtherTimers(t *testing.T) {
	m := NewTimerManager(timerConfig(), zaptest.NewLogger(t))
	m.CreateTimers("g", 4)

	var fired [4]atomic.Bool
	for seat := 0; seat < 4; seat++ {
		seat := seat
		m.StartMeldTimer("g", seat, func() { fired[seat].Store(true) })
	}
	m.CancelOtherTimers("g", 2)
	time.Sleep(200 * time.Millisecond)
	for seat := 0; seat < 4; seat++ {
		assert.Equal(t, seat == 2, fired[seat].Load(), "seat %d", seat)
	}
}

func TestCallbackPanicContained(t *testing.T) {
	m := NewTimerManager(timerConfig(), zaptest.NewLogger(t))
	m.CreateTimers("g", 4)

	done := make(chan struct{})
	m.StartMeldTimer("g", 0, func() {
		defer close(done)
		panic("boom")
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never ran")
	}
	// The panic stayed inside the timer goroutine; scheduling again works.
	fired := make(chan struct{})
	m.StartMeldTimer("g", 0, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer dead after panic")
	}
}

func TestCleanupGame(t *testing.T) {
	m := NewTimerManager(timerConfig(), zaptest.NewLogger(t))
	m.CreateTimers("g", 4)

	var fired atomic.Bool
	m.StartTurnTimer("g", 0, func() { fired.Store(true) })
	m.CleanupGame("g")
	time.Sleep(200 * time.Millisecond)
	assert.False(t, fired.Load())
	assert.Nil(t, m.seat("g", 0))
}
