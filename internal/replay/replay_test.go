package replay

import (
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/janpai/server/internal/engine"
	"github.com/janpai/server/internal/event"
)

func collectGame(t *testing.T) *Collector {
	t.Helper()
	c := NewCollector("game-1")

	started := engine.GameStartedEvent{
		Players:    []string{"east", "south", "west", "north"},
		SeedHex:    strings.Repeat("ab", 96),
		RNGVersion: 1,
	}
	var roundStarts []engine.Event
	for seat := 0; seat < 4; seat++ {
		roundStarts = append(roundStarts, engine.RoundStartedEvent{
			Seat:    seat,
			Tiles:   []engine.Tile{engine.Tile(seat * 4)},
			Players: []engine.RoundPlayerInfo{{Seat: 0, Name: "east", Score: 25000}, {Seat: 1, Name: "south", Score: 25000}, {Seat: 2, Name: "west", Score: 25000}, {Seat: 3, Name: "north", Score: 25000}},
		})
	}

	batches := [][]engine.Event{
		append([]engine.Event{started}, roundStarts...),
		{engine.DrawEvent{Seat: 0, Tile: 60, Remaining: 69, Actions: engine.AvailableActions{CanTsumo: true}}},
		{engine.DiscardEvent{Seat: 0, Tile: 17}},
		{engine.CallPromptEvent{Prompt: &engine.CallPrompt{
			Type: engine.CallDiscard, Tile: 17, FromSeat: 0,
			Callers:      []engine.Caller{{Seat: 2, Option: &engine.MeldOption{Type: engine.MeldPon, Tiles: []engine.Tile{18, 19}}}},
			PendingSeats: map[int]bool{2: true},
		}}},
		{engine.MeldEvent{Meld: engine.Meld{
			Type: engine.MeldPon, Tiles: []engine.Tile{17, 18, 19},
			CalledTile: 17, CallerSeat: 2, FromSeat: 0, Opened: true,
		}}},
		{engine.FuritenEvent{Seat: 1, Active: true}},
		{engine.RoundEndEvent{
			Result: engine.RoundResult{
				Type: engine.ResultWin,
				Wins: []engine.WinResult{{Seat: 2, FromSeat: -1, Tsumo: true, WinTile: 20, PaoSeat: -1}},
			},
			Scores: [4]int{24000, 25000, 27000, 24000},
		}},
	}
	for _, batch := range batches {
		svc, err := event.Convert(batch)
		require.NoError(t, err)
		c.Observe(svc)
	}
	return c
}

func TestCollectorShapesLines(t *testing.T) {
	c := collectGame(t)
	content := string(c.Bytes())
	lines := strings.Split(content, "\n")

	assert.Equal(t, `{"version":1}`, lines[0])
	// game_started, merged round_started, draw, discard, meld, round_end.
	require.Len(t, lines, 7)

	assert.Contains(t, lines[1], `"t":"game_started"`)

	// The merged round start carries every seat's tiles once.
	assert.Contains(t, lines[2], `"t":"round_started"`)
	assert.Equal(t, 1, strings.Count(content, `"t":"round_started"`))
	assert.Contains(t, lines[2], `"tl":[0]`)
	assert.Contains(t, lines[2], `"tl":[12]`)

	// Draws keep the tile but drop the action hints.
	assert.Contains(t, lines[3], `"t":"draw"`)
	assert.NotContains(t, lines[3], `"ac"`)

	// Prompts and furiten never reach the file.
	assert.NotContains(t, content, "call_prompt")
	assert.NotContains(t, content, "furiten")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := collectGame(t)

	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save("game-1", c.Bytes()))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(store.Path("game-1"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	in, err := Load(store.Path("game-1"))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ab", 96), in.Seed)
	assert.Equal(t, []string{"east", "south", "west", "north"}, in.PlayerNames)

	// discard by east, pon by west, tsumo by west.
	require.Len(t, in.Events, 3)
	assert.Equal(t, "east", in.Events[0].PlayerName)
	assert.Equal(t, engine.ActionDiscard, in.Events[0].Action)
	require.NotNil(t, in.Events[0].Data.TileID)
	assert.Equal(t, 17, *in.Events[0].Data.TileID)
	assert.Equal(t, engine.ActionPon, in.Events[1].Action)
	assert.Equal(t, "west", in.Events[1].PlayerName)
	assert.Equal(t, engine.ActionTsumo, in.Events[2].Action)
}

func TestLoadRejectsUnknownEvent(t *testing.T) {
	content := "{\"version\":1}\n{\"t\":\"mystery\"}"
	_, err := Parse(strings.NewReader(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown replay event")
}

func TestLoadRejectsWrongVersion(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"version":99}`))
	require.Error(t, err)
}

func TestSaverWritesInBackground(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)

	saver := NewSaver(store, zaptest.NewLogger(t))
	saver.Save("bg-game", []byte(`{"version":1}`))
	saver.Close()

	_, err = os.Stat(store.Path("bg-game"))
	require.NoError(t, err)
}
