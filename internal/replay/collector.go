package replay

import (
	"bytes"
	"encoding/json"

	"github.com/janpai/server/internal/event"
	"github.com/janpai/server/internal/proto"
)

// Version tags the file format; bump on any line-shape change.
const Version = 1

type versionLine struct {
	Version int `json:"version"`
}

// roundStartedRecord is the merged round_started line: the per-seat
// copies collapse into one record carrying every seat's initial tiles
// in players[i].tl.
type roundStartedRecord struct {
	T             string              `json:"t"`
	Players       []proto.RoundPlayer `json:"pl"`
	DealerSeat    int                 `json:"ds"`
	RoundWind     int                 `json:"rw"`
	RoundNumber   int                 `json:"rn"`
	Honba         int                 `json:"hb"`
	RiichiSticks  int                 `json:"rs"`
	DoraIndicator int                 `json:"di"`
	Dice          [2]int              `json:"dc"`
}

// Collector buffers one game's replay as JSON lines. It runs under the
// per-game lock, so it keeps no mutex of its own.
type Collector struct {
	gameID  string
	seed    string
	lines   []json.RawMessage
	pending *roundStartedRecord
	filled  int
}

func NewCollector(gameID string) *Collector {
	return &Collector{gameID: gameID}
}

func (c *Collector) GameID() string { return c.gameID }
func (c *Collector) Seed() string   { return c.seed }

// Observe appends the qualifying events of one committed batch.
// Prompts, errors, furiten and turn action hints never reach the file;
// a draw keeps only its tile.
func (c *Collector) Observe(batch []event.ServiceEvent) {
	for _, ev := range batch {
		switch payload := ev.Payload.(type) {
		case *proto.GameStarted:
			c.seed = payload.Seed
			c.append(payload)
		case *proto.RoundStarted:
			c.mergeRoundStarted(payload)
		case *proto.Draw:
			stripped := *payload
			stripped.Actions = nil
			c.append(&stripped)
		case *proto.Discard, *proto.Meld, *proto.RiichiDeclared,
			*proto.DoraRevealed, *proto.RoundEnd, *proto.GameEnd:
			c.append(payload)
		case *proto.CallPrompt, *proto.Furiten, *proto.GameError:
			// transient, not part of the record
		}
	}
}

// mergeRoundStarted folds the per-seat copies of one round start into a
// single record. The batch always carries every seat's copy.
func (c *Collector) mergeRoundStarted(e *proto.RoundStarted) {
	if c.pending == nil {
		players := make([]proto.RoundPlayer, len(e.Players))
		copy(players, e.Players)
		c.pending = &roundStartedRecord{
			T:             e.T,
			Players:       players,
			DealerSeat:    e.DealerSeat,
			RoundWind:     e.RoundWind,
			RoundNumber:   e.RoundNumber,
			Honba:         e.Honba,
			RiichiSticks:  e.RiichiSticks,
			DoraIndicator: e.DoraIndicator,
			Dice:          e.Dice,
		}
		c.filled = 0
	}
	if e.Seat >= 0 && e.Seat < len(c.pending.Players) {
		c.pending.Players[e.Seat].Tiles = e.Tiles
		c.filled++
	}
	if c.filled == len(c.pending.Players) {
		c.append(c.pending)
		c.pending = nil
	}
}

func (c *Collector) append(payload any) {
	line, err := json.Marshal(payload)
	if err != nil {
		// Shapes are plain structs; a marshal failure is a bug, and
		// replays must never take the game down. Drop the line.
		return
	}
	c.lines = append(c.lines, line)
}

// Bytes renders the version line followed by one event per line.
func (c *Collector) Bytes() []byte {
	var buf bytes.Buffer
	head, _ := json.Marshal(versionLine{Version: Version})
	buf.Write(head)
	for _, line := range c.lines {
		buf.WriteByte('\n')
		buf.Write(line)
	}
	return buf.Bytes()
}
