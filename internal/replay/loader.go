package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/janpai/server/internal/engine"
)

// ReplayEvent is one reconstructed player action.
type ReplayEvent struct {
	PlayerName string
	Action     engine.Action
	Data       engine.ActionData
}

// ReplayInput is everything needed to re-drive a recorded game through
// the engine: the seed rebuilds the walls, the actions replay the
// decisions.
type ReplayInput struct {
	Seed        string
	PlayerNames []string
	Events      []ReplayEvent
}

// Load reads a replay file written by the collector.
func Load(path string) (*ReplayInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay %s: %w", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read replay %s: %w", path, err)
	}
	defer zr.Close()

	return Parse(zr)
}

// Parse reconstructs the input from the decompressed line stream.
func Parse(r io.Reader) (*ReplayInput, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !sc.Scan() {
		return nil, fmt.Errorf("replay is empty")
	}
	var head versionLine
	if err := json.Unmarshal(sc.Bytes(), &head); err != nil {
		return nil, fmt.Errorf("parse version line: %w", err)
	}
	if head.Version != Version {
		return nil, fmt.Errorf("unsupported replay version %d", head.Version)
	}

	in := &ReplayInput{}
	lineNo := 1
	for sc.Scan() {
		lineNo++
		var tag struct {
			T string `json:"t"`
		}
		if err := json.Unmarshal(sc.Bytes(), &tag); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := in.apply(tag.T, sc.Bytes()); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read replay: %w", err)
	}
	if in.Seed == "" {
		return nil, fmt.Errorf("replay has no game_started event")
	}
	return in, nil
}

// apply maps one line onto the input. The switch is the full allowlist:
// an event type outside it means the file came from a newer or foreign
// writer, and the load fails rather than silently skipping decisions.
func (in *ReplayInput) apply(kind string, line []byte) error {
	switch engine.EventType(kind) {
	case engine.EvGameStarted:
		var e struct {
			Players []string `json:"pl"`
			Seed    string   `json:"sd"`
		}
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		in.Seed = e.Seed
		in.PlayerNames = e.Players

	case engine.EvDiscard:
		var e struct {
			Seat   int  `json:"s"`
			Tile   int  `json:"tl"`
			Riichi bool `json:"rd"`
		}
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		action := engine.ActionDiscard
		if e.Riichi {
			action = engine.ActionRiichi
		}
		tile := e.Tile
		in.add(e.Seat, action, engine.ActionData{TileID: &tile})

	case engine.EvMeld:
		var e struct {
			Kind       string `json:"mt"`
			Tiles      []int  `json:"tl"`
			CalledTile int    `json:"ct"`
			CallerSeat int    `json:"cs"`
		}
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		return in.addMeld(e.Kind, e.Tiles, e.CalledTile, e.CallerSeat)

	case engine.EvRoundEnd:
		var e struct {
			Wins []struct {
				Seat  int  `json:"s"`
				Tsumo bool `json:"ts"`
			} `json:"ws"`
		}
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		for _, w := range e.Wins {
			if w.Tsumo {
				in.add(w.Seat, engine.ActionTsumo, engine.ActionData{})
			} else {
				in.add(w.Seat, engine.ActionRon, engine.ActionData{})
			}
		}

	case engine.EvRoundStarted, engine.EvDraw, engine.EvRiichi,
		engine.EvDoraRevealed, engine.EvGameEnd:
		// carried for viewers; no decision to replay

	default:
		return fmt.Errorf("unknown replay event type %q", kind)
	}
	return nil
}

func (in *ReplayInput) addMeld(kind string, tiles []int, calledTile, caller int) error {
	switch engine.MeldType(kind) {
	case engine.MeldPon:
		in.add(caller, engine.ActionPon, engine.ActionData{})
	case engine.MeldChi:
		var seq []engine.Tile
		for _, id := range tiles {
			if id != calledTile {
				seq = append(seq, engine.Tile(id))
			}
		}
		in.add(caller, engine.ActionChi, engine.ActionData{SequenceTiles: seq})
	case engine.MeldOpenKan:
		in.add(caller, engine.ActionKan, engine.ActionData{KanType: engine.KanOpen})
	case engine.MeldClosedKan:
		if len(tiles) == 0 {
			return fmt.Errorf("closed kan record has no tiles")
		}
		tile := tiles[0]
		in.add(caller, engine.ActionKan, engine.ActionData{TileID: &tile, KanType: engine.KanClosed})
	case engine.MeldAddedKan:
		tile := calledTile
		in.add(caller, engine.ActionKan, engine.ActionData{TileID: &tile, KanType: engine.KanAdded})
	default:
		return fmt.Errorf("unknown meld kind %q", kind)
	}
	return nil
}

func (in *ReplayInput) add(seat int, action engine.Action, data engine.ActionData) {
	name := ""
	if seat >= 0 && seat < len(in.PlayerNames) {
		name = in.PlayerNames[seat]
	}
	in.Events = append(in.Events, ReplayEvent{PlayerName: name, Action: action, Data: data})
}
