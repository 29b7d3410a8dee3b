package game

import (
	"fmt"

	"github.com/janpai/server/internal/engine"
	"github.com/janpai/server/internal/proto"
)

// BuildSnapshot assembles the reconnection view for one seat: every
// public fact plus that seat's own hand. Other hands stay hidden.
func (s *Service) BuildSnapshot(gameID string, seat int) (*proto.Snapshot, error) {
	c, err := s.get(gameID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if seat < 0 || seat >= numSeats {
		return nil, fmt.Errorf("seat %d out of range", seat)
	}
	gs := &c.state
	r := &gs.Round

	snap := &proto.Snapshot{
		GameID:      gameID,
		Seat:        seat,
		DealerSeat:  r.DealerSeat,
		DealerDice:  gs.DealerDice,
		RoundWind:   r.RoundWind,
		RoundNumber: gs.RoundNumber,
		CurrentSeat: r.CurrentSeat,
		Honba:       gs.Honba,
		Sticks:      gs.RiichiSticks,
		Dice:        r.Wall.Dice,
		Remaining:   r.Wall.Remaining(),
	}
	for _, ind := range r.Wall.DoraIndicators() {
		snap.Indicators = append(snap.Indicators, int(ind))
	}
	for _, t := range r.Players[seat].Tiles {
		snap.Tiles = append(snap.Tiles, int(t))
	}
	for _, info := range c.seats {
		snap.Players = append(snap.Players, proto.SnapshotRoster{Name: info.Name, AI: info.AI})
	}
	for i := 0; i < numSeats; i++ {
		p := &r.Players[i]
		ss := proto.SnapshotSeat{
			Seat:     i,
			Score:    p.Score,
			IsRiichi: p.Riichi,
		}
		for _, d := range p.Discards {
			ss.Discards = append(ss.Discards, proto.SnapshotDiscard{
				TileID:          int(d.Tile),
				IsTsumogiri:     d.Tsumogiri,
				IsRiichiDiscard: d.RiichiDiscard,
			})
		}
		for _, m := range p.Melds {
			ss.Melds = append(ss.Melds, proto.Meld{
				T:          string(engine.EvMeld),
				Kind:       string(m.Type),
				Tiles:      meldTileIDs(m.Tiles),
				CalledTile: int(m.CalledTile),
				CallerSeat: m.CallerSeat,
				FromSeat:   m.FromSeat,
				Opened:     m.Opened,
			})
		}
		snap.Seats = append(snap.Seats, ss)
	}
	return snap, nil
}

func meldTileIDs(tiles []engine.Tile) []int {
	out := make([]int, len(tiles))
	for i, t := range tiles {
		out[i] = int(t)
	}
	return out
}
