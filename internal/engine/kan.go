package engine

import "sort"

// kanOptions lists the quads the seat could declare on its own turn:
// closed kans from four-in-hand, added kans upgrading an earlier pon.
func kanOptions(g *GameState, seat int) []MeldOption {
	r := &g.Round
	p := &r.Players[seat]
	if r.Wall.Remaining() == 0 || kanBudgetSpent(r, seat) {
		return nil
	}

	var out []MeldOption
	counts := countByType(p.Tiles)
	for ty := 0; ty < TypeCount; ty++ {
		if counts[ty] != 4 {
			continue
		}
		if p.Riichi && !riichiKanAllowed(p, ty) {
			continue
		}
		out = append(out, MeldOption{Type: MeldClosedKan, Tiles: tilesOfType(p.Tiles, ty)})
	}
	if !p.Riichi {
		for _, m := range p.Melds {
			if m.Type != MeldPon {
				continue
			}
			if copies := tilesOfType(p.Tiles, m.Tiles[0].Type()); len(copies) == 1 {
				out = append(out, MeldOption{Type: MeldAddedKan, Tiles: copies})
			}
		}
	}
	return out
}

// kanBudgetSpent reports whether four quads already stand with no
// suukantsu in reach, so a fifth declaration would abort instead.
func kanBudgetSpent(r *RoundState, seat int) bool {
	total := 0
	for s := 0; s < 4; s++ {
		total += r.KanCount[s]
	}
	return total >= 4 && r.KanCount[seat] < 4
}

// riichiKanAllowed: under riichi only the freshly drawn tile may be
// kanned, and only when the quad leaves the waits untouched.
func riichiKanAllowed(p *Player, ty int) bool {
	if p.LastDraw < 0 || p.LastDraw.Type() != ty {
		return false
	}
	before := countByType(p.Tiles)
	before[ty]-- // the 13-tile shape the riichi was declared on
	after := countByType(p.Tiles)
	after[ty] -= 4
	w1 := WaitTypes(before, len(p.Melds))
	w2 := WaitTypes(after, len(p.Melds)+1)
	if len(w1) != len(w2) {
		return false
	}
	for i := range w1 {
		if w1[i] != w2[i] {
			return false
		}
	}
	return true
}

// handleKanDeclare handles an own-turn CALL_KAN: a closed quad or an
// added quad on an earlier pon. Open kans arrive through call prompts.
func handleKanDeclare(g *GameState, seat int, data ActionData) ([]Event, error) {
	r := &g.Round
	p := &r.Players[seat]

	if data.TileID == nil {
		return nil, ruleErrorf(CodeValidationError, "CALL_KAN requires tile_id")
	}
	tile := Tile(*data.TileID)
	if !ValidTile(int(tile)) {
		return nil, ruleErrorf(CodeValidationError, "tile %d out of range", int(tile))
	}
	if r.Wall.Remaining() == 0 {
		return nil, invalidAction("no replacement tile remains for a kan")
	}

	total := 0
	for s := 0; s < 4; s++ {
		total += r.KanCount[s]
	}
	if total >= 4 && r.KanCount[seat] < 4 {
		if g.Settings.FourKansDraw {
			return abortiveDraw(g, AbortFourKans)
		}
		return nil, invalidAction("four quads already stand")
	}

	ty := tile.Type()
	switch data.KanType {
	case KanClosed, "":
		copies := tilesOfType(p.Tiles, ty)
		if len(copies) != 4 {
			return nil, invalidAction("closed kan needs all four copies of %s in hand", TypeString(ty))
		}
		if p.Riichi && !riichiKanAllowed(p, ty) {
			return nil, invalidAction("that kan would change the riichi wait")
		}
		return applyClosedKan(g, seat, copies)
	case KanAdded:
		if p.Riichi {
			return nil, invalidAction("added kan is not allowed under riichi")
		}
		if !p.HasTile(tile) {
			return nil, invalidAction("tile %v is not in hand", tile)
		}
		for i := range p.Melds {
			if p.Melds[i].Type == MeldPon && p.Melds[i].Tiles[0].Type() == ty {
				return applyAddedKan(g, seat, i, tile)
			}
		}
		return nil, invalidAction("no pon of %s to extend", TypeString(ty))
	}
	return nil, ruleErrorf(CodeValidationError, "unknown kan_type %q", data.KanType)
}

// applyClosedKan forms the concealed quad, flips its indicator
// immediately and takes the replacement draw.
func applyClosedKan(g *GameState, seat int, tiles []Tile) ([]Event, error) {
	r := &g.Round
	p := &r.Players[seat]

	meld := Meld{
		Type:       MeldClosedKan,
		Tiles:      append([]Tile(nil), tiles...),
		CalledTile: -1,
		CallerSeat: seat,
		FromSeat:   -1,
	}
	for _, t := range tiles {
		p.removeTile(t)
	}
	p.Melds = append(p.Melds, meld)
	interruptGoAround(r)
	r.KanCount[seat]++

	events := []Event{MeldEvent{Meld: meld}}
	if ind, ok := r.Wall.RevealDora(); ok {
		events = append(events, DoraRevealedEvent{Tile: ind})
	}
	events = append(events, drawTile(g, seat, true)...)
	return events, nil
}

// applyAddedKan upgrades a pon, opens the chankan window if anyone can
// rob the tile, and otherwise flips the deferred indicator and draws.
func applyAddedKan(g *GameState, seat int, meldIdx int, tile Tile) ([]Event, error) {
	r := &g.Round
	p := &r.Players[seat]

	m := &p.Melds[meldIdx]
	m.Type = MeldAddedKan
	m.Tiles = append(m.Tiles, tile)
	sort.Slice(m.Tiles, func(i, j int) bool { return m.Tiles[i] < m.Tiles[j] })
	p.removeTile(tile)
	p.LastDraw = -1
	interruptGoAround(r)
	r.KanCount[seat]++
	r.Wall.PendingDora++

	events := []Event{MeldEvent{Meld: *m}}

	if callers := computeCallers(g, seat, tile, true); len(callers) > 0 {
		prompt := &CallPrompt{
			Type:         CallChankan,
			Tile:         tile,
			FromSeat:     seat,
			Callers:      callers,
			PendingSeats: map[int]bool{},
		}
		for _, c := range callers {
			prompt.PendingSeats[c.Seat] = true
		}
		r.Prompt = prompt
		return append(events, CallPromptEvent{Prompt: prompt}), nil
	}

	// No one can rob the tile; the indicator stays deferred until the
	// next discard settles.
	events = append(events, drawTile(g, seat, true)...)
	return events, nil
}

// interruptGoAround marks the first go-around broken and ends every
// ippatsu window; every quad declaration counts as a call.
func interruptGoAround(r *RoundState) {
	r.AnyCall = true
	for s := 0; s < 4; s++ {
		r.Players[s].Ippatsu = false
	}
}
