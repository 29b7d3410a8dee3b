package engine

import "sort"

// computeCallers surveys every other seat for claims on a tile. For a
// chankan check only ron entries are produced. Option tiles are the
// lowest-numbered physical copies, so the result is deterministic.
func computeCallers(g *GameState, fromSeat int, tile Tile, chankan bool) []Caller {
	r := &g.Round
	var out []Caller

	for seat := 0; seat < 4; seat++ {
		if seat == fromSeat {
			continue
		}
		p := &r.Players[seat]

		if WinsOn(p, tile) && !IsFuriten(p, PlayerWaits(p)) {
			ctx := winContext(g, seat, tile, false, chankan)
			if _, err := Evaluate(ctx); err == nil {
				out = append(out, Caller{Seat: seat, Ron: true})
			}
		}
		if chankan || p.Riichi || p.RiichiPending || r.Wall.Remaining() == 0 {
			continue
		}

		copies := tilesOfType(p.Tiles, tile.Type())
		if len(copies) >= 2 {
			out = append(out, Caller{Seat: seat, Option: &MeldOption{
				Type: MeldPon, Tiles: copies[:2],
			}})
		}
		if len(copies) == 3 {
			out = append(out, Caller{Seat: seat, Option: &MeldOption{
				Type: MeldOpenKan, Tiles: copies[:3],
			}})
		}
		if seat == NextSeat(fromSeat) && !tile.IsHonor() {
			for _, opt := range chiOptions(p.Tiles, tile) {
				opt := opt
				out = append(out, Caller{Seat: seat, Option: &opt})
			}
		}
	}
	return out
}

// tilesOfType returns the hand's physical copies of a type, ascending.
func tilesOfType(hand []Tile, ty int) []Tile {
	var out []Tile
	for _, t := range hand {
		if t.Type() == ty {
			out = append(out, t)
		}
	}
	return out
}

// chiOptions enumerates the sequences the hand can form around a suited
// tile: (n-2,n-1), (n-1,n+1), (n+1,n+2) within the suit.
func chiOptions(hand []Tile, tile Tile) []MeldOption {
	ty := tile.Type()
	num := ty % 9 // 0-based
	var out []MeldOption
	for _, pair := range [][2]int{{-2, -1}, {-1, 1}, {1, 2}} {
		a, b := num+pair[0], num+pair[1]
		if a < 0 || b > 8 {
			continue
		}
		ca := tilesOfType(hand, ty+pair[0])
		cb := tilesOfType(hand, ty+pair[1])
		if len(ca) == 0 || len(cb) == 0 {
			continue
		}
		out = append(out, MeldOption{Type: MeldChi, Tiles: []Tile{ca[0], cb[0]}})
	}
	return out
}

// handlePromptResponse records one seat's answer to the pending prompt
// and resolves it once every seat has spoken.
func handlePromptResponse(g *GameState, seat int, action Action, data ActionData) ([]Event, error) {
	r := &g.Round
	prompt := r.Prompt
	if !prompt.PendingSeats[seat] {
		return nil, ruleErrorf(CodeNoPrompt, "no response pending for this seat")
	}

	switch action {
	case ActionPass:
	case ActionRon:
		if !prompt.SeatHasRon(seat) {
			return nil, invalidAction("no ron available on this tile")
		}
	case ActionPon, ActionChi, ActionKan:
		if prompt.Type == CallChankan {
			return nil, invalidAction("only CALL_RON or PASS answer a chankan prompt")
		}
		if _, err := matchOption(prompt, seat, action, data); err != nil {
			return nil, err
		}
	default:
		return nil, invalidAction("%s does not answer a call prompt", action)
	}

	prompt.Responses = append(prompt.Responses, Response{Seat: seat, Action: action, Data: data})
	delete(prompt.PendingSeats, seat)
	if len(prompt.PendingSeats) > 0 {
		return nil, nil
	}
	return resolvePrompt(g)
}

// matchOption finds the prompt entry a meld response refers to.
func matchOption(prompt *CallPrompt, seat int, action Action, data ActionData) (*MeldOption, error) {
	want := map[Action]MeldType{
		ActionPon: MeldPon,
		ActionChi: MeldChi,
		ActionKan: MeldOpenKan,
	}[action]

	var candidates []*MeldOption
	for i := range prompt.Callers {
		e := &prompt.Callers[i]
		if e.Seat == seat && e.Option != nil && e.Option.Type == want {
			candidates = append(candidates, e.Option)
		}
	}
	if len(candidates) == 0 {
		return nil, invalidAction("no %s available on this tile", action)
	}
	if want == MeldChi && len(data.SequenceTiles) == 2 {
		for _, opt := range candidates {
			if sameTypePair(opt.Tiles, data.SequenceTiles) {
				return opt, nil
			}
		}
		return nil, invalidAction("sequence tiles do not form a chi with the called tile")
	}
	if len(candidates) > 1 {
		return nil, ruleErrorf(CodeValidationError, "ambiguous chi; sequence_tiles required")
	}
	return candidates[0], nil
}

func sameTypePair(a, b []Tile) bool {
	if len(a) != 2 || len(b) != 2 {
		return false
	}
	at := []int{a[0].Type(), a[1].Type()}
	bt := []int{b[0].Type(), b[1].Type()}
	sort.Ints(at)
	sort.Ints(bt)
	return at[0] == bt[0] && at[1] == bt[1]
}

// resolvePrompt settles a fully-answered prompt: ron over meld over
// pass, ties to the seat closest counter-clockwise of the source.
func resolvePrompt(g *GameState) ([]Event, error) {
	r := &g.Round
	prompt := r.Prompt
	r.Prompt = nil

	var rons []int
	type meldAnswer struct {
		seat int
		opt  *MeldOption
	}
	var melds []meldAnswer
	var passed []int
	for _, resp := range prompt.Responses {
		switch resp.Action {
		case ActionRon:
			rons = append(rons, resp.Seat)
		case ActionPon, ActionChi, ActionKan:
			opt, err := matchOption(prompt, resp.Seat, resp.Action, resp.Data)
			if err != nil {
				return nil, err
			}
			melds = append(melds, meldAnswer{seat: resp.Seat, opt: opt})
		default:
			passed = append(passed, resp.Seat)
		}
	}

	if len(rons) > 0 {
		if len(rons) >= 3 && g.Settings.TripleRonDraw {
			return abortiveDraw(g, AbortTripleRon)
		}
		// Counter-clockwise from the source; the first winner takes
		// honba and the pot.
		sort.Slice(rons, func(i, j int) bool {
			return seatDistance(prompt.FromSeat, rons[i]) < seatDistance(prompt.FromSeat, rons[j])
		})
		chankan := prompt.Type == CallChankan
		wins := make([]wonHand, 0, len(rons))
		for _, seat := range rons {
			ctx := winContext(g, seat, prompt.Tile, false, chankan)
			score, err := Evaluate(ctx)
			if err != nil {
				return nil, err
			}
			wins = append(wins, wonHand{Seat: seat, Score: score, Ctx: ctx})
		}
		return resolveWins(g, wins, prompt.FromSeat)
	}

	if len(melds) > 0 {
		best := melds[0]
		for _, m := range melds[1:] {
			if meldRank(m.opt.Type) > meldRank(best.opt.Type) ||
				(meldRank(m.opt.Type) == meldRank(best.opt.Type) &&
					seatDistance(prompt.FromSeat, m.seat) < seatDistance(prompt.FromSeat, best.seat)) {
				best = m
			}
		}
		return applyMeld(g, prompt, best.seat, best.opt)
	}

	// All passed. A passed ron is furiten until the seat's next draw,
	// permanently under riichi.
	var events []Event
	for _, seat := range passed {
		if !prompt.SeatHasRon(seat) {
			continue
		}
		p := &r.Players[seat]
		p.FuritenTemp = true
		if p.Riichi {
			p.FuritenRiichi = true
		}
		events = append(events, FuritenEvent{Seat: seat, Active: true})
	}

	if prompt.Type == CallChankan {
		// The added kan stands: flip its indicator and take the
		// replacement draw.
		events = append(events, revealDeferredDora(r)...)
		events = append(events, drawTile(g, prompt.FromSeat, true)...)
		return events, nil
	}

	evs, err := afterDiscardPasses(g, prompt.FromSeat)
	if err != nil {
		return nil, err
	}
	return append(events, evs...), nil
}

func meldRank(t MeldType) int {
	switch t {
	case MeldOpenKan, MeldPon:
		return 2
	case MeldChi:
		return 1
	}
	return 0
}

// seatDistance is the counter-clockwise distance from one seat to
// another, 1..3.
func seatDistance(from, to int) int {
	return ((to - from) % 4 + 4) % 4
}

// applyMeld forms the winning claim: the called tile leaves the
// discard pile, the meld opens, and play continues from the caller.
func applyMeld(g *GameState, prompt *CallPrompt, seat int, opt *MeldOption) ([]Event, error) {
	r := &g.Round
	discarder := &r.Players[prompt.FromSeat]
	caller := &r.Players[seat]

	// A called riichi-declaration discard still finalizes the bet; only
	// a ron cancels it.
	events := finalizeRiichi(g, prompt.FromSeat)

	discarder.Discards = discarder.Discards[:len(discarder.Discards)-1]
	discarder.DiscardCalled = true
	r.AnyCall = true
	for s := 0; s < 4; s++ {
		r.Players[s].Ippatsu = false
	}

	tiles := append(append([]Tile(nil), opt.Tiles...), prompt.Tile)
	sort.Slice(tiles, func(i, j int) bool { return tiles[i] < tiles[j] })
	meld := Meld{
		Type:       opt.Type,
		Tiles:      tiles,
		Opened:     true,
		CalledTile: prompt.Tile,
		CallerSeat: seat,
		FromSeat:   prompt.FromSeat,
	}
	for _, t := range opt.Tiles {
		caller.removeTile(t)
	}
	caller.Melds = append(caller.Melds, meld)
	caller.LastDraw = -1
	caller.Kuikae = kuikaeTypes(opt, prompt.Tile)
	checkPao(caller, prompt.FromSeat)

	r.CurrentSeat = seat
	r.TurnCount++
	events = append(events, MeldEvent{Meld: meld})

	if opt.Type == MeldOpenKan {
		r.KanCount[seat]++
		r.Wall.PendingDora++
		events = append(events, drawTile(g, seat, true)...)
	}
	return events, nil
}

// kuikaeTypes lists the discard types forbidden right after a call: the
// called type itself and, for a chi, the opposite-end suji tile.
func kuikaeTypes(opt *MeldOption, called Tile) []int {
	out := []int{called.Type()}
	if opt.Type != MeldChi {
		return out
	}
	ty := called.Type()
	lo := ty
	for _, t := range opt.Tiles {
		if t.Type() < lo {
			lo = t.Type()
		}
	}
	switch {
	case ty == lo && ty%9+3 <= 8: // called the low end, e.g. 4 into 4-5-6
		out = append(out, ty+3)
	case ty == lo+2 && ty%9-3 >= 0: // called the high end
		out = append(out, ty-3)
	}
	return out
}

// checkPao marks the feeder liable when a call completes the third
// dragon set or the fourth wind set.
func checkPao(caller *Player, fromSeat int) {
	dragons, winds := 0, 0
	for _, m := range caller.Melds {
		ty := m.Tiles[0].Type()
		if m.Type == MeldChi {
			continue
		}
		switch {
		case ty >= TypeHaku:
			dragons++
		case ty >= TypeEast:
			winds++
		}
	}
	last := caller.Melds[len(caller.Melds)-1]
	ty := last.Tiles[0].Type()
	if ty >= TypeHaku && dragons == 3 {
		caller.PaoSeat = fromSeat
	}
	if ty >= TypeEast && ty < TypeHaku && winds == 4 {
		caller.PaoSeat = fromSeat
	}
}
