package engine

// NewGame builds the initial state for a fresh game: seats permuted
// deterministically from the seed, the first dealer rolled, and the
// first round dealt.
func NewGame(playerNames []string, seedHex string, settings Settings) (GameState, []Event, error) {
	var gs GameState
	if err := settings.Validate(); err != nil {
		return gs, nil, err
	}
	if len(playerNames) != 4 {
		return gs, nil, invalidAction("a game needs 4 players, got %d", len(playerNames))
	}
	seed, err := ParseSeed(seedHex)
	if err != nil {
		return gs, nil, err
	}

	names := append([]string(nil), playerNames...)
	drng := DealerRNG(seed)
	for i := 0; i < len(names)-1; i++ {
		j := i + int(drng.Bounded(uint64(len(names)-i)))
		names[i], names[j] = names[j], names[i]
	}
	d1, d2 := drng.Die(), drng.Die()
	dealer := (d1 + d2 - 1) % 4

	gs = GameState{
		RoundNumber:   0,
		UniqueDealers: 1,
		Phase:         GameInProgress,
		Seed:          seed,
		Settings:      settings,
		RNGVersion:    RNGVersion,
		DealerDice:    [2]int{d1, d2},
	}
	for i := range gs.Round.Players {
		gs.Round.Players[i] = Player{
			Seat:     i,
			Name:     names[i],
			Score:    settings.StartScore,
			PaoSeat:  -1,
			LastDraw: -1,
		}
	}
	gs.Round.DealerSeat = dealer

	events := []Event{GameStartedEvent{
		Players:    names,
		SeedHex:    seedHex,
		RNGVersion: RNGVersion,
	}}
	evs := startRound(&gs)
	return gs, append(events, evs...), nil
}

// startRound deals a fresh wall for gs.RoundNumber and draws for the
// dealer. Scores, seats and sticks carry over on the players.
func startRound(g *GameState) []Event {
	r := &g.Round
	dealer := r.DealerSeat
	for i := range r.Players {
		p := &r.Players[i]
		p.Tiles = nil
		p.Discards = nil
		p.Melds = nil
		p.Riichi = false
		p.Ippatsu = false
		p.Daburi = false
		p.Rinshan = false
		p.RiichiPending = false
		p.Kuikae = nil
		p.PaoSeat = -1
		p.LastDraw = -1
		p.DiscardCalled = false
		p.FuritenRiichi = false
		p.FuritenTemp = false
	}
	r.Wall = BuildWall(RoundRNG(g.Seed, uint32(g.RoundNumber)), dealer)
	r.CurrentSeat = dealer
	r.RoundWind = (g.UniqueDealers - 1) / g.Settings.NumPlayers
	r.TurnCount = 0
	r.AllDiscards = nil
	r.Phase = PhasePlaying
	r.Prompt = nil
	r.AnyCall = false
	r.KanCount = [4]int{}
	r.PendingConfirm = nil
	r.Result = nil

	// Deal in the traditional 4-4-4-1 pattern, dealer first.
	for block := 0; block < 3; block++ {
		for off := 0; off < 4; off++ {
			seat := (dealer + off) % 4
			for k := 0; k < 4; k++ {
				r.Players[seat].addTile(r.Wall.Draw())
			}
		}
	}
	for off := 0; off < 4; off++ {
		seat := (dealer + off) % 4
		r.Players[seat].addTile(r.Wall.Draw())
	}

	var events []Event
	info := make([]RoundPlayerInfo, 4)
	for i := range r.Players {
		info[i] = RoundPlayerInfo{Seat: i, Name: r.Players[i].Name, Score: r.Players[i].Score}
	}
	for seat := range r.Players {
		events = append(events, RoundStartedEvent{
			Seat:          seat,
			Tiles:         append([]Tile(nil), r.Players[seat].Tiles...),
			Players:       info,
			DealerSeat:    dealer,
			RoundWind:     r.RoundWind,
			RoundNumber:   g.RoundNumber,
			Honba:         g.Honba,
			RiichiSticks:  g.RiichiSticks,
			DoraIndicator: r.Wall.DoraIndicators()[0],
			Dice:          r.Wall.Dice,
		})
	}
	events = append(events, drawTile(g, dealer, false)...)
	return events
}

// Transition applies one action for one seat, returning the replacement
// state and the emitted events. The input state is never mutated; on
// error it is returned unchanged.
func Transition(gs GameState, seat int, action Action, data ActionData) (GameState, []Event, error) {
	if gs.Phase == GameFinished {
		return gs, nil, ruleErrorf(CodeGameFinished, "the game is over")
	}
	if !KnownAction(action) {
		return gs, nil, ruleErrorf(CodeUnknownAction, "unknown action %q", action)
	}
	if seat < 0 || seat > 3 {
		return gs, nil, ruleErrorf(CodeUnknownPlayer, "seat %d out of range", seat)
	}

	g := gs.clone()
	var events []Event
	var err error

	switch {
	case g.Round.Phase == PhaseFinished:
		events, err = handleConfirm(&g, seat, action)
	case g.Round.Prompt != nil:
		events, err = handlePromptResponse(&g, seat, action, data)
	default:
		events, err = handleTurnAction(&g, seat, action, data)
	}
	if err != nil {
		return gs, nil, err
	}
	return g, events, nil
}

// handleTurnAction covers the current player's own-turn actions.
func handleTurnAction(g *GameState, seat int, action Action, data ActionData) ([]Event, error) {
	r := &g.Round
	if r.Phase != PhasePlaying {
		return nil, ruleErrorf(CodeRoundFinished, "round is not in progress")
	}
	if seat != r.CurrentSeat {
		return nil, ruleErrorf(CodeNotYourTurn, "it is seat %d's turn", r.CurrentSeat)
	}
	switch action {
	case ActionDiscard:
		if data.TileID == nil {
			return nil, ruleErrorf(CodeValidationError, "DISCARD requires tile_id")
		}
		return handleDiscard(g, seat, Tile(*data.TileID), false)
	case ActionRiichi:
		if data.TileID == nil {
			return nil, ruleErrorf(CodeValidationError, "DECLARE_RIICHI requires tile_id")
		}
		return handleDiscard(g, seat, Tile(*data.TileID), true)
	case ActionTsumo:
		return handleTsumo(g, seat)
	case ActionKan:
		return handleKanDeclare(g, seat, data)
	case ActionKyuushu:
		return handleKyuushu(g, seat)
	case ActionPass, ActionRon, ActionPon, ActionChi:
		return nil, invalidAction("no call prompt is pending")
	case ActionConfirm:
		return nil, invalidAction("round is still in progress")
	}
	return nil, ruleErrorf(CodeUnknownAction, "unknown action %q", action)
}

// handleDiscard validates and records a discard, then either opens a
// call prompt or continues the turn cycle.
func handleDiscard(g *GameState, seat int, tile Tile, riichi bool) ([]Event, error) {
	r := &g.Round
	p := &r.Players[seat]

	if !ValidTile(int(tile)) {
		return nil, ruleErrorf(CodeValidationError, "tile %d out of range", int(tile))
	}
	if !p.HasTile(tile) {
		return nil, invalidDiscard("tile %v is not in hand", tile)
	}
	for _, ty := range p.Kuikae {
		if tile.Type() == ty {
			return nil, invalidDiscard("tile %v is kuikae-forbidden after the call", tile)
		}
	}
	if p.Riichi && tile != p.LastDraw {
		return nil, invalidDiscard("riichi hands must discard the drawn tile")
	}

	if riichi {
		if err := checkRiichi(g, p); err != nil {
			return nil, err
		}
		stillTenpai := false
		for _, t := range TenpaiDiscards(p) {
			if t.Type() == tile.Type() {
				stillTenpai = true
				break
			}
		}
		if !stillTenpai {
			return nil, invalidDiscard("discarding %v would break tenpai", tile)
		}
		p.RiichiPending = true
		if len(p.Discards) == 0 && !r.AnyCall {
			p.Daburi = true
		}
	}

	tsumogiri := tile == p.LastDraw
	if p.Riichi && p.Ippatsu {
		// The riichi go-around ends with this discard.
		p.Ippatsu = false
	}

	p.removeTile(tile)
	p.Discards = append(p.Discards, Discard{Tile: tile, Tsumogiri: tsumogiri, RiichiDiscard: riichi})
	r.AllDiscards = append(r.AllDiscards, tile)
	p.Kuikae = nil
	p.Rinshan = false
	p.LastDraw = -1

	events := []Event{DiscardEvent{Seat: seat, Tile: tile, Tsumogiri: tsumogiri, RiichiDiscard: riichi}}

	callers := computeCallers(g, seat, tile, false)
	if len(callers) > 0 {
		prompt := &CallPrompt{
			Type:         CallDiscard,
			Tile:         tile,
			FromSeat:     seat,
			Callers:      callers,
			PendingSeats: map[int]bool{},
		}
		for _, c := range callers {
			prompt.PendingSeats[c.Seat] = true
		}
		r.Prompt = prompt
		events = append(events, CallPromptEvent{Prompt: prompt})
		return events, nil
	}

	evs, err := afterDiscardPasses(g, seat)
	if err != nil {
		return nil, err
	}
	return append(events, evs...), nil
}

// checkRiichi validates the riichi preconditions other than tenpai.
func checkRiichi(g *GameState, p *Player) error {
	switch {
	case p.Riichi || p.RiichiPending:
		return invalidAction("riichi is already declared")
	case !p.Closed():
		return invalidAction("riichi requires a closed hand")
	case p.Score < 1000:
		return invalidAction("riichi requires 1000 points")
	case g.Round.Wall.Remaining() < 4:
		return invalidAction("riichi requires at least 4 live tiles")
	}
	return nil
}

// afterDiscardPasses runs the bookkeeping once a discard survives with
// no callers (or after an all-pass resolution): deferred dora, riichi
// finalization, abortive-draw checks, then the next draw.
func afterDiscardPasses(g *GameState, discarder int) ([]Event, error) {
	r := &g.Round
	var events []Event

	events = append(events, revealDeferredDora(r)...)
	events = append(events, finalizeRiichi(g, discarder)...)

	if ev, ended := checkAbortiveAfterDiscard(g, discarder); ended {
		return append(events, ev...), nil
	}

	if r.Wall.Remaining() == 0 {
		evs, err := exhaustiveDraw(g)
		if err != nil {
			return nil, err
		}
		return append(events, evs...), nil
	}

	r.CurrentSeat = NextSeat(discarder)
	r.TurnCount++
	events = append(events, drawTile(g, r.CurrentSeat, false)...)
	return events, nil
}

// revealDeferredDora flips indicators deferred by open/added kans.
func revealDeferredDora(r *RoundState) []Event {
	var events []Event
	for r.Wall.PendingDora > 0 {
		r.Wall.PendingDora--
		if ind, ok := r.Wall.RevealDora(); ok {
			events = append(events, DoraRevealedEvent{Tile: ind})
		}
	}
	return events
}

// finalizeRiichi takes the bet once the declaration discard survived.
func finalizeRiichi(g *GameState, seat int) []Event {
	p := &g.Round.Players[seat]
	if !p.RiichiPending {
		return nil
	}
	p.RiichiPending = false
	p.Riichi = true
	p.Ippatsu = true
	p.Score -= 1000
	g.RiichiSticks++
	return []Event{RiichiDeclaredEvent{
		Seat:         seat,
		Score:        p.Score,
		RiichiSticks: g.RiichiSticks,
		Daburi:       p.Daburi,
	}}
}

// drawTile draws for a seat (live wall or dead wall) and emits the
// per-seat draw event with the drawer's available actions.
func drawTile(g *GameState, seat int, rinshan bool) []Event {
	r := &g.Round
	p := &r.Players[seat]

	var t Tile
	if rinshan {
		t = r.Wall.DrawRinshan()
		p.Rinshan = true
	} else {
		t = r.Wall.Draw()
		p.Rinshan = false
	}
	p.addTile(t)
	p.LastDraw = t
	p.FuritenTemp = false

	return []Event{DrawEvent{
		Seat:      seat,
		Tile:      t,
		Remaining: r.Wall.Remaining(),
		Rinshan:   rinshan,
		Actions:   availableActions(g, seat),
	}}
}

// availableActions surveys what the drawer may do besides discarding.
func availableActions(g *GameState, seat int) AvailableActions {
	r := &g.Round
	p := &r.Players[seat]
	var a AvailableActions

	if p.LastDraw >= 0 && WinsOn14(p) {
		if _, err := Evaluate(winContext(g, seat, p.LastDraw, true, false)); err == nil {
			a.CanTsumo = true
		}
	}

	if !p.Riichi && !p.RiichiPending && p.Closed() && p.Score >= 1000 && r.Wall.Remaining() >= 4 {
		if tiles := TenpaiDiscards(p); len(tiles) > 0 {
			a.CanRiichi = true
			a.RiichiTiles = tiles
		}
	}

	a.KanOptions = kanOptions(g, seat)
	a.CanKyuushu = kyuushuEligible(r, p)
	return a
}

// WinsOn14 reports whether a 14-shaped hand is complete as it stands.
func WinsOn14(p *Player) bool {
	return handWins(countByType(p.Tiles), len(p.Melds))
}

// kyuushuEligible: uninterrupted first go-around, own first turn, nine
// or more distinct terminal/honor types in the 14-tile hand.
func kyuushuEligible(r *RoundState, p *Player) bool {
	if r.AnyCall || len(p.Discards) > 0 {
		return false
	}
	counts := countByType(p.Tiles)
	kinds := 0
	for _, ty := range yaochuuTypes {
		if counts[ty] > 0 {
			kinds++
		}
	}
	return kinds >= 9
}

// handleKyuushu resolves the nine-terminals abortive draw.
func handleKyuushu(g *GameState, seat int) ([]Event, error) {
	r := &g.Round
	p := &r.Players[seat]
	if !g.Settings.NineTerminalsDraw {
		return nil, invalidAction("nine terminals draw is disabled")
	}
	if !kyuushuEligible(r, p) {
		return nil, invalidAction("nine terminals draw is not available")
	}
	return abortiveDraw(g, AbortNineTerminals)
}

// handleTsumo resolves a self-draw win.
func handleTsumo(g *GameState, seat int) ([]Event, error) {
	p := &g.Round.Players[seat]
	if p.LastDraw < 0 || !WinsOn14(p) {
		return nil, invalidAction("hand is not complete")
	}
	ctx := winContext(g, seat, p.LastDraw, true, false)
	score, err := Evaluate(ctx)
	if err != nil {
		return nil, invalidAction("winning hand has no yaku")
	}
	return resolveWins(g, []wonHand{{Seat: seat, Score: score, Ctx: ctx}}, -1)
}

// handleConfirm drains round-advance confirmations and starts the next
// round on the last one.
func handleConfirm(g *GameState, seat int, action Action) ([]Event, error) {
	if action != ActionConfirm {
		return nil, invalidAction("round is over; awaiting confirmations")
	}
	r := &g.Round
	if r.PendingConfirm == nil || !r.PendingConfirm[seat] {
		return nil, invalidAction("no confirmation pending for this seat")
	}
	delete(r.PendingConfirm, seat)
	if len(r.PendingConfirm) > 0 {
		return nil, nil
	}
	g.RoundNumber++
	return startRound(g), nil
}
