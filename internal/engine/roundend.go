package engine

// RoundResultType discriminates how a round ended.
type RoundResultType string

const (
	ResultWin        RoundResultType = "WIN"
	ResultExhaustive RoundResultType = "EXHAUSTIVE_DRAW"
	ResultAbortive   RoundResultType = "ABORTIVE_DRAW"
)

// AbortReason names the abortive draw that ended the round.
type AbortReason string

const (
	AbortNineTerminals AbortReason = "NINE_TERMINALS"
	AbortFourWinds     AbortReason = "FOUR_WINDS"
	AbortFourRiichi    AbortReason = "FOUR_RIICHI"
	AbortFourKans      AbortReason = "FOUR_KANS"
	AbortTripleRon     AbortReason = "TRIPLE_RON"
)

// WinResult is one winning hand in a round result. Double ron produces
// two entries.
type WinResult struct {
	Seat     int
	FromSeat int // discarder, -1 on tsumo
	Tsumo    bool
	WinTile  Tile
	Score    *WinScore

	// CostMain/CostAdditional follow the payment matrix: on ron,
	// CostMain is the discarder's full payment; on tsumo, CostMain is
	// the dealer's (or, for a dealer win, every loser's) payment and
	// CostAdditional the other losers'.
	CostMain       int
	CostAdditional int

	PaoSeat       int // liable seat, -1 if none
	UraIndicators []Tile
}

// RoundResult is the terminal outcome of one round.
type RoundResult struct {
	Type  RoundResultType
	Wins  []WinResult
	Abort AbortReason

	TenpaiSeats  []int
	NagashiSeats []int

	// ScoreChanges is the per-seat delta applied by this result,
	// including honba and claimed riichi sticks.
	ScoreChanges [4]int

	DealerRetained bool
}

// winContext assembles the scoring context for a completed hand. For a
// ron the winning tile is appended to the concealed tiles.
func winContext(g *GameState, seat int, winTile Tile, tsumo, chankan bool) *WinContext {
	r := &g.Round
	p := &r.Players[seat]

	concealed := append([]Tile(nil), p.Tiles...)
	if !tsumo {
		concealed = append(concealed, winTile)
	}

	firstGoAround := !r.AnyCall && len(p.Discards) == 0 && len(p.Melds) == 0
	ctx := &WinContext{
		Seat:       seat,
		DealerSeat: r.DealerSeat,
		SeatWind:   r.SeatWind(seat),
		RoundWind:  TypeEast + r.RoundWind,
		WinTile:    winTile,
		Tsumo:      tsumo,

		Riichi:  p.Riichi,
		Daburi:  p.Daburi,
		Ippatsu: p.Ippatsu && g.Settings.Ippatsu,
		Rinshan: tsumo && p.Rinshan,
		Chankan: chankan,
		Haitei:  tsumo && !p.Rinshan && r.Wall.Remaining() == 0,
		Houtei:  !tsumo && !chankan && r.Wall.Remaining() == 0,
		Renhou:  !tsumo && !chankan && firstGoAround && seat != r.DealerSeat,
		Tenhou:  tsumo && firstGoAround && seat == r.DealerSeat,
		Chiihou: tsumo && firstGoAround && seat != r.DealerSeat,

		DoraTypes: r.Wall.DoraTypes(),

		Settings:  g.Settings,
		Melds:     p.Melds,
		Concealed: concealed,
	}
	if p.Riichi && g.Settings.UraDora {
		ctx.UraTypes = r.Wall.UraTypes()
	}
	return ctx
}

// wonHand pairs a winner with its already-evaluated score.
type wonHand struct {
	Seat  int
	Score *WinScore
	Ctx   *WinContext
}

// resolveWins applies payments for one or two wins. fromSeat is the
// discarder for ron/chankan, -1 for tsumo. Wins must be ordered
// counter-clockwise from the discarder; the first one takes honba and
// the riichi pot.
func resolveWins(g *GameState, wins []wonHand, fromSeat int) ([]Event, error) {
	r := &g.Round
	result := &RoundResult{Type: ResultWin}

	var changes [4]int
	for i, w := range wins {
		p := &r.Players[w.Seat]
		base := basePoints(w.Score, g.Settings)
		win := WinResult{
			Seat:     w.Seat,
			FromSeat: fromSeat,
			Tsumo:    w.Ctx.Tsumo,
			WinTile:  w.Ctx.WinTile,
			Score:    w.Score,
			PaoSeat:  -1,
		}
		if p.Riichi && g.Settings.UraDora {
			win.UraIndicators = append([]Tile(nil), r.Wall.UraIndicators()...)
		}

		pao := -1
		if w.Score.Yakuman > 0 && p.PaoSeat >= 0 {
			pao = p.PaoSeat
			win.PaoSeat = pao
		}

		isDealer := w.Seat == r.DealerSeat
		if w.Ctx.Tsumo {
			main, add := tsumoCosts(base, isDealer)
			win.CostMain, win.CostAdditional = main, add
			if pao >= 0 {
				// The liable seat pays the entire tsumo cost.
				total := main + 2*add
				if isDealer {
					total = main * 3
				}
				total += g.Honba * 300
				changes[pao] -= total
				changes[w.Seat] += total
			} else {
				for s := 0; s < 4; s++ {
					if s == w.Seat {
						continue
					}
					pay := add
					if isDealer || s == r.DealerSeat {
						pay = main
					}
					pay += g.Honba * 100
					changes[s] -= pay
					changes[w.Seat] += pay
				}
			}
		} else {
			cost := ronCost(base, isDealer)
			win.CostMain = cost
			honba := 0
			if i == 0 {
				honba = g.Honba * 300
			}
			if pao >= 0 && pao != fromSeat {
				half := roundUpTo(cost/2, 100)
				changes[fromSeat] -= cost - half + honba
				changes[pao] -= half
				changes[w.Seat] += cost + honba
			} else {
				changes[fromSeat] -= cost + honba
				changes[w.Seat] += cost + honba
			}
		}

		if i == 0 {
			changes[w.Seat] += g.RiichiSticks * 1000
			g.RiichiSticks = 0
		}
		result.Wins = append(result.Wins, win)
	}

	for s := 0; s < 4; s++ {
		r.Players[s].Score += changes[s]
	}
	result.ScoreChanges = changes

	dealerWon := false
	for _, w := range wins {
		if w.Seat == r.DealerSeat {
			dealerWon = true
		}
	}
	result.DealerRetained = dealerWon

	return finishRound(g, result)
}

// exhaustiveDraw settles a round whose live wall ran out.
func exhaustiveDraw(g *GameState) ([]Event, error) {
	r := &g.Round
	result := &RoundResult{Type: ResultExhaustive}

	var tenpai []int
	for s := 0; s < 4; s++ {
		if IsTenpai(&r.Players[s]) {
			tenpai = append(tenpai, s)
		}
	}
	result.TenpaiSeats = tenpai

	var nagashi []int
	if g.Settings.NagashiMangan {
		for s := 0; s < 4; s++ {
			p := &r.Players[s]
			if p.DiscardCalled || len(p.Discards) == 0 {
				continue
			}
			all := true
			for _, d := range p.Discards {
				if !d.Tile.IsTerminalOrHonor() {
					all = false
					break
				}
			}
			if all {
				nagashi = append(nagashi, s)
			}
		}
	}
	result.NagashiSeats = nagashi

	var changes [4]int
	if len(nagashi) > 0 {
		// Nagashi mangan replaces the tempai exchange: each qualifying
		// seat collects a mangan tsumo from the table.
		for _, s := range nagashi {
			main, add := tsumoCosts(2000, s == r.DealerSeat)
			for o := 0; o < 4; o++ {
				if o == s {
					continue
				}
				pay := add
				if s == r.DealerSeat || o == r.DealerSeat {
					pay = main
				}
				changes[o] -= pay
				changes[s] += pay
			}
		}
	} else if n := len(tenpai); n > 0 && n < 4 {
		gain := 3000 / n
		loss := 3000 / (4 - n)
		inTenpai := map[int]bool{}
		for _, s := range tenpai {
			inTenpai[s] = true
		}
		for s := 0; s < 4; s++ {
			if inTenpai[s] {
				changes[s] += gain
			} else {
				changes[s] -= loss
			}
		}
	}

	for s := 0; s < 4; s++ {
		r.Players[s].Score += changes[s]
	}
	result.ScoreChanges = changes

	dealerTenpai := false
	for _, s := range tenpai {
		if s == r.DealerSeat {
			dealerTenpai = true
		}
	}
	result.DealerRetained = dealerTenpai

	return finishRound(g, result)
}

// abortiveDraw ends the round with no score exchange. The dealer
// retains and honba increments.
func abortiveDraw(g *GameState, reason AbortReason) ([]Event, error) {
	result := &RoundResult{
		Type:           ResultAbortive,
		Abort:          reason,
		DealerRetained: true,
	}
	return finishRound(g, result)
}

// checkAbortiveAfterDiscard runs the draw checks that trigger once a
// discard survives: four riichi, four winds, four kans.
func checkAbortiveAfterDiscard(g *GameState, discarder int) ([]Event, bool) {
	r := &g.Round

	if g.Settings.FourRiichiDraw {
		all := true
		for s := 0; s < 4; s++ {
			if !r.Players[s].Riichi {
				all = false
				break
			}
		}
		if all {
			evs, _ := abortiveDraw(g, AbortFourRiichi)
			return evs, true
		}
	}

	if g.Settings.FourWindsDraw && !r.AnyCall && len(r.AllDiscards) == 4 {
		same := true
		first := r.AllDiscards[0].Type()
		for _, t := range r.AllDiscards[1:] {
			if t.Type() != first {
				same = false
				break
			}
		}
		if same && first >= TypeEast && first <= TypeEast+3 {
			evs, _ := abortiveDraw(g, AbortFourWinds)
			return evs, true
		}
	}

	if g.Settings.FourKansDraw {
		total, holders := 0, 0
		for s := 0; s < 4; s++ {
			total += r.KanCount[s]
			if r.KanCount[s] > 0 {
				holders++
			}
		}
		if total >= 4 && holders >= 2 {
			evs, _ := abortiveDraw(g, AbortFourKans)
			return evs, true
		}
	}

	return nil, false
}

// finishRound records the result, handles rotation and game end, and
// emits the terminal events.
func finishRound(g *GameState, result *RoundResult) ([]Event, error) {
	r := &g.Round
	r.Phase = PhaseFinished
	r.Prompt = nil
	r.Result = result

	switch {
	case result.DealerRetained:
		g.Honba++
	case result.Type == ResultAbortive:
		g.Honba++
	default:
		g.Honba = 0
		r.DealerSeat = NextSeat(r.DealerSeat)
		g.UniqueDealers++
	}

	var scores [4]int
	for s := 0; s < 4; s++ {
		scores[s] = r.Players[s].Score
	}
	events := []Event{RoundEndEvent{
		Result:       *result,
		Scores:       scores,
		Honba:        g.Honba,
		RiichiSticks: g.RiichiSticks,
	}}

	if gameOver(g) {
		return append(events, endGame(g)...), nil
	}

	r.PendingConfirm = map[int]bool{0: true, 1: true, 2: true, 3: true}
	return events, nil
}

// gameOver decides whether another round starts.
func gameOver(g *GameState) bool {
	if g.Settings.Tobi {
		for s := 0; s < 4; s++ {
			if g.Round.Players[s].Score < 0 {
				return true
			}
		}
	}

	reachedTarget := false
	for s := 0; s < 4; s++ {
		if g.Round.Players[s].Score >= g.Settings.TargetScore {
			reachedTarget = true
		}
	}

	// Wind of the next round: East through num_players dealers, then
	// South, then the sudden-death West.
	nextWind := (g.UniqueDealers - 1) / g.Settings.NumPlayers
	switch {
	case nextWind >= 3:
		return true
	case nextWind >= 2:
		return reachedTarget || !g.Settings.Enchousen
	}
	return false
}

// endGame awards the leftover riichi pot, computes the adjusted
// standings and closes the game.
func endGame(g *GameState) []Event {
	r := &g.Round
	if g.RiichiSticks > 0 {
		best := 0
		for s := 1; s < 4; s++ {
			if r.Players[s].Score > r.Players[best].Score {
				best = s
			}
		}
		r.Players[best].Score += g.RiichiSticks * 1000
		g.RiichiSticks = 0
	}

	g.FinalScores = FinalStandings(&r.Players, g.Settings)
	g.Phase = GameFinished
	r.PendingConfirm = nil

	return []Event{GameEndEvent{Scores: append([]FinalScore(nil), g.FinalScores...)}}
}
