package engine

// basePoints converts a scored hand to its base value before the
// dealer/non-dealer payment multipliers.
func basePoints(score *WinScore, st Settings) int {
	if score.Yakuman > 0 {
		return 8000 * score.Yakuman
	}
	han, fu := score.Han, score.Fu
	if st.Kiriage && ((han == 4 && fu == 30) || (han == 3 && fu == 60)) {
		return 2000
	}
	switch {
	case han >= 13:
		if st.KazoeLimit == KazoeYakuman {
			return 8000
		}
		return 6000
	case han >= 11:
		return 6000 // sanbaiman
	case han >= 8:
		return 4000 // baiman
	case han >= 6:
		return 3000 // haneman
	}
	base := fu * (1 << uint(2+han))
	if han >= 5 || base > 2000 {
		return 2000 // mangan
	}
	return base
}

// ronCost returns the discarder's payment.
func ronCost(base int, winnerIsDealer bool) int {
	mult := 4
	if winnerIsDealer {
		mult = 6
	}
	return roundUpTo(base*mult, 100)
}

// tsumoCosts returns (main, additional): for a dealer win both are the
// per-loser payment; for a non-dealer win main is the dealer's payment
// and additional the other two players'.
func tsumoCosts(base int, winnerIsDealer bool) (int, int) {
	if winnerIsDealer {
		each := roundUpTo(base*2, 100)
		return each, each
	}
	return roundUpTo(base*2, 100), roundUpTo(base, 100)
}

// goshaRound rounds points-in-thousands to the nearest thousand with
// Japanese rounding: an exact .5 rounds toward zero.
func goshaRound(points int) int {
	q, r := points/1000, points%1000
	if r < 0 {
		r += 1000
		q--
	}
	switch {
	case r > 500:
		q++
	case r == 500 && q < 0:
		// -x.5 truncates to -x, not -(x+1).
		q++
	}
	return q * 1000
}

// FinalStandings ranks the seats, applies uma and oka, and rounds to
// thousands with a zero-sum correction credited to the leader.
func FinalStandings(players *[4]Player, st Settings) []FinalScore {
	order := []int{0, 1, 2, 3}
	// Rank by raw score, ties broken by seat order.
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			a, b := order[i], order[j]
			if players[b].Score > players[a].Score {
				order[i], order[j] = order[j], order[i]
			}
		}
	}

	oka := (st.TargetScore - st.StartScore) * st.NumPlayers

	out := make([]FinalScore, 0, 4)
	sum := 0
	for rank, seat := range order {
		p := &players[seat]
		adj := goshaRound(p.Score-st.TargetScore) / 1000
		adj += st.Uma[rank]
		if rank == 0 {
			adj += oka / 1000
		}
		final := adj * 1000
		sum += final
		out = append(out, FinalScore{
			Seat:     seat,
			Name:     p.Name,
			RawScore: p.Score,
			Final:    final,
			Rank:     rank + 1,
		})
	}
	// Zero-sum correction lands on first place.
	out[0].Final -= sum
	return out
}
