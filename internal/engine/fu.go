package engine

// calcFu computes the fu of one standard reading. Seven pairs is a
// fixed 25 and never reaches here.
func calcFu(ctx *WinContext, d Decomposition, placed placement, sets []handSet, closed, pinfu bool) int {
	// Pinfu is fixed: 20 tsumo (unless the ruleset counts the tsumo
	// fu), 30 closed ron.
	if pinfu {
		if ctx.Tsumo && !ctx.Settings.PinfuTsumoFu {
			return 20
		}
		if ctx.Tsumo {
			return 30 // 20 + 2 tsumo, rounded up
		}
		return 30
	}

	fu := 20

	if closed && !ctx.Tsumo {
		fu += 10 // menzen ron
	}
	if ctx.Tsumo {
		fu += 2
	}

	// Wait shape.
	if placed.inPair {
		fu += 2 // tanki
	} else {
		s := d.Sets[placed.setIdx]
		if s.Kind == SetRun {
			w := ctx.WinTile.Type()
			switch {
			case w == s.Base+1:
				fu += 2 // kanchan
			case w == s.Base+2 && s.Base%9 == 0:
				fu += 2 // penchan 1-2 waiting 3
			case w == s.Base && s.Base%9 == 6:
				fu += 2 // penchan 8-9 waiting 7
			}
		}
	}

	// Pair.
	if isDragon(d.Pair) {
		fu += 2
	}
	if d.Pair == ctx.SeatWind {
		fu += 2
	}
	if d.Pair == ctx.RoundWind {
		fu += 2
	}

	// Sets.
	for _, s := range sets {
		if s.run {
			continue
		}
		base := 2
		if typeIsTerminalOrHonor(s.base) {
			base = 4
		}
		concealed := s.closedKan || (!s.open && !s.wonInto)
		if concealed {
			base *= 2
		}
		if s.kan {
			base *= 4
		}
		fu += base
	}

	// Open hands with no fu sources score as the bare 20 unless the
	// ruleset bumps open pinfu shapes to 30.
	if fu == 20 && !closed {
		if ctx.Settings.OpenPinfuFu {
			fu = 30
		}
		return fu
	}

	return roundUpTo(fu, 10)
}

func roundUpTo(n, step int) int {
	return (n + step - 1) / step * step
}
