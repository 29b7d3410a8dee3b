package engine

// Hand decomposition works on per-type counts. A standard hand is
// (4 − melds) concealed sets plus a pair; seven pairs and thirteen
// orphans apply to fully concealed hands only.

// SetKind discriminates concealed set shapes in a decomposition.
type SetKind int

const (
	SetRun SetKind = iota
	SetTriplet
)

// DecompSet is one concealed set: a run starting at Base, or a triplet
// of Base.
type DecompSet struct {
	Kind SetKind
	Base int
}

// Decomposition is one way to read the concealed tiles as sets + pair.
type Decomposition struct {
	Pair int
	Sets []DecompSet
}

// isWinningCounts reports whether the counts form setsNeeded sets plus
// a pair.
func isWinningCounts(c [TypeCount]int, setsNeeded int) bool {
	for pair := 0; pair < TypeCount; pair++ {
		if c[pair] < 2 {
			continue
		}
		c[pair] -= 2
		if consumeSets(&c, 0, setsNeeded) {
			return true
		}
		c[pair] += 2
	}
	return false
}

// consumeSets greedily strips triplets and runs from type ty upward.
// Taking the triplet first and then runs covers every decomposition
// because runs consume strictly increasing types.
func consumeSets(c *[TypeCount]int, ty, remaining int) bool {
	if remaining == 0 {
		for _, n := range c {
			if n != 0 {
				return false
			}
		}
		return true
	}
	for ty < TypeCount && c[ty] == 0 {
		ty++
	}
	if ty == TypeCount {
		return false
	}
	if c[ty] >= 3 {
		c[ty] -= 3
		if consumeSets(c, ty, remaining-1) {
			c[ty] += 3
			return true
		}
		c[ty] += 3
	}
	if canRun(ty) && c[ty+1] > 0 && c[ty+2] > 0 {
		c[ty]--
		c[ty+1]--
		c[ty+2]--
		if consumeSets(c, ty, remaining-1) {
			c[ty]++
			c[ty+1]++
			c[ty+2]++
			return true
		}
		c[ty]++
		c[ty+1]++
		c[ty+2]++
	}
	return false
}

// canRun reports whether a run may start at type ty.
func canRun(ty int) bool {
	return ty < 27 && ty%9 <= 6
}

// DecomposeAll enumerates every standard decomposition of the counts.
func DecomposeAll(c [TypeCount]int, setsNeeded int) []Decomposition {
	var out []Decomposition
	for pair := 0; pair < TypeCount; pair++ {
		if c[pair] < 2 {
			continue
		}
		c[pair] -= 2
		var sets []DecompSet
		enumSets(&c, 0, setsNeeded, &sets, func(found []DecompSet) {
			d := Decomposition{Pair: pair, Sets: append([]DecompSet(nil), found...)}
			out = append(out, d)
		})
		c[pair] += 2
	}
	return out
}

func enumSets(c *[TypeCount]int, ty, remaining int, acc *[]DecompSet, emit func([]DecompSet)) {
	if remaining == 0 {
		for _, n := range c {
			if n != 0 {
				return
			}
		}
		emit(*acc)
		return
	}
	for ty < TypeCount && c[ty] == 0 {
		ty++
	}
	if ty == TypeCount {
		return
	}
	if c[ty] >= 3 {
		c[ty] -= 3
		*acc = append(*acc, DecompSet{Kind: SetTriplet, Base: ty})
		enumSets(c, ty, remaining-1, acc, emit)
		*acc = (*acc)[:len(*acc)-1]
		c[ty] += 3
	}
	if canRun(ty) && c[ty+1] > 0 && c[ty+2] > 0 {
		c[ty]--
		c[ty+1]--
		c[ty+2]--
		*acc = append(*acc, DecompSet{Kind: SetRun, Base: ty})
		enumSets(c, ty, remaining-1, acc, emit)
		*acc = (*acc)[:len(*acc)-1]
		c[ty]++
		c[ty+1]++
		c[ty+2]++
	}
}

// isSevenPairs reports seven distinct pairs (fully concealed hands).
func isSevenPairs(c [TypeCount]int) bool {
	pairs := 0
	for _, n := range c {
		switch n {
		case 0:
		case 2:
			pairs++
		default:
			return false
		}
	}
	return pairs == 7
}

var yaochuuTypes = []int{0, 8, 9, 17, 18, 26, 27, 28, 29, 30, 31, 32, 33}

// isKokushi reports thirteen orphans: every terminal/honor type present
// with exactly one doubled.
func isKokushi(c [TypeCount]int) bool {
	doubled := false
	total := 0
	for _, ty := range yaochuuTypes {
		switch c[ty] {
		case 1:
		case 2:
			if doubled {
				return false
			}
			doubled = true
		default:
			return false
		}
		total += c[ty]
	}
	return doubled && total == 14
}

// handWins reports whether the concealed counts plus melds read as a
// complete hand.
func handWins(c [TypeCount]int, meldCount int) bool {
	if meldCount == 0 && (isSevenPairs(c) || isKokushi(c)) {
		return true
	}
	return isWinningCounts(c, 4-meldCount)
}

// WaitTypes returns the tile types completing a 13-mod-3 concealed
// hand (with meldCount melds outside it).
func WaitTypes(c [TypeCount]int, meldCount int) []int {
	var out []int
	for ty := 0; ty < TypeCount; ty++ {
		if c[ty] >= 4 {
			continue
		}
		c[ty]++
		if handWins(c, meldCount) {
			out = append(out, ty)
		}
		c[ty]--
	}
	return out
}

// PlayerWaits computes the current waits of a player's concealed hand.
// The hand must be in the post-discard shape (13 mod 3 tiles).
func PlayerWaits(p *Player) []int {
	return WaitTypes(countByType(p.Tiles), len(p.Melds))
}

// IsTenpai reports whether the player is one tile from a win.
func IsTenpai(p *Player) bool { return len(PlayerWaits(p)) > 0 }

// TenpaiDiscards returns the tiles in a 14-shaped hand whose discard
// leaves the hand tenpai. Used for the riichi declaration menu.
func TenpaiDiscards(p *Player) []Tile {
	var out []Tile
	seenType := map[int]bool{}
	c := countByType(p.Tiles)
	for _, t := range p.Tiles {
		ty := t.Type()
		if seenType[ty] {
			continue
		}
		c[ty]--
		if len(WaitTypes(c, len(p.Melds))) > 0 {
			out = append(out, t)
			seenType[ty] = true
		}
		c[ty]++
	}
	return out
}

// IsFuriten reports whether the player may not ron. A player is in
// furiten when any wait sits in their own discards, while a passed-on
// ron holds (temporary), or permanently after passing a ron in riichi.
func IsFuriten(p *Player, waits []int) bool {
	if p.FuritenRiichi || p.FuritenTemp {
		return true
	}
	for _, d := range p.Discards {
		for _, w := range waits {
			if d.Tile.Type() == w {
				return true
			}
		}
	}
	return false
}

// WinsOn reports whether the player's concealed hand completes with
// the given tile.
func WinsOn(p *Player, t Tile) bool {
	c := countByType(p.Tiles)
	c[t.Type()]++
	return handWins(c, len(p.Melds))
}
