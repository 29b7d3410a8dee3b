package engine

import "fmt"

// Wall holds the live wall, the 14-tile dead wall, and the dora state
// for one round. Values are copied wholesale on transition; methods
// that modify return nothing and must only be called on a working copy.
type Wall struct {
	Live        []Tile // front (index 0) is the next draw
	Dead        []Tile // 14 tiles; indicators at 2..6, ura at 7..11
	IndicatorCount int // revealed dora indicators, 1..5
	PendingDora int    // deferred reveals from open/added kans
	Dice        [2]int
}

// BuildWall shuffles a full tile set with the round stream, rolls the
// dice, and splits the wall at the break position.
//
// Break stack = ((target+1)*17 − diceSum) mod 68 with
// target = (dealer + diceSum − 1) mod 4. Seven stacks from the break
// (right-going) form the dead wall; the remaining 61 stacks are the
// live wall in counter-clockwise order.
func BuildWall(rng *PCG64, dealerSeat int) Wall {
	tiles := make([]Tile, TileCount)
	for i := range tiles {
		tiles[i] = Tile(i)
	}
	rng.Shuffle(tiles)

	d1, d2 := rng.Die(), rng.Die()
	sum := d1 + d2
	target := (dealerSeat + sum - 1) % 4
	breakStack := ((target+1)*17 - sum) % 68
	if breakStack < 0 {
		breakStack += 68
	}

	stack := func(s int) (Tile, Tile) {
		s = ((s % 68) + 68) % 68
		return tiles[2*s], tiles[2*s+1]
	}

	dead := make([]Tile, 0, DeadWallSize)
	for k := 0; k < 7; k++ {
		a, b := stack(breakStack + k)
		dead = append(dead, a, b)
	}

	live := make([]Tile, 0, TileCount-DeadWallSize)
	for k := 1; k <= 61; k++ {
		a, b := stack(breakStack - k)
		live = append(live, a, b)
	}

	return Wall{
		Live:           live,
		Dead:           dead,
		IndicatorCount: 1,
		Dice:           [2]int{d1, d2},
	}
}

// Remaining returns the number of drawable live tiles.
func (w *Wall) Remaining() int { return len(w.Live) }

// Draw removes and returns the front live tile. The caller must check
// Remaining first; drawing from an empty wall is a programming error.
func (w *Wall) Draw() Tile {
	t := w.Live[0]
	w.Live = w.Live[1:]
	return t
}

// DrawRinshan takes a replacement tile from the dead wall after a kan
// and slides the live wall tail into the dead wall so it stays at 14
// tiles.
func (w *Wall) DrawRinshan() Tile {
	t := w.Dead[len(w.Dead)-1]
	w.Dead = w.Dead[:len(w.Dead)-1]
	if len(w.Live) > 0 {
		tail := w.Live[len(w.Live)-1]
		w.Live = w.Live[:len(w.Live)-1]
		w.Dead = append(w.Dead, tail)
	}
	return t
}

// DoraIndicators returns the revealed indicator tiles.
func (w *Wall) DoraIndicators() []Tile {
	return w.Dead[2 : 2+w.IndicatorCount]
}

// UraIndicators returns the ura indicators matching the revealed count.
func (w *Wall) UraIndicators() []Tile {
	return w.Dead[7 : 7+w.IndicatorCount]
}

// RevealDora exposes the next indicator and returns it. Reveals beyond
// the fifth indicator are ignored.
func (w *Wall) RevealDora() (Tile, bool) {
	if w.IndicatorCount >= MaxDoraIndicators {
		return 0, false
	}
	w.IndicatorCount++
	return w.Dead[2+w.IndicatorCount-1], true
}

// DoraTypes returns the tile types counted as dora by the revealed
// indicators.
func (w *Wall) DoraTypes() []int {
	out := make([]int, 0, w.IndicatorCount)
	for _, ind := range w.DoraIndicators() {
		out = append(out, DoraFromIndicator(ind.Type()))
	}
	return out
}

// UraTypes returns the tile types counted as ura dora.
func (w *Wall) UraTypes() []int {
	out := make([]int, 0, w.IndicatorCount)
	for _, ind := range w.UraIndicators() {
		out = append(out, DoraFromIndicator(ind.Type()))
	}
	return out
}

// clone returns a deep copy safe to mutate.
func (w Wall) clone() Wall {
	c := w
	c.Live = append([]Tile(nil), w.Live...)
	c.Dead = append([]Tile(nil), w.Dead...)
	return c
}

// check validates the freshly built wall; used by tests.
func (w *Wall) check() error {
	if len(w.Live)+len(w.Dead) != TileCount {
		return fmt.Errorf("wall holds %d tiles", len(w.Live)+len(w.Dead))
	}
	if len(w.Dead) != DeadWallSize {
		return fmt.Errorf("dead wall holds %d tiles", len(w.Dead))
	}
	seen := map[Tile]bool{}
	for _, t := range append(append([]Tile{}, w.Live...), w.Dead...) {
		if !ValidTile(int(t)) || seen[t] {
			return fmt.Errorf("duplicate or invalid tile %v", t)
		}
		seen[t] = true
	}
	return nil
}
