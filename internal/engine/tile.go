package engine

import "fmt"

// Tile is a physical tile ID in [0, 136). Four copies exist of each of
// the 34 tile types; ID/4 is the type.
type Tile int

const (
	// TileCount is the number of physical tiles in a full set.
	TileCount = 136
	// TypeCount is the number of distinct tile types.
	TypeCount = 34
	// DeadWallSize is the fixed size of the dead wall (7 stacks of 2).
	DeadWallSize = 14
	// MaxDoraIndicators bounds the revealed indicator count.
	MaxDoraIndicators = 5
)

// Suit identifies a tile family.
type Suit int

const (
	SuitMan Suit = iota
	SuitPin
	SuitSou
	SuitHonor
)

// Winds, as tile types and as seat winds.
const (
	TypeEast  = 27
	TypeSouth = 28
	TypeWest  = 29
	TypeNorth = 30
	TypeHaku  = 31
	TypeHatsu = 32
	TypeChun  = 33
)

// Type returns the tile type in [0, 34).
func (t Tile) Type() int { return int(t) / 4 }

// Copy returns the copy index in [0, 4) among tiles of the same type.
func (t Tile) Copy() int { return int(t) % 4 }

// Suit returns the tile family.
func (t Tile) Suit() Suit {
	switch ty := t.Type(); {
	case ty < 9:
		return SuitMan
	case ty < 18:
		return SuitPin
	case ty < 27:
		return SuitSou
	default:
		return SuitHonor
	}
}

// Number returns the face number 1..9 for suited tiles, or 1..7 for
// honors (E S W N haku hatsu chun).
func (t Tile) Number() int {
	ty := t.Type()
	if ty >= 27 {
		return ty - 27 + 1
	}
	return ty%9 + 1
}

// IsHonor reports whether the tile is a wind or dragon.
func (t Tile) IsHonor() bool { return t.Type() >= 27 }

// IsTerminal reports whether the tile is a suited 1 or 9.
func (t Tile) IsTerminal() bool {
	if t.IsHonor() {
		return false
	}
	n := t.Number()
	return n == 1 || n == 9
}

// IsTerminalOrHonor reports whether the tile counts as a yaochuu tile.
func (t Tile) IsTerminalOrHonor() bool { return t.IsHonor() || t.IsTerminal() }

// IsRedFive reports whether the tile is the red-five copy. By
// convention the first copy (ID%4 == 0) of each suited five is red;
// whether red fives score is a settings concern.
func (t Tile) IsRedFive() bool {
	return t.Copy() == 0 && !t.IsHonor() && t.Number() == 5
}

// typeIsTerminalOrHonor mirrors IsTerminalOrHonor for a bare type.
func typeIsTerminalOrHonor(ty int) bool {
	if ty >= 27 {
		return true
	}
	n := ty%9 + 1
	return n == 1 || n == 9
}

func typeIsHonor(ty int) bool { return ty >= 27 }

// DoraFromIndicator maps an indicator type to the dora type it points
// at: suited numbers cycle 1..9, winds cycle E→S→W→N, dragons cycle
// haku→hatsu→chun.
func DoraFromIndicator(indicator int) int {
	switch {
	case indicator < 27: // suited: next number, 9 wraps to 1
		base := (indicator / 9) * 9
		return base + (indicator-base+1)%9
	case indicator <= TypeNorth: // winds
		return TypeEast + (indicator-TypeEast+1)%4
	default: // dragons
		return TypeHaku + (indicator-TypeHaku+1)%3
	}
}

var suitRunes = [4]byte{'m', 'p', 's', 'z'}

// String renders the tile in the usual shorthand, e.g. "5m", "1z".
func (t Tile) String() string {
	if t < 0 || t >= TileCount {
		return fmt.Sprintf("tile(%d)", int(t))
	}
	return fmt.Sprintf("%d%c", t.Number(), suitRunes[t.Suit()])
}

// TypeString renders a bare tile type in the same shorthand.
func TypeString(ty int) string {
	return Tile(ty * 4).String()
}

// ValidTile reports whether id is a legal physical tile ID.
func ValidTile(id int) bool { return id >= 0 && id < TileCount }

// countByType folds a tile list into per-type counts.
func countByType(tiles []Tile) [TypeCount]int {
	var c [TypeCount]int
	for _, t := range tiles {
		c[t.Type()]++
	}
	return c
}
