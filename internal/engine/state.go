package engine

import "sort"

// MeldType discriminates the call kinds.
type MeldType string

const (
	MeldChi       MeldType = "chi"
	MeldPon       MeldType = "pon"
	MeldOpenKan   MeldType = "open_kan"
	MeldClosedKan MeldType = "closed_kan"
	MeldAddedKan  MeldType = "added_kan"
)

// Meld is an immutable called set.
type Meld struct {
	Type       MeldType
	Tiles      []Tile // 3 or 4, sorted
	Opened     bool
	CalledTile Tile // -1 when nothing was called (closed kan)
	CallerSeat int
	FromSeat   int // -1 for closed kan
}

// IsKan reports whether the meld is any quad.
func (m Meld) IsKan() bool {
	return m.Type == MeldOpenKan || m.Type == MeldClosedKan || m.Type == MeldAddedKan
}

func (m Meld) clone() Meld {
	c := m
	c.Tiles = append([]Tile(nil), m.Tiles...)
	return c
}

// Discard is one entry in a player's discard pile.
type Discard struct {
	Tile          Tile
	Tsumogiri     bool
	RiichiDiscard bool
}

// Player is the per-round view of one seat. Treated as a value;
// transitions work on copies.
type Player struct {
	Seat     int
	Name     string
	Tiles    []Tile // concealed hand, kept sorted
	Discards []Discard
	Melds    []Meld
	Score    int

	Riichi  bool
	Ippatsu bool
	Daburi  bool // double riichi
	Rinshan bool // last draw was a dead-wall replacement

	// RiichiPending marks the conditional window between the riichi
	// discard and its survival of all calls; the bet is only taken then.
	RiichiPending bool

	// Kuikae holds tile types the player may not discard this turn.
	Kuikae []int

	// PaoSeat is the seat liable for this player's yakuman, -1 if none.
	PaoSeat int

	// LastDraw is the most recent drawn tile, -1 between draws. A
	// riichi hand may only discard it.
	LastDraw Tile

	// DiscardCalled is set once any of this player's discards was
	// claimed; it disqualifies nagashi mangan.
	DiscardCalled bool

	// Furiten state: permanent while riichi holds, temporary until the
	// player's next draw.
	FuritenRiichi bool
	FuritenTemp   bool
}

// HandOpen reports whether the player has any open meld.
func (p *Player) HandOpen() bool {
	for _, m := range p.Melds {
		if m.Opened {
			return true
		}
	}
	return false
}

// Closed reports whether the hand counts as closed (closed kans allowed).
func (p *Player) Closed() bool { return !p.HandOpen() }

// HasTile reports whether the physical tile is in the concealed hand.
func (p *Player) HasTile(t Tile) bool {
	for _, h := range p.Tiles {
		if h == t {
			return true
		}
	}
	return false
}

// removeTile deletes one physical tile from the hand.
func (p *Player) removeTile(t Tile) bool {
	for i, h := range p.Tiles {
		if h == t {
			p.Tiles = append(p.Tiles[:i], p.Tiles[i+1:]...)
			return true
		}
	}
	return false
}

// addTile inserts a drawn tile keeping the hand sorted.
func (p *Player) addTile(t Tile) {
	p.Tiles = append(p.Tiles, t)
	sort.Slice(p.Tiles, func(i, j int) bool { return p.Tiles[i] < p.Tiles[j] })
}

func (p Player) clone() Player {
	c := p
	c.Tiles = append([]Tile(nil), p.Tiles...)
	c.Discards = append([]Discard(nil), p.Discards...)
	c.Melds = make([]Meld, len(p.Melds))
	for i, m := range p.Melds {
		c.Melds[i] = m.clone()
	}
	c.Kuikae = append([]int(nil), p.Kuikae...)
	return c
}

// CallType discriminates what a pending prompt is waiting on.
type CallType string

const (
	CallDiscard CallType = "DISCARD" // ron and/or melds on a discard
	CallRon     CallType = "RON"
	CallChankan CallType = "CHANKAN"
	CallMeld    CallType = "MELD"
)

// MeldOption is one way a seat can meld the prompted tile.
type MeldOption struct {
	Type  MeldType
	Tiles []Tile // hand tiles that would join the called tile
}

// Caller is one (seat, option) entry on a prompt. Ron entries have a
// nil Option.
type Caller struct {
	Seat   int
	Ron    bool
	Option *MeldOption
}

// Response is one seat's answer to a prompt.
type Response struct {
	Seat   int
	Action Action
	Data   ActionData
}

// CallPrompt tracks which seats may respond to a discard or an added
// kan, and the responses drained so far.
type CallPrompt struct {
	Type         CallType
	Tile         Tile
	FromSeat     int
	Callers      []Caller
	PendingSeats map[int]bool
	Responses    []Response
}

// SeatHasRon reports whether the seat holds a ron entry on this prompt.
func (c *CallPrompt) SeatHasRon(seat int) bool {
	for _, e := range c.Callers {
		if e.Seat == seat && e.Ron {
			return true
		}
	}
	return false
}

// SeatOptions returns the meld options offered to one seat.
func (c *CallPrompt) SeatOptions(seat int) []MeldOption {
	var out []MeldOption
	for _, e := range c.Callers {
		if e.Seat == seat && e.Option != nil {
			out = append(out, *e.Option)
		}
	}
	return out
}

// Seats returns the pending seats in ascending order.
func (c *CallPrompt) Seats() []int {
	out := make([]int, 0, len(c.PendingSeats))
	for s := range c.PendingSeats {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

func (c *CallPrompt) clone() *CallPrompt {
	if c == nil {
		return nil
	}
	n := &CallPrompt{
		Type:         c.Type,
		Tile:         c.Tile,
		FromSeat:     c.FromSeat,
		Callers:      make([]Caller, len(c.Callers)),
		PendingSeats: make(map[int]bool, len(c.PendingSeats)),
		Responses:    append([]Response(nil), c.Responses...),
	}
	for i, e := range c.Callers {
		n.Callers[i] = e
		if e.Option != nil {
			opt := MeldOption{Type: e.Option.Type, Tiles: append([]Tile(nil), e.Option.Tiles...)}
			n.Callers[i].Option = &opt
		}
	}
	for s := range c.PendingSeats {
		n.PendingSeats[s] = true
	}
	return n
}

// Phase is the round lifecycle phase.
type Phase string

const (
	PhaseWaiting  Phase = "WAITING"
	PhasePlaying  Phase = "PLAYING"
	PhaseFinished Phase = "FINISHED"
)

// GamePhase is the game lifecycle phase.
type GamePhase string

const (
	GameInProgress GamePhase = "IN_PROGRESS"
	GameFinished   GamePhase = "FINISHED"
)

// RoundState is the full state of one round.
type RoundState struct {
	Wall        Wall
	Players     [4]Player
	DealerSeat  int
	CurrentSeat int
	RoundWind   int // 0 east, 1 south, 2 west
	TurnCount   int
	AllDiscards []Tile
	Phase       Phase
	Prompt      *CallPrompt

	// AnyCall is set once any meld call interrupts the round; it gates
	// the first-go-around rules (kyuushu, daburi, renhou, four winds).
	AnyCall bool

	// KanCount tracks quads declared this round, per seat.
	KanCount [4]int

	// PendingConfirm holds seats still to confirm the round result
	// while Phase is FINISHED.
	PendingConfirm map[int]bool

	// Result carries the finished round's outcome for snapshots.
	Result *RoundResult
}

// SeatWind returns the wind type of a seat (TypeEast..TypeNorth).
func (r *RoundState) SeatWind(seat int) int {
	return TypeEast + ((seat-r.DealerSeat)%4+4)%4
}

// LeftOf returns the seat to the given seat's left (its kamicha), the
// previous seat in counter-clockwise turn order.
func LeftOf(seat int) int { return (seat + 3) % 4 }

// NextSeat returns the seat after the given one in turn order.
func NextSeat(seat int) int { return (seat + 1) % 4 }

func (r RoundState) clone() RoundState {
	c := r
	c.Wall = r.Wall.clone()
	for i := range r.Players {
		c.Players[i] = r.Players[i].clone()
	}
	c.AllDiscards = append([]Tile(nil), r.AllDiscards...)
	c.Prompt = r.Prompt.clone()
	if r.PendingConfirm != nil {
		c.PendingConfirm = make(map[int]bool, len(r.PendingConfirm))
		for s := range r.PendingConfirm {
			c.PendingConfirm[s] = true
		}
	}
	return c
}

// GameState is the full state of one game. Transitions never mutate the
// receiver; they return a replacement value.
type GameState struct {
	Round         RoundState
	RoundNumber   int // wall derivation index, 0-based
	UniqueDealers int // distinct dealerships seen, 1-based
	Honba         int
	RiichiSticks  int
	Phase         GamePhase
	Seed          Seed
	Settings      Settings
	RNGVersion    int

	// DealerDice is the opening roll that chose the first dealer.
	DealerDice [2]int

	// FinalScores is set when Phase is FINISHED.
	FinalScores []FinalScore
}

// FinalScore is one seat's end-of-game result.
type FinalScore struct {
	Seat     int
	Name     string
	RawScore int
	Final    int // uma/oka adjusted, in points
	Rank     int // 1-based
}

func (g GameState) clone() GameState {
	c := g
	c.Round = g.Round.clone()
	c.FinalScores = append([]FinalScore(nil), g.FinalScores...)
	return c
}

// PlayerSeat finds the seat of a named player, or -1.
func (g *GameState) PlayerSeat(name string) int {
	for i := range g.Round.Players {
		if g.Round.Players[i].Name == name {
			return i
		}
	}
	return -1
}
