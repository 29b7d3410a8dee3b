package engine

// EventType tags a domain event.
type EventType string

const (
	EvGameStarted  EventType = "game_started"
	EvRoundStarted EventType = "round_started"
	EvDraw         EventType = "draw"
	EvDiscard      EventType = "discard"
	EvMeld         EventType = "meld"
	EvCallPrompt   EventType = "call_prompt"
	EvRiichi       EventType = "riichi_declared"
	EvDoraRevealed EventType = "dora_revealed"
	EvRoundEnd     EventType = "round_end"
	EvGameEnd      EventType = "game_end"
	EvFuriten      EventType = "furiten"
	EvError        EventType = "error"
)

// Event is a domain event emitted by a transition. Events that concern
// a single seat expose it; the event router decides transport targets.
type Event interface {
	Type() EventType
}

// SeatEvent is implemented by events addressed to one seat only.
type SeatEvent interface {
	Event
	TargetSeat() int
}

// GameStartedEvent opens a game; the replay collector keys off it.
type GameStartedEvent struct {
	Players    []string
	SeedHex    string
	RNGVersion int
}

func (GameStartedEvent) Type() EventType { return EvGameStarted }

// RoundPlayerInfo is the redacted per-player view in a round start.
type RoundPlayerInfo struct {
	Seat  int
	Name  string
	Score int
}

// RoundStartedEvent is emitted once per seat with that seat's tiles.
type RoundStartedEvent struct {
	Seat          int
	Tiles         []Tile
	Players       []RoundPlayerInfo
	DealerSeat    int
	RoundWind     int
	RoundNumber   int
	Honba         int
	RiichiSticks  int
	DoraIndicator Tile
	Dice          [2]int
}

func (RoundStartedEvent) Type() EventType { return EvRoundStarted }
func (e RoundStartedEvent) TargetSeat() int { return e.Seat }

// AvailableActions lists what the drawer may do besides discarding.
type AvailableActions struct {
	CanTsumo    bool
	CanRiichi   bool
	RiichiTiles []Tile // discards that leave the hand tenpai
	KanOptions  []MeldOption
	CanKyuushu  bool
}

// DrawEvent delivers a drawn tile to its seat.
type DrawEvent struct {
	Seat      int
	Tile      Tile
	Remaining int
	Rinshan   bool
	Actions   AvailableActions
}

func (DrawEvent) Type() EventType   { return EvDraw }
func (e DrawEvent) TargetSeat() int { return e.Seat }

// DiscardEvent is broadcast for every discard.
type DiscardEvent struct {
	Seat          int
	Tile          Tile
	Tsumogiri     bool
	RiichiDiscard bool
}

func (DiscardEvent) Type() EventType { return EvDiscard }

// MeldEvent is broadcast when a call forms a meld.
type MeldEvent struct {
	Meld Meld
}

func (MeldEvent) Type() EventType { return EvMeld }

// CallPromptEvent asks the pending seats to respond. The event router
// splits it per seat, filtered to that seat's entries.
type CallPromptEvent struct {
	Prompt *CallPrompt
}

func (CallPromptEvent) Type() EventType { return EvCallPrompt }

// RiichiDeclaredEvent is broadcast when a riichi bet is finalized.
type RiichiDeclaredEvent struct {
	Seat         int
	Score        int // declarer's score after the bet
	RiichiSticks int
	Daburi       bool
}

func (RiichiDeclaredEvent) Type() EventType { return EvRiichi }

// DoraRevealedEvent is broadcast when an indicator flips.
type DoraRevealedEvent struct {
	Tile Tile // the indicator
}

func (DoraRevealedEvent) Type() EventType { return EvDoraRevealed }

// FuritenEvent tells one seat its furiten state changed.
type FuritenEvent struct {
	Seat   int
	Active bool
}

func (FuritenEvent) Type() EventType   { return EvFuriten }
func (e FuritenEvent) TargetSeat() int { return e.Seat }

// RoundEndEvent is broadcast with the round outcome.
type RoundEndEvent struct {
	Result       RoundResult
	Scores       [4]int
	Honba        int
	RiichiSticks int
}

func (RoundEndEvent) Type() EventType { return EvRoundEnd }

// GameEndEvent is broadcast with the adjusted final standings.
type GameEndEvent struct {
	Scores []FinalScore
}

func (GameEndEvent) Type() EventType { return EvGameEnd }

// ErrorEvent is sent to a single seat for expected failures.
type ErrorEvent struct {
	Seat    int
	Code    string
	Message string
}

func (ErrorEvent) Type() EventType   { return EvError }
func (e ErrorEvent) TargetSeat() int { return e.Seat }
