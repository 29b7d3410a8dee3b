package proto

// Session message kinds, lowercase to keep them apart from game events.
const (
	SessRoomJoined        = "room_joined"
	SessPlayerJoined      = "player_joined"
	SessPlayerLeft        = "player_left"
	SessReadyChanged      = "player_ready_changed"
	SessGameStarting      = "game_starting"
	SessRoomLeft          = "room_left"
	SessGameLeft          = "game_left"
	SessGameReconnected   = "game_reconnected"
	SessPlayerReconnected = "player_reconnected"
	SessError             = "session_error"
	SessPong              = "pong"
	SessChat              = "chat"
)

// RoomPlayer is one roster entry in a pending room.
type RoomPlayer struct {
	Name  string `msgpack:"name" json:"name"`
	Ready bool   `msgpack:"ready" json:"ready"`
	Host  bool   `msgpack:"host" json:"host"`
}

type RoomJoined struct {
	T       string       `msgpack:"t" json:"t"`
	RoomID  string       `msgpack:"room_id" json:"room_id"`
	You     string       `msgpack:"you" json:"you"`
	Players []RoomPlayer `msgpack:"players" json:"players"`
}

type PlayerJoined struct {
	T    string `msgpack:"t" json:"t"`
	Name string `msgpack:"name" json:"name"`
}

type PlayerLeft struct {
	T    string `msgpack:"t" json:"t"`
	Name string `msgpack:"name" json:"name"`
}

type ReadyChanged struct {
	T     string `msgpack:"t" json:"t"`
	Name  string `msgpack:"name" json:"name"`
	Ready bool   `msgpack:"ready" json:"ready"`
}

// GameStarting carries the receiver's individual game ticket.
type GameStarting struct {
	T          string `msgpack:"t" json:"t"`
	GameID     string `msgpack:"game_id" json:"game_id"`
	GameTicket string `msgpack:"game_ticket" json:"game_ticket"`
}

type RoomLeft struct {
	T string `msgpack:"t" json:"t"`
}

type GameLeft struct {
	T string `msgpack:"t" json:"t"`
}

type GameReconnected struct {
	T        string    `msgpack:"t" json:"t"`
	Snapshot *Snapshot `msgpack:"snapshot" json:"snapshot"`
}

type PlayerReconnected struct {
	T    string `msgpack:"t" json:"t"`
	Seat int    `msgpack:"seat" json:"seat"`
	Name string `msgpack:"name" json:"name"`
}

type SessionError struct {
	T       string `msgpack:"t" json:"t"`
	Code    string `msgpack:"code" json:"code"`
	Message string `msgpack:"message" json:"message"`
}

type Pong struct {
	T string `msgpack:"t" json:"t"`
}

type Chat struct {
	T    string `msgpack:"t" json:"t"`
	Name string `msgpack:"name" json:"name"`
	Text string `msgpack:"text" json:"text"`
}

// Snapshot is the full reconnection view: every public fact plus the
// reconnector's own hand.
type Snapshot struct {
	GameID      string           `msgpack:"game_id" json:"game_id"`
	Players     []SnapshotRoster `msgpack:"players" json:"players"`
	Seat        int              `msgpack:"seat" json:"seat"`
	DealerSeat  int              `msgpack:"dealer_seat" json:"dealer_seat"`
	DealerDice  [2]int           `msgpack:"dealer_dice" json:"dealer_dice"`
	RoundWind   int              `msgpack:"round_wind" json:"round_wind"`
	RoundNumber int              `msgpack:"round_number" json:"round_number"`
	CurrentSeat int              `msgpack:"current_seat" json:"current_seat"`
	Honba       int              `msgpack:"honba" json:"honba"`
	Sticks      int              `msgpack:"riichi_sticks" json:"riichi_sticks"`
	Dice        [2]int           `msgpack:"dice" json:"dice"`
	Indicators  []int            `msgpack:"dora_indicators" json:"dora_indicators"`
	Tiles       []int            `msgpack:"tiles" json:"tiles"`
	Remaining   int              `msgpack:"wall_remaining" json:"wall_remaining"`
	Seats       []SnapshotSeat   `msgpack:"seats" json:"seats"`
}

type SnapshotRoster struct {
	Name string `msgpack:"name" json:"name"`
	AI   bool   `msgpack:"ai" json:"ai"`
}

type SnapshotDiscard struct {
	TileID          int  `msgpack:"tile_id" json:"tile_id"`
	IsTsumogiri     bool `msgpack:"is_tsumogiri" json:"is_tsumogiri"`
	IsRiichiDiscard bool `msgpack:"is_riichi_discard" json:"is_riichi_discard"`
}

type SnapshotSeat struct {
	Seat     int               `msgpack:"seat" json:"seat"`
	Score    int               `msgpack:"score" json:"score"`
	Discards []SnapshotDiscard `msgpack:"discards" json:"discards"`
	Melds    []Meld            `msgpack:"melds" json:"melds"`
	IsRiichi bool              `msgpack:"is_riichi" json:"is_riichi"`
}
