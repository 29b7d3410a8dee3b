package proto

import (
	"github.com/janpai/server/internal/engine"
)

// Game event payloads use short key aliases to keep frames small. The
// alias vocabulary is shared across events:
//
//	t  event type       s  seat            tl tile / tiles
//	rm remaining        ac actions         pl players
//	ds dealer seat      rw round wind      rn round number
//	hb honba            rs riichi sticks   di dora indicator
//	dc dice             tg tsumogiri       rd riichi discard
//	sc score(s)         n  name            m  meld
//	fs from seat        op meld options    cd/ms code/message
//
// Replay files serialize the same structs as JSON lines, so the json
// tags mirror the msgpack tags.

type GameStarted struct {
	T          string   `msgpack:"t" json:"t"`
	Players    []string `msgpack:"pl" json:"pl"`
	Seed       string   `msgpack:"sd" json:"sd"`
	RNGVersion int      `msgpack:"rv" json:"rv"`
}

type RoundPlayer struct {
	Seat  int    `msgpack:"s" json:"s"`
	Name  string `msgpack:"n" json:"n"`
	Score int    `msgpack:"sc" json:"sc"`

	// Tiles is redacted to the receiving seat on the wire; the replay
	// merge fills every seat's tiles.
	Tiles []int `msgpack:"tl,omitempty" json:"tl,omitempty"`
}

type RoundStarted struct {
	T             string        `msgpack:"t" json:"t"`
	Seat          int           `msgpack:"s" json:"s"`
	Tiles         []int         `msgpack:"tl" json:"tl"`
	Players       []RoundPlayer `msgpack:"pl" json:"pl"`
	DealerSeat    int           `msgpack:"ds" json:"ds"`
	RoundWind     int           `msgpack:"rw" json:"rw"`
	RoundNumber   int           `msgpack:"rn" json:"rn"`
	Honba         int           `msgpack:"hb" json:"hb"`
	RiichiSticks  int           `msgpack:"rs" json:"rs"`
	DoraIndicator int           `msgpack:"di" json:"di"`
	Dice          [2]int        `msgpack:"dc" json:"dc"`
}

type Actions struct {
	CanTsumo    bool         `msgpack:"ts,omitempty" json:"ts,omitempty"`
	CanRiichi   bool         `msgpack:"ri,omitempty" json:"ri,omitempty"`
	RiichiTiles []int        `msgpack:"rt,omitempty" json:"rt,omitempty"`
	KanOptions  []MeldOption `msgpack:"kn,omitempty" json:"kn,omitempty"`
	CanKyuushu  bool         `msgpack:"ky,omitempty" json:"ky,omitempty"`
}

type Draw struct {
	T         string   `msgpack:"t" json:"t"`
	Seat      int      `msgpack:"s" json:"s"`
	Tile      int      `msgpack:"tl" json:"tl"`
	Remaining int      `msgpack:"rm" json:"rm"`
	Rinshan   bool     `msgpack:"rin,omitempty" json:"rin,omitempty"`
	Actions   *Actions `msgpack:"ac,omitempty" json:"ac,omitempty"`
}

type Discard struct {
	T             string `msgpack:"t" json:"t"`
	Seat          int    `msgpack:"s" json:"s"`
	Tile          int    `msgpack:"tl" json:"tl"`
	Tsumogiri     bool   `msgpack:"tg,omitempty" json:"tg,omitempty"`
	RiichiDiscard bool   `msgpack:"rd,omitempty" json:"rd,omitempty"`
}

type Meld struct {
	T          string `msgpack:"t" json:"t"`
	Kind       string `msgpack:"mt" json:"mt"`
	Tiles      []int  `msgpack:"tl" json:"tl"`
	CalledTile int    `msgpack:"ct" json:"ct"`
	CallerSeat int    `msgpack:"cs" json:"cs"`
	FromSeat   int    `msgpack:"fs" json:"fs"`
	Opened     bool   `msgpack:"op" json:"op"`
}

type MeldOption struct {
	Kind  string `msgpack:"mt" json:"mt"`
	Tiles []int  `msgpack:"tl" json:"tl"`
}

// CallPrompt is the per-seat view of a pending call. A seat with a ron
// entry receives a RON prompt; otherwise a MELD prompt with its options.
type CallPrompt struct {
	T        string       `msgpack:"t" json:"t"`
	Seat     int          `msgpack:"s" json:"s"`
	Kind     string       `msgpack:"ct" json:"ct"` // "RON" or "MELD"
	Tile     int          `msgpack:"tl" json:"tl"`
	FromSeat int          `msgpack:"fs" json:"fs"`
	Chankan  bool         `msgpack:"ck,omitempty" json:"ck,omitempty"`
	Options  []MeldOption `msgpack:"op,omitempty" json:"op,omitempty"`
}

type RiichiDeclared struct {
	T            string `msgpack:"t" json:"t"`
	Seat         int    `msgpack:"s" json:"s"`
	Score        int    `msgpack:"sc" json:"sc"`
	RiichiSticks int    `msgpack:"rs" json:"rs"`
	Daburi       bool   `msgpack:"db,omitempty" json:"db,omitempty"`
}

type DoraRevealed struct {
	T    string `msgpack:"t" json:"t"`
	Tile int    `msgpack:"tl" json:"tl"`
}

type Furiten struct {
	T      string `msgpack:"t" json:"t"`
	Seat   int    `msgpack:"s" json:"s"`
	Active bool   `msgpack:"on" json:"on"`
}

type YakuEntry struct {
	Name    string `msgpack:"n" json:"n"`
	Han     int    `msgpack:"h,omitempty" json:"h,omitempty"`
	Yakuman int    `msgpack:"y,omitempty" json:"y,omitempty"`
}

type WinDetail struct {
	Seat           int         `msgpack:"s" json:"s"`
	FromSeat       int         `msgpack:"fs" json:"fs"`
	Tsumo          bool        `msgpack:"ts,omitempty" json:"ts,omitempty"`
	WinTile        int         `msgpack:"tl" json:"tl"`
	Yaku           []YakuEntry `msgpack:"yk" json:"yk"`
	Han            int         `msgpack:"h" json:"h"`
	Fu             int         `msgpack:"f" json:"f"`
	Yakuman        int         `msgpack:"y,omitempty" json:"y,omitempty"`
	CostMain       int         `msgpack:"cm" json:"cm"`
	CostAdditional int         `msgpack:"ca,omitempty" json:"ca,omitempty"`
	PaoSeat        int         `msgpack:"pao" json:"pao"`
	UraIndicators  []int       `msgpack:"ura,omitempty" json:"ura,omitempty"`
}

type RoundEnd struct {
	T            string      `msgpack:"t" json:"t"`
	Result       string      `msgpack:"rt" json:"rt"`
	Wins         []WinDetail `msgpack:"ws,omitempty" json:"ws,omitempty"`
	Abort        string      `msgpack:"ab,omitempty" json:"ab,omitempty"`
	TenpaiSeats  []int       `msgpack:"tp,omitempty" json:"tp,omitempty"`
	NagashiSeats []int       `msgpack:"ng,omitempty" json:"ng,omitempty"`
	ScoreChanges [4]int      `msgpack:"sd" json:"sd"`
	Scores       [4]int      `msgpack:"sc" json:"sc"`
	Honba        int         `msgpack:"hb" json:"hb"`
	RiichiSticks int         `msgpack:"rs" json:"rs"`
}

type FinalStanding struct {
	Seat     int    `msgpack:"s" json:"s"`
	Name     string `msgpack:"n" json:"n"`
	RawScore int    `msgpack:"raw" json:"raw"`
	Final    int    `msgpack:"fin" json:"fin"`
	Rank     int    `msgpack:"rk" json:"rk"`
}

type GameEnd struct {
	T      string          `msgpack:"t" json:"t"`
	Scores []FinalStanding `msgpack:"sc" json:"sc"`
}

type GameError struct {
	T       string `msgpack:"t" json:"t"`
	Seat    int    `msgpack:"s" json:"s"`
	Code    string `msgpack:"cd" json:"cd"`
	Message string `msgpack:"ms" json:"ms"`
}

func tileIDs(tiles []engine.Tile) []int {
	if tiles == nil {
		return nil
	}
	out := make([]int, len(tiles))
	for i, t := range tiles {
		out[i] = int(t)
	}
	return out
}

// ShapeGameStarted and friends convert domain events into their wire
// payloads. The event router picks targets; these fix the bytes.

func ShapeGameStarted(e engine.GameStartedEvent) *GameStarted {
	return &GameStarted{
		T:          string(engine.EvGameStarted),
		Players:    e.Players,
		Seed:       e.SeedHex,
		RNGVersion: e.RNGVersion,
	}
}

func ShapeRoundStarted(e engine.RoundStartedEvent) *RoundStarted {
	players := make([]RoundPlayer, len(e.Players))
	for i, p := range e.Players {
		players[i] = RoundPlayer{Seat: p.Seat, Name: p.Name, Score: p.Score}
	}
	return &RoundStarted{
		T:             string(engine.EvRoundStarted),
		Seat:          e.Seat,
		Tiles:         tileIDs(e.Tiles),
		Players:       players,
		DealerSeat:    e.DealerSeat,
		RoundWind:     e.RoundWind,
		RoundNumber:   e.RoundNumber,
		Honba:         e.Honba,
		RiichiSticks:  e.RiichiSticks,
		DoraIndicator: int(e.DoraIndicator),
		Dice:          e.Dice,
	}
}

func shapeActions(a engine.AvailableActions) *Actions {
	if !a.CanTsumo && !a.CanRiichi && len(a.KanOptions) == 0 && !a.CanKyuushu {
		return nil
	}
	out := &Actions{
		CanTsumo:    a.CanTsumo,
		CanRiichi:   a.CanRiichi,
		RiichiTiles: tileIDs(a.RiichiTiles),
		CanKyuushu:  a.CanKyuushu,
	}
	for _, opt := range a.KanOptions {
		out.KanOptions = append(out.KanOptions, shapeMeldOption(opt))
	}
	return out
}

func shapeMeldOption(opt engine.MeldOption) MeldOption {
	return MeldOption{Kind: string(opt.Type), Tiles: tileIDs(opt.Tiles)}
}

func ShapeDraw(e engine.DrawEvent) *Draw {
	return &Draw{
		T:         string(engine.EvDraw),
		Seat:      e.Seat,
		Tile:      int(e.Tile),
		Remaining: e.Remaining,
		Rinshan:   e.Rinshan,
		Actions:   shapeActions(e.Actions),
	}
}

func ShapeDiscard(e engine.DiscardEvent) *Discard {
	return &Discard{
		T:             string(engine.EvDiscard),
		Seat:          e.Seat,
		Tile:          int(e.Tile),
		Tsumogiri:     e.Tsumogiri,
		RiichiDiscard: e.RiichiDiscard,
	}
}

func ShapeMeld(e engine.MeldEvent) *Meld {
	return &Meld{
		T:          string(engine.EvMeld),
		Kind:       string(e.Meld.Type),
		Tiles:      tileIDs(e.Meld.Tiles),
		CalledTile: int(e.Meld.CalledTile),
		CallerSeat: e.Meld.CallerSeat,
		FromSeat:   e.Meld.FromSeat,
		Opened:     e.Meld.Opened,
	}
}

// ShapeCallPrompt builds seat's view of the prompt: ron wins over meld
// options when the seat holds both.
func ShapeCallPrompt(p *engine.CallPrompt, seat int) *CallPrompt {
	out := &CallPrompt{
		T:        string(engine.EvCallPrompt),
		Seat:     seat,
		Tile:     int(p.Tile),
		FromSeat: p.FromSeat,
		Chankan:  p.Type == engine.CallChankan,
	}
	if p.SeatHasRon(seat) {
		out.Kind = "RON"
		return out
	}
	out.Kind = "MELD"
	for _, opt := range p.SeatOptions(seat) {
		out.Options = append(out.Options, shapeMeldOption(opt))
	}
	return out
}

func ShapeRiichi(e engine.RiichiDeclaredEvent) *RiichiDeclared {
	return &RiichiDeclared{
		T:            string(engine.EvRiichi),
		Seat:         e.Seat,
		Score:        e.Score,
		RiichiSticks: e.RiichiSticks,
		Daburi:       e.Daburi,
	}
}

func ShapeDoraRevealed(e engine.DoraRevealedEvent) *DoraRevealed {
	return &DoraRevealed{T: string(engine.EvDoraRevealed), Tile: int(e.Tile)}
}

func ShapeFuriten(e engine.FuritenEvent) *Furiten {
	return &Furiten{T: string(engine.EvFuriten), Seat: e.Seat, Active: e.Active}
}

func ShapeRoundEnd(e engine.RoundEndEvent) *RoundEnd {
	out := &RoundEnd{
		T:            string(engine.EvRoundEnd),
		Result:       string(e.Result.Type),
		Abort:        string(e.Result.Abort),
		TenpaiSeats:  e.Result.TenpaiSeats,
		NagashiSeats: e.Result.NagashiSeats,
		ScoreChanges: e.Result.ScoreChanges,
		Scores:       e.Scores,
		Honba:        e.Honba,
		RiichiSticks: e.RiichiSticks,
	}
	for _, w := range e.Result.Wins {
		detail := WinDetail{
			Seat:           w.Seat,
			FromSeat:       w.FromSeat,
			Tsumo:          w.Tsumo,
			WinTile:        int(w.WinTile),
			CostMain:       w.CostMain,
			CostAdditional: w.CostAdditional,
			PaoSeat:        w.PaoSeat,
			UraIndicators:  tileIDs(w.UraIndicators),
		}
		if w.Score != nil {
			detail.Han = w.Score.Han
			detail.Fu = w.Score.Fu
			detail.Yakuman = w.Score.Yakuman
			for _, y := range w.Score.Yaku {
				detail.Yaku = append(detail.Yaku, YakuEntry{Name: y.Name, Han: y.Han, Yakuman: y.Yakuman})
			}
		}
		out.Wins = append(out.Wins, detail)
	}
	return out
}

func ShapeGameEnd(e engine.GameEndEvent) *GameEnd {
	out := &GameEnd{T: string(engine.EvGameEnd)}
	for _, fs := range e.Scores {
		out.Scores = append(out.Scores, FinalStanding{
			Seat: fs.Seat, Name: fs.Name, RawScore: fs.RawScore,
			Final: fs.Final, Rank: fs.Rank,
		})
	}
	return out
}

func ShapeError(e engine.ErrorEvent) *GameError {
	return &GameError{T: string(engine.EvError), Seat: e.Seat, Code: e.Code, Message: e.Message}
}
