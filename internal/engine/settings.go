package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RenhouValue selects how a non-dealer first-uninterrupted-discard win
// is scored.
type RenhouValue string

const (
	RenhouDisabled RenhouValue = "DISABLED"
	RenhouMangan   RenhouValue = "MANGAN"
	RenhouBaiman   RenhouValue = "BAIMAN"
)

// KazoeLimit selects what a 13+ han counted hand pays.
type KazoeLimit string

const (
	KazoeYakuman   KazoeLimit = "YAKUMAN"
	KazoeSanbaiman KazoeLimit = "SANBAIMAN"
)

// Settings is the rule configuration for one game. The zero value is
// not usable; start from DefaultSettings.
type Settings struct {
	NumPlayers int `yaml:"num_players"`

	StartScore  int `yaml:"start_score"`
	TargetScore int `yaml:"target_score"` // return score used for uma/oka

	// Uma is the rank bonus in thousands, first place first.
	Uma [4]int `yaml:"uma"`

	AkaDora       int  `yaml:"aka_dora"` // number of red fives in play
	Ippatsu       bool `yaml:"ippatsu"`
	UraDora       bool `yaml:"ura_dora"`
	Kiriage       bool `yaml:"kiriage"`        // round 4h30f/3h60f up to mangan
	DoubleYakuman bool `yaml:"double_yakuman"` // certain yakuman pay double
	OpenPinfuFu   bool `yaml:"open_pinfu_fu"`  // 2 extra fu for open 20-fu hands
	PinfuTsumoFu  bool `yaml:"pinfu_tsumo_fu"` // count the tsumo 2 fu on pinfu

	KazoeLimit  KazoeLimit  `yaml:"kazoe_limit"`
	RenhouValue RenhouValue `yaml:"renhou_value"`

	// Abortive draws.
	NineTerminalsDraw bool `yaml:"nine_terminals_draw"`
	FourWindsDraw     bool `yaml:"four_winds_draw"`
	FourRiichiDraw    bool `yaml:"four_riichi_draw"`
	FourKansDraw      bool `yaml:"four_kans_draw"`
	TripleRonDraw     bool `yaml:"triple_ron_draw"`

	NagashiMangan bool `yaml:"nagashi_mangan"`

	Tobi      bool `yaml:"tobi"`      // end the game on a negative score
	Enchousen bool `yaml:"enchousen"` // sudden-death West round

	// Fail-closed flags: accepted only at their default value.
	Agariyame           bool `yaml:"agariyame"`
	TieBreakBySeatOrder bool `yaml:"tie_break_by_seat_order"`
}

// UnsupportedSettingsError reports a settings flag whose behavior this
// engine does not implement. Configuration fails rather than silently
// approximating.
type UnsupportedSettingsError struct {
	Flag   string
	Reason string
}

func (e *UnsupportedSettingsError) Error() string {
	return fmt.Sprintf("engine: unsupported setting %s: %s", e.Flag, e.Reason)
}

// DefaultSettings returns the standard four-player hanchan ruleset.
func DefaultSettings() Settings {
	return Settings{
		NumPlayers:          4,
		StartScore:          25000,
		TargetScore:         30000,
		Uma:                 [4]int{20, 10, -10, -20},
		AkaDora:             3,
		Ippatsu:             true,
		UraDora:             true,
		Kiriage:             false,
		DoubleYakuman:       true,
		OpenPinfuFu:         true,
		PinfuTsumoFu:        false,
		KazoeLimit:          KazoeYakuman,
		RenhouValue:         RenhouDisabled,
		NineTerminalsDraw:   true,
		FourWindsDraw:       true,
		FourRiichiDraw:      true,
		FourKansDraw:        true,
		TripleRonDraw:       true,
		NagashiMangan:       true,
		Tobi:                true,
		Enchousen:           true,
		Agariyame:           false,
		TieBreakBySeatOrder: true,
	}
}

// Validate rejects settings the engine cannot honor.
func (s *Settings) Validate() error {
	if s.NumPlayers != 4 {
		return &UnsupportedSettingsError{Flag: "num_players", Reason: "only four-player games are implemented"}
	}
	if s.Agariyame {
		return &UnsupportedSettingsError{Flag: "agariyame", Reason: "dealer-win game end is not implemented"}
	}
	if s.RenhouValue == RenhouBaiman {
		return &UnsupportedSettingsError{Flag: "renhou_value", Reason: "BAIMAN renhou is not implemented"}
	}
	if !s.TieBreakBySeatOrder {
		return &UnsupportedSettingsError{Flag: "tie_break_by_seat_order", Reason: "only seat-order tie breaking is implemented"}
	}
	switch s.KazoeLimit {
	case KazoeYakuman, KazoeSanbaiman:
	default:
		return &UnsupportedSettingsError{Flag: "kazoe_limit", Reason: fmt.Sprintf("unknown value %q", s.KazoeLimit)}
	}
	switch s.RenhouValue {
	case RenhouDisabled, RenhouMangan:
	default:
		return &UnsupportedSettingsError{Flag: "renhou_value", Reason: fmt.Sprintf("unknown value %q", s.RenhouValue)}
	}
	if s.AkaDora != 0 && s.AkaDora != 3 {
		return &UnsupportedSettingsError{Flag: "aka_dora", Reason: "supported counts are 0 and 3"}
	}
	if s.StartScore <= 0 || s.TargetScore < s.StartScore {
		return &UnsupportedSettingsError{Flag: "target_score", Reason: "target must be at least the start score"}
	}
	return nil
}

// LoadSettings reads a YAML preset file over the defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}
