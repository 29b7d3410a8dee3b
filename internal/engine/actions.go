package engine

import "fmt"

// Action is a game action kind, as carried on the wire in the `a` tag.
type Action string

const (
	ActionDiscard Action = "DISCARD"
	ActionRiichi  Action = "DECLARE_RIICHI"
	ActionTsumo   Action = "DECLARE_TSUMO"
	ActionPon     Action = "CALL_PON"
	ActionChi     Action = "CALL_CHI"
	ActionKan     Action = "CALL_KAN"
	ActionRon     Action = "CALL_RON"
	ActionKyuushu Action = "CALL_KYUUSHU"
	ActionPass    Action = "PASS"
	ActionConfirm Action = "CONFIRM_ROUND"
)

// KnownAction reports whether a is a recognized action kind.
func KnownAction(a Action) bool {
	switch a {
	case ActionDiscard, ActionRiichi, ActionTsumo, ActionPon, ActionChi,
		ActionKan, ActionRon, ActionKyuushu, ActionPass, ActionConfirm:
		return true
	}
	return false
}

// KanType selects the quad variant on CALL_KAN.
type KanType string

const (
	KanOpen   KanType = "OPEN"
	KanClosed KanType = "CLOSED"
	KanAdded  KanType = "ADDED"
)

// ActionData carries the action-specific payload after schema
// validation. Fields are set only where the action uses them.
type ActionData struct {
	TileID        *int   // DISCARD, DECLARE_RIICHI, CALL_KAN
	SequenceTiles []Tile // CALL_CHI: the two hand tiles joining the call
	KanType       KanType
}

// Rule violation codes surfaced as ACTION_FAILED.
const (
	CodeInvalidDiscard  = "INVALID_DISCARD"
	CodeInvalidAction   = "INVALID_ACTION"
	CodeNotYourTurn     = "NOT_YOUR_TURN"
	CodeNoPrompt        = "NO_PROMPT"
	CodeRoundFinished   = "ROUND_FINISHED"
	CodeGameFinished    = "GAME_FINISHED"
	CodeUnknownPlayer   = "UNKNOWN_PLAYER"
	CodeUnknownAction   = "UNKNOWN_ACTION"
	CodeValidationError = "VALIDATION_ERROR"
)

// RuleError is an expected rule violation: the action was well formed
// but illegal in the current state. It is sent back to the offender and
// never tears the game down.
type RuleError struct {
	Code string
	Msg  string
}

func (e *RuleError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Msg) }

func ruleErrorf(code, format string, args ...any) *RuleError {
	return &RuleError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// invalidDiscard builds the discard-specific rule violation.
func invalidDiscard(format string, args ...any) *RuleError {
	return ruleErrorf(CodeInvalidDiscard, format, args...)
}

func invalidAction(format string, args ...any) *RuleError {
	return ruleErrorf(CodeInvalidAction, format, args...)
}
