package proto

import (
	"fmt"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/janpai/server/internal/engine"
)

// Client message kinds, carried in the `t` tag.
const (
	MsgJoinRoom   = "JOIN_ROOM"
	MsgLeaveRoom  = "LEAVE_ROOM"
	MsgReconnect  = "RECONNECT"
	MsgSetReady   = "SET_READY"
	MsgGameAction = "GAME_ACTION"
	MsgChat       = "CHAT"
	MsgPing       = "PING"
)

// ClientMessage is the inbound union. `t` selects the kind; GAME_ACTION
// carries a second-level `a` tag selecting the game action.
type ClientMessage struct {
	T string `msgpack:"t"`

	RoomID     string `msgpack:"room_id,omitempty"`
	GameTicket string `msgpack:"game_ticket,omitempty"`

	Ready bool `msgpack:"ready,omitempty"`

	A             string `msgpack:"a,omitempty"`
	TileID        *int   `msgpack:"tile_id,omitempty"`
	SequenceTiles []int  `msgpack:"sequence_tiles,omitempty"`
	KanType       string `msgpack:"kan_type,omitempty"`

	Text string `msgpack:"text,omitempty"`
}

// DecodeClient parses one binary frame. Unknown fields are ignored;
// unknown kinds and malformed payloads fail validation.
func DecodeClient(frame []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := msgpack.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *ClientMessage) validate() error {
	switch m.T {
	case MsgJoinRoom, MsgReconnect:
		if m.RoomID == "" || m.GameTicket == "" {
			return fmt.Errorf("%s requires room_id and game_ticket", m.T)
		}
	case MsgLeaveRoom, MsgSetReady, MsgPing:
	case MsgGameAction:
		return m.validateAction()
	case MsgChat:
		return ValidateChatText(m.Text)
	default:
		return fmt.Errorf("unknown message kind %q", m.T)
	}
	return nil
}

func (m *ClientMessage) validateAction() error {
	action := engine.Action(m.A)
	if !engine.KnownAction(action) {
		return fmt.Errorf("unknown game action %q", m.A)
	}
	if m.TileID != nil && !engine.ValidTile(*m.TileID) {
		return fmt.Errorf("tile_id %d out of range", *m.TileID)
	}
	for _, id := range m.SequenceTiles {
		if !engine.ValidTile(id) {
			return fmt.Errorf("sequence tile %d out of range", id)
		}
	}
	if action == engine.ActionChi && len(m.SequenceTiles) != 0 && len(m.SequenceTiles) != 2 {
		return fmt.Errorf("chi carries exactly two sequence tiles")
	}
	switch engine.KanType(m.KanType) {
	case "", engine.KanOpen, engine.KanClosed, engine.KanAdded:
	default:
		return fmt.Errorf("unknown kan_type %q", m.KanType)
	}
	return nil
}

// ActionData converts the wire fields into the engine's action payload.
func (m *ClientMessage) ActionData() engine.ActionData {
	data := engine.ActionData{
		TileID:  m.TileID,
		KanType: engine.KanType(m.KanType),
	}
	for _, id := range m.SequenceTiles {
		data.SequenceTiles = append(data.SequenceTiles, engine.Tile(id))
	}
	return data
}

// ValidateChatText enforces the chat contract: 1..1000 characters with
// no ASCII control characters except tab, LF and CR.
func ValidateChatText(text string) error {
	if n := utf8.RuneCountInString(text); n == 0 || n > 1000 {
		return fmt.Errorf("chat text must be 1..1000 characters")
	}
	for _, r := range text {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return fmt.Errorf("chat text contains control characters")
		}
		if r == 0x7f {
			return fmt.Errorf("chat text contains control characters")
		}
	}
	return nil
}
