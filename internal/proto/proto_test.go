package proto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/janpai/server/internal/engine"
)

func encodeClient(t *testing.T, m map[string]any) []byte {
	t.Helper()
	b, err := msgpack.Marshal(m)
	require.NoError(t, err)
	return b
}

func TestDecodeJoinRoom(t *testing.T) {
	frame := encodeClient(t, map[string]any{
		"t": "JOIN_ROOM", "room_id": "r1", "game_ticket": "tkt",
	})
	msg, err := DecodeClient(frame)
	require.NoError(t, err)
	assert.Equal(t, MsgJoinRoom, msg.T)
	assert.Equal(t, "r1", msg.RoomID)
}

func TestDecodeJoinRoomMissingTicket(t *testing.T) {
	frame := encodeClient(t, map[string]any{"t": "JOIN_ROOM", "room_id": "r1"})
	_, err := DecodeClient(frame)
	require.Error(t, err)
}

func TestDecodeUnknownKind(t *testing.T) {
	frame := encodeClient(t, map[string]any{"t": "DANCE"})
	_, err := DecodeClient(frame)
	require.Error(t, err)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := DecodeClient([]byte{0xc1, 0x00})
	require.Error(t, err)
}

func TestDecodeGameAction(t *testing.T) {
	frame := encodeClient(t, map[string]any{
		"t": "GAME_ACTION", "a": "DISCARD", "tile_id": 17,
	})
	msg, err := DecodeClient(frame)
	require.NoError(t, err)
	require.NotNil(t, msg.TileID)
	assert.Equal(t, 17, *msg.TileID)

	data := msg.ActionData()
	require.NotNil(t, data.TileID)
	assert.Equal(t, 17, *data.TileID)
}

func TestDecodeGameActionValidation(t *testing.T) {
	cases := []map[string]any{
		{"t": "GAME_ACTION", "a": "DANCE"},
		{"t": "GAME_ACTION", "a": "DISCARD", "tile_id": 136},
		{"t": "GAME_ACTION", "a": "DISCARD", "tile_id": -1},
		{"t": "GAME_ACTION", "a": "CALL_CHI", "sequence_tiles": []int{1}},
		{"t": "GAME_ACTION", "a": "CALL_CHI", "sequence_tiles": []int{1, 200}},
		{"t": "GAME_ACTION", "a": "CALL_KAN", "kan_type": "SIDEWAYS"},
	}
	for _, c := range cases {
		_, err := DecodeClient(encodeClient(t, c))
		assert.Error(t, err, "%v", c)
	}
}

func TestDecodeChiSequence(t *testing.T) {
	frame := encodeClient(t, map[string]any{
		"t": "GAME_ACTION", "a": "CALL_CHI", "sequence_tiles": []int{4, 8},
	})
	msg, err := DecodeClient(frame)
	require.NoError(t, err)
	data := msg.ActionData()
	assert.Equal(t, []engine.Tile{4, 8}, data.SequenceTiles)
}

func TestValidateChatText(t *testing.T) {
	assert.NoError(t, ValidateChatText("hello\tworld\n"))
	assert.Error(t, ValidateChatText(""))
	assert.Error(t, ValidateChatText(strings.Repeat("x", 1001)))
	assert.Error(t, ValidateChatText("ding\x07"))
	assert.Error(t, ValidateChatText("del\x7f"))
}

func TestShapeDrawStripsEmptyActions(t *testing.T) {
	d := ShapeDraw(engine.DrawEvent{Seat: 2, Tile: 55, Remaining: 60})
	assert.Nil(t, d.Actions)

	d = ShapeDraw(engine.DrawEvent{Seat: 2, Tile: 55, Actions: engine.AvailableActions{CanTsumo: true}})
	require.NotNil(t, d.Actions)
	assert.True(t, d.Actions.CanTsumo)
}

func TestShapeCallPromptRonDominant(t *testing.T) {
	prompt := &engine.CallPrompt{
		Type:     engine.CallDiscard,
		Tile:     108,
		FromSeat: 0,
		Callers: []engine.Caller{
			{Seat: 1, Ron: true},
			{Seat: 1, Option: &engine.MeldOption{Type: engine.MeldPon, Tiles: []engine.Tile{109, 110}}},
			{Seat: 2, Option: &engine.MeldOption{Type: engine.MeldPon, Tiles: []engine.Tile{109, 111}}},
		},
		PendingSeats: map[int]bool{1: true, 2: true},
	}

	ron := ShapeCallPrompt(prompt, 1)
	assert.Equal(t, "RON", ron.Kind)
	assert.Empty(t, ron.Options)

	meld := ShapeCallPrompt(prompt, 2)
	assert.Equal(t, "MELD", meld.Kind)
	require.Len(t, meld.Options, 1)
	assert.Equal(t, string(engine.MeldPon), meld.Options[0].Kind)
}

func TestEncodeRoundTrip(t *testing.T) {
	in := ShapeDiscard(engine.DiscardEvent{Seat: 3, Tile: 12, Tsumogiri: true})
	b, err := Encode(in)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, msgpack.Unmarshal(b, &out))
	assert.Equal(t, "discard", out["t"])
	assert.EqualValues(t, 3, out["s"])
	assert.EqualValues(t, 12, out["tl"])
	assert.Equal(t, true, out["tg"])
	// omitempty keeps false flags off the wire.
	_, has := out["rd"]
	assert.False(t, has)
}
