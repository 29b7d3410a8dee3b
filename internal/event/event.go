package event

import (
	"fmt"

	"github.com/janpai/server/internal/engine"
	"github.com/janpai/server/internal/proto"
)

// Target says who receives a service event.
type Target interface{ isTarget() }

// BroadcastTarget addresses every seat in the game.
type BroadcastTarget struct{}

// SeatTarget addresses one seat only.
type SeatTarget struct{ Seat int }

func (BroadcastTarget) isTarget() {}
func (SeatTarget) isTarget()      {}

// ServiceEvent pairs a wire payload with its delivery target. The
// payload is already shaped; the transport only frames and sends it.
type ServiceEvent struct {
	Target  Target
	Kind    engine.EventType
	Payload any
}

// Convert maps one transition's domain events onto targeted service
// events, preserving emission order. Call prompts fan out per pending
// seat, each copy filtered to that seat's entries.
func Convert(events []engine.Event) ([]ServiceEvent, error) {
	var out []ServiceEvent
	broadcast := func(kind engine.EventType, payload any) {
		out = append(out, ServiceEvent{Target: BroadcastTarget{}, Kind: kind, Payload: payload})
	}
	toSeat := func(kind engine.EventType, seat int, payload any) {
		out = append(out, ServiceEvent{Target: SeatTarget{Seat: seat}, Kind: kind, Payload: payload})
	}

	for _, ev := range events {
		switch e := ev.(type) {
		case engine.GameStartedEvent:
			broadcast(engine.EvGameStarted, proto.ShapeGameStarted(e))
		case engine.RoundStartedEvent:
			toSeat(engine.EvRoundStarted, e.Seat, proto.ShapeRoundStarted(e))
		case engine.DrawEvent:
			toSeat(engine.EvDraw, e.Seat, proto.ShapeDraw(e))
		case engine.DiscardEvent:
			broadcast(engine.EvDiscard, proto.ShapeDiscard(e))
		case engine.MeldEvent:
			broadcast(engine.EvMeld, proto.ShapeMeld(e))
		case engine.CallPromptEvent:
			for _, seat := range e.Prompt.Seats() {
				toSeat(engine.EvCallPrompt, seat, proto.ShapeCallPrompt(e.Prompt, seat))
			}
		case engine.RiichiDeclaredEvent:
			broadcast(engine.EvRiichi, proto.ShapeRiichi(e))
		case engine.DoraRevealedEvent:
			broadcast(engine.EvDoraRevealed, proto.ShapeDoraRevealed(e))
		case engine.FuritenEvent:
			toSeat(engine.EvFuriten, e.Seat, proto.ShapeFuriten(e))
		case engine.RoundEndEvent:
			broadcast(engine.EvRoundEnd, proto.ShapeRoundEnd(e))
		case engine.GameEndEvent:
			broadcast(engine.EvGameEnd, proto.ShapeGameEnd(e))
		case engine.ErrorEvent:
			toSeat(engine.EvError, e.Seat, proto.ShapeError(e))
		default:
			return nil, fmt.Errorf("unmapped domain event %T", ev)
		}
	}
	return out, nil
}
