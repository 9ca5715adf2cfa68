package events

import "agentpay/core/types"

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC streams).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Payload is implemented by events that carry a raw attribute payload.
type Payload interface {
	Event
	Event() *types.Event
}

type envelope struct {
	evt *types.Event
}

func (e envelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e envelope) Event() *types.Event { return e.evt }

// Wrap converts a raw event payload into the emitter-friendly envelope.
func Wrap(evt *types.Event) Payload { return envelope{evt: evt} }

// Unwrap extracts the raw payload from an emitted event. Events that do not
// carry one are reported with their type only.
func Unwrap(evt Event) *types.Event {
	if evt == nil {
		return nil
	}
	if p, ok := evt.(Payload); ok && p.Event() != nil {
		return p.Event()
	}
	return &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
}
