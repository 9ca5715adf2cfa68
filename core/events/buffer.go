package events

// Buffer collects events emitted during a speculative execution. Nothing
// reaches the downstream emitter until Flush is called, so a reverted
// operation publishes nothing.
type Buffer struct {
	pending []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if evt == nil {
		return
	}
	b.pending = append(b.pending, evt)
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int { return len(b.pending) }

// Events returns the buffered events without clearing them.
func (b *Buffer) Events() []Event {
	out := make([]Event, len(b.pending))
	copy(out, b.pending)
	return out
}

// Flush forwards the buffered events to dst in emission order and clears the
// buffer.
func (b *Buffer) Flush(dst Emitter) []Event {
	flushed := b.pending
	b.pending = nil
	if dst == nil {
		return flushed
	}
	for _, evt := range flushed {
		dst.Emit(evt)
	}
	return flushed
}

// Discard drops every buffered event.
func (b *Buffer) Discard() { b.pending = nil }

// Fanout emits every event to all configured emitters.
type Fanout []Emitter

// Emit implements the Emitter interface.
func (f Fanout) Emit(evt Event) {
	for _, e := range f {
		if e != nil {
			e.Emit(evt)
		}
	}
}
