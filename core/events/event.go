package events

import "plasmavault/core/types"

// Event represents a structured state change emitted by the vault engines.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. logs, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects events raised during a single call so they can be published
// once the call commits, or dropped when it reverts.
type Buffer struct {
	pending []Event
}

// Emit queues the event.
func (b *Buffer) Emit(e Event) {
	if b == nil || e == nil {
		return
	}
	b.pending = append(b.pending, e)
}

// Flush forwards queued events to target in emission order and clears the
// buffer.
func (b *Buffer) Flush(target Emitter) {
	if b == nil {
		return
	}
	pending := b.pending
	b.pending = nil
	if target == nil {
		return
	}
	for _, e := range pending {
		target.Emit(e)
	}
}

// Discard drops queued events.
func (b *Buffer) Discard() {
	if b == nil {
		return
	}
	b.pending = nil
}

// Len reports the number of queued events.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.pending)
}

// Recorder keeps every emitted event. Tests use it to assert emission order.
type Recorder struct {
	Events []Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(e Event) {
	if r == nil {
		return
	}
	r.Events = append(r.Events, e)
}

// Types returns the type of every recorded event.
func (r *Recorder) Types() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.EventType()
	}
	return out
}
