package events

import "sync"

// Buffer holds events raised during a transition until the transition is
// known to have committed. Flush forwards them in order; Reset drops them.
type Buffer struct {
	mu      sync.Mutex
	pending []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.mu.Lock()
	b.pending = append(b.pending, evt)
	b.mu.Unlock()
}

// Mark returns the current length so a caller can later truncate back to it.
func (b *Buffer) Mark() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Truncate drops every event raised after mark.
func (b *Buffer) Truncate(mark int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if mark >= 0 && mark < len(b.pending) {
		b.pending = b.pending[:mark]
	}
}

// Flush forwards the pending events to dst and clears the buffer.
func (b *Buffer) Flush(dst Emitter) []Event {
	b.mu.Lock()
	out := b.pending
	b.pending = nil
	b.mu.Unlock()
	if dst != nil {
		for _, evt := range out {
			dst.Emit(evt)
		}
	}
	return out
}

// Reset discards all pending events.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.pending = nil
	b.mu.Unlock()
}
