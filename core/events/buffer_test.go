package events

import "testing"

type testEvent string

func (e testEvent) EventType() string { return string(e) }

func TestBufferFlushAndTruncate(t *testing.T) {
	var buf Buffer
	buf.Emit(testEvent("a"))
	mark := buf.Mark()
	buf.Emit(testEvent("b"))
	buf.Emit(testEvent("c"))
	buf.Truncate(mark)

	var got []string
	flushed := buf.Flush(EmitterFunc(func(evt Event) { got = append(got, evt.EventType()) }))
	if len(flushed) != 1 || len(got) != 1 || got[0] != "a" {
		t.Fatalf("unexpected flush result: %v", got)
	}
	if buf.Mark() != 0 {
		t.Fatalf("buffer not cleared after flush")
	}
}

func TestBufferReset(t *testing.T) {
	var buf Buffer
	buf.Emit(testEvent("a"))
	buf.Reset()
	if n := len(buf.Flush(nil)); n != 0 {
		t.Fatalf("expected empty buffer, got %d", n)
	}
}
