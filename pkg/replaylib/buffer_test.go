package replaylib

import "testing"

func TestEventBuffer_LastPutWins(t *testing.T) {
	var b EventBuffer
	if _, ok := b.Take(); ok {
		t.Fatal("new buffer should be empty")
	}
	first := &TimelineEvent{Index: 1, Target: "a"}
	second := &TimelineEvent{Index: 1, Target: "b"}

	if old := b.Put(first); old != nil {
		t.Errorf("unexpected replaced event %v", old)
	}
	if old := b.Put(second); old != first {
		t.Errorf("expected first to be replaced")
	}
	if b.Drops() != 1 {
		t.Errorf("expected one drop, got %d", b.Drops())
	}
	if b.Peek() != second {
		t.Errorf("peek should return the latest event")
	}
	ev, ok := b.Take()
	if !ok || ev != second {
		t.Errorf("take returned %v %v", ev, ok)
	}
	if b.Peek() != nil {
		t.Error("buffer should be empty after take")
	}
}

func TestEventBuffer_ClearDoesNotCountDrop(t *testing.T) {
	var b EventBuffer
	b.Put(&TimelineEvent{Index: 0, Target: "x"})
	b.Clear()
	if b.Peek() != nil || b.Drops() != 0 {
		t.Errorf("clear: peek=%v drops=%d", b.Peek(), b.Drops())
	}
}
