package replaylib

import "sync"

// EventBuffer holds at most one fetched event that has not been shown yet.
// A newer Put replaces the held event; the replaced one is counted as a drop.
type EventBuffer struct {
	mu    sync.Mutex
	ev    *TimelineEvent
	drops uint64
}

// Put stores ev, returning the event it replaced, if any.
func (b *EventBuffer) Put(ev *TimelineEvent) *TimelineEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.ev
	b.ev = ev
	if old != nil {
		b.drops++
	}
	return old
}

// Take empties the buffer and returns the held event.
func (b *EventBuffer) Take() (*TimelineEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev := b.ev
	b.ev = nil
	return ev, ev != nil
}

// Peek returns the held event without removing it.
func (b *EventBuffer) Peek() *TimelineEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ev
}

// Clear discards the held event without counting a drop.
func (b *EventBuffer) Clear() {
	b.mu.Lock()
	b.ev = nil
	b.mu.Unlock()
}

// Drops returns how many unshown events were replaced.
func (b *EventBuffer) Drops() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drops
}
