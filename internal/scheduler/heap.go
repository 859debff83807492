package scheduler

import "container/heap"

// scheduleHeap implements container/heap.Interface for ScheduleEvent,
// sorted by TriggerAt (earliest first).
type scheduleHeap []ScheduleEvent

func (h scheduleHeap) Len() int           { return len(h) }
func (h scheduleHeap) Less(i, j int) bool { return h[i].TriggerAt.Before(h[j].TriggerAt) }
func (h scheduleHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *scheduleHeap) Push(x any) {
	*h = append(*h, x.(ScheduleEvent))
}

func (h *scheduleHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func heapPush(h *scheduleHeap, e ScheduleEvent) {
	heap.Push(h, e)
}

// heapPop removes and returns the earliest event. Panics if h is empty.
func heapPop(h *scheduleHeap) ScheduleEvent {
	return heap.Pop(h).(ScheduleEvent)
}

// heapRemoveByName removes the event called name and reports whether it
// was present.
func heapRemoveByName(h *scheduleHeap, name string) bool {
	for i, e := range *h {
		if e.Name == name {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}

// snapshot returns the events in trigger order without disturbing h.
func (h scheduleHeap) snapshot() []ScheduleEvent {
	cp := make(scheduleHeap, len(h))
	copy(cp, h)
	out := make([]ScheduleEvent, 0, len(cp))
	for cp.Len() > 0 {
		out = append(out, heapPop(&cp))
	}
	return out
}
