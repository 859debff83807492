package replaylib

import "time"

// TimerKind identifies one of the controller's timer slots.
type TimerKind int

const (
	TimerFetchNext TimerKind = iota
	TimerBecomeDue
	TimerCountdown
	TimerPoll
	numTimerKinds
)

var timerKindNames = [...]string{"fetchNext", "becomeDue", "countdown", "poll"}

func (k TimerKind) String() string {
	return timerKindNames[k]
}

// TimerCounts is the number of live timers per kind. Each is 0 or 1.
type TimerCounts struct {
	FetchNext int `json:"fetchNext"`
	BecomeDue int `json:"becomeDue"`
	Countdown int `json:"countdown"`
	Poll      int `json:"poll"`
}

// Total returns the number of live timers.
func (t TimerCounts) Total() int {
	return t.FetchNext + t.BecomeDue + t.Countdown + t.Poll
}

type timerHandle struct {
	id uint64
	t  Timer
}

// timerSet holds one slot per TimerKind. It is only touched from the event
// loop; fired callbacks are posted back to the loop and dropped if their
// slot has since been re-armed or cancelled.
type timerSet struct {
	clock   Clock
	post    func(op func())
	handles [numTimerKinds]*timerHandle
	seq     uint64
}

func (s *timerSet) arm(kind TimerKind, d time.Duration, fn func()) {
	s.cancel(kind)
	s.seq++
	id := s.seq
	h := &timerHandle{id: id}
	s.handles[kind] = h
	h.t = s.clock.AfterFunc(d, func() {
		s.post(func() {
			cur := s.handles[kind]
			if cur == nil || cur.id != id {
				return
			}
			s.handles[kind] = nil
			fn()
		})
	})
}

func (s *timerSet) armed(kind TimerKind) bool {
	return s.handles[kind] != nil
}

func (s *timerSet) cancel(kind TimerKind) {
	h := s.handles[kind]
	if h == nil {
		return
	}
	s.handles[kind] = nil
	if h.t != nil {
		h.t.Stop()
	}
}

// cancelDisplay cancels the three display scheduler timers.
func (s *timerSet) cancelDisplay() {
	s.cancel(TimerFetchNext)
	s.cancel(TimerBecomeDue)
	s.cancel(TimerCountdown)
}

func (s *timerSet) cancelAll() {
	for k := TimerKind(0); k < numTimerKinds; k++ {
		s.cancel(k)
	}
}

func (s *timerSet) counts() TimerCounts {
	var c TimerCounts
	if s.armed(TimerFetchNext) {
		c.FetchNext = 1
	}
	if s.armed(TimerBecomeDue) {
		c.BecomeDue = 1
	}
	if s.armed(TimerCountdown) {
		c.Countdown = 1
	}
	if s.armed(TimerPoll) {
		c.Poll = 1
	}
	return c
}
