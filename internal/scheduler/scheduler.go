package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rewindhq/rewind/internal/config"
)

const maxSleepCap = 60 * time.Second

// Scheduler fires named autoplay events. All heap access happens on the
// run goroutine; the exported methods talk to it over channels.
type Scheduler struct {
	addChan    chan ScheduleEvent
	removeChan chan string
	listChan   chan chan []ScheduleEvent
	ctx        context.Context
}

// New creates and starts a Scheduler. onTrigger runs on the scheduler
// goroutine and should hand long work off. The goroutine exits when ctx
// is cancelled.
func New(ctx context.Context, onTrigger func(ScheduleEvent)) *Scheduler {
	s := &Scheduler{
		addChan:    make(chan ScheduleEvent, 64),
		removeChan: make(chan string, 64),
		listChan:   make(chan chan []ScheduleEvent),
		ctx:        ctx,
	}
	go s.run(onTrigger)
	return s
}

// Add enqueues event, replacing any pending event with the same name.
func (s *Scheduler) Add(event ScheduleEvent) {
	select {
	case s.addChan <- event:
	case <-s.ctx.Done():
	}
}

// Remove cancels the pending event called name.
func (s *Scheduler) Remove(name string) {
	select {
	case s.removeChan <- name:
	case <-s.ctx.Done():
	}
}

// List returns the pending events in trigger order. It returns nil once
// the scheduler has stopped.
func (s *Scheduler) List() []ScheduleEvent {
	reply := make(chan []ScheduleEvent, 1)
	select {
	case s.listChan <- reply:
	case <-s.ctx.Done():
		return nil
	}
	select {
	case out := <-reply:
		return out
	case <-s.ctx.Done():
		return nil
	}
}

func (s *Scheduler) run(onTrigger func(ScheduleEvent)) {
	h := &scheduleHeap{}
	heap.Init(h)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			return nil
		}
		dur := time.Until((*h)[0].TriggerAt)
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-s.ctx.Done():
			return

		case event := <-s.addChan:
			heapRemoveByName(h, event.Name)
			heapPush(h, event)
			timerCh = resetTimer()

		case name := <-s.removeChan:
			heapRemoveByName(h, name)
			timerCh = resetTimer()

		case reply := <-s.listChan:
			reply <- h.snapshot()

		case <-timerCh:
			now := time.Now()
			for h.Len() > 0 && !(*h)[0].TriggerAt.After(now) {
				event := heapPop(h)
				onTrigger(event)
				if event.CronExpr == "" {
					continue
				}
				next, err := nextCronOccurrence(event.CronExpr, time.Now())
				if err == nil {
					event.TriggerAt = next
					heapPush(h, event)
				}
			}
			timerCh = resetTimer()
		}
	}
}

// nextCronOccurrence returns the next time expr fires strictly after start.
func nextCronOccurrence(expr string, start time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, start, false)
}

// hasOccurrenceWithinYear reports whether expr fires at least once in the
// year after from.
func hasOccurrenceWithinYear(expr string, from time.Time) bool {
	next, err := gronx.NextTickAfter(expr, from, false)
	if err != nil {
		return false
	}
	return next.Before(from.Add(365 * 24 * time.Hour))
}

// LoadSchedules turns the configured schedules into heap events armed for
// their first occurrence after now. A schedule that never fires within a
// year is rejected so a typo like "0 0 31 2 *" does not sit silently.
func LoadSchedules(schedules []config.Schedule, now time.Time) ([]ScheduleEvent, error) {
	events := make([]ScheduleEvent, 0, len(schedules))
	for _, sc := range schedules {
		if !hasOccurrenceWithinYear(sc.Cron, now) {
			return nil, fmt.Errorf("schedule %q: %q never fires within a year", sc.Name, sc.Cron)
		}
		next, err := nextCronOccurrence(sc.Cron, now)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", sc.Name, err)
		}
		start, err := sc.StartAt()
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", sc.Name, err)
		}
		events = append(events, ScheduleEvent{
			Name:      sc.Name,
			TriggerAt: next,
			CronExpr:  sc.Cron,
			StartAt:   start,
		})
	}
	return events, nil
}
