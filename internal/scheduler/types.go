package scheduler

import "time"

// ScheduleEvent is one pending autoplay in the scheduler heap.
type ScheduleEvent struct {
	// Name identifies the schedule; adding a second event with the same
	// name replaces the first.
	Name string
	// TriggerAt is the wall-clock time the event fires.
	TriggerAt time.Time
	// CronExpr re-arms the event after it fires. Empty means one-shot.
	CronExpr string
	// StartAt is the instant playback starts from. Nil starts at the
	// first event of the timeline.
	StartAt *time.Time
}
