// Package scheduler starts replay sessions on a cron schedule.
// It runs a single goroutine holding a min-heap of ScheduleEvents sorted by
// trigger time, with a 60-second max-sleep-cap so NTP steps, DST
// transitions and system sleep cannot push a trigger far past its time.
//
// Events are named. Firing an event calls the registered OnTrigger callback
// and, for cron events, re-arms the next occurrence. Nothing is persisted;
// the heap is rebuilt from the config file on server start.
package scheduler
