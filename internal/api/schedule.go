package api

import (
	"context"

	"github.com/rewindhq/rewind/common"
	"github.com/rewindhq/rewind/internal/scheduler"
)

// OnSchedule is the scheduler's trigger callback. The start runs off the
// scheduler goroutine so a slow history source cannot delay other
// schedules.
func (s *Api) OnSchedule(e scheduler.ScheduleEvent) {
	s.log.Info("[%s] schedule %q fired", s.ctl.SessionID(), e.Name)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), scheduledStartTimeout)
		defer cancel()
		if err := s.Start(ctx, e.StartAt); err != nil {
			s.log.Warning("[%s] schedule %q could not start playback: %v", s.ctl.SessionID(), e.Name, err)
		}
	}()
}

func (s *Api) scheduleList(_ context.Context) (*common.ScheduleResult, error) {
	res := &common.ScheduleResult{Schedules: []common.ScheduleItem{}}
	if s.scheduler == nil {
		return res, nil
	}
	for _, e := range s.scheduler.List() {
		item := common.ScheduleItem{
			Name:        e.Name,
			Cron:        e.CronExpr,
			NextEpochMs: e.TriggerAt.UnixMilli(),
		}
		if e.StartAt != nil {
			ms := e.StartAt.UnixMilli()
			item.StartAtEpochMs = &ms
		}
		res.Schedules = append(res.Schedules, item)
	}
	return res, nil
}
