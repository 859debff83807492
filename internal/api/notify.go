package api

import (
	"time"

	"github.com/rewindhq/rewind/common"
	"github.com/rewindhq/rewind/pkg/replaylib"
)

// The controller calls these on its event loop; Publish never blocks.

func (s *Api) show(f replaylib.Frame) {
	s.log.Info("[%s] show #%d %s %s", s.ctl.SessionID(), f.Index, f.Label, f.Target)
	s.notify.Publish(common.NotifyShow, &common.ShowNotification{
		SessionID: s.ctl.SessionID(),
		Frame:     f,
	})
}

func (s *Api) countdown(remaining time.Duration) {
	s.notify.Publish(common.NotifyCountdown, &common.CountdownNotification{
		SessionID:   s.ctl.SessionID(),
		RemainingMs: remaining.Milliseconds(),
	})
}

func (s *Api) state(snap replaylib.Snapshot) {
	s.notify.Publish(common.NotifyState, snap)
}

func (s *Api) sourceError(err error) {
	s.log.Error("[%s] playback stopped by source error: %v", s.ctl.SessionID(), err)
}
