package api

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/rewindhq/rewind/common"
	"github.com/rewindhq/rewind/internal/scheduler"
	"github.com/rewindhq/rewind/internal/server"
	"github.com/rewindhq/rewind/pkg/logger"
	"github.com/rewindhq/rewind/pkg/replaylib"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	pushes []string
	frames []int
}

func (r *recordingNotifier) Publish(method string, params any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, method)
	if n, ok := params.(*common.ShowNotification); ok {
		r.frames = append(r.frames, n.Frame.Index)
	}
}

func (r *recordingNotifier) count(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.pushes {
		if m == method {
			n++
		}
	}
	return n
}

func newTestApi(t *testing.T, src replaylib.HistorySource) (*Api, *recordingNotifier, *logger.MockLogger, *replaylib.ManualClock) {
	t.Helper()
	clock := replaylib.NewManualClock(epoch)
	n := &recordingNotifier{}
	ml := logger.NewMockLogger()
	a, err := NewApi(context.Background(), ml, src, &replaylib.ControllerOpts{
		Clock:          clock,
		SessionID:      "api",
		DisablePolling: true,
	}, n)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a, n, ml, clock
}

func memSource() *replaylib.MemorySource {
	src := replaylib.NewMemorySource([]replaylib.Record{
		{EpochMs: epoch.UnixMilli(), Target: "/a", Label: "URL_A"},
		{EpochMs: epoch.UnixMilli() + 500, Target: "/b", Label: "URL_B"},
	}, replaylib.FindStrict)
	src.Clock = replaylib.NewManualClock(epoch)
	return src
}

func waitFor(t *testing.T, a *Api, cond func(replaylib.Snapshot) bool) replaylib.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s, err := a.ctl.Snapshot(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not reached, last snapshot %+v", s)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewApi_RequiresSource(t *testing.T) {
	if _, err := NewApi(context.Background(), nil, nil, nil, nil); err == nil {
		t.Fatal("expected error without a history source")
	}
}

func TestApi_PublishesShowCountdownAndState(t *testing.T) {
	a, n, ml, clock := newTestApi(t, memSource())

	if _, err := a.replayStart(context.Background(), &common.StartParams{}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, a, func(s replaylib.Snapshot) bool { return s.CurrentIndex == 0 && s.Buffered == 1 })
	clock.Advance(500 * time.Millisecond)
	waitFor(t, a, func(s replaylib.Snapshot) bool { return s.Mode == replaylib.ModeStopped })

	if n.count(common.NotifyShow) != 2 {
		t.Errorf("expected 2 show pushes, got %v", n.pushes)
	}
	if n.count(common.NotifyCountdown) == 0 {
		t.Error("expected countdown pushes between events")
	}
	if n.count(common.NotifyState) < 3 {
		t.Errorf("expected state pushes for each transition, got %v", n.pushes)
	}
	if len(ml.Infos()) == 0 || len(a.log.Lines(0)) == 0 {
		t.Error("expected session log lines in both the base logger and the ring")
	}
	_ = a.Close()
	if ml.CloseCalled {
		t.Error("closing the api must leave the base logger open")
	}
}

func TestApi_StartAtParams(t *testing.T) {
	a, n, _, _ := newTestApi(t, memSource())

	neg := int64(-5)
	_, err := a.replayStart(context.Background(), &common.StartParams{AtEpochMs: &neg})
	var je *jrpc2.Error
	if !errors.As(err, &je) || je.Code != server.CodeInvalidParams {
		t.Fatalf("expected invalid params, got %v", err)
	}

	at := epoch.UnixMilli() + 1
	if _, err := a.replayStart(context.Background(), &common.StartParams{AtEpochMs: &at}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, a, func(s replaylib.Snapshot) bool { return s.Buffered == 1 || s.CurrentIndex == 1 })
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, idx := range n.frames {
		if idx == 0 {
			t.Error("start at a later instant must skip index 0")
		}
	}
}

func TestApi_SourceErrorIsLogged(t *testing.T) {
	src := &failingSource{}
	a, _, ml, _ := newTestApi(t, src)
	if err := a.Start(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	s := waitFor(t, a, func(s replaylib.Snapshot) bool { return s.Mode == replaylib.ModeStopped })
	if s.Reason.Kind != replaylib.StopDataError {
		t.Errorf("expected data error, got %s", s.Reason)
	}
	if !ml.HasError("playback stopped by source error") {
		t.Errorf("expected error log, got %v", ml.Errors())
	}
}

func TestApi_HistoryMethods(t *testing.T) {
	a, _, _, _ := newTestApi(t, memSource())
	ctx := context.Background()

	c, err := a.historyCount(ctx)
	if err != nil || c.Count != 2 {
		t.Fatalf("count: %+v %v", c, err)
	}
	ev, err := a.historyGet(ctx, &common.IndexParams{Index: 1})
	if err != nil || ev.Label != "URL_B" {
		t.Fatalf("get: %+v %v", ev, err)
	}
	if _, err := a.historyFind(ctx, nil); err == nil {
		t.Error("find without params must fail")
	}
	f, err := a.historyFind(ctx, &common.FindParams{AtOrAfterEpochMs: epoch.UnixMilli() + 100})
	if err != nil || f.Index != 1 {
		t.Fatalf("find: %+v %v", f, err)
	}
	_, err = a.historyFind(ctx, &common.FindParams{AtOrAfterEpochMs: epoch.UnixMilli() + 10_000})
	var je *jrpc2.Error
	if !errors.As(err, &je) || je.Code != server.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApi_LogLimit(t *testing.T) {
	a, _, _, _ := newTestApi(t, memSource())
	for i := 0; i < 5; i++ {
		a.log.Info("line %d", i)
	}
	res, err := a.replayLog(context.Background(), &common.LogParams{Limit: 2})
	if err != nil || len(res.Lines) != 2 {
		t.Fatalf("log: %+v %v", res, err)
	}
	if _, err := a.replayLog(context.Background(), &common.LogParams{Limit: -1}); err == nil {
		t.Error("negative limit must fail")
	}
}

func TestApi_ScheduleTriggersStart(t *testing.T) {
	a, _, ml, _ := newTestApi(t, memSource())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sch := scheduler.New(ctx, a.OnSchedule)
	a.SetScheduler(sch)
	sch.Add(scheduler.ScheduleEvent{Name: "later", TriggerAt: time.Now().Add(time.Hour), CronExpr: "0 * * * *"})
	sch.Add(scheduler.ScheduleEvent{Name: "now", TriggerAt: time.Now()})

	waitFor(t, a, func(s replaylib.Snapshot) bool { return s.CurrentIndex == 0 })
	logged := false
	for _, line := range ml.Infos() {
		if strings.Contains(line, `schedule "now" fired`) {
			logged = true
		}
	}
	if !logged {
		t.Errorf("expected schedule log, got %v", ml.Infos())
	}

	res, err := a.scheduleList(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Schedules) != 1 || res.Schedules[0].Name != "later" || res.Schedules[0].Cron != "0 * * * *" {
		t.Errorf("unexpected schedules %+v", res.Schedules)
	}
}

func TestApi_CommandsReturnStatus(t *testing.T) {
	a, _, _, _ := newTestApi(t, memSource())
	stop := a.command(a.ctl.Stop)
	s, err := stop(context.Background())
	if err != nil || s.Mode != replaylib.ModeIdle {
		t.Fatalf("stop while idle: %+v %v", s, err)
	}
	_ = a.Close()
	if _, err := stop(context.Background()); err == nil {
		t.Fatal("expected error after close")
	} else {
		var je *jrpc2.Error
		if !errors.As(err, &je) || je.Code != server.CodeSessionClosed {
			t.Fatalf("expected session closed code, got %v", err)
		}
	}
}

type failingSource struct{}

func (failingSource) Count(context.Context) (int, error) {
	return 0, replaylib.ErrUnreachable
}

func (failingSource) Fetch(context.Context, int) (*replaylib.TimelineEvent, error) {
	return nil, replaylib.ErrUnreachable
}

func (failingSource) FindIndexAtOrAfter(context.Context, time.Time) (int, error) {
	return 0, replaylib.ErrUnreachable
}
