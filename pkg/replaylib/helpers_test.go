package replaylib

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rewindhq/rewind/pkg/logger"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func recordsAt(offsetsMs ...int64) []Record {
	rs := make([]Record, len(offsetsMs))
	for i, off := range offsetsMs {
		rs[i] = Record{
			EpochMs: epoch.UnixMilli() + off,
			Target:  fmt.Sprintf("https://example.com/%d", i),
			Label:   fmt.Sprintf("URL_%c", 'A'+i),
			Action:  "navigate",
		}
	}
	return rs
}

type frameLog struct {
	mu     sync.Mutex
	frames []Frame
}

func (f *frameLog) Show(fr Frame) {
	f.mu.Lock()
	f.frames = append(f.frames, fr)
	f.mu.Unlock()
}

func (f *frameLog) all() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Frame(nil), f.frames...)
}

func (f *frameLog) indexes() []int {
	var out []int
	for _, fr := range f.all() {
		out = append(out, fr.Index)
	}
	return out
}

// scriptedSource wraps a MemorySource, counting fetches and injecting
// errors or gates per index.
type scriptedSource struct {
	*MemorySource
	fetches atomic.Int64
	mu      sync.Mutex
	errs    map[int]error
	gates   map[int]chan struct{}
	bad     map[int]*TimelineEvent
	// countGate and findGate, when set, hold Count and FindIndexAtOrAfter
	// until closed.
	countGate chan struct{}
	findGate  chan struct{}
}

func newScriptedSource(clock Clock, records []Record) *scriptedSource {
	m := NewMemorySource(records, FindStrict)
	m.Clock = clock
	return &scriptedSource{
		MemorySource: m,
		errs:         map[int]error{},
		gates:        map[int]chan struct{}{},
		bad:          map[int]*TimelineEvent{},
	}
}

func (s *scriptedSource) failAt(index int, err error) {
	s.mu.Lock()
	s.errs[index] = err
	s.mu.Unlock()
}

func (s *scriptedSource) gate(index int) chan struct{} {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[index] = ch
	s.mu.Unlock()
	return ch
}

func (s *scriptedSource) holdCount() chan struct{} {
	ch := make(chan struct{})
	s.mu.Lock()
	s.countGate = ch
	s.mu.Unlock()
	return ch
}

func (s *scriptedSource) holdFind() chan struct{} {
	ch := make(chan struct{})
	s.mu.Lock()
	s.findGate = ch
	s.mu.Unlock()
	return ch
}

func waitGate(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *scriptedSource) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	gate := s.countGate
	s.mu.Unlock()
	if err := waitGate(ctx, gate); err != nil {
		return 0, err
	}
	return s.MemorySource.Count(ctx)
}

func (s *scriptedSource) FindIndexAtOrAfter(ctx context.Context, remote time.Time) (int, error) {
	s.mu.Lock()
	gate := s.findGate
	s.mu.Unlock()
	if err := waitGate(ctx, gate); err != nil {
		return 0, err
	}
	return s.MemorySource.FindIndexAtOrAfter(ctx, remote)
}

func (s *scriptedSource) Fetch(ctx context.Context, index int) (*TimelineEvent, error) {
	s.fetches.Add(1)
	s.mu.Lock()
	err := s.errs[index]
	gate := s.gates[index]
	bad := s.bad[index]
	s.mu.Unlock()
	if werr := waitGate(ctx, gate); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	if bad != nil {
		return bad, nil
	}
	return s.MemorySource.Fetch(ctx, index)
}

// clocklessSource hides ServerTime.
type clocklessSource struct {
	HistorySource
}

// countdowns records every value published to the countdown handler.
type countdowns struct {
	mu     sync.Mutex
	values []time.Duration
}

func (c *countdowns) record(d time.Duration) {
	c.mu.Lock()
	c.values = append(c.values, d)
	c.mu.Unlock()
}

func (c *countdowns) last() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.values) == 0 {
		return 0, false
	}
	return c.values[len(c.values)-1], true
}

type harness struct {
	t      *testing.T
	clock  *ManualClock
	src    *scriptedSource
	c      *Controller
	frames *frameLog
	log    *logger.MockLogger
}

func newHarness(t *testing.T, records []Record, mutate func(o *ControllerOpts)) *harness {
	t.Helper()
	clock := NewManualClock(epoch)
	h := &harness{
		t:      t,
		clock:  clock,
		src:    newScriptedSource(clock, records),
		frames: &frameLog{},
		log:    logger.NewMockLogger(),
	}
	opts := &ControllerOpts{
		Clock:          clock,
		Logger:         h.log,
		Renderer:       h.frames,
		DisablePolling: true,
		SessionID:      "test",
	}
	if mutate != nil {
		mutate(opts)
	}
	h.c = NewController(context.Background(), h.src, opts)
	t.Cleanup(func() { h.c.Close() })
	return h
}

func (h *harness) snapshot() Snapshot {
	h.t.Helper()
	s, err := h.c.Snapshot(context.Background())
	if err != nil {
		h.t.Fatalf("Snapshot: %v", err)
	}
	return s
}

// waitFor polls the controller until cond holds. Fetches complete on their
// own goroutines, so tests wait for their effects before moving the clock.
func (h *harness) waitFor(desc string, cond func(s Snapshot) bool) Snapshot {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := h.snapshot()
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			h.t.Fatalf("timed out waiting for %s, last snapshot %+v", desc, s)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func (h *harness) must(err error) {
	h.t.Helper()
	if err != nil {
		h.t.Fatalf("command failed: %v", err)
	}
}

func showing(index, buffered int) func(Snapshot) bool {
	return func(s Snapshot) bool {
		return s.Mode == ModePlaying && s.CurrentIndex == index && s.Buffered == buffered
	}
}

func stoppedWith(kind StopKind) func(Snapshot) bool {
	return func(s Snapshot) bool {
		return s.Mode == ModeStopped && s.Reason.Kind == kind
	}
}

func settled(s Snapshot) bool {
	return s.Mode != ModeSeeking
}
