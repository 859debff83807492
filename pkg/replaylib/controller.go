package replaylib

import (
	"context"
	"fmt"
	"time"

	"github.com/rewindhq/rewind/pkg/logger"
)

// Controller drives one replay session. All state is owned by a single
// event-loop goroutine; exported methods block until the loop has applied
// them.
type Controller struct {
	src      HistorySource
	opts     ControllerOpts
	clock    Clock
	log      logger.Logger
	rec      *Reconciler
	buf      *EventBuffer
	timers   *timerSet
	handlers *Handlers
	renderer Renderer

	ctx     context.Context
	cancel  context.CancelFunc
	ops     chan func()
	stopped chan struct{}

	// Everything below is owned by the loop.
	st        playbackState
	gen       uint64
	want      int
	fetching  int
	count     int // exact, -1 until known
	minCount  int // lower bound from next markers; never refuses an index
	contacted bool
	countdown time.Duration

	relative      bool
	anchorPending bool
	anchorDueMs   int64
	anchorAt      time.Time
}

// NewController starts the event loop of a new session replaying src.
// The loop exits when ctx is done or Close is called.
func NewController(ctx context.Context, src HistorySource, opts *ControllerOpts) *Controller {
	if opts == nil {
		opts = &ControllerOpts{}
	}
	opts.setDefault()
	ctx, cancel := context.WithCancel(ctx)
	c := &Controller{
		src:      src,
		opts:     *opts,
		clock:    opts.Clock,
		log:      opts.Logger,
		rec:      NewReconciler(opts.Clock, opts.Logger),
		buf:      &EventBuffer{},
		handlers: opts.Handlers,
		renderer: opts.Renderer,
		ctx:      ctx,
		cancel:   cancel,
		ops:      make(chan func()),
		stopped:  make(chan struct{}),
		st:       playbackState{mode: ModeIdle, current: -1},
		want:     -1,
		fetching: -1,
		count:    -1,
	}
	c.timers = &timerSet{clock: c.clock, post: c.exec}
	go c.run()
	return c
}

func (c *Controller) run() {
	defer close(c.stopped)
	for {
		select {
		case op := <-c.ops:
			op()
		case <-c.ctx.Done():
			c.timers.cancelAll()
			c.buf.Clear()
			return
		}
	}
}

// exec runs op on the loop and waits for it. It returns without running op
// once the loop has exited.
func (c *Controller) exec(op func()) {
	done := make(chan struct{})
	select {
	case c.ops <- func() { op(); close(done) }:
	case <-c.ctx.Done():
		return
	}
	<-done
}

func (c *Controller) do(ctx context.Context, op func()) error {
	done := make(chan struct{})
	select {
	case c.ops <- func() { op(); close(done) }:
	case <-c.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// SessionID returns the id this controller reports in snapshots.
func (c *Controller) SessionID() string {
	return c.opts.SessionID
}

// Reconciler exposes the session's clock reconciler.
func (c *Controller) Reconciler() *Reconciler {
	return c.rec
}

// Close stops the loop and cancels every timer. In-flight source calls are
// cancelled and their results ignored.
func (c *Controller) Close() error {
	c.cancel()
	<-c.stopped
	return nil
}

// Start plays the timeline from its first event. It is a no-op while
// already playing.
func (c *Controller) Start(ctx context.Context) error {
	return c.do(ctx, func() { c.start(nil) })
}

// StartAt plays from the first event due at or after the local instant at,
// translated onto the source's clock.
func (c *Controller) StartAt(ctx context.Context, at time.Time) error {
	return c.do(ctx, func() { c.start(&at) })
}

// Stop halts playback, keeping the current index. It is a no-op unless the
// controller is playing or seeking.
func (c *Controller) Stop(ctx context.Context) error {
	return c.do(ctx, func() {
		if c.st.mode == ModeStopped || c.st.mode == ModeIdle {
			return
		}
		c.stop(StopReason{Kind: StopUserRequested})
	})
}

// StepForward moves to the next event.
func (c *Controller) StepForward(ctx context.Context) error {
	return c.do(ctx, func() { c.step(1) })
}

// StepBackward moves to the previous event and plays in reverse.
func (c *Controller) StepBackward(ctx context.Context) error {
	return c.do(ctx, func() { c.step(-1) })
}

// FastForward skips one event forward.
func (c *Controller) FastForward(ctx context.Context) error {
	return c.do(ctx, func() { c.step(2) })
}

// FastBackward skips one event backward and plays in reverse.
func (c *Controller) FastBackward(ctx context.Context) error {
	return c.do(ctx, func() { c.step(-2) })
}

// Reset returns the session to idle with no current event. The clock
// offset is kept.
func (c *Controller) Reset(ctx context.Context) error {
	return c.do(ctx, func() {
		c.reschedule()
		c.st.current = -1
		c.st.direction = Forward
		c.st.reason = StopReason{}
		c.relative = false
		c.log.Info("[%s] reset", c.opts.SessionID)
		c.setMode(ModeIdle)
	})
}

// Reconnect samples the source's clock again and re-evaluates any buffered
// event against the new offset. Relative and reverse schedules keep their
// local spacing: the anchor moves with the offset.
func (c *Controller) Reconnect(ctx context.Context) error {
	ts, ok := c.src.(TimeSource)
	if !ok {
		return ErrNoTimeSource
	}
	fctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()
	remote, err := ts.ServerTime(fctx)
	local := c.clock.Now()
	if err != nil {
		return err
	}
	return c.do(ctx, func() {
		before, _ := c.rec.Current()
		after := c.rec.SampleAt(remote, local)
		if c.relative && !c.anchorPending {
			c.anchorAt = c.anchorAt.Add(after.Offset() - before.Offset())
		}
		c.contacted = true
		c.evaluate()
	})
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := c.do(ctx, func() { s = c.snapshot() })
	return s, err
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		SessionID:    c.opts.SessionID,
		Mode:         c.st.mode,
		CurrentIndex: c.st.current,
		Direction:    c.st.direction,
		Buffered:     -1,
		Reason:       c.st.reason,
		Count:        c.count,
		MinCount:     c.minCount,
		CountdownMs:  c.countdown.Milliseconds(),
		Timers:       c.timers.counts(),
		Drops:        c.buf.Drops(),
	}
	if ev := c.buf.Peek(); ev != nil {
		s.Buffered = ev.Index
	}
	if off, ok := c.rec.Current(); ok {
		s.Reconciled = true
		s.OffsetMs = off.OffsetMs()
	}
	return s
}

func (c *Controller) setMode(m Mode) {
	if c.st.mode == m {
		return
	}
	c.log.Info("[%s] %s -> %s", c.opts.SessionID, c.st.mode, m)
	c.st.mode = m
	c.handlers.StateHandler(c.snapshot())
}

// reschedule invalidates every outstanding timer and fetch.
func (c *Controller) reschedule() {
	c.timers.cancelAll()
	c.buf.Clear()
	c.gen++
	c.want = -1
	c.fetching = -1
	c.countdown = 0
}

func (c *Controller) start(at *time.Time) {
	if at == nil && c.st.mode == ModePlaying {
		c.log.Info("[%s] start ignored, already playing", c.opts.SessionID)
		return
	}
	if !c.contacted {
		c.contact(func() { c.start(at) })
		return
	}
	c.refreshCount()
	if at == nil {
		c.seek(0, Forward)
		return
	}
	c.findAndSeek(*at)
}

func (c *Controller) step(delta int) {
	cur := c.st.current
	if cur+delta < 0 {
		c.log.Info("[%s] step %+d ignored at index %d", c.opts.SessionID, delta, cur)
		return
	}
	if delta > 1 && c.count >= 0 && cur+delta >= c.count {
		c.log.Info("[%s] step %+d ignored, index %d is within %d of the end", c.opts.SessionID, delta, cur, delta)
		return
	}
	dir := Forward
	if delta < 0 {
		dir = Reverse
	}
	target := cur + delta
	if !c.contacted {
		c.st.direction = dir
		c.contact(func() {
			c.refreshCount()
			c.seek(target, dir)
		})
		return
	}
	c.seek(target, dir)
}

// seek cancels the current schedule and fetches index as the new position.
func (c *Controller) seek(index int, dir Direction) {
	c.reschedule()
	c.st.direction = dir
	if index < 0 || (c.count >= 0 && index >= c.count) {
		c.stop(StopReason{Kind: StopOutOfRange, Detail: c.rangeDetail(index)})
		return
	}
	c.relative = c.opts.Anchor == AnchorRelative || dir == Reverse
	c.anchorPending = c.relative
	c.want = index
	c.log.Info("[%s] seek to index %d (%s)", c.opts.SessionID, index, dir)
	c.setMode(ModeSeeking)
	c.fetch(index)
}

func (c *Controller) rangeDetail(index int) string {
	if c.count < 0 {
		return fmt.Sprintf("index %d is negative", index)
	}
	return fmt.Sprintf("index %d outside [0,%d)", index, c.count)
}

func (c *Controller) stop(reason StopReason) {
	c.reschedule()
	c.st.reason = reason
	c.log.Info("[%s] stopped at index %d: %s", c.opts.SessionID, c.st.current, reason)
	if c.st.mode == ModeStopped {
		c.handlers.StateHandler(c.snapshot())
		return
	}
	c.setMode(ModeStopped)
}
