package replaylib

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// contact performs the first exchange with the source: a fetch of index 0
// plus a server time reading when the source offers one. then runs on the
// loop once the offset is known.
func (c *Controller) contact(then func()) {
	c.reschedule()
	c.setMode(ModeSeeking)
	gen := c.gen
	c.log.Info("[%s] contacting history source", c.opts.SessionID)
	go func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.opts.FetchTimeout)
		defer cancel()
		ev, err := c.src.Fetch(ctx, 0)
		var remote, local time.Time
		hasTime := false
		if err == nil {
			if ts, ok := c.src.(TimeSource); ok {
				remote, err = ts.ServerTime(ctx)
				local = c.clock.Now()
				hasTime = err == nil
			}
		}
		c.exec(func() { c.onContact(gen, ev, remote, local, hasTime, err, then) })
	}()
}

func (c *Controller) onContact(gen uint64, ev *TimelineEvent, remote, local time.Time, hasTime bool, err error, then func()) {
	if gen != c.gen {
		c.log.Info("[%s] discarding stale contact result", c.opts.SessionID)
		return
	}
	if err == nil {
		err = checkEvent(ev, 0)
	}
	if err != nil {
		c.fail(err, "timeline is empty")
		return
	}
	c.noteBoundary(ev)
	if hasTime {
		c.rec.SampleAt(remote, local)
	} else {
		c.log.Warning("[%s] history source reports no clock, offset left at zero", c.opts.SessionID)
	}
	c.contacted = true
	then()
}

func (c *Controller) findAndSeek(at time.Time) {
	remote := c.rec.ToRemote(at)
	c.reschedule()
	c.st.direction = Forward
	c.setMode(ModeSeeking)
	gen := c.gen
	c.log.Info("[%s] find event at or after %s (local %s)", c.opts.SessionID,
		remote.Format(time.RFC3339Nano), at.Format(time.RFC3339Nano))
	go func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.opts.FetchTimeout)
		defer cancel()
		idx, err := c.src.FindIndexAtOrAfter(ctx, remote)
		c.exec(func() {
			if gen != c.gen {
				c.log.Info("[%s] discarding stale find result", c.opts.SessionID)
				return
			}
			if err != nil {
				c.fail(err, "no event at or after %s", remote.Format(time.RFC3339))
				return
			}
			c.seek(idx, Forward)
		})
	}()
}

// fetch issues a source fetch for index unless one is already in flight.
func (c *Controller) fetch(index int) {
	if c.fetching == index {
		return
	}
	c.fetching = index
	gen := c.gen
	c.log.Info("[%s] fetch index %d", c.opts.SessionID, index)
	go func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.opts.FetchTimeout)
		defer cancel()
		ev, err := c.src.Fetch(ctx, index)
		c.exec(func() { c.onFetched(gen, index, ev, err) })
	}()
}

func (c *Controller) onFetched(gen uint64, index int, ev *TimelineEvent, err error) {
	if gen == c.gen && index == c.fetching {
		c.fetching = -1
	}
	if gen != c.gen || index != c.want {
		c.log.Info("[%s] discarding stale result for index %d", c.opts.SessionID, index)
		return
	}
	if err == nil {
		err = checkEvent(ev, index)
	}
	if err != nil {
		c.fail(err, "no event at index %d", index)
		return
	}
	c.noteBoundary(ev)
	if c.anchorPending {
		c.anchorPending = false
		c.anchorDueMs = ev.DueAtEpochMs
		c.anchorAt = c.rec.Now()
	}
	if old := c.buf.Put(ev); old != nil {
		c.log.Info("[%s] buffered index %d replaced by a fresher fetch", c.opts.SessionID, old.Index)
	}
	c.log.Info("[%s] buffered %s", c.opts.SessionID, ev)
	if c.st.mode == ModeSeeking {
		c.setMode(ModePlaying)
		c.armPoll()
	}
	c.evaluate()
}

func checkEvent(ev *TimelineEvent, index int) error {
	if ev == nil {
		return fmt.Errorf("%w: empty answer for index %d", ErrMalformedResponse, index)
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	if ev.Index != index {
		return fmt.Errorf("%w: asked for index %d, got %d", ErrMalformedResponse, index, ev.Index)
	}
	return nil
}

// noteBoundary learns the timeline length from an event's next marker. A
// last event fixes the count; any other event only proves a minimum, which
// also widens a count the timeline has since outgrown.
func (c *Controller) noteBoundary(ev *TimelineEvent) {
	if ev.IsLast() {
		c.count = ev.Index + 1
		c.minCount = c.count
		return
	}
	if c.minCount < ev.Index+2 {
		c.minCount = ev.Index + 2
	}
	if c.count >= 0 && c.count < c.minCount {
		c.count = c.minCount
	}
}

// refreshCount asks the source for its length. The answer is accepted
// whatever the schedule did meanwhile.
func (c *Controller) refreshCount() {
	go func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.opts.FetchTimeout)
		defer cancel()
		n, err := c.src.Count(ctx)
		c.exec(func() {
			if err != nil {
				c.log.Warning("[%s] count failed: %v", c.opts.SessionID, err)
				return
			}
			c.count = n
			if c.minCount > n {
				c.minCount = n
			}
		})
	}()
}

// fail converts a source error into a stop. detail describes the edge
// reached when the error is ErrNotFound.
func (c *Controller) fail(err error, detail string, args ...interface{}) {
	var reason StopReason
	switch {
	case errors.Is(err, ErrNotFound):
		reason.Kind = StopEndOfTimeline
		if c.st.direction == Reverse {
			reason.Kind = StopStartOfTimeline
		}
		reason.Detail = fmt.Sprintf(detail, args...)
	case errors.Is(err, ErrOutOfRange):
		reason = StopReason{Kind: StopOutOfRange, Detail: err.Error()}
	case errors.Is(err, ErrMalformedResponse):
		c.log.Error("[%s] malformed response: %v", c.opts.SessionID, err)
		reason = StopReason{Kind: StopDataError, Detail: err.Error()}
	default:
		c.log.Error("[%s] history source failed: %v", c.opts.SessionID, err)
		reason = StopReason{Kind: StopDataError, Detail: err.Error()}
	}
	c.handlers.ErrorHandler(err)
	c.stop(reason)
}
