package replaylib

import "time"

// evaluate is the single entry point that turns a buffered event into a
// display, either now or after a becomeDue timer.
func (c *Controller) evaluate() {
	ev := c.buf.Peek()
	if ev == nil || c.st.mode != ModePlaying {
		return
	}
	c.timers.cancelDisplay()
	now := c.rec.Now()
	due := c.dueAt(ev.DueAt())
	slack := due.Sub(now)
	if slack <= c.opts.DueThreshold {
		c.display(ev, due, now)
		return
	}
	c.log.Info("[%s] index %d due in %s, waiting", c.opts.SessionID, ev.Index, slack.Round(time.Millisecond))
	c.timers.arm(TimerBecomeDue, slack, c.onBecomeDue)
	c.startCountdown(slack)
}

// display hands ev to the renderer and arms the wait for the next index.
// Going forward the wait comes from ev's next marker; in reverse the
// countdown reads zero until the previous event is fetched and evaluated.
func (c *Controller) display(ev *TimelineEvent, due, now time.Time) {
	c.buf.Take()
	c.st.current = ev.Index
	c.renderer.Show(Frame{
		Index:   ev.Index,
		Label:   ev.Label,
		Target:  ev.Target,
		Action:  ev.Action,
		DueAt:   due,
		ShownAt: now,
	})
	c.log.Info("[%s] show %s, late by %s", c.opts.SessionID, ev, now.Sub(due).Round(time.Millisecond))

	if c.st.direction == Forward && ev.IsLast() {
		c.stop(StopReason{Kind: StopEndOfTimeline})
		return
	}
	if c.st.direction == Reverse && ev.Index == 0 {
		c.stop(StopReason{Kind: StopStartOfTimeline})
		return
	}

	c.want = ev.Index + c.st.direction.step()
	if c.st.direction == Forward {
		next, _ := ev.NextDueAt()
		wait := c.dueAt(next).Sub(now)
		if wait < c.opts.DueThreshold {
			wait = c.opts.DueThreshold
		}
		c.timers.arm(TimerBecomeDue, wait, c.onBecomeDue)
		c.startCountdown(wait)
	} else {
		// the previous event's due time is unknown until it is fetched
		c.startCountdown(0)
	}
	if c.opts.PrefetchDelay <= 0 {
		c.fetch(c.want)
		return
	}
	c.timers.arm(TimerFetchNext, c.opts.PrefetchDelay, func() { c.fetch(c.want) })
}

// dueAt maps a recorded due time onto the reconciled clock. Relative
// schedules are measured from the anchor event; reverse schedules mirror
// the recorded spacing.
func (c *Controller) dueAt(recorded time.Time) time.Time {
	if !c.relative || c.anchorPending {
		return recorded
	}
	off := recorded.Sub(time.UnixMilli(c.anchorDueMs))
	if c.st.direction == Reverse {
		return c.anchorAt.Add(-off)
	}
	return c.anchorAt.Add(off)
}

func (c *Controller) onBecomeDue() {
	if c.buf.Peek() != nil {
		c.evaluate()
		return
	}
	if c.st.mode == ModePlaying && c.want >= 0 {
		c.log.Info("[%s] index %d is due but not fetched yet", c.opts.SessionID, c.want)
		c.fetch(c.want)
	}
}

// startCountdown publishes d and then d minus one tick per tick until zero.
// The value is presentational; display timing never reads it.
func (c *Controller) startCountdown(d time.Duration) {
	c.countdown = d
	c.handlers.CountdownHandler(d)
	if d <= 0 {
		c.timers.cancel(TimerCountdown)
		return
	}
	c.timers.arm(TimerCountdown, c.opts.CountdownTick, c.onCountdownTick)
}

func (c *Controller) onCountdownTick() {
	c.countdown -= c.opts.CountdownTick
	if c.countdown < 0 {
		c.countdown = 0
	}
	c.handlers.CountdownHandler(c.countdown)
	if c.countdown > 0 {
		c.timers.arm(TimerCountdown, c.opts.CountdownTick, c.onCountdownTick)
	}
}

func (c *Controller) armPoll() {
	if c.opts.DisablePolling {
		return
	}
	c.timers.arm(TimerPoll, c.opts.PollInterval, c.onPoll)
}

// onPoll refetches the wanted index so a fresher answer replaces the
// buffered one.
func (c *Controller) onPoll() {
	if c.st.mode != ModePlaying {
		return
	}
	if c.want >= 0 && c.fetching != c.want {
		c.log.Info("[%s] poll index %d", c.opts.SessionID, c.want)
		c.fetch(c.want)
	}
	c.armPoll()
}
