package replaylib

import (
	"sync"
	"time"

	"github.com/rewindhq/rewind/pkg/logger"
)

// Reconciler holds the offset between the local clock and the history
// source's clock. Until it is sampled the offset is zero.
type Reconciler struct {
	clock Clock
	log   logger.Logger

	mu      sync.Mutex
	offset  ClockOffset
	sampled bool
	warned  bool
}

// NewReconciler returns an unsampled Reconciler reading clock.
func NewReconciler(clock Clock, l logger.Logger) *Reconciler {
	if clock == nil {
		clock = SystemClock{}
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Reconciler{clock: clock, log: l}
}

// Sample records the offset using the local clock's current reading.
func (r *Reconciler) Sample(remote time.Time) ClockOffset {
	return r.SampleAt(remote, r.clock.Now())
}

// SampleAt records the offset between remote and local readings taken at
// the same instant.
func (r *Reconciler) SampleAt(remote, local time.Time) ClockOffset {
	off := ClockOffset{
		RemoteEpochMsAtSample: remote.UnixMilli(),
		LocalEpochMsAtSample:  local.UnixMilli(),
	}
	r.mu.Lock()
	r.offset = off
	r.sampled = true
	r.mu.Unlock()
	r.log.Info("clock sampled: remote=%d local=%d offset=%dms",
		off.RemoteEpochMsAtSample, off.LocalEpochMsAtSample, off.OffsetMs())
	return off
}

// Sampled reports whether an offset has been recorded.
func (r *Reconciler) Sampled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sampled
}

// Current returns the recorded offset and whether it was sampled.
func (r *Reconciler) Current() (ClockOffset, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.offset, r.sampled
}

// Offset returns the remote minus local offset, zero when unsampled.
func (r *Reconciler) Offset() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sampled {
		if !r.warned {
			r.warned = true
			r.log.Warning("clock offset not sampled, trusting the local clock")
		}
		return 0
	}
	return r.offset.Offset()
}

// ToRemote translates a local instant onto the remote time axis.
func (r *Reconciler) ToRemote(local time.Time) time.Time {
	return local.Add(r.Offset())
}

// ToLocal translates a remote instant onto the local time axis.
func (r *Reconciler) ToLocal(remote time.Time) time.Time {
	return remote.Add(-r.Offset())
}

// Now returns the reconciled current time.
func (r *Reconciler) Now() time.Time {
	return r.ToRemote(r.clock.Now())
}
