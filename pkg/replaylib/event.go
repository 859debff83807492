package replaylib

import (
	"fmt"
	"time"
)

// TimelineEvent is one recorded event as served by a HistorySource.
// NextDueAtEpochMs is nil for the last event of the timeline.
type TimelineEvent struct {
	Index            int    `json:"index"`
	DueAtEpochMs     int64  `json:"dueAtEpochMs"`
	Label            string `json:"label"`
	Target           string `json:"target"`
	Action           string `json:"action,omitempty"`
	NextDueAtEpochMs *int64 `json:"nextDueAtEpochMs,omitempty"`
}

// DueAt returns the due time on the remote time axis.
func (e *TimelineEvent) DueAt() time.Time {
	return time.UnixMilli(e.DueAtEpochMs)
}

// NextDueAt returns the due time of the following event, if any.
func (e *TimelineEvent) NextDueAt() (time.Time, bool) {
	if e.NextDueAtEpochMs == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*e.NextDueAtEpochMs), true
}

// IsLast reports whether e terminates the timeline.
func (e *TimelineEvent) IsLast() bool {
	return e.NextDueAtEpochMs == nil
}

// Validate checks the basic shape of an event received from a source.
func (e *TimelineEvent) Validate() error {
	if e.Index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrMalformedResponse, e.Index)
	}
	if e.Target == "" {
		return fmt.Errorf("%w: event %d has no target", ErrMalformedResponse, e.Index)
	}
	if e.NextDueAtEpochMs != nil && *e.NextDueAtEpochMs < e.DueAtEpochMs {
		return fmt.Errorf("%w: event %d is due after its successor", ErrMalformedResponse, e.Index)
	}
	return nil
}

func (e *TimelineEvent) String() string {
	return fmt.Sprintf("#%d %s %s", e.Index, e.Label, time.UnixMilli(e.DueAtEpochMs).Format("15:04:05.000"))
}

// OptionalMs returns a pointer to v, for building NextDueAtEpochMs.
func OptionalMs(v int64) *int64 {
	return &v
}

// Record is a stored event before it is indexed into a timeline.
type Record struct {
	EpochMs int64  `json:"epochMs" yaml:"epoch_ms"`
	Target  string `json:"target" yaml:"target"`
	Label   string `json:"label" yaml:"label"`
	Action  string `json:"action,omitempty" yaml:"action,omitempty"`
}

// EventAt builds the TimelineEvent for records[i], linking it to records[i+1].
// records must already be sorted by EpochMs.
func EventAt(records []Record, i int) *TimelineEvent {
	r := records[i]
	ev := &TimelineEvent{
		Index:        i,
		DueAtEpochMs: r.EpochMs,
		Label:        r.Label,
		Target:       r.Target,
		Action:       r.Action,
	}
	if i+1 < len(records) {
		ev.NextDueAtEpochMs = OptionalMs(records[i+1].EpochMs)
	}
	return ev
}

// ClockOffset is the difference between the remote and the local clock,
// captured at one instant.
type ClockOffset struct {
	RemoteEpochMsAtSample int64 `json:"remoteEpochMsAtSample"`
	LocalEpochMsAtSample  int64 `json:"localEpochMsAtSample"`
}

// OffsetMs returns remote minus local in milliseconds.
func (o ClockOffset) OffsetMs() int64 {
	return o.RemoteEpochMsAtSample - o.LocalEpochMsAtSample
}

// Offset returns OffsetMs as a duration.
func (o ClockOffset) Offset() time.Duration {
	return time.Duration(o.OffsetMs()) * time.Millisecond
}
