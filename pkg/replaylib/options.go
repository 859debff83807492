package replaylib

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rewindhq/rewind/pkg/logger"
)

const (
	DefaultDueThreshold  = 100 * time.Millisecond
	DefaultCountdownTick = 100 * time.Millisecond
	DefaultPollInterval  = time.Second
	DefaultFetchTimeout  = 5 * time.Second
)

// AnchorMode selects how due times map onto the reconciled clock.
type AnchorMode int

const (
	// AnchorAbsolute shows each event when the reconciled clock reaches
	// its recorded due time.
	AnchorAbsolute AnchorMode = iota
	// AnchorRelative shows the event a seek lands on immediately and keeps
	// the recorded spacing from there.
	AnchorRelative
)

// ParseAnchorMode maps "absolute" and "relative" to an AnchorMode.
func ParseAnchorMode(s string) (AnchorMode, error) {
	switch s {
	case "", "absolute":
		return AnchorAbsolute, nil
	case "relative":
		return AnchorRelative, nil
	}
	return AnchorAbsolute, fmt.Errorf("unknown anchor mode %q", s)
}

func (a AnchorMode) String() string {
	if a == AnchorRelative {
		return "relative"
	}
	return "absolute"
}

// ControllerOpts configures a Controller. Zero values select the defaults.
type ControllerOpts struct {
	Clock    Clock
	Logger   logger.Logger
	Renderer Renderer
	Handlers *Handlers
	// SessionID identifies the session in logs and snapshots.
	// A random UUID is used when empty.
	SessionID string
	// DueThreshold is how close to its due time an event is shown.
	DueThreshold time.Duration
	// CountdownTick is the countdown republish period.
	CountdownTick time.Duration
	// PollInterval is the period of the re-poll timer while playing.
	PollInterval time.Duration
	// DisablePolling turns the re-poll timer off, leaving fetches to the
	// display schedule.
	DisablePolling bool
	// FetchTimeout bounds each call into the history source.
	FetchTimeout time.Duration
	// PrefetchDelay delays the fetch of the next index after a display.
	PrefetchDelay time.Duration
	Anchor        AnchorMode
}

func (o *ControllerOpts) setDefault() {
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	if o.Logger == nil {
		o.Logger = logger.NewNopLogger()
	}
	if o.Renderer == nil {
		o.Renderer = RendererFunc(func(Frame) {})
	}
	if o.Handlers == nil {
		o.Handlers = &Handlers{}
	}
	o.Handlers.setDefault()
	if o.SessionID == "" {
		o.SessionID = uuid.NewString()
	}
	if o.DueThreshold <= 0 {
		o.DueThreshold = DefaultDueThreshold
	}
	if o.CountdownTick <= 0 {
		o.CountdownTick = DefaultCountdownTick
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
}
