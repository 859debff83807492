package replaylib

import "time"

// Frame is what the renderer receives when an event becomes due.
type Frame struct {
	Index  int    `json:"index"`
	Label  string `json:"label"`
	Target string `json:"target"`
	Action string `json:"action,omitempty"`
	// DueAt is the reconciled instant the event was scheduled for.
	DueAt time.Time `json:"dueAt"`
	// ShownAt is the reconciled instant it was actually handed over.
	ShownAt time.Time `json:"shownAt"`
}

// DisplayEpochMs returns ShownAt in milliseconds since the epoch.
func (f Frame) DisplayEpochMs() int64 {
	return f.ShownAt.UnixMilli()
}

// Renderer reveals due events. Show runs on the controller's event loop and
// must not call back into the Controller.
type Renderer interface {
	Show(f Frame)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(f Frame)

func (fn RendererFunc) Show(f Frame) { fn(f) }

type (
	// CountdownHandlerFunc receives the presentational time left until the
	// next display, republished every countdown tick.
	CountdownHandlerFunc func(remaining time.Duration)
	// StateHandlerFunc is called after every mode transition.
	StateHandlerFunc func(s Snapshot)
	// ErrorHandlerFunc is called with the source error that stopped playback.
	ErrorHandlerFunc func(err error)
)

// Handlers are optional observers of a Controller. Like Renderer, they run
// on the event loop.
type Handlers struct {
	CountdownHandler CountdownHandlerFunc
	StateHandler     StateHandlerFunc
	ErrorHandler     ErrorHandlerFunc
}

func (h *Handlers) setDefault() {
	if h.CountdownHandler == nil {
		h.CountdownHandler = func(remaining time.Duration) {}
	}
	if h.StateHandler == nil {
		h.StateHandler = func(s Snapshot) {}
	}
	if h.ErrorHandler == nil {
		h.ErrorHandler = func(err error) {}
	}
}
