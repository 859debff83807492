package replaylib

import "fmt"

// Mode is the playback mode of a Controller.
type Mode int

const (
	ModeIdle Mode = iota
	ModePlaying
	// ModeSeeking lasts while the fetch for a new position is in flight.
	ModeSeeking
	ModeStopped
)

var modeNames = [...]string{"idle", "playing", "seeking", "stopped"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	for i, n := range modeNames {
		if n == string(b) {
			*m = Mode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", b)
}

// Direction is the order in which indices are visited.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

func (d Direction) step() int {
	if d == Reverse {
		return -1
	}
	return 1
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	switch string(b) {
	case "forward":
		*d = Forward
	case "reverse":
		*d = Reverse
	default:
		return fmt.Errorf("unknown direction %q", b)
	}
	return nil
}

// StopKind classifies why playback stopped.
type StopKind int

const (
	StopNone StopKind = iota
	StopEndOfTimeline
	StopStartOfTimeline
	StopUserRequested
	StopOutOfRange
	StopDataError
)

var stopKindNames = [...]string{"", "end of timeline", "start of timeline", "user requested", "out of range", "data error"}

func (k StopKind) String() string {
	if k < 0 || int(k) >= len(stopKindNames) {
		return fmt.Sprintf("stop(%d)", int(k))
	}
	return stopKindNames[k]
}

func (k StopKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *StopKind) UnmarshalText(b []byte) error {
	for i, n := range stopKindNames {
		if n == string(b) {
			*k = StopKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stop kind %q", b)
}

// StopReason records why the controller entered ModeStopped.
type StopReason struct {
	Kind   StopKind `json:"kind"`
	Detail string   `json:"detail,omitempty"`
}

func (r StopReason) String() string {
	if r.Detail == "" {
		return r.Kind.String()
	}
	return r.Kind.String() + ": " + r.Detail
}

type playbackState struct {
	mode      Mode
	current   int
	direction Direction
	reason    StopReason
}

// Snapshot is a point-in-time copy of a controller's state.
type Snapshot struct {
	SessionID    string    `json:"sessionId"`
	Mode         Mode      `json:"mode"`
	CurrentIndex int       `json:"currentIndex"`
	Direction    Direction `json:"direction"`
	// Buffered is the index held in the event buffer, -1 when empty.
	Buffered int        `json:"buffered"`
	Reason   StopReason `json:"reason"`
	// Count is the known timeline length, -1 when unknown.
	Count int `json:"count"`
	// MinCount is how many events the fetched next markers prove exist.
	MinCount    int         `json:"minCount"`
	Reconciled  bool        `json:"reconciled"`
	OffsetMs    int64       `json:"offsetMs"`
	CountdownMs int64       `json:"countdownMs"`
	Timers      TimerCounts `json:"timers"`
	Drops       uint64      `json:"drops"`
}
