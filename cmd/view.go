package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rewindhq/rewind/cmd/common"
	"github.com/rewindhq/rewind/pkg/replaylib"
	"github.com/vbauerster/mpb/v8"
)

// barLine is the text a countdown bar shows. Each bar owns one.
type barLine struct {
	mu   sync.Mutex
	text string
}

func (l *barLine) set(s string) {
	l.mu.Lock()
	l.text = s
	l.mu.Unlock()
}

func (l *barLine) get() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.text
}

// consoleView draws one countdown bar per wait. When the wait ends in a
// display the bar completes and keeps the frame as its text, so the
// terminal scrolls a log of shown events.
type consoleView struct {
	mu    sync.Mutex
	p     *mpb.Progress
	bar   *mpb.Bar
	line  *barLine
	total int64
	last  time.Duration
	shown int
}

func newConsoleView(out io.Writer) *consoleView {
	return &consoleView{
		p: mpb.New(mpb.WithOutput(out), mpb.WithWidth(40), mpb.WithAutoRefresh()),
	}
}

func frameText(f replaylib.Frame) string {
	s := fmt.Sprintf("#%d %s %s", f.Index, f.Label, f.Target)
	if f.Action != "" {
		s += " (" + f.Action + ")"
	}
	return s + " @ " + f.ShownAt.Local().Format("15:04:05.000")
}

// newBar starts a bar for a wait of total ms. Caller must hold mu.
func (v *consoleView) newBar(total int64, text string) {
	if total < 1 {
		total = 1
	}
	line := &barLine{text: text}
	v.bar = common.InitCountdownBar(v.p, "", total, line.get)
	v.line = line
	v.total = total
}

// endBar leaves the current bar on screen with text. Caller must hold mu.
func (v *consoleView) endBar(text string, completed bool) {
	if v.bar == nil {
		return
	}
	v.line.set(text)
	if completed {
		v.bar.SetCurrent(v.total)
	} else {
		v.bar.Abort(false)
	}
	v.bar = nil
	v.last = 0
}

func (v *consoleView) countdown(remaining time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ms := remaining.Milliseconds()
	if v.bar == nil || remaining > v.last {
		v.endBar("superseded", false)
		v.newBar(ms, "")
	}
	v.last = remaining
	v.line.set(common.FormatRemaining(remaining))
	cur := v.total - ms
	if cur >= v.total {
		// completing is left to show
		cur = v.total - 1
	}
	v.bar.SetCurrent(cur)
}

func (v *consoleView) show(f replaylib.Frame) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shown++
	if v.bar == nil {
		v.newBar(1, "")
	}
	v.endBar(frameText(f), true)
}

func (v *consoleView) state(s replaylib.Snapshot) {
	if s.Mode != replaylib.ModeStopped {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	text := "stopped: " + s.Reason.String()
	if v.bar == nil {
		v.newBar(1, text)
	}
	v.endBar(text, false)
}

func (v *consoleView) sourceError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	text := "source error: " + err.Error()
	if v.bar == nil {
		v.newBar(1, text)
	}
	v.endBar(text, false)
}

// Shown returns how many frames were displayed.
func (v *consoleView) Shown() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.shown
}

// Close ends any running bar and flushes the output.
func (v *consoleView) Close() {
	v.mu.Lock()
	v.endBar("closed", false)
	v.mu.Unlock()
	v.p.Wait()
}
