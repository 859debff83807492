package logger

import "sync/atomic"

// TraceLogger records a session's trace lines in a RingLogger and mirrors
// them to a console logger. The console logger is borrowed: Close detaches
// it without closing it, and later lines only reach the ring.
type TraceLogger struct {
	console  Logger
	ring     *RingLogger
	detached atomic.Bool
}

// NewTraceLogger creates a TraceLogger keeping up to size lines. A nil
// console only records.
func NewTraceLogger(console Logger, size int) *TraceLogger {
	if console == nil {
		console = NewNopLogger()
	}
	return &TraceLogger{console: console, ring: NewRingLogger(size)}
}

func (t *TraceLogger) Info(format string, args ...interface{}) {
	t.ring.Info(format, args...)
	if !t.detached.Load() {
		t.console.Info(format, args...)
	}
}

func (t *TraceLogger) Warning(format string, args ...interface{}) {
	t.ring.Warning(format, args...)
	if !t.detached.Load() {
		t.console.Warning(format, args...)
	}
}

func (t *TraceLogger) Error(format string, args ...interface{}) {
	t.ring.Error(format, args...)
	if !t.detached.Load() {
		t.console.Error(format, args...)
	}
}

// Lines returns up to n of the most recent trace lines, oldest first.
func (t *TraceLogger) Lines(n int) []string {
	return t.ring.Lines(n)
}

// Close detaches the console. The ring stays readable.
func (t *TraceLogger) Close() error {
	t.detached.Store(true)
	return t.ring.Close()
}

var _ Logger = (*TraceLogger)(nil)
