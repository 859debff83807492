package logger

import (
	"fmt"
	"sync"
	"time"
)

// DefaultRingSize is the number of lines a RingLogger keeps when
// constructed with a non-positive size.
const DefaultRingSize = 256

// RingLogger keeps the most recent log lines in memory so they can be
// served to remote clients (the replay.log RPC method).
type RingLogger struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
	now   func() time.Time
}

// NewRingLogger creates a RingLogger holding at most size lines.
func NewRingLogger(size int) *RingLogger {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingLogger{lines: make([]string, size), now: time.Now}
}

func (r *RingLogger) Info(format string, args ...interface{}) {
	r.push("INFO", format, args...)
}

func (r *RingLogger) Warning(format string, args ...interface{}) {
	r.push("WARNING", format, args...)
}

func (r *RingLogger) Error(format string, args ...interface{}) {
	r.push("ERROR", format, args...)
}

// Close is a no-op; the buffered lines stay readable.
func (r *RingLogger) Close() error {
	return nil
}

func (r *RingLogger) push(level, format string, args ...interface{}) {
	line := fmt.Sprintf("%s [%s] %s", r.now().Format("15:04:05.000"), level, fmt.Sprintf(format, args...))
	r.mu.Lock()
	r.lines[r.next] = line
	r.next++
	if r.next == len(r.lines) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()
}

// Len returns the number of buffered lines.
func (r *RingLogger) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.lines)
	}
	return r.next
}

// Lines returns up to n of the most recent lines, oldest first.
// A non-positive n returns everything buffered.
func (r *RingLogger) Lines(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	size := r.next
	if r.full {
		size = len(r.lines)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]string, 0, n)
	start := r.next - n
	if start < 0 {
		start += len(r.lines)
	}
	for i := 0; i < n; i++ {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}
	return out
}

var _ Logger = (*RingLogger)(nil)
