package replaylib

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// HistorySource is the event store a Controller replays from.
// Implementations wrap ErrNotFound, ErrUnreachable and ErrMalformedResponse
// so callers can tell edge-of-timeline answers from transport failures.
type HistorySource interface {
	// Count returns the number of events currently known.
	Count(ctx context.Context) (int, error)
	// Fetch returns the event at index, or ErrNotFound outside [0, count).
	Fetch(ctx context.Context, index int) (*TimelineEvent, error)
	// FindIndexAtOrAfter returns the first event due at or after remote.
	FindIndexAtOrAfter(ctx context.Context, remote time.Time) (int, error)
}

// TimeSource is implemented by sources that can report their own clock.
type TimeSource interface {
	ServerTime(ctx context.Context) (time.Time, error)
}

// FindPolicy decides what FindIndexAtOrAfter answers for a time after the
// last event.
type FindPolicy int

const (
	// FindStrict fails with ErrNotFound.
	FindStrict FindPolicy = iota
	// FindClampToEnd answers with the last index.
	FindClampToEnd
)

// ParseFindPolicy maps "strict" and "clamp" to a FindPolicy.
func ParseFindPolicy(s string) (FindPolicy, error) {
	switch s {
	case "", "strict":
		return FindStrict, nil
	case "clamp":
		return FindClampToEnd, nil
	}
	return FindStrict, fmt.Errorf("unknown find policy %q", s)
}

func (p FindPolicy) String() string {
	if p == FindClampToEnd {
		return "clamp"
	}
	return "strict"
}

// SearchRecords returns the first index in sorted records due at or after
// epochMs, applying policy when none qualifies.
func SearchRecords(records []Record, epochMs int64, policy FindPolicy) (int, error) {
	i := sort.Search(len(records), func(i int) bool {
		return records[i].EpochMs >= epochMs
	})
	if i < len(records) {
		return i, nil
	}
	if policy == FindClampToEnd && len(records) > 0 {
		return len(records) - 1, nil
	}
	return 0, fmt.Errorf("%w: no event at or after %d", ErrNotFound, epochMs)
}

// MemorySource is an in-memory HistorySource and TimeSource.
type MemorySource struct {
	mu      sync.RWMutex
	records []Record
	policy  FindPolicy

	// Clock is the source's own clock, reported by ServerTime.
	// Defaults to SystemClock.
	Clock Clock
	// Skew is added to Clock readings to model a remote clock that
	// disagrees with the local one.
	Skew time.Duration
}

// NewMemorySource sorts a copy of records by time and serves it.
func NewMemorySource(records []Record, policy FindPolicy) *MemorySource {
	rs := append([]Record(nil), records...)
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].EpochMs < rs[j].EpochMs })
	return &MemorySource{records: rs, policy: policy}
}

// Append adds records after the current ones, keeping time order.
func (m *MemorySource) Append(records ...Record) {
	m.mu.Lock()
	m.records = append(m.records, records...)
	sort.SliceStable(m.records, func(i, j int) bool { return m.records[i].EpochMs < m.records[j].EpochMs })
	m.mu.Unlock()
}

func (m *MemorySource) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

func (m *MemorySource) Fetch(ctx context.Context, index int) (*TimelineEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index < 0 || index >= len(m.records) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrNotFound, index, len(m.records))
	}
	return EventAt(m.records, index), nil
}

func (m *MemorySource) FindIndexAtOrAfter(ctx context.Context, remote time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return SearchRecords(m.records, remote.UnixMilli(), m.policy)
}

func (m *MemorySource) ServerTime(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	clock := m.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return clock.Now().Add(m.Skew), nil
}

var (
	_ HistorySource = (*MemorySource)(nil)
	_ TimeSource    = (*MemorySource)(nil)
)
