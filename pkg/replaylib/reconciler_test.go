package replaylib

import (
	"testing"
	"time"

	"github.com/rewindhq/rewind/pkg/logger"
)

func TestReconciler_Offset(t *testing.T) {
	clock := NewManualClock(time.UnixMilli(1000))
	r := NewReconciler(clock, nil)

	off := r.Sample(time.UnixMilli(5000))
	if off.OffsetMs() != 4000 {
		t.Fatalf("expected offset 4000, got %d", off.OffsetMs())
	}
	clock.Set(time.UnixMilli(2000))
	if got := r.Now().UnixMilli(); got != 6000 {
		t.Errorf("expected reconciled now 6000, got %d", got)
	}
	if got := r.ToRemote(time.UnixMilli(10000)).UnixMilli(); got != 14000 {
		t.Errorf("ToRemote: got %d", got)
	}
	if got := r.ToLocal(time.UnixMilli(14000)).UnixMilli(); got != 10000 {
		t.Errorf("ToLocal: got %d", got)
	}
	if !r.Sampled() {
		t.Error("expected Sampled")
	}
}

func TestReconciler_NegativeOffset(t *testing.T) {
	clock := NewManualClock(time.UnixMilli(9000))
	r := NewReconciler(clock, nil)
	r.Sample(time.UnixMilli(4000))
	if r.Offset() != -5*time.Second {
		t.Errorf("expected -5s, got %s", r.Offset())
	}
}

func TestReconciler_UnsampledWarnsOnce(t *testing.T) {
	clock := NewManualClock(time.UnixMilli(3000))
	ml := logger.NewMockLogger()
	r := NewReconciler(clock, ml)

	if got := r.Now().UnixMilli(); got != 3000 {
		t.Errorf("unsampled reconciler should trust the local clock, got %d", got)
	}
	r.Now()
	if n := len(ml.Warnings()); n != 1 {
		t.Errorf("expected one warning, got %d", n)
	}
	if _, ok := r.Current(); ok {
		t.Error("expected unsampled")
	}
}

func TestReconciler_ResampleReplaces(t *testing.T) {
	clock := NewManualClock(time.UnixMilli(1000))
	r := NewReconciler(clock, nil)
	r.Sample(time.UnixMilli(2000))
	r.SampleAt(time.UnixMilli(500), time.UnixMilli(1000))
	off, _ := r.Current()
	if off.OffsetMs() != -500 {
		t.Errorf("expected -500, got %d", off.OffsetMs())
	}
}
