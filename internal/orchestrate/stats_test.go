package orchestrate

import (
	"testing"
	"time"
)

func TestStats_SnapshotPercentiles(t *testing.T) {
	stats := NewStats(time.Hour)
	for _, ms := range []int64{300, 100, 500, 200, 400} {
		stats.Record(ms, true)
	}

	snap := stats.Snapshot()
	want := Snapshot{Count: 5, MinMs: 100, MaxMs: 500, AvgMs: 300, P50Ms: 300, P95Ms: 480, P99Ms: 496}
	if snap != want {
		t.Fatalf("snapshot = %+v, want %+v", snap, want)
	}
}

func TestStats_CountsFailures(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(10, true)
	stats.Record(20, false)
	stats.Record(30, false)

	if got := stats.Snapshot().Failures; got != 2 {
		t.Fatalf("expected 2 failures, got %d", got)
	}
}

func TestStats_ExpiresOldSamples(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	stats := NewStats(time.Minute)
	stats.now = func() time.Time { return now }

	stats.Record(100, true)
	now = now.Add(2 * time.Minute)

	if snap := stats.Snapshot(); snap.Count != 0 {
		t.Fatalf("expected count=0 after window, got %d", snap.Count)
	}

	stats.Record(200, true)
	snap := stats.Snapshot()
	if snap.Count != 1 || snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected single fresh sample of 200ms, got %+v", snap)
	}
}

func TestStats_ClampsNegativeDuration(t *testing.T) {
	stats := NewStats(0)
	stats.Record(-10, true)
	snap := stats.Snapshot()
	if snap.Count != 1 || snap.MaxMs != 0 {
		t.Fatalf("expected one clamped sample, got %+v", snap)
	}
}

func TestPercentile_Edges(t *testing.T) {
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("empty: got %f", got)
	}
	if got := percentile([]int64{7}, 99); got != 7 {
		t.Errorf("single: got %f", got)
	}
	if got := percentile([]int64{1, 9}, 0); got != 1 {
		t.Errorf("p0: got %f", got)
	}
	if got := percentile([]int64{1, 9}, 100); got != 9 {
		t.Errorf("p100: got %f", got)
	}
}
