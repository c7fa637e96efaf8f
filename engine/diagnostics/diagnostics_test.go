package diagnostics

import (
	"sync"
	"testing"
)

func TestRecorderCountsAndResets(t *testing.T) {
	r := NewRecorder(WithQuiet(true))

	r.Record(KindCapacityExceeded, "marshal", "dropped %d lights", 3)
	r.Record(KindCapacityExceeded, "marshal", "dropped %d lights", 1)
	r.Record(KindMissingData, "extract_lights", "light %d has no transform", 7)

	if got := r.Count(KindCapacityExceeded); got != 2 {
		t.Errorf("Count(capacity) = %d, want 2", got)
	}
	if got := r.Count(KindDegenerateGeometry); got != 0 {
		t.Errorf("Count(degenerate) = %d, want 0", got)
	}
	entries := r.Entries()
	if len(entries) != 3 || entries[0].Message != "dropped 3 lights" || entries[2].Stage != "extract_lights" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	r.BeginFrame()
	if got := r.Count(KindCapacityExceeded); got != 0 {
		t.Errorf("Count after BeginFrame = %d, want 0", got)
	}
	if got := r.Total(KindCapacityExceeded); got != 2 {
		t.Errorf("Total after BeginFrame = %d, want 2", got)
	}
	if len(r.Entries()) != 0 {
		t.Error("entries not cleared by BeginFrame")
	}
}

func TestRecorderConcurrentRecord(t *testing.T) {
	r := NewRecorder(WithQuiet(true))
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Record(KindDegenerateGeometry, "build_cascades", "slice %d", i)
		}()
	}
	wg.Wait()
	if got := r.Count(KindDegenerateGeometry); got != 32 {
		t.Errorf("Count = %d, want 32", got)
	}
}

func TestKindString(t *testing.T) {
	if KindCapacityExceeded.String() != "capacity_exceeded" {
		t.Errorf("unexpected name %q", KindCapacityExceeded.String())
	}
	if Kind(42).String() != "kind(42)" {
		t.Errorf("unexpected name %q", Kind(42).String())
	}
}
