package profiler

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-clusters/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-clusters/engine/schedule"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestTickReportsOnInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var lines []string
	p := NewProfiler(
		WithInterval(time.Second),
		WithClock(clock.now),
		WithOutput(func(format string, args ...any) { lines = append(lines, fmt.Sprintf(format, args...)) }),
	)

	timings := []schedule.StageTiming{
		{Name: "transform_propagate", Level: 0, Duration: 2 * time.Millisecond},
		{Name: "assign_lights_to_clusters", Level: 3, Duration: 4 * time.Millisecond},
	}
	p.Record(timings, []diagnostics.Entry{{Kind: diagnostics.KindCapacityExceeded, Stage: "extract_lights"}})

	clock.t = clock.t.Add(500 * time.Millisecond)
	if p.Tick() {
		t.Fatal("Tick() reported before the interval elapsed")
	}

	timings[0].Duration = 6 * time.Millisecond
	p.Record(timings, nil)
	clock.t = clock.t.Add(600 * time.Millisecond)
	if !p.Tick() {
		t.Fatal("Tick() did not report after the interval elapsed")
	}
	if len(lines) != 3 {
		t.Fatalf("got %d log lines, want 3: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "[Profiler] FPS:") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[2], "capacity_exceeded=1") {
		t.Errorf("diagnostics line = %q", lines[2])
	}

	stages := p.Stages()
	if len(stages) != 2 || stages[0].Name != "transform_propagate" {
		t.Fatalf("stages = %+v", stages)
	}
	if stages[0].Samples != 2 || stages[0].Mean() != 4*time.Millisecond || stages[0].Max != 6*time.Millisecond {
		t.Errorf("transform stats = %+v", stages[0])
	}

	// Counters reset after a report.
	clock.t = clock.t.Add(2 * time.Second)
	lines = nil
	if !p.Tick() {
		t.Fatal("expected a second report")
	}
	if len(lines) != 1 {
		t.Errorf("expected only the FPS line after reset, got %q", lines)
	}
}

func TestMeanOfEmptyStats(t *testing.T) {
	if got := (StageStats{}).Mean(); got != 0 {
		t.Errorf("Mean() = %v, want 0", got)
	}
}
