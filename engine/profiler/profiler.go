package profiler

import (
	"fmt"
	"log"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-clusters/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-clusters/engine/schedule"
)

// StageStats aggregates the timings of one frame stage over a profiling interval.
type StageStats struct {
	Name    string
	Level   int
	Samples int
	Total   time.Duration
	Max     time.Duration
}

// Mean returns the average stage duration over the interval.
func (s StageStats) Mean() time.Duration {
	if s.Samples == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Samples)
}

// Profiler tracks frame rate, per-stage frame timings, diagnostics, and memory
// statistics. Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	stages      map[string]*StageStats
	diagnostics map[diagnostics.Kind]int
	lastReport  []StageStats

	now func() time.Time
	out func(format string, args ...any)
}

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(p *Profiler)

// WithInterval sets how often stats are logged. Values <= 0 keep the default of 1 second.
//
// Parameters:
//   - d: the logging interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
//
// Parameters:
//   - now: the clock function
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}

// WithOutput replaces log.Printf as the report sink.
//
// Parameters:
//   - out: printf-style output function
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithOutput(out func(format string, args ...any)) ProfilerBuilderOption {
	return func(p *Profiler) {
		if out != nil {
			p.out = out
		}
	}
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		stages:         make(map[string]*StageStats),
		diagnostics:    make(map[diagnostics.Kind]int),
		now:            time.Now,
		out:            log.Printf,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Record accumulates the stage timings and diagnostics of one finished frame.
// Call it before Tick for the same frame.
//
// Parameters:
//   - timings: the stage timings reported by the frame graph
//   - entries: the diagnostics recorded during the frame
func (p *Profiler) Record(timings []schedule.StageTiming, entries []diagnostics.Entry) {
	for _, t := range timings {
		st, ok := p.stages[t.Name]
		if !ok {
			st = &StageStats{Name: t.Name, Level: t.Level}
			p.stages[t.Name] = st
		}
		st.Samples++
		st.Total += t.Duration
		st.Max = max(st.Max, t.Duration)
	}
	for _, e := range entries {
		p.diagnostics[e.Kind]++
	}
}

// Stages returns the stage statistics of the last logged interval, ordered by
// level then name.
//
// Returns:
//   - []StageStats: the per-stage statistics
func (p *Profiler) Stages() []StageStats {
	return slices.Clone(p.lastReport)
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory,
// the slowest frame stages, and diagnostics counts.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.out("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		fps, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.lastReport = p.lastReport[:0]
	for _, st := range p.stages {
		p.lastReport = append(p.lastReport, *st)
	}
	slices.SortFunc(p.lastReport, func(a, b StageStats) int {
		if a.Level != b.Level {
			return a.Level - b.Level
		}
		return strings.Compare(a.Name, b.Name)
	})
	if len(p.lastReport) > 0 {
		var sb strings.Builder
		for i, st := range p.lastReport {
			if i > 0 {
				sb.WriteString(" | ")
			}
			fmt.Fprintf(&sb, "%s: %s (max %s)", st.Name, st.Mean(), st.Max)
		}
		p.out("[Profiler] Stages: %s", sb.String())
	}
	if len(p.diagnostics) > 0 {
		kinds := make([]diagnostics.Kind, 0, len(p.diagnostics))
		for k := range p.diagnostics {
			kinds = append(kinds, k)
		}
		slices.Sort(kinds)
		parts := make([]string, len(kinds))
		for i, k := range kinds {
			parts[i] = fmt.Sprintf("%s=%d", k, p.diagnostics[k])
		}
		p.out("[Profiler] Diagnostics: %s", strings.Join(parts, " "))
	}

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	clear(p.stages)
	clear(p.diagnostics)
	return true
}
