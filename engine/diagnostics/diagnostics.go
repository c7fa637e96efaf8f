package diagnostics

import (
	"fmt"
	"log"
	"sync"
)

// Kind classifies a recorded frame problem. Every kind is non-fatal: the stage
// that detects it degrades its output and the frame continues.
type Kind int

const (
	// KindCapacityExceeded is recorded when lights, clusters, or cluster light
	// entries exceed a buffer limit and the excess is truncated.
	KindCapacityExceeded Kind = iota

	// KindDegenerateGeometry is recorded when a frustum slice, light direction,
	// or projection has no usable extent and an empty/identity result is used instead.
	KindDegenerateGeometry

	// KindMissingData is recorded when an entity lacks data a stage needs and is
	// skipped for the frame.
	KindMissingData

	kindCount
)

// String returns a readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindCapacityExceeded:
		return "capacity_exceeded"
	case KindDegenerateGeometry:
		return "degenerate_geometry"
	case KindMissingData:
		return "missing_data"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Entry is a single recorded diagnostic.
type Entry struct {
	Kind    Kind
	Stage   string
	Message string
}

// Recorder collects diagnostics from concurrently running frame stages.
//
// Each (kind, stage) pair is logged at most once per frame; every occurrence is
// still counted. BeginFrame resets the per-frame state.
type Recorder interface {
	// Record counts a diagnostic and logs it if it is the first of its kind for
	// the stage this frame.
	//
	// Parameters:
	//   - kind: the diagnostic kind
	//   - stage: name of the stage that detected the problem
	//   - format: fmt-style message format
	//   - args: message arguments
	Record(kind Kind, stage string, format string, args ...any)

	// BeginFrame clears the per-frame counts and entries.
	BeginFrame()

	// Count returns how many diagnostics of the given kind were recorded this frame.
	//
	// Parameters:
	//   - kind: the diagnostic kind
	//
	// Returns:
	//   - int: the per-frame count
	Count(kind Kind) int

	// Total returns how many diagnostics of the given kind were recorded since creation.
	//
	// Parameters:
	//   - kind: the diagnostic kind
	//
	// Returns:
	//   - int: the lifetime count
	Total(kind Kind) int

	// Entries returns a copy of the entries recorded this frame, in record order.
	//
	// Returns:
	//   - []Entry: the frame's entries
	Entries() []Entry
}

type recorderImpl struct {
	mu      sync.Mutex
	frame   [kindCount]int
	total   [kindCount]int
	entries []Entry
	logged  map[string]struct{}
	quiet   bool
}

var _ Recorder = &recorderImpl{}

// RecorderBuilderOption is a functional option for configuring a Recorder.
type RecorderBuilderOption func(*recorderImpl)

// WithQuiet disables logging; diagnostics are only counted and stored.
//
// Parameters:
//   - quiet: true to suppress log output
//
// Returns:
//   - RecorderBuilderOption: the option function
func WithQuiet(quiet bool) RecorderBuilderOption {
	return func(r *recorderImpl) {
		r.quiet = quiet
	}
}

// NewRecorder creates a new diagnostics Recorder.
//
// Parameters:
//   - options: variadic list of RecorderBuilderOption functions
//
// Returns:
//   - Recorder: the recorder
func NewRecorder(options ...RecorderBuilderOption) Recorder {
	r := &recorderImpl{
		logged: make(map[string]struct{}),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *recorderImpl) Record(kind Kind, stage string, format string, args ...any) {
	if kind < 0 || kind >= kindCount {
		return
	}
	msg := fmt.Sprintf(format, args...)

	r.mu.Lock()
	r.frame[kind]++
	r.total[kind]++
	r.entries = append(r.entries, Entry{Kind: kind, Stage: stage, Message: msg})
	key := kind.String() + "/" + stage
	_, seen := r.logged[key]
	if !seen {
		r.logged[key] = struct{}{}
	}
	r.mu.Unlock()

	if !seen && !r.quiet {
		log.Printf("[Diagnostics] %s in %s: %s", kind, stage, msg)
	}
}

func (r *recorderImpl) BeginFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame = [kindCount]int{}
	r.entries = r.entries[:0]
	clear(r.logged)
}

func (r *recorderImpl) Count(kind Kind) int {
	if kind < 0 || kind >= kindCount {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame[kind]
}

func (r *recorderImpl) Total(kind Kind) int {
	if kind < 0 || kind >= kindCount {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total[kind]
}

func (r *recorderImpl) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
