package schedule

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

var (
	// ErrDuplicateStage is returned when a stage name is added twice.
	ErrDuplicateStage = errors.New("schedule: duplicate stage")

	// ErrUnknownStage is returned when a stage depends on a name that was never added.
	ErrUnknownStage = errors.New("schedule: unknown stage")

	// ErrCycle is returned when the stage dependencies form a cycle.
	ErrCycle = errors.New("schedule: dependency cycle")

	// ErrNotCompiled is returned when Run is called before a successful Compile.
	ErrNotCompiled = errors.New("schedule: graph not compiled")
)

// StageFunc is the body of a stage. Stages report problems through the frame's
// diagnostics recorder rather than returning errors.
type StageFunc func()

// StageTiming is the wall time a stage took during the last Run.
type StageTiming struct {
	Name     string
	Level    int
	Duration time.Duration
}

type stage struct {
	name  string
	run   StageFunc
	after []string
	order int
}

// Graph is a directed acyclic graph of named frame stages.
//
// Stages are added with the names of the stages they must run after. Compile
// sorts them into levels: every stage in a level depends only on stages of
// earlier levels, so the stages of one level run concurrently and a level
// starts only after the previous level has finished.
type Graph interface {
	// Add registers a stage.
	//
	// Parameters:
	//   - name: unique stage name
	//   - run: the stage body
	//   - after: names of stages that must complete before this one starts
	//
	// Returns:
	//   - error: ErrDuplicateStage if name is already registered
	Add(name string, run StageFunc, after ...string) error

	// Compile validates the dependencies and computes the execution levels.
	// Stages with no ordering between them keep their insertion order within a level.
	//
	// Returns:
	//   - error: wraps ErrUnknownStage or ErrCycle on invalid graphs
	Compile() error

	// Levels returns the compiled stage names grouped by level.
	//
	// Returns:
	//   - [][]string: stage names per level, nil before Compile
	Levels() [][]string

	// Run executes every stage once in dependency order.
	//
	// Returns:
	//   - []StageTiming: per-stage timings in level order
	//   - error: ErrNotCompiled, or an error describing a stage that panicked
	Run() ([]StageTiming, error)
}

type graphImpl struct {
	mu     sync.Mutex
	stages map[string]*stage
	order  []string
	levels [][]*stage
}

var _ Graph = &graphImpl{}

// NewGraph creates an empty stage graph.
//
// Returns:
//   - Graph: the new graph
func NewGraph() Graph {
	return &graphImpl{
		stages: make(map[string]*stage),
	}
}

func (g *graphImpl) Add(name string, run StageFunc, after ...string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.stages[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateStage, name)
	}
	deps := make([]string, len(after))
	copy(deps, after)
	g.stages[name] = &stage{name: name, run: run, after: deps, order: len(g.order)}
	g.order = append(g.order, name)
	g.levels = nil
	return nil
}

func (g *graphImpl) Compile() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	indegree := make(map[string]int, len(g.stages))
	dependents := make(map[string][]*stage, len(g.stages))
	for _, name := range g.order {
		s := g.stages[name]
		indegree[name] = len(s.after)
		for _, dep := range s.after {
			if _, ok := g.stages[dep]; !ok {
				return fmt.Errorf("%w: %q (required by %q)", ErrUnknownStage, dep, name)
			}
			dependents[dep] = append(dependents[dep], s)
		}
	}

	// Kahn's algorithm, one level at a time. Iterating g.order keeps ties in
	// insertion order.
	var levels [][]*stage
	var ready []*stage
	for _, name := range g.order {
		if indegree[name] == 0 {
			ready = append(ready, g.stages[name])
		}
	}
	placed := 0
	for len(ready) > 0 {
		levels = append(levels, ready)
		placed += len(ready)
		var next []*stage
		for _, s := range ready {
			for _, d := range dependents[s.name] {
				indegree[d.name]--
				if indegree[d.name] == 0 {
					next = append(next, d)
				}
			}
		}
		slices.SortFunc(next, func(a, b *stage) int { return a.order - b.order })
		ready = next
	}

	if placed != len(g.stages) {
		var stuck []string
		for _, name := range g.order {
			if indegree[name] > 0 {
				stuck = append(stuck, name)
			}
		}
		return fmt.Errorf("%w: %q", ErrCycle, stuck)
	}

	g.levels = levels
	return nil
}

func (g *graphImpl) Levels() [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.levels == nil {
		return nil
	}
	out := make([][]string, len(g.levels))
	for i, lvl := range g.levels {
		for _, s := range lvl {
			out[i] = append(out[i], s.name)
		}
	}
	return out
}

func (g *graphImpl) Run() ([]StageTiming, error) {
	g.mu.Lock()
	levels := g.levels
	g.mu.Unlock()

	if levels == nil {
		return nil, ErrNotCompiled
	}

	timings := make([]StageTiming, 0, len(g.order))
	for li, lvl := range levels {
		results := make([]StageTiming, len(lvl))
		errs := make([]error, len(lvl))

		if len(lvl) == 1 {
			results[0], errs[0] = runStage(lvl[0], li)
		} else {
			var wg sync.WaitGroup
			for i, s := range lvl {
				wg.Add(1)
				go func() {
					defer wg.Done()
					results[i], errs[i] = runStage(s, li)
				}()
			}
			wg.Wait()
		}

		timings = append(timings, results...)
		if err := errors.Join(errs...); err != nil {
			return timings, err
		}
	}
	return timings, nil
}

// runStage executes one stage, converting a panic into an error so the
// remaining levels are not started on a half-built frame.
func runStage(s *stage, level int) (timing StageTiming, err error) {
	start := time.Now()
	defer func() {
		timing = StageTiming{Name: s.name, Level: level, Duration: time.Since(start)}
		if r := recover(); r != nil {
			err = fmt.Errorf("schedule: stage %q panicked: %v", s.name, r)
		}
	}()
	if s.run != nil {
		s.run()
	}
	return
}
