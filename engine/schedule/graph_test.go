package schedule

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestGraphLevelsRespectDependencies(t *testing.T) {
	g := NewGraph()
	var mu sync.Mutex
	var ran []string
	record := func(name string) StageFunc {
		return func() {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
		}
	}

	mustAdd(t, g, "transform_propagate", record("transform_propagate"))
	mustAdd(t, g, "add_clusters", record("add_clusters"), "transform_propagate")
	mustAdd(t, g, "build_cascades", record("build_cascades"), "transform_propagate")
	mustAdd(t, g, "assign_lights_to_clusters", record("assign_lights_to_clusters"), "add_clusters")
	mustAdd(t, g, "directional_frusta", record("directional_frusta"), "build_cascades")
	mustAdd(t, g, "marshal", record("marshal"), "assign_lights_to_clusters", "directional_frusta")

	if err := g.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	want := [][]string{
		{"transform_propagate"},
		{"add_clusters", "build_cascades"},
		{"assign_lights_to_clusters", "directional_frusta"},
		{"marshal"},
	}
	if got := g.Levels(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Levels() = %v, want %v", got, want)
	}

	timings, err := g.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(timings) != 6 {
		t.Fatalf("got %d timings, want 6", len(timings))
	}

	pos := make(map[string]int)
	for i, name := range ran {
		pos[name] = i
	}
	before := [][2]string{
		{"transform_propagate", "add_clusters"},
		{"add_clusters", "assign_lights_to_clusters"},
		{"build_cascades", "directional_frusta"},
		{"assign_lights_to_clusters", "marshal"},
		{"directional_frusta", "marshal"},
	}
	for _, b := range before {
		if pos[b[0]] >= pos[b[1]] {
			t.Errorf("%s ran after %s (order %v)", b[0], b[1], ran)
		}
	}
}

func TestGraphErrors(t *testing.T) {
	t.Run("duplicate", func(t *testing.T) {
		g := NewGraph()
		mustAdd(t, g, "a", nil)
		if err := g.Add("a", nil); !errors.Is(err, ErrDuplicateStage) {
			t.Errorf("got %v, want ErrDuplicateStage", err)
		}
	})

	t.Run("unknown dependency", func(t *testing.T) {
		g := NewGraph()
		mustAdd(t, g, "a", nil, "missing")
		if err := g.Compile(); !errors.Is(err, ErrUnknownStage) {
			t.Errorf("got %v, want ErrUnknownStage", err)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		g := NewGraph()
		mustAdd(t, g, "a", nil, "c")
		mustAdd(t, g, "b", nil, "a")
		mustAdd(t, g, "c", nil, "b")
		mustAdd(t, g, "d", nil)
		err := g.Compile()
		if !errors.Is(err, ErrCycle) {
			t.Fatalf("got %v, want ErrCycle", err)
		}
		if strings.Contains(err.Error(), `"d"`) {
			t.Errorf("cycle error names acyclic stage: %v", err)
		}
	})

	t.Run("not compiled", func(t *testing.T) {
		g := NewGraph()
		mustAdd(t, g, "a", nil)
		if _, err := g.Run(); !errors.Is(err, ErrNotCompiled) {
			t.Errorf("got %v, want ErrNotCompiled", err)
		}
	})
}

func TestGraphStagePanicStopsLaterLevels(t *testing.T) {
	g := NewGraph()
	var late atomic.Bool
	mustAdd(t, g, "boom", func() { panic("bad input") })
	mustAdd(t, g, "after", func() { late.Store(true) }, "boom")
	if err := g.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	_, err := g.Run()
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("Run error = %v, want panic from boom", err)
	}
	if late.Load() {
		t.Error("dependent stage ran after a panic")
	}
}

func mustAdd(t *testing.T, g Graph, name string, run StageFunc, after ...string) {
	t.Helper()
	if err := g.Add(name, run, after...); err != nil {
		t.Fatalf("Add(%q): %v", name, err)
	}
}
