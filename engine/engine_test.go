package engine

import (
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-clusters/engine/camera"
	"github.com/Carmen-Shannon/oxy-clusters/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-clusters/engine/light"
	"github.com/Carmen-Shannon/oxy-clusters/engine/scene"
	"github.com/Carmen-Shannon/oxy-clusters/engine/schedule"
	"github.com/Carmen-Shannon/oxy-clusters/engine/window"
)

func testScene(name string, active bool) scene.Scene {
	cam := camera.NewCamera(
		camera.WithFov(math.Pi/3),
		camera.WithViewport(1280, 720),
		camera.WithNear(0.1),
		camera.WithFar(100),
	)
	lamp := light.NewLight(light.LightTypePoint,
		light.WithPosition(0, 0, -10),
		light.WithRange(5),
	)
	return scene.NewScene(name,
		scene.WithActive(active),
		scene.WithCameras(cam),
		scene.WithLights(lamp),
		scene.WithPool(schedule.Serial{}),
		scene.WithRecorder(diagnostics.NewRecorder(diagnostics.WithQuiet(true))),
	)
}

func TestStepRunsActiveScenesInKeyOrder(t *testing.T) {
	var order []int
	e := NewEngine(
		WithScene(2, testScene("overlay", true)),
		WithScene(0, testScene("world", true)),
		WithScene(1, testScene("paused", false)),
		WithFrameCallback(func(key int, _ *scene.FrameResult) { order = append(order, key) }),
	)

	results := e.Step(1.0 / 60)
	if len(results) != 2 {
		t.Fatalf("Step() returned %d results, want 2", len(results))
	}
	if _, ok := results[1]; ok {
		t.Error("inactive scene produced a frame")
	}
	if len(order) != 2 || order[0] != 0 || order[1] != 2 {
		t.Errorf("frame callback order = %v, want [0 2]", order)
	}
	if len(results[0].GlobalVisibleLightIDs) != 1 {
		t.Errorf("visible lights = %v, want one", results[0].GlobalVisibleLightIDs)
	}

	again := e.Step(1.0 / 60)
	if again[0].Number != 2 {
		t.Errorf("second frame number = %d, want 2", again[0].Number)
	}
}

func TestSceneRegistry(t *testing.T) {
	e := NewEngine()
	s := testScene("a", true)
	e.AddScene(5, s)
	if e.Scene(5) != s {
		t.Error("Scene(5) did not return the added scene")
	}
	scenes := e.Scenes()
	delete(scenes, 5)
	if e.Scene(5) == nil {
		t.Error("Scenes() must return a copy")
	}
	e.RemoveScene(5)
	if e.Scene(5) != nil {
		t.Error("scene still registered after RemoveScene")
	}

	defer func() {
		if recover() == nil {
			t.Error("AddScene(nil) did not panic")
		}
	}()
	e.AddScene(1, nil)
}

func TestWindowResizeUpdatesCameraViewports(t *testing.T) {
	s := testScene("a", true)
	win := window.NewWindow(window.WithHeadless(true))
	defer win.Close()
	NewEngine(WithWindow(win), WithScene(0, s))

	win.SetSize(800, 800)
	cam := s.Cameras()[0]
	if w, h := cam.Viewport(); w != 800 || h != 800 {
		t.Errorf("viewport = %dx%d, want 800x800", w, h)
	}
	if cam.Aspect() != 1 {
		t.Errorf("aspect = %v, want 1", cam.Aspect())
	}
}

func TestRunWithWindowReturnsAfterQuit(t *testing.T) {
	win := window.NewWindow(window.WithHeadless(true))
	var frames atomic.Int32
	var e Engine
	e = NewEngine(
		WithWindow(win),
		WithTickRate(500),
		WithScene(0, testScene("a", true)),
		WithFrameCallback(func(int, *scene.FrameResult) {
			if frames.Add(1) == 2 {
				e.Quit()
			}
		}),
	)

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after Quit")
	}
	if win.IsRunning() {
		t.Error("window still open after Run returned")
	}
}

func TestHeadlessRunStopsOnQuit(t *testing.T) {
	var ticks atomic.Int32
	var e Engine
	e = NewEngine(
		WithTickRate(500),
		WithScene(0, testScene("a", true)),
		WithTickCallback(func(float32) {
			if ticks.Add(1) == 3 {
				e.Quit()
			}
		}),
	)

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		e.Quit()
		t.Fatal("Run() did not return after Quit")
	}
	if ticks.Load() < 3 {
		t.Errorf("ticks = %d, want at least 3", ticks.Load())
	}
	e.Quit()
}
