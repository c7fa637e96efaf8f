package engine

import (
	"fmt"
	"log"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-clusters/engine/profiler"
	"github.com/Carmen-Shannon/oxy-clusters/engine/scene"
	"github.com/Carmen-Shannon/oxy-clusters/engine/window"
)

// engine implements the Engine interface.
// Coordinates the frame tick loop and the window thread.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	frameCallback  func(key int, result *scene.FrameResult)

	scenes map[int]scene.Scene
}

// Engine is the main entry point for the engine.
// It drives the per-frame light and shadow pipeline of every active scene at a fixed rate.
type Engine interface {
	// Window returns the underlying window, or nil for a headless engine.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick before the scenes' frames run.
	// Use this for game logic, input processing, and moving cameras, objects, or lights.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetFrameCallback registers the function called with each scene's frame result.
	// Use this to upload the marshaled buffers or inspect cluster and shadow output.
	//
	// Parameters:
	//   - callback: function receiving the scene key and its frame result
	SetFrameCallback(callback func(key int, result *scene.FrameResult))

	// AddScene registers a scene at the given key.
	// Scenes run their frames in ascending key order.
	//
	// Parameters:
	//   - key: the ordering key (lower runs first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given key.
	//
	// Parameters:
	//   - key: the key of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the key of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by ordering key.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Step runs one frame of every active scene synchronously, in ascending key order.
	// A scene whose frame fails is logged and left out of the results.
	//
	// Parameters:
	//   - dt: the frame delta time in seconds
	//
	// Returns:
	//   - map[int]*scene.FrameResult: frame results keyed by scene key
	Step(dt float32) map[int]*scene.FrameResult

	// Run starts the engine tick loop. With a window it blocks until the window closes;
	// headless it blocks until Quit is called.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
		e.window.SetUpdateCallback(e.closeWindowOnQuit)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
}

// closeWindowOnQuit runs on the window thread each message loop iteration and
// closes the window once Quit has been called, which ends ProcessMessages.
func (e *engine) closeWindowOnQuit() {
	select {
	case <-e.quitChannel:
		if e.window.IsRunning() {
			if err := e.window.Close(); err != nil {
				log.Printf("[Engine] closing window: %v", err)
			}
		}
	default:
	}
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.quitChannel)
	})
}

// handle launches the engine and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Each tick fires the tick callback, then runs a frame for every active scene.
// Listens for dynamic rate changes via tickRateChannel and exits when the quit channel is closed.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleEngine() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] tick goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
			e.Step(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

func (e *engine) Step(dt float32) map[int]*scene.FrameResult {
	e.mu.Lock()
	keys := slices.Sorted(maps.Keys(e.scenes))
	active := make([]scene.Scene, 0, len(keys))
	activeKeys := make([]int, 0, len(keys))
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
			activeKeys = append(activeKeys, k)
		}
	}
	frameCallback := e.frameCallback
	profiling := e.profilingEnabled
	e.mu.Unlock()

	results := make(map[int]*scene.FrameResult, len(active))
	for i, s := range active {
		key := activeKeys[i]
		res, err := runFrame(s, dt)
		if err != nil {
			log.Printf("[Engine] scene %d (%s): %v", key, s.Name(), err)
			continue
		}
		results[key] = res
		if profiling {
			e.profiler.Record(res.Timings, res.Diagnostics)
		}
		if frameCallback != nil {
			frameCallback(key, res)
		}
	}

	if profiling {
		e.profiler.Tick()
	}
	return results
}

// runFrame runs one scene frame and converts a panic into an error so that one
// broken scene does not stop the others.
func runFrame(s scene.Scene, dt float32) (res *scene.FrameResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("frame panicked: %v", r)
		}
	}()
	return s.Frame(dt)
}

// resize forwards framebuffer size changes to every scene camera so that the
// aspect ratio and pixel-based cluster tiling follow the window.
func (e *engine) resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	e.mu.Lock()
	scenes := slices.Collect(maps.Values(e.scenes))
	e.mu.Unlock()

	for _, s := range scenes {
		for _, c := range s.Cameras() {
			c.SetViewport(width, height)
		}
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.mu.Lock()
	e.profilingEnabled = true
	e.mu.Unlock()
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.mu.Lock()
	e.profilingEnabled = false
	e.mu.Unlock()
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	running := e.running
	e.mu.Unlock()

	if running {
		// Non-blocking send; a pending update is replaced by the newer rate.
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetFrameCallback registers the function called with each scene's frame result.
func (e *engine) SetFrameCallback(callback func(key int, result *scene.FrameResult)) {
	e.mu.Lock()
	e.frameCallback = callback
	e.mu.Unlock()
}

func (e *engine) AddScene(key int, s scene.Scene) {
	if s == nil {
		panic("engine: AddScene requires a non-nil scene")
	}
	e.mu.Lock()
	e.scenes[key] = s
	e.mu.Unlock()
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	delete(e.scenes, key)
	e.mu.Unlock()
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.scenes)
}
