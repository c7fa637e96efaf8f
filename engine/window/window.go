package window

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing and input event handling.
// The framebuffer size it reports is what cameras use as their viewport, so
// resize events can be forwarded to camera.SetViewport unchanged.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	// Zero-sized framebuffers (minimized windows) are not reported.
	//
	// Parameters:
	//   - callback: function receiving the new framebuffer width and height in pixels
	SetResizeCallback(callback func(width, height uint32))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetMiddleMouseDownCallback sets the callback for middle mouse button press.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMiddleMouseDownCallback(callback func(x, y int32))

	// SetMiddleMouseUpCallback sets the callback for middle mouse button release.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMiddleMouseUpCallback(callback func(x, y int32))

	// SetMouseMoveCallback sets the callback for mouse movement.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMouseMoveCallback(callback func(x, y int32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor for creating a WebGPU surface,
	// built by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the surface descriptor, or nil for a headless or closed window
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still open.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: ErrClosed if the window was already closed
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls the update callback each iteration.
	ProcessMessages()

	// SetSize requests a new client area size. The resize callback fires once the
	// platform reports the new framebuffer size. Values are clamped to the size limits.
	//
	// Parameters:
	//   - width: requested width in pixels
	//   - height: requested height in pixels
	SetSize(width, height int)

	// Viewport returns the current framebuffer size in pixels.
	//
	// Returns:
	//   - width: framebuffer width
	//   - height: framebuffer height
	Viewport() (width, height uint32)

	// Title returns the window title.
	Title() string
}

// ErrClosed is returned by Close when the window has already been closed.
var ErrClosed = errors.New("window: already closed")

// platform is the backend a window delegates OS interaction to.
type platform interface {
	surfaceDescriptor() *wgpu.SurfaceDescriptor
	running() bool
	// poll dispatches pending events and reports whether the window is still open.
	poll() bool
	setSize(width, height int)
	close() error
}

// sizeLimits bounds the client area during user or programmatic resizes.
type sizeLimits struct {
	minWidth, minHeight int
	maxWidth, maxHeight int
}

func (l sizeLimits) clamp(width, height int) (int, int) {
	return min(max(width, l.minWidth), l.maxWidth), min(max(height, l.minHeight), l.maxHeight)
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	mu sync.Mutex

	title    string
	limits   sizeLimits
	width    int
	height   int
	headless bool

	backend platform

	onUpdate          func()
	onResize          func(width, height uint32)
	onScroll          func(delta float32)
	onKeyDown         func(keyCode uint32)
	onKeyUp           func(keyCode uint32)
	onMiddleMouseDown func(x, y int32)
	onMiddleMouseUp   func(x, y int32)
	onMouseMove       func(x, y int32)
}

var _ Window = &engineWindow{}

// NewWindow creates and opens a new Window with the specified options.
// Applies default values first, then each option in order.
// Panics if the platform window cannot be created.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the opened window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title: "oxy-clusters",
		limits: sizeLimits{
			minWidth:  320,
			minHeight: 200,
			maxWidth:  3840,
			maxHeight: 2160,
		},
		width:  1280,
		height: 720,
	}
	for _, opt := range options {
		opt(w)
	}
	w.width, w.height = w.limits.clamp(w.width, w.height)

	var err error
	if w.headless {
		w.backend = newHeadlessPlatform(w)
	} else {
		w.backend, err = newGLFWPlatform(w)
	}
	if err != nil {
		panic(fmt.Sprintf("window: failed to create platform window: %v", err))
	}
	return w
}

// framebufferResized records the new framebuffer size and notifies the resize callback.
// Called by the platform backends.
func (w *engineWindow) framebufferResized(width, height int) {
	w.mu.Lock()
	w.width, w.height = width, height
	cb := w.onResize
	w.mu.Unlock()

	if cb != nil && width > 0 && height > 0 {
		cb(uint32(width), uint32(height))
	}
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height uint32)) {
	w.mu.Lock()
	w.onResize = callback
	w.mu.Unlock()
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMiddleMouseDownCallback(callback func(x, y int32)) {
	w.onMiddleMouseDown = callback
}

func (w *engineWindow) SetMiddleMouseUpCallback(callback func(x, y int32)) {
	w.onMiddleMouseUp = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y int32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return w.backend.surfaceDescriptor()
}

func (w *engineWindow) IsRunning() bool {
	return w.backend.running()
}

func (w *engineWindow) Close() error {
	return w.backend.close()
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if ok := w.backend.poll(); !ok {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) SetSize(width, height int) {
	width, height = w.limits.clamp(width, height)
	w.backend.setSize(width, height)
}

func (w *engineWindow) Viewport() (width, height uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return uint32(max(w.width, 0)), uint32(max(w.height, 0))
}

func (w *engineWindow) Title() string {
	return w.title
}
