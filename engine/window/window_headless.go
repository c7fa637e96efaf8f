package window

import (
	"sync/atomic"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
)

// headlessPoll is how long a headless message loop iteration waits.
const headlessPoll = time.Millisecond

// headlessPlatform is a window without an OS surface. Resizes are applied
// immediately, which makes it usable in tests and offline tools.
type headlessPlatform struct {
	parent *engineWindow
	open   atomic.Bool
}

var _ platform = &headlessPlatform{}

func newHeadlessPlatform(w *engineWindow) *headlessPlatform {
	p := &headlessPlatform{parent: w}
	p.open.Store(true)
	return p
}

func (p *headlessPlatform) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return nil
}

func (p *headlessPlatform) running() bool {
	return p.open.Load()
}

func (p *headlessPlatform) poll() bool {
	time.Sleep(headlessPoll)
	return p.open.Load()
}

func (p *headlessPlatform) setSize(width, height int) {
	if p.open.Load() {
		p.parent.framebufferResized(width, height)
	}
}

func (p *headlessPlatform) close() error {
	if !p.open.Swap(false) {
		return ErrClosed
	}
	return nil
}
