package light_meta

import (
	"fmt"
	"math/bits"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-clusters/engine/light"
)

// minBufferSize is the smallest buffer allocated. WebGPU rejects zero-sized
// bindings, so empty data still gets a buffer.
const minBufferSize uint64 = 256

// Device allocates and frees GPU buffers. Use WGPUDevice to adapt a *wgpu.Device.
type Device interface {
	CreateBuffer(descriptor *wgpu.BufferDescriptor) (*wgpu.Buffer, error)
	ReleaseBuffer(buf *wgpu.Buffer)
}

// QueueWriter writes data into GPU buffers. *wgpu.Queue satisfies it.
type QueueWriter interface {
	WriteBuffer(buffer *wgpu.Buffer, bufferOffset uint64, data []byte) error
}

type wgpuDevice struct {
	device *wgpu.Device
}

// WGPUDevice adapts a wgpu device to the Device interface.
//
// Parameters:
//   - d: the device
//
// Returns:
//   - Device: the adapter
func WGPUDevice(d *wgpu.Device) Device {
	if d == nil {
		panic("light_meta: nil device")
	}
	return &wgpuDevice{device: d}
}

func (w *wgpuDevice) CreateBuffer(descriptor *wgpu.BufferDescriptor) (*wgpu.Buffer, error) {
	return w.device.CreateBuffer(descriptor)
}

func (w *wgpuDevice) ReleaseBuffer(buf *wgpu.Buffer) {
	buf.Release()
}

// bufferWrite is one labeled buffer's contents for an upload.
type bufferWrite struct {
	label string
	usage wgpu.BufferUsage
	data  []byte
}

// gpuBuffer is a GPU buffer that only grows.
type gpuBuffer struct {
	label    string
	usage    wgpu.BufferUsage
	capacity uint64
	buf      *wgpu.Buffer
}

// BufferDescriptor returns the descriptor for a buffer able to hold size bytes:
// the next power of two, at least minBufferSize.
//
// Parameters:
//   - label: debug label
//   - usage: buffer usage flags; CopyDst is always added
//   - size: bytes required
//
// Returns:
//   - wgpu.BufferDescriptor: the descriptor
func BufferDescriptor(label string, usage wgpu.BufferUsage, size uint64) wgpu.BufferDescriptor {
	capacity := minBufferSize
	if size > capacity {
		capacity = 1 << bits.Len64(size-1)
	}
	return wgpu.BufferDescriptor{
		Label: label,
		Usage: usage | wgpu.BufferUsageCopyDst,
		Size:  capacity,
	}
}

// ensure grows b to hold size bytes, reporting whether it was reallocated.
func (b *gpuBuffer) ensure(device Device, size uint64) (bool, error) {
	if b.buf != nil && b.capacity >= size {
		return false, nil
	}
	desc := BufferDescriptor(b.label, b.usage, size)
	buf, err := device.CreateBuffer(&desc)
	if err != nil {
		return false, fmt.Errorf("light_meta: create buffer %q (%d bytes): %w", b.label, desc.Size, err)
	}
	if b.buf != nil {
		device.ReleaseBuffer(b.buf)
	}
	b.buf = buf
	b.capacity = desc.Size
	return true, nil
}

// Buffer returns the GPU buffer behind a label, or nil before the first upload.
// Labels are "lights", "shadow_views", and "clusters/<camera id>/uniforms",
// "/offsets" and "/indices".
//
// Parameters:
//   - m: the LightMeta
//   - label: the buffer label
//
// Returns:
//   - *wgpu.Buffer: the buffer or nil
//   - uint64: its capacity in bytes
func Buffer(m LightMeta, label string) (*wgpu.Buffer, uint64) {
	impl, ok := m.(*lightMetaImpl)
	if !ok {
		return nil, 0
	}
	impl.mu.Lock()
	defer impl.mu.Unlock()
	b, ok := impl.buffers[label]
	if !ok {
		return nil, 0
	}
	return b.buf, b.capacity
}

func (m *lightMetaImpl) Upload(device Device, queue QueueWriter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	writes := []bufferWrite{
		{"lights", wgpu.BufferUsageStorage, light.MarshalLightBuffer(m.lights, m.ambient)},
		{"shadow_views", wgpu.BufferUsageStorage, m.marshalShadowViews()},
	}
	for _, id := range m.cameraOrder {
		c := m.clusters[id]
		prefix := fmt.Sprintf("clusters/%d/", id)
		writes = append(writes,
			bufferWrite{prefix + "uniforms", wgpu.BufferUsageUniform, c.Uniforms.Marshal()},
			bufferWrite{prefix + "offsets", wgpu.BufferUsageStorage, MarshalOffsets(c.Offsets)},
			bufferWrite{prefix + "indices", wgpu.BufferUsageStorage, MarshalIndices(c.Indices)},
		)
	}

	for _, w := range writes {
		b, ok := m.buffers[w.label]
		if !ok {
			b = &gpuBuffer{label: w.label, usage: w.usage}
			m.buffers[w.label] = b
		}
		if _, err := b.ensure(device, uint64(len(w.data))); err != nil {
			return err
		}
		if len(w.data) == 0 {
			continue
		}
		if err := queue.WriteBuffer(b.buf, 0, w.data); err != nil {
			return fmt.Errorf("light_meta: write buffer %q: %w", w.label, err)
		}
	}
	return nil
}

func (m *lightMetaImpl) Release(device Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for label, b := range m.buffers {
		if b.buf != nil {
			device.ReleaseBuffer(b.buf)
		}
		delete(m.buffers, label)
	}
}

func (m *lightMetaImpl) marshalShadowViews() []byte {
	if len(m.shadowViews) == 0 {
		return nil
	}
	size := m.shadowViews[0].Size()
	buf := make([]byte, size*len(m.shadowViews))
	for i := range m.shadowViews {
		copy(buf[i*size:], m.shadowViews[i].Marshal())
	}
	return buf
}
