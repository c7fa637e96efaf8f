package light_meta

import (
	"encoding/binary"
	"errors"
	"slices"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-clusters/common"
	"github.com/Carmen-Shannon/oxy-clusters/engine/cluster"
	"github.com/Carmen-Shannon/oxy-clusters/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-clusters/engine/light"
)

type fakeDevice struct {
	created  []wgpu.BufferDescriptor
	released int
	fail     bool
}

func (d *fakeDevice) CreateBuffer(desc *wgpu.BufferDescriptor) (*wgpu.Buffer, error) {
	if d.fail {
		return nil, errors.New("out of memory")
	}
	d.created = append(d.created, *desc)
	return &wgpu.Buffer{}, nil
}

func (d *fakeDevice) ReleaseBuffer(*wgpu.Buffer) {
	d.released++
}

type fakeQueue struct {
	writes map[*wgpu.Buffer][]byte
}

func (q *fakeQueue) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	if q.writes == nil {
		q.writes = make(map[*wgpu.Buffer][]byte)
	}
	q.writes[buf] = slices.Clone(data)
	return nil
}

// directionalGrid builds a grid of the given size holding n directional lights in every cell.
func directionalGrid(x, y, z uint32, n int) *cluster.Grid {
	view := cluster.View{ViewportWidth: 100, ViewportHeight: 100, Near: 1, Far: 10, View: common.IdentityMat4()}
	g := cluster.NewGrid()
	g.Configure(cluster.NewConfig(cluster.ModeFixedGrid, cluster.WithDims(x, y, z)), view)
	lights := make([]cluster.VisibleLight, n)
	for i := range lights {
		lights[i] = cluster.VisibleLight{Index: uint32(i), Directional: true}
	}
	cluster.Assign(g, view, lights, nil)
	return g
}

func TestPrioritize(t *testing.T) {
	lights := []light.Light{
		light.NewLight(light.LightTypePoint, light.WithRange(1), light.WithIntensity(1)),
		light.NewLight(light.LightTypeDirectional),
		light.NewLight(light.LightTypePoint, light.WithRange(10), light.WithIntensity(5)),
		light.NewLight(light.LightTypeSpot, light.WithRange(2), light.WithCastsShadows(true)),
		light.NewLight(light.LightTypePoint, light.WithRange(5), light.WithIntensity(2)),
		light.NewLight(light.LightTypePoint, light.WithRange(10), light.WithIntensity(5)),
	}
	if got, want := Prioritize(lights), []int{1, 3, 2, 5, 4, 0}; !slices.Equal(got, want) {
		t.Errorf("Prioritize() = %v, want %v", got, want)
	}

	rec := diagnostics.NewRecorder(diagnostics.WithQuiet(true))
	kept := Select(lights, 3, rec)
	if want := []int{1, 2, 3}; !slices.Equal(kept, want) {
		t.Errorf("Select() = %v, want %v", kept, want)
	}
	if got := rec.Count(diagnostics.KindCapacityExceeded); got != 1 {
		t.Errorf("capacity diagnostics = %d, want 1", got)
	}

	if all := Select(lights, 10, rec); len(all) != 6 || rec.Count(diagnostics.KindCapacityExceeded) != 1 {
		t.Error("selecting under capacity should keep every light without a diagnostic")
	}
}

func TestSelectExactCapacity(t *testing.T) {
	var lights []light.Light
	for i := 0; i < 40; i++ {
		lights = append(lights, light.NewLight(light.LightTypePoint, light.WithRange(float32(i%7)+1)))
	}
	rec := diagnostics.NewRecorder(diagnostics.WithQuiet(true))
	kept := Select(lights, 16, rec)
	if len(kept) != 16 || !slices.IsSorted(kept) {
		t.Errorf("Select() = %v, want 16 indices in extraction order", kept)
	}
	if rec.Count(diagnostics.KindCapacityExceeded) != 1 {
		t.Error("want exactly one capacity diagnostic")
	}
}

func TestFlatten(t *testing.T) {
	g := directionalGrid(2, 2, 1, 3)
	b := Flatten(g, NewLimits(), nil)

	if len(b.Offsets) != 4 || len(b.Indices) != 12 || b.Truncated {
		t.Fatalf("unexpected buffers: %d offsets, %d indices, truncated=%v", len(b.Offsets), len(b.Indices), b.Truncated)
	}
	for i, o := range b.Offsets {
		if o.Offset != uint32(i*3) || o.Count != 3 {
			t.Errorf("cluster %d = %+v", i, o)
		}
	}
	if b.Uniforms.ClusterDims != [3]uint32{2, 2, 1} || b.Uniforms.IndexCount != 12 {
		t.Errorf("uniforms = %+v", b.Uniforms)
	}
}

func TestFlattenIndexCap(t *testing.T) {
	rec := diagnostics.NewRecorder(diagnostics.WithQuiet(true))
	g := directionalGrid(2, 2, 1, 3)
	b := Flatten(g, NewLimits(WithMaxLightIndices(7)), rec)

	want := []GPUClusterOffset{{0, 3}, {3, 3}, {6, 1}, {7, 0}}
	if !slices.Equal(b.Offsets, want) {
		t.Errorf("offsets = %v, want %v", b.Offsets, want)
	}
	if len(b.Indices) != 7 || !b.Truncated {
		t.Errorf("indices = %v, truncated = %v", b.Indices, b.Truncated)
	}
	if got := rec.Count(diagnostics.KindCapacityExceeded); got != 1 {
		t.Errorf("capacity diagnostics = %d, want 1", got)
	}
}

func TestLimitsFromDevice(t *testing.T) {
	l := LimitsFromDevice(wgpu.Limits{})
	if l.MaxLights != light.MaxGPULights || l.MaxShadowViews != DefaultMaxShadowViews || l.MaxLightIndices != DefaultMaxLightIndices {
		t.Errorf("zero limits should fall back to defaults, got %+v", l)
	}
	undefined := LimitsFromDevice(wgpu.Limits{
		MaxStorageBufferBindingSize: wgpu.LimitU64Undefined,
		MaxUniformBufferBindingSize: wgpu.LimitU64Undefined,
	})
	if undefined != l {
		t.Errorf("undefined limits = %+v, want %+v", undefined, l)
	}

	small := LimitsFromDevice(wgpu.Limits{MaxStorageBufferBindingSize: 16 + 64*10, MaxUniformBufferBindingSize: 800})
	if small.MaxLights != 10 || small.MaxShadowViews != 10 || small.MaxLightIndices != 164 {
		t.Errorf("small limits = %+v", small)
	}
	if o := NewLimits(WithMaxLights(3)); o.MaxLights != 3 {
		t.Errorf("WithMaxLights not applied: %+v", o)
	}
}

func TestBufferDescriptorGrowsInPowersOfTwo(t *testing.T) {
	cases := map[uint64]uint64{0: 256, 200: 256, 256: 256, 300: 512, 512: 512, 513: 1024, 100000: 131072}
	for size, want := range cases {
		d := BufferDescriptor("x", wgpu.BufferUsageStorage, size)
		if d.Size != want {
			t.Errorf("BufferDescriptor(%d).Size = %d, want %d", size, d.Size, want)
		}
		if d.Usage&wgpu.BufferUsageCopyDst == 0 || d.Usage&wgpu.BufferUsageStorage == 0 {
			t.Errorf("usage %v should include Storage and CopyDst", d.Usage)
		}
	}
}

func gpuLights(n int) []light.GPULight {
	out := make([]light.GPULight, n)
	for i := range out {
		out[i] = light.ToGPULight(light.NewLight(light.LightTypePoint), light.NoShadow)
	}
	return out
}

func TestPrepareAndUpload(t *testing.T) {
	rec := diagnostics.NewRecorder(diagnostics.WithQuiet(true))
	m := NewLightMeta(WithLimits(NewLimits(WithMaxShadowViews(1))), WithRecorder(rec))

	lights := gpuLights(3)
	lights[1].ShadowIndex = 0
	lights[2].ShadowIndex = 1
	m.Prepare(Frame{
		Lights:      lights,
		ShadowViews: make([]light.GPUShadowData, 2),
		Cameras:     []CameraClusters{{CameraID: 7, Grid: directionalGrid(2, 1, 1, 3)}},
	})

	got := m.Lights()
	if got[1].ShadowIndex != 0 || got[2].ShadowIndex != light.NoShadow {
		t.Errorf("shadow indices = %d, %d; the dropped view should be unlinked", got[1].ShadowIndex, got[2].ShadowIndex)
	}
	if len(m.ShadowViews()) != 1 || rec.Count(diagnostics.KindCapacityExceeded) != 1 {
		t.Error("shadow views should be truncated to capacity with one diagnostic")
	}
	c, ok := m.Clusters(7)
	if !ok || c.Uniforms.LightCount != 3 || c.Uniforms.ShadowViewCount != 1 {
		t.Fatalf("Clusters(7) = %+v, %v", c.Uniforms, ok)
	}

	dev := &fakeDevice{}
	q := &fakeQueue{}
	if err := m.Upload(dev, q); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if len(dev.created) != 5 {
		t.Fatalf("created %d buffers, want 5", len(dev.created))
	}
	buf, capacity := Buffer(m, "lights")
	if buf == nil || capacity != 256 {
		t.Fatalf("lights buffer = %v, capacity %d", buf, capacity)
	}
	data := q.writes[buf]
	if len(data) != 16+3*64 || binary.LittleEndian.Uint32(data[12:]) != 3 {
		t.Errorf("lights upload has %d bytes", len(data))
	}
	idx, _ := Buffer(m, "clusters/7/indices")
	if got := q.writes[idx]; len(got) != 6*4 {
		t.Errorf("index upload has %d bytes, want 24", len(got))
	}

	// Same sizes reuse the buffers; more lights grow only the light buffer.
	if err := m.Upload(dev, q); err != nil || len(dev.created) != 5 {
		t.Fatalf("re-upload created buffers: %d, %v", len(dev.created), err)
	}
	m.Prepare(Frame{Lights: gpuLights(5), Cameras: []CameraClusters{{CameraID: 7, Grid: directionalGrid(2, 1, 1, 3)}}})
	if err := m.Upload(dev, q); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if len(dev.created) != 6 || dev.released != 1 {
		t.Errorf("created %d, released %d; want 6, 1", len(dev.created), dev.released)
	}
	if _, capacity := Buffer(m, "lights"); capacity != 512 {
		t.Errorf("grown capacity = %d, want 512", capacity)
	}

	m.Release(dev)
	if dev.released != 6 {
		t.Errorf("released %d buffers, want 6", dev.released)
	}
	if err := m.Upload(&fakeDevice{fail: true}, q); err == nil {
		t.Error("allocation failure should be returned")
	}
}

func TestClusterUniformsLayout(t *testing.T) {
	u := GPUClusterUniforms{ClusterDims: [3]uint32{4, 5, 6}, LightCount: 9, IndexCount: 10, ShadowViewCount: 2, ZSliceScale: 1.5, ZSliceBias: -2}
	if u.Size() != 32 {
		t.Fatalf("Size() = %d, want 32", u.Size())
	}
	b := u.Marshal()
	if binary.LittleEndian.Uint32(b[8:]) != 6 || binary.LittleEndian.Uint32(b[20:]) != 2 {
		t.Error("unexpected uniform layout")
	}
	o := GPUClusterOffset{Offset: 3, Count: 4}
	if o.Size() != 8 || !slices.Equal(o.Marshal(), MarshalOffsets([]GPUClusterOffset{o})) {
		t.Error("offset marshaling mismatch")
	}
}
