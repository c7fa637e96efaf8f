package light_meta

import (
	"cmp"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-clusters/engine/cluster"
	"github.com/Carmen-Shannon/oxy-clusters/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-clusters/engine/light"
)

// Stage names light_meta diagnostics are recorded under.
const (
	StageExtract = "extract_lights"
	StageMarshal = "marshal"
)

// Prioritize orders lights for truncation: directional lights first, then
// shadow casters, then the rest. Within the last two groups lights with a
// larger range×intensity come first. Ties keep extraction order.
//
// Parameters:
//   - lights: the extracted lights
//
// Returns:
//   - []int: indices into lights, highest priority first
func Prioritize(lights []light.Light) []int {
	group := func(l light.Light) int {
		switch {
		case l.Type() == light.LightTypeDirectional:
			return 0
		case l.CastsShadows():
			return 1
		default:
			return 2
		}
	}
	order := make([]int, len(lights))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		la, lb := lights[a], lights[b]
		ga, gb := group(la), group(lb)
		if ga != gb {
			return cmp.Compare(ga, gb)
		}
		if ga == 0 {
			return 0
		}
		return cmp.Compare(lb.Range()*lb.Intensity(), la.Range()*la.Intensity())
	})
	return order
}

// Select keeps at most maxLights lights. When some are dropped the
// highest-priority ones survive and one capacity diagnostic is recorded.
//
// Parameters:
//   - lights: the extracted lights
//   - maxLights: the GPU light capacity
//   - rec: diagnostics recorder, may be nil
//
// Returns:
//   - []int: indices of the surviving lights in extraction order; a
//     surviving light's position in this slice is its frame light index
func Select(lights []light.Light, maxLights int, rec diagnostics.Recorder) []int {
	maxLights = max(maxLights, 0)
	if len(lights) <= maxLights {
		out := make([]int, len(lights))
		for i := range out {
			out[i] = i
		}
		return out
	}
	keep := slices.Clone(Prioritize(lights)[:maxLights])
	slices.Sort(keep)
	if rec != nil {
		rec.Record(diagnostics.KindCapacityExceeded, StageExtract,
			"%d lights exceed the GPU capacity of %d; %d dropped", len(lights), maxLights, len(lights)-maxLights)
	}
	return keep
}

// ClusterBuffers is the flattened light assignment of one camera.
type ClusterBuffers struct {
	Uniforms GPUClusterUniforms
	Offsets  []GPUClusterOffset
	Indices  []uint32
	// Truncated is set when the index or cluster capacity was reached.
	Truncated bool
}

// Flatten converts a grid's per-cell light lists into an (offset, count) table
// and one contiguous index buffer. Offsets are the prefix sum of the counts.
// When the index buffer would exceed lim.MaxLightIndices, the cell that
// crosses the cap is cut short, later cells get count 0, and one diagnostic is
// recorded.
//
// Parameters:
//   - g: the camera's grid after assignment
//   - lim: buffer capacities
//   - rec: diagnostics recorder, may be nil
//
// Returns:
//   - ClusterBuffers: the flattened buffers
func Flatten(g *cluster.Grid, lim Limits, rec diagnostics.Recorder) ClusterBuffers {
	var out ClusterBuffers
	cells := g.CellCount()
	if cells > lim.MaxClusters {
		out.Truncated = true
		if rec != nil {
			rec.Record(diagnostics.KindCapacityExceeded, StageMarshal,
				"%d clusters exceed the table capacity of %d", cells, lim.MaxClusters)
		}
		cells = max(lim.MaxClusters, 0)
	}

	out.Offsets = make([]GPUClusterOffset, cells)
	out.Indices = make([]uint32, 0, min(g.TotalEntries(), max(lim.MaxLightIndices, 0)))
	indexBreach := false
	for i := 0; i < cells; i++ {
		lights := g.Cell(i)
		room := lim.MaxLightIndices - len(out.Indices)
		if len(lights) > room {
			lights = lights[:max(room, 0)]
			if !indexBreach {
				indexBreach = true
				out.Truncated = true
				if rec != nil {
					rec.Record(diagnostics.KindCapacityExceeded, StageMarshal,
						"%d light indices exceed the capacity of %d", g.TotalEntries(), lim.MaxLightIndices)
				}
			}
		}
		out.Offsets[i] = GPUClusterOffset{Offset: uint32(len(out.Indices)), Count: uint32(len(lights))}
		out.Indices = append(out.Indices, lights...)
	}

	scale, bias := g.ZFactors()
	out.Uniforms = GPUClusterUniforms{
		ClusterDims: g.Dims(),
		IndexCount:  uint32(len(out.Indices)),
		ZSliceScale: scale,
		ZSliceBias:  bias,
	}
	return out
}

// CameraClusters pairs a camera with its assigned grid.
type CameraClusters struct {
	CameraID uint64
	Grid     *cluster.Grid
}

// Frame is the CPU-side input to one marshal pass.
type Frame struct {
	Lights      []light.GPULight
	Ambient     [3]float32
	ShadowViews []light.GPUShadowData
	Cameras     []CameraClusters
}

// LightMeta owns the marshaled light data of a frame and the GPU buffers it is
// uploaded to.
type LightMeta interface {
	// Limits returns the buffer capacities.
	//
	// Returns:
	//   - Limits: the limits
	Limits() Limits

	// Prepare flattens and packs a frame. It replaces the previous frame's data.
	//
	// Parameters:
	//   - f: the frame input
	Prepare(f Frame)

	// Lights returns the prepared GPU lights in frame index order.
	//
	// Returns:
	//   - []light.GPULight: the lights
	Lights() []light.GPULight

	// ShadowViews returns the prepared shadow view table.
	//
	// Returns:
	//   - []light.GPUShadowData: the shadow views
	ShadowViews() []light.GPUShadowData

	// Clusters returns a camera's flattened buffers.
	//
	// Parameters:
	//   - cameraID: the camera
	//
	// Returns:
	//   - ClusterBuffers: the buffers
	//   - bool: false if the camera was not in the last prepared frame
	Clusters(cameraID uint64) (ClusterBuffers, bool)

	// Upload writes the prepared data to GPU buffers, growing them as needed.
	//
	// Parameters:
	//   - device: allocates buffers
	//   - queue: writes buffer contents
	//
	// Returns:
	//   - error: the first allocation or write failure
	Upload(device Device, queue QueueWriter) error

	// Release frees every GPU buffer.
	//
	// Parameters:
	//   - device: the device the buffers were allocated from
	Release(device Device)
}

type lightMetaImpl struct {
	mu       sync.Mutex
	limits   Limits
	recorder diagnostics.Recorder

	ambient     [3]float32
	lights      []light.GPULight
	shadowViews []light.GPUShadowData
	clusters    map[uint64]ClusterBuffers
	cameraOrder []uint64

	buffers map[string]*gpuBuffer
}

var _ LightMeta = &lightMetaImpl{}

// LightMetaBuilderOption is a functional option for configuring a LightMeta.
type LightMetaBuilderOption func(*lightMetaImpl)

// WithLimits sets the buffer capacities.
//
// Parameters:
//   - l: the limits
//
// Returns:
//   - LightMetaBuilderOption: the option function
func WithLimits(l Limits) LightMetaBuilderOption {
	return func(m *lightMetaImpl) {
		m.limits = l
	}
}

// WithRecorder sets the diagnostics recorder.
//
// Parameters:
//   - rec: the recorder
//
// Returns:
//   - LightMetaBuilderOption: the option function
func WithRecorder(rec diagnostics.Recorder) LightMetaBuilderOption {
	return func(m *lightMetaImpl) {
		m.recorder = rec
	}
}

// NewLightMeta creates a LightMeta with default limits.
//
// Parameters:
//   - options: variadic list of LightMetaBuilderOption functions
//
// Returns:
//   - LightMeta: the new LightMeta
func NewLightMeta(options ...LightMetaBuilderOption) LightMeta {
	m := &lightMetaImpl{
		limits:   NewLimits(),
		clusters: make(map[uint64]ClusterBuffers),
		buffers:  make(map[string]*gpuBuffer),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

func (m *lightMetaImpl) Limits() Limits {
	return m.limits
}

func (m *lightMetaImpl) Prepare(f Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ambient = f.Ambient
	lights := f.Lights
	if len(lights) > m.limits.MaxLights {
		m.record(StageMarshal, "%d lights exceed the GPU capacity of %d", len(lights), m.limits.MaxLights)
		lights = lights[:max(m.limits.MaxLights, 0)]
	}
	views := f.ShadowViews
	if len(views) > m.limits.MaxShadowViews {
		m.record(StageMarshal, "%d shadow views exceed the capacity of %d", len(views), m.limits.MaxShadowViews)
		views = views[:max(m.limits.MaxShadowViews, 0)]
	}
	m.lights = append(m.lights[:0], lights...)
	for i := range m.lights {
		if m.lights[i].ShadowIndex != light.NoShadow && int(m.lights[i].ShadowIndex) >= len(views) {
			m.lights[i].ShadowIndex = light.NoShadow
		}
	}
	m.shadowViews = append(m.shadowViews[:0], views...)

	clear(m.clusters)
	m.cameraOrder = m.cameraOrder[:0]
	for _, c := range f.Cameras {
		if c.Grid == nil || !c.Grid.Enabled() {
			continue
		}
		b := Flatten(c.Grid, m.limits, m.recorder)
		b.Uniforms.LightCount = uint32(len(m.lights))
		b.Uniforms.ShadowViewCount = uint32(len(m.shadowViews))
		m.clusters[c.CameraID] = b
		m.cameraOrder = append(m.cameraOrder, c.CameraID)
	}
}

func (m *lightMetaImpl) Lights() []light.GPULight {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.lights)
}

func (m *lightMetaImpl) ShadowViews() []light.GPUShadowData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.shadowViews)
}

func (m *lightMetaImpl) Clusters(cameraID uint64) (ClusterBuffers, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.clusters[cameraID]
	return b, ok
}

func (m *lightMetaImpl) record(stage, format string, args ...any) {
	if m.recorder != nil {
		m.recorder.Record(diagnostics.KindCapacityExceeded, stage, format, args...)
	}
}
