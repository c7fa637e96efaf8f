package light_meta

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-clusters/engine/light"
)

const (
	// DefaultMaxStorageBufferBindingSize is the WebGPU default for
	// maxStorageBufferBindingSize, used when a device reports it as undefined.
	DefaultMaxStorageBufferBindingSize uint64 = 134217728

	// DefaultMaxUniformBufferBindingSize is the WebGPU default for
	// maxUniformBufferBindingSize, used when a device reports it as undefined.
	DefaultMaxUniformBufferBindingSize uint64 = 65536

	// DefaultMaxLightIndices caps the flattened cluster light index buffer.
	DefaultMaxLightIndices = 1 << 20

	// DefaultMaxShadowViews caps the shadow view table.
	DefaultMaxShadowViews = 256
)

// Limits are the per-frame capacities of the marshaled buffers.
type Limits struct {
	// MaxLights caps the GPU light array.
	MaxLights int
	// MaxClusters caps the per-camera (offset, count) table.
	MaxClusters int
	// MaxLightIndices caps each camera's flattened light index buffer.
	MaxLightIndices int
	// MaxShadowViews caps the shadow view table.
	MaxShadowViews int
}

// LimitsBuilderOption is a functional option for configuring Limits.
type LimitsBuilderOption func(*Limits)

// NewLimits derives limits from the WebGPU default binding sizes.
//
// Parameters:
//   - options: variadic list of LimitsBuilderOption functions
//
// Returns:
//   - Limits: the limits
func NewLimits(options ...LimitsBuilderOption) Limits {
	return LimitsFromDevice(wgpu.DefaultLimits(), options...)
}

// LimitsFromDevice derives buffer capacities from a device's binding size
// limits. Undefined limits fall back to the WebGPU defaults.
//
// Parameters:
//   - dl: the device or adapter limits
//   - options: variadic list of LimitsBuilderOption functions applied last
//
// Returns:
//   - Limits: the limits
func LimitsFromDevice(dl wgpu.Limits, options ...LimitsBuilderOption) Limits {
	storage := dl.MaxStorageBufferBindingSize
	if storage == wgpu.LimitU64Undefined || storage == 0 {
		storage = DefaultMaxStorageBufferBindingSize
	}
	uniform := dl.MaxUniformBufferBindingSize
	if uniform == wgpu.LimitU64Undefined || uniform == 0 {
		uniform = DefaultMaxUniformBufferBindingSize
	}

	lightSize := uint64((&light.GPULight{}).Size())
	offsetSize := uint64((&GPUClusterOffset{}).Size())
	shadowSize := uint64((&light.GPUShadowData{}).Size())
	headerSize := uint64((&light.GPULightHeader{}).Size())

	l := Limits{
		MaxLights:       int(min(uint64(light.MaxGPULights), (storage-headerSize)/lightSize)),
		MaxClusters:     int(min(storage/offsetSize, 1<<24)),
		MaxLightIndices: int(min(uint64(DefaultMaxLightIndices), storage/4)),
		MaxShadowViews:  int(min(uint64(DefaultMaxShadowViews), uniform/shadowSize)),
	}
	for _, option := range options {
		option(&l)
	}
	return l
}

// WithMaxLights caps the GPU light array.
//
// Parameters:
//   - n: maximum lights
//
// Returns:
//   - LimitsBuilderOption: the option function
func WithMaxLights(n int) LimitsBuilderOption {
	return func(l *Limits) {
		l.MaxLights = n
	}
}

// WithMaxClusters caps the per-camera cluster table.
//
// Parameters:
//   - n: maximum clusters
//
// Returns:
//   - LimitsBuilderOption: the option function
func WithMaxClusters(n int) LimitsBuilderOption {
	return func(l *Limits) {
		l.MaxClusters = n
	}
}

// WithMaxLightIndices caps each camera's light index buffer.
//
// Parameters:
//   - n: maximum indices
//
// Returns:
//   - LimitsBuilderOption: the option function
func WithMaxLightIndices(n int) LimitsBuilderOption {
	return func(l *Limits) {
		l.MaxLightIndices = n
	}
}

// WithMaxShadowViews caps the shadow view table.
//
// Parameters:
//   - n: maximum shadow views
//
// Returns:
//   - LimitsBuilderOption: the option function
func WithMaxShadowViews(n int) LimitsBuilderOption {
	return func(l *Limits) {
		l.MaxShadowViews = n
	}
}
