package cluster

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-clusters/common"
)

// Mode selects how a camera's view volume is subdivided.
type Mode int

const (
	// ModeAutomatic derives X and Y from the viewport size and a target cell
	// size in pixels. Z comes from the configured slice count.
	ModeAutomatic Mode = iota

	// ModeFixedGrid uses explicit X, Y and Z counts.
	ModeFixedGrid

	// ModeSingle uses one cell spanning the whole view volume.
	ModeSingle

	// ModeNone disables clustering for the camera. No grid is built and no
	// lights are assigned.
	ModeNone
)

// String returns a readable name for the mode.
func (m Mode) String() string {
	switch m {
	case ModeAutomatic:
		return "automatic"
	case ModeFixedGrid:
		return "fixed_grid"
	case ModeSingle:
		return "single"
	case ModeNone:
		return "none"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// FarZMode selects the far bound of the clustered depth range.
type FarZMode int

const (
	// FarZCamera uses the camera's far plane.
	FarZCamera FarZMode = iota

	// FarZConstant uses ZConfig.FarZ.
	FarZConstant

	// FarZMaxLightRange uses the furthest view depth reached by any point or
	// spot light this frame, capped at the camera's far plane.
	FarZMaxLightRange
)

// Slicing selects how view depth maps to Z slices.
type Slicing int

const (
	// SlicingExponential gives thinner slices near the camera:
	// slice = Z * log(z/near) / log(far/near).
	SlicingExponential Slicing = iota

	// SlicingLinear gives slices of equal depth:
	// slice = Z * (z-near) / (far-near).
	SlicingLinear
)

const (
	// DefaultTilePixels is the automatic mode cell size in pixels.
	DefaultTilePixels uint32 = 64

	// DefaultZSlices is the automatic mode depth slice count.
	DefaultZSlices uint32 = 24

	// DefaultMaxTotalClusters caps X*Y*Z for every mode.
	DefaultMaxTotalClusters uint32 = 4096
)

// ErrInvalidConfig is returned by Config.Validate for unusable configurations.
var ErrInvalidConfig = errors.New("cluster: invalid config")

// ZConfig controls the depth subdivision of a cluster grid.
type ZConfig struct {
	// FirstSliceDepth, when greater than the camera near plane, makes slice 0
	// span [near, FirstSliceDepth] and distributes the remaining slices
	// exponentially from FirstSliceDepth to far. Zero uses near.
	FirstSliceDepth float32
	FarZMode        FarZMode
	// FarZ is the far bound used with FarZConstant.
	FarZ    float32
	Slicing Slicing
}

// Config is a camera's light clustering configuration.
type Config struct {
	Mode Mode
	// X, Y, Z are the cell counts for ModeFixedGrid. Z is also the slice count
	// for ModeAutomatic.
	X, Y, Z uint32
	// TilePixels is the target cell size for ModeAutomatic.
	TilePixels uint32
	// MaxTotalClusters caps X*Y*Z. Zero means DefaultMaxTotalClusters.
	MaxTotalClusters uint32
	ZConfig          ZConfig
}

// ConfigBuilderOption is a functional option for configuring a Config.
type ConfigBuilderOption func(*Config)

// DefaultConfig returns the automatic configuration used by new cameras.
//
// Returns:
//   - Config: automatic mode with default tile size and slice count
func DefaultConfig() Config {
	return NewConfig(ModeAutomatic)
}

// NewConfig creates a Config for the given mode.
//
// Parameters:
//   - mode: the subdivision mode
//   - options: variadic list of ConfigBuilderOption functions
//
// Returns:
//   - Config: the configuration
func NewConfig(mode Mode, options ...ConfigBuilderOption) Config {
	c := Config{
		Mode:             mode,
		X:                1,
		Y:                1,
		Z:                DefaultZSlices,
		TilePixels:       DefaultTilePixels,
		MaxTotalClusters: DefaultMaxTotalClusters,
	}
	for _, option := range options {
		option(&c)
	}
	return c
}

// WithDims sets explicit cell counts.
//
// Parameters:
//   - x, y, z: cell counts
//
// Returns:
//   - ConfigBuilderOption: the option function
func WithDims(x, y, z uint32) ConfigBuilderOption {
	return func(c *Config) {
		c.X, c.Y, c.Z = x, y, z
	}
}

// WithTilePixels sets the automatic mode cell size.
//
// Parameters:
//   - px: cell size in pixels
//
// Returns:
//   - ConfigBuilderOption: the option function
func WithTilePixels(px uint32) ConfigBuilderOption {
	return func(c *Config) {
		c.TilePixels = px
	}
}

// WithZSlices sets the number of depth slices.
//
// Parameters:
//   - z: slice count
//
// Returns:
//   - ConfigBuilderOption: the option function
func WithZSlices(z uint32) ConfigBuilderOption {
	return func(c *Config) {
		c.Z = z
	}
}

// WithMaxTotalClusters caps the total cell count.
//
// Parameters:
//   - n: maximum X*Y*Z
//
// Returns:
//   - ConfigBuilderOption: the option function
func WithMaxTotalClusters(n uint32) ConfigBuilderOption {
	return func(c *Config) {
		c.MaxTotalClusters = n
	}
}

// WithSlicing sets the depth slicing function.
//
// Parameters:
//   - s: linear or exponential
//
// Returns:
//   - ConfigBuilderOption: the option function
func WithSlicing(s Slicing) ConfigBuilderOption {
	return func(c *Config) {
		c.ZConfig.Slicing = s
	}
}

// WithFirstSliceDepth sets the far bound of slice 0.
//
// Parameters:
//   - depth: view-space depth
//
// Returns:
//   - ConfigBuilderOption: the option function
func WithFirstSliceDepth(depth float32) ConfigBuilderOption {
	return func(c *Config) {
		c.ZConfig.FirstSliceDepth = depth
	}
}

// WithFarZMode sets how the far bound of the clustered range is chosen.
//
// Parameters:
//   - mode: the far Z mode
//
// Returns:
//   - ConfigBuilderOption: the option function
func WithFarZMode(mode FarZMode) ConfigBuilderOption {
	return func(c *Config) {
		c.ZConfig.FarZMode = mode
	}
}

// WithFarZConstant clusters up to a fixed view depth.
//
// Parameters:
//   - far: view-space depth of the last slice's far bound
//
// Returns:
//   - ConfigBuilderOption: the option function
func WithFarZConstant(far float32) ConfigBuilderOption {
	return func(c *Config) {
		c.ZConfig.FarZMode = FarZConstant
		c.ZConfig.FarZ = far
	}
}

// Validate reports configuration values that cannot be resolved into a grid.
// Zero counts are not errors; they are clamped to 1 when the grid is resolved.
//
// Returns:
//   - error: wraps ErrInvalidConfig, or nil
func (c Config) Validate() error {
	if c.Mode < ModeAutomatic || c.Mode > ModeNone {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidConfig, int(c.Mode))
	}
	z := c.ZConfig
	if z.FirstSliceDepth < 0 || math32.IsNaN(z.FirstSliceDepth) {
		return fmt.Errorf("%w: first slice depth %v", ErrInvalidConfig, z.FirstSliceDepth)
	}
	if z.FarZMode == FarZConstant && (z.FarZ <= 0 || z.FarZ <= z.FirstSliceDepth) {
		return fmt.Errorf("%w: constant far z %v must be positive and beyond the first slice depth %v",
			ErrInvalidConfig, z.FarZ, z.FirstSliceDepth)
	}
	if z.Slicing != SlicingExponential && z.Slicing != SlicingLinear {
		return fmt.Errorf("%w: unknown slicing %d", ErrInvalidConfig, int(z.Slicing))
	}
	return nil
}

// View is what the grid builder and light assignment read from a camera.
type View struct {
	Orthographic   bool
	ViewportWidth  uint32
	ViewportHeight uint32
	Near           float32
	Far            float32
	View           [16]float32
	Projection     [16]float32
	Frustum        common.Frustum
}

// Resolve computes the cell counts for a configuration and camera.
// Orthographic cameras and ModeSingle always resolve to one cell; ModeNone
// resolves to zero cells. Every other result has X, Y, Z >= 1 and
// X*Y*Z <= MaxTotalClusters.
//
// Parameters:
//   - cfg: the cluster configuration
//   - view: the camera inputs
//
// Returns:
//   - [3]uint32: the X, Y, Z cell counts
func Resolve(cfg Config, view View) [3]uint32 {
	switch {
	case cfg.Mode == ModeNone:
		return [3]uint32{}
	case cfg.Mode == ModeSingle, view.Orthographic:
		return [3]uint32{1, 1, 1}
	}

	var x, y, z uint64
	switch cfg.Mode {
	case ModeFixedGrid:
		x, y, z = uint64(cfg.X), uint64(cfg.Y), uint64(cfg.Z)
	default:
		tile := uint64(common.Coalesce(cfg.TilePixels, DefaultTilePixels))
		x = (uint64(view.ViewportWidth) + tile - 1) / tile
		y = (uint64(view.ViewportHeight) + tile - 1) / tile
		z = uint64(common.Coalesce(cfg.Z, DefaultZSlices))
	}

	// Each count is at most limit after clamping, so x*y fits in 64 bits and
	// x*y*z is only formed once x*y <= limit.
	limit := uint64(common.Coalesce(cfg.MaxTotalClusters, DefaultMaxTotalClusters))
	x, y, z = min(max(x, 1), limit), min(max(y, 1), limit), min(max(z, 1), limit)
	if x*y > limit || x*y*z > limit {
		xyBudget := max(limit/z, 1)
		if x*y > xyBudget {
			ratio := math32.Sqrt(float32(xyBudget) / float32(x*y))
			x = max(uint64(math32.Floor(float32(x)*ratio)), 1)
			y = max(uint64(math32.Floor(float32(y)*ratio)), 1)
			// Float rounding can leave the product just over budget.
			if x*y > xyBudget {
				x = max(xyBudget/y, 1)
			}
			if x*y > xyBudget {
				y = max(xyBudget/x, 1)
			}
		}
		if x*y*z > limit {
			z = max(limit/(x*y), 1)
		}
	}
	return [3]uint32{uint32(x), uint32(y), uint32(z)}
}
