package cascade

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

const (
	// DefaultCascades is the cascade count of DefaultConfig.
	DefaultCascades = 4

	// DefaultResolution is the shadow map size, in texels per side, of every cascade.
	DefaultResolution uint32 = 2048

	// DefaultFirstCascadeFar is the far bound of the first cascade in DefaultConfig.
	DefaultFirstCascadeFar float32 = 5

	// DefaultMinimumDistance is the near bound of the first cascade in DefaultConfig.
	DefaultMinimumDistance float32 = 0.1

	// DefaultMaximumDistance is the far bound of the last cascade in DefaultConfig.
	DefaultMaximumDistance float32 = 1000

	// DefaultOverlap is the proportion of each cascade that overlaps the previous one.
	DefaultOverlap float32 = 0.2
)

// ErrInvalidConfig is returned for cascade configurations that cannot be built.
var ErrInvalidConfig = errors.New("cascade: invalid config")

// Config describes how a camera's view range is split for one directional light.
type Config struct {
	// Fractions are the far bound of each cascade as a fraction of
	// MaximumDistance. They must be strictly increasing, within (0, 1], and
	// end with 1.
	Fractions []float32
	// MaximumDistance is the far bound of the last cascade. Zero uses the
	// camera's far plane.
	MaximumDistance float32
	// MinimumDistance raises the near bound of the first cascade above the
	// camera's near plane.
	MinimumDistance float32
	// Overlap in [0, 1) widens each cascade toward the previous one by this
	// proportion of the previous far bound, hiding seams between cascades.
	Overlap float32
	// Resolution is the shadow map size in texels per side.
	Resolution uint32
}

// ConfigBuilderOption is a functional option for configuring a Config.
type ConfigBuilderOption func(*Config)

// DefaultConfig returns four exponentially distributed cascades out to
// DefaultMaximumDistance.
//
// Returns:
//   - Config: the default configuration
func DefaultConfig() Config {
	c, _ := NewConfigFromBounds(DefaultCascades, DefaultFirstCascadeFar, DefaultMinimumDistance, DefaultMaximumDistance, DefaultOverlap)
	return c
}

// NewConfig creates a Config with a single cascade spanning the camera's view
// range unless options say otherwise.
//
// Parameters:
//   - options: variadic list of ConfigBuilderOption functions
//
// Returns:
//   - Config: the configuration
func NewConfig(options ...ConfigBuilderOption) Config {
	c := Config{
		Fractions:  []float32{1},
		Resolution: DefaultResolution,
	}
	for _, option := range options {
		option(&c)
	}
	return c
}

// NewConfigFromBounds distributes cascades exponentially: cascade i ends at
// firstFar * base^i where base is chosen so the last cascade ends at maxDist.
//
// Parameters:
//   - num: number of cascades (>= 1)
//   - firstFar: far bound of the first cascade (ignored when num is 1)
//   - minDist: near bound of the first cascade
//   - maxDist: far bound of the last cascade
//   - overlap: overlap proportion in [0, 1)
//
// Returns:
//   - Config: the configuration
//   - error: wraps ErrInvalidConfig if the bounds cannot be ordered
func NewConfigFromBounds(num int, firstFar, minDist, maxDist, overlap float32) (Config, error) {
	if num < 1 {
		return Config{}, fmt.Errorf("%w: cascade count %d", ErrInvalidConfig, num)
	}
	if maxDist <= minDist {
		return Config{}, fmt.Errorf("%w: maximum distance %v must exceed minimum distance %v", ErrInvalidConfig, maxDist, minDist)
	}
	fractions := make([]float32, num)
	if num > 1 {
		if firstFar <= minDist || firstFar >= maxDist {
			return Config{}, fmt.Errorf("%w: first cascade far bound %v must lie between %v and %v",
				ErrInvalidConfig, firstFar, minDist, maxDist)
		}
		base := math32.Pow(maxDist/firstFar, 1/float32(num-1))
		for i := range fractions {
			fractions[i] = firstFar * math32.Pow(base, float32(i)) / maxDist
		}
	}
	fractions[num-1] = 1

	c := NewConfig(
		WithFractions(fractions...),
		WithMaximumDistance(maxDist),
		WithMinimumDistance(minDist),
		WithOverlap(overlap),
	)
	return c, c.Validate()
}

// WithFractions sets the split fractions.
//
// Parameters:
//   - fractions: far bound of each cascade as a fraction of the maximum distance
//
// Returns:
//   - ConfigBuilderOption: the option function
func WithFractions(fractions ...float32) ConfigBuilderOption {
	return func(c *Config) {
		c.Fractions = append([]float32(nil), fractions...)
	}
}

// WithMaximumDistance sets the far bound of the last cascade.
//
// Parameters:
//   - d: view depth, or 0 for the camera far plane
//
// Returns:
//   - ConfigBuilderOption: the option function
func WithMaximumDistance(d float32) ConfigBuilderOption {
	return func(c *Config) {
		c.MaximumDistance = d
	}
}

// WithMinimumDistance sets the near bound of the first cascade.
//
// Parameters:
//   - d: view depth
//
// Returns:
//   - ConfigBuilderOption: the option function
func WithMinimumDistance(d float32) ConfigBuilderOption {
	return func(c *Config) {
		c.MinimumDistance = d
	}
}

// WithOverlap sets the overlap proportion between consecutive cascades.
//
// Parameters:
//   - p: proportion in [0, 1)
//
// Returns:
//   - ConfigBuilderOption: the option function
func WithOverlap(p float32) ConfigBuilderOption {
	return func(c *Config) {
		c.Overlap = p
	}
}

// WithResolution sets the shadow map size.
//
// Parameters:
//   - texels: texels per side
//
// Returns:
//   - ConfigBuilderOption: the option function
func WithResolution(texels uint32) ConfigBuilderOption {
	return func(c *Config) {
		c.Resolution = texels
	}
}

// Validate checks the split fractions and scalar ranges.
//
// Returns:
//   - error: wraps ErrInvalidConfig, or nil
func (c Config) Validate() error {
	if len(c.Fractions) == 0 {
		return fmt.Errorf("%w: no cascades", ErrInvalidConfig)
	}
	prev := float32(0)
	for i, f := range c.Fractions {
		if !(f > prev) || f > 1 {
			return fmt.Errorf("%w: fraction %d (%v) must be in (%v, 1]", ErrInvalidConfig, i, f, prev)
		}
		prev = f
	}
	if prev != 1 {
		return fmt.Errorf("%w: last fraction is %v, want 1", ErrInvalidConfig, prev)
	}
	if c.Overlap < 0 || c.Overlap >= 1 {
		return fmt.Errorf("%w: overlap %v outside [0, 1)", ErrInvalidConfig, c.Overlap)
	}
	if c.MaximumDistance < 0 || c.MinimumDistance < 0 {
		return fmt.Errorf("%w: negative distance", ErrInvalidConfig)
	}
	if c.MaximumDistance > 0 && c.MinimumDistance >= c.MaximumDistance {
		return fmt.Errorf("%w: minimum distance %v must be below maximum distance %v",
			ErrInvalidConfig, c.MinimumDistance, c.MaximumDistance)
	}
	if c.Resolution == 0 {
		return fmt.Errorf("%w: zero resolution", ErrInvalidConfig)
	}
	return nil
}
