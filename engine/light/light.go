package light

import (
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-clusters/common"
	"github.com/Carmen-Shannon/oxy-clusters/engine/cascade"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// Used for large distant sources like the sun or moon. It reaches every
	// cluster and casts shadows through cascades.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position.
	// Its influence is a sphere of radius Range, and its shadows use six cube faces.
	LightTypePoint

	// LightTypeSpot represents a light that emits in a cone from a position along a direction.
	// Its influence is bounded by the sphere of radius Range, and its shadows
	// use one perspective view spanning the outer cone.
	LightTypeSpot
)

// String returns a readable name for the light type.
func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	default:
		return "unknown"
	}
}

var lightCount atomic.Uint64

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	id            uint64
	lightType     LightType
	position      [3]float32
	direction     [3]float32
	color         [3]float32
	intensity     float32
	lightRange    float32
	innerCone     float32 // stored as cos(angle in radians)
	outerCone     float32 // stored as cos(angle in radians)
	enabled       bool
	castsShadows  bool
	shadowBias    float32
	normalBias    float32
	cascadeConfig cascade.Config
}

// Light defines the interface for a light source in the scene.
//
// All light types (directional, point, spot) share this interface;
// type-specific properties (e.g. cone angles for spot lights) return zero
// values when not applicable.
//
// Lights are extracted by the scene every frame, assigned to the clusters of
// each camera, and marshaled into a GPU storage buffer via the gpu_types helpers.
type Light interface {
	// ID returns the light's unique identifier. IDs are assigned at construction
	// and never reused.
	//
	// Returns:
	//   - uint64: the light ID
	ID() uint64

	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type (directional, point, or spot)
	Type() LightType

	// Position returns the world-space position of the light.
	// Meaningless for directional lights.
	//
	// Returns:
	//   - [3]float32: position as (x, y, z)
	Position() [3]float32

	// Direction returns the normalized direction of the light.
	// For directional lights this is the light direction. For spot lights this
	// is the cone axis. Meaningless for point lights.
	//
	// Returns:
	//   - [3]float32: normalized direction as (x, y, z)
	Direction() [3]float32

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - [3]float32: color as (r, g, b)
	Color() [3]float32

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Range returns the maximum attenuation distance for point and spot lights.
	// Beyond this distance the light contributes zero energy, so it is also the
	// radius used for cluster assignment. Meaningless for directional lights.
	//
	// Returns:
	//   - float32: the range value
	Range() float32

	// InnerCone returns the cosine of the inner cone half-angle for spot lights.
	//
	// Returns:
	//   - float32: cos(inner half-angle)
	InnerCone() float32

	// OuterCone returns the cosine of the outer cone half-angle for spot lights.
	// The spot shadow view spans twice this angle.
	//
	// Returns:
	//   - float32: cos(outer half-angle)
	OuterCone() float32

	// Enabled returns whether this light is active. Disabled lights are skipped
	// during extraction.
	//
	// Returns:
	//   - bool: true if the light is enabled
	Enabled() bool

	// CastsShadows returns whether this light gets shadow views and shadow
	// visibility passes.
	//
	// Returns:
	//   - bool: true if the light casts shadows
	CastsShadows() bool

	// ShadowBias returns the constant depth bias for shadow comparisons.
	//
	// Returns:
	//   - float32: the depth bias
	ShadowBias() float32

	// NormalBiasScale returns the multiplier applied to a shadow view's texel
	// size to get the normal-offset bias.
	//
	// Returns:
	//   - float32: the normal bias scale
	NormalBiasScale() float32

	// CascadeConfig returns the cascade split configuration used for
	// directional shadows.
	//
	// Returns:
	//   - cascade.Config: the cascade configuration
	CascadeConfig() cascade.Config

	// SphereOfInfluence returns the sphere used for cluster assignment and
	// culling of point and spot lights.
	//
	// Returns:
	//   - center: world-space position
	//   - radius: the light range
	SphereOfInfluence() (center [3]float32, radius float32)

	// SetPosition sets the world-space position of the light.
	//
	// Parameters:
	//   - x, y, z: position components
	SetPosition(x, y, z float32)

	// SetDirection sets the direction of the light and normalizes it.
	//
	// Parameters:
	//   - x, y, z: direction components (will be normalized)
	SetDirection(x, y, z float32)

	// SetColor sets the RGB color of the light.
	//
	// Parameters:
	//   - r, g, b: color components
	SetColor(r, g, b float32)

	// SetIntensity sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the intensity value
	SetIntensity(intensity float32)

	// SetRange sets the maximum attenuation distance.
	//
	// Parameters:
	//   - lightRange: the range value
	SetRange(lightRange float32)

	// SetSpotCone sets the inner and outer cone half-angles for spot lights.
	// Angles are specified in degrees and stored internally as cosines.
	//
	// Parameters:
	//   - innerDeg: inner cone half-angle in degrees
	//   - outerDeg: outer cone half-angle in degrees
	SetSpotCone(innerDeg, outerDeg float32)

	// SetEnabled enables or disables the light.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetCastsShadows sets whether the light is eligible for shadow mapping.
	//
	// Parameters:
	//   - castsShadows: true to enable shadow casting
	SetCastsShadows(castsShadows bool)

	// SetCascadeConfig replaces the cascade configuration.
	//
	// Parameters:
	//   - cfg: the cascade configuration
	SetCascadeConfig(cfg cascade.Config)
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied.
//
// Parameters:
//   - lightType: the kind of light to create (directional, point, or spot)
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		id:            lightCount.Add(1),
		lightType:     lightType,
		position:      [3]float32{0, 0, 0},
		direction:     [3]float32{0, -1, 0},
		color:         [3]float32{1, 1, 1},
		intensity:     1.0,
		lightRange:    10.0,
		innerCone:     0.9063, // cos(25°)
		outerCone:     0.8192, // cos(35°)
		enabled:       true,
		castsShadows:  false,
		shadowBias:    DefaultShadowBias,
		normalBias:    DefaultShadowNormalBiasScale,
		cascadeConfig: cascade.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) ID() uint64 {
	return l.id
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() [3]float32 {
	return l.position
}

func (l *lightImpl) Direction() [3]float32 {
	return l.direction
}

func (l *lightImpl) Color() [3]float32 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Range() float32 {
	return l.lightRange
}

func (l *lightImpl) InnerCone() float32 {
	return l.innerCone
}

func (l *lightImpl) OuterCone() float32 {
	return l.outerCone
}

func (l *lightImpl) Enabled() bool {
	return l.enabled
}

func (l *lightImpl) CastsShadows() bool {
	return l.castsShadows
}

func (l *lightImpl) ShadowBias() float32 {
	return l.shadowBias
}

func (l *lightImpl) NormalBiasScale() float32 {
	return l.normalBias
}

func (l *lightImpl) CascadeConfig() cascade.Config {
	return l.cascadeConfig
}

func (l *lightImpl) SphereOfInfluence() ([3]float32, float32) {
	return l.position, l.lightRange
}

func (l *lightImpl) SetPosition(x, y, z float32) {
	l.position = [3]float32{x, y, z}
}

func (l *lightImpl) SetDirection(x, y, z float32) {
	l.direction = common.Normalize3([3]float32{x, y, z})
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.color = [3]float32{r, g, b}
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
}

func (l *lightImpl) SetRange(lightRange float32) {
	l.lightRange = lightRange
}

func (l *lightImpl) SetSpotCone(innerDeg, outerDeg float32) {
	l.innerCone = cosDeg(innerDeg)
	l.outerCone = cosDeg(outerDeg)
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}

func (l *lightImpl) SetCastsShadows(castsShadows bool) {
	l.castsShadows = castsShadows
}

func (l *lightImpl) SetCascadeConfig(cfg cascade.Config) {
	l.cascadeConfig = cfg
}

// cosDeg converts an angle in degrees to the cosine of that angle in radians.
func cosDeg(deg float32) float32 {
	return math32.Cos(deg * math32.Pi / 180.0)
}
