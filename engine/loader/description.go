package loader

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-clusters/common"
	"github.com/Carmen-Shannon/oxy-clusters/engine/camera"
	"github.com/Carmen-Shannon/oxy-clusters/engine/cascade"
	"github.com/Carmen-Shannon/oxy-clusters/engine/cluster"
	"github.com/Carmen-Shannon/oxy-clusters/engine/game_object"
	"github.com/Carmen-Shannon/oxy-clusters/engine/light"
)

// ErrInvalidDescription is returned when a scene description names an unknown
// enum value, references a missing entry, or carries an invalid config.
var ErrInvalidDescription = errors.New("loader: invalid scene description")

// Description is a scene authored in YAML: cameras, lights and objects plus
// their cluster and cascade configs.
type Description struct {
	Name    string     `yaml:"name"`
	Ambient [3]float32 `yaml:"ambient,omitempty"`
	// PointShadowMapSize is the shadow map size of point and spot lights.
	// Directional lights set theirs with cascades.resolution.
	PointShadowMapSize uint32       `yaml:"point_shadow_map_size,omitempty"`
	Cameras            []CameraDesc `yaml:"cameras"`
	Lights             []LightDesc  `yaml:"lights,omitempty"`
	Objects            []ObjectDesc `yaml:"objects,omitempty"`
}

// ClusterDesc describes a cluster.Config. Mode is one of automatic, fixed_grid,
// single or none.
type ClusterDesc struct {
	Mode             string    `yaml:"mode"`
	Dims             [3]uint32 `yaml:"dims,omitempty"`
	TilePixels       uint32    `yaml:"tile_pixels,omitempty"`
	ZSlices          uint32    `yaml:"z_slices,omitempty"`
	MaxTotalClusters uint32    `yaml:"max_total_clusters,omitempty"`
	FirstSliceDepth  float32   `yaml:"first_slice_depth,omitempty"`
	// FarZMode is one of camera, constant or max_light_range.
	FarZMode string  `yaml:"far_z_mode,omitempty"`
	FarZ     float32 `yaml:"far_z,omitempty"`
	// Slicing is exponential or linear.
	Slicing string `yaml:"slicing,omitempty"`
}

// CameraDesc describes a camera. Projection is perspective or orthographic.
// A camera whose target equals its position looks down -Z.
type CameraDesc struct {
	Name        string       `yaml:"name"`
	Projection  string       `yaml:"projection,omitempty"`
	FovDegrees  float32      `yaml:"fov,omitempty"`
	Near        float32      `yaml:"near,omitempty"`
	Far         float32      `yaml:"far,omitempty"`
	OrthoHeight float32      `yaml:"ortho_height,omitempty"`
	Viewport    [2]uint32    `yaml:"viewport,omitempty"`
	Position    [3]float32   `yaml:"position"`
	Target      [3]float32   `yaml:"target"`
	Active      *bool        `yaml:"active,omitempty"`
	Cluster     *ClusterDesc `yaml:"cluster,omitempty"`
}

// CascadeDesc describes a cascade.Config. Either Fractions is given, or Count
// and FirstFar derive the fractions exponentially up to MaximumDistance.
type CascadeDesc struct {
	Fractions       []float32 `yaml:"fractions,omitempty"`
	Count           int       `yaml:"count,omitempty"`
	FirstFar        float32   `yaml:"first_far,omitempty"`
	MinimumDistance float32   `yaml:"minimum_distance,omitempty"`
	MaximumDistance float32   `yaml:"maximum_distance,omitempty"`
	Overlap         float32   `yaml:"overlap,omitempty"`
	Resolution      uint32    `yaml:"resolution,omitempty"`
}

// LightDesc describes a light. Type is directional, point or spot.
type LightDesc struct {
	Name         string       `yaml:"name"`
	Type         string       `yaml:"type"`
	Position     [3]float32   `yaml:"position,omitempty"`
	Direction    *[3]float32  `yaml:"direction,omitempty"`
	Color        *[3]float32  `yaml:"color,omitempty"`
	Intensity    *float32     `yaml:"intensity,omitempty"`
	Range        float32      `yaml:"range,omitempty"`
	InnerCone    float32      `yaml:"inner_cone,omitempty"`
	OuterCone    float32      `yaml:"outer_cone,omitempty"`
	CastsShadows bool         `yaml:"casts_shadows,omitempty"`
	Enabled      *bool        `yaml:"enabled,omitempty"`
	ShadowBias   *[2]float32  `yaml:"shadow_bias,omitempty"`
	Cascades     *CascadeDesc `yaml:"cascades,omitempty"`
}

// BoundsDesc describes a local-space bounding volume. Kind is sphere, aabb or obb.
type BoundsDesc struct {
	Kind        string         `yaml:"kind"`
	Center      [3]float32     `yaml:"center,omitempty"`
	Radius      float32        `yaml:"radius,omitempty"`
	Min         [3]float32     `yaml:"min,omitempty"`
	Max         [3]float32     `yaml:"max,omitempty"`
	HalfExtents [3]float32     `yaml:"half_extents,omitempty"`
	Axes        *[3][3]float32 `yaml:"axes,omitempty"`
}

// ObjectDesc describes a GameObject. Parent and Light refer to other entries
// by name.
type ObjectDesc struct {
	Name          string      `yaml:"name"`
	Parent        string      `yaml:"parent,omitempty"`
	Light         string      `yaml:"light,omitempty"`
	Position      [3]float32  `yaml:"position,omitempty"`
	Rotation      [3]float32  `yaml:"rotation,omitempty"`
	RotationSpeed [3]float32  `yaml:"rotation_speed,omitempty"`
	Scale         *[3]float32 `yaml:"scale,omitempty"`
	Bounds        *BoundsDesc `yaml:"bounds,omitempty"`
	ShadowCaster  *bool       `yaml:"shadow_caster,omitempty"`
	Enabled       *bool       `yaml:"enabled,omitempty"`
}

// Config converts the description into a validated cluster.Config.
//
// Returns:
//   - cluster.Config: the configuration
//   - error: wraps ErrInvalidDescription or cluster.ErrInvalidConfig
func (d ClusterDesc) Config() (cluster.Config, error) {
	var mode cluster.Mode
	switch d.Mode {
	case "", "automatic":
		mode = cluster.ModeAutomatic
	case "fixed_grid":
		mode = cluster.ModeFixedGrid
	case "single":
		mode = cluster.ModeSingle
	case "none":
		mode = cluster.ModeNone
	default:
		return cluster.Config{}, fmt.Errorf("%w: cluster mode %q", ErrInvalidDescription, d.Mode)
	}

	opts := []cluster.ConfigBuilderOption{}
	if d.Dims != [3]uint32{} {
		opts = append(opts, cluster.WithDims(d.Dims[0], d.Dims[1], d.Dims[2]))
	}
	if d.TilePixels > 0 {
		opts = append(opts, cluster.WithTilePixels(d.TilePixels))
	}
	if d.ZSlices > 0 {
		opts = append(opts, cluster.WithZSlices(d.ZSlices))
	}
	if d.MaxTotalClusters > 0 {
		opts = append(opts, cluster.WithMaxTotalClusters(d.MaxTotalClusters))
	}
	if d.FirstSliceDepth > 0 {
		opts = append(opts, cluster.WithFirstSliceDepth(d.FirstSliceDepth))
	}

	switch d.FarZMode {
	case "", "camera":
	case "constant":
		opts = append(opts, cluster.WithFarZConstant(d.FarZ))
	case "max_light_range":
		opts = append(opts, cluster.WithFarZMode(cluster.FarZMaxLightRange))
	default:
		return cluster.Config{}, fmt.Errorf("%w: far_z_mode %q", ErrInvalidDescription, d.FarZMode)
	}

	switch d.Slicing {
	case "", "exponential":
	case "linear":
		opts = append(opts, cluster.WithSlicing(cluster.SlicingLinear))
	default:
		return cluster.Config{}, fmt.Errorf("%w: slicing %q", ErrInvalidDescription, d.Slicing)
	}

	cfg := cluster.NewConfig(mode, opts...)
	if err := cfg.Validate(); err != nil {
		return cluster.Config{}, fmt.Errorf("cluster config: %w", err)
	}
	return cfg, nil
}

// Options converts the description into camera builder options.
//
// Returns:
//   - []camera.CameraBuilderOption: the options
//   - error: wraps ErrInvalidDescription for an unknown projection or bad cluster config
func (d CameraDesc) Options() ([]camera.CameraBuilderOption, error) {
	target := d.Target
	if target == d.Position {
		target[2] -= 1
	}
	opts := []camera.CameraBuilderOption{
		camera.WithController(camera.NewCameraController(
			camera.WithPosition(d.Position[0], d.Position[1], d.Position[2]),
			camera.WithTarget(target[0], target[1], target[2]),
		)),
	}

	switch d.Projection {
	case "", "perspective":
		if d.FovDegrees > 0 {
			opts = append(opts, camera.WithFov(d.FovDegrees*math32.Pi/180))
		}
	case "orthographic":
		opts = append(opts, camera.WithOrthographic(common.Coalesce(d.OrthoHeight, 10)))
	default:
		return nil, fmt.Errorf("%w: camera %q projection %q", ErrInvalidDescription, d.Name, d.Projection)
	}

	if d.Near > 0 {
		opts = append(opts, camera.WithNear(d.Near))
	}
	if d.Far > 0 {
		opts = append(opts, camera.WithFar(d.Far))
	}
	if d.Viewport[0] > 0 && d.Viewport[1] > 0 {
		opts = append(opts, camera.WithViewport(d.Viewport[0], d.Viewport[1]))
	}
	if d.Active != nil {
		opts = append(opts, camera.WithActive(*d.Active))
	}
	if d.Cluster != nil {
		cfg, err := d.Cluster.Config()
		if err != nil {
			return nil, fmt.Errorf("camera %q: %w", d.Name, err)
		}
		opts = append(opts, camera.WithClusterConfig(cfg))
	}
	return opts, nil
}

// Config converts the description into a validated cascade.Config.
//
// Returns:
//   - cascade.Config: the configuration
//   - error: wraps cascade.ErrInvalidConfig
func (d CascadeDesc) Config() (cascade.Config, error) {
	var (
		cfg cascade.Config
		err error
	)
	if len(d.Fractions) == 0 && d.Count > 0 {
		cfg, err = cascade.NewConfigFromBounds(d.Count, d.FirstFar,
			common.Coalesce(d.MinimumDistance, cascade.DefaultMinimumDistance),
			common.Coalesce(d.MaximumDistance, cascade.DefaultMaximumDistance),
			d.Overlap)
		if err != nil {
			return cascade.Config{}, fmt.Errorf("cascade config: %w", err)
		}
	} else {
		opts := []cascade.ConfigBuilderOption{
			cascade.WithMinimumDistance(d.MinimumDistance),
			cascade.WithMaximumDistance(d.MaximumDistance),
			cascade.WithOverlap(d.Overlap),
		}
		if len(d.Fractions) > 0 {
			opts = append(opts, cascade.WithFractions(d.Fractions...))
		}
		cfg = cascade.NewConfig(opts...)
	}
	if d.Resolution > 0 {
		cfg.Resolution = d.Resolution
	}
	if err := cfg.Validate(); err != nil {
		return cascade.Config{}, fmt.Errorf("cascade config: %w", err)
	}
	return cfg, nil
}

// LightType parses the light type name.
//
// Returns:
//   - light.LightType: the type
//   - error: wraps ErrInvalidDescription for an unknown name
func (d LightDesc) LightType() (light.LightType, error) {
	switch d.Type {
	case "directional":
		return light.LightTypeDirectional, nil
	case "point":
		return light.LightTypePoint, nil
	case "spot":
		return light.LightTypeSpot, nil
	default:
		return 0, fmt.Errorf("%w: light %q type %q", ErrInvalidDescription, d.Name, d.Type)
	}
}

// Options converts the description into light builder options.
//
// Returns:
//   - []light.LightBuilderOption: the options
//   - error: wraps ErrInvalidDescription for a bad cascade config
func (d LightDesc) Options() ([]light.LightBuilderOption, error) {
	opts := []light.LightBuilderOption{
		light.WithPosition(d.Position[0], d.Position[1], d.Position[2]),
		light.WithCastsShadows(d.CastsShadows),
	}
	if d.Direction != nil {
		opts = append(opts, light.WithDirection(d.Direction[0], d.Direction[1], d.Direction[2]))
	}
	if d.Color != nil {
		opts = append(opts, light.WithColor(d.Color[0], d.Color[1], d.Color[2]))
	}
	if d.Intensity != nil {
		opts = append(opts, light.WithIntensity(*d.Intensity))
	}
	if d.Range > 0 {
		opts = append(opts, light.WithRange(d.Range))
	}
	if d.InnerCone > 0 || d.OuterCone > 0 {
		opts = append(opts, light.WithSpotCone(d.InnerCone, d.OuterCone))
	}
	if d.Enabled != nil {
		opts = append(opts, light.WithEnabled(*d.Enabled))
	}
	if d.ShadowBias != nil {
		opts = append(opts, light.WithShadowBias(d.ShadowBias[0], d.ShadowBias[1]))
	}
	if d.Cascades != nil {
		cfg, err := d.Cascades.Config()
		if err != nil {
			return nil, fmt.Errorf("%w: light %q: %w", ErrInvalidDescription, d.Name, err)
		}
		opts = append(opts, light.WithCascadeConfig(cfg))
	}
	return opts, nil
}

// Volume converts the description into a common.BoundingVolume.
//
// Returns:
//   - common.BoundingVolume: the volume
//   - error: wraps ErrInvalidDescription for an unknown kind
func (d BoundsDesc) Volume() (common.BoundingVolume, error) {
	switch d.Kind {
	case "sphere":
		return common.NewSphereBounds(d.Center, d.Radius), nil
	case "aabb":
		return common.NewAABBBounds(d.Min, d.Max), nil
	case "obb":
		axes := [3][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
		if d.Axes != nil {
			axes = *d.Axes
		}
		return common.NewOBBBounds(d.Center, d.HalfExtents, axes), nil
	default:
		return common.BoundingVolume{}, fmt.Errorf("%w: bounds kind %q", ErrInvalidDescription, d.Kind)
	}
}

// Options converts the description into GameObject builder options. Parent
// and Light references are resolved by the caller.
//
// Returns:
//   - []game_object.GameObjectBuilderOption: the options
//   - error: wraps ErrInvalidDescription for bad bounds
func (d ObjectDesc) Options() ([]game_object.GameObjectBuilderOption, error) {
	opts := []game_object.GameObjectBuilderOption{
		game_object.WithPosition(d.Position[0], d.Position[1], d.Position[2]),
		game_object.WithRotation(d.Rotation[0], d.Rotation[1], d.Rotation[2]),
		game_object.WithRotationSpeed(d.RotationSpeed[0], d.RotationSpeed[1], d.RotationSpeed[2]),
	}
	if d.Scale != nil {
		opts = append(opts, game_object.WithScale(d.Scale[0], d.Scale[1], d.Scale[2]))
	}
	if d.Bounds != nil {
		b, err := d.Bounds.Volume()
		if err != nil {
			return nil, fmt.Errorf("object %q: %w", d.Name, err)
		}
		opts = append(opts, game_object.WithBounds(b))
	}
	if d.ShadowCaster != nil {
		opts = append(opts, game_object.WithShadowCaster(*d.ShadowCaster))
	}
	if d.Enabled != nil {
		opts = append(opts, game_object.WithEnabled(*d.Enabled))
	}
	return opts, nil
}
