package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-clusters/common"
	"github.com/Carmen-Shannon/oxy-clusters/engine/light"
)

type gameObject struct {
	mu            sync.Mutex
	id            uint64
	enabled       atomic.Bool
	shadowCaster  bool
	attachedLight light.Light
	parent        GameObject

	position      [3]float32
	scale         [3]float32
	rotation      [3]float32
	rotationSpeed [3]float32

	bounds    common.BoundingVolume
	hasBounds bool

	world [16]float32
}

// GameObject defines the interface for a scene entity: a transform, optional
// local-space bounds used for culling, a shadow caster flag, and an optional
// attached light that follows the object.
//
// The scene propagates transforms once per frame. WorldMatrix and WorldBounds
// return the values from the last propagation.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Enabled returns whether this object takes part in the frame.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// ShadowCaster returns whether the object is drawn into shadow maps.
	//
	// Returns:
	//   - bool: true if the object casts shadows
	ShadowCaster() bool

	// Position returns the object's local position.
	//
	// Returns:
	//   - x, y, z: position components
	Position() (x, y, z float32)

	// Rotation returns the object's local Euler rotation in radians.
	//
	// Returns:
	//   - rx, ry, rz: rotation angles
	Rotation() (rx, ry, rz float32)

	// RotationSpeed returns the rotation applied per second by Advance.
	//
	// Returns:
	//   - rx, ry, rz: rotation speed values
	RotationSpeed() (rx, ry, rz float32)

	// Scale returns the object's local scale.
	//
	// Returns:
	//   - sx, sy, sz: scale components
	Scale() (sx, sy, sz float32)

	// TransformData reads all local transform data at once.
	//
	// Returns:
	//   - pos: position as [3]float32 (x, y, z)
	//   - scale: scale as [3]float32 (x, y, z)
	//   - rot: rotation as [3]float32 (rx, ry, rz)
	//   - rotSpeed: rotation speed as [3]float32 (rx, ry, rz)
	TransformData() (pos, scale, rot, rotSpeed [3]float32)

	// Bounds returns the local-space bounding volume.
	//
	// Returns:
	//   - common.BoundingVolume: the local bounds
	//   - bool: false if the object has no bounds
	Bounds() (common.BoundingVolume, bool)

	// Parent returns the object this one is attached to, or nil.
	//
	// Returns:
	//   - GameObject: the parent or nil
	Parent() GameObject

	// LocalMatrix builds the local-to-parent matrix from position, rotation and scale.
	//
	// Returns:
	//   - [16]float32: the column-major matrix
	LocalMatrix() [16]float32

	// WorldMatrix returns the local-to-world matrix from the last propagation.
	//
	// Returns:
	//   - [16]float32: the column-major matrix
	WorldMatrix() [16]float32

	// WorldBounds returns the bounds transformed by WorldMatrix.
	//
	// Returns:
	//   - common.BoundingVolume: the world-space bounds
	//   - bool: false if the object has no bounds
	WorldBounds() (common.BoundingVolume, bool)

	// Light returns the Light attached to this object, or nil if none is set.
	//
	// Returns:
	//   - light.Light: the attached light or nil
	Light() light.Light

	// SetID sets the object's unique identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// SetEnabled sets whether the object takes part in the frame.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetShadowCaster sets whether the object is drawn into shadow maps.
	//
	// Parameters:
	//   - caster: true to cast shadows
	SetShadowCaster(caster bool)

	// SetPosition sets the local position.
	//
	// Parameters:
	//   - x, y, z: new position components
	SetPosition(x, y, z float32)

	// SetRotation sets the local Euler rotation.
	//
	// Parameters:
	//   - rx, ry, rz: new rotation angles
	SetRotation(rx, ry, rz float32)

	// SetRotationSpeed sets the rotation applied per second by Advance.
	//
	// Parameters:
	//   - rx, ry, rz: new rotation speed values
	SetRotationSpeed(rx, ry, rz float32)

	// SetScale sets the local scale.
	//
	// Parameters:
	//   - sx, sy, sz: new scale factors
	SetScale(sx, sy, sz float32)

	// SetBounds sets the local-space bounding volume.
	//
	// Parameters:
	//   - b: the bounds
	SetBounds(b common.BoundingVolume)

	// SetParent attaches the object to a parent. Pass nil to detach.
	//
	// Parameters:
	//   - p: the parent or nil
	SetParent(p GameObject)

	// SetWorldMatrix stores the propagated local-to-world matrix.
	//
	// Parameters:
	//   - m: the column-major matrix
	SetWorldMatrix(m [16]float32)

	// Advance applies RotationSpeed for dt seconds.
	//
	// Parameters:
	//   - dt: elapsed seconds
	Advance(dt float32)

	// SetLight attaches a Light to this object. The scene places the light at
	// the object's world position every frame. Pass nil to detach.
	//
	// Parameters:
	//   - l: the Light to attach, or nil to detach
	SetLight(l light.Light)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new GameObject configured with the given options.
// Objects start enabled, unit scaled, and casting shadows.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		scale:        [3]float32{1, 1, 1},
		shadowCaster: true,
		world:        common.IdentityMat4(),
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.id
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) ShadowCaster() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shadowCaster
}

func (g *gameObject) Position() (x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position[0], g.position[1], g.position[2]
}

func (g *gameObject) Rotation() (rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotation[0], g.rotation[1], g.rotation[2]
}

func (g *gameObject) RotationSpeed() (rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotationSpeed[0], g.rotationSpeed[1], g.rotationSpeed[2]
}

func (g *gameObject) Scale() (sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale[0], g.scale[1], g.scale[2]
}

func (g *gameObject) TransformData() (pos, scale, rot, rotSpeed [3]float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position, g.scale, g.rotation, g.rotationSpeed
}

func (g *gameObject) Bounds() (common.BoundingVolume, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bounds, g.hasBounds
}

func (g *gameObject) Parent() GameObject {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.parent
}

func (g *gameObject) LocalMatrix() [16]float32 {
	pos, scale, rot, _ := g.TransformData()
	var m [16]float32
	common.BuildModelMatrix(m[:], pos[0], pos[1], pos[2], rot[0], rot[1], rot[2], scale[0], scale[1], scale[2])
	return m
}

func (g *gameObject) WorldMatrix() [16]float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.world
}

func (g *gameObject) WorldBounds() (common.BoundingVolume, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.hasBounds {
		return common.BoundingVolume{}, false
	}
	return g.bounds.Transform(g.world), true
}

func (g *gameObject) Light() light.Light {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attachedLight
}

func (g *gameObject) SetID(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.id = id
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) SetShadowCaster(caster bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shadowCaster = caster
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = [3]float32{x, y, z}
}

func (g *gameObject) SetRotation(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = [3]float32{rx, ry, rz}
}

func (g *gameObject) SetRotationSpeed(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotationSpeed = [3]float32{rx, ry, rz}
}

func (g *gameObject) SetScale(sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = [3]float32{sx, sy, sz}
}

func (g *gameObject) SetBounds(b common.BoundingVolume) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bounds = b
	g.hasBounds = true
}

func (g *gameObject) SetParent(p GameObject) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.parent = p
}

func (g *gameObject) SetWorldMatrix(m [16]float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.world = m
}

func (g *gameObject) Advance(dt float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.rotation {
		g.rotation[i] += g.rotationSpeed[i] * dt
	}
}

func (g *gameObject) SetLight(l light.Light) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attachedLight = l
}
