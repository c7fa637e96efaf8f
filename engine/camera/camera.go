package camera

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-clusters/common"
	"github.com/Carmen-Shannon/oxy-clusters/engine/cluster"
)

var cameraCount atomic.Uint64

// ProjectionKind selects how a camera projects the view volume.
type ProjectionKind int

const (
	// ProjectionPerspective is a symmetric perspective frustum defined by fov and aspect.
	ProjectionPerspective ProjectionKind = iota

	// ProjectionOrthographic is a box defined by OrthoHeight and aspect.
	// Orthographic cameras always use a single light cluster.
	ProjectionOrthographic
)

// cameraImpl is the implementation of the Camera interface.
type cameraImpl struct {
	mu *sync.Mutex

	id     uint64
	active bool

	up [3]float32

	projection  ProjectionKind
	fov         float32
	aspect      float32
	near        float32
	far         float32
	orthoHeight float32
	viewport    [2]uint32

	clusterConfig cluster.Config

	viewMatrix              [16]float32
	projectionMatrix        [16]float32
	viewProjectionMatrix    [16]float32
	inverseViewMatrix       [16]float32
	inverseProjectionMatrix [16]float32
	frustum                 common.Frustum

	controller CameraController
}

// Camera defines the interface for a 3D view that lights are clustered against.
//
// A camera reads its position and target from a CameraController and derives
// view, projection, and frustum data from them. All derived data is recomputed
// whenever an input changes; Update re-reads the controller once per frame.
type Camera interface {
	// ID returns the camera's stable identifier, unique per process.
	//
	// Returns:
	//   - uint64: the camera id
	ID() uint64

	// Active returns whether the camera takes part in clustering and culling.
	//
	// Returns:
	//   - bool: true if active
	Active() bool

	// Up returns the up vector used for the view matrix.
	//
	// Returns:
	//   - x, y, z: up vector components
	Up() (x, y, z float32)

	// Projection returns the projection kind.
	//
	// Returns:
	//   - ProjectionKind: perspective or orthographic
	Projection() ProjectionKind

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: the field of view
	Fov() float32

	// Aspect returns the viewport aspect ratio (width/height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near plane distance.
	//
	// Returns:
	//   - float32: the near distance
	Near() float32

	// Far returns the far plane distance.
	//
	// Returns:
	//   - float32: the far distance
	Far() float32

	// OrthoHeight returns the full height of the orthographic view box.
	//
	// Returns:
	//   - float32: the box height in world units
	OrthoHeight() float32

	// Viewport returns the viewport size in pixels.
	//
	// Returns:
	//   - width, height: viewport dimensions
	Viewport() (width, height uint32)

	// ClusterConfig returns the light clustering configuration for this camera.
	//
	// Returns:
	//   - cluster.Config: the cluster configuration
	ClusterConfig() cluster.Config

	// Position returns the world-space eye position from the controller.
	//
	// Returns:
	//   - [3]float32: the eye position
	Position() [3]float32

	// ViewMatrix returns the world-to-view matrix.
	//
	// Returns:
	//   - [16]float32: column-major view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the view-to-clip matrix (WebGPU depth [0, 1]).
	//
	// Returns:
	//   - [16]float32: column-major projection matrix
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns Projection * View.
	//
	// Returns:
	//   - [16]float32: column-major view-projection matrix
	ViewProjectionMatrix() [16]float32

	// InverseViewMatrix returns the view-to-world matrix.
	//
	// Returns:
	//   - [16]float32: column-major inverse view matrix
	InverseViewMatrix() [16]float32

	// InverseProjectionMatrix returns the clip-to-view matrix.
	//
	// Returns:
	//   - [16]float32: column-major inverse projection matrix
	InverseProjectionMatrix() [16]float32

	// Frustum returns the world-space view frustum.
	//
	// Returns:
	//   - common.Frustum: the frustum planes
	Frustum() common.Frustum

	// ClusterView returns the inputs the cluster grid builder and light
	// assignment need from this camera.
	//
	// Returns:
	//   - cluster.View: projection kind, viewport, depth range, matrices and frustum
	ClusterView() cluster.View

	// Controller returns the camera's controller.
	//
	// Returns:
	//   - CameraController: the controller
	Controller() CameraController

	// Update re-reads the controller and recomputes every derived matrix.
	Update()

	// SetActive enables or disables the camera.
	//
	// Parameters:
	//   - active: true to enable
	SetActive(active bool)

	// SetUp sets the up vector.
	//
	// Parameters:
	//   - x, y, z: up vector components
	SetUp(x, y, z float32)

	// SetProjection sets the projection kind.
	//
	// Parameters:
	//   - kind: perspective or orthographic
	SetProjection(kind ProjectionKind)

	// SetFov sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fov: the field of view
	SetFov(fov float32)

	// SetNear sets the near plane distance.
	//
	// Parameters:
	//   - near: the near distance
	SetNear(near float32)

	// SetFar sets the far plane distance.
	//
	// Parameters:
	//   - far: the far distance
	SetFar(far float32)

	// SetViewport sets the viewport size in pixels and updates the aspect ratio.
	// A zero dimension keeps the previous aspect ratio.
	//
	// Parameters:
	//   - width, height: viewport dimensions
	SetViewport(width, height uint32)

	// SetClusterConfig replaces the light clustering configuration.
	//
	// Parameters:
	//   - cfg: the cluster configuration
	SetClusterConfig(cfg cluster.Config)

	// SetController replaces the controller.
	//
	// Parameters:
	//   - ctrl: the new controller
	SetController(ctrl CameraController)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera. Without a controller the camera sits at the
// origin looking down -Z.
//
// Parameters:
//   - options: variadic list of CameraBuilderOption functions
//
// Returns:
//   - Camera: the new camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:            &sync.Mutex{},
		id:            cameraCount.Add(1),
		active:        true,
		up:            [3]float32{0, 1, 0},
		fov:           45.0 * (math.Pi / 180.0), // radians
		aspect:        16.0 / 9.0,
		near:          0.1,
		far:           100.0,
		orthoHeight:   10.0,
		viewport:      [2]uint32{1280, 720},
		clusterConfig: cluster.DefaultConfig(),
	}
	for _, option := range options {
		option(c)
	}
	if c.controller == nil {
		c.controller = NewCameraController(WithPosition(0, 0, 0), WithTarget(0, 0, -1))
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) ID() uint64 {
	return c.id
}

func (c *cameraImpl) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *cameraImpl) Up() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up[0], c.up[1], c.up[2]
}

func (c *cameraImpl) Projection() ProjectionKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) OrthoHeight() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orthoHeight
}

func (c *cameraImpl) Viewport() (width, height uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport[0], c.viewport[1]
}

func (c *cameraImpl) ClusterConfig() cluster.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clusterConfig
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	ctrl := c.controller
	c.mu.Unlock()
	x, y, z := ctrl.Position()
	return [3]float32{x, y, z}
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) InverseViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseViewMatrix
}

func (c *cameraImpl) InverseProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) Frustum() common.Frustum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frustum
}

func (c *cameraImpl) ClusterView() cluster.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cluster.View{
		Orthographic:   c.projection == ProjectionOrthographic,
		ViewportWidth:  c.viewport[0],
		ViewportHeight: c.viewport[1],
		Near:           c.near,
		Far:            c.far,
		View:           c.viewMatrix,
		Projection:     c.projectionMatrix,
		Frustum:        c.frustum,
	}
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

func (c *cameraImpl) SetActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = active
}

func (c *cameraImpl) SetUp(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = [3]float32{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetProjection(kind ProjectionKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projection = kind
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetViewport(width, height uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = [2]uint32{width, height}
	if width > 0 && height > 0 {
		c.aspect = float32(width) / float32(height)
	}
	c.updateMatrices()
}

func (c *cameraImpl) SetClusterConfig(cfg cluster.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clusterConfig = cfg
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctrl == nil {
		return
	}
	c.controller = ctrl
	c.updateMatrices()
}

// updateMatrices recomputes view, projection, their inverses, and the frustum.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if c.controller == nil {
		return
	}

	px, py, pz := c.controller.Position()
	tx, ty, tz := c.controller.Target()

	common.LookAt(c.viewMatrix[:],
		px, py, pz,
		tx, ty, tz,
		c.up[0], c.up[1], c.up[2],
	)

	switch c.projection {
	case ProjectionOrthographic:
		halfH := c.orthoHeight * 0.5
		halfW := halfH * c.aspect
		common.Ortho(c.projectionMatrix[:], -halfW, halfW, -halfH, halfH, c.near, c.far)
	default:
		common.Perspective(c.projectionMatrix[:],
			c.fov, c.aspect, c.near, c.far,
		)
	}

	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
	if !common.Invert4(c.inverseViewMatrix[:], c.viewMatrix[:]) {
		common.Identity(c.inverseViewMatrix[:])
	}
	if !common.Invert4(c.inverseProjectionMatrix[:], c.projectionMatrix[:]) {
		common.Identity(c.inverseProjectionMatrix[:])
	}
	c.frustum = common.ExtractFrustumFromMatrix(c.viewProjectionMatrix[:])
}
