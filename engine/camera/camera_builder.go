package camera

import "github.com/Carmen-Shannon/oxy-clusters/engine/cluster"

// CameraBuilderOption is a functional option for configuring a Camera.
type CameraBuilderOption func(*cameraImpl)

// WithUp sets the up vector.
//
// Parameters:
//   - x, y, z: up vector components
//
// Returns:
//   - CameraBuilderOption: the option function
func WithUp(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = [3]float32{x, y, z}
	}
}

// WithFov sets the vertical field of view in radians.
//
// Parameters:
//   - fov: the field of view
//
// Returns:
//   - CameraBuilderOption: the option function
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the aspect ratio directly. WithViewport overrides it when
// applied later.
//
// Parameters:
//   - aspect: width/height
//
// Returns:
//   - CameraBuilderOption: the option function
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithNear sets the near plane distance.
//
// Parameters:
//   - near: the near distance
//
// Returns:
//   - CameraBuilderOption: the option function
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far plane distance.
//
// Parameters:
//   - far: the far distance
//
// Returns:
//   - CameraBuilderOption: the option function
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithOrthographic switches the camera to an orthographic projection.
//
// Parameters:
//   - height: full height of the view box in world units
//
// Returns:
//   - CameraBuilderOption: the option function
func WithOrthographic(height float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.projection = ProjectionOrthographic
		c.orthoHeight = height
	}
}

// WithViewport sets the viewport size in pixels and derives the aspect ratio.
//
// Parameters:
//   - width, height: viewport dimensions
//
// Returns:
//   - CameraBuilderOption: the option function
func WithViewport(width, height uint32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.viewport = [2]uint32{width, height}
		if width > 0 && height > 0 {
			c.aspect = float32(width) / float32(height)
		}
	}
}

// WithClusterConfig sets the light clustering configuration.
//
// Parameters:
//   - cfg: the cluster configuration
//
// Returns:
//   - CameraBuilderOption: the option function
func WithClusterConfig(cfg cluster.Config) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.clusterConfig = cfg
	}
}

// WithActive sets whether the camera starts active.
//
// Parameters:
//   - active: true to enable
//
// Returns:
//   - CameraBuilderOption: the option function
func WithActive(active bool) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.active = active
	}
}

// WithController sets the controller the camera reads its position from.
//
// Parameters:
//   - ctrl: the controller
//
// Returns:
//   - CameraBuilderOption: the option function
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
