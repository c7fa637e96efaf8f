package scene

import (
	"github.com/Carmen-Shannon/oxy-clusters/engine/camera"
	"github.com/Carmen-Shannon/oxy-clusters/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-clusters/engine/game_object"
	"github.com/Carmen-Shannon/oxy-clusters/engine/light"
	"github.com/Carmen-Shannon/oxy-clusters/engine/light_meta"
	"github.com/Carmen-Shannon/oxy-clusters/engine/schedule"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithCameras registers the initial cameras.
//
// Parameters:
//   - cams: the cameras to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCameras(cams ...camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		for _, cam := range cams {
			if cam != nil {
				s.cameras = append(s.cameras, cam)
			}
		}
	}
}

// WithObjects adds initial objects to the scene.
// Objects without IDs will be assigned new IDs.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		for _, obj := range objects {
			if obj != nil {
				s.addLocked(obj)
			}
		}
	}
}

// WithLights adds initial free-standing lights to the scene.
//
// Parameters:
//   - lights: the lights to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLights(lights ...light.Light) SceneBuilderOption {
	return func(s *scene) {
		for _, l := range lights {
			if l != nil {
				s.lights = append(s.lights, l)
			}
		}
	}
}

// WithAmbientColor sets the ambient color written into the light buffer header.
//
// Parameters:
//   - color: RGB ambient color
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAmbientColor(color [3]float32) SceneBuilderOption {
	return func(s *scene) {
		s.ambientColor = color
	}
}

// WithPointShadowMapSize sets the shadow map size used by point light cube
// faces and spot lights. Defaults to DefaultPointShadowMapSize.
//
// Parameters:
//   - size: texels per side (zero keeps the default)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPointShadowMapSize(size uint32) SceneBuilderOption {
	return func(s *scene) {
		if size > 0 {
			s.pointShadowMapSize = size
		}
	}
}

// WithComputeWorkers sets the number of worker goroutines used by the
// data-parallel frame stages. Defaults to runtime.NumCPU()-1.
// Ignored when WithPool is also given.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		s.workers = max(n, 1)
	}
}

// WithPool sets the executor used by the data-parallel frame stages.
// Pass schedule.Serial{} to run everything on the frame goroutines.
//
// Parameters:
//   - p: the pool
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPool(p schedule.Pool) SceneBuilderOption {
	return func(s *scene) {
		s.pool = p
	}
}

// WithLimits sets the GPU buffer capacities. Defaults to light_meta.NewLimits().
//
// Parameters:
//   - l: the limits
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLimits(l light_meta.Limits) SceneBuilderOption {
	return func(s *scene) {
		s.limits = l
	}
}

// WithRecorder sets the diagnostics recorder shared by all frame stages.
//
// Parameters:
//   - rec: the recorder
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithRecorder(rec diagnostics.Recorder) SceneBuilderOption {
	return func(s *scene) {
		s.rec = rec
	}
}
