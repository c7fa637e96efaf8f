package scene

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-clusters/common"
	"github.com/Carmen-Shannon/oxy-clusters/engine/camera"
	"github.com/Carmen-Shannon/oxy-clusters/engine/cascade"
	"github.com/Carmen-Shannon/oxy-clusters/engine/cluster"
	"github.com/Carmen-Shannon/oxy-clusters/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-clusters/engine/game_object"
	"github.com/Carmen-Shannon/oxy-clusters/engine/light"
	"github.com/Carmen-Shannon/oxy-clusters/engine/light_meta"
	"github.com/Carmen-Shannon/oxy-clusters/engine/schedule"
	"github.com/Carmen-Shannon/oxy-clusters/engine/shadow"
	"github.com/Carmen-Shannon/oxy-clusters/engine/visibility"
)

// Frame graph stage names.
const (
	StageTransformPropagate = "transform_propagate"
	StageExtractLights      = light_meta.StageExtract
	StageAddClusters        = "add_clusters"
	StageAssignLights       = "assign_lights_to_clusters"
	StageCameraFrusta       = "camera_frusta"
	StageCameraVisibility   = "camera_visibility"
	StageBuildCascades      = cascade.Stage
	StageDirectionalFrusta  = "directional_frusta"
	StagePointFrusta        = "point_frusta"
	StageSpotFrusta         = "spot_frusta"
	StageLightVisibility    = "light_visibility"
	StageShadowSort         = "shadow_sort"
	StageMarshal            = light_meta.StageMarshal
)

// CameraResult is what one camera produced in a frame.
type CameraResult struct {
	CameraID uint64
	// Dims is the camera's resolved cluster grid; all zero when clustering is off.
	Dims       [3]uint32
	Assignment cluster.Result
	// Visible lists the IDs of objects inside the camera frustum.
	Visible []uint64
	Uniform camera.GPUCameraUniform
}

// ShadowView is one shadow map render target: a directional cascade, a point
// light cube face, or a spot light cone.
type ShadowView struct {
	LightID uint64
	// LightIndex is the light's index in the frame's GPU light array.
	LightIndex uint32
	Kind       light.LightType
	// CameraID is the camera a cascade was fitted to; 0 for point and spot views.
	CameraID uint64
	// Face is the cascade index for directional lights, the cube face for
	// point lights, and 0 for spot lights.
	Face           int
	View           [16]float32
	ViewProjection [16]float32
	Frustum        common.Frustum
	// TexelWorldSize is the world-space texel width; for perspective views it is
	// measured at unit distance from the light.
	TexelWorldSize float32
	// Resolution is the shadow map size in texels per side.
	Resolution uint32
	Empty      bool
	// Visible lists shadow-casting object IDs inside the view, nearest to the
	// light first.
	Visible []uint64
}

// FrameResult is the CPU-side output of one frame. The matching GPU buffers
// are held by the scene's LightMeta.
type FrameResult struct {
	Number uint64
	// Lights are the extracted lights in GPU index order.
	Lights []light.Light
	// GlobalVisibleLights holds the IDs of lights that landed in at least one
	// cluster of any camera; GlobalVisibleLightIDs lists them in ascending order.
	GlobalVisibleLights   map[uint64]struct{}
	GlobalVisibleLightIDs []uint64
	Cameras               []CameraResult
	ShadowViews           []ShadowView
	Timings               []schedule.StageTiming
	Diagnostics           []diagnostics.Entry
}

// Camera returns the result for one camera.
//
// Parameters:
//   - id: the camera ID
//
// Returns:
//   - CameraResult: the camera's result
//   - bool: false if the camera was not part of the frame
func (r *FrameResult) Camera(id uint64) (CameraResult, bool) {
	for _, c := range r.Cameras {
		if c.CameraID == id {
			return c, true
		}
	}
	return CameraResult{}, false
}

// LightVisible reports whether a light is in GlobalVisibleLights.
func (r *FrameResult) LightVisible(id uint64) bool {
	_, ok := r.GlobalVisibleLights[id]
	return ok
}

// frameState is the scratch data stages hand to each other within one frame.
// Stages that run in the same level write disjoint fields.
type frameState struct {
	dt float32

	cameras  []camera.Camera
	entities []visibility.Entity
	centers  map[uint64][3]float32
	casters  []common.BoundingVolume

	lights      []light.Light
	shadowIndex []uint32

	assignments []cluster.Result
	global      map[uint64]struct{}

	cameraFrusta  []common.Frustum
	cameraVisible [][]uint64

	directionalViews []ShadowView
	pointViews       []ShadowView
	spotViews        []ShadowView
	shadowViews      []ShadowView

	cameraResults []CameraResult
}

func (s *scene) buildGraph() (schedule.Graph, error) {
	g := schedule.NewGraph()
	stages := []struct {
		name  string
		run   schedule.StageFunc
		after []string
	}{
		{StageTransformPropagate, s.transformPropagate, nil},
		{StageExtractLights, s.extractLights, []string{StageTransformPropagate}},
		{StageAddClusters, s.addClusters, []string{StageExtractLights}},
		{StageAssignLights, s.assignLights, []string{StageAddClusters}},
		{StageCameraFrusta, s.cameraFrusta, []string{StageTransformPropagate}},
		{StageCameraVisibility, s.cameraVisibility, []string{StageCameraFrusta}},
		{StageBuildCascades, s.buildCascades, []string{StageTransformPropagate, StageExtractLights}},
		{StageDirectionalFrusta, s.directionalFrusta, []string{StageBuildCascades}},
		{StagePointFrusta, s.pointFrusta, []string{StageTransformPropagate, StageAssignLights}},
		{StageSpotFrusta, s.spotFrusta, []string{StageTransformPropagate, StageAssignLights}},
		{StageLightVisibility, s.lightVisibility, []string{
			StageDirectionalFrusta, StagePointFrusta, StageSpotFrusta, StageCameraVisibility, StageAssignLights,
		}},
		{StageShadowSort, s.shadowSort, []string{StageLightVisibility}},
		{StageMarshal, s.marshal, []string{StageCameraVisibility, StageAssignLights, StageShadowSort}},
	}
	for _, st := range stages {
		if err := g.Add(st.name, st.run, st.after...); err != nil {
			return nil, err
		}
	}
	if err := g.Compile(); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *scene) Frame(dt float32) (*FrameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec.BeginFrame()
	s.frameNumber++
	s.frame = &frameState{dt: dt, global: make(map[uint64]struct{})}

	timings, err := s.graph.Run()
	f := s.frame
	res := &FrameResult{
		Number:                s.frameNumber,
		Lights:                f.lights,
		GlobalVisibleLights:   f.global,
		GlobalVisibleLightIDs: slices.Sorted(maps.Keys(f.global)),
		Cameras:               f.cameraResults,
		ShadowViews:           f.shadowViews,
		Timings:               timings,
		Diagnostics:           s.rec.Entries(),
	}
	if err != nil {
		return res, fmt.Errorf("scene: frame %d: %w", s.frameNumber, err)
	}
	return res, nil
}

// transformPropagate advances object rotation, resolves world matrices parent
// first, moves attached lights to their object, and gathers the culling inputs.
func (s *scene) transformPropagate() {
	f := s.frame
	objects := s.sortedObjects()

	for _, obj := range objects {
		if obj.Enabled() {
			obj.Advance(f.dt)
		}
	}

	worlds := make(map[game_object.GameObject][16]float32, len(objects))
	visiting := make(map[game_object.GameObject]bool)
	var resolve func(obj game_object.GameObject) [16]float32
	resolve = func(obj game_object.GameObject) [16]float32 {
		if m, ok := worlds[obj]; ok {
			return m
		}
		world := obj.LocalMatrix()
		if p := obj.Parent(); p != nil {
			if visiting[obj] {
				s.rec.Record(diagnostics.KindDegenerateGeometry, StageTransformPropagate,
					"object %d is its own ancestor; treated as a root", obj.ID())
				return world
			}
			visiting[obj] = true
			parent := resolve(p)
			delete(visiting, obj)
			local := world
			common.Mul4(world[:], parent[:], local[:])
		}
		worlds[obj] = world
		obj.SetWorldMatrix(world)
		return world
	}

	for _, obj := range objects {
		resolve(obj)
		if !obj.Enabled() {
			continue
		}
		bounds, ok := obj.WorldBounds()
		if !ok {
			s.rec.Record(diagnostics.KindMissingData, StageTransformPropagate,
				"object %d has no bounds; skipped for visibility", obj.ID())
			continue
		}
		f.entities = append(f.entities, visibility.Entity{
			ID:           obj.ID(),
			Bounds:       bounds,
			ShadowCaster: obj.ShadowCaster(),
		})
		if obj.ShadowCaster() {
			f.casters = append(f.casters, bounds)
		}
	}
	f.centers = visibility.Centers(f.entities)

	for _, obj := range s.lightObjects {
		l := obj.Light()
		if l == nil || !obj.Enabled() {
			continue
		}
		m := obj.WorldMatrix()
		l.SetPosition(m[12], m[13], m[14])
	}

	for _, cam := range s.cameras {
		if !cam.Active() {
			continue
		}
		cam.Update()
		f.cameras = append(f.cameras, cam)
	}
}

// extractLights picks the enabled lights that fit in the GPU light buffer.
// A light's position in f.lights is its frame light index.
func (s *scene) extractLights() {
	f := s.frame
	candidates := make([]light.Light, 0, len(s.lights))
	for _, l := range s.lights {
		if l.Enabled() {
			candidates = append(candidates, l)
		}
	}
	keep := light_meta.Select(candidates, s.limits.MaxLights, s.rec)
	f.lights = make([]light.Light, len(keep))
	f.shadowIndex = make([]uint32, len(keep))
	for i, idx := range keep {
		f.lights[i] = candidates[idx]
		f.shadowIndex[i] = light.NoShadow
	}
}

// addClusters resolves every active camera's grid, creating grids for new
// cameras. A grid's cell table is only reallocated when its counts change.
func (s *scene) addClusters() {
	for _, cam := range s.frame.cameras {
		g, ok := s.grids[cam.ID()]
		if !ok {
			g = cluster.NewGrid()
			s.grids[cam.ID()] = g
		}
		cfg := cam.ClusterConfig()
		if err := cfg.Validate(); err != nil {
			s.rec.Record(diagnostics.KindDegenerateGeometry, StageAddClusters,
				"camera %d: %v; using the default cluster config", cam.ID(), err)
			cfg = cluster.DefaultConfig()
		}
		g.Configure(cfg, cam.ClusterView())
	}
}

func (s *scene) assignLights() {
	f := s.frame
	candidates := make([]cluster.VisibleLight, len(f.lights))
	for i, l := range f.lights {
		center, radius := l.SphereOfInfluence()
		candidates[i] = cluster.VisibleLight{
			Index:       uint32(i),
			Directional: l.Type() == light.LightTypeDirectional,
			Center:      center,
			Radius:      radius,
		}
	}

	f.assignments = make([]cluster.Result, len(f.cameras))
	for ci, cam := range f.cameras {
		res := cluster.Assign(s.grids[cam.ID()], cam.ClusterView(), candidates, s.pool)
		if res.Degenerate {
			s.rec.Record(diagnostics.KindDegenerateGeometry, StageAssignLights,
				"camera %d has an empty cluster depth range", cam.ID())
		}
		for _, idx := range res.Visible {
			f.global[f.lights[idx].ID()] = struct{}{}
		}
		f.assignments[ci] = res
	}
}

func (s *scene) cameraFrusta() {
	f := s.frame
	f.cameraFrusta = make([]common.Frustum, len(f.cameras))
	for i, cam := range f.cameras {
		f.cameraFrusta[i] = cam.Frustum()
	}
}

func (s *scene) cameraVisibility() {
	f := s.frame
	f.cameraVisible = visibility.CullMany(f.cameraFrusta, f.entities, visibility.ModeCamera, s.pool)
}

// buildCascades fits cascades for every shadow-casting directional light and
// active camera pair, and drops cascades of pairs that no longer exist.
func (s *scene) buildCascades() {
	f := s.frame
	live := make(map[cascadeKey]struct{})
	for _, l := range f.lights {
		if l.Type() != light.LightTypeDirectional || !l.CastsShadows() {
			continue
		}
		for _, cam := range f.cameras {
			key := cascadeKey{light: l.ID(), camera: cam.ID()}
			s.cascades[key] = cascade.Build(l.CascadeConfig(), cascadeInputs(cam), l.Direction(), f.casters, s.rec)
			live[key] = struct{}{}
		}
	}
	for key := range s.cascades {
		if _, ok := live[key]; !ok {
			delete(s.cascades, key)
		}
	}
}

func cascadeInputs(cam camera.Camera) cascade.CameraInputs {
	return cascade.CameraInputs{
		ID:           cam.ID(),
		InverseView:  cam.InverseViewMatrix(),
		Orthographic: cam.Projection() == camera.ProjectionOrthographic,
		FovY:         cam.Fov(),
		Aspect:       cam.Aspect(),
		OrthoHeight:  cam.OrthoHeight(),
		Near:         cam.Near(),
		Far:          cam.Far(),
	}
}

func (s *scene) directionalFrusta() {
	f := s.frame
	for li, l := range f.lights {
		if l.Type() != light.LightTypeDirectional || !l.CastsShadows() {
			continue
		}
		for _, cam := range f.cameras {
			cascades := s.cascades[cascadeKey{light: l.ID(), camera: cam.ID()}]
			frusta := shadow.CascadeFrusta(cascades)
			for i, c := range cascades {
				f.directionalViews = append(f.directionalViews, ShadowView{
					LightID:        l.ID(),
					LightIndex:     uint32(li),
					Kind:           light.LightTypeDirectional,
					CameraID:       cam.ID(),
					Face:           i,
					View:           c.View,
					ViewProjection: c.ViewProjection,
					Frustum:        frusta[i],
					TexelWorldSize: c.TexelSize,
					Resolution:     l.CascadeConfig().Resolution,
					Empty:          c.Empty,
				})
			}
		}
	}
}

func (s *scene) pointFrusta() {
	f := s.frame
	for li, l := range f.lights {
		if l.Type() != light.LightTypePoint || !l.CastsShadows() {
			continue
		}
		if _, ok := f.global[l.ID()]; !ok {
			continue
		}
		faces := shadow.PointFrusta(l.Position(), l.Range(), shadow.DefaultNear)
		for face, v := range faces {
			f.pointViews = append(f.pointViews, perspectiveShadowView(l, uint32(li), face, v, s.pointShadowMapSize))
		}
	}
}

func (s *scene) spotFrusta() {
	f := s.frame
	for li, l := range f.lights {
		if l.Type() != light.LightTypeSpot || !l.CastsShadows() {
			continue
		}
		if _, ok := f.global[l.ID()]; !ok {
			continue
		}
		v := shadow.SpotFrustum(l.Position(), l.Direction(), l.OuterCone(), l.Range(), shadow.DefaultNear)
		f.spotViews = append(f.spotViews, perspectiveShadowView(l, uint32(li), 0, v, s.pointShadowMapSize))
	}
}

func perspectiveShadowView(l light.Light, index uint32, face int, v shadow.View, res uint32) ShadowView {
	sv := ShadowView{
		LightID:        l.ID(),
		LightIndex:     index,
		Kind:           l.Type(),
		Face:           face,
		View:           v.View,
		ViewProjection: v.ViewProjection,
		Frustum:        v.Frustum,
		Resolution:     res,
		Empty:          v.Empty,
	}
	if res > 0 && v.Projection[5] != 0 {
		sv.TexelWorldSize = 2 / (v.Projection[5] * float32(res))
	}
	return sv
}

// lightVisibility orders the shadow views by light, links each light to its
// first view, and culls shadow casters against every view of a globally
// visible light.
func (s *scene) lightVisibility() {
	f := s.frame
	views := make([]ShadowView, 0, len(f.directionalViews)+len(f.pointViews)+len(f.spotViews))
	for _, v := range slices.Concat(f.directionalViews, f.pointViews, f.spotViews) {
		if _, ok := f.global[v.LightID]; ok {
			views = append(views, v)
		}
	}
	slices.SortStableFunc(views, func(a, b ShadowView) int {
		return int(a.LightIndex) - int(b.LightIndex)
	})

	for i := len(views) - 1; i >= 0; i-- {
		f.shadowIndex[views[i].LightIndex] = uint32(i)
	}

	frusta := make([]common.Frustum, len(views))
	for i := range views {
		frusta[i] = views[i].Frustum
	}
	visible := visibility.CullMany(frusta, f.entities, visibility.ModeShadow, s.pool)
	for i := range views {
		views[i].Visible = visible[i]
	}
	f.shadowViews = views
}

func (s *scene) shadowSort() {
	f := s.frame
	s.pool.ParallelFor(len(f.shadowViews), func(i int) {
		visibility.SortByDepth(f.shadowViews[i].Visible, f.centers, f.shadowViews[i].View)
	})
}

// marshal packs the frame into the scene's LightMeta and fills the camera results.
func (s *scene) marshal() {
	f := s.frame

	gpuLights := make([]light.GPULight, len(f.lights))
	for i, l := range f.lights {
		gpuLights[i] = light.ToGPULight(l, f.shadowIndex[i])
	}

	shadowData := make([]light.GPUShadowData, len(f.shadowViews))
	for i, v := range f.shadowViews {
		l := f.lights[v.LightIndex]
		shadowData[i] = light.NewGPUShadowData(l, v.ViewProjection, v.TexelWorldSize, v.Resolution)
	}

	clusters := make([]light_meta.CameraClusters, 0, len(f.cameras))
	f.cameraResults = make([]CameraResult, len(f.cameras))
	for ci, cam := range f.cameras {
		g := s.grids[cam.ID()]
		clusters = append(clusters, light_meta.CameraClusters{CameraID: cam.ID(), Grid: g})
		scale, bias := g.ZFactors()
		f.cameraResults[ci] = CameraResult{
			CameraID:   cam.ID(),
			Dims:       g.Dims(),
			Assignment: f.assignments[ci],
			Visible:    f.cameraVisible[ci],
			Uniform:    camera.ToGPUCameraUniform(cam, g.Dims(), scale, bias),
		}
	}

	s.meta.Prepare(light_meta.Frame{
		Lights:      gpuLights,
		Ambient:     s.ambientColor,
		ShadowViews: shadowData,
		Cameras:     clusters,
	})
}
