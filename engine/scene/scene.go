package scene

import (
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-clusters/common"
	"github.com/Carmen-Shannon/oxy-clusters/engine/camera"
	"github.com/Carmen-Shannon/oxy-clusters/engine/cascade"
	"github.com/Carmen-Shannon/oxy-clusters/engine/cluster"
	"github.com/Carmen-Shannon/oxy-clusters/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-clusters/engine/game_object"
	"github.com/Carmen-Shannon/oxy-clusters/engine/light"
	"github.com/Carmen-Shannon/oxy-clusters/engine/light_meta"
	"github.com/Carmen-Shannon/oxy-clusters/engine/schedule"
)

// Scene holds the cameras, lights and GameObjects of a world and turns them into
// the per-frame clustered lighting and shadow data.
//
// Each call to Frame runs the frame graph: transforms are propagated, lights are
// extracted and assigned to every camera's cluster grid, cascades and light
// frusta are built, visibility is evaluated for cameras and shadow views, and
// the result is packed into the scene's LightMeta.
// Thread-safe for concurrent access; Frame holds the scene lock while it runs.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active.
	Active() bool

	// SetActive sets whether this scene is active.
	SetActive(active bool)

	// AddCamera registers a camera. Each active camera gets its own cluster grid.
	//
	// Parameters:
	//   - cam: the camera to add
	AddCamera(cam camera.Camera)

	// RemoveCamera removes a camera and drops its grid and cascades.
	//
	// Parameters:
	//   - id: the camera ID
	RemoveCamera(id uint64)

	// Cameras returns the registered cameras in insertion order.
	//
	// Returns:
	//   - []camera.Camera: a copy of the camera list
	Cameras() []camera.Camera

	// Count returns the number of GameObjects in the scene.
	//
	// Returns:
	//   - int: the object count
	Count() int

	// Add adds a GameObject to the scene. Objects without an ID are assigned one.
	// If the object carries a Light, the light is added to the scene as well and
	// follows the object's world position.
	//
	// Parameters:
	//   - obj: the GameObject to add
	//
	// Returns:
	//   - uint64: the object ID
	Add(obj game_object.GameObject) uint64

	// Get retrieves a GameObject by its ID. Returns nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// Remove removes a GameObject and its attached light.
	//
	// Parameters:
	//   - id: the object's unique ID
	Remove(id uint64)

	// Objects returns the scene's GameObjects ordered by ID.
	//
	// Returns:
	//   - []game_object.GameObject: the objects
	Objects() []game_object.GameObject

	// Clear removes all objects, lights and per-camera state. Cameras stay registered.
	Clear()

	// AddLight adds a free-standing light to the scene.
	//
	// Parameters:
	//   - l: the light to add
	AddLight(l light.Light)

	// RemoveLight removes a light from the scene.
	//
	// Parameters:
	//   - l: the light to remove
	RemoveLight(l light.Light)

	// DetachLight removes the light attached to obj from the scene without
	// removing the object.
	//
	// Parameters:
	//   - obj: the object whose light is detached
	DetachLight(obj game_object.GameObject)

	// Lights returns the scene's lights in insertion order.
	//
	// Returns:
	//   - []light.Light: a copy of the light list
	Lights() []light.Light

	// AmbientColor returns the ambient color written into the light buffer header.
	AmbientColor() [3]float32

	// SetAmbientColor sets the ambient color.
	//
	// Parameters:
	//   - color: RGB ambient color
	SetAmbientColor(color [3]float32)

	// Grid returns a camera's cluster grid as of the last frame.
	//
	// Parameters:
	//   - cameraID: the camera ID
	//
	// Returns:
	//   - *cluster.Grid: the grid
	//   - bool: false if the camera has no grid yet
	Grid(cameraID uint64) (*cluster.Grid, bool)

	// Cascades returns the cascades built for a directional light and camera in
	// the last frame.
	//
	// Parameters:
	//   - lightID: the directional light ID
	//   - cameraID: the camera ID
	//
	// Returns:
	//   - []cascade.Cascade: the cascades
	//   - bool: false if none were built
	Cascades(lightID, cameraID uint64) ([]cascade.Cascade, bool)

	// LightMeta returns the packed GPU data of the last frame.
	//
	// Returns:
	//   - light_meta.LightMeta: the light meta
	LightMeta() light_meta.LightMeta

	// PointShadowMapSize returns the shadow map size used by point light cube
	// faces and spot lights.
	//
	// Returns:
	//   - uint32: texels per side
	PointShadowMapSize() uint32

	// SetPointShadowMapSize sets the shadow map size used by point light cube
	// faces and spot lights. Zero restores DefaultPointShadowMapSize.
	//
	// Parameters:
	//   - size: texels per side
	SetPointShadowMapSize(size uint32)

	// Recorder returns the diagnostics recorder shared by all frame stages.
	//
	// Returns:
	//   - diagnostics.Recorder: the recorder
	Recorder() diagnostics.Recorder

	// Stages returns the frame graph stage names grouped by level.
	//
	// Returns:
	//   - [][]string: stage names per level
	Stages() [][]string

	// Frame advances object rotation by dt and runs the frame graph.
	//
	// Parameters:
	//   - dt: elapsed time since the previous frame in seconds
	//
	// Returns:
	//   - *FrameResult: the frame's visibility and lighting results
	//   - error: non-nil only if a stage panicked
	Frame(dt float32) (*FrameResult, error)

	// Close stops the scene's worker pool.
	Close()
}

// DefaultPointShadowMapSize is the shadow map size of point light cube faces and
// spot lights. Directional lights take theirs from cascade.Config.Resolution.
const DefaultPointShadowMapSize uint32 = 1024

// cascadeKey identifies the cascades of one directional light seen from one camera.
type cascadeKey struct {
	light  uint64
	camera uint64
}

type scene struct {
	mu     *sync.RWMutex
	name   string
	active bool

	cameras []camera.Camera

	registry map[uint64]game_object.GameObject
	nextID   uint64

	lights       []light.Light
	lightObjects []game_object.GameObject
	ambientColor [3]float32

	pointShadowMapSize uint32

	// Per-camera and per-(light, camera) state, kept across frames and only
	// reallocated when a grid's dimensions change.
	grids    map[uint64]*cluster.Grid
	cascades map[cascadeKey][]cascade.Cascade

	limits      light_meta.Limits
	meta        light_meta.LightMeta
	rec         diagnostics.Recorder
	graph       schedule.Graph
	frame       *frameState
	frameNumber uint64

	pool    schedule.Pool
	workers int
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new Scene and compiles its frame graph.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:       &sync.RWMutex{},
		name:     name,
		active:   true,
		registry: make(map[uint64]game_object.GameObject),
		nextID:   1,
		grids:    make(map[uint64]*cluster.Grid),
		cascades: make(map[cascadeKey][]cascade.Cascade),
		limits:   light_meta.NewLimits(),
		workers:  max(runtime.NumCPU()-1, 1),

		pointShadowMapSize: DefaultPointShadowMapSize,
	}

	for _, option := range options {
		option(s)
	}

	if s.rec == nil {
		s.rec = diagnostics.NewRecorder()
	}
	if s.pool == nil {
		s.pool = schedule.NewPool(schedule.WithWorkers(s.workers))
	}
	s.meta = light_meta.NewLightMeta(light_meta.WithLimits(s.limits), light_meta.WithRecorder(s.rec))

	graph, err := s.buildGraph()
	if err != nil {
		panic(fmt.Sprintf("scene: failed to build frame graph: %v", err))
	}
	s.graph = graph
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) AddCamera(cam camera.Camera) {
	if cam == nil {
		panic("scene: AddCamera requires a non-nil Camera")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cameras {
		if existing.ID() == cam.ID() {
			return
		}
	}
	s.cameras = append(s.cameras, cam)
}

func (s *scene) RemoveCamera(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras = slices.DeleteFunc(s.cameras, func(c camera.Camera) bool { return c.ID() == id })
	delete(s.grids, id)
	for key := range s.cascades {
		if key.camera == id {
			delete(s.cascades, key)
		}
	}
}

func (s *scene) Cameras() []camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cameras)
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	if obj == nil {
		panic("scene: Add requires a non-nil GameObject")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(obj)
}

func (s *scene) addLocked(obj game_object.GameObject) uint64 {
	if obj.ID() == 0 {
		obj.SetID(s.nextID)
	}
	s.nextID = max(s.nextID, obj.ID()+1)
	s.registry[obj.ID()] = obj

	if l := obj.Light(); l != nil {
		if !slices.Contains(s.lights, l) {
			s.lights = append(s.lights, l)
		}
		s.lightObjects = append(s.lightObjects, obj)
	}
	return obj.ID()
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.registry[id]
	if !ok {
		return
	}
	delete(s.registry, id)
	s.detachLocked(obj)
}

func (s *scene) Objects() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedObjects()
}

// sortedObjects returns the registry ordered by ID. Caller must hold s.mu.
func (s *scene) sortedObjects() []game_object.GameObject {
	out := make([]game_object.GameObject, 0, len(s.registry))
	for _, obj := range s.registry {
		out = append(out, obj)
	}
	slices.SortFunc(out, func(a, b game_object.GameObject) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return out
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = make(map[uint64]game_object.GameObject)
	s.lights = nil
	s.lightObjects = nil
	s.grids = make(map[uint64]*cluster.Grid)
	s.cascades = make(map[cascadeKey][]cascade.Cascade)
}

func (s *scene) AddLight(l light.Light) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.lights, l) {
		s.lights = append(s.lights, l)
	}
}

func (s *scene) RemoveLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLightLocked(l)
}

func (s *scene) removeLightLocked(l light.Light) {
	for i, existing := range s.lights {
		if existing == l {
			s.lights = append(s.lights[:i], s.lights[i+1:]...)
			break
		}
	}
	for key := range s.cascades {
		if key.light == l.ID() {
			delete(s.cascades, key)
		}
	}
}

func (s *scene) DetachLight(obj game_object.GameObject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked(obj)
}

func (s *scene) detachLocked(obj game_object.GameObject) {
	l := obj.Light()
	if l == nil {
		return
	}
	s.removeLightLocked(l)
	for i, o := range s.lightObjects {
		if o == obj {
			s.lightObjects = append(s.lightObjects[:i], s.lightObjects[i+1:]...)
			break
		}
	}
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]light.Light, len(s.lights))
	copy(out, s.lights)
	return out
}

func (s *scene) AmbientColor() [3]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambientColor
}

func (s *scene) SetAmbientColor(color [3]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambientColor = color
}

func (s *scene) PointShadowMapSize() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pointShadowMapSize
}

func (s *scene) SetPointShadowMapSize(size uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointShadowMapSize = common.Coalesce(size, DefaultPointShadowMapSize)
}

func (s *scene) Grid(cameraID uint64) (*cluster.Grid, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grids[cameraID]
	return g, ok
}

func (s *scene) Cascades(lightID, cameraID uint64) ([]cascade.Cascade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cascades[cascadeKey{light: lightID, camera: cameraID}]
	return c, ok
}

func (s *scene) LightMeta() light_meta.LightMeta {
	return s.meta
}

func (s *scene) Recorder() diagnostics.Recorder {
	return s.rec
}

func (s *scene) Stages() [][]string {
	return s.graph.Levels()
}

func (s *scene) Close() {
	s.pool.Close()
}
