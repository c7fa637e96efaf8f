package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-clusters/engine/camera"
	"github.com/Carmen-Shannon/oxy-clusters/engine/game_object"
	"github.com/Carmen-Shannon/oxy-clusters/engine/light"
	"github.com/Carmen-Shannon/oxy-clusters/engine/scene"
)

// LoaderBackendType identifies the scene description format backend to use.
type LoaderBackendType int

const (
	// BackendTypeYAML selects the YAML loader backend.
	BackendTypeYAML LoaderBackendType = iota
)

// ErrUnsupportedFormat is returned when a file extension has no backend.
var ErrUnsupportedFormat = errors.New("loader: unsupported format")

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	descriptionCache map[string]*Description

	backend loaderBackend
	strict  bool
}

// Loader defines the public-facing interface for loading and caching scene
// descriptions and turning them into scenes.
type Loader interface {
	// Load decodes a description file and caches the result by path.
	// If the description is already cached, the cached version is returned.
	//
	// Parameters:
	//   - path: the file path (.yaml or .yml)
	//
	// Returns:
	//   - *Description: the decoded description
	//   - error: error if loading fails
	Load(path string) (*Description, error)

	// LoadReader decodes a description from a reader stream and caches it by name.
	//
	// Parameters:
	//   - name: the cache key
	//   - r: the reader providing the description
	//
	// Returns:
	//   - *Description: the decoded description
	//   - error: error if decoding fails
	LoadReader(name string, r io.Reader) (*Description, error)

	// LoadScene loads a description file and builds a scene from it.
	//
	// Parameters:
	//   - path: the file path
	//   - options: extra scene options applied after the description's own
	//
	// Returns:
	//   - scene.Scene: the built scene
	//   - error: error if loading or building fails
	LoadScene(path string, options ...scene.SceneBuilderOption) (scene.Scene, error)

	// Get retrieves a cached description by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *Description: the cached description or nil
	Get(name string) *Description

	// Descriptions returns the full description cache.
	//
	// Returns:
	//   - map[string]*Description: all cached descriptions keyed by name
	Descriptions() map[string]*Description
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeYAML)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		descriptionCache: make(map[string]*Description),
		strict:           true,
	}

	for _, option := range options {
		option(l)
	}

	switch backendType {
	case BackendTypeYAML:
		l.backend = newYAMLLoaderBackend(l.strict)
	}
	return l
}

func (l *loader) Load(path string) (*Description, error) {
	l.mu.RLock()
	if cached, ok := l.descriptionCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	desc, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.mu.Lock()
	l.descriptionCache[path] = desc
	l.mu.Unlock()

	return desc, nil
}

func (l *loader) LoadReader(name string, r io.Reader) (*Description, error) {
	l.mu.RLock()
	if cached, ok := l.descriptionCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	desc, err := l.backend.LoadReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	l.mu.Lock()
	l.descriptionCache[name] = desc
	l.mu.Unlock()

	return desc, nil
}

func (l *loader) LoadScene(path string, options ...scene.SceneBuilderOption) (scene.Scene, error) {
	desc, err := l.Load(path)
	if err != nil {
		return nil, err
	}
	return Build(desc, options...)
}

func (l *loader) Get(name string) *Description {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.descriptionCache[name]
}

func (l *loader) Descriptions() map[string]*Description {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*Description, len(l.descriptionCache))
	for k, v := range l.descriptionCache {
		result[k] = v
	}
	return result
}

// resolveBackend returns the backend for the file's extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if l.backend == nil {
			return nil, fmt.Errorf("%w: no backend configured for %s", ErrUnsupportedFormat, path)
		}
		return l.backend, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Build creates the cameras, lights and objects of a description and adds them
// to a new scene. Object parents and attached lights are resolved by name;
// a light attached to an object is registered through the object only.
//
// Parameters:
//   - desc: the description
//   - options: extra scene options applied after the description's own
//
// Returns:
//   - scene.Scene: the built scene
//   - error: wraps ErrInvalidDescription for unknown names or invalid configs
func Build(desc *Description, options ...scene.SceneBuilderOption) (scene.Scene, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil description", ErrInvalidDescription)
	}

	cams := make([]camera.Camera, 0, len(desc.Cameras))
	for _, cd := range desc.Cameras {
		opts, err := cd.Options()
		if err != nil {
			return nil, err
		}
		cams = append(cams, camera.NewCamera(opts...))
	}

	lights := make(map[string]light.Light, len(desc.Lights))
	ordered := make([]string, 0, len(desc.Lights))
	for _, ld := range desc.Lights {
		if _, dup := lights[ld.Name]; dup || ld.Name == "" {
			return nil, fmt.Errorf("%w: light name %q is empty or repeated", ErrInvalidDescription, ld.Name)
		}
		lt, err := ld.LightType()
		if err != nil {
			return nil, err
		}
		opts, err := ld.Options()
		if err != nil {
			return nil, err
		}
		lights[ld.Name] = light.NewLight(lt, opts...)
		ordered = append(ordered, ld.Name)
	}

	objects := make(map[string]game_object.GameObject, len(desc.Objects))
	attached := make(map[string]bool)
	built := make([]game_object.GameObject, 0, len(desc.Objects))
	for _, od := range desc.Objects {
		if _, dup := objects[od.Name]; dup && od.Name != "" {
			return nil, fmt.Errorf("%w: object name %q is repeated", ErrInvalidDescription, od.Name)
		}
		opts, err := od.Options()
		if err != nil {
			return nil, err
		}
		if od.Light != "" {
			l, ok := lights[od.Light]
			if !ok {
				return nil, fmt.Errorf("%w: object %q attaches unknown light %q", ErrInvalidDescription, od.Name, od.Light)
			}
			opts = append(opts, game_object.WithLight(l))
			attached[od.Light] = true
		}
		obj := game_object.NewGameObject(opts...)
		if od.Name != "" {
			objects[od.Name] = obj
		}
		built = append(built, obj)
	}
	for i, od := range desc.Objects {
		if od.Parent == "" {
			continue
		}
		parent, ok := objects[od.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: object %q has unknown parent %q", ErrInvalidDescription, od.Name, od.Parent)
		}
		built[i].SetParent(parent)
	}

	free := make([]light.Light, 0, len(ordered))
	for _, name := range ordered {
		if !attached[name] {
			free = append(free, lights[name])
		}
	}

	opts := []scene.SceneBuilderOption{
		scene.WithCameras(cams...),
		scene.WithLights(free...),
		scene.WithObjects(built...),
		scene.WithAmbientColor(desc.Ambient),
		scene.WithPointShadowMapSize(desc.PointShadowMapSize),
	}
	return scene.NewScene(desc.Name, append(opts, options...)...), nil
}
