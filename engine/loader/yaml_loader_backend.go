package loader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlLoaderBackendImpl is the implementation of yamlLoaderBackend.
type yamlLoaderBackendImpl struct {
	strict bool
}

// yamlLoaderBackend is a loaderBackend implementation for YAML scene descriptions.
type yamlLoaderBackend interface {
	loaderBackend
}

var _ yamlLoaderBackend = &yamlLoaderBackendImpl{}

// newYAMLLoaderBackend creates a new YAML loader backend.
//
// Parameters:
//   - strict: reject mappings with keys that no description field declares
//
// Returns:
//   - yamlLoaderBackend: the loader backend for YAML files
func newYAMLLoaderBackend(strict bool) yamlLoaderBackend {
	return &yamlLoaderBackendImpl{strict: strict}
}

func (b *yamlLoaderBackendImpl) Load(path string) (*Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return b.LoadReader(f)
}

func (b *yamlLoaderBackendImpl) LoadReader(r io.Reader) (*Description, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(b.strict)

	var desc Description
	if err := dec.Decode(&desc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidDescription)
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &desc, nil
}
