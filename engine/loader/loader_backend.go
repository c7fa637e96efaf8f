package loader

import "io"

// loaderBackend decodes a scene description from a file or stream.
// Concrete implementations (e.g., yamlLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load decodes the description stored at path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *Description: the decoded description
	//   - error: error if reading or decoding fails
	Load(path string) (*Description, error)

	// LoadReader decodes a description from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing the description
	//
	// Returns:
	//   - *Description: the decoded description
	//   - error: error if decoding fails
	LoadReader(r io.Reader) (*Description, error)
}
