package loader

import "io"

// loaderBackend reads one scene file format into a SceneDescription.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load reads a scene file.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *SceneDescription: the meshes, materials and placed objects of the file
	//   - error: error if loading fails
	Load(path string) (*SceneDescription, error)

	// LoadReader reads a scene from a stream.
	//
	// Parameters:
	//   - name: the scene name
	//   - r: the reader providing the file contents
	//   - isGLB: true if the reader provides GLB binary data, false for glTF JSON
	//   - baseDir: the directory external resources resolve against, may be empty
	//
	// Returns:
	//   - *SceneDescription: the scene description
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool, baseDir string) (*SceneDescription, error)
}
