package loader

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// ErrUnsupportedFormat is returned for a scene file whose extension no backend reads.
var ErrUnsupportedFormat = errors.New("loader: unsupported scene format")

// LoaderBackendType identifies the scene file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	backend loaderBackend

	baseDir        string
	workers        int
	decodeTextures bool
	pool           worker.DynamicWorkerPool

	scenes map[string]*SceneDescription
}

// Loader reads scene files into SceneDescriptions and keeps the most recent description per path.
// Texture pixels are decoded up front on a worker pool, so building and uploading the scene later
// never stalls on image decoding.
type Loader interface {
	// LoadScene reads a scene file. The file is always read again, so a changed file yields a
	// fresh description that replaces the remembered one.
	// The backend is selected by extension (.gltf/.glb → glTF backend).
	//
	// Parameters:
	//   - path: the file path to the scene file
	//
	// Returns:
	//   - *SceneDescription: the scene description
	//   - error: ErrUnsupportedFormat for an unknown extension, or the wrapped read error
	LoadScene(path string) (*SceneDescription, error)

	// LoadSceneReader reads a scene from a stream and remembers it under the given name.
	//
	// Parameters:
	//   - name: the scene name and cache key
	//   - r: the reader providing the file contents
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *SceneDescription: the scene description
	//   - error: error if loading fails
	LoadSceneReader(name string, r io.Reader, isGLB bool) (*SceneDescription, error)

	// Get returns the last description loaded under a path or name, or nil.
	//
	// Parameters:
	//   - name: the path or name to look up
	//
	// Returns:
	//   - *SceneDescription: the description or nil
	Get(name string) *SceneDescription

	// Forget drops a remembered description.
	//
	// Parameters:
	//   - name: the path or name to drop
	Forget(name string)

	// Close stops the texture decode workers. Scenes loaded afterwards decode their textures on the
	// calling goroutine. Calling Close more than once is a no-op.
	Close()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:             sync.RWMutex{},
		workers:        4,
		decodeTextures: true,
		scenes:         make(map[string]*SceneDescription),
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	if l.decodeTextures {
		l.pool = worker.NewDynamicWorkerPool(max(l.workers, 1), 256, 1*time.Second)
	}
	return l
}

func (l *loader) LoadScene(path string) (*SceneDescription, error) {
	if err := checkFormat(path); err != nil {
		return nil, err
	}
	desc, err := l.backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	l.finish(path, desc)
	return desc, nil
}

func (l *loader) LoadSceneReader(name string, r io.Reader, isGLB bool) (*SceneDescription, error) {
	desc, err := l.backend.LoadReader(name, r, isGLB, l.baseDir)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", name, err)
	}
	l.finish(name, desc)
	return desc, nil
}

func (l *loader) finish(key string, desc *SceneDescription) {
	if l.decodeTextures {
		l.decode(desc.Textures)
	}
	log.Printf("[Loader] %s: %d meshes, %d materials, %d objects", desc.Name, len(desc.Meshes), len(desc.Materials), len(desc.Objects))

	l.mu.Lock()
	l.scenes[key] = desc
	l.mu.Unlock()
}

// decode stages every texture on the worker pool and waits for all of them.
// A texture that fails to decode is logged and left for the renderer's fallback.
func (l *loader) decode(textures []*common.ImportedTexture) {
	l.mu.RLock()
	pool := l.pool
	l.mu.RUnlock()

	var wg sync.WaitGroup
	for i, tex := range textures {
		if pool == nil {
			_ = stage(tex)
			continue
		}
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				return nil, stage(tex)
			},
		})
	}
	wg.Wait()
}

func stage(tex *common.ImportedTexture) error {
	if _, err := tex.Staging(); err != nil {
		log.Printf("[Loader] texture %q: %v", tex.Name, err)
		return err
	}
	return nil
}

func (l *loader) Close() {
	l.mu.Lock()
	pool := l.pool
	l.pool = nil
	l.mu.Unlock()
	if pool != nil {
		pool.Stop()
	}
}

func (l *loader) Get(name string) *SceneDescription {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.scenes[name]
}

func (l *loader) Forget(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.scenes, name)
}

// checkFormat rejects extensions no backend reads.
func checkFormat(path string) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gltf", ".glb":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
