package model

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
)

// MeshUploader creates GPU vertex and index buffers for a mesh provider.
// The renderer satisfies it.
type MeshUploader interface {
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error
}

// staticMesh is the implementation of the StaticMesh interface.
type staticMesh struct {
	mu *sync.Mutex

	name     string
	vertices []GPUVertex
	indices  []uint32
	bounds   common.BoundingSphere

	meshProvider bind_group_provider.BindGroupProvider
}

// StaticMesh defines the interface for immutable indexed triangle geometry shared by reference between scene objects.
// The bounding sphere is computed once at construction from the vertex positions.
// GPU buffers are created on the first Upload and reused for the lifetime of the mesh.
type StaticMesh interface {
	// Name retrieves the mesh identifier.
	//
	// Returns:
	//   - string: the mesh name
	Name() string

	// Vertices returns the vertex data. The slice must not be modified.
	//
	// Returns:
	//   - []GPUVertex: the vertices
	Vertices() []GPUVertex

	// Indices returns the triangle list indices. The slice must not be modified.
	//
	// Returns:
	//   - []uint32: the indices
	Indices() []uint32

	// IndexCount returns the number of indices.
	IndexCount() int

	// BoundingSphere returns the local-space sphere centered on the vertex centroid.
	// An empty mesh has the zero sphere.
	//
	// Returns:
	//   - common.BoundingSphere: the local bounds
	BoundingSphere() common.BoundingSphere

	// VertexData returns the packed vertex buffer contents.
	//
	// Returns:
	//   - []byte: the vertex bytes, 64 per vertex
	VertexData() []byte

	// IndexData returns the packed index buffer contents.
	//
	// Returns:
	//   - []byte: the index bytes, 4 per index
	IndexData() []byte

	// Upload creates the GPU vertex and index buffers once. Later calls and empty meshes are no-ops.
	//
	// Parameters:
	//   - r: the uploader that allocates the buffers
	//
	// Returns:
	//   - error: an error if buffer creation failed
	Upload(r MeshUploader) error

	// MeshProvider retrieves the BindGroupProvider holding the GPU vertex and index buffers.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the mesh provider, or nil before Upload
	MeshProvider() bind_group_provider.BindGroupProvider

	// Release frees the GPU buffers. The CPU data remains and the mesh may be uploaded again.
	Release()
}

var _ StaticMesh = &staticMesh{}

// NewStaticMesh creates a new StaticMesh with the specified options applied and computes its bounding sphere.
//
// Parameters:
//   - options: a variadic list of StaticMeshBuilderOption functions to configure the mesh
//
// Returns:
//   - StaticMesh: a new immutable mesh
func NewStaticMesh(options ...StaticMeshBuilderOption) StaticMesh {
	m := &staticMesh{mu: &sync.Mutex{}}
	for _, opt := range options {
		opt(m)
	}

	positions := make([]common.Vec3, len(m.vertices))
	for i, v := range m.vertices {
		positions[i] = common.Vec3(v.Position)
	}
	m.bounds = common.ComputeBoundingSphere(positions)
	return m
}

func (m *staticMesh) Name() string {
	return m.name
}

func (m *staticMesh) Vertices() []GPUVertex {
	return m.vertices
}

func (m *staticMesh) Indices() []uint32 {
	return m.indices
}

func (m *staticMesh) IndexCount() int {
	return len(m.indices)
}

func (m *staticMesh) BoundingSphere() common.BoundingSphere {
	return m.bounds
}

func (m *staticMesh) VertexData() []byte {
	buf := make([]byte, 0, len(m.vertices)*gpuVertexSize)
	for i := range m.vertices {
		buf, _ = m.vertices[i].AppendBinary(buf)
	}
	return buf
}

func (m *staticMesh) IndexData() []byte {
	return common.SliceToBytes(m.indices)
}

func (m *staticMesh) Upload(r MeshUploader) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.meshProvider != nil || len(m.vertices) == 0 || len(m.indices) == 0 {
		return nil
	}

	provider := bind_group_provider.NewBindGroupProvider(m.name + "_mesh")
	if err := r.InitMeshBuffers(provider, m.VertexData(), m.IndexData(), len(m.indices)); err != nil {
		provider.Release()
		return err
	}
	m.meshProvider = provider
	return nil
}

func (m *staticMesh) MeshProvider() bind_group_provider.BindGroupProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meshProvider
}

func (m *staticMesh) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meshProvider != nil {
		m.meshProvider.Release()
		m.meshProvider = nil
	}
}
