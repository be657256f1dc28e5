package model

// StaticMeshBuilderOption is a functional option for configuring a StaticMesh via NewStaticMesh.
type StaticMeshBuilderOption func(*staticMesh)

// WithName is an option builder that sets the name of the mesh.
//
// Parameters:
//   - name: the mesh identifier
//
// Returns:
//   - StaticMeshBuilderOption: a function that applies the name option to a mesh
func WithName(name string) StaticMeshBuilderOption {
	return func(m *staticMesh) {
		m.name = name
	}
}

// WithVertices is an option builder that sets the vertex data of the mesh.
// The slice is owned by the mesh after construction.
//
// Parameters:
//   - vertices: the mesh vertices
//
// Returns:
//   - StaticMeshBuilderOption: a function that applies the vertices option to a mesh
func WithVertices(vertices []GPUVertex) StaticMeshBuilderOption {
	return func(m *staticMesh) {
		m.vertices = vertices
	}
}

// WithIndices is an option builder that sets the triangle list indices of the mesh.
//
// Parameters:
//   - indices: the mesh indices
//
// Returns:
//   - StaticMeshBuilderOption: a function that applies the indices option to a mesh
func WithIndices(indices []uint32) StaticMeshBuilderOption {
	return func(m *staticMesh) {
		m.indices = indices
	}
}
