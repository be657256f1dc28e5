package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct{}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend() gltfLoaderBackend {
	return &gltfLoaderBackendImpl{}
}

func (b *gltfLoaderBackendImpl) Load(path string) (*SceneDescription, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return describe(parser, name)
}

func (b *gltfLoaderBackendImpl) LoadReader(name string, r io.Reader, isGLB bool, baseDir string) (*SceneDescription, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB, baseDir); err != nil {
		return nil, err
	}
	return describe(parser, name)
}

// describe extracts meshes and materials once per glTF index and places one object per
// (node, primitive) pair, so nodes sharing a mesh or material share the same values.
func describe(parser gltfParser, name string) (*SceneDescription, error) {
	doc := parser.Document()

	meshes, err := newGLTFMeshExtractor(parser).ExtractMeshes()
	if err != nil {
		return nil, fmt.Errorf("meshes: %w", err)
	}
	materials := newGLTFMaterialExtractor(parser)
	mats, err := materials.ExtractMaterials()
	if err != nil {
		return nil, fmt.Errorf("materials: %w", err)
	}
	nodes, err := walkNodes(doc)
	if err != nil {
		return nil, fmt.Errorf("nodes: %w", err)
	}

	desc := &SceneDescription{
		Name:      name,
		Materials: mats,
		Textures:  materials.Textures(),
	}

	// Flatten primitives into one mesh list, remembering where each glTF mesh starts.
	first := make([]int, len(meshes))
	for i, prims := range meshes {
		first[i] = len(desc.Meshes)
		for _, p := range prims {
			desc.Meshes = append(desc.Meshes, p.mesh)
		}
	}

	for _, n := range nodes {
		for pi, p := range meshes[n.mesh] {
			material := p.material
			if material >= len(mats) {
				return nil, fmt.Errorf("node %q: material %d out of range", n.node, material)
			}
			desc.Objects = append(desc.Objects, ObjectDescription{
				Name:      n.node,
				Mesh:      first[n.mesh] + pi,
				Material:  material,
				Transform: n.transform,
			})
		}
	}
	return desc, nil
}
