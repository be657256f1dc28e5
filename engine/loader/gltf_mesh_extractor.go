package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
)

// gltfPrimitiveMesh is one triangle primitive of a glTF mesh and the material index it draws with (-1 for none).
type gltfPrimitiveMesh struct {
	mesh     model.StaticMesh
	material int
}

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
}

// gltfMeshExtractor turns glTF mesh primitives into static meshes.
type gltfMeshExtractor interface {
	// ExtractMeshes converts every mesh of the document, once per glTF mesh index, so nodes that
	// reference the same mesh share the same StaticMesh values.
	//
	// Returns:
	//   - [][]gltfPrimitiveMesh: the primitives of each mesh, indexed by glTF mesh index
	//   - error: error if a primitive cannot be read
	ExtractMeshes() ([][]gltfPrimitiveMesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

func (e *gltfMeshExtractorImpl) ExtractMeshes() ([][]gltfPrimitiveMesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}

	out := make([][]gltfPrimitiveMesh, len(doc.Meshes))
	for mi := range doc.Meshes {
		mesh := &doc.Meshes[mi]
		for pi := range mesh.Primitives {
			prim := &mesh.Primitives[pi]
			sm, err := e.extractPrimitive(prim, primitiveName(mesh.Name, mi, pi))
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
			if sm == nil {
				continue
			}
			material := -1
			if prim.Material != nil {
				material = *prim.Material
			}
			out[mi] = append(out[mi], gltfPrimitiveMesh{mesh: sm, material: material})
		}
	}
	return out, nil
}

func primitiveName(meshName string, meshIndex, primIndex int) string {
	if meshName == "" {
		meshName = fmt.Sprintf("mesh_%d", meshIndex)
	}
	if primIndex == 0 {
		return meshName
	}
	return fmt.Sprintf("%s_prim%d", meshName, primIndex)
}

// extractPrimitive reads one primitive. Non-triangle primitives are skipped with a nil mesh.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive, name string) (model.StaticMesh, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return nil, nil
	}

	posIndex, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := readFloatAccessor[[3]float32](e.parser, posIndex, gltfAccessorTypeVec3)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	vertices := make([]model.GPUVertex, len(positions))
	for i, p := range positions {
		vertices[i].Position = p
		vertices[i].Color = [4]float32{1, 1, 1, 1}
	}

	hasNormals := false
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := readFloatAccessor[[3]float32](e.parser, idx, gltfAccessorTypeVec3)
		if err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
		for i := range min(len(normals), len(vertices)) {
			vertices[i].Normal = normals[i]
		}
		hasNormals = true
	}

	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := readFloatAccessor[[2]float32](e.parser, idx, gltfAccessorTypeVec2)
		if err != nil {
			return nil, fmt.Errorf("texcoords: %w", err)
		}
		for i := range min(len(uvs), len(vertices)) {
			vertices[i].TexCoord = uvs[i]
		}
	}

	if idx, ok := prim.Attributes["COLOR_0"]; ok {
		colors, err := readColorAccessor(e.parser, idx)
		if err != nil {
			return nil, fmt.Errorf("colors: %w", err)
		}
		for i := range min(len(colors), len(vertices)) {
			vertices[i].Color = colors[i]
		}
	}

	hasTangents := false
	if idx, ok := prim.Attributes["TANGENT"]; ok {
		tangents, err := readFloatAccessor[[4]float32](e.parser, idx, gltfAccessorTypeVec4)
		if err != nil {
			return nil, fmt.Errorf("tangents: %w", err)
		}
		for i := range min(len(tangents), len(vertices)) {
			vertices[i].Tangent = tangents[i]
		}
		hasTangents = true
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = readIndexAccessor(e.parser, *prim.Indices); err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		for _, ix := range indices {
			if int(ix) >= len(vertices) {
				return nil, fmt.Errorf("index %d out of range for %d vertices", ix, len(vertices))
			}
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	// Normals first: tangents are orthogonalized against them.
	if !hasNormals {
		generateNormals(vertices, indices)
	}
	if !hasTangents {
		generateTangents(vertices, indices)
	}

	return model.NewStaticMesh(
		model.WithName(name),
		model.WithVertices(vertices),
		model.WithIndices(indices),
	), nil
}

// generateNormals fills smooth vertex normals by summing the area-weighted face normals of every
// triangle that touches a vertex. Vertices on no triangle get +Y.
func generateNormals(vertices []model.GPUVertex, indices []uint32) {
	accum := make([]common.Vec3, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0 := common.Vec3(vertices[i0].Position)
		face := common.Vec3(vertices[i1].Position).Sub(p0).Cross(common.Vec3(vertices[i2].Position).Sub(p0))
		accum[i0] = accum[i0].Add(face)
		accum[i1] = accum[i1].Add(face)
		accum[i2] = accum[i2].Add(face)
	}
	for i := range vertices {
		if accum[i].Length() < 1e-6 {
			vertices[i].Normal = [3]float32{0, 1, 0}
			continue
		}
		vertices[i].Normal = accum[i].Normalize()
	}
}

// generateTangents derives per-vertex tangents from the UV gradients of each triangle, then
// Gram-Schmidt orthogonalizes them against the normal. W holds the bitangent handedness.
func generateTangents(vertices []model.GPUVertex, indices []uint32) {
	tan := make([]common.Vec3, len(vertices))
	bitan := make([]common.Vec3, len(vertices))

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0 := common.Vec3(vertices[i0].Position)
		e1 := common.Vec3(vertices[i1].Position).Sub(p0)
		e2 := common.Vec3(vertices[i2].Position).Sub(p0)

		uv0, uv1, uv2 := vertices[i0].TexCoord, vertices[i1].TexCoord, vertices[i2].TexCoord
		du1, dv1 := uv1[0]-uv0[0], uv1[1]-uv0[1]
		du2, dv2 := uv2[0]-uv0[0], uv2[1]-uv0[1]
		det := du1*dv2 - dv1*du2
		if det == 0 {
			continue
		}
		r := 1 / det
		t := e1.Scale(dv2 * r).Sub(e2.Scale(dv1 * r))
		b := e2.Scale(du1 * r).Sub(e1.Scale(du2 * r))
		for _, ix := range [3]uint32{i0, i1, i2} {
			tan[ix] = tan[ix].Add(t)
			bitan[ix] = bitan[ix].Add(b)
		}
	}

	for i := range vertices {
		n := common.Vec3(vertices[i].Normal)
		ortho := tan[i].Sub(n.Scale(n.Dot(tan[i])))
		if ortho.Length() < 1e-6 {
			vertices[i].Tangent = [4]float32{1, 0, 0, 1}
			continue
		}
		ortho = ortho.Normalize()
		w := float32(1)
		if n.Cross(ortho).Dot(bitan[i]) < 0 {
			w = -1
		}
		vertices[i].Tangent = [4]float32{ortho[0], ortho[1], ortho[2], w}
	}
}
