package model

import (
	_ "embed"
	"encoding/binary"
	"math"
)

// Packed sizes of the vertex and instance records in bytes.
const (
	gpuVertexSize    = 64
	gpuModelDataSize = 64
)

// GPUVertexSource declares VertexInput, the WGSL view of GPUVertex.
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// GPUModelDataSource declares ModelData, one column-major mat4x4<f32> model matrix per
// instance. Batches index the shared instance array with instance_index.
//
//go:embed assets/model_data.wgsl
var GPUModelDataSource string

// GPUVertex is one mesh vertex as the geometry shaders read it. The fields are packed in
// declaration order with no padding.
type GPUVertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
	Color    [4]float32
	// Tangent.w is the bitangent sign.
	Tangent [4]float32
}

// AppendBinary appends the little-endian encoding of v to buf. It satisfies
// encoding.BinaryAppender and never fails.
//
// Parameters:
//   - buf: the destination, may be nil
//
// Returns:
//   - []byte: buf extended by 64 bytes
//   - error: always nil
func (v *GPUVertex) AppendBinary(buf []byte) ([]byte, error) {
	for _, part := range [...][]float32{v.Position[:], v.Normal[:], v.TexCoord[:], v.Color[:], v.Tangent[:]} {
		buf = appendFloats(buf, part)
	}
	return buf, nil
}

// MarshalModelData packs model matrices into the instance buffer layout. A single zero
// record is written for an empty list so the buffer can always be bound.
//
// Parameters:
//   - transforms: the model matrices in draw order
//
// Returns:
//   - []byte: the packed instance data
func MarshalModelData(transforms [][16]float32) []byte {
	buf := make([]byte, 0, max(len(transforms), 1)*gpuModelDataSize)
	for i := range transforms {
		buf = appendFloats(buf, transforms[i][:])
	}
	if len(transforms) == 0 {
		buf = buf[:gpuModelDataSize]
	}
	return buf
}

func appendFloats(buf []byte, values []float32) []byte {
	for _, f := range values {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}
