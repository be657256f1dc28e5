package material

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialParamsSource is the canonical WGSL definition of the MaterialParams struct.
// Matches GPUMaterialParams layout exactly (32 bytes, std140 compatible).
//
//go:embed assets/material_params.wgsl
var GPUMaterialParamsSource string

// GPUMaterialParams is the per-material uniform read by the geometry and transparency fragment shaders.
// Matches the WGSL MaterialParams struct layout exactly (see GPUMaterialParamsSource).
// Size: 32 bytes.
type GPUMaterialParams struct {
	BaseColor [4]float32 // offset  0: RGBA multiplier (16 bytes)
	HasAlbedo uint32     // offset 16: 1 when the albedo texture is meaningful (4 bytes)
	Blend     uint32     // offset 20: the BlendMode, carried into transparency fragments (4 bytes)
	_         [2]uint32  // offset 24: padding to 32 bytes (8 bytes)
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, 32)
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.BaseColor[i]))
	}
	binary.LittleEndian.PutUint32(buf[16:20], g.HasAlbedo)
	binary.LittleEndian.PutUint32(buf[20:24], g.Blend)
	return buf
}
