package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUPointLightSource is the canonical WGSL definition of the PointLight struct.
// Matches GPUPointLight layout exactly (32 bytes).
//
//go:embed assets/point_light.wgsl
var GPUPointLightSource string

// GPUPointLight is the GPU-aligned representation of a single point light.
// The same record is read by every pass that consumes lights.
// Size: 32 bytes.
type GPUPointLight struct {
	Position  [3]float32 // offset  0: world-space position (12 bytes)
	Radius    float32    // offset 12: radius of influence (4 bytes)
	Color     [3]float32 // offset 16: RGB color (12 bytes)
	Intensity float32    // offset 28: intensity multiplier (4 bytes)
}

// Size returns the size of the GPUPointLight struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUPointLight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUPointLight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUPointLight) Marshal() []byte {
	buf := make([]byte, 32)
	g.marshalInto(buf)
	return buf
}

func (g *GPUPointLight) marshalInto(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Radius))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Color[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Color[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.Color[2]))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Intensity))
}

// ToGPUPointLight converts a PointLight to its GPU representation.
//
// Parameters:
//   - l: the light to convert
//
// Returns:
//   - GPUPointLight: the packed record
func ToGPUPointLight(l PointLight) GPUPointLight {
	return GPUPointLight{
		Position:  l.Position(),
		Radius:    l.Radius(),
		Color:     l.Color(),
		Intensity: l.Intensity(),
	}
}

// MarshalPointLights packs lights into a storage buffer payload in scene order.
// At least one zeroed record is written so the buffer binding is never empty.
//
// Parameters:
//   - lights: the scene lights
//
// Returns:
//   - []byte: max(len(lights), 1) * 32 bytes
func MarshalPointLights(lights []PointLight) []byte {
	buf := make([]byte, max(len(lights), 1)*32)
	for i, l := range lights {
		g := ToGPUPointLight(l)
		g.marshalInto(buf[i*32:])
	}
	return buf
}

// GPUTileUniformsSource is the canonical WGSL definition of the TileUniforms struct.
// Matches GPUTileUniforms layout exactly (32 bytes).
//
//go:embed assets/tile_uniforms.wgsl
var GPUTileUniformsSource string

// GPUTileUniforms describes the tile grid to the lighting resolve shader.
// Size: 32 bytes.
type GPUTileUniforms struct {
	TileSize uint32    // offset  0: tile edge in pixels
	TilesX   uint32    // offset  4: tile columns
	TilesY   uint32    // offset  8: tile rows
	Width    uint32    // offset 12: target width in pixels
	Height   uint32    // offset 16: target height in pixels
	_        [3]uint32 // offset 20: padding to 32 bytes
}

// Size returns the size of the GPUTileUniforms struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (u *GPUTileUniforms) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the GPUTileUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (u *GPUTileUniforms) Marshal() []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], u.TileSize)
	binary.LittleEndian.PutUint32(buf[4:8], u.TilesX)
	binary.LittleEndian.PutUint32(buf[8:12], u.TilesY)
	binary.LittleEndian.PutUint32(buf[12:16], u.Width)
	binary.LittleEndian.PutUint32(buf[16:20], u.Height)
	return buf
}
