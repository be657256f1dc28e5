package frame

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// GPUFrameUniformSource is the canonical WGSL definition of the FrameUniform struct.
// Matches GPUFrameUniform layout exactly (160 bytes).
//
//go:embed assets/frame_uniform.wgsl
var GPUFrameUniformSource string

// GPUFrameUniform holds the per-frame camera and sun data shared by every pass.
// Size: 160 bytes.
type GPUFrameUniform struct {
	ViewProj    [16]float32 // offset   0: view-projection matrix (64 bytes)
	InvViewProj [16]float32 // offset  64: inverse view-projection matrix (64 bytes)
	SunColor    [3]float32  // offset 128: sun RGB color (12 bytes)
	LightCount  uint32      // offset 140: number of point lights in the light buffer
	SunDir      [3]float32  // offset 144: normalized direction towards the sun (12 bytes)
	_           uint32      // offset 156: padding to 160 bytes
}

// NewFrameUniform builds the frame uniform from camera matrices and the sun.
// The sun direction is normalized; a zero vector stays zero.
//
// Parameters:
//   - viewProj: the camera view-projection matrix
//   - invViewProj: its inverse
//   - lightCount: number of point lights
//   - sunDir: direction towards the sun
//   - sunColor: sun RGB color
//
// Returns:
//   - GPUFrameUniform: the packed uniform
func NewFrameUniform(viewProj, invViewProj [16]float32, lightCount uint32, sunDir, sunColor common.Vec3) GPUFrameUniform {
	return GPUFrameUniform{
		ViewProj:    viewProj,
		InvViewProj: invViewProj,
		SunColor:    sunColor,
		LightCount:  lightCount,
		SunDir:      sunDir.Normalize(),
	}
}

// Size returns the size of the GPUFrameUniform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (u *GPUFrameUniform) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the GPUFrameUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 160-byte buffer ready for GPU upload.
func (u *GPUFrameUniform) Marshal() []byte {
	buf := make([]byte, 160)
	for i, v := range u.ViewProj {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	for i, v := range u.InvViewProj {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(v))
	}
	for i, v := range u.SunColor {
		binary.LittleEndian.PutUint32(buf[128+i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[140:144], u.LightCount)
	for i, v := range u.SunDir {
		binary.LittleEndian.PutUint32(buf[144+i*4:], math.Float32bits(v))
	}
	return buf
}

// DebugView selects which buffer the tonemap pass writes to the screen.
type DebugView uint32

const (
	DebugViewLit DebugView = iota
	DebugViewAlbedo
	DebugViewNormal
	debugViewCount
)

func (d DebugView) String() string {
	switch d {
	case DebugViewLit:
		return "lit"
	case DebugViewAlbedo:
		return "albedo"
	case DebugViewNormal:
		return "normal"
	}
	return "unknown"
}

// Next returns the following debug view, wrapping back to DebugViewLit.
func (d DebugView) Next() DebugView {
	return (d + 1) % debugViewCount
}

// ParseDebugView maps a configuration name to a DebugView.
//
// Parameters:
//   - name: one of "lit", "albedo" or "normal"
//
// Returns:
//   - DebugView: the matching view
//   - bool: false if the name is unknown
func ParseDebugView(name string) (DebugView, bool) {
	for d := DebugViewLit; d < debugViewCount; d++ {
		if d.String() == name {
			return d, true
		}
	}
	return DebugViewLit, false
}

// GPUTonemapParamsSource is the canonical WGSL definition of the TonemapParams struct.
// Matches GPUTonemapParams layout exactly (16 bytes).
//
//go:embed assets/tonemap_params.wgsl
var GPUTonemapParamsSource string

// GPUTonemapParams controls the tonemap pass.
// Size: 16 bytes.
type GPUTonemapParams struct {
	Exposure  float32   // offset  0: linear exposure multiplier
	Gamma     float32   // offset  4: output gamma
	DebugView DebugView // offset  8: buffer selection
	SRGBOut   uint32    // offset 12: 1 when the surface re-encodes to sRGB, so the present pass decodes gamma first
}

// Size returns the size of the GPUTonemapParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (p *GPUTonemapParams) Size() int {
	return int(unsafe.Sizeof(*p))
}

// Marshal serializes the GPUTonemapParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (p *GPUTonemapParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.Exposure))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.Gamma))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(p.DebugView))
	binary.LittleEndian.PutUint32(buf[12:16], p.SRGBOut)
	return buf
}
