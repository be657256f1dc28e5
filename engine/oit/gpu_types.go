package oit

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

const fragmentNodeSize = 32

// GPUFragmentNodeSource is the canonical WGSL definition of the FragmentNode struct.
// Matches GPUFragmentNode layout exactly (32 bytes).
//
//go:embed assets/fragment_node.wgsl
var GPUFragmentNodeSource string

// GPUFragmentNode is one entry of the fragment pool.
// Size: 32 bytes.
type GPUFragmentNode struct {
	Color [4]float32 // offset  0: shaded RGBA color (16 bytes)
	Depth float32    // offset 16: fragment depth in [0,1]
	Next  uint32     // offset 20: index of the next node, EmptyHead terminates
	Blend uint32     // offset 24: BlendAdditive for additive fragments, otherwise composited with "over"
	_     uint32     // offset 28: padding to 32 bytes
}

// Size returns the size of the GPUFragmentNode struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (n *GPUFragmentNode) Size() int {
	return int(unsafe.Sizeof(*n))
}

// Marshal serializes the GPUFragmentNode struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (n *GPUFragmentNode) Marshal() []byte {
	buf := make([]byte, fragmentNodeSize)
	for i, v := range n.Color {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(n.Depth))
	binary.LittleEndian.PutUint32(buf[20:24], n.Next)
	binary.LittleEndian.PutUint32(buf[24:28], n.Blend)
	return buf
}

// GPUOITUniformsSource is the canonical WGSL definition of the OITUniforms struct.
// Matches GPUOITUniforms layout exactly (16 bytes).
//
//go:embed assets/oit_uniforms.wgsl
var GPUOITUniformsSource string

// GPUOITUniforms describes the list storage to the clear, accumulate and resolve passes.
// Size: 16 bytes.
type GPUOITUniforms struct {
	Width    uint32 // offset  0: target width in pixels
	Height   uint32 // offset  4: target height in pixels
	Capacity uint32 // offset  8: fragment pool capacity
	_        uint32 // offset 12: padding
}

// Size returns the size of the GPUOITUniforms struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (u *GPUOITUniforms) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the GPUOITUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (u *GPUOITUniforms) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], u.Width)
	binary.LittleEndian.PutUint32(buf[4:8], u.Height)
	binary.LittleEndian.PutUint32(buf[8:12], u.Capacity)
	return buf
}
