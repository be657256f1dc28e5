package renderer

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Texture formats of the deferred frame's offscreen targets.
const (
	// DepthFormat is the G-buffer depth target, cleared to 1.0 with depth in [0, 1].
	DepthFormat = wgpu.TextureFormatDepth32Float

	// AlbedoFormat is the G-buffer base color target.
	AlbedoFormat = wgpu.TextureFormatRGBA8UnormSrgb

	// NormalFormat is the G-buffer world normal target, encoded as n*0.5+0.5.
	NormalFormat = wgpu.TextureFormatRGBA8Unorm

	// LitFormat is the HDR lit color written by the lighting and transparency resolves.
	LitFormat = wgpu.TextureFormatRGBA16Float

	// OutputFormat is the tonemapped color blitted to the surface.
	OutputFormat = wgpu.TextureFormatRGBA8Unorm
)

var (
	// ErrNoAttachments is returned when a render pass has neither color targets nor depth.
	ErrNoAttachments = errors.New("renderer: render pass has no attachments")

	// ErrNoCommands is returned when a pass is encoded outside BeginCommands / Submit.
	ErrNoCommands = errors.New("renderer: no command encoder; call BeginCommands first")

	// ErrPassOpen is returned when a pass is started while another render pass is open.
	ErrPassOpen = errors.New("renderer: a render pass is already open")
)

// RenderTarget is an offscreen texture together with its default view.
type RenderTarget struct {
	Label   string
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Format  wgpu.TextureFormat
	Width   uint32
	Height  uint32
}

// Release frees the view and the texture. Calling Release on a nil target is a no-op.
func (t *RenderTarget) Release() {
	if t == nil {
		return
	}
	if t.View != nil {
		t.View.Release()
		t.View = nil
	}
	if t.Texture != nil {
		t.Texture.Release()
		t.Texture = nil
	}
}

// RenderPassSpec describes the attachments of an offscreen render pass.
type RenderPassSpec struct {
	// Label names the pass for GPU debugging tools.
	Label string

	// ColorTargets are bound to color attachments 0..n-1 and always cleared.
	ColorTargets []*RenderTarget

	// ClearColors holds one clear value per color target; missing entries clear to transparent black.
	ClearColors []wgpu.Color

	// Depth is the optional depth attachment.
	Depth *RenderTarget

	// DepthReadOnly binds Depth for testing only. It cannot be combined with ClearDepth.
	DepthReadOnly bool

	// ClearDepth clears Depth to 1.0; otherwise its previous contents are loaded.
	ClearDepth bool
}

// renderPassDescriptor converts a RenderPassSpec into the wgpu descriptor.
func renderPassDescriptor(spec RenderPassSpec) (*wgpu.RenderPassDescriptor, error) {
	if len(spec.ColorTargets) == 0 && spec.Depth == nil {
		return nil, fmt.Errorf("%s: %w", spec.Label, ErrNoAttachments)
	}
	if spec.DepthReadOnly && spec.ClearDepth {
		return nil, fmt.Errorf("%s: cannot clear a read-only depth attachment", spec.Label)
	}

	desc := &wgpu.RenderPassDescriptor{
		Label:            spec.Label,
		ColorAttachments: make([]wgpu.RenderPassColorAttachment, len(spec.ColorTargets)),
	}
	for i, target := range spec.ColorTargets {
		if target == nil {
			return nil, fmt.Errorf("%s: color target %d is nil", spec.Label, i)
		}
		clear := wgpu.Color{}
		if i < len(spec.ClearColors) {
			clear = spec.ClearColors[i]
		}
		desc.ColorAttachments[i] = wgpu.RenderPassColorAttachment{
			View:       target.View,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clear,
		}
	}

	if spec.Depth != nil {
		depth := &wgpu.RenderPassDepthStencilAttachment{
			View:            spec.Depth.View,
			DepthClearValue: 1.0,
			DepthReadOnly:   spec.DepthReadOnly,
		}
		switch {
		case spec.DepthReadOnly:
			// read-only attachments must leave both ops undefined
		case spec.ClearDepth:
			depth.DepthLoadOp = wgpu.LoadOpClear
			depth.DepthStoreOp = wgpu.StoreOpStore
		default:
			depth.DepthLoadOp = wgpu.LoadOpLoad
			depth.DepthStoreOp = wgpu.StoreOpStore
		}
		desc.DepthStencilAttachment = depth
	}
	return desc, nil
}

// DispatchSize returns the number of workgroups needed to cover a width x height grid
// with the given workgroup size. Zero workgroup dimensions are treated as 1.
//
// Parameters:
//   - width: the grid width in invocations
//   - height: the grid height in invocations
//   - workgroup: the shader's @workgroup_size
//
// Returns:
//   - [3]uint32: the workgroup counts in x, y, and z
func DispatchSize(width, height uint32, workgroup [3]uint32) [3]uint32 {
	wx, wy := max(workgroup[0], 1), max(workgroup[1], 1)
	return [3]uint32{(width + wx - 1) / wx, (height + wy - 1) / wy, 1}
}

// bindingKind classifies a bind group layout entry by the resource it expects.
type bindingKind int

const (
	bindingKindBuffer bindingKind = iota
	bindingKindTexture
	bindingKindStorageTexture
	bindingKindSampler
)

func classifyBinding(entry wgpu.BindGroupLayoutEntry) bindingKind {
	switch {
	case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
		return bindingKindTexture
	case entry.StorageTexture.Access != wgpu.StorageTextureAccessUndefined:
		return bindingKindStorageTexture
	case entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
		return bindingKindSampler
	default:
		return bindingKindBuffer
	}
}

// bufferUsage returns the usage flags needed for a buffer bound at the given entry.
func bufferUsage(entry wgpu.BindGroupLayoutEntry) wgpu.BufferUsage {
	switch entry.Buffer.Type {
	case wgpu.BufferBindingTypeUniform:
		return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
		return wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	default:
		return wgpu.BufferUsageCopyDst
	}
}

// alignSize rounds a buffer size up to a multiple of 4, the granularity of queue writes.
func alignSize(size uint64) uint64 {
	return (size + 3) &^ 3
}
