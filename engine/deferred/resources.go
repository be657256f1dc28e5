package deferred

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/frame"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/oit"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// resID names a buffer shared by the frame's passes. It doubles as the buffer's binding slot on the
// resource owner provider.
type resID int

const (
	resFrame resID = iota
	resInstances
	resLights
	resTileUniforms
	resTileCounts
	resTileIndices
	resOITUniforms
	resHeads
	resNodes
	resCounter
	resTonemap
	resCount
)

var resLabels = [resCount]string{
	resFrame:        "Frame Uniform",
	resInstances:    "Instances",
	resLights:       "Point Lights",
	resTileUniforms: "Tile Uniforms",
	resTileCounts:   "Tile Counts",
	resTileIndices:  "Tile Indices",
	resOITUniforms:  "OIT Uniforms",
	resHeads:        "OIT Heads",
	resNodes:        "OIT Nodes",
	resCounter:      "OIT Counter",
	resTonemap:      "Tonemap Params",
}

var resUsages = [resCount]wgpu.BufferUsage{
	resFrame:        wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	resInstances:    wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	resLights:       wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	resTileUniforms: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	resTileCounts:   wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	resTileIndices:  wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	resOITUniforms:  wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	resHeads:        wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	resNodes:        wgpu.BufferUsageStorage,
	resCounter:      wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	resTonemap:      wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
}

// resMinSizes is the smallest size each buffer is created with: one record of the struct it holds,
// uniform blocks rounded up to 16 bytes.
var resMinSizes = [resCount]uint64{
	resFrame:        uniformSize((&frame.GPUFrameUniform{}).Size()),
	resInstances:    instanceSize,
	resLights:       lightSize,
	resTileUniforms: uniformSize((&light.GPUTileUniforms{}).Size()),
	resTileCounts:   indexSize,
	resTileIndices:  indexSize,
	resOITUniforms:  uniformSize((&oit.GPUOITUniforms{}).Size()),
	resHeads:        indexSize,
	resNodes:        uint64((&oit.GPUFragmentNode{}).Size()),
	resCounter:      indexSize,
	resTonemap:      uniformSize((&frame.GPUTonemapParams{}).Size()),
}

func uniformSize(size int) uint64 {
	return uint64(common.AlignUp(uint32(size), 16))
}

// targetID names an offscreen render target.
type targetID int

const (
	targetNone targetID = iota
	targetDepth
	targetAlbedo
	targetNormal
	targetLit
	targetComposited
	targetOutput
	targetCount
)

type targetSpec struct {
	label  string
	format wgpu.TextureFormat
	usage  wgpu.TextureUsage
}

var targetSpecs = [targetCount]targetSpec{
	targetDepth:      {"G-Buffer Depth", renderer.DepthFormat, wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding},
	targetAlbedo:     {"G-Buffer Albedo", renderer.AlbedoFormat, wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding},
	targetNormal:     {"G-Buffer Normal", renderer.NormalFormat, wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding},
	targetLit:        {"Lit", renderer.LitFormat, wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding},
	targetComposited: {"Lit Composited", renderer.LitFormat, wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding},
	targetOutput:     {"Tonemapped", renderer.OutputFormat, wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding},
}

// resources owns the shared buffers and the render targets of the frame.
// Every replacement of a buffer or target bumps version, which tells binding sets to rebuild.
type resources struct {
	owner   bind_group_provider.BindGroupProvider
	sizes   [resCount]uint64
	targets [targetCount]*renderer.RenderTarget
	version uint64
}

func newResources() *resources {
	return &resources{
		owner:   bind_group_provider.NewBindGroupProvider("Deferred Resources"),
		version: 1,
	}
}

func (res *resources) buffer(id resID) *wgpu.Buffer {
	return res.owner.Buffer(int(id))
}

func (res *resources) target(id targetID) *renderer.RenderTarget {
	return res.targets[id]
}

// ensureBuffer makes sure the buffer holds at least size bytes, and never less than resMinSizes,
// replacing it when it is too small. The buffer never shrinks.
func (res *resources) ensureBuffer(r renderer.Renderer, id resID, size uint64) error {
	size = max(size, resMinSizes[id])
	if res.buffer(id) != nil && res.sizes[id] >= size {
		return nil
	}
	buf, err := r.CreateBuffer(resLabels[id], size, resUsages[id])
	if err != nil {
		return fmt.Errorf("create %s buffer of %d bytes: %w", resLabels[id], size, err)
	}
	if old := res.buffer(id); old != nil {
		old.Release()
	}
	res.owner.SetBuffer(int(id), buf)
	res.sizes[id] = size
	res.version++
	return nil
}

// createTargets replaces every render target with one of the given size.
func (res *resources) createTargets(r renderer.Renderer, width, height uint32) error {
	for id := targetDepth; id < targetCount; id++ {
		spec := targetSpecs[id]
		t, err := r.CreateRenderTarget(spec.label, spec.format, width, height, spec.usage)
		if err != nil {
			return fmt.Errorf("create %s target: %w", spec.label, err)
		}
		res.targets[id].Release()
		res.targets[id] = t
	}
	res.version++
	return nil
}

func (res *resources) write(id resID, data []byte) bind_group_provider.BufferWrite {
	return bind_group_provider.BufferWrite{Provider: res.owner, Binding: int(id), Data: data}
}

func (res *resources) release() {
	for i := range res.targets {
		res.targets[i].Release()
		res.targets[i] = nil
	}
	res.owner.Release()
	res.sizes = [resCount]uint64{}
}

// nextCapacity returns the byte size a growable buffer is allocated with: the next power of two
// that holds count elements of elemSize bytes, and at least one element.
func nextCapacity(count int, elemSize uint64) uint64 {
	return common.NextPow2(max(uint64(count), 1) * elemSize)
}
