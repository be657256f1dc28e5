package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType tells render pipelines from compute pipelines.
type PipelineType int

const (
	PipelineTypeCompute PipelineType = iota
	PipelineTypeRender
)

// Pipeline is the device-independent description of a render or compute pipeline. The renderer
// backend turns it into a GPU object with SetRenderPipeline or SetComputePipeline; everything
// else is fixed at construction.
type Pipeline interface {
	// Type returns whether this is a render or compute pipeline.
	Type() PipelineType

	// PipelineKey returns the name the renderer registers the pipeline under.
	PipelineKey() string

	// Shader returns the attached shader for a stage, or nil.
	//
	// Parameters:
	//   - shaderType: the stage
	//
	// Returns:
	//   - shader.Shader: the shader, nil when the stage is not attached
	Shader(shaderType shader.ShaderType) shader.Shader

	// Pipeline returns the *wgpu.RenderPipeline or *wgpu.ComputePipeline once created, typed
	// as any. The value is a typed nil before creation.
	Pipeline() any

	// ColorTargets returns a copy of the color attachment formats.
	ColorTargets() []wgpu.TextureFormat

	// DepthFormat returns the depth attachment format, wgpu.TextureFormatUndefined without one.
	DepthFormat() wgpu.TextureFormat

	// PrimitiveState returns the triangle list rasterizer state.
	PrimitiveState() wgpu.PrimitiveState

	// ColorTargetStates returns one unblended, fully written target per color format.
	ColorTargetStates() []wgpu.ColorTargetState

	// DepthStencilState returns the depth state, or nil without a depth attachment. Stencil
	// is never used.
	DepthStencilState() *wgpu.DepthStencilState

	// VertexBuffers flattens the vertex shader's layouts in slot order.
	VertexBuffers() []wgpu.VertexBufferLayout

	// BindGroupLayoutDescriptor returns group g merged across every attached shader. Bind
	// groups used with this pipeline must be created from it.
	//
	// Parameters:
	//   - g: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the merged layout, empty when no stage uses g
	BindGroupLayoutDescriptor(g int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors returns the merged layouts keyed by group.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// GroupCount returns one past the highest used group, the length of the pipeline layout.
	GroupCount() int

	// Validate reports a missing stage or a render pipeline that writes nothing.
	//
	// Returns:
	//   - error: the first problem found, or nil
	Validate() error

	SetRenderPipeline(p *wgpu.RenderPipeline)
	SetComputePipeline(p *wgpu.ComputePipeline)

	// Release frees the GPU pipeline if one was created.
	Release()
}

type pipeline struct {
	pipelineType PipelineType
	pipelineKey  string

	vertexShader, fragmentShader, computeShader shader.Shader

	renderPipeline  *wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline

	colorTargets []wgpu.TextureFormat
	depthFormat  wgpu.TextureFormat
	depthCompare wgpu.CompareFunction
	depthWrite   bool
	cullMode     wgpu.CullMode

	layouts map[int]wgpu.BindGroupLayoutDescriptor
}

var _ Pipeline = &pipeline{}

var (
	ErrMissingVertexShader  = errors.New("render pipeline requires a vertex shader")
	ErrMissingFragment      = errors.New("color targets require a fragment shader")
	ErrNoAttachments        = errors.New("render pipeline has no attachments")
	ErrMissingComputeShader = errors.New("compute pipeline requires a compute shader")
)

// NewPipeline describes a pipeline. Render pipelines start with a single RGBA8 color target,
// no depth attachment and no culling.
//
// Parameters:
//   - pipelineKey: the registration name
//   - pipelineType: render or compute
//   - opts: stage and state options
//
// Returns:
//   - Pipeline: the pipeline, not yet created on a device
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		pipelineType: pipelineType,
		colorTargets: []wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm},
		depthCompare: wgpu.CompareFunctionAlways,
		cullMode:     wgpu.CullModeNone,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.layouts = mergeBindGroupLayouts(p.vertexShader, p.fragmentShader, p.computeShader)
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	case shader.ShaderTypeCompute:
		return p.computeShader
	}
	return nil
}

func (p *pipeline) Pipeline() any {
	if p.pipelineType == PipelineTypeCompute {
		return p.computePipeline
	}
	return p.renderPipeline
}

func (p *pipeline) ColorTargets() []wgpu.TextureFormat {
	return slices.Clone(p.colorTargets)
}

func (p *pipeline) DepthFormat() wgpu.TextureFormat {
	return p.depthFormat
}

func (p *pipeline) PrimitiveState() wgpu.PrimitiveState {
	return wgpu.PrimitiveState{
		Topology:  wgpu.PrimitiveTopologyTriangleList,
		FrontFace: wgpu.FrontFaceCCW,
		CullMode:  p.cullMode,
	}
}

func (p *pipeline) ColorTargetStates() []wgpu.ColorTargetState {
	states := make([]wgpu.ColorTargetState, len(p.colorTargets))
	for i, format := range p.colorTargets {
		states[i] = wgpu.ColorTargetState{Format: format, WriteMask: wgpu.ColorWriteMaskAll}
	}
	return states
}

func (p *pipeline) DepthStencilState() *wgpu.DepthStencilState {
	if p.depthFormat == wgpu.TextureFormatUndefined {
		return nil
	}
	keep := wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways}
	return &wgpu.DepthStencilState{
		Format:            p.depthFormat,
		DepthWriteEnabled: p.depthWrite,
		DepthCompare:      p.depthCompare,
		StencilFront:      keep,
		StencilBack:       keep,
	}
}

func (p *pipeline) VertexBuffers() []wgpu.VertexBufferLayout {
	if p.vertexShader == nil {
		return nil
	}
	var buffers []wgpu.VertexBufferLayout
	for slot := range len(p.vertexShader.VertexLayouts()) {
		buffers = append(buffers, p.vertexShader.VertexLayout(slot)...)
	}
	return buffers
}

func (p *pipeline) BindGroupLayoutDescriptor(g int) wgpu.BindGroupLayoutDescriptor {
	return p.layouts[g]
}

func (p *pipeline) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return p.layouts
}

func (p *pipeline) GroupCount() int {
	n := 0
	for g := range p.layouts {
		n = max(n, g+1)
	}
	return n
}

func (p *pipeline) Validate() error {
	var err error
	switch p.pipelineType {
	case PipelineTypeRender:
		switch {
		case p.vertexShader == nil:
			err = ErrMissingVertexShader
		case p.fragmentShader == nil && len(p.colorTargets) > 0:
			err = ErrMissingFragment
		case p.fragmentShader == nil && p.depthFormat == wgpu.TextureFormatUndefined:
			err = ErrNoAttachments
		}
	case PipelineTypeCompute:
		if p.computeShader == nil {
			err = ErrMissingComputeShader
		}
	default:
		err = fmt.Errorf("unknown pipeline type %d", p.pipelineType)
	}
	if err != nil {
		return fmt.Errorf("pipeline %q: %w", p.pipelineKey, err)
	}
	return nil
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
}

// mergeBindGroupLayouts unions the layouts of the given shaders. An entry declared by more
// than one stage keeps the first declaration with the stage visibilities OR-ed.
func mergeBindGroupLayouts(shaders ...shader.Shader) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)
	for _, s := range shaders {
		if s == nil {
			continue
		}
		for g, desc := range s.BindGroupLayoutDescriptors() {
			entries := merged[g].Entries
			for _, e := range desc.Entries {
				i := slices.IndexFunc(entries, func(x wgpu.BindGroupLayoutEntry) bool { return x.Binding == e.Binding })
				if i < 0 {
					entries = append(entries, e)
					continue
				}
				entries[i].Visibility |= e.Visibility
			}
			merged[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
		}
	}
	for _, desc := range merged {
		slices.SortFunc(desc.Entries, func(a, b wgpu.BindGroupLayoutEntry) int {
			return int(a.Binding) - int(b.Binding)
		})
	}
	return merged
}
