package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// Renderer owns the GPU device and the pipelines registered on it. A frame is recorded into
// one command encoder:
//
//	BeginCommands
//	  BeginRenderPass, DrawCall..., EndRenderPass      offscreen passes
//	  DispatchCompute...                               one compute pass each
//	  BeginPresent, DrawFullscreen, EndRenderPass      swapchain
//	Submit
//	Present
//
// Draws and dispatches name their pipeline by key.
type Renderer interface {
	// Pipeline returns the registered pipeline with the given key, or nil.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline, or nil when the key is unknown
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines creates the GPU objects for each pipeline and caches it by key.
	// Keys that are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the pipelines to register
	//
	// Returns:
	//   - error: the first creation failure
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize reconfigures the surface for a new window size.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	Resize(width, height int)

	// SurfaceFormat returns the swapchain texture format.
	SurfaceFormat() wgpu.TextureFormat

	// MaxStorageBufferBindingSize returns the device limit on a single storage binding in bytes.
	MaxStorageBufferBindingSize() uint64

	// SetPresentMode changes how frames reach the display. It applies on the next Resize.
	SetPresentMode(mode PresentMode)

	// InitMeshBuffers uploads vertex and index data and stores the buffers on provider.
	//
	// Parameters:
	//   - provider: receives the vertex and index buffers
	//   - vertexData: packed vertices
	//   - indexData: packed uint32 indices
	//   - indexCount: the number of indices
	//
	// Returns:
	//   - error: a buffer creation failure
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitBindGroup builds the bind group of provider from a layout. Buffers the provider does
	// not hold yet are created with the usage and MinBindingSize the layout implies. Textures
	// and samplers must be set beforehand.
	//
	// Parameters:
	//   - provider: the provider to complete
	//   - descriptor: the layout of the group
	//
	// Returns:
	//   - error: a missing texture or sampler, or a creation failure
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// InitTextureView uploads RGBA8 pixels and stores the texture view at a binding of provider.
	//
	// Parameters:
	//   - provider: the provider to store the view on
	//   - bindingKey: the binding index
	//   - stagingData: the decoded pixels
	//
	// Returns:
	//   - error: invalid staging data or a creation failure
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitSampler creates a sampler and stores it at a binding of provider. Zero fields of
	// samplerStagingData fall back to repeat addressing and linear filtering.
	//
	// Parameters:
	//   - provider: the provider to store the sampler on
	//   - bindingKey: the binding index
	//   - samplerStagingData: the sampler settings
	//
	// Returns:
	//   - error: a creation failure
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// CreateBuffer creates a buffer that is not owned by any provider.
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error)

	// CreateRenderTarget creates an offscreen 2D texture and its view. The caller releases it.
	CreateRenderTarget(label string, format wgpu.TextureFormat, width, height uint32, usage wgpu.TextureUsage) (*RenderTarget, error)

	// WriteBuffers queues each write into the provider buffer it targets. Writes to a
	// binding without a buffer are dropped.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// ReadBuffer copies the first size bytes of a CopySrc buffer back to the CPU. It waits
	// for the device to go idle.
	ReadBuffer(buf *wgpu.Buffer, size uint64) ([]byte, error)

	// BeginCommands opens the frame encoder.
	//
	// Returns:
	//   - error: a frame is already open, or the encoder could not be created
	BeginCommands() error

	// BeginRenderPass opens an offscreen render pass.
	//
	// Parameters:
	//   - spec: the attachments of the pass
	//
	// Returns:
	//   - error: ErrNoCommands, ErrPassOpen or an invalid spec
	BeginRenderPass(spec RenderPassSpec) error

	// EndRenderPass closes the open render pass, if any.
	EndRenderPass()

	// DrawCall records an indexed draw of instanceCount instances starting at firstInstance.
	// bindGroups are set at group indices 0..n-1.
	//
	// Parameters:
	//   - pipelineKey: the render pipeline
	//   - meshProvider: holds the vertex and index buffers
	//   - instanceCount: the number of instances
	//   - firstInstance: the instance_index of the first instance
	//   - bindGroups: the providers bound in group order
	//
	// Returns:
	//   - error: the key is not registered
	DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount, firstInstance uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// DrawFullscreen records a three-vertex draw without vertex buffers.
	//
	// Parameters:
	//   - pipelineKey: the render pipeline
	//   - bindGroups: the providers bound in group order
	//
	// Returns:
	//   - error: the key is not registered
	DrawFullscreen(pipelineKey string, bindGroups []bind_group_provider.BindGroupProvider) error

	// DispatchCompute records a compute pass that dispatches workGroupCount workgroups.
	//
	// Parameters:
	//   - pipelineKey: the compute pipeline
	//   - bindGroups: the providers bound in group order
	//   - workGroupCount: workgroups in x, y and z
	//
	// Returns:
	//   - error: the key is not registered
	DispatchCompute(pipelineKey string, bindGroups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// BeginPresent acquires the swapchain texture and opens a pass that clears it.
	BeginPresent() error

	// Submit closes any open pass and submits the frame encoder.
	Submit()

	// Present shows the swapchain texture and releases it. Call once per frame after Submit.
	Present()

	// AbortFrame drops the frame being recorded.
	AbortFrame()
}

type renderer struct {
	RendererBackend

	mu        sync.Mutex
	pipelines map[string]pipeline.Pipeline

	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
}

var _ Renderer = &renderer{}

// NewRenderer requests a device for the window's surface and configures the surface at the
// window's size. It panics when no adapter or device is available.
//
// Parameters:
//   - backendType: the GPU API, only BackendTypeWGPU exists
//   - window: the window to present to
//   - options: renderer options
//
// Returns:
//   - Renderer: the renderer
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{pipelines: make(map[string]pipeline.Pipeline)}
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		r.RendererBackend = newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter)
	default:
		panic(fmt.Sprintf("renderer: unsupported backend type %d", backendType))
	}

	if r.pendingPresentMode != nil {
		r.SetPresentMode(*r.pendingPresentMode)
	}
	r.ConfigureSurface(window.Width(), window.Height())
	return r
}

func (r *renderer) Resize(width, height int) {
	r.ConfigureSurface(width, height)
}

func (r *renderer) MaxStorageBufferBindingSize() uint64 {
	return r.Limits().MaxStorageBufferBindingSize
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelines[key]
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, ok := r.pipelines[key]; ok {
			continue
		}
		var err error
		switch p.Type() {
		case pipeline.PipelineTypeRender:
			err = r.RegisterRenderPipeline(p)
		case pipeline.PipelineTypeCompute:
			err = r.RegisterComputePipeline(p)
		default:
			err = fmt.Errorf("pipeline %q: unknown pipeline type %d", key, p.Type())
		}
		if err != nil {
			return err
		}
		r.pipelines[key] = p
	}
	return nil
}

func (r *renderer) registered(key string) (pipeline.Pipeline, error) {
	if p := r.Pipeline(key); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("renderer: pipeline %q is not registered", key)
}

func (r *renderer) DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount, firstInstance uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	p, err := r.registered(pipelineKey)
	if err != nil {
		return err
	}
	r.RendererBackend.DrawCall(p, meshProvider, instanceCount, firstInstance, bindGroups)
	return nil
}

func (r *renderer) DrawFullscreen(pipelineKey string, bindGroups []bind_group_provider.BindGroupProvider) error {
	p, err := r.registered(pipelineKey)
	if err != nil {
		return err
	}
	r.RendererBackend.DrawFullscreen(p, bindGroups)
	return nil
}

func (r *renderer) DispatchCompute(pipelineKey string, bindGroups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	p, err := r.registered(pipelineKey)
	if err != nil {
		return err
	}
	r.RendererBackend.DispatchCompute(p, bindGroups, workGroupCount)
	return nil
}
