package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   PresentMode
	limits        wgpu.Limits

	// Frame state: one encoder carries every pass of a frame in order.
	frameEncoder *wgpu.CommandEncoder
	renderPass   *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

// wgpuRendererBackend is the device side of a Renderer. Draws and dispatches take the
// pipeline itself; the Renderer resolves keys first.
type wgpuRendererBackend interface {
	ConfigureSurface(width, height int)
	SurfaceFormat() wgpu.TextureFormat
	Limits() wgpu.Limits
	SetPresentMode(mode PresentMode)

	RegisterRenderPipeline(p pipeline.Pipeline) error
	RegisterComputePipeline(p pipeline.Pipeline) error

	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error)
	CreateRenderTarget(label string, format wgpu.TextureFormat, width, height uint32, usage wgpu.TextureUsage) (*RenderTarget, error)
	WriteBuffers(writes []bind_group_provider.BufferWrite)
	ReadBuffer(buf *wgpu.Buffer, size uint64) ([]byte, error)

	BeginCommands() error
	BeginRenderPass(spec RenderPassSpec) error
	EndRenderPass()
	DrawCall(p pipeline.Pipeline, meshProvider bind_group_provider.BindGroupProvider, instanceCount, firstInstance uint32, bindGroups []bind_group_provider.BindGroupProvider)
	DrawFullscreen(p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider)
	DispatchCompute(p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32)
	BeginPresent() error
	Submit()
	Present()
	AbortFrame()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:       &sync.Mutex{},
		instance: wgpu.CreateInstance(nil),
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(fmt.Sprintf("renderer: no adapter: %v", err))
	}
	w.adapter = a

	// The transparency pool is sized from the storage binding limit, so take the adapter's.
	supported := a.GetLimits()
	limits := wgpu.DefaultLimits()
	limits.MaxStorageBufferBindingSize = max(limits.MaxStorageBufferBindingSize, supported.Limits.MaxStorageBufferBindingSize)
	limits.MaxBufferSize = max(limits.MaxBufferSize, supported.Limits.MaxBufferSize)

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		panic(fmt.Sprintf("renderer: no device: %v", err))
	}
	w.limits = limits
	w.device = d
	w.queue = d.GetQueue()

	return w
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(max(width, 1)),
		Height:      uint32(max(height, 1)),
		PresentMode: b.presentMode.surfaceMode(capabilities.PresentModes),
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) Limits() wgpu.Limits {
	return b.limits
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.presentMode = mode
}

// createPipelineLayout creates one bind group layout per group index from 0 to GroupCount-1.
// Undeclared groups get an empty layout so the pipeline layout has no holes.
func (b *wgpuRendererBackendImpl) createPipelineLayout(p pipeline.Pipeline) (*wgpu.PipelineLayout, error) {
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, p.GroupCount())
	for g := range bindGroupLayouts {
		desc := p.BindGroupLayoutDescriptor(g)
		desc.Label = fmt.Sprintf("%s group %d", p.PipelineKey(), g)
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		bindGroupLayouts[g] = layout
	}
	return b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
}

func (b *wgpuRendererBackendImpl) createModule(s shader.Shader) (*wgpu.ShaderModule, error) {
	return b.device.CreateShaderModule(s.Module())
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	key := p.PipelineKey()

	vertexShader := p.Shader(shader.ShaderTypeVertex)
	vs, err := b.createModule(vertexShader)
	if err != nil {
		return fmt.Errorf("pipeline %q: vertex module: %w", key, err)
	}
	layout, err := b.createPipelineLayout(p)
	if err != nil {
		return fmt.Errorf("pipeline %q: %w", key, err)
	}

	descriptor := &wgpu.RenderPipelineDescriptor{
		Label:  key,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    p.VertexBuffers(),
		},
		Primitive:    p.PrimitiveState(),
		DepthStencil: p.DepthStencilState(),
		Multisample:  wgpu.MultisampleState{Count: 1, Mask: ^uint32(0)},
	}
	if fragmentShader := p.Shader(shader.ShaderTypeFragment); fragmentShader != nil {
		fs, err := b.createModule(fragmentShader)
		if err != nil {
			return fmt.Errorf("pipeline %q: fragment module: %w", key, err)
		}
		descriptor.Fragment = &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    p.ColorTargetStates(),
		}
	}

	created, err := b.device.CreateRenderPipeline(descriptor)
	if err != nil {
		return fmt.Errorf("pipeline %q: %w", key, err)
	}
	p.SetRenderPipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}

	computeShader := p.Shader(shader.ShaderTypeCompute)
	s, err := b.createModule(computeShader)
	if err != nil {
		return fmt.Errorf("pipeline %q: compute module: %w", p.PipelineKey(), err)
	}

	layout, err := b.createPipelineLayout(p)
	if err != nil {
		return fmt.Errorf("pipeline %q: %w", p.PipelineKey(), err)
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey(),
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return fmt.Errorf("pipeline %q: %w", p.PipelineKey(), err)
	}

	p.SetComputePipeline(created)
	return nil
}

// uploadLocked creates a buffer sized for data and queues data into it.
func (b *wgpuRendererBackendImpl) uploadLocked(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  alignSize(uint64(len(data))),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// texture2DLocked creates a single-mip 2D texture.
func (b *wgpuRendererBackendImpl) texture2DLocked(label string, format wgpu.TextureFormat, size wgpu.Extent3D, usage wgpu.TextureUsage) (*wgpu.Texture, error) {
	return b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          size,
		Format:        format,
		Usage:         usage,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
}

func (b *wgpuRendererBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(vertexData) > 0 {
		vb, err := b.uploadLocked(provider.Label()+" Vertices", wgpu.BufferUsageVertex, vertexData)
		if err != nil {
			return err
		}
		provider.SetVertexBuffer(vb)
	}
	if len(indexData) > 0 {
		ib, err := b.uploadLocked(provider.Label()+" Indices", wgpu.BufferUsageIndex, indexData)
		if err != nil {
			return err
		}
		provider.SetIndexBuffer(ib)
	}
	provider.SetIndexCount(indexCount)
	return nil
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.device.CreateBuffer(&wgpu.BufferDescriptor{Label: label, Size: alignSize(max(size, 4)), Usage: usage})
}

func (b *wgpuRendererBackendImpl) CreateRenderTarget(label string, format wgpu.TextureFormat, width, height uint32, usage wgpu.TextureUsage) (*RenderTarget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rt := &RenderTarget{Label: label, Format: format, Width: max(width, 1), Height: max(height, 1)}
	var err error
	rt.Texture, err = b.texture2DLocked(label, format, wgpu.Extent3D{Width: rt.Width, Height: rt.Height, DepthOrArrayLayers: 1}, usage)
	if err != nil {
		return nil, fmt.Errorf("render target %q: %w", label, err)
	}
	if rt.View, err = rt.Texture.CreateView(nil); err != nil {
		rt.Texture.Release()
		return nil, fmt.Errorf("render target %q view: %w", label, err)
	}
	return rt, nil
}

// bindGroupEntryLocked resolves one layout entry against provider. Buffer bindings the
// provider has no buffer for get a fresh one sized by the layout.
func (b *wgpuRendererBackendImpl) bindGroupEntryLocked(provider bind_group_provider.BindGroupProvider, entry wgpu.BindGroupLayoutEntry) (wgpu.BindGroupEntry, error) {
	binding := int(entry.Binding)
	out := wgpu.BindGroupEntry{Binding: entry.Binding}

	switch classifyBinding(entry) {
	case bindingKindTexture, bindingKindStorageTexture:
		if out.TextureView = provider.TextureView(binding); out.TextureView == nil {
			return out, fmt.Errorf("%s: binding %d: no texture view", provider.Label(), binding)
		}
	case bindingKindSampler:
		if out.Sampler = provider.Sampler(binding); out.Sampler == nil {
			return out, fmt.Errorf("%s: binding %d: no sampler", provider.Label(), binding)
		}
	default:
		out.Buffer, out.Size = provider.Buffer(binding), wgpu.WholeSize
		if out.Buffer != nil {
			break
		}
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("%s Binding %d", provider.Label(), binding),
			Size:  alignSize(max(entry.Buffer.MinBindingSize, 4)),
			Usage: bufferUsage(entry),
		})
		if err != nil {
			return out, fmt.Errorf("%s: binding %d: %w", provider.Label(), binding, err)
		}
		provider.SetBuffer(binding, buf)
		out.Buffer = buf
	}
	return out, nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(descriptor.Entries) == 0 {
		return nil
	}

	if provider.BindGroupLayout() == nil {
		descriptor.Label = provider.Label() + " Layout"
		created, err := b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return fmt.Errorf("%s: layout: %w", provider.Label(), err)
		}
		provider.SetBindGroupLayout(created)
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(descriptor.Entries))
	for _, le := range descriptor.Entries {
		e, err := b.bindGroupEntryLocked(provider, le)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}

	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label(),
		Layout:  provider.BindGroupLayout(),
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", provider.Label(), err)
	}
	provider.SetBindGroup(group)
	return nil
}

func (b *wgpuRendererBackendImpl) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	w, h := stagingData.Width, stagingData.Height
	if w == 0 || h == 0 || len(stagingData.Pixels) < int(w*h*4) {
		return fmt.Errorf("%s: texture staging data is %dx%d with %d bytes", provider.Label(), w, h, len(stagingData.Pixels))
	}

	extent := wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}
	tex, err := b.texture2DLocked(provider.Label()+" Texture", wgpu.TextureFormatRGBA8UnormSrgb, extent,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	if err != nil {
		return fmt.Errorf("%s: texture: %w", provider.Label(), err)
	}
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: tex, Aspect: wgpu.TextureAspectAll},
		stagingData.Pixels,
		&wgpu.TextureDataLayout{BytesPerRow: w * 4, RowsPerImage: h},
		&extent,
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("%s: texture view: %w", provider.Label(), err)
	}
	provider.SetTextureView(bindingKey, view)
	return nil
}

// samplerDescriptor fills the zero fields of sd with repeat addressing and linear filtering.
func samplerDescriptor(label string, sd common.SamplerStagingData) *wgpu.SamplerDescriptor {
	repeat := wgpu.AddressModeRepeat
	return &wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(sd.AddressModeU, repeat),
		AddressModeV:  common.Coalesce(sd.AddressModeV, repeat),
		AddressModeW:  common.Coalesce(sd.AddressModeW, repeat),
		MagFilter:     common.Coalesce(sd.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(sd.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(sd.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   sd.LodMinClamp,
		LodMaxClamp:   common.Coalesce(sd.LodMaxClamp, 32),
		MaxAnisotropy: common.Coalesce(sd.MaxAnisotropy, 1),
		Compare:       sd.Compare,
	}
}

func (b *wgpuRendererBackendImpl) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.device.CreateSampler(samplerDescriptor(provider.Label()+" Sampler", samplerStagingData))
	if err != nil {
		return fmt.Errorf("%s: sampler: %w", provider.Label(), err)
	}
	provider.SetSampler(bindingKey, s)
	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil || len(w.Data) == 0 {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuRendererBackendImpl) ReadBuffer(buf *wgpu.Buffer, size uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	size = alignSize(size)
	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Readback Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	encoder.CopyBufferToBuffer(buf, 0, staging, 0, size)
	commands, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	b.queue.Submit(commands)
	commands.Release()

	done := make(chan error, 1)
	err = staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			done <- fmt.Errorf("readback: map failed: %v", status)
			return
		}
		done <- nil
	})
	if err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	b.device.Poll(true, nil)
	if err := <-done; err != nil {
		return nil, err
	}

	mapped := staging.GetMappedRange(0, uint(size))
	out := make([]byte, len(mapped))
	copy(out, mapped)
	staging.Unmap()
	return out, nil
}

func (b *wgpuRendererBackendImpl) BeginCommands() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		return fmt.Errorf("renderer: previous frame not submitted")
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.frameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) BeginRenderPass(spec RenderPassSpec) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoCommands
	}
	if b.renderPass != nil {
		return ErrPassOpen
	}
	desc, err := renderPassDescriptor(spec)
	if err != nil {
		return err
	}
	b.renderPass = b.frameEncoder.BeginRenderPass(desc)
	return nil
}

func (b *wgpuRendererBackendImpl) EndRenderPass() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.renderPass == nil {
		return
	}
	b.renderPass.End()
	b.renderPass.Release()
	b.renderPass = nil
}

func (b *wgpuRendererBackendImpl) setRenderBindGroups(bindGroups []bind_group_provider.BindGroupProvider) {
	for i, bg := range bindGroups {
		if bg == nil || bg.BindGroup() == nil {
			continue
		}
		b.renderPass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}
}

func (b *wgpuRendererBackendImpl) DrawCall(
	p pipeline.Pipeline,
	meshProvider bind_group_provider.BindGroupProvider,
	instanceCount, firstInstance uint32,
	bindGroups []bind_group_provider.BindGroupProvider,
) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.renderPass == nil || instanceCount == 0 || meshProvider == nil || meshProvider.VertexBuffer() == nil {
		return
	}

	b.renderPass.SetPipeline(p.Pipeline().(*wgpu.RenderPipeline))
	b.setRenderBindGroups(bindGroups)
	b.renderPass.SetVertexBuffer(0, meshProvider.VertexBuffer(), 0, wgpu.WholeSize)
	b.renderPass.SetIndexBuffer(meshProvider.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.renderPass.DrawIndexed(uint32(meshProvider.IndexCount()), instanceCount, 0, 0, firstInstance)
}

func (b *wgpuRendererBackendImpl) DrawFullscreen(p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.renderPass == nil {
		return
	}

	b.renderPass.SetPipeline(p.Pipeline().(*wgpu.RenderPipeline))
	b.setRenderBindGroups(bindGroups)
	b.renderPass.Draw(3, 1, 0, 0)
}

func (b *wgpuRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	bindGroups []bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil || workGroupCount[0] == 0 || workGroupCount[1] == 0 || workGroupCount[2] == 0 {
		return
	}

	pass := b.frameEncoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: p.PipelineKey()})
	pass.SetPipeline(p.Pipeline().(*wgpu.ComputePipeline))
	for i, bg := range bindGroups {
		if bg == nil || bg.BindGroup() == nil {
			continue
		}
		pass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()
	pass.Release()
}

func (b *wgpuRendererBackendImpl) BeginPresent() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoCommands
	}
	if b.renderPass != nil {
		return ErrPassOpen
	}
	// A held surface texture means the previous frame was never presented; acquiring
	// again would fail inside wgpu-native.
	if b.frameSurface != nil {
		return fmt.Errorf("renderer: previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	b.frameSurface = surfaceTexture
	b.frameView = view
	b.renderPass = b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Present Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})
	return nil
}

func (b *wgpuRendererBackendImpl) Submit() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return
	}
	if b.renderPass != nil {
		b.renderPass.End()
		b.renderPass.Release()
		b.renderPass = nil
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		return
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()
	b.releaseSurfaceLocked()
}

func (b *wgpuRendererBackendImpl) AbortFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.renderPass != nil {
		b.renderPass.End()
		b.renderPass.Release()
		b.renderPass = nil
	}
	if b.frameEncoder != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}
	b.releaseSurfaceLocked()
}

func (b *wgpuRendererBackendImpl) releaseSurfaceLocked() {
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}
