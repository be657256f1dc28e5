package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// BindGroupProvider owns, or borrows, the GPU resources behind one bind group and the bind
// group itself. Materials, meshes and the deferred frame renderer each describe their
// bindings with one; the renderer fills it in and draws with it.
//
// A typical life cycle:
//  1. NewBindGroupProvider with a debug label
//  2. SetSharedBuffer and SetSharedTextureView for resources owned elsewhere, such as the
//     frame uniform or a G-buffer target
//  3. Renderer.InitBindGroup allocates the remaining buffers and creates the bind group
//  4. Renderer.WriteBuffers uploads data
//  5. BindGroup is set on passes, until Release
type BindGroupProvider interface {
	// Label returns the debug label, also used for the GPU objects created for the provider.
	Label() string

	// Release frees owned resources, the bind group and its layout. Shared resources are
	// forgotten, never freed.
	Release()

	// ReleaseBindGroup frees only the bind group so it can be recreated against new views.
	ReleaseBindGroup()

	BindGroup() *wgpu.BindGroup
	SetBindGroup(bg *wgpu.BindGroup)
	BindGroupLayout() *wgpu.BindGroupLayout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// Buffer returns the buffer bound at binding, or nil.
	//
	// Parameters:
	//   - binding: the @binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the owned or shared buffer
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the texture view bound at binding, or nil.
	//
	// Parameters:
	//   - binding: the @binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the owned or shared view
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler bound at binding, or nil.
	//
	// Parameters:
	//   - binding: the @binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler
	Sampler(binding int) *wgpu.Sampler

	// IsShared reports whether the buffer or view at binding is borrowed.
	//
	// Parameters:
	//   - binding: the @binding index
	//
	// Returns:
	//   - bool: true when Release will not free it
	IsShared(binding int) bool

	// SetBuffer stores a buffer the provider owns, replacing any shared one.
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetSharedBuffer stores a buffer owned elsewhere.
	SetSharedBuffer(binding int, buf *wgpu.Buffer)

	// SetTextureView stores a view the provider owns, replacing any shared one.
	SetTextureView(binding int, tv *wgpu.TextureView)

	// SetSharedTextureView stores a view owned elsewhere, typically a render target.
	SetSharedTextureView(binding int, tv *wgpu.TextureView)

	// SetSampler stores a sampler the provider owns.
	SetSampler(binding int, s *wgpu.Sampler)

	// VertexBuffer, IndexBuffer and IndexCount describe the mesh of a mesh provider.
	VertexBuffer() *wgpu.Buffer
	IndexBuffer() *wgpu.Buffer
	IndexCount() int
	SetVertexBuffer(buf *wgpu.Buffer)
	SetIndexBuffer(buf *wgpu.Buffer)
	SetIndexCount(count int)
}

// BufferWrite is one queued upload of Data into the buffer at Binding of Provider,
// starting Offset bytes in.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// slot is what one @binding holds. Only one of buffer, view and sampler is set in practice.
type slot struct {
	buffer  *wgpu.Buffer
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
	shared  bool
}

func (s *slot) release() {
	if s.sampler != nil {
		s.sampler.Release()
	}
	if s.shared {
		return
	}
	if s.view != nil {
		s.view.Release()
	}
	if s.buffer != nil {
		s.buffer.Release()
	}
}

type bindGroupProvider struct {
	label string
	slots map[int]*slot

	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout

	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   int
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider returns an empty provider.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string) BindGroupProvider {
	return &bindGroupProvider{label: label, slots: make(map[int]*slot)}
}

// at returns the slot for binding, creating it when missing.
func (p *bindGroupProvider) at(binding int) *slot {
	s, ok := p.slots[binding]
	if !ok {
		s = &slot{}
		p.slots[binding] = s
	}
	return s
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	if s, ok := p.slots[binding]; ok {
		return s.buffer
	}
	return nil
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	if s, ok := p.slots[binding]; ok {
		return s.view
	}
	return nil
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	if s, ok := p.slots[binding]; ok {
		return s.sampler
	}
	return nil
}

func (p *bindGroupProvider) IsShared(binding int) bool {
	s, ok := p.slots[binding]
	return ok && s.shared
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	s := p.at(binding)
	s.buffer, s.shared = buf, false
}

func (p *bindGroupProvider) SetSharedBuffer(binding int, buf *wgpu.Buffer) {
	s := p.at(binding)
	s.buffer, s.shared = buf, true
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	s := p.at(binding)
	s.view, s.shared = tv, false
}

func (p *bindGroupProvider) SetSharedTextureView(binding int, tv *wgpu.TextureView) {
	s := p.at(binding)
	s.view, s.shared = tv, true
}

func (p *bindGroupProvider) SetSampler(binding int, smp *wgpu.Sampler) {
	p.at(binding).sampler = smp
}

func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer {
	return p.vertexBuffer
}

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) SetVertexBuffer(buf *wgpu.Buffer) {
	p.vertexBuffer = buf
}

func (p *bindGroupProvider) SetIndexBuffer(buf *wgpu.Buffer) {
	p.indexBuffer = buf
}

func (p *bindGroupProvider) SetIndexCount(count int) {
	p.indexCount = count
}

func (p *bindGroupProvider) ReleaseBindGroup() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}

func (p *bindGroupProvider) Release() {
	for _, s := range p.slots {
		s.release()
	}
	clear(p.slots)

	p.ReleaseBindGroup()
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	for _, buf := range []**wgpu.Buffer{&p.vertexBuffer, &p.indexBuffer} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
}
