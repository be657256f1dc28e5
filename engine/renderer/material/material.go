package material

import (
	"maps"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
)

// Texture slot keys understood by the built-in geometry programs.
const (
	TextureSlotAlbedo = "albedo"
	TextureSlotNormal = "normal"
)

// material is the implementation of the Material interface.
type material struct {
	mu *sync.Mutex

	name        string
	baseColor   [4]float32
	pipelineKey string
	textures    map[string]*common.ImportedTexture

	blend      BlendMode
	cull       CullMode
	depthTest  DepthTestMode
	depthWrite bool

	generation uint64

	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Material defines the interface for a render material shared by reference between scene objects.
//
// A Material carries the program (pipeline key) used to draw it, a map of texture slots, a base color
// and the fixed-function state applied by the pipeline: blend, cull, depth test and depth write.
// Every state mutation bumps Generation so renderers can rebuild pipeline variants lazily.
// Two objects are of the same type exactly when they hold the identical Material instance.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the RGBA color multiplied with the albedo texture.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// PipelineKey retrieves the key identifying the geometry program this material uses.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// SetPipelineKey sets the geometry program for this material.
	//
	// Parameters:
	//   - key: the pipeline key to associate with this material
	SetPipelineKey(key string)

	// Texture retrieves the texture bound to a slot, or nil if the slot is empty.
	//
	// Parameters:
	//   - slot: the slot key, e.g. TextureSlotAlbedo
	//
	// Returns:
	//   - *common.ImportedTexture: the texture, or nil
	Texture(slot string) *common.ImportedTexture

	// SetTexture binds a texture to a slot, replacing any previous binding for that slot.
	// A nil texture clears the slot.
	//
	// Parameters:
	//   - slot: the slot key
	//   - tex: the texture to bind
	SetTexture(slot string, tex *common.ImportedTexture)

	// TextureSlots returns the occupied slot keys in sorted order.
	//
	// Returns:
	//   - []string: the slot keys
	TextureSlots() []string

	// Blend returns the blend mode.
	Blend() BlendMode

	// SetBlend sets the blend mode.
	SetBlend(mode BlendMode)

	// Cull returns the face culling mode.
	Cull() CullMode

	// SetCull sets the face culling mode.
	SetCull(mode CullMode)

	// DepthTest returns the depth comparison mode.
	DepthTest() DepthTestMode

	// SetDepthTest sets the depth comparison mode.
	SetDepthTest(mode DepthTestMode)

	// DepthWrite reports whether fragments write depth.
	DepthWrite() bool

	// SetDepthWrite enables or disables depth writes.
	SetDepthWrite(enabled bool)

	// MakeTransparent switches the material to alpha blending with depth writes off, a reversed depth test
	// and the given program, as a single mutation.
	//
	// Parameters:
	//   - pipelineKey: the transparent program to draw with
	MakeTransparent(pipelineKey string)

	// IsTransparent reports whether the material blends, which places its objects in a transparent group.
	//
	// Returns:
	//   - bool: true when the blend mode is not BlendModeNone
	IsTransparent() bool

	// Generation returns a counter that grows on every state mutation.
	//
	// Returns:
	//   - uint64: the current generation
	Generation() uint64

	// Params returns the GPU uniform for this material.
	//
	// Returns:
	//   - GPUMaterialParams: the packed material parameters
	Params() GPUMaterialParams

	// BindGroupProvider retrieves the provider holding this material's GPU resources.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider, or nil if not yet initialized
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// SetBindGroupProvider sets the provider holding this material's GPU resources.
	//
	// Parameters:
	//   - provider: the bind group provider
	SetBindGroupProvider(provider bind_group_provider.BindGroupProvider)
}

var _ Material = &material{}

// NewMaterial creates a new opaque Material configured with the provided options.
// Defaults: white base color, no blending, backface culling, standard depth test and depth writes on.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		mu:         &sync.Mutex{},
		baseColor:  [4]float32{1, 1, 1, 1},
		textures:   make(map[string]*common.ImportedTexture),
		blend:      BlendModeNone,
		cull:       CullModeBackface,
		depthTest:  DepthTestStandard,
		depthWrite: true,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() [4]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseColor
}

func (m *material) PipelineKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pipelineKey
}

func (m *material) SetPipelineKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipelineKey = key
	m.generation++
}

func (m *material) Texture(slot string) *common.ImportedTexture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.textures[slot]
}

func (m *material) SetTexture(slot string, tex *common.ImportedTexture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tex == nil {
		delete(m.textures, slot)
	} else {
		m.textures[slot] = tex
	}
	m.generation++
}

func (m *material) TextureSlots() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.textures))
}

func (m *material) Blend() BlendMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blend
}

func (m *material) SetBlend(mode BlendMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blend = mode
	m.generation++
}

func (m *material) Cull() CullMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cull
}

func (m *material) SetCull(mode CullMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cull = mode
	m.generation++
}

func (m *material) DepthTest() DepthTestMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depthTest
}

func (m *material) SetDepthTest(mode DepthTestMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depthTest = mode
	m.generation++
}

func (m *material) DepthWrite() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depthWrite
}

func (m *material) SetDepthWrite(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depthWrite = enabled
	m.generation++
}

func (m *material) MakeTransparent(pipelineKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blend = BlendModeAlpha
	m.depthWrite = false
	m.depthTest = DepthTestReversed
	m.pipelineKey = pipelineKey
	m.generation++
}

func (m *material) IsTransparent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blend != BlendModeNone
}

func (m *material) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

func (m *material) Params() GPUMaterialParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := GPUMaterialParams{BaseColor: m.baseColor, Blend: uint32(m.blend)}
	if m.textures[TextureSlotAlbedo] != nil {
		p.HasAlbedo = 1
	}
	return p
}

func (m *material) BindGroupProvider() bind_group_provider.BindGroupProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bindGroupProvider
}

func (m *material) SetBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindGroupProvider = provider
}
