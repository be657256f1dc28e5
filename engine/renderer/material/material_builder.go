package material

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// MaterialBuilderOption configures a material in NewMaterial.
type MaterialBuilderOption func(*material)

// WithName sets the material name. Names are for logs; identity is the material value.
func WithName(name string) MaterialBuilderOption {
	return func(m *material) { m.name = name }
}

// WithBaseColor sets the base color factor, multiplied with the albedo texture.
//
// Parameters:
//   - color: linear RGBA, alpha used by blended materials
//
// Returns:
//   - MaterialBuilderOption: the option
func WithBaseColor(color [4]float32) MaterialBuilderOption {
	return func(m *material) { m.baseColor = color }
}

// WithTexture binds tex to a texture slot. A nil texture leaves the slot empty.
//
// Parameters:
//   - slot: the slot, e.g. TextureSlotAlbedo
//   - tex: the texture
//
// Returns:
//   - MaterialBuilderOption: the option
func WithTexture(slot string, tex *common.ImportedTexture) MaterialBuilderOption {
	return func(m *material) {
		if tex != nil {
			m.textures[slot] = tex
		}
	}
}

// WithPipelineKey picks the geometry pipeline the material is drawn with.
func WithPipelineKey(key string) MaterialBuilderOption {
	return func(m *material) { m.pipelineKey = key }
}

// WithBlend sets the blend mode. Non-opaque modes route the material to the transparency pass.
//
// Parameters:
//   - mode: the blend mode
//
// Returns:
//   - MaterialBuilderOption: the option
func WithBlend(mode BlendMode) MaterialBuilderOption {
	return func(m *material) { m.blend = mode }
}

// WithCull sets which faces are discarded.
func WithCull(mode CullMode) MaterialBuilderOption {
	return func(m *material) { m.cull = mode }
}

// WithDepthTest sets the depth comparison of the geometry pass.
func WithDepthTest(mode DepthTestMode) MaterialBuilderOption {
	return func(m *material) { m.depthTest = mode }
}

// WithDepthWrite turns depth writes on or off.
func WithDepthWrite(enabled bool) MaterialBuilderOption {
	return func(m *material) { m.depthWrite = enabled }
}
