package pipeline

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption configures a pipeline before its bind group layouts are merged.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader attaches the vertex stage of a render pipeline.
//
// Parameters:
//   - s: the reflected vertex shader
//
// Returns:
//   - PipelineBuilderOption: the option
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) { p.vertexShader = s }
}

// WithFragmentShader attaches the fragment stage of a render pipeline.
//
// Parameters:
//   - s: the reflected fragment shader
//
// Returns:
//   - PipelineBuilderOption: the option
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) { p.fragmentShader = s }
}

// WithComputeShader attaches the shader of a compute pipeline.
//
// Parameters:
//   - s: the reflected compute shader
//
// Returns:
//   - PipelineBuilderOption: the option
func WithComputeShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) { p.computeShader = s }
}

// WithColorTargets replaces the color attachment formats, in attachment order. Calling it
// with no formats makes the pipeline write depth only, or nothing but storage buffers.
//
// Parameters:
//   - formats: the attachment formats
//
// Returns:
//   - PipelineBuilderOption: the option
func WithColorTargets(formats ...wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) { p.colorTargets = slices.Clone(formats) }
}

// WithDepth adds a depth attachment. A compare of wgpu.CompareFunctionAlways disables the
// depth test while keeping the attachment bound.
//
// Parameters:
//   - format: the depth texture format
//   - compare: the depth test
//   - write: whether passing fragments store their depth
//
// Returns:
//   - PipelineBuilderOption: the option
func WithDepth(format wgpu.TextureFormat, compare wgpu.CompareFunction, write bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthFormat = format
		p.depthCompare = compare
		p.depthWrite = write
	}
}

// WithCullMode selects which triangle faces are discarded.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - PipelineBuilderOption: the option
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) { p.cullMode = mode }
}
