package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const accumulateSource = `
//@oxy:include frame_uniform
//@oxy:include model_data
//@oxy:include vertex
//@oxy:group 0 0 storage_uniform frame frame_uniform
//@oxy:group 0 1 storage_read instances array<model_data>
@group(2) @binding(0) var<storage, read_write> heads: array<atomic<u32>>;

struct VertexOut {
    @builtin(position) clip: vec4<f32>,
};

@vertex
fn vs_main(in: VertexInput, @builtin(instance_index) instance: u32) -> VertexOut {
    var out: VertexOut;
    out.clip = frame.view_proj * instances[instance].model * vec4<f32>(in.position, 1.0);
    return out;
}

@fragment
fn fs_main(in: VertexOut) {
    atomicAdd(&heads[0], 1u);
}
`

func accumulateShaders() (shader.Shader, shader.Shader) {
	vs := shader.NewShaderFromSource("acc_vs", shader.ShaderTypeVertex, "accumulate", accumulateSource)
	fs := shader.NewShaderFromSource("acc_fs", shader.ShaderTypeFragment, "accumulate", accumulateSource)
	return vs, fs
}

func TestDefaults(t *testing.T) {
	p := NewPipeline("present", PipelineTypeRender)
	assert.Equal(t, []wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm}, p.ColorTargets())
	assert.Equal(t, wgpu.TextureFormatUndefined, p.DepthFormat())
	assert.Nil(t, p.DepthStencilState())
	assert.Equal(t, wgpu.CullModeNone, p.PrimitiveState().CullMode)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, p.PrimitiveState().Topology)
	assert.Zero(t, p.GroupCount())
	assert.Nil(t, p.VertexBuffers())
	assert.Nil(t, p.Pipeline().(*wgpu.RenderPipeline))
}

func TestOptions(t *testing.T) {
	p := NewPipeline("geometry", PipelineTypeRender,
		WithColorTargets(wgpu.TextureFormatRGBA8UnormSrgb, wgpu.TextureFormatRGBA8Unorm),
		WithDepth(wgpu.TextureFormatDepth32Float, wgpu.CompareFunctionGreater, false),
		WithCullMode(wgpu.CullModeBack),
	)
	assert.Equal(t, wgpu.CullModeBack, p.PrimitiveState().CullMode)

	states := p.ColorTargetStates()
	require.Len(t, states, 2)
	assert.Equal(t, wgpu.TextureFormatRGBA8UnormSrgb, states[0].Format)
	assert.Nil(t, states[0].Blend)
	assert.Equal(t, wgpu.ColorWriteMaskAll, states[1].WriteMask)

	depth := p.DepthStencilState()
	require.NotNil(t, depth)
	assert.Equal(t, wgpu.TextureFormatDepth32Float, depth.Format)
	assert.Equal(t, wgpu.CompareFunctionGreater, depth.DepthCompare)
	assert.False(t, depth.DepthWriteEnabled)
	assert.Equal(t, wgpu.CompareFunctionAlways, depth.StencilFront.Compare)

	// Mutating the returned slice never affects the pipeline.
	targets := p.ColorTargets()
	targets[0] = wgpu.TextureFormatUndefined
	assert.Equal(t, wgpu.TextureFormatRGBA8UnormSrgb, p.ColorTargets()[0])
}

func TestMergedLayouts(t *testing.T) {
	vs, fs := accumulateShaders()
	p := NewPipeline("accumulate", PipelineTypeRender,
		WithVertexShader(vs),
		WithFragmentShader(fs),
		WithColorTargets(),
		WithDepth(wgpu.TextureFormatDepth32Float, wgpu.CompareFunctionLess, false),
	)
	require.NoError(t, p.Validate())
	assert.Len(t, p.VertexBuffers(), 1)
	assert.Equal(t, 3, p.GroupCount())
	assert.Empty(t, p.BindGroupLayoutDescriptor(1).Entries)

	frame := p.BindGroupLayoutDescriptor(0)
	require.Len(t, frame.Entries, 2)
	both := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	assert.Equal(t, both, frame.Entries[0].Visibility)
	assert.Equal(t, both, frame.Entries[1].Visibility)

	heads := p.BindGroupLayoutDescriptor(2)
	require.Len(t, heads.Entries, 1)
	assert.Equal(t, wgpu.ShaderStageFragment, heads.Entries[0].Visibility)
	assert.Equal(t, vs, p.Shader(shader.ShaderTypeVertex))
	assert.Nil(t, p.Shader(shader.ShaderTypeCompute))
}

func TestValidate(t *testing.T) {
	vs, fs := accumulateShaders()
	tests := []struct {
		name    string
		p       Pipeline
		wantErr string
	}{
		{"render without vertex", NewPipeline("a", PipelineTypeRender, WithFragmentShader(fs)), "requires a vertex shader"},
		{"color without fragment", NewPipeline("b", PipelineTypeRender, WithVertexShader(vs)), "require a fragment shader"},
		{"no attachments", NewPipeline("c", PipelineTypeRender, WithVertexShader(vs), WithColorTargets()), "no attachments"},
		{"depth only", NewPipeline("d", PipelineTypeRender, WithVertexShader(vs), WithColorTargets(), WithDepth(wgpu.TextureFormatDepth32Float, wgpu.CompareFunctionLess, true)), ""},
		{"compute without shader", NewPipeline("e", PipelineTypeCompute), "requires a compute shader"},
		{"unknown type", NewPipeline("f", PipelineType(9)), "unknown pipeline type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), tt.p.PipelineKey())
		})
	}
}

func TestValidateWrapsSentinels(t *testing.T) {
	err := NewPipeline("lonely", PipelineTypeCompute).Validate()
	assert.ErrorIs(t, err, ErrMissingComputeShader)
}
