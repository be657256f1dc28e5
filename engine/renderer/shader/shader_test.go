package shader

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const geometrySource = `
//@oxy:include frame_uniform
//@oxy:include model_data
//@oxy:include vertex

//@oxy:group 0 0 storage_uniform frame frame_uniform
//@oxy:provider 0 0 frame
//@oxy:group 0 1 storage_read instances array<model_data>
//@oxy:provider 0 1 instances

struct GBufferOut {
    @location(0) albedo: vec4<f32>,
    @location(1) normal: vec4<f32>,
};

struct VertexOut {
    @builtin(position) clip: vec4<f32>,
    @location(0) normal: vec3<f32>,
};

@vertex
fn vs_main(in: VertexInput, @builtin(instance_index) instance: u32) -> VertexOut {
    var out: VertexOut;
    out.clip = frame.view_proj * instances[instance].model * vec4<f32>(in.position, 1.0);
    out.normal = in.normal;
    return out;
}

@fragment
fn fs_main(in: VertexOut) -> GBufferOut {
    var out: GBufferOut;
    out.albedo = vec4<f32>(1.0);
    out.normal = vec4<f32>(in.normal * 0.5 + 0.5, 1.0);
    return out;
}
`

func TestPreProcessorInjectsStructsAndDeclarations(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process(geometrySource)
	require.NoError(t, err)

	assert.Contains(t, out, "struct FrameUniform {")
	assert.Contains(t, out, "struct VertexInput {")
	assert.Contains(t, out, "@group(0) @binding(0) var<uniform> frame: FrameUniform;")
	assert.Contains(t, out, "@group(0) @binding(1) var<storage, read> instances: array<ModelData>;")
	assert.NotContains(t, out, "@oxy:")

	decls := pp.Declarations()
	require.Len(t, decls, 4)
	assert.Equal(t, AnnotationTypeBindingGroup, decls[0].Type)
	assert.Equal(t, AnnotationTypeProvider, decls[1].Type)
	assert.Equal(t, AnnotationArgFrame, decls[1].Args[0])
	assert.Equal(t, 1, *decls[3].Binding)
}

func TestPreProcessorRejectsMalformedAnnotations(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"empty", "//@oxy:", "empty"},
		{"unknown type", "//@oxy:frobnicate x", "unknown @oxy annotation type"},
		{"unknown struct", "//@oxy:include camera", "unknown struct type"},
		{"group arity", "//@oxy:group 0 0 storage_uniform frame", "requires five arguments"},
		{"bad address space", "//@oxy:group 0 0 private frame frame_uniform", "unknown address space"},
		{"bad array element", "//@oxy:group 0 0 storage_read x array<bogus>", "unknown array element type"},
		{"bad provider", "//@oxy:provider 1 0 shadow", "unknown provider identity"},
		{"bad role", "//@oxy:provider 1 0 oit diffuse_texture", "unknown binding role"},
		{"bad group number", "//@oxy:provider x 0 oit", "invalid group number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPreProcessor().Process(tt.line)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestPreProcessorIncludesStructsOnce(t *testing.T) {
	src := "//@oxy:include oit_uniforms\n//@oxy:include oit_uniforms\n//@oxy:group 1 1 storage_read_write nodes array<fragment_node>\n//@oxy:include fragment_node"
	out, err := NewPreProcessor().Process(src)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "struct OITUniforms {"))
	assert.Equal(t, 1, strings.Count(out, "struct FragmentNode {"), "a group annotation pulls in its element struct")
	assert.Less(t, strings.Index(out, "struct FragmentNode {"), strings.Index(out, "var<storage, read_write> nodes: array<FragmentNode>;"))
}

func TestProcessResetsDeclarations(t *testing.T) {
	pp := NewPreProcessor()
	_, err := pp.Process("//@oxy:provider 1 0 oit heads\n//@oxy:provider 1 1 oit counter")
	require.NoError(t, err)
	require.Len(t, pp.Declarations(), 2)

	_, err = pp.Process("//@oxy:provider 2 0 target output")
	require.NoError(t, err)
	assert.Len(t, pp.Declarations(), 1)
}

func TestVertexLayoutsOnlyUseEntryParameters(t *testing.T) {
	s := NewShaderFromSource("geometry_vs", ShaderTypeVertex, "geometry", geometrySource)
	assert.Equal(t, "vs_main", s.EntryPoint())

	layouts := s.VertexLayouts()
	require.Len(t, layouts, 1)
	layout := layouts[0][0]
	assert.Equal(t, uint64(64), layout.ArrayStride)
	require.Len(t, layout.Attributes, 5)
	assert.Equal(t, wgpu.VertexFormatFloat32x2, layout.Attributes[2].Format)
	assert.Equal(t, uint64(24), layout.Attributes[2].Offset)
	assert.Equal(t, uint32(4), layout.Attributes[4].ShaderLocation)
}

func TestFragmentShaderEntryAndLayouts(t *testing.T) {
	s := NewShaderFromSource("geometry_fs", ShaderTypeFragment, "geometry", geometrySource)
	assert.Equal(t, "fs_main", s.EntryPoint())
	assert.Empty(t, s.VertexLayouts())

	desc := s.BindGroupLayoutDescriptor(0)
	require.Len(t, desc.Entries, 2)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, desc.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(160), desc.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, desc.Entries[1].Buffer.Type)
	assert.Equal(t, uint64(64), desc.Entries[1].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageFragment, desc.Entries[1].Visibility)
	assert.Equal(t, "instances", s.BindGroupVarName(0, 1))
	assert.Equal(t, "frame", s.BindGroupVarName(0, 0))
	assert.Empty(t, s.BindGroupVarName(3, 0))
}

func TestComputeReflection(t *testing.T) {
	src := `
//@oxy:include oit_uniforms
//@oxy:include fragment_node
//@oxy:group 0 0 storage_uniform params oit_uniforms
//@oxy:provider 1 0 oit heads
@group(1) @binding(0) var<storage, read_write> heads: array<atomic<u32>>;
//@oxy:group 1 1 storage_read_write nodes array<fragment_node>
//@oxy:provider 1 2 oit counter
@group(1) @binding(2) var<storage, read_write> counter: atomic<u32>;
//@oxy:provider 2 0 target input
@group(2) @binding(0) var lit: texture_2d<f32>;
//@oxy:provider 2 1 target output
@group(2) @binding(1) var out_tex: texture_storage_2d<rgba16float, write>;
//@oxy:provider 2 2 gbuffer depth
@group(2) @binding(2) var g_depth: texture_depth_2d;

@compute @workgroup_size(8, 8)
fn cs_main(@builtin(global_invocation_id) id: vec3<u32>) {
    if (id.x >= params.width || id.y >= params.height) {
        return;
    }
    let head = atomicLoad(&heads[id.y * params.width + id.x]);
    let n = atomicLoad(&counter);
    let c = textureLoad(lit, vec2<i32>(id.xy), 0);
    let d = textureLoad(g_depth, vec2<i32>(id.xy), 0);
    textureStore(out_tex, vec2<i32>(id.xy), c * d + f32(head + n) * 0.0 + nodes[0].color);
}
`
	s := NewShaderFromSource("oit_resolve", ShaderTypeCompute, "oit_resolve", src)
	assert.Equal(t, "cs_main", s.EntryPoint())
	assert.Equal(t, [3]uint32{8, 8, 1}, s.WorkgroupSize())

	assert.Equal(t, uint64(16), s.BindGroupLayoutDescriptor(0).Entries[0].Buffer.MinBindingSize)

	oitGroup := s.BindGroupLayoutDescriptor(1)
	require.Len(t, oitGroup.Entries, 3)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, oitGroup.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(4), oitGroup.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, uint64(32), oitGroup.Entries[1].Buffer.MinBindingSize)

	targets := s.BindGroupLayoutDescriptor(2)
	require.Len(t, targets.Entries, 3)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, targets.Entries[0].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, targets.Entries[0].Texture.ViewDimension)
	assert.Equal(t, wgpu.BufferBindingTypeUndefined, targets.Entries[1].Buffer.Type)
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, targets.Entries[1].StorageTexture.Format)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, targets.Entries[1].StorageTexture.Access)
	assert.Equal(t, wgpu.TextureSampleTypeDepth, targets.Entries[2].Texture.SampleType)

	g, b, ok := s.Binding(AnnotationArgOIT, AnnotationArgCounter)
	assert.True(t, ok)
	assert.Equal(t, [2]int{1, 2}, [2]int{g, b})
	_, _, ok = s.Binding(AnnotationArgOIT, "")
	assert.False(t, ok)
	g, b, ok = s.Binding(AnnotationArgGBuffer, AnnotationArgDepth)
	assert.True(t, ok)
	assert.Equal(t, [2]int{2, 2}, [2]int{g, b})
}

func TestVertexStageSkipsWritableResources(t *testing.T) {
	src := `
@group(0) @binding(0) var<storage, read> lights: array<vec4<f32>>;
@group(0) @binding(1) var<storage, read_write> heads: array<atomic<u32>>;
@group(0) @binding(2) var out_tex: texture_storage_2d<rgba8unorm, write>;

@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return lights[i];
}
`
	mod := reflectWGSL(src)
	layouts, names := mod.bindGroupLayouts(wgpu.ShaderStageVertex)
	require.Len(t, layouts[0].Entries, 1)
	assert.Equal(t, uint32(0), layouts[0].Entries[0].Binding)
	assert.Equal(t, "heads", names[0][1])
	assert.Equal(t, "out_tex", names[0][2])

	fragment, _ := mod.bindGroupLayouts(wgpu.ShaderStageFragment)
	assert.Len(t, fragment[0].Entries, 3)
}

func TestEntryParamTypes(t *testing.T) {
	src := "fn vs_main(@location(0) in: VertexInput, @builtin(instance_index) idx: u32, arr: array<vec4<f32>, 4>) {}"
	mod := reflectWGSL(src)
	assert.Equal(t, []string{"VertexInput", "u32", "array<vec4<f32>, 4>"}, mod.entryParams("vs_main"))
	assert.Nil(t, mod.entryParams("missing"))
}

func TestNewShaderFromSourcePanicsWithoutEntryPoint(t *testing.T) {
	assert.Panics(t, func() {
		NewShaderFromSource("empty", ShaderTypeCompute, "empty", "struct A { x: f32, };")
	})
	assert.Panics(t, func() {
		NewShaderFromSource("bad", ShaderTypeCompute, "bad", "//@oxy:include nope")
	})
}

func TestValidateRejectsGarbage(t *testing.T) {
	err := Validate("this is not wgsl {")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "shader: validate:"))
}

func TestParseMatrix(t *testing.T) {
	tests := []struct {
		typ    string
		cols   int
		rows   int
		scalar string
		ok     bool
	}{
		{"mat4x4<f32>", 4, 4, "f32", true},
		{"mat3x2f", 3, 2, "f32", true},
		{"mat2x4h", 2, 4, "f16", true},
		{"mat3x3<i32>", 3, 3, "i32", false},
		{"mat1x4f", 0, 0, "", false},
		{"vec4f", 0, 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			cols, rows, scalar, ok := parseMatrix(tt.typ)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.cols, cols)
			assert.Equal(t, tt.rows, rows)
			assert.Equal(t, tt.scalar, scalar)
		})
	}
}

func TestTypeLayouts(t *testing.T) {
	mod := reflectWGSL(`
struct Inner { a: vec3f, b: f32, };
struct Outer { m: mat3x3<f32>, inner: array<Inner, 2>, flag: u32, };
struct Tail { count: u32, items: array<vec4f>, };
struct Io { @builtin(position) clip: vec4<f32>, @location(0) uv: vec2h, };
`)
	tests := []struct {
		typ   string
		size  uint64
		align uint64
	}{
		{"f16", 2, 2},
		{"vec2<f32>", 8, 8},
		{"vec3i", 12, 16},
		{"vec4h", 8, 8},
		{"mat2x2<f32>", 16, 8},
		{"mat4x3f", 64, 16},
		{"mat3x3<f32>", 48, 16},
		{"mat2x2h", 8, 4},
		{"atomic<u32>", 4, 4},
		{"array<f32, 4u>", 16, 4},
		{"array<vec3f, 2>", 32, 16},
		{"Inner", 16, 16},
		{"Outer", 96, 16},
		{"Tail", 32, 16},
		{"Io", 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			layout, ok := mod.layoutOf(tt.typ)
			require.True(t, ok)
			assert.Equal(t, tt.size, layout.size)
			assert.Equal(t, tt.align, layout.align)
		})
	}

	for _, typ := range []string{"Missing", "array<f32, N>", "mat5x5f", "array<array<f32>>"} {
		_, ok := mod.layoutOf(typ)
		assert.False(t, ok, typ)
	}
}

func TestStripComments(t *testing.T) {
	src := "a // line /* not a block\nb /* outer /* inner */ still */ c\n/* x\ny */d"
	assert.Equal(t, "a \nb  c\n\nd", stripComments(src))
}
