package deferred

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func computePipeline(key, source string) pipeline.Pipeline {
	s := shader.NewShaderFromSource(key+"_cs", shader.ShaderTypeCompute, key, source)
	return pipeline.NewPipeline(key, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(s))
}

func programPipeline(p *program) pipeline.Pipeline {
	return pipeline.NewPipeline(p.name, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(p.vs),
		pipeline.WithFragmentShader(p.fs),
		pipeline.WithDepth(renderer.DepthFormat, wgpu.CompareFunctionLess, true),
	)
}

func TestNextCapacity(t *testing.T) {
	assert.Equal(t, uint64(64), nextCapacity(0, 64))
	assert.Equal(t, uint64(64), nextCapacity(1, 64))
	assert.Equal(t, uint64(256), nextCapacity(3, 64))
	assert.Equal(t, uint64(256), nextCapacity(4, 64))
	assert.Equal(t, uint64(512), nextCapacity(5, 64))
	assert.Equal(t, uint64(4), nextCapacity(1, 4))
}

func TestVariantKeys(t *testing.T) {
	a := geometryVariant(ProgramGeometry, material.CullModeBackface, material.DepthTestStandard, true)
	b := geometryVariant(ProgramGeometry, material.CullModeBackface, material.DepthTestStandard, false)
	c := geometryVariant(ProgramGeometry, material.CullModeNone, material.DepthTestStandard, true)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, geometryVariant(ProgramGeometry, material.CullModeBackface, material.DepthTestStandard, true))

	front := accumulateVariant(ProgramTransparency, material.CullModeFrontface)
	back := accumulateVariant(ProgramTransparency, material.CullModeBackface)
	assert.NotEqual(t, front, back)
	assert.NotEqual(t, front, geometryVariant(ProgramTransparency, material.CullModeFrontface, material.DepthTestStandard, false))
}

func TestTransparentCulls(t *testing.T) {
	assert.Equal(t, []material.CullMode{material.CullModeBackface}, transparentCulls(material.CullModeBackface, false))
	assert.Equal(t, []material.CullMode{material.CullModeFrontface, material.CullModeBackface}, transparentCulls(material.CullModeNone, true))
}

func TestResolveProgram(t *testing.T) {
	programs := map[string]*program{}
	for _, src := range defaultPrograms() {
		programs[src.name] = newProgram(src.name, src.pass, src.source)
	}
	programs["glass"] = newProgram("glass", PassTransparency, oitAccumulateSource)

	p, fallback := resolveProgram(programs, "", PassGeometry)
	assert.Equal(t, ProgramGeometry, p.name)
	assert.False(t, fallback)

	p, fallback = resolveProgram(programs, "", PassTransparency)
	assert.Equal(t, ProgramTransparency, p.name)
	assert.False(t, fallback)

	p, fallback = resolveProgram(programs, "glass", PassTransparency)
	assert.Equal(t, "glass", p.name)
	assert.False(t, fallback)

	// A transparency program never draws into the G-buffer.
	p, fallback = resolveProgram(programs, "glass", PassGeometry)
	assert.Equal(t, ProgramGeometry, p.name)
	assert.True(t, fallback)

	p, fallback = resolveProgram(programs, "missing", PassTransparency)
	assert.Equal(t, ProgramTransparency, p.name)
	assert.True(t, fallback)
}

func TestWithProgramReplacesByName(t *testing.T) {
	f := &frameRenderer{sources: defaultPrograms()}
	WithProgram("glass", PassTransparency, oitAccumulateSource)(f)
	WithProgram(ProgramGeometry, PassGeometry, "replaced")(f)

	require.Len(t, f.sources, 3)
	assert.Equal(t, "replaced", f.sources[0].source)
	assert.Equal(t, "glass", f.sources[2].name)
}

func TestOverflowLimiter(t *testing.T) {
	l := overflowLimiter{interval: time.Second}
	start := time.Unix(100, 0)
	assert.True(t, l.allow(start))
	assert.False(t, l.allow(start.Add(500*time.Millisecond)))
	assert.True(t, l.allow(start.Add(time.Second)))
	assert.False(t, l.allow(start.Add(1500*time.Millisecond)))
}

func TestIsSRGB(t *testing.T) {
	assert.True(t, isSRGB(wgpu.TextureFormatBGRA8UnormSrgb))
	assert.True(t, isSRGB(wgpu.TextureFormatRGBA8UnormSrgb))
	assert.False(t, isSRGB(wgpu.TextureFormatBGRA8Unorm))
}

func TestResolveBinding(t *testing.T) {
	io := targetIO{input: targetLit, output: targetComposited}

	ref, ok := resolveBinding(declared{shader.AnnotationArgTarget, shader.AnnotationArgInput}, io)
	require.True(t, ok)
	assert.Equal(t, targetLit, ref.target)

	ref, ok = resolveBinding(declared{shader.AnnotationArgTarget, shader.AnnotationArgOutput}, io)
	require.True(t, ok)
	assert.Equal(t, targetComposited, ref.target)

	_, ok = resolveBinding(declared{shader.AnnotationArgTarget, shader.AnnotationArgOutput}, targetIO{})
	assert.False(t, ok)

	ref, ok = resolveBinding(declared{shader.AnnotationArgGBuffer, shader.AnnotationArgDepth}, io)
	require.True(t, ok)
	assert.Equal(t, targetDepth, ref.target)

	ref, ok = resolveBinding(declared{shader.AnnotationArgOIT, shader.AnnotationArgCounter}, io)
	require.True(t, ok)
	assert.Equal(t, resCounter, ref.buffer)

	ref, ok = resolveBinding(declared{shader.AnnotationArgMaterial, shader.AnnotationArgBaseColorSampler}, io)
	require.True(t, ok)
	assert.True(t, ref.material)

	_, ok = resolveBinding(declared{shader.AnnotationArgFrame, shader.AnnotationArgHeads}, io)
	assert.False(t, ok)
}

func TestPlanFixedPasses(t *testing.T) {
	present := pipeline.NewPipeline(pipelinePresent, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(shader.NewShaderFromSource("present_vs", shader.ShaderTypeVertex, "present", presentSource)),
		pipeline.WithFragmentShader(shader.NewShaderFromSource("present_fs", shader.ShaderTypeFragment, "present", presentSource)),
	)
	cases := []struct {
		name   string
		p      pipeline.Pipeline
		io     targetIO
		groups int
	}{
		{"lighting", computePipeline(pipelineLighting, lightingSource), targetIO{output: targetLit}, 4},
		{"oit_clear", computePipeline(pipelineOITClear, oitClearSource), targetIO{}, 1},
		{"oit_resolve", computePipeline(pipelineOITResolve, oitResolveSource), targetIO{input: targetLit, output: targetComposited}, 2},
		{"tonemap", computePipeline(pipelineTonemap, tonemapSource), targetIO{input: targetComposited, output: targetOutput}, 2},
		{"present", present, targetIO{input: targetOutput}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set, err := planBindingSet(tc.name, tc.p, tc.io)
			require.NoError(t, err)
			assert.Equal(t, -1, set.materialGroup)
			assert.Len(t, set.groups, tc.groups)

			entries := 0
			for _, layout := range set.layouts {
				entries += len(layout.Entries)
			}
			assert.Len(t, set.refs, entries)
		})
	}
}

func TestPlanLightingTargets(t *testing.T) {
	set, err := planBindingSet("lighting", computePipeline(pipelineLighting, lightingSource), targetIO{output: targetLit})
	require.NoError(t, err)
	assert.Equal(t, targetAlbedo, set.refs[slot{2, 0}].target)
	assert.Equal(t, targetNormal, set.refs[slot{2, 1}].target)
	assert.Equal(t, targetDepth, set.refs[slot{2, 2}].target)
	assert.Equal(t, targetLit, set.refs[slot{3, 0}].target)
	assert.Equal(t, resTileIndices, set.refs[slot{1, 3}].buffer)
}

func TestPlanMaterialPrograms(t *testing.T) {
	for _, src := range defaultPrograms() {
		t.Run(src.name, func(t *testing.T) {
			p := newProgram(src.name, src.pass, src.source)
			set, err := planBindingSet(src.name, programPipeline(p), targetIO{})
			require.NoError(t, err)
			assert.Equal(t, 1, set.materialGroup)
			require.Len(t, set.materialLayout.Entries, 3)
			assert.Equal(t, shader.AnnotationArg(""), set.materialRoles[0])
			assert.Equal(t, shader.AnnotationArgBaseColorTexture, set.materialRoles[1])
			assert.Equal(t, shader.AnnotationArgBaseColorSampler, set.materialRoles[2])

			groups := set.with(nil)
			assert.Nil(t, groups[1])
		})
	}
}

func TestPlanRejectsUndeclaredBinding(t *testing.T) {
	const source = `
@group(0) @binding(0) var<storage, read_write> data: array<u32>;

@compute @workgroup_size(64)
fn cs_main(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = id.x;
}
`
	_, err := planBindingSet("bare", computePipeline("bare", source), targetIO{})
	assert.Error(t, err)
}

func TestPlanRejectsUnboundTarget(t *testing.T) {
	_, err := planBindingSet("tonemap", computePipeline(pipelineTonemap, tonemapSource), targetIO{output: targetOutput})
	assert.Error(t, err)
}

func TestBindingSetWithReusesScratch(t *testing.T) {
	p := newProgram(ProgramGeometry, PassGeometry, geometrySource)
	set, err := planBindingSet("geometry", programPipeline(p), targetIO{})
	require.NoError(t, err)

	a := set.with(nil)
	b := set.with(nil)
	assert.Same(t, &a[0], &b[0])
	assert.Len(t, cloneGroups(a), len(a))
}
