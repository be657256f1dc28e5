package deferred

import (
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/frame"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/oit"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene_object"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRenderer stands in for the GPU. It hands out empty buffer and target handles and records
// buffer sizes, writes and the order of passes and draws.
type recordingRenderer struct {
	pipelines map[string]pipeline.Pipeline
	sizes     map[string]uint64
	writes    []bind_group_provider.BufferWrite
	calls     []string
}

var _ renderer.Renderer = &recordingRenderer{}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{
		pipelines: make(map[string]pipeline.Pipeline),
		sizes:     make(map[string]uint64),
	}
}

func (r *recordingRenderer) Pipeline(key string) pipeline.Pipeline { return r.pipelines[key] }

func (r *recordingRenderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	for _, p := range pipelines {
		r.pipelines[p.PipelineKey()] = p
	}
	return nil
}

func (r *recordingRenderer) Resize(width, height int)                 {}
func (r *recordingRenderer) SurfaceFormat() wgpu.TextureFormat        { return wgpu.TextureFormatBGRA8UnormSrgb }
func (r *recordingRenderer) MaxStorageBufferBindingSize() uint64      { return 128 << 20 }
func (r *recordingRenderer) SetPresentMode(mode renderer.PresentMode) {}

func (r *recordingRenderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	return nil
}

func (r *recordingRenderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	return nil
}

func (r *recordingRenderer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	return nil
}

func (r *recordingRenderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	return nil
}

func (r *recordingRenderer) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	r.sizes[label] = size
	return new(wgpu.Buffer), nil
}

func (r *recordingRenderer) CreateRenderTarget(label string, format wgpu.TextureFormat, width, height uint32, usage wgpu.TextureUsage) (*renderer.RenderTarget, error) {
	return &renderer.RenderTarget{Format: format, Width: width, Height: height}, nil
}

func (r *recordingRenderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.writes = append(r.writes, writes...)
}

func (r *recordingRenderer) ReadBuffer(buf *wgpu.Buffer, size uint64) ([]byte, error) {
	return make([]byte, size), nil
}

func (r *recordingRenderer) BeginCommands() error { return nil }

func (r *recordingRenderer) BeginRenderPass(spec renderer.RenderPassSpec) error {
	r.calls = append(r.calls, "pass "+spec.Label)
	return nil
}

func (r *recordingRenderer) EndRenderPass() {}

func (r *recordingRenderer) DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount, firstInstance uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	r.calls = append(r.calls, fmt.Sprintf("draw %s x%d @%d", pipelineKey, instanceCount, firstInstance))
	return nil
}

func (r *recordingRenderer) DrawFullscreen(pipelineKey string, bindGroups []bind_group_provider.BindGroupProvider) error {
	r.calls = append(r.calls, "fullscreen "+pipelineKey)
	return nil
}

func (r *recordingRenderer) DispatchCompute(pipelineKey string, bindGroups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	r.calls = append(r.calls, "dispatch "+pipelineKey)
	return nil
}

func (r *recordingRenderer) BeginPresent() error { return nil }
func (r *recordingRenderer) Submit()             { r.calls = append(r.calls, "submit") }
func (r *recordingRenderer) Present()            { r.calls = append(r.calls, "present") }
func (r *recordingRenderer) AbortFrame()         { r.calls = append(r.calls, "abort") }

func quadMesh() model.StaticMesh {
	return model.NewStaticMesh(
		model.WithName("quad"),
		model.WithVertices([]model.GPUVertex{
			{Position: [3]float32{-1, -1, 0}, Normal: [3]float32{0, 0, 1}, Color: [4]float32{1, 1, 1, 1}},
			{Position: [3]float32{1, -1, 0}, Normal: [3]float32{0, 0, 1}, Color: [4]float32{1, 1, 1, 1}},
			{Position: [3]float32{1, 1, 0}, Normal: [3]float32{0, 0, 1}, Color: [4]float32{1, 1, 1, 1}},
			{Position: [3]float32{-1, 1, 0}, Normal: [3]float32{0, 0, 1}, Color: [4]float32{1, 1, 1, 1}},
		}),
		model.WithIndices([]uint32{0, 1, 2, 0, 2, 3}),
	)
}

func testScene(transparent bool) scene.Scene {
	mesh := quadMesh()
	solid := material.NewMaterial(material.WithName("solid"))
	objects := []scene_object.SceneObject{
		scene_object.NewSceneObject(scene_object.WithMesh(mesh), scene_object.WithMaterial(solid), scene_object.WithPosition(0, 0, 0)),
		scene_object.NewSceneObject(scene_object.WithMesh(mesh), scene_object.WithMaterial(solid), scene_object.WithPosition(1, 0, -1)),
	}
	if transparent {
		glass := material.NewMaterial(material.WithName("glass"), material.WithBlend(material.BlendModeAlpha))
		objects = append(objects, scene_object.NewSceneObject(scene_object.WithMesh(mesh), scene_object.WithMaterial(glass), scene_object.WithPosition(0, 0, 1)))
	}
	return scene.NewScene(
		scene.WithObjects(objects...),
		scene.WithLights(light.NewPointLight(light.WithPosition(0, 1, 1), light.WithRadius(4))),
	)
}

func testCamera() camera.Camera {
	ctrl := camera.NewFlyController(camera.WithPosition(common.Vec3{0, 0, 6}), camera.WithLookAt(common.Vec3{0, 0, 0}))
	return camera.NewCamera(camera.WithFovDegrees(60), camera.WithAspect(1), camera.WithController(ctrl))
}

func TestNewFrameRendererRejectsZeroSize(t *testing.T) {
	_, err := NewFrameRenderer(newRecordingRenderer(), 0, 64)
	assert.ErrorIs(t, err, ErrZeroSize)
}

func TestNewFrameRendererSizesBuffers(t *testing.T) {
	r := newRecordingRenderer()
	fr, err := NewFrameRenderer(r, 64, 48)
	require.NoError(t, err)
	f := fr.(*frameRenderer)

	gpuSizes := map[resID]int{
		resFrame:        (&frame.GPUFrameUniform{}).Size(),
		resTileUniforms: (&light.GPUTileUniforms{}).Size(),
		resOITUniforms:  (&oit.GPUOITUniforms{}).Size(),
		resTonemap:      (&frame.GPUTonemapParams{}).Size(),
		resNodes:        (&oit.GPUFragmentNode{}).Size(),
		resCounter:      indexSize,
	}
	for id, size := range gpuSizes {
		assert.GreaterOrEqual(t, r.sizes[resLabels[id]], uint64(size), resLabels[id])
		assert.Equal(t, r.sizes[resLabels[id]], f.res.sizes[id], resLabels[id])
	}
	for _, id := range []resID{resFrame, resTileUniforms, resOITUniforms, resTonemap} {
		assert.Zero(t, f.res.sizes[id]%16, "%s is not a whole number of vec4s", resLabels[id])
	}
	assert.Equal(t, f.oit.HeadBytes(), f.res.sizes[resHeads])
	assert.Equal(t, f.oit.PoolBytes(), f.res.sizes[resNodes])
	assert.Equal(t, uint64(f.tiles.TileCount())*indexSize, f.res.sizes[resTileCounts])

	require.NoError(t, fr.Render(testScene(true), testCamera()))

	// Every write into a shared buffer fits in the buffer it targets.
	written := map[resID]bool{}
	for _, w := range r.writes {
		if w.Provider != f.res.owner {
			continue
		}
		id := resID(w.Binding)
		written[id] = true
		assert.LessOrEqual(t, uint64(len(w.Data)), f.res.sizes[id], resLabels[id])
	}
	for _, id := range []resID{resFrame, resInstances, resLights, resTileUniforms, resTileCounts, resOITUniforms, resTonemap} {
		assert.True(t, written[id], "%s never written", resLabels[id])
	}
}

func TestRenderStageOrder(t *testing.T) {
	cases := []struct {
		name        string
		transparent bool
		passes      []string
	}{
		{
			name: "opaque only",
			passes: []string{
				"pass Geometry Pass",
				"dispatch " + pipelineLighting,
				"dispatch " + pipelineTonemap,
				"fullscreen " + pipelinePresent,
				"submit",
				"present",
			},
		},
		{
			name:        "with transparency",
			transparent: true,
			passes: []string{
				"pass Geometry Pass",
				"dispatch " + pipelineLighting,
				"dispatch " + pipelineOITClear,
				"pass Transparency Accumulate",
				"dispatch " + pipelineOITResolve,
				"dispatch " + pipelineTonemap,
				"fullscreen " + pipelinePresent,
				"submit",
				"present",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRecordingRenderer()
			fr, err := NewFrameRenderer(r, 64, 64)
			require.NoError(t, err)

			require.NoError(t, fr.Render(testScene(tc.transparent), testCamera()))
			assert.Equal(t, frame.StageIdle, fr.Stage())

			var passes, draws []string
			for _, c := range r.calls {
				if len(c) > 5 && c[:5] == "draw " {
					draws = append(draws, c)
					continue
				}
				passes = append(passes, c)
			}
			assert.Equal(t, tc.passes, passes)
			assert.NotContains(t, r.calls, "abort")

			// Both solid objects share one instanced draw; the transparent batch starts after them.
			require.NotEmpty(t, draws)
			assert.Contains(t, draws[0], "x2 @0")
			if tc.transparent {
				require.Len(t, draws, 2)
				assert.Contains(t, draws[1], "accumulate:")
				assert.Contains(t, draws[1], "x1 @2")
			} else {
				assert.Len(t, draws, 1)
			}
		})
	}
}

func TestBlendConstantsAgree(t *testing.T) {
	assert.Equal(t, uint32(material.BlendModeAdditive), oit.BlendAdditive)
}
