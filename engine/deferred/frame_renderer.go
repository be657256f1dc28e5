package deferred

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/frame"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/oit"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// Keys of the fixed pipelines. Material pipelines are keyed per program and state variant.
const (
	pipelineLighting   = "lighting"
	pipelineOITClear   = "oit_clear"
	pipelineOITResolve = "oit_resolve"
	pipelineTonemap    = "tonemap"
	pipelinePresent    = "present"
)

// ErrZeroSize is returned by NewFrameRenderer for a zero width or height.
var ErrZeroSize = errors.New("deferred: frame size must be non-zero")

const (
	instanceSize = 64
	lightSize    = 32
	indexSize    = 4
)

// frameRenderer is the implementation of the FrameRenderer interface.
type frameRenderer struct {
	mu *sync.Mutex

	r        renderer.Renderer
	seq      *frame.Sequencer
	profiler *profiler.Profiler

	width, height     uint32
	tiles             light.TileConfig
	oit               oit.Config
	fragmentsPerPixel uint32
	doubleSided       bool
	debugView         frame.DebugView
	exposure          float32
	gamma             float32
	clearColor        wgpu.Color

	sources  []programSource
	programs map[string]*program
	warned   map[string]bool

	res       *resources
	sets      map[string]*bindingSet
	materials map[material.Material]*materialEntry

	opaque      []scene.InstanceBatch
	transparent []scene.InstanceBatch

	overflow     overflowLimiter
	lastOverflow uint32
}

// FrameRenderer draws a scene through the deferred pipeline:
//
//	GeometryPass            MRT pass into albedo, normal and depth, one instanced draw per batch
//	LightCulling            CPU tile culling, tile lists uploaded
//	LightingResolve         compute, G-buffer + tile lights into the HDR target
//	TransparencyAccumulate  compute clear, then depth-tested draws into per-pixel fragment lists
//	TransparencyResolve     compute, lists sorted and composited over the HDR target
//	Tonemap                 compute, Reinhard and gamma, or a raw G-buffer debug view
//	Present                 fullscreen blit into the surface
//
// The two transparency stages only run when the scene has a transparent group.
// A FrameRenderer is driven from the render goroutine; its setters may be called from any goroutine.
type FrameRenderer interface {
	// Render draws one frame of the scene as seen by the camera and presents it.
	// Stale instance groups are rebuilt first. On error the frame is abandoned and nothing is presented.
	//
	// Parameters:
	//   - sc: the scene to draw
	//   - cam: the viewing camera
	//
	// Returns:
	//   - error: the failing stage's error, wrapped with the stage name
	Render(sc scene.Scene, cam camera.Camera) error

	// Resize recreates the render targets and the transparency storage for a new frame size, and
	// reconfigures the surface. A zero size, as reported for a minimized window, is ignored.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if GPU resource creation fails
	Resize(width, height int) error

	// Size returns the current frame size in pixels.
	Size() (uint32, uint32)

	// Stage returns the stage of the frame in progress, or StageIdle between frames.
	Stage() frame.Stage

	// TileSize returns the light culling tile edge in pixels.
	TileSize() uint32

	// SetTileSize changes the light culling tile edge.
	//
	// Parameters:
	//   - size: the tile edge in pixels
	//
	// Returns:
	//   - error: light.ErrInvalidTileConfig for a zero size, or a buffer creation error
	SetTileSize(size uint32) error

	// DebugView returns the buffer the tonemap pass shows.
	DebugView() frame.DebugView

	// SetDebugView selects the buffer the tonemap pass shows.
	SetDebugView(view frame.DebugView)

	// CycleDebugView advances to the next debug view and returns it.
	CycleDebugView() frame.DebugView

	// DoubleSided reports whether transparent batches are drawn with both cull modes.
	DoubleSided() bool

	// SetDoubleSided toggles drawing transparent batches twice, front faces culled then back faces culled.
	SetDoubleSided(enabled bool)

	// SetExposure sets the linear exposure applied before tonemapping.
	SetExposure(exposure float32)

	// SetGamma sets the output gamma.
	SetGamma(gamma float32)

	// OITConfig returns the current transparency storage configuration.
	OITConfig() oit.Config

	// LastOverflow returns the number of transparent fragments dropped at the last counter readback.
	LastOverflow() uint32

	// ForgetScene releases the GPU resources of a scene, including the material bind groups this
	// renderer built for it. Used when a scene is swapped out.
	//
	// Parameters:
	//   - sc: the scene being retired
	ForgetScene(sc scene.Scene)

	// Release frees every GPU resource owned by the frame renderer.
	Release()
}

var _ FrameRenderer = &frameRenderer{}

// NewFrameRenderer creates the render targets, shared buffers and fixed pipelines of the deferred frame.
//
// Parameters:
//   - r: the renderer whose device and surface the frame uses
//   - width: the initial frame width in pixels
//   - height: the initial frame height in pixels
//   - options: variadic list of FrameRendererOption functions
//
// Returns:
//   - FrameRenderer: the frame renderer
//   - error: ErrZeroSize, or the first GPU resource or pipeline creation error
func NewFrameRenderer(r renderer.Renderer, width, height int, options ...FrameRendererOption) (FrameRenderer, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrZeroSize
	}
	f := &frameRenderer{
		mu:                &sync.Mutex{},
		r:                 r,
		seq:               frame.NewSequencer(),
		tiles:             light.TileConfig{TileSize: light.DefaultTileSize},
		fragmentsPerPixel: oit.DefaultFragmentsPerPixel,
		debugView:         frame.DebugViewLit,
		exposure:          1,
		gamma:             2.2,
		clearColor:        wgpu.Color{R: 0.02, G: 0.02, B: 0.03, A: 1},
		sources:           defaultPrograms(),
		programs:          make(map[string]*program),
		warned:            make(map[string]bool),
		res:               newResources(),
		sets:              make(map[string]*bindingSet),
		materials:         make(map[material.Material]*materialEntry),
		overflow:          overflowLimiter{interval: time.Second},
	}
	for _, opt := range options {
		opt(f)
	}
	if f.tiles.TileSize == 0 {
		return nil, light.ErrInvalidTileConfig
	}

	for _, src := range f.sources {
		f.programs[src.name] = newProgram(src.name, src.pass, src.source)
	}

	for _, id := range []resID{resFrame, resTileUniforms, resOITUniforms, resTonemap, resCounter} {
		if err := f.res.ensureBuffer(r, id, resMinSizes[id]); err != nil {
			return nil, err
		}
	}
	if err := f.resize(uint32(width), uint32(height)); err != nil {
		f.Release()
		return nil, err
	}
	if err := f.registerFixedPipelines(); err != nil {
		f.Release()
		return nil, err
	}
	return f, nil
}

func (f *frameRenderer) registerFixedPipelines() error {
	compute := func(key, source string) pipeline.Pipeline {
		s := shader.NewShaderFromSource(key+"_cs", shader.ShaderTypeCompute, key+" pass", source)
		return pipeline.NewPipeline(key, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(s))
	}
	present := pipeline.NewPipeline(pipelinePresent, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(shader.NewShaderFromSource("present_vs", shader.ShaderTypeVertex, "present pass", presentSource)),
		pipeline.WithFragmentShader(shader.NewShaderFromSource("present_fs", shader.ShaderTypeFragment, "present pass", presentSource)),
		pipeline.WithColorTargets(f.r.SurfaceFormat()),
		pipeline.WithCullMode(wgpu.CullModeNone),
	)

	fixed := []struct {
		set string
		p   pipeline.Pipeline
		io  targetIO
	}{
		{pipelineLighting, compute(pipelineLighting, lightingSource), targetIO{output: targetLit}},
		{pipelineOITClear, compute(pipelineOITClear, oitClearSource), targetIO{}},
		{pipelineOITResolve, compute(pipelineOITResolve, oitResolveSource), targetIO{input: targetLit, output: targetComposited}},
		{pipelineTonemap, compute(pipelineTonemap, tonemapSource), targetIO{input: targetLit, output: targetOutput}},
		{pipelinePresent, present, targetIO{input: targetOutput}},
	}
	for _, fp := range fixed {
		if err := f.r.RegisterPipelines(fp.p); err != nil {
			return fmt.Errorf("register %s pipeline: %w", fp.set, err)
		}
		set, err := planBindingSet(fp.set, fp.p, fp.io)
		if err != nil {
			return err
		}
		f.sets[fp.set] = set
	}

	// The tonemap pass reads the composited target on frames with transparency.
	set, err := planBindingSet(tonemapComposited, f.r.Pipeline(pipelineTonemap), targetIO{input: targetComposited, output: targetOutput})
	if err != nil {
		return err
	}
	f.sets[tonemapComposited] = set
	return nil
}

const tonemapComposited = pipelineTonemap + ":composited"

func (f *frameRenderer) Render(sc scene.Scene, cam camera.Camera) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sc.Stale() {
		sc.OrderObjectsInLists()
	}
	hasTransparency := sc.HasTransparency()

	if err := f.seq.Begin(hasTransparency); err != nil {
		return err
	}
	if err := f.r.BeginCommands(); err != nil {
		f.seq.Abort()
		return err
	}

	for stage := f.seq.Stage(); stage != frame.StageIdle; {
		if f.profiler != nil {
			f.profiler.BeginStage(stage.String())
		}
		err := f.runStage(stage, sc, cam)
		if f.profiler != nil {
			f.profiler.EndStage()
		}
		if err != nil {
			f.seq.Abort()
			f.r.AbortFrame()
			return fmt.Errorf("%s: %w", stage, err)
		}
		if stage, err = f.seq.Advance(); err != nil {
			f.r.AbortFrame()
			return err
		}
	}

	if hasTransparency {
		f.checkOverflow()
	}
	return nil
}

func (f *frameRenderer) runStage(stage frame.Stage, sc scene.Scene, cam camera.Camera) error {
	switch stage {
	case frame.StageGeometryPass:
		return f.geometryPass(sc, cam)
	case frame.StageLightCulling:
		return f.lightCulling(sc, cam)
	case frame.StageLightingResolve:
		return f.dispatch(pipelineLighting, pipelineLighting)
	case frame.StageTransparencyAccumulate:
		return f.transparencyAccumulate()
	case frame.StageTransparencyResolve:
		return f.dispatch(pipelineOITResolve, pipelineOITResolve)
	case frame.StageTonemap:
		return f.tonemap()
	case frame.StagePresent:
		return f.present()
	default:
		return fmt.Errorf("unexpected stage %s", stage)
	}
}

// collect culls both partitions and uploads the surviving transforms into one instance buffer,
// opaque batches first. Transparent batches are offset past the opaque instances.
func (f *frameRenderer) collect(sc scene.Scene, cam camera.Camera) error {
	pos, frustum := cam.Position(), cam.BuildFrustum()
	f.opaque = sc.CollectInstances(sc.OpaqueGroups(), pos, frustum)
	f.transparent = nil
	if f.seq.HasTransparency() {
		f.transparent = sc.CollectInstances(sc.TransparentGroups(), pos, frustum)
	}

	transforms := flattenTransforms(f.opaque, f.transparent)
	offset := uint32(0)
	for _, b := range f.opaque {
		offset += uint32(len(b.Transforms))
	}
	for i := range f.transparent {
		f.transparent[i].FirstInstance += offset
	}
	if len(transforms) == 0 {
		return f.res.ensureBuffer(f.r, resInstances, nextCapacity(0, instanceSize))
	}
	if err := f.res.ensureBuffer(f.r, resInstances, nextCapacity(len(transforms), instanceSize)); err != nil {
		return err
	}
	f.r.WriteBuffers([]bind_group_provider.BufferWrite{f.res.write(resInstances, model.MarshalModelData(transforms))})
	return nil
}

func flattenTransforms(groups ...[]scene.InstanceBatch) [][16]float32 {
	var out [][16]float32
	for _, batches := range groups {
		for _, b := range batches {
			out = append(out, b.Transforms...)
		}
	}
	return out
}

func (f *frameRenderer) geometryPass(sc scene.Scene, cam camera.Camera) error {
	fu := sc.FrameUniform(cam)
	f.r.WriteBuffers([]bind_group_provider.BufferWrite{f.res.write(resFrame, fu.Marshal())})
	if err := f.collect(sc, cam); err != nil {
		return err
	}

	// Bind groups and pipelines are resolved before the pass opens; nothing below may create GPU objects.
	type draw struct {
		key    string
		batch  scene.InstanceBatch
		groups []bind_group_provider.BindGroupProvider
	}
	draws := make([]draw, 0, len(f.opaque))
	for _, b := range f.opaque {
		if b.Mesh == nil || b.Material == nil || len(b.Transforms) == 0 {
			continue
		}
		if err := f.ensureMesh(b.Mesh); err != nil {
			return err
		}
		key, set, err := f.geometryPipeline(b.Material)
		if err != nil {
			return err
		}
		matProvider, err := f.materialProvider(b.Material, set)
		if err != nil {
			return err
		}
		draws = append(draws, draw{key: key, batch: b, groups: cloneGroups(set.with(matProvider))})
	}

	err := f.r.BeginRenderPass(renderer.RenderPassSpec{
		Label:        "Geometry Pass",
		ColorTargets: []*renderer.RenderTarget{f.res.target(targetAlbedo), f.res.target(targetNormal)},
		ClearColors:  []wgpu.Color{f.clearColor, {R: 0.5, G: 0.5, B: 0.5, A: 1}},
		Depth:        f.res.target(targetDepth),
		ClearDepth:   true,
	})
	if err != nil {
		return err
	}
	defer f.r.EndRenderPass()
	for _, d := range draws {
		if err := f.r.DrawCall(d.key, d.batch.Mesh.MeshProvider(), uint32(len(d.batch.Transforms)), d.batch.FirstInstance, d.groups); err != nil {
			return err
		}
	}
	return nil
}

func cloneGroups(groups []bind_group_provider.BindGroupProvider) []bind_group_provider.BindGroupProvider {
	return append([]bind_group_provider.BindGroupProvider(nil), groups...)
}

func (f *frameRenderer) ensureMesh(mesh model.StaticMesh) error {
	if mesh.MeshProvider() != nil {
		return nil
	}
	return mesh.Upload(f.r)
}

func (f *frameRenderer) lightCulling(sc scene.Scene, cam camera.Camera) error {
	lights := sc.Lights()
	view := light.TileView{Position: cam.Position(), Basis: cam.Basis(), FovY: cam.Fov(), Aspect: cam.Aspect()}
	lists := light.CullTiles(view, lights, f.tiles)

	if err := f.res.ensureBuffer(f.r, resLights, nextCapacity(len(lights), lightSize)); err != nil {
		return err
	}
	if err := f.res.ensureBuffer(f.r, resTileIndices, nextCapacity(len(lists.Indices), indexSize)); err != nil {
		return err
	}

	writes := []bind_group_provider.BufferWrite{f.res.write(resTileCounts, common.SliceToBytes(lists.Counts))}
	if len(lights) > 0 {
		writes = append(writes, f.res.write(resLights, light.MarshalPointLights(lights)))
	}
	if len(lists.Indices) > 0 {
		writes = append(writes, f.res.write(resTileIndices, common.SliceToBytes(lists.Indices)))
	}
	f.r.WriteBuffers(writes)
	return nil
}

// dispatch runs a full-frame compute pass with the named binding set.
func (f *frameRenderer) dispatch(key, setName string) error {
	set := f.sets[setName]
	if err := set.bind(f.r, f.res); err != nil {
		return err
	}
	p := f.r.Pipeline(key)
	if p == nil {
		return fmt.Errorf("pipeline %q is not registered", key)
	}
	wg := DispatchFor(f.width, f.height, p.Shader(shader.ShaderTypeCompute).WorkgroupSize())
	return f.r.DispatchCompute(key, set.with(nil), wg)
}

// DispatchFor returns the workgroup counts covering a width x height frame.
//
// Parameters:
//   - width, height: the frame size in pixels
//   - workgroup: the compute shader's workgroup size
//
// Returns:
//   - [3]uint32: the dispatch size
func DispatchFor(width, height uint32, workgroup [3]uint32) [3]uint32 {
	return renderer.DispatchSize(width, height, workgroup)
}

func (f *frameRenderer) transparencyAccumulate() error {
	if err := f.dispatch(pipelineOITClear, pipelineOITClear); err != nil {
		return err
	}

	type draw struct {
		key    string
		batch  scene.InstanceBatch
		groups []bind_group_provider.BindGroupProvider
	}
	var draws []draw
	for _, b := range f.transparent {
		if b.Mesh == nil || b.Material == nil || len(b.Transforms) == 0 {
			continue
		}
		if err := f.ensureMesh(b.Mesh); err != nil {
			return err
		}
		for _, cull := range transparentCulls(b.Material.Cull(), f.doubleSided) {
			key, set, err := f.accumulatePipeline(b.Material, cull)
			if err != nil {
				return err
			}
			matProvider, err := f.materialProvider(b.Material, set)
			if err != nil {
				return err
			}
			draws = append(draws, draw{key: key, batch: b, groups: cloneGroups(set.with(matProvider))})
		}
	}

	err := f.r.BeginRenderPass(renderer.RenderPassSpec{
		Label:         "Transparency Accumulate",
		Depth:         f.res.target(targetDepth),
		DepthReadOnly: true,
	})
	if err != nil {
		return err
	}
	defer f.r.EndRenderPass()
	for _, d := range draws {
		if err := f.r.DrawCall(d.key, d.batch.Mesh.MeshProvider(), uint32(len(d.batch.Transforms)), d.batch.FirstInstance, d.groups); err != nil {
			return err
		}
	}
	return nil
}

// transparentCulls returns the cull modes a transparent batch is drawn with, in draw order.
func transparentCulls(cull material.CullMode, doubleSided bool) []material.CullMode {
	if doubleSided {
		return []material.CullMode{material.CullModeFrontface, material.CullModeBackface}
	}
	return []material.CullMode{cull}
}

func (f *frameRenderer) tonemap() error {
	params := frame.GPUTonemapParams{
		Exposure:  f.exposure,
		Gamma:     f.gamma,
		DebugView: f.debugView,
	}
	if isSRGB(f.r.SurfaceFormat()) {
		params.SRGBOut = 1
	}
	f.r.WriteBuffers([]bind_group_provider.BufferWrite{f.res.write(resTonemap, params.Marshal())})

	setName := pipelineTonemap
	if f.seq.HasTransparency() {
		setName = tonemapComposited
	}
	return f.dispatch(pipelineTonemap, setName)
}

func isSRGB(format wgpu.TextureFormat) bool {
	return format == wgpu.TextureFormatBGRA8UnormSrgb || format == wgpu.TextureFormatRGBA8UnormSrgb
}

func (f *frameRenderer) present() error {
	set := f.sets[pipelinePresent]
	if err := set.bind(f.r, f.res); err != nil {
		return err
	}
	if err := f.r.BeginPresent(); err != nil {
		return err
	}
	if err := f.r.DrawFullscreen(pipelinePresent, set.with(nil)); err != nil {
		return err
	}
	f.r.EndRenderPass()
	f.r.Submit()
	f.r.Present()
	return nil
}

// checkOverflow reads the fragment counter back, at most once per interval, and logs dropped fragments.
func (f *frameRenderer) checkOverflow() {
	if !f.overflow.allow(time.Now()) {
		return
	}
	data, err := f.r.ReadBuffer(f.res.buffer(resCounter), 4)
	if err != nil || len(data) < 4 {
		log.Printf("[Deferred] unable to read transparency counter: %v", err)
		return
	}
	counter := binary.LittleEndian.Uint32(data)
	f.lastOverflow = f.oit.Overflowed(counter)
	if f.lastOverflow > 0 {
		log.Printf("[Deferred] transparency pool overflow: %d of %d fragments dropped (capacity %d)",
			f.lastOverflow, counter, f.oit.Capacity)
	}
}

// overflowLimiter lets an action through at most once per interval.
type overflowLimiter struct {
	interval time.Duration
	last     time.Time
}

func (l *overflowLimiter) allow(now time.Time) bool {
	if !l.last.IsZero() && now.Sub(l.last) < l.interval {
		return false
	}
	l.last = now
	return true
}

// geometryVariant keys a geometry pipeline by program and the material state baked into it.
func geometryVariant(program string, cull material.CullMode, depth material.DepthTestMode, write bool) string {
	return fmt.Sprintf("geometry:%s:cull=%d:depth=%d:write=%t", program, cull, depth, write)
}

// accumulateVariant keys a transparency accumulate pipeline by program and cull mode.
func accumulateVariant(program string, cull material.CullMode) string {
	return fmt.Sprintf("accumulate:%s:cull=%d", program, cull)
}

func (f *frameRenderer) program(mat material.Material, pass Pass) *program {
	p, fallback := resolveProgram(f.programs, mat.PipelineKey(), pass)
	if fallback {
		warnKey := pass.String() + ":" + mat.PipelineKey()
		if !f.warned[warnKey] {
			f.warned[warnKey] = true
			log.Printf("[Deferred] material %q: no %s program %q, using %q", mat.Name(), pass, mat.PipelineKey(), p.name)
		}
	}
	return p
}

func (f *frameRenderer) geometryPipeline(mat material.Material) (string, *bindingSet, error) {
	prog := f.program(mat, PassGeometry)
	key := geometryVariant(prog.name, mat.Cull(), mat.DepthTest(), mat.DepthWrite())
	err := f.ensureMaterialPipeline(key, "geometry:"+prog.name, func() pipeline.Pipeline {
		return pipeline.NewPipeline(key, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(prog.vs),
			pipeline.WithFragmentShader(prog.fs),
			pipeline.WithColorTargets(renderer.AlbedoFormat, renderer.NormalFormat),
			pipeline.WithDepth(renderer.DepthFormat, mat.DepthTest().CompareFunction(), mat.DepthWrite()),
			pipeline.WithCullMode(mat.Cull().WGPU()),
		)
	})
	return key, f.sets["geometry:"+prog.name], err
}

func (f *frameRenderer) accumulatePipeline(mat material.Material, cull material.CullMode) (string, *bindingSet, error) {
	prog := f.program(mat, PassTransparency)
	key := accumulateVariant(prog.name, cull)
	err := f.ensureMaterialPipeline(key, "accumulate:"+prog.name, func() pipeline.Pipeline {
		return pipeline.NewPipeline(key, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(prog.vs),
			pipeline.WithFragmentShader(prog.fs),
			pipeline.WithColorTargets(),
			pipeline.WithDepth(renderer.DepthFormat, wgpu.CompareFunctionLess, false),
			pipeline.WithCullMode(cull.WGPU()),
		)
	})
	return key, f.sets["accumulate:"+prog.name], err
}

// ensureMaterialPipeline registers a pipeline variant on first use and plans and binds the binding set
// shared by every variant of its program.
func (f *frameRenderer) ensureMaterialPipeline(key, setName string, build func() pipeline.Pipeline) error {
	p := f.r.Pipeline(key)
	if p == nil {
		p = build()
		if err := f.r.RegisterPipelines(p); err != nil {
			return err
		}
	}
	set := f.sets[setName]
	if set == nil {
		var err error
		if set, err = planBindingSet(setName, p, targetIO{}); err != nil {
			return err
		}
		f.sets[setName] = set
	}
	return set.bind(f.r, f.res)
}

func (f *frameRenderer) Resize(width, height int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if width <= 0 || height <= 0 {
		return nil
	}
	f.r.Resize(width, height)
	return f.resize(uint32(width), uint32(height))
}

func (f *frameRenderer) resize(width, height uint32) error {
	f.width, f.height = width, height
	f.tiles.Width, f.tiles.Height = width, height
	f.oit = oit.NewConfig(width, height, f.fragmentsPerPixel, f.r.MaxStorageBufferBindingSize())

	if err := f.res.createTargets(f.r, width, height); err != nil {
		return err
	}
	if err := f.res.ensureBuffer(f.r, resHeads, f.oit.HeadBytes()); err != nil {
		return err
	}
	if err := f.res.ensureBuffer(f.r, resNodes, f.oit.PoolBytes()); err != nil {
		return err
	}
	oitUniforms := f.oit.Uniforms()
	f.r.WriteBuffers([]bind_group_provider.BufferWrite{f.res.write(resOITUniforms, oitUniforms.Marshal())})
	return f.writeTiles()
}

// writeTiles sizes the tile count buffer for the grid and uploads the tile uniforms.
func (f *frameRenderer) writeTiles() error {
	if err := f.res.ensureBuffer(f.r, resTileCounts, uint64(f.tiles.TileCount())*indexSize); err != nil {
		return err
	}
	u := f.tiles.Uniforms()
	f.r.WriteBuffers([]bind_group_provider.BufferWrite{f.res.write(resTileUniforms, u.Marshal())})
	return nil
}

func (f *frameRenderer) Size() (uint32, uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.width, f.height
}

func (f *frameRenderer) Stage() frame.Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq.Stage()
}

func (f *frameRenderer) TileSize() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tiles.TileSize
}

func (f *frameRenderer) SetTileSize(size uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if size == 0 {
		return light.ErrInvalidTileConfig
	}
	f.tiles.TileSize = size
	return f.writeTiles()
}

func (f *frameRenderer) DebugView() frame.DebugView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.debugView
}

func (f *frameRenderer) SetDebugView(view frame.DebugView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debugView = view
}

func (f *frameRenderer) CycleDebugView() frame.DebugView {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debugView = f.debugView.Next()
	return f.debugView
}

func (f *frameRenderer) DoubleSided() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doubleSided
}

func (f *frameRenderer) SetDoubleSided(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doubleSided = enabled
}

func (f *frameRenderer) SetExposure(exposure float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exposure = exposure
}

func (f *frameRenderer) SetGamma(gamma float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gamma = gamma
}

func (f *frameRenderer) OITConfig() oit.Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.oit
}

func (f *frameRenderer) LastOverflow() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOverflow
}

func (f *frameRenderer) ForgetScene(sc scene.Scene) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, obj := range sc.Objects() {
		if mat := obj.Material(); mat != nil {
			delete(f.materials, mat)
		}
	}
	sc.Release()
}

func (f *frameRenderer) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, set := range f.sets {
		set.release()
		delete(f.sets, name)
	}
	for mat, e := range f.materials {
		e.provider.Release()
		mat.SetBindGroupProvider(nil)
		delete(f.materials, mat)
	}
	f.res.release()
}
