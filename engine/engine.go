package engine

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/deferred"
	"github.com/Carmen-Shannon/oxy-deferred/engine/loader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
	"github.com/fsnotify/fsnotify"
)

// ErrStopped is returned when a scene is swapped in after the engine quit.
var ErrStopped = errors.New("engine: stopped")

// engine implements the Engine interface.
// Coordinates the tick, render and window threads around one active scene.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer
	frames   deferred.FrameRenderer
	camera   camera.Camera
	loader   loader.Loader

	cfg        config.Config
	configPath string

	profiler         *profiler.Profiler
	profilingEnabled bool

	tickInterval   time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	// frameMu serializes frames with scene swaps, so a scene is never released mid-frame.
	frameMu   sync.Mutex
	scene     scene.Scene
	scenePath string

	watcher *fsnotify.Watcher

	minFrameTime time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It owns the window, the deferred frame renderer, the fly camera and exactly one active scene.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the GPU renderer.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// FrameRenderer returns the deferred frame renderer driving each frame.
	//
	// Returns:
	//   - deferred.FrameRenderer: the frame renderer
	FrameRenderer() deferred.FrameRenderer

	// Camera returns the fly camera.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Config returns the configuration the engine currently runs with.
	//
	// Returns:
	//   - config.Config: the configuration
	Config() config.Config

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick, after the camera moves.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// LoadScene loads a scene file, appends the configured lights and uploads it. On success the new
	// scene replaces the active one, whose GPU resources are released. On failure the error is logged
	// and returned and the active scene stays.
	//
	// Parameters:
	//   - path: the .gltf or .glb file
	//
	// Returns:
	//   - error: error if loading, building or uploading fails
	LoadScene(path string) error

	// SetScene uploads a scene built in code and makes it the active scene.
	//
	// Parameters:
	//   - sc: the scene
	//
	// Returns:
	//   - error: error if uploading fails, in which case the active scene stays
	SetScene(sc scene.Scene) error

	// Scene returns the active scene, or nil.
	//
	// Returns:
	//   - scene.Scene: the active scene
	Scene() scene.Scene

	// Watch reloads the scene when its file changes, and the configuration when the config file changes.
	// Events are debounced by 200ms. Watching stops when the engine quits.
	//
	// Parameters:
	//   - paths: files to watch; the active scene file and the config file are recognized
	//
	// Returns:
	//   - error: error if the watcher cannot be created or a directory cannot be watched
	Watch(paths ...string) error

	// Run starts the main engine loop (blocks until window closes), then releases GPU resources.
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates the window, renderer and frame renderer from the configuration and options.
// Panics if the frame renderer cannot be created, as the renderer and window constructors do.
//
// Parameters:
//   - options: functional options for engine configuration (config, profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		running:          false,
		wg:               sync.WaitGroup{},
		cfg:              config.Default(),
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		tickInterval:     tickIntervalFor(defaultTickRate),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		e.window = window.NewWindow(
			window.WithTitle(e.cfg.Window.Title),
			window.WithSize(e.cfg.Window.Width, e.cfg.Window.Height),
		)
	}
	if e.renderer == nil {
		e.renderer = renderer.NewRenderer(renderer.BackendTypeWGPU, e.window,
			renderer.WithPresentMode(e.cfg.PresentMode()),
			renderer.WithSoftwareAdapter(e.cfg.Renderer.SoftwareAdapter),
		)
	}
	if e.loader == nil {
		e.loader = loader.NewLoader(loader.BackendTypeGLTF)
	}

	frames, err := deferred.NewFrameRenderer(e.renderer, e.window.Width(), e.window.Height(), e.frameOptions()...)
	if err != nil {
		panic(fmt.Sprintf("engine: failed to create frame renderer: %v", err))
	}
	e.frames = frames

	if e.camera == nil {
		e.camera = camera.NewCamera(
			camera.WithAspect(float32(e.window.Width())/float32(e.window.Height())),
			camera.WithFovDegrees(e.cfg.Camera.FovDegrees),
			camera.WithClipPlanes(e.cfg.Camera.Near, e.cfg.Camera.Far),
			camera.WithController(camera.NewFlyController(
				camera.WithPosition(common.Vec3(e.cfg.Camera.Position)),
				camera.WithLookAt(common.Vec3(e.cfg.Camera.Target)),
				camera.WithMoveSpeed(e.cfg.Camera.Speed),
			)),
		)
	}

	e.bindInput()
	return e
}

// frameOptions maps the renderer configuration onto frame renderer options.
func (e *engine) frameOptions() []deferred.FrameRendererOption {
	rc := e.cfg.Renderer
	return []deferred.FrameRendererOption{
		deferred.WithTileSize(rc.TileSize),
		deferred.WithFragmentsPerPixel(rc.FragmentsPerPixel),
		deferred.WithDoubleSided(rc.DoubleSided),
		deferred.WithDebugView(e.cfg.DebugView()),
		deferred.WithExposure(rc.Exposure),
		deferred.WithGamma(rc.Gamma),
		deferred.WithProfiler(e.profiler),
	}
}

// bindInput wires resize, drag and the debug keys.
func (e *engine) bindInput() {
	e.window.SetResizeCallback(func(width, height int) {
		if width <= 0 || height <= 0 {
			return
		}
		if err := e.frames.Resize(width, height); err != nil {
			log.Printf("[Engine] resize to %dx%d failed: %v", width, height, err)
		}
		e.camera.SetAspect(float32(width) / float32(height))
	})

	e.window.SetDragCallback(func(dx, dy float32) {
		if ctrl := e.camera.Controller(); ctrl != nil {
			ctrl.Rotate(dx, dy)
		}
	})

	e.window.SetKeyDownCallback(func(key window.Key) {
		switch key {
		case window.KeyF1:
			view := e.frames.CycleDebugView()
			log.Printf("[Engine] debug view: %s", view)
			e.updateTitle()
		case window.KeyF2:
			e.frames.SetDoubleSided(!e.frames.DoubleSided())
			log.Printf("[Engine] double-sided transparency: %t", e.frames.DoubleSided())
			e.updateTitle()
		case window.KeyF5:
			if path := e.activeScenePath(); path != "" {
				go func() { _ = e.LoadScene(path) }()
			}
		case window.KeyEscape:
			e.Quit()
		}
	})
}

func (e *engine) updateTitle() {
	e.window.SetTitle(fmt.Sprintf("%s [%s, double-sided %t]", e.cfg.Window.Title, e.frames.DebugView(), e.frames.DoubleSided()))
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) FrameRenderer() deferred.FrameRenderer {
	return e.frames
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Config() config.Config {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.cfg
}

func (e *engine) Run() {
	e.running = true
	e.handle()
	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()

	e.frameMu.Lock()
	if e.scene != nil {
		e.frames.ForgetScene(e.scene)
		e.scene = nil
	}
	e.frameMu.Unlock()
	e.frames.Release()
	if err := e.window.Close(); err != nil {
		log.Printf("[Engine] close window: %v", err)
	}
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit and asks the window loop to stop.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
		if e.window != nil {
			e.window.RequestClose()
		}
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Each tick moves the fly camera from the held keys, then fires the tick callback.
// Listens for dynamic rate changes via tickRateChannel and exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.moveCamera(dt)

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.tickInterval = newRate
		}
	}
}

// moveCamera applies WASD (Q/E for down/up) with shift boost to the fly controller.
func (e *engine) moveCamera(dt float32) {
	ctrl := e.camera.Controller()
	if ctrl == nil {
		return
	}
	forward, right, up := flyAxes(e.window.KeyPressed)
	if forward != 0 || right != 0 {
		ctrl.Move(forward, right, dt, e.window.KeyPressed(window.KeyLeftShift))
	}
	if up != 0 {
		p := ctrl.Position()
		p[1] += up * ctrl.MoveSpeed() * dt
		ctrl.SetPosition(p)
	}
	e.camera.Update()
}

// flyAxes turns held keys into forward, right and up axis values in [-1, 1].
func flyAxes(pressed func(window.Key) bool) (forward, right, up float32) {
	axis := func(pos, neg window.Key) float32 {
		var v float32
		if pressed(pos) {
			v++
		}
		if pressed(neg) {
			v--
		}
		return v
	}
	return axis(window.KeyW, window.KeyS), axis(window.KeyD, window.KeyA), axis(window.KeyE, window.KeyQ)
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Each iteration renders the active scene through the deferred frame renderer.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()
	var lastErr string

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if err := e.renderFrame(); err != nil {
				// The same failure usually repeats every frame; log it once.
				if msg := err.Error(); msg != lastErr {
					log.Printf("[Engine] frame failed: %v", err)
					lastErr = msg
				}
			} else {
				lastErr = ""
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.minFrameTime > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.minFrameTime - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// renderFrame renders the active scene, if any.
func (e *engine) renderFrame() error {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	if e.scene == nil || !e.scene.Active() {
		return nil
	}
	return e.frames.Render(e.scene, e.camera)
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			log.Printf("[Engine] close watcher: %v", err)
		}
	}
	e.loader.Close()
}

func (e *engine) LoadScene(path string) error {
	desc, err := e.loader.LoadScene(path)
	if err != nil {
		log.Printf("[Engine] unable to load scene %q: %v", path, err)
		return err
	}

	cfg := e.Config()
	dir, color := cfg.SunVectors()
	sc := loader.BuildScene(desc, cfg.PointLights(), scene.WithSun(dir, color))
	if g := cfg.ForceTransparentGroup; g >= 0 && g < len(sc.OpaqueGroups()) {
		if err := sc.ForceTransparency(deferred.ProgramTransparency, g); err != nil {
			log.Printf("[Engine] force transparency on group %d: %v", g, err)
		}
	}

	if err := e.swapScene(sc); err != nil {
		log.Printf("[Engine] unable to load scene %q: %v", path, err)
		return err
	}
	e.frameMu.Lock()
	e.scenePath = path
	e.frameMu.Unlock()
	// The scene owns the meshes now.
	e.loader.Forget(path)
	log.Printf("[Engine] loaded scene %q: %d objects, %d lights", path, len(sc.Objects()), len(sc.Lights()))
	return nil
}

func (e *engine) SetScene(sc scene.Scene) error {
	return e.swapScene(sc)
}

// swapScene uploads sc and makes it active, releasing the previous scene. A failed upload releases sc instead.
func (e *engine) swapScene(sc scene.Scene) error {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()

	select {
	case <-e.quitChannel:
		return ErrStopped
	default:
	}
	if sc.Stale() {
		sc.OrderObjectsInLists()
	}
	if err := sc.Upload(e.renderer); err != nil {
		e.frames.ForgetScene(sc)
		return fmt.Errorf("upload scene: %w", err)
	}
	if old := e.scene; old != nil && old != sc {
		e.frames.ForgetScene(old)
	}
	e.scene = sc
	return nil
}

func (e *engine) activeScenePath() string {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.scenePath
}

func (e *engine) Scene() scene.Scene {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.scene
}

// applyConfig takes over a reloaded configuration. Renderer and sun settings apply in place.
// Changed lights or a changed forced group rebuild the scene by reloading the active scene file.
func (e *engine) applyConfig(cfg config.Config) {
	e.frameMu.Lock()
	prev := e.cfg
	e.cfg = cfg
	sc, path := e.scene, e.scenePath
	e.frameMu.Unlock()

	if err := e.frames.SetTileSize(cfg.Renderer.TileSize); err != nil {
		log.Printf("[Engine] tile size %d: %v", cfg.Renderer.TileSize, err)
	}
	e.frames.SetDebugView(cfg.DebugView())
	e.frames.SetDoubleSided(cfg.Renderer.DoubleSided)
	e.frames.SetExposure(cfg.Renderer.Exposure)
	e.frames.SetGamma(cfg.Renderer.Gamma)
	if cfg.PresentMode() != prev.PresentMode() {
		e.renderer.SetPresentMode(cfg.PresentMode())
		e.frameMu.Lock()
		e.renderer.Resize(e.window.Width(), e.window.Height())
		e.frameMu.Unlock()
	}
	if fov, near, far := cfg.Projection(); e.camera != nil {
		e.camera.SetFov(fov)
		e.camera.SetClipPlanes(near, far)
	}
	if sc != nil {
		sc.SetSun(cfg.SunVectors())
	}
	e.updateTitle()

	if path != "" && (!slices.Equal(prev.Lights, cfg.Lights) || prev.ForceTransparentGroup != cfg.ForceTransparentGroup) {
		_ = e.LoadScene(path)
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate changes the tick frequency, immediately when the tick loop is running.
func (e *engine) SetTickRate(fps float64) {
	next := tickIntervalFor(fps)
	if !e.running {
		e.tickInterval = next
		return
	}
	// Keep only the latest pending rate.
	for {
		select {
		case e.tickRateChannel <- next:
			return
		default:
		}
		select {
		case <-e.tickRateChannel:
		default:
		}
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.minFrameTime = interval(fps)
}
