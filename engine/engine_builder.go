package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/loader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
)

// defaultTickRate is the engine tick frequency when none or a non-positive one is given.
const defaultTickRate = 60

// EngineBuilderOption configures the engine before NewEngine creates whatever was not supplied.
type EngineBuilderOption func(*engine)

// interval converts a rate in hertz to the time between events. Non-positive rates yield 0.
func interval(hz float64) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / hz)
}

// tickIntervalFor returns the tick period for fps, falling back to defaultTickRate.
func tickIntervalFor(fps float64) time.Duration {
	if fps <= 0 {
		fps = defaultTickRate
	}
	return interval(fps)
}

// WithConfig supplies the settings the window, renderer, camera and lights are built from.
// Without it config.Default is used.
//
// Parameters:
//   - cfg: the settings
//
// Returns:
//   - EngineBuilderOption: the option
func WithConfig(cfg config.Config) EngineBuilderOption {
	return func(e *engine) { e.cfg = cfg }
}

// WithConfigPath names the file cfg was read from so Watch can reload it.
//
// Parameters:
//   - path: the TOML or YAML file
//
// Returns:
//   - EngineBuilderOption: the option
func WithConfigPath(path string) EngineBuilderOption {
	return func(e *engine) { e.configPath = path }
}

// WithProfiling turns per-second frame timing logs on or off.
//
// Parameters:
//   - enabled: whether to log
//
// Returns:
//   - EngineBuilderOption: the option
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) { e.profilingEnabled = enabled }
}

// WithTickRate sets how often the camera moves and the tick callback fires. Non-positive
// rates mean 60 Hz.
//
// Parameters:
//   - fps: ticks per second
//
// Returns:
//   - EngineBuilderOption: the option
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) { e.tickInterval = tickIntervalFor(fps) }
}

// WithRenderFrameLimit caps the render loop. Zero or less leaves it uncapped.
//
// Parameters:
//   - fps: maximum frames per second
//
// Returns:
//   - EngineBuilderOption: the option
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) { e.minFrameTime = interval(fps) }
}

// WithWindow supplies an existing window instead of one built from the config.
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) { e.window = w }
}

// WithCamera supplies the camera. It should carry a controller or keyboard and drag input
// has no effect.
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) { e.camera = c }
}

// WithLoader replaces the glTF loader used by LoadScene.
func WithLoader(l loader.Loader) EngineBuilderOption {
	return func(e *engine) { e.loader = l }
}
