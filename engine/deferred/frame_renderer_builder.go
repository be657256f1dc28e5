package deferred

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/frame"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/cogentcore/webgpu/wgpu"
)

// FrameRendererOption is a functional option for configuring a FrameRenderer via NewFrameRenderer.
type FrameRendererOption func(*frameRenderer)

// WithTileSize sets the light culling tile edge. A zero size makes NewFrameRenderer fail.
//
// Parameters:
//   - size: the tile edge in pixels
//
// Returns:
//   - FrameRendererOption: option function to apply
func WithTileSize(size uint32) FrameRendererOption {
	return func(f *frameRenderer) {
		f.tiles.TileSize = size
	}
}

// WithFragmentsPerPixel sets how many transparent fragments per pixel the fragment pool is sized for.
// The pool is still clamped to the device's largest storage buffer binding.
//
// Parameters:
//   - n: the average fragment budget per pixel
//
// Returns:
//   - FrameRendererOption: option function to apply
func WithFragmentsPerPixel(n uint32) FrameRendererOption {
	return func(f *frameRenderer) {
		if n > 0 {
			f.fragmentsPerPixel = n
		}
	}
}

// WithDoubleSided starts the renderer with double-sided transparency on or off.
//
// Parameters:
//   - enabled: whether transparent batches are drawn with both cull modes
//
// Returns:
//   - FrameRendererOption: option function to apply
func WithDoubleSided(enabled bool) FrameRendererOption {
	return func(f *frameRenderer) {
		f.doubleSided = enabled
	}
}

// WithDebugView sets the initial debug view.
//
// Parameters:
//   - view: the buffer the tonemap pass shows
//
// Returns:
//   - FrameRendererOption: option function to apply
func WithDebugView(view frame.DebugView) FrameRendererOption {
	return func(f *frameRenderer) {
		f.debugView = view
	}
}

// WithExposure sets the linear exposure applied before tonemapping. Defaults to 1.
//
// Parameters:
//   - exposure: the exposure multiplier
//
// Returns:
//   - FrameRendererOption: option function to apply
func WithExposure(exposure float32) FrameRendererOption {
	return func(f *frameRenderer) {
		f.exposure = exposure
	}
}

// WithGamma sets the output gamma. Defaults to 2.2.
//
// Parameters:
//   - gamma: the gamma exponent
//
// Returns:
//   - FrameRendererOption: option function to apply
func WithGamma(gamma float32) FrameRendererOption {
	return func(f *frameRenderer) {
		f.gamma = gamma
	}
}

// WithClearColor sets the albedo the geometry pass clears to, which shows wherever nothing was drawn.
//
// Parameters:
//   - color: the clear color
//
// Returns:
//   - FrameRendererOption: option function to apply
func WithClearColor(color wgpu.Color) FrameRendererOption {
	return func(f *frameRenderer) {
		f.clearColor = color
	}
}

// WithProgram registers a material program. Materials select it through their pipeline key, and
// transparent materials through the program given to ForceTransparency.
// A geometry program must declare the same bindings as the built-in geometry program; a transparency
// program the same bindings as the built-in transparency program. Registering a built-in name replaces it.
//
// Parameters:
//   - name: the program name materials refer to
//   - pass: the pass the program draws in
//   - source: the WGSL source holding vs_main and fs_main
//
// Returns:
//   - FrameRendererOption: option function to apply
func WithProgram(name string, pass Pass, source string) FrameRendererOption {
	return func(f *frameRenderer) {
		for i, src := range f.sources {
			if src.name == name {
				f.sources[i] = programSource{name: name, pass: pass, source: source}
				return
			}
		}
		f.sources = append(f.sources, programSource{name: name, pass: pass, source: source})
	}
}

// WithProfiler attaches a profiler that records the time spent in each frame stage.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - FrameRendererOption: option function to apply
func WithProfiler(p *profiler.Profiler) FrameRendererOption {
	return func(f *frameRenderer) {
		f.profiler = p
	}
}
