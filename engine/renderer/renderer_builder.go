package renderer

// RendererBuilderOption configures a renderer before NewRenderer requests an adapter.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode used from the first frame.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - RendererBuilderOption: the option
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithSoftwareAdapter asks wgpu for its fallback adapter instead of a hardware GPU.
// The system needs a software driver such as lavapipe or SwiftShader, which makes
// this useful for running the renderer on headless CI machines.
//
// Parameters:
//   - software: true to request the fallback adapter
//
// Returns:
//   - RendererBuilderOption: the option
func WithSoftwareAdapter(software bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = software
	}
}
