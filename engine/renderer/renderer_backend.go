package renderer

import (
	"fmt"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType selects the GPU API behind a Renderer. WebGPU is the only one.
type RendererBackendType int

const (
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode is the swap behaviour of the window surface.
type PresentMode int

const (
	// PresentModeVSync queues frames behind the vertical blank.
	PresentModeVSync PresentMode = iota

	// PresentModeLowLatency replaces a queued frame with the newest one without tearing.
	// Surfaces without mailbox support use VSync instead.
	PresentModeLowLatency

	// PresentModeUncapped presents as soon as a frame is ready and may tear.
	PresentModeUncapped
)

var presentModeNames = [...]string{"vsync", "low_latency", "uncapped"}

func (m PresentMode) String() string {
	if m < 0 || int(m) >= len(presentModeNames) {
		return fmt.Sprintf("PresentMode(%d)", int(m))
	}
	return presentModeNames[m]
}

// ParsePresentMode returns the mode whose String form is name.
//
// Parameters:
//   - name: "vsync", "low_latency" or "uncapped"
//
// Returns:
//   - PresentMode: the parsed mode
//   - bool: false when name is unknown
func ParsePresentMode(name string) (PresentMode, bool) {
	i := slices.Index(presentModeNames[:], name)
	if i < 0 {
		return PresentModeVSync, false
	}
	return PresentMode(i), true
}

// surfaceMode picks the wgpu present mode for m among the modes the surface supports.
// FIFO is always available and is the fallback.
func (m PresentMode) surfaceMode(supported []wgpu.PresentMode) wgpu.PresentMode {
	want := wgpu.PresentModeFifo
	switch m {
	case PresentModeLowLatency:
		want = wgpu.PresentModeMailbox
	case PresentModeUncapped:
		want = wgpu.PresentModeImmediate
	}
	if slices.Contains(supported, want) {
		return want
	}
	return wgpu.PresentModeFifo
}

// RendererBackend is the backend a renderer drives.
type RendererBackend interface {
	wgpuRendererBackend
}
