package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwPlatform owns the GLFW window. Every method must run on the thread that created it.
type glfwPlatform struct {
	handle *glfw.Window
	closed bool
}

var _ platform = &glfwPlatform{}

// openGLFW creates a client-API-less GLFW window sized from w and routes its input events
// into w's handlers. The OS thread stays locked since GLFW is not thread safe.
func openGLFW(w *engineWindow) (*glfwPlatform, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("window: glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	handle, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("window: glfw create window: %w", err)
	}
	handle.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	handle.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Repeat {
			return
		}
		w.handleKey(Key(key), action == glfw.Press)
	})
	handle.SetScrollCallback(func(_ *glfw.Window, _, dy float64) {
		if w.onScroll != nil {
			w.onScroll(float32(dy))
		}
	})
	handle.SetMouseButtonCallback(func(win *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button == glfw.MouseButtonLeft {
			x, y := win.GetCursorPos()
			w.handleLeftButton(action == glfw.Press, x, y)
		}
	})
	handle.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.handleCursor(x, y)
	})
	// Framebuffer size, not window size, is what the surface is configured with.
	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.handleResize(width, height)
	})

	w.width, w.height = handle.GetFramebufferSize()
	return &glfwPlatform{handle: handle}, nil
}

func (p *glfwPlatform) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(p.handle)
}

func (p *glfwPlatform) alive() bool {
	return !p.closed && !p.handle.ShouldClose()
}

func (p *glfwPlatform) poll() bool {
	glfw.PollEvents()
	return p.alive()
}

func (p *glfwPlatform) setTitle(title string) {
	p.handle.SetTitle(title)
}

func (p *glfwPlatform) close() {
	if p.closed {
		return
	}
	p.closed = true
	p.handle.Destroy()
	glfw.Terminate()
}
