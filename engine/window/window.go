package window

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing and input event handling.
// Input callbacks run on the thread that calls ProcessMessages; KeyPressed and SetTitle are safe from any goroutine.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up, negative = down)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press events. Repeats are not reported.
	//
	// Parameters:
	//   - callback: function receiving the key
	SetKeyDownCallback(callback func(key Key))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the key
	SetKeyUpCallback(callback func(key Key))

	// SetDragCallback sets the callback for cursor movement while the left mouse button is held.
	//
	// Parameters:
	//   - callback: function receiving the cursor delta in pixels since the previous event
	SetDragCallback(callback func(dx, dy float32))

	// SetMouseMoveCallback sets the callback for mouse movement.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMouseMoveCallback(callback func(x, y int32))

	// KeyPressed reports whether a key is currently held down.
	//
	// Parameters:
	//   - key: the key to poll
	//
	// Returns:
	//   - bool: true while the key is down
	KeyPressed(key Key) bool

	// SetTitle changes the title bar text. The change is applied on the next message loop iteration.
	//
	// Parameters:
	//   - title: the new title
	SetTitle(title string)

	// Title returns the most recently requested title.
	Title() string

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// RequestClose asks the message loop to stop. Safe from any goroutine.
	RequestClose()

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	mu sync.Mutex

	title        string
	titleChanged bool

	maxWidth  int
	maxHeight int
	minWidth  int
	minHeight int

	width  int
	height int

	closeRequested bool

	native platform

	// keys is the set of keys currently held down.
	keys map[Key]bool

	// dragging is true while the left mouse button is held; lastX/lastY track the cursor during a drag.
	dragging     bool
	lastX, lastY float64

	onUpdate    func()
	onResize    func(width, height int)
	onScroll    func(delta float32)
	onKeyDown   func(key Key)
	onKeyUp     func(key Key)
	onDrag      func(dx, dy float32)
	onMouseMove func(x, y int32)
}

var _ Window = &engineWindow{}

// platform is the native window behind an engineWindow.
type platform interface {
	surfaceDescriptor() *wgpu.SurfaceDescriptor
	alive() bool
	// poll dispatches pending events and reports whether the window is still open.
	poll() bool
	setTitle(title string)
	close()
}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured window
func NewWindow(options ...WindowBuilderOption) Window {
	w := newEngineWindow(options...)
	native, err := openGLFW(w)
	if err != nil {
		panic(fmt.Sprintf("window: failed to create platform window: %v", err))
	}
	w.native = native
	return w
}

func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:     "oxy deferred",
		maxWidth:  3840,
		maxHeight: 2160,
		minWidth:  320,
		minHeight: 200,
		width:     1600,
		height:    900,
		keys:      make(map[Key]bool),
	}
	for _, opt := range options {
		opt(w)
	}
	w.width = min(max(w.width, w.minWidth), w.maxWidth)
	w.height = min(max(w.height, w.minHeight), w.maxHeight)
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(key Key)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(key Key)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetDragCallback(callback func(dx, dy float32)) {
	w.onDrag = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y int32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) KeyPressed(key Key) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.keys[key]
}

func (w *engineWindow) SetTitle(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.title != title {
		w.title = title
		w.titleChanged = true
	}
}

func (w *engineWindow) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

// pendingTitle returns the title once after each change.
func (w *engineWindow) pendingTitle() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.titleChanged {
		return "", false
	}
	w.titleChanged = false
	return w.title, true
}

// handleKey records a key transition and fires the key callbacks. Repeats of a held key are dropped.
func (w *engineWindow) handleKey(key Key, down bool) {
	w.mu.Lock()
	was := w.keys[key]
	if down {
		w.keys[key] = true
	} else {
		delete(w.keys, key)
	}
	w.mu.Unlock()

	switch {
	case down && !was && w.onKeyDown != nil:
		w.onKeyDown(key)
	case !down && was && w.onKeyUp != nil:
		w.onKeyUp(key)
	}
}

// handleLeftButton starts or ends a drag at the given cursor position.
func (w *engineWindow) handleLeftButton(pressed bool, x, y float64) {
	w.dragging = pressed
	w.lastX, w.lastY = x, y
}

// handleCursor fires the move callback, and the drag callback with the delta while dragging.
func (w *engineWindow) handleCursor(x, y float64) {
	if w.onMouseMove != nil {
		w.onMouseMove(int32(x), int32(y))
	}
	if !w.dragging {
		return
	}
	dx, dy := x-w.lastX, y-w.lastY
	w.lastX, w.lastY = x, y
	if w.onDrag != nil && (dx != 0 || dy != 0) {
		w.onDrag(float32(dx), float32(dy))
	}
}

// handleResize stores the framebuffer size and fires the resize callback.
func (w *engineWindow) handleResize(width, height int) {
	w.mu.Lock()
	w.width, w.height = width, height
	w.mu.Unlock()
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.native == nil {
		return nil
	}
	return w.native.surfaceDescriptor()
}

func (w *engineWindow) IsRunning() bool {
	w.mu.Lock()
	closing := w.closeRequested
	w.mu.Unlock()
	return !closing && w.native != nil && w.native.alive()
}

func (w *engineWindow) RequestClose() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeRequested = true
}

func (w *engineWindow) Close() error {
	if w.native == nil {
		return fmt.Errorf("window: close: not initialized")
	}
	w.native.close()
	return nil
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() && w.native.poll() {
		if title, ok := w.pendingTitle(); ok {
			w.native.setTitle(title)
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width
}

func (w *engineWindow) Height() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.height
}
