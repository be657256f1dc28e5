package window

import "github.com/go-gl/glfw/v3.3/glfw"

// Key identifies a keyboard key. Values match GLFW key codes.
type Key uint32

// Keys used by the engine's camera and debug bindings.
const (
	KeyW         = Key(glfw.KeyW)
	KeyA         = Key(glfw.KeyA)
	KeyS         = Key(glfw.KeyS)
	KeyD         = Key(glfw.KeyD)
	KeyQ         = Key(glfw.KeyQ)
	KeyE         = Key(glfw.KeyE)
	KeyLeftShift = Key(glfw.KeyLeftShift)
	KeyF1        = Key(glfw.KeyF1)
	KeyF2        = Key(glfw.KeyF2)
	KeyF5        = Key(glfw.KeyF5)
	KeyEscape    = Key(glfw.KeyEscape)
)
