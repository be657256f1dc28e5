package camera

import "github.com/Carmen-Shannon/oxy-deferred/common"

// CameraController defines the interface for camera control systems.
// Controllers own positional state (position and orientation). Camera reads from the controller
// and computes view/projection matrices and frustums from it.
type CameraController interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - common.Vec3: world-space camera position
	Position() common.Vec3

	// Forward returns the unit view direction.
	//
	// Returns:
	//   - common.Vec3: normalized forward vector
	Forward() common.Vec3

	// Target returns a look-at point one unit ahead of the camera.
	//
	// Returns:
	//   - common.Vec3: world-space target position
	Target() common.Vec3

	// SetPosition sets the camera's world-space position directly.
	//
	// Parameters:
	//   - p: world-space coordinates
	SetPosition(p common.Vec3)

	// LookAt orients the camera so that it faces target from its current position.
	// A target equal to the position leaves the orientation unchanged.
	//
	// Parameters:
	//   - target: world-space point to face
	LookAt(target common.Vec3)

	// Yaw returns the horizontal angle around world Y in radians. Zero faces -Z.
	//
	// Returns:
	//   - float32: yaw in radians
	Yaw() float32

	// Pitch returns the vertical angle above the horizontal plane in radians.
	//
	// Returns:
	//   - float32: pitch in radians
	Pitch() float32

	// Move translates the camera along its local axes.
	// The offsets are multiplied by the move speed, dt and the boost factor when fast is set.
	//
	// Parameters:
	//   - forward: units along the forward axis (negative moves back)
	//   - right: units along the right axis (negative moves left)
	//   - dt: elapsed time in seconds
	//   - fast: apply the boost multiplier
	Move(forward, right, dt float32, fast bool)

	// Rotate turns the camera from a mouse delta in pixels.
	// dx yaws around world Y and dy pitches around the camera right axis, both scaled by the mouse sensitivity.
	//
	// Parameters:
	//   - dx: horizontal mouse delta
	//   - dy: vertical mouse delta
	Rotate(dx, dy float32)

	// MoveSpeed returns the base movement speed in units per second.
	//
	// Returns:
	//   - float32: movement speed
	MoveSpeed() float32

	// MouseSensitivity returns the radians per pixel applied by Rotate.
	//
	// Returns:
	//   - float32: mouse sensitivity
	MouseSensitivity() float32
}
