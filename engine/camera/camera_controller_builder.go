package camera

import "github.com/Carmen-Shannon/oxy-deferred/common"

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*flyControllerImpl)

// WithPosition sets the initial camera position.
//
// Parameters:
//   - p: world-space position
//
// Returns:
//   - CameraControllerOption: functional option to set the position
func WithPosition(p common.Vec3) CameraControllerOption {
	return func(cc *flyControllerImpl) {
		cc.position = p
	}
}

// WithLookAt orients the controller toward a target. Apply it after WithPosition.
//
// Parameters:
//   - target: world-space point to face
//
// Returns:
//   - CameraControllerOption: functional option to set the orientation
func WithLookAt(target common.Vec3) CameraControllerOption {
	return func(cc *flyControllerImpl) {
		cc.lookAt(target)
	}
}

// WithYawPitch sets the initial orientation angles.
//
// Parameters:
//   - yaw: horizontal angle in radians (0 faces -Z)
//   - pitch: vertical angle in radians, clamped short of straight up or down
//
// Returns:
//   - CameraControllerOption: functional option to set the orientation
func WithYawPitch(yaw, pitch float32) CameraControllerOption {
	return func(cc *flyControllerImpl) {
		cc.yaw = yaw
		cc.pitch = clampPitch(pitch)
	}
}

// WithMoveSpeed sets the base movement speed.
//
// Parameters:
//   - speed: units per second
//
// Returns:
//   - CameraControllerOption: functional option to set the speed
func WithMoveSpeed(speed float32) CameraControllerOption {
	return func(cc *flyControllerImpl) {
		cc.moveSpeed = speed
	}
}

// WithBoost sets the multiplier applied while the fast modifier is held.
func WithBoost(boost float32) CameraControllerOption {
	return func(cc *flyControllerImpl) {
		cc.boost = boost
	}
}

// WithMouseSensitivity sets the mouse drag sensitivity.
//
// Parameters:
//   - sensitivity: radians per pixel
//
// Returns:
//   - CameraControllerOption: functional option to set mouse sensitivity
func WithMouseSensitivity(sensitivity float32) CameraControllerOption {
	return func(cc *flyControllerImpl) {
		cc.mouseSensitivity = sensitivity
	}
}
