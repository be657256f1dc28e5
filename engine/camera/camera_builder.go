package camera

import "github.com/chewxy/math32"

// CameraBuilderOption configures a camera in NewCamera. The matrices are rebuilt once
// after every option has run.
type CameraBuilderOption func(*cameraImpl)

// WithFovDegrees sets the vertical field of view.
//
// Parameters:
//   - degrees: the vertical field of view in degrees
//
// Returns:
//   - CameraBuilderOption: the option
func WithFovDegrees(degrees float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lens.fovY = degrees * math32.Pi / 180
	}
}

// WithAspect sets the width over height ratio of the viewport.
//
// Parameters:
//   - aspect: the aspect ratio
//
// Returns:
//   - CameraBuilderOption: the option
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lens.aspect = aspect
	}
}

// WithClipPlanes sets the near and far plane distances. The frustum built from the camera
// has no far plane, so far only bounds the depth buffer range.
//
// Parameters:
//   - near: distance to the near plane, greater than zero
//   - far: distance to the far plane, greater than near
//
// Returns:
//   - CameraBuilderOption: the option
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lens.near, c.lens.far = near, far
	}
}

// WithController sets the controller the camera reads its position and heading from.
//
// Parameters:
//   - ctrl: the controller
//
// Returns:
//   - CameraBuilderOption: the option
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
