package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/chewxy/math32"
)

// Camera turns the pose of a CameraController into the matrices, basis and culling frustum
// of one frame. The pose is sampled by Update, so every reader sees the same view until the
// next call.
type Camera interface {
	// Fov returns the vertical field of view in radians.
	Fov() float32

	// FovX returns the horizontal field of view implied by Fov and Aspect.
	//
	// Returns:
	//   - float32: the horizontal field of view in radians
	FovX() float32

	// Aspect returns the viewport width over its height.
	Aspect() float32

	// Position returns the eye position sampled by the last Update.
	Position() common.Vec3

	// Basis returns the forward, up and right axes sampled by the last Update.
	//
	// Returns:
	//   - common.CameraBasis: an orthonormal right-handed frame
	Basis() common.CameraBasis

	// ViewProjectionMatrix returns projection * view, column-major.
	ViewProjectionMatrix() [16]float32

	// InverseViewProjectionMatrix returns the inverse of ViewProjectionMatrix. The lighting
	// pass reconstructs world positions from depth with it.
	InverseViewProjectionMatrix() [16]float32

	// BuildFrustum returns the five-plane culling frustum of the whole viewport.
	//
	// Returns:
	//   - common.Frustum: the frustum, relative to Position
	BuildFrustum() common.Frustum

	// Controller returns the attached controller, or nil.
	Controller() CameraController

	// Update samples the controller pose and rebuilds the matrices. It does nothing without
	// a controller.
	Update()

	// SetFov sets the vertical field of view.
	//
	// Parameters:
	//   - fov: the angle in radians
	SetFov(fov float32)

	// SetAspect sets the viewport width over its height.
	//
	// Parameters:
	//   - aspect: the ratio
	SetAspect(aspect float32)

	// SetClipPlanes sets the near and far plane distances of the projection.
	//
	// Parameters:
	//   - near: the near distance, greater than zero
	//   - far: the far distance, greater than near
	SetClipPlanes(near, far float32)

	// SetController attaches ctrl and samples its pose.
	//
	// Parameters:
	//   - ctrl: the controller
	SetController(ctrl CameraController)
}

// lens is the perspective projection of a camera.
type lens struct {
	fovY, aspect, near, far float32
}

func (l lens) tanHalfY() float32 {
	return math32.Tan(l.fovY / 2)
}

type cameraImpl struct {
	mu sync.Mutex

	lens       lens
	worldUp    common.Vec3
	controller CameraController

	eye   common.Vec3
	basis common.CameraBasis

	view, proj, viewProj, invViewProj [16]float32
}

var _ Camera = &cameraImpl{}

// NewCamera returns a camera with a 60 degree vertical field of view, a square viewport and
// clip planes at 0.1 and 1000. Until a controller is attached it sits at the origin looking
// down -Z.
//
// Parameters:
//   - options: camera options
//
// Returns:
//   - Camera: the camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		lens:    lens{fovY: math32.Pi / 3, aspect: 1, near: 0.1, far: 1000},
		worldUp: common.Vec3{0, 1, 0},
		basis: common.CameraBasis{
			Forward: common.Vec3{0, 0, -1},
			Up:      common.Vec3{0, 1, 0},
			Right:   common.Vec3{1, 0, 0},
		},
	}
	common.Identity(c.view[:])
	common.Identity(c.invViewProj[:])
	for _, option := range options {
		option(c)
	}
	c.rebuild()
	return c
}

// locked runs fn under the camera mutex.
func (c *cameraImpl) locked(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

func (c *cameraImpl) Fov() (fov float32) {
	c.locked(func() { fov = c.lens.fovY })
	return fov
}

func (c *cameraImpl) FovX() (fov float32) {
	c.locked(func() { fov = 2 * math32.Atan(c.lens.tanHalfY()*c.lens.aspect) })
	return fov
}

func (c *cameraImpl) Aspect() (aspect float32) {
	c.locked(func() { aspect = c.lens.aspect })
	return aspect
}

func (c *cameraImpl) Position() (eye common.Vec3) {
	c.locked(func() { eye = c.eye })
	return eye
}

func (c *cameraImpl) Basis() (basis common.CameraBasis) {
	c.locked(func() { basis = c.basis })
	return basis
}

func (c *cameraImpl) ViewProjectionMatrix() (m [16]float32) {
	c.locked(func() { m = c.viewProj })
	return m
}

func (c *cameraImpl) InverseViewProjectionMatrix() (m [16]float32) {
	c.locked(func() { m = c.invViewProj })
	return m
}

func (c *cameraImpl) BuildFrustum() (f common.Frustum) {
	c.locked(func() {
		tanY := c.lens.tanHalfY()
		f = common.BuildSubFrustum(c.basis, tanY*c.lens.aspect, tanY, -1, 1, -1, 1)
	})
	return f
}

func (c *cameraImpl) Controller() (ctrl CameraController) {
	c.locked(func() { ctrl = c.controller })
	return ctrl
}

func (c *cameraImpl) Update() {
	c.locked(func() {
		if c.controller != nil {
			c.rebuild()
		}
	})
}

func (c *cameraImpl) SetFov(fov float32) {
	c.locked(func() {
		c.lens.fovY = fov
		c.rebuild()
	})
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.locked(func() {
		c.lens.aspect = aspect
		c.rebuild()
	})
}

func (c *cameraImpl) SetClipPlanes(near, far float32) {
	c.locked(func() {
		c.lens.near, c.lens.far = near, far
		c.rebuild()
	})
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.locked(func() {
		c.controller = ctrl
		c.rebuild()
	})
}

// rebuild samples the controller pose, when there is one, and recomputes every matrix.
// The caller holds the mutex.
func (c *cameraImpl) rebuild() {
	if c.controller != nil {
		c.eye = c.controller.Position()
		forward := c.controller.Forward().Normalize()
		right := forward.Cross(c.worldUp).Normalize()
		c.basis = common.CameraBasis{Forward: forward, Right: right, Up: right.Cross(forward)}
		common.LookAt(c.view[:], c.eye, c.eye.Add(forward), c.worldUp)
	}

	common.Perspective(c.proj[:], c.lens.fovY, c.lens.aspect, c.lens.near, c.lens.far)
	common.Mul4(c.viewProj[:], c.proj[:], c.view[:])
	common.Invert4(c.invViewProj[:], c.viewProj[:])
}
