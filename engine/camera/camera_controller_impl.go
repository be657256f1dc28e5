package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/chewxy/math32"
)

// maxPitch keeps the forward vector away from the world up axis.
const maxPitch = math32.Pi/2 - 0.01

// flyControllerImpl is a free-flying first person controller.
// Orientation is stored as yaw and pitch so that repeated mouse deltas never accumulate roll.
type flyControllerImpl struct {
	mu *sync.Mutex

	position common.Vec3
	yaw      float32
	pitch    float32

	moveSpeed        float32
	boost            float32
	mouseSensitivity float32
}

var _ CameraController = &flyControllerImpl{}

// NewFlyController creates a first person controller at the origin facing -Z.
// Defaults: 10 units per second, a 10x boost and 0.01 radians per pixel of mouse movement.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewFlyController(options ...CameraControllerOption) CameraController {
	cc := &flyControllerImpl{
		mu:               &sync.Mutex{},
		moveSpeed:        10,
		boost:            10,
		mouseSensitivity: 0.01,
	}
	for _, option := range options {
		option(cc)
	}
	return cc
}

// forward derives the unit view direction from yaw and pitch. Caller must hold the mutex.
func (cc *flyControllerImpl) forward() common.Vec3 {
	sy, cy := math32.Sincos(cc.yaw)
	sp, cp := math32.Sincos(cc.pitch)
	return common.Vec3{cp * sy, sp, -cp * cy}
}

// lookAt sets yaw and pitch from a target. Caller must hold the mutex.
func (cc *flyControllerImpl) lookAt(target common.Vec3) {
	dir := target.Sub(cc.position)
	if dir.Length() < 1e-8 {
		return
	}
	dir = dir.Normalize()
	cc.pitch = clampPitch(math32.Asin(dir[1]))
	cc.yaw = math32.Atan2(dir[0], -dir[2])
}

func clampPitch(p float32) float32 {
	return math32.Max(-maxPitch, math32.Min(maxPitch, p))
}

func (cc *flyControllerImpl) Position() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *flyControllerImpl) Forward() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.forward()
}

func (cc *flyControllerImpl) Target() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position.Add(cc.forward())
}

func (cc *flyControllerImpl) SetPosition(p common.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.position = p
}

func (cc *flyControllerImpl) LookAt(target common.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.lookAt(target)
}

func (cc *flyControllerImpl) Yaw() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.yaw
}

func (cc *flyControllerImpl) Pitch() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.pitch
}

func (cc *flyControllerImpl) Move(forward, right, dt float32, fast bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	speed := cc.moveSpeed * dt
	if fast {
		speed *= cc.boost
	}
	f := cc.forward()
	r := f.Cross(common.Vec3{0, 1, 0}).Normalize()
	cc.position = cc.position.Add(f.Scale(forward * speed)).Add(r.Scale(right * speed))
}

func (cc *flyControllerImpl) Rotate(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.yaw += dx * cc.mouseSensitivity
	cc.pitch = clampPitch(cc.pitch - dy*cc.mouseSensitivity)
}

func (cc *flyControllerImpl) MoveSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.moveSpeed
}

func (cc *flyControllerImpl) MouseSensitivity() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.mouseSensitivity
}
