package camera

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func unitCubeSphere() common.BoundingSphere {
	var pts []common.Vec3
	for _, x := range []float32{-1, 1} {
		for _, y := range []float32{-1, 1} {
			for _, z := range []float32{-1, 1} {
				pts = append(pts, common.Vec3{x, y, z})
			}
		}
	}
	return common.ComputeBoundingSphere(pts)
}

func newCamera(pos, target common.Vec3) Camera {
	ctrl := NewFlyController(WithPosition(pos), WithLookAt(target))
	return NewCamera(WithFovDegrees(90), WithAspect(1), WithController(ctrl))
}

func TestCubeVisibleAtTenUnits(t *testing.T) {
	sphere := unitCubeSphere()
	dir := common.Vec3{1, 1, 1}.Normalize()

	cam := newCamera(dir.Scale(10), common.Vec3{})
	assert.True(t, sphere.IsVisible(cam.Position(), cam.BuildFrustum()))
}

func TestCubeNotVisibleFarOffAxis(t *testing.T) {
	sphere := unitCubeSphere()

	cam := newCamera(common.Vec3{10000, 0, 10}, common.Vec3{10000, 0, 0})
	assert.False(t, sphere.IsVisible(cam.Position(), cam.BuildFrustum()))
}

func TestCubeBehindCameraNotVisible(t *testing.T) {
	sphere := unitCubeSphere()

	cam := newCamera(common.Vec3{0, 0, 10}, common.Vec3{0, 0, 20})
	assert.False(t, sphere.IsVisible(cam.Position(), cam.BuildFrustum()))
}

func TestBasisIsOrthonormal(t *testing.T) {
	cam := newCamera(common.Vec3{3, 2, 5}, common.Vec3{-1, 0, 2})
	b := cam.Basis()

	assert.InDelta(t, 1, b.Forward.Length(), 1e-5)
	assert.InDelta(t, 1, b.Right.Length(), 1e-5)
	assert.InDelta(t, 1, b.Up.Length(), 1e-5)
	assert.InDelta(t, 0, b.Forward.Dot(b.Right), 1e-5)
	assert.InDelta(t, 0, b.Forward.Dot(b.Up), 1e-5)
	assert.InDelta(t, 0, b.Up.Dot(b.Right), 1e-5)
}

func TestFovX(t *testing.T) {
	cam := NewCamera(WithFovDegrees(90), WithAspect(1))
	assert.InDelta(t, math32.Pi/2, cam.FovX(), 1e-5)

	wide := NewCamera(WithFovDegrees(90), WithAspect(2))
	assert.Greater(t, wide.FovX(), wide.Fov())
	// tan(fovX/2) = tan(fovY/2) * aspect
	assert.InDelta(t, 2*math32.Atan(2), wide.FovX(), 1e-5)
	assert.InDelta(t, 2, math32.Tan(wide.FovX()/2), 1e-4)
}

func TestInverseViewProjectionRoundTrip(t *testing.T) {
	cam := newCamera(common.Vec3{0, 1, 5}, common.Vec3{})
	vp := cam.ViewProjectionMatrix()
	inv := cam.InverseViewProjectionMatrix()

	var out, id [16]float32
	common.Mul4(out[:], vp[:], inv[:])
	common.Identity(id[:])
	assert.InDeltaSlice(t, id[:], out[:], 1e-3)
}

func TestFlyControllerMoveAndRotate(t *testing.T) {
	ctrl := NewFlyController(WithMoveSpeed(2), WithBoost(10))

	ctrl.Move(1, 0, 0.5, false)
	pos := ctrl.Position()
	assert.InDeltaSlice(t, []float32{0, 0, -1}, pos[:], 1e-5)

	ctrl.Move(0, 1, 0.5, true)
	pos = ctrl.Position()
	assert.InDeltaSlice(t, []float32{10, 0, -1}, pos[:], 1e-5)

	ctrl.Rotate(0, -1e6)
	assert.InDelta(t, maxPitch, ctrl.Pitch(), 1e-6)
}

func TestFlyControllerLookAt(t *testing.T) {
	ctrl := NewFlyController(WithPosition(common.Vec3{0, 0, 0}))
	ctrl.LookAt(common.Vec3{5, 0, 0})
	fwd := ctrl.Forward()
	assert.InDeltaSlice(t, []float32{1, 0, 0}, fwd[:], 1e-5)

	before := ctrl.Forward()
	ctrl.LookAt(ctrl.Position())
	assert.Equal(t, before, ctrl.Forward())
}

func TestProjectionSetters(t *testing.T) {
	cam := newCamera(common.Vec3{0, 0, 5}, common.Vec3{})
	before := cam.ViewProjectionMatrix()

	cam.SetClipPlanes(1, 50)
	assert.NotEqual(t, before, cam.ViewProjectionMatrix())

	cam.SetFov(math32.Pi / 2)
	cam.SetAspect(2)
	assert.InDelta(t, math32.Pi/2, cam.Fov(), 1e-6)
	assert.Equal(t, float32(2), cam.Aspect())
}

func TestUpdateWithoutController(t *testing.T) {
	cam := NewCamera()
	cam.Update()
	assert.Nil(t, cam.Controller())
	assert.Equal(t, common.Vec3{}, cam.Position())
	assert.Equal(t, common.Vec3{0, 0, -1}, cam.Basis().Forward)
}
