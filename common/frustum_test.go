package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-5

var lookNegZ = CameraBasis{
	Forward: Vec3{0, 0, -1},
	Up:      Vec3{0, 1, 0},
	Right:   Vec3{1, 0, 0},
}

func cubeCorners() []Vec3 {
	var pts []Vec3
	for _, x := range []float32{-1, 1} {
		for _, y := range []float32{-1, 1} {
			for _, z := range []float32{-1, 1} {
				pts = append(pts, Vec3{x, y, z})
			}
		}
	}
	return pts
}

func TestComputeBoundingSphere(t *testing.T) {
	s := ComputeBoundingSphere(cubeCorners())
	assert.InDelta(t, 0, s.Center.Length(), tol)
	assert.InDelta(t, math32.Sqrt(3), s.Radius, tol)

	shifted := ComputeBoundingSphere([]Vec3{{2, 0, 0}, {4, 0, 0}})
	assert.InDeltaSlice(t, []float32{3, 0, 0}, shifted.Center[:], tol)
	assert.InDelta(t, 1, shifted.Radius, tol)
}

func TestComputeBoundingSphereEmpty(t *testing.T) {
	s := ComputeBoundingSphere(nil)
	assert.Equal(t, BoundingSphere{}, s)
	assert.False(t, math32.IsNaN(s.Radius))
}

func TestTransformSphere(t *testing.T) {
	s := BoundingSphere{Center: Vec3{1, 0, 0}, Radius: 2}
	w := TransformSphere(s, Vec3{0, 5, 0}, Vec3{1, 1, 1})
	assert.Equal(t, Vec3{1, 5, 0}, w.Center)
	assert.InDelta(t, 2*math32.Sqrt(3), w.Radius, tol)

	flat := TransformSphere(s, Vec3{}, Vec3{0, 0, 0})
	assert.Zero(t, flat.Radius)
}

func TestBuildSubFrustumNormalsAreUnit(t *testing.T) {
	tanHalf := math32.Tan(math32.Pi / 4)
	f := BuildSubFrustum(lookNegZ, tanHalf, tanHalf, -0.25, 0.5, -1, 0.75)
	for i, n := range f.Normals() {
		assert.InDelta(t, 1, n.Length(), tol, "normal %d", i)
	}
}

func TestBuildSubFrustumFullViewAt90Degrees(t *testing.T) {
	tanHalf := math32.Tan(math32.Pi / 4)
	f := BuildSubFrustum(lookNegZ, tanHalf, tanHalf, -1, 1, -1, 1)
	s := float32(math32.Sqrt2 / 2)

	assert.InDeltaSlice(t, []float32{0, 0, -1}, f.Near[:], tol)
	assert.InDeltaSlice(t, []float32{0, -s, -s}, f.Top[:], tol)
	assert.InDeltaSlice(t, []float32{0, s, -s}, f.Bottom[:], tol)
	assert.InDeltaSlice(t, []float32{s, 0, -s}, f.Left[:], tol)
	assert.InDeltaSlice(t, []float32{-s, 0, -s}, f.Right[:], tol)
}

func TestIsVisible(t *testing.T) {
	tanHalf := math32.Tan(math32.Pi / 4)
	f := BuildSubFrustum(lookNegZ, tanHalf, tanHalf, -1, 1, -1, 1)
	cam := Vec3{}

	tests := []struct {
		name   string
		sphere BoundingSphere
		want   bool
	}{
		{"ahead", BoundingSphere{Center: Vec3{0, 0, -10}, Radius: 1}, true},
		{"behind", BoundingSphere{Center: Vec3{0, 0, 10}, Radius: 1}, false},
		{"behind but overlapping camera", BoundingSphere{Center: Vec3{0, 0, 0.5}, Radius: 1}, true},
		{"far left", BoundingSphere{Center: Vec3{-100, 0, -10}, Radius: 1}, false},
		{"straddling left edge", BoundingSphere{Center: Vec3{-10.5, 0, -10}, Radius: 1}, true},
		{"above", BoundingSphere{Center: Vec3{0, 50, -10}, Radius: 1}, false},
		{"point inside", BoundingSphere{Center: Vec3{1, 1, -5}}, true},
		{"point on plane", BoundingSphere{Center: Vec3{0, 0, 0}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sphere.IsVisible(cam, f))
		})
	}
}

func TestAdjacentSubFrustumsShareBoundary(t *testing.T) {
	tanHalf := math32.Tan(math32.Pi / 6)
	a := BuildSubFrustum(lookNegZ, tanHalf, tanHalf, -1, 0, -1, 1)
	b := BuildSubFrustum(lookNegZ, tanHalf, tanHalf, 0, 1, -1, 1)
	flipped := a.Right.Scale(-1)
	require.InDeltaSlice(t, flipped[:], b.Left[:], tol)
}

func TestDecomposeTransform(t *testing.T) {
	m := TRS(Vec3{1, 2, 3}, [4]float32{0, 0, 0, 1}, Vec3{2, 3, 4})
	pos, scale := DecomposeTransform(m)
	assert.Equal(t, Vec3{1, 2, 3}, pos)
	assert.Equal(t, Vec3{2, 3, 4}, scale)
}
