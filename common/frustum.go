package common

import "github.com/chewxy/math32"

// Frustum is a camera-relative view volume described by five inward facing normals.
// There is no far plane. Every normal passes through the camera position, so a sphere is tested against
// a plane by projecting its camera-relative center onto the normal.
type Frustum struct {
	Near   Vec3
	Top    Vec3
	Bottom Vec3
	Left   Vec3
	Right  Vec3
}

// Normals returns the five frustum normals in near, top, bottom, left, right order.
func (f Frustum) Normals() [5]Vec3 {
	return [5]Vec3{f.Near, f.Top, f.Bottom, f.Left, f.Right}
}

// BoundingSphere is a sphere enclosing a mesh or an object, used for culling.
type BoundingSphere struct {
	Center Vec3
	Radius float32
}

// IsVisible reports whether the sphere intersects the frustum seen from camPos.
// The sphere is visible iff dot(center - camPos, n) > -radius holds for all five normals.
//
// Parameters:
//   - camPos: the camera position in world space
//   - f: the frustum whose normals are expressed in world space
//
// Returns:
//   - bool: true if the sphere is at least partially inside the frustum
func (s BoundingSphere) IsVisible(camPos Vec3, f Frustum) bool {
	d := s.Center.Sub(camPos)
	for _, n := range f.Normals() {
		if d.Dot(n) <= -s.Radius {
			return false
		}
	}
	return true
}

// ComputeBoundingSphere builds a sphere centered on the centroid of the points with a radius reaching the farthest point.
// An empty input returns the zero sphere.
//
// Parameters:
//   - points: the vertex positions
//
// Returns:
//   - BoundingSphere: the enclosing sphere
func ComputeBoundingSphere(points []Vec3) BoundingSphere {
	if len(points) == 0 {
		return BoundingSphere{}
	}

	var center Vec3
	for _, p := range points {
		center = center.Add(p)
	}
	center = center.Scale(1 / float32(len(points)))

	var radius float32
	for _, p := range points {
		radius = math32.Max(radius, center.Distance(p))
	}
	return BoundingSphere{Center: center, Radius: radius}
}

// TransformSphere places a local-space sphere in world space.
// The center is offset by position and the radius is scaled by the length of the diagonal scale vector.
//
// Parameters:
//   - s: the local-space sphere
//   - position: the object translation
//   - scale: the object diagonal scale vector
//
// Returns:
//   - BoundingSphere: the world-space sphere
func TransformSphere(s BoundingSphere, position, scale Vec3) BoundingSphere {
	return BoundingSphere{
		Center: s.Center.Add(position),
		Radius: s.Radius * scale.Length(),
	}
}

// CameraBasis is the orthonormal world-space frame of a camera.
type CameraBasis struct {
	Forward Vec3
	Up      Vec3
	Right   Vec3
}

// BuildSubFrustum builds the frustum covering a rectangle of the screen given in NDC ([-1, 1] on both axes, +Y up).
// Each edge angle is reconstructed from the tangent of the half field of view so that adjacent rectangles share
// their boundary planes exactly. The near normal is the forward axis.
//
// Parameters:
//   - b: the camera basis in world space
//   - tanHalfX: tangent of half the horizontal field of view
//   - tanHalfY: tangent of half the vertical field of view
//   - left, right: horizontal NDC bounds of the rectangle
//   - bottom, top: vertical NDC bounds of the rectangle
//
// Returns:
//   - Frustum: the world-space sub-frustum with inward facing unit normals
func BuildSubFrustum(b CameraBasis, tanHalfX, tanHalfY, left, right, bottom, top float32) Frustum {
	aTop := math32.Atan(tanHalfY * top)
	aBottom := math32.Atan(tanHalfY * bottom)
	aLeft := math32.Atan(tanHalfX * left)
	aRight := math32.Atan(tanHalfX * right)

	sT, cT := math32.Sincos(aTop)
	sB, cB := math32.Sincos(aBottom)
	sL, cL := math32.Sincos(aLeft)
	sR, cR := math32.Sincos(aRight)

	return Frustum{
		Near:   b.Forward,
		Top:    b.Forward.Scale(sT).Sub(b.Up.Scale(cT)),
		Bottom: b.Up.Scale(cB).Sub(b.Forward.Scale(sB)),
		Left:   b.Right.Scale(cL).Sub(b.Forward.Scale(sL)),
		Right:  b.Forward.Scale(sR).Sub(b.Right.Scale(cR)),
	}
}
