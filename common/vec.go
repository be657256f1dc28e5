package common

import "github.com/chewxy/math32"

// Vec3 is a three component float32 vector used for positions, directions and colors.
type Vec3 [3]float32

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }

func (v Vec3) Scale(s float32) Vec3 { return Vec3{v[0] * s, v[1] * s, v[2] * s} }

func (v Vec3) Dot(o Vec3) float32 { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

func (v Vec3) Length() float32 { return math32.Sqrt(v.Dot(v)) }

// Normalize returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

func (v Vec3) Distance(o Vec3) float32 { return v.Sub(o).Length() }

// RotateAxis rotates v around the unit axis by angle radians (Rodrigues' formula).
func (v Vec3) RotateAxis(axis Vec3, angle float32) Vec3 {
	s, c := math32.Sincos(angle)
	return v.Scale(c).
		Add(axis.Cross(v).Scale(s)).
		Add(axis.Scale(axis.Dot(v) * (1 - c)))
}

// AlignUp rounds v up to the next multiple of align. An align of 0 returns v.
func AlignUp(v, align uint32) uint32 {
	if align == 0 {
		return v
	}
	return (v + align - 1) / align * align
}

// DivCeil returns ceil(v / d) for unsigned integers. A divisor of 0 returns 0.
func DivCeil(v, d uint32) uint32 {
	if d == 0 {
		return 0
	}
	return (v + d - 1) / d
}
