package common

import (
	"unsafe"

	"github.com/chewxy/math32"
)

// Matrices are 16 float32 values in column-major order, element (row r, column c) at c*4+r.

// Identity overwrites m with the identity matrix.
//
// Parameters:
//   - m: destination, at least 16 elements
func Identity(m []float32) {
	clear(m[:16])
	for i := 0; i < 16; i += 5 {
		m[i] = 1
	}
}

// SliceToBytes views a slice as its raw bytes for a GPU upload. The result aliases data.
//
// Parameters:
//   - data: the slice to view
//
// Returns:
//   - []byte: the byte view, nil for an empty slice
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	n := len(data) * int(unsafe.Sizeof(data[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(data))), n)
}

// Mul4 sets out = a * b. out may alias either operand.
func Mul4(out, a, b []float32) {
	var r [16]float32
	for c := range 4 {
		for row := range 4 {
			var sum float32
			for k := range 4 {
				sum += a[k*4+row] * b[c*4+k]
			}
			r[c*4+row] = sum
		}
	}
	copy(out, r[:])
}

// Perspective writes a right-handed projection that maps view depth -near..-far onto the
// WebGPU clip depth range 0..1.
//
// Parameters:
//   - out: destination, at least 16 elements
//   - fovY: vertical field of view in radians
//   - aspect: width over height
//   - near, far: clip plane distances, 0 < near < far
func Perspective(out []float32, fovY, aspect, near, far float32) {
	cot := 1 / math32.Tan(fovY*0.5)
	depth := 1 / (near - far)
	clear(out[:16])
	out[0] = cot / aspect
	out[5] = cot
	out[10] = far * depth
	out[11] = -1
	out[14] = near * far * depth
}

// Invert4 writes the inverse of m into out by Gauss-Jordan elimination with partial pivoting.
// out is untouched when m is singular.
//
// Parameters:
//   - out: destination, at least 16 elements, may alias m
//   - m: the matrix to invert
//
// Returns:
//   - bool: false when m has no inverse
func Invert4(out, m []float32) bool {
	// a is row-major [m | I] so rows can be swapped as whole arrays.
	var a [4][8]float32
	for r := range 4 {
		for c := range 4 {
			a[r][c] = m[c*4+r]
		}
		a[r][4+r] = 1
	}

	for col := range 4 {
		pivot := col
		for r := col + 1; r < 4; r++ {
			if math32.Abs(a[r][col]) > math32.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math32.Abs(a[pivot][col]) < 1e-12 {
			return false
		}
		a[col], a[pivot] = a[pivot], a[col]

		inv := 1 / a[col][col]
		for c := range 8 {
			a[col][c] *= inv
		}
		for r := range 4 {
			if r == col || a[r][col] == 0 {
				continue
			}
			f := a[r][col]
			for c := range 8 {
				a[r][c] -= f * a[col][c]
			}
		}
	}

	for r := range 4 {
		for c := range 4 {
			out[c*4+r] = a[r][4+c]
		}
	}
	return true
}

// LookAt writes a view matrix for a camera at eye facing target. A degenerate direction
// or up vector leaves the corresponding basis axis unnormalized rather than producing NaNs.
//
// Parameters:
//   - out: destination, at least 16 elements
//   - eye: camera position
//   - target: the point looked at
//   - up: approximate up direction, usually +Y
func LookAt(out []float32, eye, target, up Vec3) {
	back := eye.Sub(target).Normalize()
	right := up.Cross(back).Normalize()
	camUp := back.Cross(right)

	for i, axis := range [3]Vec3{right, camUp, back} {
		out[i], out[4+i], out[8+i] = axis[0], axis[1], axis[2]
		out[12+i] = -axis.Dot(eye)
		out[3+i*4] = 0
	}
	out[15] = 1
}

// TransformPoint returns the xyz of m * (p, 1).
func TransformPoint(m []float32, p Vec3) Vec3 {
	var r Vec3
	for i := range 3 {
		r[i] = m[i]*p[0] + m[4+i]*p[1] + m[8+i]*p[2] + m[12+i]
	}
	return r
}

// DecomposeTransform reads the translation column and the diagonal of a model matrix. The
// diagonal equals the scale only for unrotated transforms.
//
// Parameters:
//   - m: the model matrix
//
// Returns:
//   - Vec3: the translation
//   - Vec3: the diagonal (m[0], m[5], m[10])
func DecomposeTransform(m [16]float32) (position, scale Vec3) {
	return Vec3{m[12], m[13], m[14]}, Vec3{m[0], m[5], m[10]}
}

// Translation returns a matrix translating by p.
func Translation(p Vec3) [16]float32 {
	return TRS(p, [4]float32{0, 0, 0, 1}, Vec3{1, 1, 1})
}

// TRS composes translation * rotation * scale.
//
// Parameters:
//   - t: translation
//   - q: unit rotation quaternion as (x, y, z, w)
//   - s: scale
//
// Returns:
//   - [16]float32: the model matrix
func TRS(t Vec3, q [4]float32, s Vec3) [16]float32 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	cols := [3]Vec3{
		{1 - 2*(y*y+z*z), 2 * (x*y + w*z), 2 * (x*z - w*y)},
		{2 * (x*y - w*z), 1 - 2*(x*x+z*z), 2 * (y*z + w*x)},
		{2 * (x*z + w*y), 2 * (y*z - w*x), 1 - 2*(x*x+y*y)},
	}
	var m [16]float32
	for c, col := range cols {
		scaled := col.Scale(s[c])
		copy(m[c*4:c*4+3], scaled[:])
	}
	copy(m[12:15], t[:])
	m[15] = 1
	return m
}
