package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvert4RoundTrip(t *testing.T) {
	var inv, out [16]float32
	m := TRS(Vec3{3, -2, 7}, [4]float32{0.18257419, 0.36514837, 0.54772256, 0.73029674}, Vec3{2, 0.5, 3})
	require.True(t, Invert4(inv[:], m[:]))
	Mul4(out[:], m[:], inv[:])

	var id [16]float32
	Identity(id[:])
	assert.InDeltaSlice(t, id[:], out[:], 1e-5)
}

func TestTRSMatchesTranslationWithIdentityRotation(t *testing.T) {
	m := TRS(Vec3{1, 2, 3}, [4]float32{0, 0, 0, 1}, Vec3{1, 1, 1})
	assert.Equal(t, Translation(Vec3{1, 2, 3}), m)
}

func TestTransformPoint(t *testing.T) {
	m := TRS(Vec3{0, 0, -5}, [4]float32{0, 0, 0, 1}, Vec3{2, 2, 2})
	assert.Equal(t, Vec3{2, 2, -3}, TransformPoint(m[:], Vec3{1, 1, 1}))
}

func TestPerspectiveDepthRange(t *testing.T) {
	var p [16]float32
	Perspective(p[:], 1, 1, 0.5, 100)

	depth := func(z float32) float32 {
		clipZ := p[10]*z + p[14]
		clipW := p[11] * z
		return clipZ / clipW
	}
	assert.InDelta(t, 0, depth(-0.5), 1e-5)
	assert.InDelta(t, 1, depth(-100), 1e-5)
}

func TestAlignUpAndDivCeil(t *testing.T) {
	assert.Equal(t, uint32(16), AlignUp(9, 8))
	assert.Equal(t, uint32(8), AlignUp(8, 8))
	assert.Equal(t, uint32(5), AlignUp(5, 0))
	assert.Equal(t, uint32(3), DivCeil(17, 8))
	assert.Equal(t, uint32(0), DivCeil(17, 0))
	assert.Equal(t, uint64(64), NextPow2(33))
	assert.Equal(t, uint64(1), NextPow2(0))
}

func TestVec3Normalize(t *testing.T) {
	assert.Equal(t, Vec3{}, Vec3{}.Normalize())
	assert.InDelta(t, 1, Vec3{3, 4, 0}.Normalize().Length(), 1e-6)
}

func TestInvert4RejectsSingular(t *testing.T) {
	var zero, out [16]float32
	out[0] = 42
	assert.False(t, Invert4(out[:], zero[:]))
	assert.Equal(t, float32(42), out[0])
}

func TestLookAtMapsTargetOntoNegativeZ(t *testing.T) {
	var view [16]float32
	eye := Vec3{4, 3, 2}
	LookAt(view[:], eye, Vec3{4, 3, -8}, Vec3{0, 1, 0})

	origin := TransformPoint(view[:], eye)
	assert.InDeltaSlice(t, []float32{0, 0, 0}, origin[:], 1e-5)
	p := TransformPoint(view[:], Vec3{4, 3, -8})
	assert.InDeltaSlice(t, []float32{0, 0, -10}, p[:], 1e-5)
	up := TransformPoint(view[:], Vec3{4, 4, 2})
	assert.InDeltaSlice(t, []float32{0, 1, 0}, up[:], 1e-5)
}
