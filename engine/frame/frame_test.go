package frame

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func walk(t *testing.T, s *Sequencer, hasTransparency bool) []Stage {
	t.Helper()
	require.NoError(t, s.Begin(hasTransparency))
	visited := []Stage{s.Stage()}
	for {
		next, err := s.Advance()
		require.NoError(t, err)
		if next == StageIdle {
			return visited
		}
		visited = append(visited, next)
	}
}

func TestSequencerWalksAllStages(t *testing.T) {
	s := NewSequencer()
	assert.Equal(t, StageIdle, s.Stage())

	got := walk(t, s, true)
	assert.Equal(t, []Stage{
		StageGeometryPass,
		StageLightCulling,
		StageLightingResolve,
		StageTransparencyAccumulate,
		StageTransparencyResolve,
		StageTonemap,
		StagePresent,
	}, got)
	assert.Equal(t, Stages(true), got)
	assert.Equal(t, StageIdle, s.Stage())
}

func TestSequencerSkipsTransparencyStages(t *testing.T) {
	s := NewSequencer()
	got := walk(t, s, false)
	assert.Equal(t, Stages(false), got)
	assert.NotContains(t, got, StageTransparencyAccumulate)
	assert.NotContains(t, got, StageTransparencyResolve)
}

func TestSequencerRejectsIllegalTransitions(t *testing.T) {
	s := NewSequencer()

	_, err := s.Advance()
	assert.ErrorIs(t, err, ErrNoFrame)

	require.NoError(t, s.Begin(false))
	assert.ErrorIs(t, s.Begin(false), ErrFrameInProgress)
	assert.Equal(t, StageGeometryPass, s.Stage())

	s.Abort()
	assert.Equal(t, StageIdle, s.Stage())
	assert.NoError(t, s.Begin(true))
	assert.True(t, s.HasTransparency())
}

func TestSequencerConsecutiveFrames(t *testing.T) {
	s := NewSequencer()
	assert.Len(t, walk(t, s, true), 7)
	assert.Len(t, walk(t, s, false), 5)
	assert.False(t, s.HasTransparency())
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "LightCulling", StageLightCulling.String())
	assert.Equal(t, "Stage(42)", Stage(42).String())
}

func TestFrameUniformLayout(t *testing.T) {
	var vp, inv [16]float32
	common.Identity(vp[:])
	inv[15] = 2

	u := NewFrameUniform(vp, inv, 7, common.Vec3{0, 2, 0}, common.Vec3{1, 0.5, 0.25})
	assert.Equal(t, 160, u.Size())

	buf := u.Marshal()
	require.Len(t, buf, 160)
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }

	assert.Equal(t, float32(1), f(0))
	assert.Equal(t, float32(2), f(64+60))
	assert.Equal(t, float32(0.5), f(132))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(buf[140:]))
	assert.Equal(t, float32(1), f(148), "sun direction is normalized")
}

func TestDebugViewCycle(t *testing.T) {
	assert.Equal(t, DebugViewAlbedo, DebugViewLit.Next())
	assert.Equal(t, DebugViewNormal, DebugViewAlbedo.Next())
	assert.Equal(t, DebugViewLit, DebugViewNormal.Next())

	d, ok := ParseDebugView("normal")
	assert.True(t, ok)
	assert.Equal(t, DebugViewNormal, d)
	_, ok = ParseDebugView("depth")
	assert.False(t, ok)
}

func TestTonemapParamsMarshal(t *testing.T) {
	p := GPUTonemapParams{Exposure: 1.5, Gamma: 2.2, DebugView: DebugViewNormal, SRGBOut: 1}
	assert.Equal(t, 16, p.Size())
	buf := p.Marshal()
	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[8:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[12:]))
}
