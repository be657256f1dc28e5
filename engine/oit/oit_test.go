package oit

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigClampsToBindingLimit(t *testing.T) {
	cfg := NewConfig(1600, 900, DefaultFragmentsPerPixel, 128<<20)
	assert.Equal(t, uint32(128<<20/32), cfg.Capacity)
	assert.LessOrEqual(t, cfg.PoolBytes(), uint64(128<<20))
	assert.Equal(t, uint64(1600*900*4), cfg.HeadBytes())

	unbounded := NewConfig(10, 10, 8, 0)
	assert.Equal(t, uint32(800), unbounded.Capacity)

	empty := NewConfig(0, 0, 8, 0)
	assert.Equal(t, uint32(1), empty.Capacity)
	assert.Equal(t, uint64(4), empty.HeadBytes())
}

func TestClampAndOverflowed(t *testing.T) {
	cfg := Config{Width: 4, Height: 4, Capacity: 10}
	assert.Equal(t, uint32(7), cfg.Clamp(7))
	assert.Equal(t, uint32(0), cfg.Overflowed(7))
	assert.Equal(t, uint32(10), cfg.Clamp(25))
	assert.Equal(t, uint32(15), cfg.Overflowed(25))
}

func TestAccumulatorBuildsListsNewestFirst(t *testing.T) {
	a := NewAccumulator(Config{Width: 2, Height: 2, Capacity: 8})
	assert.Empty(t, a.List(1, 1))

	require.True(t, a.Insert(1, 1, [4]float32{1, 0, 0, 0.5}, 0.3))
	require.True(t, a.Insert(0, 0, [4]float32{0, 1, 0, 0.5}, 0.4))
	require.True(t, a.Insert(1, 1, [4]float32{0, 0, 1, 0.5}, 0.7))

	list := a.List(1, 1)
	require.Len(t, list, 2)
	assert.Equal(t, float32(0.7), list[0].Depth)
	assert.Equal(t, float32(0.3), list[1].Depth)
	assert.Len(t, a.List(0, 0), 1)
	assert.Nil(t, a.List(5, 0))

	a.Reset()
	assert.Empty(t, a.List(1, 1))
	assert.Zero(t, a.Counter())
}

func TestAccumulatorDropPolicy(t *testing.T) {
	cfg := Config{Width: 1, Height: 1, Capacity: 2}
	a := NewAccumulator(cfg)

	assert.True(t, a.Insert(0, 0, [4]float32{1, 1, 1, 1}, 0.1))
	assert.True(t, a.Insert(0, 0, [4]float32{1, 1, 1, 1}, 0.2))
	assert.False(t, a.Insert(0, 0, [4]float32{1, 1, 1, 1}, 0.3))
	assert.False(t, a.Insert(0, 0, [4]float32{1, 1, 1, 1}, 0.4))

	// Dropped fragments still advance the counter but never touch the head.
	assert.Equal(t, uint32(4), a.Counter())
	assert.Equal(t, uint32(2), cfg.Overflowed(a.Counter()))
	list := a.List(0, 0)
	require.Len(t, list, 2)
	assert.Equal(t, float32(0.2), list[0].Depth)
}

func TestResolveCompositesBackToFront(t *testing.T) {
	base := [3]float32{0, 0, 0}
	near := Fragment{Color: [4]float32{1, 0, 0, 0.5}, Depth: 0.2}
	far := Fragment{Color: [4]float32{0, 0, 1, 0.5}, Depth: 0.8}

	// far over base: (0, 0, 0.5); near over that: (0.5, 0, 0.25)
	want := [3]float32{0.5, 0, 0.25}
	assert.InDeltaSlice(t, want[:], sl(ReferenceComposite([]Fragment{near, far}, base)), 1e-6)
	assert.InDeltaSlice(t, want[:], sl(ReferenceComposite([]Fragment{far, near}, base)), 1e-6)

	opaque := Fragment{Color: [4]float32{0, 1, 0, 1}, Depth: 0.5}
	got := ReferenceComposite([]Fragment{opaque}, [3]float32{1, 1, 1})
	assert.Equal(t, [3]float32{0, 1, 0}, got)
}

func TestResolveAdditiveFragments(t *testing.T) {
	base := [3]float32{0.25, 0.25, 0.25}
	glow := Fragment{Color: [4]float32{1, 0.5, 0, 0.5}, Depth: 0.3, Additive: true}

	// dst + src.rgb*src.a, nothing behind is covered.
	assert.InDeltaSlice(t, []float32{0.75, 0.5, 0.25}, sl(ReferenceComposite([]Fragment{glow}, base)), 1e-6)

	// A nearer "over" fragment still covers the additive one below it.
	cover := Fragment{Color: [4]float32{0, 0, 0, 0.5}, Depth: 0.1}
	assert.InDeltaSlice(t, []float32{0.375, 0.25, 0.125}, sl(ReferenceComposite([]Fragment{cover, glow}, base)), 1e-6)

	a := NewAccumulator(Config{Width: 1, Height: 1, Capacity: 4})
	require.True(t, a.InsertFragment(0, 0, glow))
	require.True(t, a.Insert(0, 0, cover.Color, cover.Depth))
	list := a.List(0, 0)
	require.Len(t, list, 2)
	assert.False(t, list[0].Additive)
	assert.True(t, list[1].Additive)
	assert.InDeltaSlice(t, []float32{0.375, 0.25, 0.125}, sl(a.Resolve(0, 0, base)), 1e-6)
}

func TestResolveEqualDepthKeepsInsertionOrder(t *testing.T) {
	a := NewAccumulator(Config{Width: 1, Height: 1, Capacity: 4})
	a.Insert(0, 0, [4]float32{1, 0, 0, 1}, 0.5)
	a.Insert(0, 0, [4]float32{0, 1, 0, 1}, 0.5)

	// The later fragment is composited last and wins.
	assert.Equal(t, [3]float32{0, 1, 0}, a.Resolve(0, 0, [3]float32{}))
}

func TestAccumulatorMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	cfg := Config{Width: 8, Height: 8, Capacity: 8 * 8 * 4}
	a := NewAccumulator(cfg)
	produced := make(map[[2]uint32][]Fragment)

	for range 150 {
		x, y := rng.Uint32N(8), rng.Uint32N(8)
		f := Fragment{
			Color: [4]float32{rng.Float32(), rng.Float32(), rng.Float32(), rng.Float32()},
			Depth: rng.Float32(),
		}
		require.True(t, a.Insert(x, y, f.Color, f.Depth))
		produced[[2]uint32{x, y}] = append(produced[[2]uint32{x, y}], f)
	}

	base := [3]float32{0.2, 0.3, 0.4}
	for y := range uint32(8) {
		for x := range uint32(8) {
			want := ReferenceComposite(produced[[2]uint32{x, y}], base)
			assert.InDeltaSlice(t, sl(want), sl(a.Resolve(x, y, base)), 1e-5, "pixel %d,%d", x, y)
		}
	}
}

func TestResolvePixelKeepsNearestFragments(t *testing.T) {
	base := [3]float32{0.25, 0.25, 0.25}

	// The nearest fragment sits past the cap in list order and must still win.
	list := make([]Fragment, MaxResolveFragments+5)
	for i := range list {
		list[i] = Fragment{Color: [4]float32{0, 0, 0, 0}, Depth: 0.5}
	}
	list[len(list)-1] = Fragment{Color: [4]float32{1, 1, 1, 1}, Depth: 0.1}
	assert.Equal(t, [3]float32{1, 1, 1}, ResolvePixel(list, base))

	// The farthest fragment is the one dropped.
	list = make([]Fragment, MaxResolveFragments+1)
	for i := range list {
		list[i] = Fragment{Color: [4]float32{0, 0, 0, 0}, Depth: 0.5}
	}
	list[0] = Fragment{Color: [4]float32{1, 0, 0, 1}, Depth: 0.9}
	assert.Equal(t, base, ResolvePixel(list, base))

	// Equal depths keep the newer fragments.
	list = make([]Fragment, MaxResolveFragments+1)
	for i := range list {
		list[i] = Fragment{Color: [4]float32{0, 0, 0, 0}, Depth: 0.5}
	}
	list[len(list)-1] = Fragment{Color: [4]float32{0, 0, 1, 1}, Depth: 0.5}
	assert.Equal(t, base, ResolvePixel(list, base))
	assert.Len(t, nearest(list, MaxResolveFragments), MaxResolveFragments)
}

func TestGPUTypesLayout(t *testing.T) {
	n := GPUFragmentNode{Color: [4]float32{1, 2, 3, 4}, Depth: 0.5, Next: EmptyHead}
	assert.Equal(t, 32, n.Size())
	buf := n.Marshal()
	require.Len(t, buf, 32)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, buf[20:24])
	additive := GPUFragmentNode{Blend: BlendAdditive}
	assert.Equal(t, byte(BlendAdditive), additive.Marshal()[24])

	u := Config{Width: 3, Height: 2, Capacity: 9}.Uniforms()
	assert.Equal(t, 16, u.Size())
	assert.Equal(t, byte(9), u.Marshal()[8])
}

func sl(c [3]float32) []float32 { return c[:] }
