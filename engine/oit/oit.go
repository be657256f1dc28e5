package oit

import (
	"cmp"
	"slices"
)

// EmptyHead marks a pixel whose fragment list is empty, and terminates every list.
const EmptyHead uint32 = 0xFFFFFFFF

// DefaultFragmentsPerPixel is the average depth complexity the fragment pool is sized for.
const DefaultFragmentsPerPixel = 8

// MaxResolveFragments is the number of fragments the resolve pass composites per pixel.
// Longer lists keep their MaxResolveFragments nearest entries; among equal depths the newer fragment is kept.
// The shader sizes its sort arrays with the same constant, so it is not configurable at runtime.
const MaxResolveFragments = 32

// Config sizes the per-pixel linked list storage.
type Config struct {
	Width    uint32
	Height   uint32
	Capacity uint32 // number of fragment nodes in the pool
}

// NewConfig sizes a pool for the given target.
// The capacity is width*height*perPixel, reduced to what fits in maxPoolBytes when that limit is non-zero, and never below 1.
//
// Parameters:
//   - width, height: the target size in pixels
//   - perPixel: the expected average number of transparent fragments per pixel
//   - maxPoolBytes: the largest storage buffer binding the device allows, or 0 for no limit
//
// Returns:
//   - Config: the sized configuration
func NewConfig(width, height, perPixel uint32, maxPoolBytes uint64) Config {
	capacity := uint64(width) * uint64(height) * uint64(perPixel)
	if maxPoolBytes > 0 {
		capacity = min(capacity, maxPoolBytes/fragmentNodeSize)
	}
	capacity = min(max(capacity, 1), uint64(EmptyHead-1))
	return Config{Width: width, Height: height, Capacity: uint32(capacity)}
}

// PixelCount returns the number of head entries.
func (c Config) PixelCount() uint32 {
	return c.Width * c.Height
}

// HeadBytes returns the size of the head buffer in bytes, at least one entry.
func (c Config) HeadBytes() uint64 {
	return uint64(max(c.PixelCount(), 1)) * 4
}

// PoolBytes returns the size of the fragment pool in bytes.
func (c Config) PoolBytes() uint64 {
	return uint64(max(c.Capacity, 1)) * fragmentNodeSize
}

// Clamp returns the number of pool slots actually written for a final counter value.
// The counter keeps growing past the capacity because every fragment still performs its atomic increment.
//
// Parameters:
//   - counter: the atomic counter value read after the accumulate pass
//
// Returns:
//   - uint32: min(counter, Capacity)
func (c Config) Clamp(counter uint32) uint32 {
	return min(counter, c.Capacity)
}

// Overflowed returns how many fragments were dropped for a final counter value.
func (c Config) Overflowed(counter uint32) uint32 {
	return counter - c.Clamp(counter)
}

// Uniforms returns the GPU description of the configuration.
func (c Config) Uniforms() GPUOITUniforms {
	return GPUOITUniforms{Width: c.Width, Height: c.Height, Capacity: c.Capacity}
}

// BlendAdditive marks a fragment node written by an additive material. It equals material.BlendModeAdditive.
const BlendAdditive uint32 = 2

// Fragment is a single transparent sample: a straight alpha RGBA color and its [0,1] depth.
// Additive fragments add src.rgb*src.a to what is behind them instead of covering it.
type Fragment struct {
	Color    [4]float32
	Depth    float32
	Additive bool
}

func (f Fragment) blend() uint32 {
	if f.Additive {
		return BlendAdditive
	}
	return 0
}

// Accumulator is a CPU model of the accumulate pass.
// It follows the same insertion and drop rules as the shader: slot = counter++, the fragment is dropped
// when slot >= Capacity, otherwise it becomes the new head of its pixel's list.
type Accumulator struct {
	cfg     Config
	heads   []uint32
	nodes   []GPUFragmentNode
	counter uint32
}

// NewAccumulator creates a cleared accumulator for the configuration.
//
// Parameters:
//   - cfg: the pool sizing
//
// Returns:
//   - *Accumulator: the accumulator with every head set to EmptyHead
func NewAccumulator(cfg Config) *Accumulator {
	a := &Accumulator{
		cfg:   cfg,
		heads: make([]uint32, cfg.PixelCount()),
		nodes: make([]GPUFragmentNode, cfg.Capacity),
	}
	a.Reset()
	return a
}

// Reset clears every head and the counter, as the clear pass does on the GPU.
func (a *Accumulator) Reset() {
	for i := range a.heads {
		a.heads[i] = EmptyHead
	}
	a.counter = 0
}

// Counter returns the raw atomic counter value.
func (a *Accumulator) Counter() uint32 {
	return a.counter
}

// Insert pushes a fragment onto the list of pixel (x, y).
//
// Parameters:
//   - x, y: the pixel coordinate
//   - color: the shaded RGBA color
//   - depth: the fragment depth in [0,1]
//
// Returns:
//   - bool: false when the fragment was dropped because the pool is full or the pixel is outside the target
func (a *Accumulator) Insert(x, y uint32, color [4]float32, depth float32) bool {
	return a.InsertFragment(x, y, Fragment{Color: color, Depth: depth})
}

// InsertFragment pushes f onto the list of pixel (x, y), keeping its blend flag.
func (a *Accumulator) InsertFragment(x, y uint32, f Fragment) bool {
	if x >= a.cfg.Width || y >= a.cfg.Height {
		return false
	}
	slot := a.counter
	a.counter++
	if slot >= a.cfg.Capacity {
		return false
	}
	pixel := y*a.cfg.Width + x
	a.nodes[slot] = GPUFragmentNode{Color: f.Color, Depth: f.Depth, Next: a.heads[pixel], Blend: f.blend()}
	a.heads[pixel] = slot
	return true
}

// List returns the fragments of pixel (x, y) in list order, newest first.
func (a *Accumulator) List(x, y uint32) []Fragment {
	if x >= a.cfg.Width || y >= a.cfg.Height {
		return nil
	}
	var out []Fragment
	for n := a.heads[y*a.cfg.Width+x]; n != EmptyHead; n = a.nodes[n].Next {
		out = append(out, Fragment{Color: a.nodes[n].Color, Depth: a.nodes[n].Depth, Additive: a.nodes[n].Blend == BlendAdditive})
	}
	return out
}

// Resolve composites pixel (x, y) over the lit color, exactly as the resolve pass does.
func (a *Accumulator) Resolve(x, y uint32, base [3]float32) [3]float32 {
	return ResolvePixel(a.List(x, y), base)
}

// ResolvePixel composites a fragment list over an opaque base color.
// The list is in linked list order (newest first). At most MaxResolveFragments entries are kept, the nearest ones.
// The kept fragments are ordered back to front, farther depth first, with equal depths in insertion order,
// and blended with the "over" operator: dst = src.rgb*src.a + dst*(1-src.a).
// Additive fragments use dst = dst + src.rgb*src.a.
//
// Parameters:
//   - list: the pixel's fragments, newest first
//   - base: the lit opaque color underneath
//
// Returns:
//   - [3]float32: the composited color
func ResolvePixel(list []Fragment, base [3]float32) [3]float32 {
	kept := nearest(list, MaxResolveFragments)
	slices.Reverse(kept)
	return ReferenceComposite(kept, base)
}

// nearest returns the n fragments of list with the smallest depth, in list order.
// Equal depths favor the earlier entry.
func nearest(list []Fragment, n int) []Fragment {
	if len(list) <= n {
		return slices.Clone(list)
	}
	order := make([]int, len(list))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(list[a].Depth, list[b].Depth)
	})
	order = order[:n]
	slices.Sort(order)

	kept := make([]Fragment, 0, n)
	for _, i := range order {
		kept = append(kept, list[i])
	}
	return kept
}

// ReferenceComposite blends fragments given in insertion order over base, sorting them back to front.
// It is independent of any linked list and serves as the ground truth for the GPU resolve.
//
// Parameters:
//   - fragments: the fragments in the order they were produced
//   - base: the lit opaque color underneath
//
// Returns:
//   - [3]float32: the composited color
func ReferenceComposite(fragments []Fragment, base [3]float32) [3]float32 {
	sorted := slices.Clone(fragments)
	slices.SortStableFunc(sorted, func(a, b Fragment) int {
		switch {
		case a.Depth > b.Depth:
			return -1
		case a.Depth < b.Depth:
			return 1
		}
		return 0
	})

	dst := base
	for _, f := range sorted {
		alpha := f.Color[3]
		keep := 1 - alpha
		if f.Additive {
			keep = 1
		}
		for c := range 3 {
			dst[c] = f.Color[c]*alpha + dst[c]*keep
		}
	}
	return dst
}
