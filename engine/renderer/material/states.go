package material

import "github.com/cogentcore/webgpu/wgpu"

// BlendMode selects how a material's fragments combine with what is already in the target.
type BlendMode int

const (
	// BlendModeNone writes fragments opaquely. Objects with this mode are drawn by the geometry pass.
	BlendModeNone BlendMode = iota

	// BlendModeAlpha composites over what lies behind using the fragment alpha. Drawn through OIT.
	BlendModeAlpha

	// BlendModeAdditive marks additive materials. Like alpha they are drawn through OIT.
	BlendModeAdditive
)

// CullMode selects which triangle faces are discarded.
type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeBackface
	CullModeFrontface
)

// DepthTestMode selects the depth comparison function.
type DepthTestMode int

const (
	// DepthTestStandard passes fragments nearer than the stored depth.
	DepthTestStandard DepthTestMode = iota

	// DepthTestReversed passes fragments farther than the stored depth.
	DepthTestReversed

	// DepthTestEqual passes fragments at exactly the stored depth.
	DepthTestEqual

	// DepthTestNone always passes.
	DepthTestNone
)

func (b BlendMode) String() string {
	switch b {
	case BlendModeNone:
		return "none"
	case BlendModeAlpha:
		return "alpha"
	case BlendModeAdditive:
		return "additive"
	}
	return "unknown"
}

// WGPU maps the cull mode to its WebGPU equivalent.
//
// Returns:
//   - wgpu.CullMode: the WebGPU cull mode
func (c CullMode) WGPU() wgpu.CullMode {
	switch c {
	case CullModeBackface:
		return wgpu.CullModeBack
	case CullModeFrontface:
		return wgpu.CullModeFront
	}
	return wgpu.CullModeNone
}

// CompareFunction maps the depth test mode to a WebGPU compare function for a [0, 1] depth range cleared to 1.
//
// Returns:
//   - wgpu.CompareFunction: Less, Greater, Equal or Always
func (d DepthTestMode) CompareFunction() wgpu.CompareFunction {
	switch d {
	case DepthTestReversed:
		return wgpu.CompareFunctionGreater
	case DepthTestEqual:
		return wgpu.CompareFunctionEqual
	case DepthTestNone:
		return wgpu.CompareFunctionAlways
	}
	return wgpu.CompareFunctionLess
}
