package deferred

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
)

//go:embed assets/geometry.wgsl
var geometrySource string

//go:embed assets/lighting.wgsl
var lightingSource string

//go:embed assets/oit_clear.wgsl
var oitClearSource string

//go:embed assets/oit_accumulate.wgsl
var oitAccumulateSource string

//go:embed assets/oit_resolve.wgsl
var oitResolveSource string

//go:embed assets/tonemap.wgsl
var tonemapSource string

//go:embed assets/present.wgsl
var presentSource string

// Names of the built-in material programs. A material whose pipeline key is empty draws with the
// default program of the pass its blend mode places it in.
const (
	ProgramGeometry     = "geometry"
	ProgramTransparency = "transparency"
)

// Pass selects which frame stage a material program draws in.
type Pass int

const (
	// PassGeometry programs write the G-buffer: albedo at location 0, the encoded normal at location 1.
	PassGeometry Pass = iota

	// PassTransparency programs have no color outputs and push fragments into the per-pixel lists.
	PassTransparency
)

func (p Pass) String() string {
	switch p {
	case PassGeometry:
		return "geometry"
	case PassTransparency:
		return "transparency"
	default:
		return fmt.Sprintf("Pass(%d)", int(p))
	}
}

// program is a material program: a vertex and a fragment stage parsed from one WGSL source.
type program struct {
	name string
	pass Pass
	vs   shader.Shader
	fs   shader.Shader
}

func newProgram(name string, pass Pass, source string) *program {
	label := fmt.Sprintf("%s program %q", pass, name)
	return &program{
		name: name,
		pass: pass,
		vs:   shader.NewShaderFromSource(name+"_vs", shader.ShaderTypeVertex, label, source),
		fs:   shader.NewShaderFromSource(name+"_fs", shader.ShaderTypeFragment, label, source),
	}
}

// programSource is a program registered through WithProgram and parsed when the renderer is built.
type programSource struct {
	name   string
	pass   Pass
	source string
}

// defaultPrograms returns the built-in programs of each pass.
func defaultPrograms() []programSource {
	return []programSource{
		{name: ProgramGeometry, pass: PassGeometry, source: geometrySource},
		{name: ProgramTransparency, pass: PassTransparency, source: oitAccumulateSource},
	}
}

// resolveProgram picks the program a material draws with in a pass.
// An empty key selects the pass default. A key that is unknown, or names a program of the other pass,
// also falls back to the default and reports fallback=true so the caller can log it.
func resolveProgram(programs map[string]*program, key string, pass Pass) (p *program, fallback bool) {
	def := ProgramGeometry
	if pass == PassTransparency {
		def = ProgramTransparency
	}
	if key == "" {
		return programs[def], false
	}
	if p, ok := programs[key]; ok && p.pass == pass {
		return p, false
	}
	return programs[def], true
}
