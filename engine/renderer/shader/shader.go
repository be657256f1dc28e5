package shader

import (
	"fmt"
	"log"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
)

// ShaderType is the pipeline stage a shader module is reflected for.
type ShaderType int

const (
	ShaderTypeCompute ShaderType = iota
	ShaderTypeVertex
	ShaderTypeFragment
)

func (t ShaderType) visibility() wgpu.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	case ShaderTypeCompute:
		return wgpu.ShaderStageCompute
	}
	return wgpu.ShaderStageNone
}

// Shader is a pre-processed WGSL module reflected for one stage. Pipelines read their
// layouts from it and the frame renderer finds its resource bindings through Binding.
type Shader interface {
	// BindGroupLayoutDescriptor returns the layout of one bind group as seen by this stage.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the layout, empty when the stage declares nothing in the group
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors returns every bind group layout keyed by group index.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName returns the WGSL variable declared at a group and binding, or "".
	// Resources the stage may not bind are still named.
	BindGroupVarName(group, binding int) string

	// VertexLayout returns the layouts of one vertex buffer slot.
	VertexLayout(slot int) []wgpu.VertexBufferLayout

	// VertexLayouts returns the vertex buffer layouts keyed by slot. Only vertex shaders have any.
	VertexLayouts() map[int][]wgpu.VertexBufferLayout

	// EntryPoint returns the name of the stage's entry function.
	EntryPoint() string

	// WorkgroupSize returns @workgroup_size for compute shaders, zero for other stages.
	WorkgroupSize() [3]uint32

	// Module returns the descriptor used to create the GPU shader module.
	Module() *wgpu.ShaderModuleDescriptor

	// Declarations returns the group and provider annotations found in the source.
	Declarations() []Annotation

	// Binding finds the slot declared by a provider annotation. An empty role matches only
	// a provider annotation without a role.
	//
	// Parameters:
	//   - identity: the provider identity, e.g. AnnotationArgOIT
	//   - role: the binding role, e.g. AnnotationArgHeads, or ""
	//
	// Returns:
	//   - int: the @group index
	//   - int: the @binding index
	//   - bool: false when no provider annotation matches
	Binding(identity, role AnnotationArg) (int, int, bool)
}

type shader struct {
	module *wgpu.ShaderModuleDescriptor

	entryPoint    string
	workGroupSize [3]uint32
	groups        map[int]wgpu.BindGroupLayoutDescriptor
	varNames      map[int]map[int]string
	vertexLayouts map[int][]wgpu.VertexBufferLayout
	declarations  []Annotation
}

var _ Shader = &shader{}

// NewShaderFromSource pre-processes and reflects an embedded WGSL source. It panics when
// an annotation is malformed or the source has no entry point for shaderType, both of
// which are programming errors in the engine's own shaders. A naga rejection is only
// logged since the device compiler has the final say.
//
// Parameters:
//   - key: the module label handed to the GPU
//   - shaderType: the stage to reflect for
//   - label: a readable name for log and panic messages
//   - source: WGSL with @oxy: annotations
//
// Returns:
//   - Shader: the reflected shader
func NewShaderFromSource(key string, shaderType ShaderType, label, source string) Shader {
	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		panic(fmt.Sprintf("shader: failed to pre-process shader source %q: %v", label, err))
	}
	if err := Validate(processed); err != nil {
		log.Printf("[Shader] %s: %v", label, err)
	}

	mod := reflectWGSL(processed)
	s := &shader{
		entryPoint:   mod.entryPoint(shaderType),
		declarations: pp.Declarations(),
		module: &wgpu.ShaderModuleDescriptor{
			Label:          key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: processed},
		},
	}
	if s.entryPoint == "" {
		panic(fmt.Sprintf("shader: %s has no entry point for shader type %d", label, shaderType))
	}
	switch shaderType {
	case ShaderTypeVertex:
		s.vertexLayouts = mod.vertexLayouts(s.entryPoint)
	case ShaderTypeCompute:
		s.workGroupSize = mod.workgroupSize()
	}
	s.groups, s.varNames = mod.bindGroupLayouts(shaderType.visibility())
	return s
}

// Validate runs pre-processed WGSL through the naga front end.
//
// Parameters:
//   - source: WGSL without @oxy: annotations
//
// Returns:
//   - error: the compile error, or nil
func Validate(source string) error {
	if _, err := naga.Compile(source); err != nil {
		return fmt.Errorf("shader: validate: %w", err)
	}
	return nil
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.groups[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.groups
}

func (s *shader) BindGroupVarName(group, binding int) string {
	return s.varNames[group][binding]
}

func (s *shader) VertexLayout(slot int) []wgpu.VertexBufferLayout {
	return s.vertexLayouts[slot]
}

func (s *shader) VertexLayouts() map[int][]wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}

func (s *shader) Binding(identity, role AnnotationArg) (int, int, bool) {
	for _, d := range s.declarations {
		if d.Type != AnnotationTypeProvider || d.Args[0] != identity {
			continue
		}
		var declared AnnotationArg
		if len(d.Args) > 1 {
			declared = d.Args[1]
		}
		if declared == role {
			return *d.Group, *d.Binding, true
		}
	}
	return -1, -1, false
}
