package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// annotationPrefix marks an annotation inside a WGSL line comment, e.g. "//@oxy:include vertex".
const annotationPrefix = "@oxy:"

// AnnotationType is the directive an annotation carries.
type AnnotationType string

const (
	// annotationTypeInclude pastes a registered struct definition into the source. A struct
	// is emitted once per shader however often it is included.
	//
	//	//@oxy:include <struct>
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup emits the @group/@binding declaration of a registered struct,
	// or of a runtime array of one, and records the binding.
	//
	//	//@oxy:group <group> <binding> <address_space> <var_name> <struct | array<struct>>
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider emits nothing. It records which frame resource feeds a
	// hand-written binding, optionally with the role of that binding inside the resource.
	//
	//	//@oxy:provider <group> <binding> <identity> [role]
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation is one parsed @oxy: directive.
type Annotation struct {
	Type AnnotationType

	// Args depends on Type:
	//   - include:  struct key
	//   - group:    address space, variable name, type
	//   - provider: identity, then the optional role
	Args []AnnotationArg

	// Line is the 1-based source line of the annotation.
	Line int

	// Group and Binding are nil for include annotations.
	Group   *int
	Binding *int
}

// AnnotationArg is a keyword accepted as an annotation argument.
type AnnotationArg string

// Registered structs, each backed by the .wgsl asset of its Go GPU type.
const (
	AnnotationArgFrameUniform   AnnotationArg = "frame_uniform"
	AnnotationArgPointLight     AnnotationArg = "point_light"
	AnnotationArgTileUniforms   AnnotationArg = "tile_uniforms"
	AnnotationArgModelData      AnnotationArg = "model_data"
	annotationArgVertex         AnnotationArg = "vertex"
	AnnotationArgMaterialParams AnnotationArg = "material_params"
	AnnotationArgFragmentNode   AnnotationArg = "fragment_node"
	AnnotationArgOITUniforms    AnnotationArg = "oit_uniforms"
	AnnotationArgTonemapParams  AnnotationArg = "tonemap_params"
)

// Address spaces of generated declarations.
const (
	annotationArgStorageTypeUniform   AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead      AnnotationArg = "storage_read"
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// Provider identities name the frame resource that owns a binding.
const (
	AnnotationArgFrame     AnnotationArg = "frame"
	AnnotationArgInstances AnnotationArg = "instances"
	AnnotationArgMaterial  AnnotationArg = "material"
	AnnotationArgLights    AnnotationArg = "lights"
	AnnotationArgTiles     AnnotationArg = "tiles"
	AnnotationArgGBuffer   AnnotationArg = "gbuffer"
	AnnotationArgOIT       AnnotationArg = "oit"

	// AnnotationArgTarget is an intermediate color target of a compute pass.
	AnnotationArgTarget AnnotationArg = "target"

	// AnnotationArgTonemap is the parameter block shared by the tonemap and present passes.
	AnnotationArgTonemap AnnotationArg = "tonemap"
)

// Binding roles pick one binding out of a multi-binding provider.
const (
	AnnotationArgBaseColorTexture AnnotationArg = "base_color_texture"
	AnnotationArgBaseColorSampler AnnotationArg = "base_color_sampler"

	AnnotationArgAlbedo AnnotationArg = "albedo"
	AnnotationArgNormal AnnotationArg = "normal"
	AnnotationArgDepth  AnnotationArg = "depth"

	AnnotationArgTileCounts  AnnotationArg = "tile_counts"
	AnnotationArgTileIndices AnnotationArg = "tile_indices"

	// AnnotationArgHeads is the per-pixel list head buffer.
	AnnotationArgHeads AnnotationArg = "heads"
	// AnnotationArgCounter is the fragment pool allocation counter.
	AnnotationArgCounter AnnotationArg = "counter"
	// AnnotationArgNodes is the fragment pool.
	AnnotationArgNodes AnnotationArg = "nodes"

	// AnnotationArgInput is a texture a compute pass reads.
	AnnotationArgInput AnnotationArg = "input"
	// AnnotationArgOutput is a storage texture a compute pass writes.
	AnnotationArgOutput AnnotationArg = "output"
)

// argKind is the set of positions a keyword may appear in.
type argKind uint8

const (
	kindStruct argKind = 1 << iota
	kindAddressSpace
	kindIdentity
	kindRole
)

var argKinds = map[AnnotationArg]argKind{
	AnnotationArgFrameUniform:   kindStruct,
	AnnotationArgPointLight:     kindStruct,
	AnnotationArgTileUniforms:   kindStruct,
	AnnotationArgModelData:      kindStruct,
	annotationArgVertex:         kindStruct,
	AnnotationArgMaterialParams: kindStruct,
	AnnotationArgFragmentNode:   kindStruct,
	AnnotationArgOITUniforms:    kindStruct,
	AnnotationArgTonemapParams:  kindStruct,

	annotationArgStorageTypeUniform:   kindAddressSpace,
	annotationArgStorageTypeRead:      kindAddressSpace,
	annotationArgStorageTypeReadWrite: kindAddressSpace,

	AnnotationArgFrame:     kindIdentity,
	AnnotationArgInstances: kindIdentity,
	AnnotationArgMaterial:  kindIdentity,
	AnnotationArgLights:    kindIdentity,
	AnnotationArgTiles:     kindIdentity,
	AnnotationArgGBuffer:   kindIdentity,
	AnnotationArgOIT:       kindIdentity,
	AnnotationArgTarget:    kindIdentity,
	AnnotationArgTonemap:   kindIdentity,

	AnnotationArgBaseColorTexture: kindRole,
	AnnotationArgBaseColorSampler: kindRole,
	AnnotationArgAlbedo:           kindRole,
	AnnotationArgNormal:           kindRole,
	AnnotationArgDepth:            kindRole,
	AnnotationArgTileCounts:       kindRole,
	AnnotationArgTileIndices:      kindRole,
	AnnotationArgHeads:            kindRole,
	AnnotationArgCounter:          kindRole,
	AnnotationArgNodes:            kindRole,
	AnnotationArgInput:            kindRole,
	AnnotationArgOutput:           kindRole,
}

func isKind(arg string, kind argKind) bool {
	return argKinds[AnnotationArg(arg)]&kind != 0
}

// elementType returns the struct key of a group type, unwrapping array<...>.
func elementType(typ AnnotationArg) AnnotationArg {
	if inner, ok := strings.CutPrefix(string(typ), "array<"); ok {
		return AnnotationArg(strings.TrimSuffix(inner, ">"))
	}
	return typ
}

// annotationError formats a parse failure with its line number.
func annotationError(line int, format string, args ...any) error {
	return fmt.Errorf("line %d: "+format, append([]any{line}, args...)...)
}

// parseSlot reads the group and binding numbers that lead group and provider annotations.
func parseSlot(fields []string, line int, directive AnnotationType) (*int, *int, error) {
	group, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, nil, annotationError(line, "invalid group number %q in @oxy %s annotation: %v", fields[0], directive, err)
	}
	binding, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, nil, annotationError(line, "invalid binding number %q in @oxy %s annotation: %v", fields[1], directive, err)
	}
	return &group, &binding, nil
}

// parseAnnotation parses one source line. Lines without the annotation prefix yield nil
// and no error.
//
// Parameters:
//   - line: the source line
//   - lineNum: its 1-based line number, used in errors
//
// Returns:
//   - *Annotation: the annotation, or nil for an ordinary line
//   - error: the reason a prefixed line is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	_, body, ok := strings.Cut(line, annotationPrefix)
	if !ok {
		return nil, nil
	}
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return nil, annotationError(lineNum, "empty @oxy annotation")
	}
	a := &Annotation{Type: AnnotationType(fields[0]), Line: lineNum}
	args := fields[1:]

	switch a.Type {
	case annotationTypeInclude:
		if len(args) != 1 {
			return nil, annotationError(lineNum, "@oxy include annotation requires exactly one argument")
		}
		if !isKind(args[0], kindStruct) {
			return nil, annotationError(lineNum, "unknown struct type %q in @oxy include annotation", args[0])
		}
		a.Args = []AnnotationArg{AnnotationArg(args[0])}

	case AnnotationTypeBindingGroup:
		if len(args) != 5 {
			return nil, annotationError(lineNum, "@oxy group annotation requires five arguments (group, binding, address space, variable name, type), got %d", len(args))
		}
		var err error
		if a.Group, a.Binding, err = parseSlot(args, lineNum, a.Type); err != nil {
			return nil, err
		}
		space, name, typ := args[2], args[3], AnnotationArg(args[4])
		if !isKind(space, kindAddressSpace) {
			return nil, annotationError(lineNum, "unknown address space %q in @oxy group annotation", space)
		}
		if elem := elementType(typ); !isKind(string(elem), kindStruct) {
			if elem != typ {
				return nil, annotationError(lineNum, "unknown array element type %q in @oxy group annotation", elem)
			}
			return nil, annotationError(lineNum, "unknown struct type %q in @oxy group annotation", typ)
		}
		a.Args = []AnnotationArg{AnnotationArg(space), AnnotationArg(name), typ}

	case AnnotationTypeProvider:
		if len(args) < 3 || len(args) > 4 {
			return nil, annotationError(lineNum, "@oxy provider annotation takes group, binding, identity and an optional role")
		}
		var err error
		if a.Group, a.Binding, err = parseSlot(args, lineNum, a.Type); err != nil {
			return nil, err
		}
		if !isKind(args[2], kindIdentity) {
			return nil, annotationError(lineNum, "unknown provider identity %q in @oxy provider annotation", args[2])
		}
		a.Args = []AnnotationArg{AnnotationArg(args[2])}
		if len(args) == 4 {
			if !isKind(args[3], kindRole) {
				return nil, annotationError(lineNum, "unknown binding role %q in @oxy provider annotation", args[3])
			}
			a.Args = append(a.Args, AnnotationArg(args[3]))
		}

	default:
		return nil, annotationError(lineNum, "unknown @oxy annotation type %q", fields[0])
	}
	return a, nil
}
