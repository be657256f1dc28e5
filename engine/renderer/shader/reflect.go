package shader

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslModule is the reflected surface of a pre-processed WGSL source: its struct
// declarations, its resource bindings and its entry points. It is built once per
// shader and queried for the layouts the pipelines need.
type wgslModule struct {
	source   string
	structs  []wgslStruct
	bindings []wgslBinding

	layouts  map[string]typeLayout
	visiting map[string]bool
}

// wgslStruct is a struct declaration and its members in declaration order.
type wgslStruct struct {
	name    string
	members []wgslMember
}

// wgslMember is one struct member. location is -1 when the member has no @location.
type wgslMember struct {
	name     string
	typ      string
	location int
	builtin  bool
}

// wgslBinding is a module-scope `@group(g) @binding(b) var<space> name: type;` declaration.
// space is empty for handle types such as textures and samplers.
type wgslBinding struct {
	group   int
	binding int
	space   string
	name    string
	typ     string
}

var (
	structDecl    = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	resourceDecl  = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
	attribute     = regexp.MustCompile(`@(\w+)(?:\(([^)]*)\))?`)
	workgroupAttr = regexp.MustCompile(`@workgroup_size\(([^)]*)\)`)

	stageEntry = map[ShaderType]*regexp.Regexp{
		ShaderTypeVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`),
		ShaderTypeFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`),
		ShaderTypeCompute:  regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`),
	}
)

// reflectWGSL strips comments from source and collects its structs and resource bindings.
//
// Parameters:
//   - source: WGSL source with all @oxy annotations already expanded
//
// Returns:
//   - *wgslModule: the reflected module
func reflectWGSL(source string) *wgslModule {
	m := &wgslModule{
		source:   stripComments(source),
		layouts:  make(map[string]typeLayout),
		visiting: make(map[string]bool),
	}
	for _, match := range structDecl.FindAllStringSubmatch(m.source, -1) {
		m.structs = append(m.structs, wgslStruct{name: match[1], members: parseMembers(match[2])})
	}
	for _, match := range resourceDecl.FindAllStringSubmatch(m.source, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		m.bindings = append(m.bindings, wgslBinding{
			group:   group,
			binding: binding,
			space:   strings.TrimSpace(match[3]),
			name:    match[4],
			typ:     strings.TrimSpace(match[5]),
		})
	}
	return m
}

func parseMembers(body string) []wgslMember {
	var members []wgslMember
	for _, decl := range splitTopLevel(body) {
		member := wgslMember{location: -1}
		for _, attr := range attribute.FindAllStringSubmatch(decl, -1) {
			switch attr[1] {
			case "builtin":
				member.builtin = true
			case "location":
				if loc, err := strconv.Atoi(strings.TrimSpace(attr[2])); err == nil {
					member.location = loc
				}
			}
		}
		name, typ, ok := strings.Cut(attribute.ReplaceAllString(decl, ""), ":")
		if !ok {
			continue
		}
		member.name = strings.TrimSpace(name)
		member.typ = strings.TrimSpace(typ)
		members = append(members, member)
	}
	return members
}

func (m *wgslModule) lookupStruct(name string) (wgslStruct, bool) {
	for _, st := range m.structs {
		if st.name == name {
			return st, true
		}
	}
	return wgslStruct{}, false
}

// entryPoint returns the name of the first function carrying the stage attribute for
// shaderType, or "" when the source has none.
func (m *wgslModule) entryPoint(shaderType ShaderType) string {
	re, ok := stageEntry[shaderType]
	if !ok {
		return ""
	}
	if match := re.FindStringSubmatch(m.source); match != nil {
		return match[1]
	}
	return ""
}

// entryParams returns the parameter types of function fn in declaration order.
func (m *wgslModule) entryParams(fn string) []string {
	loc := regexp.MustCompile(`\bfn\s+` + regexp.QuoteMeta(fn) + `\s*\(`).FindStringIndex(m.source)
	if loc == nil {
		return nil
	}
	start, depth := loc[1], 1
	end := start
	for ; end < len(m.source); end++ {
		if m.source[end] == '(' {
			depth++
		} else if m.source[end] == ')' {
			if depth--; depth == 0 {
				break
			}
		}
	}
	if depth != 0 {
		return nil
	}
	var types []string
	for _, param := range splitTopLevel(m.source[start:end]) {
		if _, typ, ok := strings.Cut(attribute.ReplaceAllString(param, ""), ":"); ok {
			types = append(types, strings.TrimSpace(typ))
		}
	}
	return types
}

// workgroupSize returns the @workgroup_size dimensions. Omitted or non-literal dimensions are 1.
func (m *wgslModule) workgroupSize() [3]uint32 {
	size := [3]uint32{1, 1, 1}
	match := workgroupAttr.FindStringSubmatch(m.source)
	if match == nil {
		return size
	}
	for i, dim := range strings.Split(match[1], ",") {
		if i >= len(size) {
			break
		}
		if v, err := strconv.ParseUint(strings.TrimSpace(dim), 10, 32); err == nil {
			size[i] = uint32(v)
		}
	}
	return size
}

// vertexLayouts builds one vertex buffer layout per struct parameter of entry whose members
// all carry @location and none carry @builtin. With an empty entry every struct is a candidate.
// Layouts are keyed by buffer slot in declaration order.
func (m *wgslModule) vertexLayouts(entry string) map[int][]wgpu.VertexBufferLayout {
	var params []string
	if entry != "" {
		params = m.entryParams(entry)
	}
	layouts := make(map[int][]wgpu.VertexBufferLayout)
	for _, st := range m.structs {
		if entry != "" && !slices.Contains(params, st.name) {
			continue
		}
		if layout, ok := st.vertexLayout(); ok {
			layouts[len(layouts)] = []wgpu.VertexBufferLayout{layout}
		}
	}
	return layouts
}

func (st wgslStruct) vertexLayout() (wgpu.VertexBufferLayout, bool) {
	if len(st.members) == 0 {
		return wgpu.VertexBufferLayout{}, false
	}
	layout := wgpu.VertexBufferLayout{StepMode: wgpu.VertexStepModeVertex}
	for _, member := range st.members {
		if member.builtin || member.location < 0 {
			return wgpu.VertexBufferLayout{}, false
		}
		format, size, ok := vertexFormat(member.typ)
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		layout.Attributes = append(layout.Attributes, wgpu.VertexAttribute{
			Format:         format,
			Offset:         layout.ArrayStride,
			ShaderLocation: uint32(member.location),
		})
		layout.ArrayStride += size
	}
	return layout, true
}

// vertexFormats holds the vertex format per scalar type, indexed by component count.
var vertexFormats = map[string][5]wgpu.VertexFormat{
	"f32": {wgpu.VertexFormatUndefined, wgpu.VertexFormatFloat32, wgpu.VertexFormatFloat32x2, wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x4},
	"i32": {wgpu.VertexFormatUndefined, wgpu.VertexFormatSint32, wgpu.VertexFormatSint32x2, wgpu.VertexFormatSint32x3, wgpu.VertexFormatSint32x4},
	"u32": {wgpu.VertexFormatUndefined, wgpu.VertexFormatUint32, wgpu.VertexFormatUint32x2, wgpu.VertexFormatUint32x3, wgpu.VertexFormatUint32x4},
	"f16": {wgpu.VertexFormatUndefined, wgpu.VertexFormatUndefined, wgpu.VertexFormatFloat16x2, wgpu.VertexFormatUndefined, wgpu.VertexFormatFloat16x4},
}

// vertexFormat maps a scalar or vector WGSL type to its vertex format and byte size.
func vertexFormat(typ string) (wgpu.VertexFormat, uint64, bool) {
	scalar, n, ok := parseVector(typ)
	formats, known := vertexFormats[scalar]
	if !ok || !known {
		return wgpu.VertexFormatUndefined, 0, false
	}
	format := formats[n]
	if format == wgpu.VertexFormatUndefined {
		return format, 0, false
	}
	return format, uint64(n) * scalarSize(scalar), true
}

// stripComments removes line comments and nestable block comments. Newlines inside
// comments are kept.
func stripComments(src string) string {
	var sb strings.Builder
	sb.Grow(len(src))
	depth := 0
	for i := 0; i < len(src); i++ {
		var next byte
		if i+1 < len(src) {
			next = src[i+1]
		}
		switch {
		case src[i] == '/' && next == '*':
			depth++
			i++
		case src[i] == '*' && next == '/' && depth > 0:
			depth--
			i++
		case depth > 0:
			if src[i] == '\n' {
				sb.WriteByte('\n')
			}
		case src[i] == '/' && next == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				sb.WriteByte('\n')
			}
		default:
			sb.WriteByte(src[i])
		}
	}
	return sb.String()
}

// splitTopLevel splits s at commas outside of <> and () nesting, dropping blank pieces.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	emit := func(end int) {
		if piece := strings.TrimSpace(s[start:end]); piece != "" {
			parts = append(parts, piece)
		}
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				emit(i)
				start = i + 1
			}
		}
	}
	emit(len(s))
	return parts
}
