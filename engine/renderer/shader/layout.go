package shader

import (
	"strconv"
	"strings"
)

// typeLayout is the host-shareable size and alignment of a WGSL type. For runtime-sized
// arrays and structs ending in one, size covers a single element of the array.
type typeLayout struct {
	size    uint64
	align   uint64
	runtime bool
}

func scalarSize(scalar string) uint64 {
	switch scalar {
	case "f16":
		return 2
	case "f32", "i32", "u32", "bool":
		return 4
	}
	return 0
}

// vectorShorthand maps the suffix of the vecNx shorthands to their scalar type.
var vectorShorthand = map[byte]string{'f': "f32", 'i': "i32", 'u': "u32", 'h': "f16"}

// parseVector splits a scalar or vector type into its scalar type and component count.
// "f32" is ("f32", 1), "vec3f" and "vec3<f32>" are ("f32", 3).
func parseVector(typ string) (string, int, bool) {
	if scalarSize(typ) > 0 {
		return typ, 1, true
	}
	if len(typ) < 5 || !strings.HasPrefix(typ, "vec") || typ[3] < '2' || typ[3] > '4' {
		return "", 0, false
	}
	n := int(typ[3] - '0')
	rest := typ[4:]
	if len(rest) == 1 {
		scalar, ok := vectorShorthand[rest[0]]
		return scalar, n, ok
	}
	if strings.HasPrefix(rest, "<") && strings.HasSuffix(rest, ">") {
		scalar := strings.TrimSpace(rest[1 : len(rest)-1])
		return scalar, n, scalarSize(scalar) > 0
	}
	return "", 0, false
}

func vectorLayout(scalar string, n int) typeLayout {
	s := scalarSize(scalar)
	if n == 1 {
		return typeLayout{size: s, align: s}
	}
	align := 2 * s
	if n > 2 {
		align = 4 * s
	}
	return typeLayout{size: uint64(n) * s, align: align}
}

// parseMatrix reads matCxR<T>, matCxRf and matCxRh into column count, row count and scalar.
func parseMatrix(typ string) (int, int, string, bool) {
	if len(typ) < 7 || !strings.HasPrefix(typ, "mat") || typ[4] != 'x' {
		return 0, 0, "", false
	}
	cols, rows := int(typ[3]-'0'), int(typ[5]-'0')
	if cols < 2 || cols > 4 || rows < 2 || rows > 4 {
		return 0, 0, "", false
	}
	scalar, _, ok := parseVector("vec" + typ[5:])
	return cols, rows, scalar, ok && (scalar == "f32" || scalar == "f16")
}

func alignUp(align, v uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) / align * align
}

// layoutOf resolves the layout of typ. Struct layouts are memoized on the module.
func (m *wgslModule) layoutOf(typ string) (typeLayout, bool) {
	typ = strings.TrimSpace(typ)
	if scalar, n, ok := parseVector(typ); ok {
		return vectorLayout(scalar, n), true
	}
	if cols, rows, scalar, ok := parseMatrix(typ); ok {
		column := vectorLayout(scalar, rows)
		stride := alignUp(column.align, column.size)
		return typeLayout{size: uint64(cols) * stride, align: column.align}, true
	}
	if inner, ok := unwrap(typ, "atomic"); ok {
		return m.layoutOf(inner)
	}
	if inner, ok := unwrap(typ, "array"); ok {
		return m.arrayLayout(inner)
	}
	return m.structLayout(typ)
}

func (m *wgslModule) arrayLayout(params string) (typeLayout, bool) {
	parts := splitTopLevel(params)
	if len(parts) == 0 || len(parts) > 2 {
		return typeLayout{}, false
	}
	elem, ok := m.layoutOf(parts[0])
	if !ok || elem.runtime {
		return typeLayout{}, false
	}
	stride := alignUp(elem.align, elem.size)
	if len(parts) == 1 {
		return typeLayout{size: stride, align: elem.align, runtime: true}, true
	}
	count, err := strconv.ParseUint(strings.TrimSuffix(parts[1], "u"), 10, 64)
	if err != nil {
		return typeLayout{}, false
	}
	return typeLayout{size: count * stride, align: elem.align}, true
}

func (m *wgslModule) structLayout(name string) (typeLayout, bool) {
	if layout, ok := m.layouts[name]; ok {
		return layout, true
	}
	st, ok := m.lookupStruct(name)
	if !ok || m.visiting[name] {
		return typeLayout{}, false
	}
	m.visiting[name] = true
	defer delete(m.visiting, name)

	var layout typeLayout
	layout.align = 1
	for i, member := range st.members {
		if member.builtin {
			continue
		}
		ml, ok := m.layoutOf(member.typ)
		if !ok || (ml.runtime && i != len(st.members)-1) {
			return typeLayout{}, false
		}
		layout.size = alignUp(ml.align, layout.size) + ml.size
		layout.align = max(layout.align, ml.align)
		layout.runtime = ml.runtime
	}
	layout.size = alignUp(layout.align, layout.size)
	m.layouts[name] = layout
	return layout, true
}

// unwrap returns the parameters of a generic type such as array<T, N> when its name is base.
func unwrap(typ, base string) (string, bool) {
	if !strings.HasPrefix(typ, base+"<") || !strings.HasSuffix(typ, ">") {
		return "", false
	}
	return strings.TrimSpace(typ[len(base)+1 : len(typ)-1]), true
}
