package shader

import (
	"sort"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var viewDimensions = map[string]wgpu.TextureViewDimension{
	"1d":         wgpu.TextureViewDimension1D,
	"2d":         wgpu.TextureViewDimension2D,
	"2d_array":   wgpu.TextureViewDimension2DArray,
	"3d":         wgpu.TextureViewDimension3D,
	"cube":       wgpu.TextureViewDimensionCube,
	"cube_array": wgpu.TextureViewDimensionCubeArray,
}

var sampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var storageAccess = map[string]wgpu.StorageTextureAccess{
	"read":       wgpu.StorageTextureAccessReadOnly,
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

// storageFormats lists the texel formats WGSL allows on storage textures.
var storageFormats = map[string]wgpu.TextureFormat{
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"rgba8snorm":  wgpu.TextureFormatRGBA8Snorm,
	"rgba8uint":   wgpu.TextureFormatRGBA8Uint,
	"rgba8sint":   wgpu.TextureFormatRGBA8Sint,
	"bgra8unorm":  wgpu.TextureFormatBGRA8Unorm,
	"rgba16uint":  wgpu.TextureFormatRGBA16Uint,
	"rgba16sint":  wgpu.TextureFormatRGBA16Sint,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"r32uint":     wgpu.TextureFormatR32Uint,
	"r32sint":     wgpu.TextureFormatR32Sint,
	"r32float":    wgpu.TextureFormatR32Float,
	"rg32uint":    wgpu.TextureFormatRG32Uint,
	"rg32sint":    wgpu.TextureFormatRG32Sint,
	"rg32float":   wgpu.TextureFormatRG32Float,
	"rgba32uint":  wgpu.TextureFormatRGBA32Uint,
	"rgba32sint":  wgpu.TextureFormatRGBA32Sint,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
}

// bindGroupLayouts turns the module's resource declarations into bind group layouts for
// one shader stage. Buffer entries get MinBindingSize from the bound type's layout.
//
// Parameters:
//   - visibility: the stage the layouts are built for
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layouts keyed by group, entries sorted by binding
//   - map[int]map[int]string: declared variable names keyed by group and binding, including
//     resources the stage may not bind
func (m *wgslModule) bindGroupLayouts(visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	entries := make(map[int][]wgpu.BindGroupLayoutEntry)
	names := make(map[int]map[int]string)

	for _, b := range m.bindings {
		if names[b.group] == nil {
			names[b.group] = make(map[int]string)
		}
		names[b.group][b.binding] = b.name

		entry := b.layoutEntry(visibility)
		if !visibleTo(visibility, entry) {
			continue
		}
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if layout, ok := m.layoutOf(b.typ); ok {
				entry.Buffer.MinBindingSize = layout.size
			}
		}
		entries[b.group] = append(entries[b.group], entry)
	}

	layouts := make(map[int]wgpu.BindGroupLayoutDescriptor, len(entries))
	for group, list := range entries {
		sort.Slice(list, func(i, j int) bool { return list[i].Binding < list[j].Binding })
		layouts[group] = wgpu.BindGroupLayoutDescriptor{Entries: list}
	}
	return layouts, names
}

// visibleTo reports whether entry may appear in a layout for the given stage. Vertex
// shaders cannot bind writable storage.
func visibleTo(visibility wgpu.ShaderStage, entry wgpu.BindGroupLayoutEntry) bool {
	if visibility != wgpu.ShaderStageVertex {
		return true
	}
	return entry.Buffer.Type != wgpu.BufferBindingTypeStorage &&
		entry.StorageTexture.Access == wgpu.StorageTextureAccessUndefined
}

func (b wgslBinding) layoutEntry(visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: uint32(b.binding), Visibility: visibility}

	switch space := strings.ReplaceAll(b.space, " ", ""); {
	case space == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		return entry
	case space == "storage,read_write":
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		return entry
	case strings.HasPrefix(space, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		return entry
	}

	base, params, _ := strings.Cut(b.typ, "<")
	params = strings.TrimSuffix(strings.TrimSpace(params), ">")
	switch {
	case base == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case base == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(base, "texture_storage_"):
		entry.StorageTexture.ViewDimension = viewDimensions[strings.TrimPrefix(base, "texture_storage_")]
		format, access, _ := strings.Cut(params, ",")
		entry.StorageTexture.Format = storageFormats[strings.TrimSpace(format)]
		entry.StorageTexture.Access = storageAccess[strings.TrimSpace(access)]
	case strings.HasPrefix(base, "texture_"):
		kind := strings.TrimPrefix(base, "texture_")
		depth := strings.HasPrefix(kind, "depth_")
		kind = strings.TrimPrefix(kind, "depth_")
		entry.Texture.Multisampled = strings.HasPrefix(kind, "multisampled_")
		kind = strings.TrimPrefix(kind, "multisampled_")
		entry.Texture.ViewDimension = viewDimensions[kind]
		if depth {
			entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		} else {
			entry.Texture.SampleType = sampleTypes[params]
		}
	}
	return entry
}
