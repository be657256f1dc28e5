package deferred

import (
	"fmt"
	"log"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// whiteTexel stands in for a missing albedo texture.
var whiteTexel = common.TextureStagingData{Pixels: []byte{255, 255, 255, 255}, Width: 1, Height: 1}

// materialEntry tracks what a material's provider was built from.
type materialEntry struct {
	provider   bind_group_provider.BindGroupProvider
	layout     string
	albedo     *common.ImportedTexture
	generation uint64
	params     int
}

// layoutFingerprint identifies a bind group layout by its entries.
func layoutFingerprint(desc wgpu.BindGroupLayoutDescriptor) string {
	return fmt.Sprintf("%+v", desc.Entries)
}

// materialProvider returns the bind group provider of a material for a binding set, building it on
// first use and whenever the albedo texture or the layout changes. The material uniform is rewritten
// whenever the material's generation moves.
func (f *frameRenderer) materialProvider(mat material.Material, set *bindingSet) (bind_group_provider.BindGroupProvider, error) {
	if set.materialGroup < 0 {
		return nil, nil
	}

	layout := layoutFingerprint(set.materialLayout)
	albedo := mat.Texture(material.TextureSlotAlbedo)
	e := f.materials[mat]
	if e == nil || e.provider != mat.BindGroupProvider() || e.layout != layout || e.albedo != albedo {
		if old := mat.BindGroupProvider(); old != nil {
			old.Release()
			mat.SetBindGroupProvider(nil)
		}
		provider, params, err := f.buildMaterialProvider(mat, set, albedo)
		if err != nil {
			return nil, err
		}
		mat.SetBindGroupProvider(provider)
		e = &materialEntry{provider: provider, layout: layout, albedo: albedo, params: params}
		f.materials[mat] = e
		// Force the first uniform write.
		e.generation = mat.Generation() - 1
	}

	if gen := mat.Generation(); gen != e.generation && e.params >= 0 {
		params := mat.Params()
		f.r.WriteBuffers([]bind_group_provider.BufferWrite{{Provider: e.provider, Binding: e.params, Data: params.Marshal()}})
		e.generation = gen
	}
	return e.provider, nil
}

func (f *frameRenderer) buildMaterialProvider(mat material.Material, set *bindingSet, albedo *common.ImportedTexture) (bind_group_provider.BindGroupProvider, int, error) {
	provider := bind_group_provider.NewBindGroupProvider("Material " + mat.Name())
	params := -1

	for _, e := range set.materialLayout.Entries {
		b := int(e.Binding)
		var err error
		switch set.materialRoles[b] {
		case "":
			params = b
		case shader.AnnotationArgBaseColorTexture:
			staging := &whiteTexel
			if albedo != nil {
				if staging, err = albedo.Staging(); err != nil {
					log.Printf("[Deferred] material %q: albedo texture %q: %v", mat.Name(), albedo.Name, err)
					staging, err = &whiteTexel, nil
				}
			}
			err = f.r.InitTextureView(provider, b, *staging)
		case shader.AnnotationArgBaseColorSampler:
			var sd common.SamplerStagingData
			if albedo != nil && albedo.SamplerData != nil {
				sd = *albedo.SamplerData
			}
			err = f.r.InitSampler(provider, b, sd)
		default:
			err = fmt.Errorf("unsupported material binding role %q", set.materialRoles[b])
		}
		if err != nil {
			provider.Release()
			return nil, -1, fmt.Errorf("material %q binding %d: %w", mat.Name(), b, err)
		}
	}

	if err := f.r.InitBindGroup(provider, set.materialLayout); err != nil {
		provider.Release()
		return nil, -1, fmt.Errorf("material %q: %w", mat.Name(), err)
	}
	return provider, params, nil
}
