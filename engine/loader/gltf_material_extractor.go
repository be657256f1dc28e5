package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser   gltfParser
	textures map[int]*common.ImportedTexture
}

// gltfMaterialExtractor reads glTF materials and the textures they reference.
type gltfMaterialExtractor interface {
	// ExtractMaterials converts every material of the document. Materials that reference the same glTF
	// texture share one ImportedTexture, so its pixels are decoded once.
	//
	// Returns:
	//   - []*common.ImportedMaterial: the materials, indexed by glTF material index
	//   - error: error if a texture reference is invalid
	ExtractMaterials() ([]*common.ImportedMaterial, error)

	// Textures returns every texture referenced by the extracted materials.
	Textures() []*common.ImportedTexture
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

func newGLTFMaterialExtractor(parser gltfParser) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{
		parser:   parser,
		textures: make(map[int]*common.ImportedTexture),
	}
}

func (e *gltfMaterialExtractorImpl) ExtractMaterials() ([]*common.ImportedMaterial, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}

	out := make([]*common.ImportedMaterial, len(doc.Materials))
	for i := range doc.Materials {
		src := &doc.Materials[i]
		mat := &common.ImportedMaterial{
			Name:        src.Name,
			BaseColor:   [4]float32{1, 1, 1, 1},
			AlphaBlend:  src.AlphaMode == gltfAlphaModeBlend,
			DoubleSided: src.DoubleSided,
		}
		if mat.Name == "" {
			mat.Name = fmt.Sprintf("material_%d", i)
		}

		if pbr := src.PbrMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				mat.BaseColor = *pbr.BaseColorFactor
			}
			if pbr.BaseColorTexture != nil {
				tex, err := e.texture(pbr.BaseColorTexture.Index)
				if err != nil {
					return nil, fmt.Errorf("material %q base color: %w", mat.Name, err)
				}
				mat.DiffuseTexture = tex
			}
		}
		if src.NormalTexture != nil {
			tex, err := e.texture(src.NormalTexture.Index)
			if err != nil {
				return nil, fmt.Errorf("material %q normal: %w", mat.Name, err)
			}
			mat.NormalTexture = tex
		}
		out[i] = mat
	}
	return out, nil
}

func (e *gltfMaterialExtractorImpl) Textures() []*common.ImportedTexture {
	out := make([]*common.ImportedTexture, 0, len(e.textures))
	for _, t := range e.textures {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// texture resolves a glTF texture index, once per index. A texture without an image source yields nil.
func (e *gltfMaterialExtractorImpl) texture(index int) (*common.ImportedTexture, error) {
	if tex, ok := e.textures[index]; ok {
		return tex, nil
	}

	doc := e.parser.Document()
	if index < 0 || index >= len(doc.Textures) {
		return nil, fmt.Errorf("texture %d out of range", index)
	}
	src := &doc.Textures[index]
	if src.Source == nil {
		e.textures[index] = nil
		return nil, nil
	}
	if *src.Source < 0 || *src.Source >= len(doc.Images) {
		return nil, fmt.Errorf("image %d out of range", *src.Source)
	}
	img := &doc.Images[*src.Source]

	tex := &common.ImportedTexture{
		Name:     img.Name,
		MimeType: img.MimeType,
	}
	if tex.Name == "" {
		tex.Name = fmt.Sprintf("texture_%d", index)
	}
	if src.Sampler != nil && *src.Sampler >= 0 && *src.Sampler < len(doc.Samplers) {
		tex.SamplerData = samplerStagingData(&doc.Samplers[*src.Sampler])
	}

	switch {
	case img.BufferView != nil:
		data, err := e.parser.BufferViewBytes(*img.BufferView)
		if err != nil {
			return nil, fmt.Errorf("image %q: %w", tex.Name, err)
		}
		tex.Data = data
	case strings.HasPrefix(img.URI, "data:"):
		data, mimeType, err := decodeDataURI(img.URI)
		if err != nil {
			return nil, fmt.Errorf("image %q: %w", tex.Name, err)
		}
		tex.Data = data
		if tex.MimeType == "" {
			tex.MimeType = mimeType
		}
	case img.URI != "":
		// External images are read when the texture is decoded.
		tex.Path = filepath.Join(e.parser.BaseDir(), filepath.FromSlash(img.URI))
	default:
		e.textures[index] = nil
		return nil, nil
	}

	e.textures[index] = tex
	return tex, nil
}

// samplerStagingData converts a glTF sampler. Unset fields keep the glTF defaults of linear filtering and repeat wrapping.
func samplerStagingData(s *gltfSampler) *common.SamplerStagingData {
	out := &common.SamplerStagingData{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
	if s.MagFilter != nil && *s.MagFilter == gltfFilterNearest {
		out.MagFilter = wgpu.FilterModeNearest
	}
	if s.MinFilter != nil {
		switch *s.MinFilter {
		case gltfFilterNearest:
			out.MinFilter, out.MipmapFilter = wgpu.FilterModeNearest, wgpu.MipmapFilterModeNearest
		case gltfFilterLinear:
			out.MipmapFilter = wgpu.MipmapFilterModeNearest
		case gltfFilterNearestMipmapNearest:
			out.MinFilter, out.MipmapFilter = wgpu.FilterModeNearest, wgpu.MipmapFilterModeNearest
		case gltfFilterLinearMipmapNearest:
			out.MipmapFilter = wgpu.MipmapFilterModeNearest
		case gltfFilterNearestMipmapLinear:
			out.MinFilter = wgpu.FilterModeNearest
		case gltfFilterLinearMipmapLinear:
		}
	}
	if s.WrapS != nil {
		out.AddressModeU = addressMode(*s.WrapS)
	}
	if s.WrapT != nil {
		out.AddressModeV = addressMode(*s.WrapT)
	}
	return out
}

func addressMode(wrap int) wgpu.AddressMode {
	switch wrap {
	case gltfWrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltfWrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}
