// Package common holds the plain data types, vector math and culling helpers shared by the engine packages.
package common

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureStagingData is a decoded RGBA8 image waiting to be copied into a GPU texture.
type TextureStagingData struct {
	// Pixels is tightly packed RGBA, four bytes per texel, rows top to bottom.
	Pixels []byte
	Width  uint32
	Height uint32
}

// SamplerStagingData describes a sampler before it is created on the device. Zero fields
// are replaced by the renderer's linear repeat defaults.
type SamplerStagingData struct {
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	MagFilter, MinFilter                     wgpu.FilterMode
	MipmapFilter                             wgpu.MipmapFilterMode
	LodMinClamp, LodMaxClamp                 float32
	Compare                                  wgpu.CompareFunction
	MaxAnisotropy                            uint16
}

// ImportedMaterial is a material as read from a model file, before the renderer turns it
// into a Material.
type ImportedMaterial struct {
	Name      string
	BaseColor [4]float32

	// AlphaBlend is set for glTF alphaMode BLEND and routes the material to the OIT path.
	AlphaBlend  bool
	DoubleSided bool

	DiffuseTexture *ImportedTexture
	NormalTexture  *ImportedTexture
}

// ImportedTexture is an image referenced by a model file. Exactly one of Data (embedded,
// e.g. a GLB buffer view) and Path (an external file) is normally set.
type ImportedTexture struct {
	Name     string
	Path     string
	Data     []byte
	MimeType string

	// Width and Height are filled in by Decode.
	Width  int
	Height int

	// SamplerData overrides the default sampler when the model file specifies one.
	SamplerData *SamplerStagingData

	staged *TextureStagingData
}

// ErrNoImageSource is returned when a texture has neither embedded data nor a path.
var ErrNoImageSource = errors.New("texture has neither data nor path")

// Decode reads the image and converts it to RGBA8. PNG, JPEG, WebP, BMP and TIFF are supported.
//
// Returns:
//   - []byte: RGBA pixels, four bytes per texel
//   - uint32: width in texels
//   - uint32: height in texels
//   - error: the open or decode failure
func (t *ImportedTexture) Decode() ([]byte, uint32, uint32, error) {
	if t == nil {
		return nil, 0, 0, fmt.Errorf("decode texture: texture is nil")
	}
	img, err := t.readImage()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode texture %q: %w", t.Name, err)
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || bounds.Min != (image.Point{}) || rgba.Stride != 4*bounds.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	t.Width, t.Height = bounds.Dx(), bounds.Dy()
	return rgba.Pix, uint32(t.Width), uint32(t.Height), nil
}

func (t *ImportedTexture) readImage() (image.Image, error) {
	var r io.Reader
	switch {
	case len(t.Data) > 0:
		r = bytes.NewReader(t.Data)
	case t.Path != "":
		f, err := os.Open(t.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	default:
		return nil, ErrNoImageSource
	}
	img, _, err := image.Decode(r)
	return img, err
}

// Staging decodes the texture once and caches the result, so a loader goroutine can pay
// for decoding before the renderer uploads. Not safe for concurrent use on one texture.
//
// Returns:
//   - *TextureStagingData: the decoded pixels
//   - error: the decode failure
func (t *ImportedTexture) Staging() (*TextureStagingData, error) {
	if t != nil && t.staged != nil {
		return t.staged, nil
	}
	pix, w, h, err := t.Decode()
	if err != nil {
		return nil, err
	}
	t.staged = &TextureStagingData{Pixels: pix, Width: w, Height: h}
	return t.staged, nil
}
