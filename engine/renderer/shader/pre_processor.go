package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/engine/frame"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/oit"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
)

// sharedStruct is a WGSL struct shared between Go and the shaders. source is the
// definition pasted by include, typeName is what generated declarations refer to.
type sharedStruct struct {
	source   string
	typeName string
}

var sharedStructs = map[AnnotationArg]sharedStruct{
	AnnotationArgFrameUniform:   {frame.GPUFrameUniformSource, "FrameUniform"},
	AnnotationArgTonemapParams:  {frame.GPUTonemapParamsSource, "TonemapParams"},
	AnnotationArgPointLight:     {light.GPUPointLightSource, "PointLight"},
	AnnotationArgTileUniforms:   {light.GPUTileUniformsSource, "TileUniforms"},
	AnnotationArgModelData:      {model.GPUModelDataSource, "ModelData"},
	annotationArgVertex:         {model.GPUVertexSource, "VertexInput"},
	AnnotationArgMaterialParams: {material.GPUMaterialParamsSource, "MaterialParams"},
	AnnotationArgFragmentNode:   {oit.GPUFragmentNodeSource, "FragmentNode"},
	AnnotationArgOITUniforms:    {oit.GPUOITUniformsSource, "OITUniforms"},
}

var addressSpaces = map[AnnotationArg]string{
	annotationArgStorageTypeUniform:   "uniform",
	annotationArgStorageTypeRead:      "storage, read",
	annotationArgStorageTypeReadWrite: "storage, read_write",
}

// PreProcessor expands the @oxy: annotations of a WGSL source and keeps the binding
// declarations it found so pipelines can be wired without matching variable names.
type PreProcessor interface {
	// Process expands every annotation in source. Includes become struct definitions,
	// group annotations become binding declarations and provider annotations are removed.
	// A struct referenced by a group annotation is pasted in even without an include.
	// The declarations of any earlier call are discarded.
	//
	// Parameters:
	//   - source: WGSL source with annotations
	//
	// Returns:
	//   - string: plain WGSL
	//   - error: the first malformed annotation, with its line number
	Process(source string) (string, error)

	// Declarations returns the group and provider annotations of the last Process call
	// in source order.
	//
	// Returns:
	//   - []Annotation: the declarations
	Declarations() []Annotation
}

type preProcessor struct {
	declarations []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor returns a PreProcessor that knows every struct the engine shares with its shaders.
//
// Returns:
//   - PreProcessor: the pre-processor
func NewPreProcessor() PreProcessor {
	return &preProcessor{}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = nil

	var out strings.Builder
	emitted := make(map[AnnotationArg]bool)
	include := func(key AnnotationArg) {
		if emitted[key] {
			return
		}
		emitted[key] = true
		out.WriteString(sharedStructs[key].source)
		out.WriteByte('\n')
	}

	for i, line := range strings.Split(source, "\n") {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			include(a.Args[0])
		case AnnotationTypeBindingGroup:
			elem := elementType(a.Args[2])
			include(elem)
			typeName := sharedStructs[elem].typeName
			if elem != a.Args[2] {
				typeName = "array<" + typeName + ">"
			}
			fmt.Fprintf(&out, "@group(%d) @binding(%d) var<%s> %s: %s;\n",
				*a.Group, *a.Binding, addressSpaces[a.Args[0]], a.Args[1], typeName)
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeProvider:
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.TrimSuffix(out.String(), "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
