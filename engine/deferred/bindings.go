package deferred

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// slot is a (group, binding) pair.
type slot struct {
	group, binding int
}

// declared is the provider identity and binding role an @oxy:provider annotation gives a slot.
type declared struct {
	identity shader.AnnotationArg
	role     shader.AnnotationArg
}

// resourceRef is what a slot is bound to: a shared buffer, a render target, or the material's own provider.
type resourceRef struct {
	buffer   resID
	target   targetID
	material bool
}

// targetIO maps the "target input" and "target output" roles of a pass to concrete targets.
type targetIO struct {
	input, output targetID
}

var bufferBindings = map[declared]resID{
	{shader.AnnotationArgFrame, ""}:                              resFrame,
	{shader.AnnotationArgInstances, ""}:                          resInstances,
	{shader.AnnotationArgLights, ""}:                             resLights,
	{shader.AnnotationArgTiles, ""}:                              resTileUniforms,
	{shader.AnnotationArgTiles, shader.AnnotationArgTileCounts}:  resTileCounts,
	{shader.AnnotationArgTiles, shader.AnnotationArgTileIndices}: resTileIndices,
	{shader.AnnotationArgOIT, ""}:                                resOITUniforms,
	{shader.AnnotationArgOIT, shader.AnnotationArgHeads}:         resHeads,
	{shader.AnnotationArgOIT, shader.AnnotationArgNodes}:         resNodes,
	{shader.AnnotationArgOIT, shader.AnnotationArgCounter}:       resCounter,
	{shader.AnnotationArgTonemap, ""}:                            resTonemap,
}

var gbufferBindings = map[shader.AnnotationArg]targetID{
	shader.AnnotationArgAlbedo: targetAlbedo,
	shader.AnnotationArgNormal: targetNormal,
	shader.AnnotationArgDepth:  targetDepth,
}

// resolveBinding maps a declared slot to the resource it reads or writes.
func resolveBinding(d declared, io targetIO) (resourceRef, bool) {
	switch d.identity {
	case shader.AnnotationArgMaterial:
		return resourceRef{material: true}, true
	case shader.AnnotationArgGBuffer:
		t, ok := gbufferBindings[d.role]
		return resourceRef{target: t}, ok
	case shader.AnnotationArgTarget:
		var t targetID
		switch d.role {
		case shader.AnnotationArgInput:
			t = io.input
		case shader.AnnotationArgOutput:
			t = io.output
		}
		return resourceRef{target: t}, t != targetNone
	}
	id, ok := bufferBindings[d]
	return resourceRef{buffer: id}, ok
}

// declaredBindings collects the @oxy:provider declarations of every stage of a pipeline.
func declaredBindings(p pipeline.Pipeline) map[slot]declared {
	out := make(map[slot]declared)
	for _, st := range []shader.ShaderType{shader.ShaderTypeVertex, shader.ShaderTypeFragment, shader.ShaderTypeCompute} {
		s := p.Shader(st)
		if s == nil {
			continue
		}
		for _, a := range s.Declarations() {
			if a.Type != shader.AnnotationTypeProvider || a.Group == nil || a.Binding == nil {
				continue
			}
			d := declared{identity: a.Args[0]}
			if len(a.Args) > 1 {
				d.role = a.Args[1]
			}
			out[slot{*a.Group, *a.Binding}] = d
		}
	}
	return out
}

// bindingSet holds the bind groups one pipeline (or every variant of one program) draws with.
// Shared groups are built from the frame resources; the material group, if any, is left empty and
// filled per draw.
type bindingSet struct {
	label   string
	layouts map[int]wgpu.BindGroupLayoutDescriptor
	refs    map[slot]resourceRef
	groups  []bind_group_provider.BindGroupProvider
	scratch []bind_group_provider.BindGroupProvider
	version uint64

	materialGroup  int
	materialLayout wgpu.BindGroupLayoutDescriptor
	materialRoles  map[int]shader.AnnotationArg
}

// planBindingSet resolves every binding of a pipeline's layouts without touching the GPU.
// It fails when a binding carries no provider declaration or names a resource the frame does not have.
func planBindingSet(label string, p pipeline.Pipeline, io targetIO) (*bindingSet, error) {
	decls := declaredBindings(p)
	set := &bindingSet{
		label:         label,
		layouts:       p.BindGroupLayoutDescriptors(),
		refs:          make(map[slot]resourceRef),
		groups:        make([]bind_group_provider.BindGroupProvider, p.GroupCount()),
		scratch:       make([]bind_group_provider.BindGroupProvider, p.GroupCount()),
		materialGroup: -1,
	}

	for g, layout := range set.layouts {
		materials := 0
		for _, e := range layout.Entries {
			s := slot{g, int(e.Binding)}
			d, ok := decls[s]
			if !ok {
				return nil, fmt.Errorf("%s: binding %d.%d has no provider declaration", label, g, e.Binding)
			}
			ref, ok := resolveBinding(d, io)
			if !ok {
				return nil, fmt.Errorf("%s: binding %d.%d (%s %s) is not provided by the frame", label, g, e.Binding, d.identity, d.role)
			}
			if ref.material {
				materials++
				if set.materialRoles == nil {
					set.materialRoles = make(map[int]shader.AnnotationArg)
				}
				set.materialRoles[int(e.Binding)] = d.role
			}
			set.refs[s] = ref
		}
		switch {
		case materials == 0:
		case materials == len(layout.Entries) && set.materialGroup < 0:
			set.materialGroup = g
			set.materialLayout = layout
		default:
			return nil, fmt.Errorf("%s: group %d mixes material and frame bindings", label, g)
		}
	}
	return set, nil
}

// bind (re)creates the shared bind groups against the current resources when they changed since the last bind.
func (set *bindingSet) bind(r renderer.Renderer, res *resources) error {
	if set.version == res.version {
		return nil
	}
	for g, layout := range set.layouts {
		if g == set.materialGroup {
			continue
		}
		provider := set.groups[g]
		if provider == nil {
			provider = bind_group_provider.NewBindGroupProvider(fmt.Sprintf("%s Group %d", set.label, g))
			set.groups[g] = provider
		}
		provider.ReleaseBindGroup()
		for _, e := range layout.Entries {
			b := int(e.Binding)
			ref := set.refs[slot{g, b}]
			if ref.target != targetNone {
				t := res.target(ref.target)
				if t == nil {
					return fmt.Errorf("%s: target %s is not created", set.label, targetSpecs[ref.target].label)
				}
				provider.SetSharedTextureView(b, t.View)
				continue
			}
			buf := res.buffer(ref.buffer)
			if buf == nil {
				return fmt.Errorf("%s: buffer %s is not created", set.label, resLabels[ref.buffer])
			}
			provider.SetSharedBuffer(b, buf)
		}
		if err := r.InitBindGroup(provider, layout); err != nil {
			return fmt.Errorf("%s: group %d: %w", set.label, g, err)
		}
	}
	set.version = res.version
	return nil
}

// with returns the groups to draw with, the material group filled with the given provider.
// The returned slice is reused by the next call.
func (set *bindingSet) with(materialProvider bind_group_provider.BindGroupProvider) []bind_group_provider.BindGroupProvider {
	copy(set.scratch, set.groups)
	if set.materialGroup >= 0 {
		set.scratch[set.materialGroup] = materialProvider
	}
	return set.scratch
}

func (set *bindingSet) release() {
	for _, g := range set.groups {
		if g != nil {
			g.Release()
		}
	}
}
