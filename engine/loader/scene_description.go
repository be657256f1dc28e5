package loader

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene_object"
)

// SceneDescription is the CPU-side content of a scene file: the distinct meshes and materials and
// the objects placing them in the world. Objects refer to meshes and materials by index, so
// aliasing in the file survives into the built scene.
type SceneDescription struct {
	// Name is the scene name, the file name without extension for files.
	Name string

	// Meshes holds one static mesh per file primitive.
	Meshes []model.StaticMesh

	// Materials holds the file's materials in file order.
	Materials []*common.ImportedMaterial

	// Textures holds every distinct texture the materials reference.
	Textures []*common.ImportedTexture

	// Objects holds one entry per placed primitive, in hierarchy order.
	Objects []ObjectDescription
}

// ObjectDescription places one mesh with one material.
type ObjectDescription struct {
	// Name is the name of the node the object came from.
	Name string

	// Mesh indexes SceneDescription.Meshes.
	Mesh int

	// Material indexes SceneDescription.Materials, or is -1 for the default material.
	Material int

	// Transform is the flattened world transform, column-major.
	Transform [16]float32
}

// BuildScene turns a description into a scene and builds its instance groups.
// Every file material becomes one Material shared by all of its objects, so objects with the same
// file material land in the same instance group. Blended file materials start transparent and
// double-sided file materials are not culled.
//
// Parameters:
//   - desc: the scene description
//   - lights: point lights to add to the scene
//   - options: additional scene options, applied after the description's
//
// Returns:
//   - scene.Scene: the built scene with its groups ordered
func BuildScene(desc *SceneDescription, lights []light.PointLight, options ...scene.SceneBuilderOption) scene.Scene {
	mats := make([]material.Material, len(desc.Materials))
	for i, imp := range desc.Materials {
		mats[i] = newMaterial(imp)
	}
	var fallback material.Material

	objects := make([]scene_object.SceneObject, 0, len(desc.Objects))
	for _, od := range desc.Objects {
		if od.Mesh < 0 || od.Mesh >= len(desc.Meshes) {
			continue
		}
		var mat material.Material
		if od.Material >= 0 && od.Material < len(mats) {
			mat = mats[od.Material]
		} else {
			if fallback == nil {
				fallback = material.NewMaterial(material.WithName("default"))
			}
			mat = fallback
		}
		objects = append(objects, scene_object.NewSceneObject(
			scene_object.WithMesh(desc.Meshes[od.Mesh]),
			scene_object.WithMaterial(mat),
			scene_object.WithTransform(od.Transform),
		))
	}

	opts := []scene.SceneBuilderOption{
		scene.WithName(desc.Name),
		scene.WithActive(true),
		scene.WithObjects(objects...),
		scene.WithLights(lights...),
	}
	sc := scene.NewScene(append(opts, options...)...)
	sc.OrderObjectsInLists()
	return sc
}

func newMaterial(imp *common.ImportedMaterial) material.Material {
	opts := []material.MaterialBuilderOption{
		material.WithName(imp.Name),
		material.WithBaseColor(imp.BaseColor),
		material.WithTexture(material.TextureSlotAlbedo, imp.DiffuseTexture),
		material.WithTexture(material.TextureSlotNormal, imp.NormalTexture),
	}
	if imp.DoubleSided {
		opts = append(opts, material.WithCull(material.CullModeNone))
	}
	if imp.AlphaBlend {
		opts = append(opts, material.WithBlend(material.BlendModeAlpha), material.WithDepthWrite(false))
	}
	return material.NewMaterial(opts...)
}
