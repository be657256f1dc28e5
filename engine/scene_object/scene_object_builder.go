package scene_object

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
)

// SceneObjectBuilderOption is a functional option for configuring a SceneObject via NewSceneObject.
type SceneObjectBuilderOption func(*sceneObject)

// WithID overrides the generated object ID.
//
// Parameters:
//   - id: the unique object ID
//
// Returns:
//   - SceneObjectBuilderOption: a function that applies the ID option
func WithID(id uint64) SceneObjectBuilderOption {
	return func(o *sceneObject) {
		o.id = id
	}
}

// WithEnabled sets whether the object is rendered.
//
// Parameters:
//   - enabled: true to render the object
//
// Returns:
//   - SceneObjectBuilderOption: a function that applies the enabled option
func WithEnabled(enabled bool) SceneObjectBuilderOption {
	return func(o *sceneObject) {
		o.enabled.Store(enabled)
	}
}

// WithMesh sets the shared mesh handle.
//
// Parameters:
//   - m: the mesh
//
// Returns:
//   - SceneObjectBuilderOption: a function that applies the mesh option
func WithMesh(m model.StaticMesh) SceneObjectBuilderOption {
	return func(o *sceneObject) {
		o.mesh = m
	}
}

// WithMaterial sets the shared material handle.
//
// Parameters:
//   - m: the material
//
// Returns:
//   - SceneObjectBuilderOption: a function that applies the material option
func WithMaterial(m material.Material) SceneObjectBuilderOption {
	return func(o *sceneObject) {
		o.mat = m
	}
}

// WithTransform sets the model-to-world matrix.
//
// Parameters:
//   - m: the column-major model matrix
//
// Returns:
//   - SceneObjectBuilderOption: a function that applies the transform option
func WithTransform(m [16]float32) SceneObjectBuilderOption {
	return func(o *sceneObject) {
		o.setTransform(m)
	}
}

// WithPosition sets a pure translation as the transform.
//
// Parameters:
//   - x, y, z: world-space position
//
// Returns:
//   - SceneObjectBuilderOption: a function that applies the position option
func WithPosition(x, y, z float32) SceneObjectBuilderOption {
	return func(o *sceneObject) {
		o.setTransform(common.Translation(common.Vec3{x, y, z}))
	}
}
