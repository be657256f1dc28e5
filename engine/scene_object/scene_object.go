package scene_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
)

type sceneObject struct {
	mu *sync.Mutex

	id      uint64
	enabled atomic.Bool

	mesh model.StaticMesh
	mat  material.Material

	transform [16]float32
	position  common.Vec3
	scale     common.Vec3
}

// SceneObject defines the interface for a drawable scene entity.
// It holds a shared mesh and a shared material by handle, plus a model transform whose translation and
// diagonal scale are cached for culling. Objects sharing a Material instance are batched into one instanced draw.
type SceneObject interface {
	// ID returns the object's identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Enabled returns whether this object takes part in rendering.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled enables or disables rendering of this object.
	SetEnabled(enabled bool)

	// Mesh returns the shared mesh, or nil.
	//
	// Returns:
	//   - model.StaticMesh: the mesh
	Mesh() model.StaticMesh

	// Material returns the shared material, or nil.
	//
	// Returns:
	//   - material.Material: the material
	Material() material.Material

	// SetMesh replaces the mesh handle. Scene groups must be rebuilt afterwards.
	SetMesh(m model.StaticMesh)

	// SetMaterial replaces the material handle. Scene groups must be rebuilt afterwards.
	SetMaterial(m material.Material)

	// Renderable reports whether both the mesh and the material are set.
	// Objects that are not renderable are skipped silently by every pass.
	//
	// Returns:
	//   - bool: true when the object can be drawn
	Renderable() bool

	// SameType reports whether two objects hold the identical material instance.
	// Equal material contents in distinct instances do not count.
	//
	// Parameters:
	//   - other: the object to compare with
	//
	// Returns:
	//   - bool: true when both materials are the same non-nil instance
	SameType(other SceneObject) bool

	// Transform returns the model-to-world matrix (column-major).
	//
	// Returns:
	//   - [16]float32: the model matrix
	Transform() [16]float32

	// SetTransform replaces the model matrix and refreshes the cached position and scale.
	//
	// Parameters:
	//   - m: the new model-to-world matrix
	SetTransform(m [16]float32)

	// Position returns the cached translation of the transform.
	Position() common.Vec3

	// Scale returns the cached diagonal scale of the transform.
	Scale() common.Vec3

	// BoundingSphere returns the mesh sphere placed in world space.
	// The center is offset by the position and the radius is scaled by the length of the diagonal scale.
	//
	// Returns:
	//   - common.BoundingSphere: the world-space sphere, or the zero sphere without a mesh
	BoundingSphere() common.BoundingSphere

	// IsVisible reports whether the world-space bounding sphere intersects the frustum.
	//
	// Parameters:
	//   - camPos: the camera position
	//   - f: the world-space frustum
	//
	// Returns:
	//   - bool: true when the object should be drawn
	IsVisible(camPos common.Vec3, f common.Frustum) bool
}

var _ SceneObject = &sceneObject{}

var nextID atomic.Uint64

// NewSceneObject creates a new SceneObject with an identity transform and the provided options applied.
// Objects are enabled by default and receive a process-unique ID unless WithID is given.
//
// Parameters:
//   - options: variadic list of SceneObjectBuilderOption functions
//
// Returns:
//   - SceneObject: the new object
func NewSceneObject(options ...SceneObjectBuilderOption) SceneObject {
	o := &sceneObject{
		mu: &sync.Mutex{},
		id: nextID.Add(1),
	}
	o.enabled.Store(true)
	var id [16]float32
	common.Identity(id[:])
	o.setTransform(id)

	for _, opt := range options {
		opt(o)
	}
	return o
}

func (o *sceneObject) ID() uint64 {
	return o.id
}

func (o *sceneObject) Enabled() bool {
	return o.enabled.Load()
}

func (o *sceneObject) SetEnabled(enabled bool) {
	o.enabled.Store(enabled)
}

func (o *sceneObject) Mesh() model.StaticMesh {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mesh
}

func (o *sceneObject) Material() material.Material {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mat
}

func (o *sceneObject) SetMesh(m model.StaticMesh) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mesh = m
}

func (o *sceneObject) SetMaterial(m material.Material) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mat = m
}

func (o *sceneObject) Renderable() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mesh != nil && o.mat != nil
}

func (o *sceneObject) SameType(other SceneObject) bool {
	if other == nil {
		return false
	}
	a, b := o.Material(), other.Material()
	return a != nil && a == b
}

func (o *sceneObject) Transform() [16]float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transform
}

func (o *sceneObject) SetTransform(m [16]float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.setTransform(m)
}

func (o *sceneObject) setTransform(m [16]float32) {
	o.transform = m
	o.position, o.scale = common.DecomposeTransform(m)
}

func (o *sceneObject) Position() common.Vec3 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.position
}

func (o *sceneObject) Scale() common.Vec3 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.scale
}

func (o *sceneObject) BoundingSphere() common.BoundingSphere {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.mesh == nil {
		return common.BoundingSphere{}
	}
	return common.TransformSphere(o.mesh.BoundingSphere(), o.position, o.scale)
}

func (o *sceneObject) IsVisible(camPos common.Vec3, f common.Frustum) bool {
	return o.BoundingSphere().IsVisible(camPos, f)
}
