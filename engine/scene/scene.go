package scene

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/frame"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene_object"
)

// ErrGroupIndexOutOfRange is returned by ForceTransparency for a group index that does not exist.
var ErrGroupIndexOutOfRange = errors.New("scene: instance group index out of range")

// InstanceBatch is one instanced draw produced by CollectInstances.
// All members share Material and Mesh; Transforms holds the model matrices of the objects that survived culling.
type InstanceBatch struct {
	Group         int
	Mesh          model.StaticMesh
	Material      material.Material
	Transforms    [][16]float32
	FirstInstance uint32
}

// Scene holds the objects and point lights of one level, and partitions the objects into instance groups.
//
// Objects are grouped first-fit by material identity: an object joins the first group whose first member
// holds the same Material instance, otherwise it starts a new group. Opaque and transparent objects are kept
// in separate group lists. Groups are rebuilt by OrderObjectsInLists and go stale whenever an object is added
// or any member's mesh, material or material state changes.
// Scenes can be hot-swapped via the Active flag. Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// AddObject appends an object to the scene. No duplicate detection is performed.
	// The groups are stale until OrderObjectsInLists runs.
	//
	// Parameters:
	//   - obj: the object to add
	//
	// Returns:
	//   - int: the object's index in the scene
	AddObject(obj scene_object.SceneObject) int

	// AddLight appends a point light to the scene.
	//
	// Parameters:
	//   - l: the light to add
	AddLight(l light.PointLight)

	// Objects returns the scene objects in insertion order.
	//
	// Returns:
	//   - []scene_object.SceneObject: a copy of the object list
	Objects() []scene_object.SceneObject

	// Lights returns the point lights in insertion order.
	//
	// Returns:
	//   - []light.PointLight: a copy of the light list
	Lights() []light.PointLight

	// OrderObjectsInLists rebuilds the opaque and transparent groups from scratch.
	// Calling it twice without intervening changes yields identical groups.
	OrderObjectsInLists()

	// OpaqueGroups returns the opaque instance groups as lists of object indices.
	//
	// Returns:
	//   - [][]int: a copy of the groups
	OpaqueGroups() [][]int

	// TransparentGroups returns the transparent instance groups as lists of object indices.
	//
	// Returns:
	//   - [][]int: a copy of the groups
	TransparentGroups() [][]int

	// HasTransparency reports whether at least one transparent group exists.
	HasTransparency() bool

	// Stale reports whether the groups no longer reflect the objects.
	//
	// Returns:
	//   - bool: true when OrderObjectsInLists must run before the groups are used
	Stale() bool

	// ForceTransparency turns every member of an opaque group transparent and re-partitions.
	// Each distinct material in the group is switched to alpha blending, depth write off, reversed depth test
	// and the given pipeline key. Materials are shared, so every object holding them is affected.
	//
	// Parameters:
	//   - program: the pipeline key used for the transparent draw
	//   - groupIndex: the index into OpaqueGroups
	//
	// Returns:
	//   - error: ErrGroupIndexOutOfRange if groupIndex does not name an opaque group
	ForceTransparency(program string, groupIndex int) error

	// CollectInstances culls the members of each group and packs the survivors into instanced draws.
	// Disabled, non-renderable and culled objects are skipped. A group with no survivors yields no batch.
	// Members with different meshes are split into one batch per mesh, in first appearance order.
	// FirstInstance is the running offset of each batch inside one contiguous instance buffer.
	//
	// Parameters:
	//   - groups: the groups to collect, usually OpaqueGroups or TransparentGroups
	//   - camPos: the camera position
	//   - f: the camera frustum
	//
	// Returns:
	//   - []InstanceBatch: the draws, in group order
	CollectInstances(groups [][]int, camPos common.Vec3, f common.Frustum) []InstanceBatch

	// Sun returns the directional light.
	//
	// Returns:
	//   - common.Vec3: direction towards the sun, not necessarily normalized
	//   - common.Vec3: sun RGB color
	Sun() (common.Vec3, common.Vec3)

	// SetSun sets the directional light.
	//
	// Parameters:
	//   - dir: direction towards the sun
	//   - color: sun RGB color
	SetSun(dir, color common.Vec3)

	// FrameUniform builds the per-frame uniform for a camera.
	//
	// Parameters:
	//   - cam: the camera rendering this frame
	//
	// Returns:
	//   - frame.GPUFrameUniform: the packed frame uniform
	FrameUniform(cam camera.Camera) frame.GPUFrameUniform

	// Upload creates the GPU buffers of every distinct mesh that has not been uploaded yet.
	//
	// Parameters:
	//   - r: the uploader, normally the renderer
	//
	// Returns:
	//   - error: the first upload failure, wrapped with the mesh name
	Upload(r model.MeshUploader) error

	// Release frees the GPU resources of every mesh and material in the scene.
	Release()
}

type objectSignature struct {
	mesh       model.StaticMesh
	mat        material.Material
	generation uint64
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	objects []scene_object.SceneObject
	lights  []light.PointLight

	opaqueGroups      [][]int
	transparentGroups [][]int
	signatures        []objectSignature
	ordered           bool

	sunDir   common.Vec3
	sunColor common.Vec3
}

var _ Scene = &scene{}

// NewScene creates a new empty Scene with the provided options applied.
// The default sun points towards (0.2, 1, 0.1) with a white color.
//
// Parameters:
//   - options: variadic list of SceneBuilderOption functions
//
// Returns:
//   - Scene: the new scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:       &sync.RWMutex{},
		sunDir:   common.Vec3{0.2, 1, 0.1},
		sunColor: common.Vec3{1, 1, 1},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) AddObject(obj scene_object.SceneObject) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = append(s.objects, obj)
	s.ordered = false
	return len(s.objects) - 1
}

func (s *scene) AddLight(l light.PointLight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *scene) Objects() []scene_object.SceneObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.objects)
}

func (s *scene) Lights() []light.PointLight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lights)
}

func (s *scene) OrderObjectsInLists() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderObjectsInLists()
}

func (s *scene) orderObjectsInLists() {
	s.opaqueGroups = nil
	s.transparentGroups = nil
	s.signatures = make([]objectSignature, len(s.objects))

	for i, obj := range s.objects {
		mat := obj.Material()
		s.signatures[i] = objectSignature{mesh: obj.Mesh(), mat: mat}
		if mat != nil {
			s.signatures[i].generation = mat.Generation()
		}

		if mat != nil && mat.IsTransparent() {
			s.transparentGroups = s.addToGroup(s.transparentGroups, i)
		} else {
			s.opaqueGroups = s.addToGroup(s.opaqueGroups, i)
		}
	}
	s.ordered = true
}

func (s *scene) addToGroup(groups [][]int, i int) [][]int {
	obj := s.objects[i]
	for g, members := range groups {
		if s.objects[members[0]].SameType(obj) {
			groups[g] = append(members, i)
			return groups
		}
	}
	return append(groups, []int{i})
}

func (s *scene) OpaqueGroups() [][]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneGroups(s.opaqueGroups)
}

func (s *scene) TransparentGroups() [][]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneGroups(s.transparentGroups)
}

func (s *scene) HasTransparency() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transparentGroups) > 0
}

func (s *scene) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ordered || len(s.signatures) != len(s.objects) {
		return true
	}
	for i, obj := range s.objects {
		sig := s.signatures[i]
		mat := obj.Material()
		if obj.Mesh() != sig.mesh || mat != sig.mat {
			return true
		}
		if mat != nil && mat.Generation() != sig.generation {
			return true
		}
	}
	return false
}

func (s *scene) ForceTransparency(program string, groupIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if groupIndex < 0 || groupIndex >= len(s.opaqueGroups) {
		return fmt.Errorf("force transparency on group %d of %d: %w", groupIndex, len(s.opaqueGroups), ErrGroupIndexOutOfRange)
	}

	var done []material.Material
	for _, i := range s.opaqueGroups[groupIndex] {
		mat := s.objects[i].Material()
		if mat == nil || slices.Contains(done, mat) {
			continue
		}
		mat.MakeTransparent(program)
		done = append(done, mat)
	}
	s.orderObjectsInLists()
	return nil
}

func (s *scene) CollectInstances(groups [][]int, camPos common.Vec3, f common.Frustum) []InstanceBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var batches []InstanceBatch
	var first uint32
	for g, members := range groups {
		start := len(batches)
		for _, i := range members {
			if i < 0 || i >= len(s.objects) {
				continue
			}
			obj := s.objects[i]
			if !obj.Enabled() || !obj.Renderable() || !obj.IsVisible(camPos, f) {
				continue
			}

			mesh := obj.Mesh()
			b := start
			for ; b < len(batches); b++ {
				if batches[b].Mesh == mesh {
					break
				}
			}
			if b == len(batches) {
				batches = append(batches, InstanceBatch{Group: g, Mesh: mesh, Material: obj.Material()})
			}
			batches[b].Transforms = append(batches[b].Transforms, obj.Transform())
		}

		for b := start; b < len(batches); b++ {
			batches[b].FirstInstance = first
			first += uint32(len(batches[b].Transforms))
		}
	}
	return batches
}

func (s *scene) Sun() (common.Vec3, common.Vec3) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sunDir, s.sunColor
}

func (s *scene) SetSun(dir, color common.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sunDir = dir
	s.sunColor = color
}

func (s *scene) FrameUniform(cam camera.Camera) frame.GPUFrameUniform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return frame.NewFrameUniform(
		cam.ViewProjectionMatrix(),
		cam.InverseViewProjectionMatrix(),
		uint32(len(s.lights)),
		s.sunDir,
		s.sunColor,
	)
}

func (s *scene) Upload(r model.MeshUploader) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, mesh := range s.distinctMeshes() {
		if err := mesh.Upload(r); err != nil {
			return fmt.Errorf("upload mesh %q: %w", mesh.Name(), err)
		}
	}
	return nil
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, mesh := range s.distinctMeshes() {
		mesh.Release()
	}
	var released []material.Material
	for _, obj := range s.objects {
		mat := obj.Material()
		if mat == nil || slices.Contains(released, mat) {
			continue
		}
		if p := mat.BindGroupProvider(); p != nil {
			p.Release()
			mat.SetBindGroupProvider(nil)
		}
		released = append(released, mat)
	}
}

func (s *scene) distinctMeshes() []model.StaticMesh {
	var meshes []model.StaticMesh
	for _, obj := range s.objects {
		if m := obj.Mesh(); m != nil && !slices.Contains(meshes, m) {
			meshes = append(meshes, m)
		}
	}
	return meshes
}

func cloneGroups(groups [][]int) [][]int {
	out := make([][]int, len(groups))
	for i, g := range groups {
		out[i] = slices.Clone(g)
	}
	return out
}
