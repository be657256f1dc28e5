package scene

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene_object"
)

// SceneBuilderOption configures a scene in NewScene.
type SceneBuilderOption func(s *scene)

// WithName names the scene in logs and the window title.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: the option
func WithName(name string) SceneBuilderOption {
	return func(s *scene) { s.name = name }
}

// WithActive marks the scene as the one the engine draws.
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) { s.active = active }
}

// WithObjects adds objects after any added by earlier options. Grouping waits for
// OrderObjectsInLists.
//
// Parameters:
//   - objects: the objects, in draw order
//
// Returns:
//   - SceneBuilderOption: the option
func WithObjects(objects ...scene_object.SceneObject) SceneBuilderOption {
	return func(s *scene) { s.objects = append(s.objects, objects...) }
}

// WithLights adds point lights after any added by earlier options.
//
// Parameters:
//   - lights: the lights
//
// Returns:
//   - SceneBuilderOption: the option
func WithLights(lights ...light.PointLight) SceneBuilderOption {
	return func(s *scene) { s.lights = append(s.lights, lights...) }
}

// WithSun sets the directional light. dir points from the scene towards the sun.
//
// Parameters:
//   - dir: the direction towards the sun
//   - color: the linear RGB radiance
//
// Returns:
//   - SceneBuilderOption: the option
func WithSun(dir, color common.Vec3) SceneBuilderOption {
	return func(s *scene) { s.sunDir, s.sunColor = dir, color }
}
