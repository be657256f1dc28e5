package light

import "github.com/Carmen-Shannon/oxy-deferred/common"

// pointLightImpl is the implementation of the PointLight interface.
type pointLightImpl struct {
	position  common.Vec3
	radius    float32
	color     common.Vec3
	intensity float32
}

// PointLight defines the interface for an omnidirectional light with a finite radius of influence.
//
// Point lights are scene-level entities. Each frame the scene's lights are assigned to screen tiles
// by CullTiles and packed into a GPU storage buffer by MarshalPointLights. The lighting resolve pass
// only evaluates the lights listed for a pixel's tile.
type PointLight interface {
	// Position returns the world-space position of the light.
	//
	// Returns:
	//   - common.Vec3: position as (x, y, z)
	Position() common.Vec3

	// Radius returns the distance beyond which the light contributes nothing.
	//
	// Returns:
	//   - float32: the radius in world units
	Radius() float32

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - common.Vec3: color as (r, g, b)
	Color() common.Vec3

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// BoundingSphere returns the sphere of influence used for tile culling.
	//
	// Returns:
	//   - common.BoundingSphere: center at the light position, radius of influence
	BoundingSphere() common.BoundingSphere

	// SetPosition moves the light.
	//
	// Parameters:
	//   - p: the new world-space position
	SetPosition(p common.Vec3)

	// SetColor sets the RGB color of the light.
	SetColor(c common.Vec3)

	// SetIntensity sets the scalar intensity multiplier.
	SetIntensity(intensity float32)

	// SetRadius sets the radius of influence.
	SetRadius(radius float32)
}

var _ PointLight = &pointLightImpl{}

// NewPointLight creates a new PointLight configured with the provided options.
// Defaults: origin, radius 10, white, intensity 1.
//
// Parameters:
//   - options: variadic list of LightBuilderOption functions
//
// Returns:
//   - PointLight: the new light
func NewPointLight(options ...LightBuilderOption) PointLight {
	l := &pointLightImpl{
		radius:    10,
		color:     common.Vec3{1, 1, 1},
		intensity: 1,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *pointLightImpl) Position() common.Vec3 {
	return l.position
}

func (l *pointLightImpl) Radius() float32 {
	return l.radius
}

func (l *pointLightImpl) Color() common.Vec3 {
	return l.color
}

func (l *pointLightImpl) Intensity() float32 {
	return l.intensity
}

func (l *pointLightImpl) BoundingSphere() common.BoundingSphere {
	return common.BoundingSphere{Center: l.position, Radius: l.radius}
}

func (l *pointLightImpl) SetPosition(p common.Vec3) {
	l.position = p
}

func (l *pointLightImpl) SetColor(c common.Vec3) {
	l.color = c
}

func (l *pointLightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
}

func (l *pointLightImpl) SetRadius(radius float32) {
	l.radius = radius
}
