package light

import "github.com/Carmen-Shannon/oxy-deferred/common"

// LightBuilderOption is a functional option for configuring a PointLight via NewPointLight.
type LightBuilderOption func(*pointLightImpl)

// WithPosition sets the world-space position of the light.
//
// Parameters:
//   - x, y, z: world-space coordinates
//
// Returns:
//   - LightBuilderOption: a function that applies the position option
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *pointLightImpl) {
		l.position = common.Vec3{x, y, z}
	}
}

// WithColor sets the RGB color of the light.
//
// Parameters:
//   - r, g, b: color channels, usually in [0, 1]
//
// Returns:
//   - LightBuilderOption: a function that applies the color option
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *pointLightImpl) {
		l.color = common.Vec3{r, g, b}
	}
}

// WithIntensity sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the multiplier applied to the color
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *pointLightImpl) {
		l.intensity = intensity
	}
}

// WithRadius sets the radius of influence. Negative values are clamped to zero.
//
// Parameters:
//   - radius: the distance beyond which the light contributes nothing
//
// Returns:
//   - LightBuilderOption: a function that applies the radius option
func WithRadius(radius float32) LightBuilderOption {
	return func(l *pointLightImpl) {
		l.radius = max(radius, 0)
	}
}
