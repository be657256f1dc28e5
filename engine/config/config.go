package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/frame"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/chewxy/math32"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidTileSize is returned by Validate when the light culling tile size is 0.
	ErrInvalidTileSize = errors.New("config: tile size must be positive")

	// ErrInvalidWindow is returned by Validate when the window has a zero dimension.
	ErrInvalidWindow = errors.New("config: window size must be positive")

	// ErrInvalidOITCapacity is returned by Validate when the fragment budget is 0.
	ErrInvalidOITCapacity = errors.New("config: OIT fragments per pixel must be positive")

	// ErrInvalidSun is returned by Validate when the sun direction is the zero vector.
	ErrInvalidSun = errors.New("config: sun direction must be non-zero")

	// ErrInvalidDebugView is returned by Validate for an unknown debug view name.
	ErrInvalidDebugView = errors.New("config: unknown debug view")

	// ErrInvalidCamera is returned by Validate for a field of view outside (0, 180) or clip planes
	// that are not 0 < near < far.
	ErrInvalidCamera = errors.New("config: invalid camera projection")

	// ErrInvalidPresentMode is returned by Validate for an unknown present mode name.
	ErrInvalidPresentMode = errors.New("config: unknown present mode")

	// ErrUnsupportedFormat is returned by Load for an extension with no decoder.
	ErrUnsupportedFormat = errors.New("config: unsupported config format")
)

// Config holds the engine settings that can be read from a TOML or YAML file.
type Config struct {
	Window   WindowConfig   `toml:"window" yaml:"window"`
	Renderer RendererConfig `toml:"renderer" yaml:"renderer"`
	Camera   CameraConfig   `toml:"camera" yaml:"camera"`
	Sun      SunConfig      `toml:"sun" yaml:"sun"`
	Lights   []LightConfig  `toml:"lights" yaml:"lights"`

	// Scene is the scene file loaded at startup, may be empty.
	Scene string `toml:"scene" yaml:"scene"`

	// ForceTransparentGroup, when non-negative, makes that opaque group transparent after the scene loads.
	ForceTransparentGroup int `toml:"force_transparent_group" yaml:"force_transparent_group"`
}

// WindowConfig holds the window settings.
type WindowConfig struct {
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`

	// PresentMode is "vsync", "low_latency" or "uncapped".
	PresentMode string `toml:"present_mode" yaml:"present_mode"`
}

// RendererConfig holds the deferred pipeline settings.
type RendererConfig struct {
	TileSize          uint32  `toml:"tile_size" yaml:"tile_size"`
	FragmentsPerPixel uint32  `toml:"fragments_per_pixel" yaml:"fragments_per_pixel"`
	DoubleSided       bool    `toml:"double_sided" yaml:"double_sided"`
	DebugView         string  `toml:"debug_view" yaml:"debug_view"`
	Exposure          float32 `toml:"exposure" yaml:"exposure"`
	Gamma             float32 `toml:"gamma" yaml:"gamma"`

	// SoftwareAdapter requests the fallback adapter. Read once at startup.
	SoftwareAdapter bool `toml:"software_adapter" yaml:"software_adapter"`
}

// CameraConfig holds the fly camera settings.
type CameraConfig struct {
	Position   [3]float32 `toml:"position" yaml:"position"`
	Target     [3]float32 `toml:"target" yaml:"target"`
	Speed      float32    `toml:"speed" yaml:"speed"`
	FovDegrees float32    `toml:"fov_degrees" yaml:"fov_degrees"`
	Near       float32    `toml:"near" yaml:"near"`
	Far        float32    `toml:"far" yaml:"far"`
}

// SunConfig holds the directional light.
type SunConfig struct {
	Direction [3]float32 `toml:"direction" yaml:"direction"`
	Color     [3]float32 `toml:"color" yaml:"color"`
}

// LightConfig describes one point light.
type LightConfig struct {
	Position  [3]float32 `toml:"position" yaml:"position"`
	Color     [3]float32 `toml:"color" yaml:"color"`
	Intensity float32    `toml:"intensity" yaml:"intensity"`
	Radius    float32    `toml:"radius" yaml:"radius"`
}

// decoder is satisfied by both the TOML and the YAML decoders.
type decoder interface {
	Decode(v any) error
}

// decoderFunc creates a decoder reading from r.
type decoderFunc func(r io.Reader) decoder

func newDecoderFunc[T decoder](f func(r io.Reader) T) decoderFunc {
	return func(r io.Reader) decoder { return f(r) }
}

var decoders = map[string]decoderFunc{
	".toml": newDecoderFunc(toml.NewDecoder),
	".yaml": newDecoderFunc(yaml.NewDecoder),
	".yml":  newDecoderFunc(yaml.NewDecoder),
}

// Default returns the settings of the stock demo: a 1600x900 vsynced window, 16 pixel tiles,
// 8 OIT fragments per pixel, the lit view and two white point lights.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:       "oxy deferred",
			Width:       1600,
			Height:      900,
			PresentMode: renderer.PresentModeVSync.String(),
		},
		Renderer: RendererConfig{
			TileSize:          light.DefaultTileSize,
			FragmentsPerPixel: 8,
			DebugView:         frame.DebugViewLit.String(),
			Exposure:          1,
			Gamma:             2.2,
		},
		Camera: CameraConfig{
			Position:   [3]float32{0, 2, 10},
			Target:     [3]float32{0, 0, 0},
			Speed:      10,
			FovDegrees: 60,
			Near:       0.1,
			Far:        1000,
		},
		Sun: SunConfig{
			Direction: [3]float32{0.2, 1, 0.1},
			Color:     [3]float32{1, 1, 1},
		},
		Lights: []LightConfig{
			{Position: [3]float32{1, 2, 100}, Color: [3]float32{1, 1, 1}, Intensity: 255, Radius: 100},
			{Position: [3]float32{1, 50, -4}, Color: [3]float32{1, 1, 1}, Intensity: 255, Radius: 100},
		},
		ForceTransparentGroup: -1,
	}
}

// Load reads a config file over the defaults, so a file only needs the settings it changes.
// The decoder is chosen by extension: .toml, or .yaml and .yml.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - Config: the decoded and validated configuration
//   - error: ErrUnsupportedFormat, a wrapped read or decode error, or a validation error
func Load(path string) (Config, error) {
	f, ok := decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	fp, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer fp.Close()

	cfg, err := read(bufio.NewReader(fp), f)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// read decodes a config from r over the defaults and validates it.
func read(r io.Reader, f decoderFunc) (Config, error) {
	cfg := Default()
	// A file that lists lights replaces the default lights rather than merging into them.
	cfg.Lights = nil
	if err := f(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if cfg.Lights == nil {
		cfg.Lights = Default().Lights
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
//
// Returns:
//   - error: one of the ErrInvalid errors, wrapped with the offending value where there is one
func (c Config) Validate() error {
	if c.Renderer.TileSize == 0 {
		return ErrInvalidTileSize
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidWindow, c.Window.Width, c.Window.Height)
	}
	if c.Renderer.FragmentsPerPixel == 0 {
		return ErrInvalidOITCapacity
	}
	if cam := c.Camera; cam.FovDegrees <= 0 || cam.FovDegrees >= 180 || cam.Near <= 0 || cam.Far <= cam.Near {
		return fmt.Errorf("%w: fov %g near %g far %g", ErrInvalidCamera, cam.FovDegrees, cam.Near, cam.Far)
	}
	if common.Vec3(c.Sun.Direction).Length() == 0 {
		return ErrInvalidSun
	}
	if _, ok := frame.ParseDebugView(c.Renderer.DebugView); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDebugView, c.Renderer.DebugView)
	}
	if _, ok := renderer.ParsePresentMode(c.Window.PresentMode); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPresentMode, c.Window.PresentMode)
	}
	return nil
}

// PresentMode returns the parsed present mode, or VSync if it does not parse.
func (c Config) PresentMode() renderer.PresentMode {
	m, _ := renderer.ParsePresentMode(c.Window.PresentMode)
	return m
}

// DebugView returns the parsed debug view, or the lit view if it does not parse.
func (c Config) DebugView() frame.DebugView {
	v, _ := frame.ParseDebugView(c.Renderer.DebugView)
	return v
}

// Projection returns the camera's vertical field of view in radians and its clip planes.
func (c Config) Projection() (fov, near, far float32) {
	return c.Camera.FovDegrees * math32.Pi / 180, c.Camera.Near, c.Camera.Far
}

// SunVectors returns the sun direction and color.
func (c Config) SunVectors() (common.Vec3, common.Vec3) {
	return common.Vec3(c.Sun.Direction), common.Vec3(c.Sun.Color)
}

// PointLights builds the configured point lights.
//
// Returns:
//   - []light.PointLight: one light per entry, in file order
func (c Config) PointLights() []light.PointLight {
	out := make([]light.PointLight, 0, len(c.Lights))
	for _, l := range c.Lights {
		out = append(out, light.NewPointLight(
			light.WithPosition(l.Position[0], l.Position[1], l.Position[2]),
			light.WithColor(l.Color[0], l.Color[1], l.Color[2]),
			light.WithIntensity(l.Intensity),
			light.WithRadius(l.Radius),
		))
	}
	return out
}
