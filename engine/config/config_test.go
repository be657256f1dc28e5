package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/frame"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1600, cfg.Window.Width)
	assert.Equal(t, 900, cfg.Window.Height)
	assert.Equal(t, renderer.PresentModeVSync, cfg.PresentMode())
	assert.False(t, cfg.Renderer.SoftwareAdapter)
	assert.Equal(t, uint32(16), cfg.Renderer.TileSize)
	assert.Equal(t, uint32(8), cfg.Renderer.FragmentsPerPixel)
	assert.Equal(t, frame.DebugViewLit, cfg.DebugView())
	assert.Len(t, cfg.PointLights(), 2)
	assert.Equal(t, -1, cfg.ForceTransparentGroup)

	fov, near, far := cfg.Projection()
	assert.InDelta(t, 1.0472, fov, 1e-4)
	assert.Equal(t, float32(0.1), near)
	assert.Equal(t, float32(1000), far)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero tile size", func(c *Config) { c.Renderer.TileSize = 0 }, ErrInvalidTileSize},
		{"zero width", func(c *Config) { c.Window.Width = 0 }, ErrInvalidWindow},
		{"zero height", func(c *Config) { c.Window.Height = 0 }, ErrInvalidWindow},
		{"zero OIT capacity", func(c *Config) { c.Renderer.FragmentsPerPixel = 0 }, ErrInvalidOITCapacity},
		{"flat fov", func(c *Config) { c.Camera.FovDegrees = 180 }, ErrInvalidCamera},
		{"near behind eye", func(c *Config) { c.Camera.Near = 0 }, ErrInvalidCamera},
		{"far before near", func(c *Config) { c.Camera.Far = 0.05 }, ErrInvalidCamera},
		{"zero sun", func(c *Config) { c.Sun.Direction = [3]float32{} }, ErrInvalidSun},
		{"unknown debug view", func(c *Config) { c.Renderer.DebugView = "depth" }, ErrInvalidDebugView},
		{"unknown present mode", func(c *Config) { c.Window.PresentMode = "adaptive" }, ErrInvalidPresentMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestReadTOML(t *testing.T) {
	src := `
scene = "forest.glb"

[window]
width = 800
height = 600

[renderer]
tile_size = 32
debug_view = "normal"
double_sided = true

[[lights]]
position = [0.0, 5.0, 0.0]
color = [1.0, 0.5, 0.25]
intensity = 10.0
radius = 20.0
`
	cfg, err := read(strings.NewReader(src), decoders[".toml"])
	require.NoError(t, err)

	assert.Equal(t, "forest.glb", cfg.Scene)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, renderer.PresentModeVSync, cfg.PresentMode(), "unset settings keep their defaults")
	assert.Equal(t, uint32(32), cfg.Renderer.TileSize)
	assert.Equal(t, uint32(8), cfg.Renderer.FragmentsPerPixel)
	assert.True(t, cfg.Renderer.DoubleSided)
	assert.Equal(t, frame.DebugViewNormal, cfg.DebugView())

	require.Len(t, cfg.Lights, 1, "listed lights replace the defaults")
	lights := cfg.PointLights()
	assert.Equal(t, float32(20), lights[0].Radius())
	assert.Equal(t, float32(10), lights[0].Intensity())
}

func TestReadYAML(t *testing.T) {
	src := `
window:
  present_mode: low_latency
renderer:
  software_adapter: true
  fragments_per_pixel: 4
  exposure: 1.5
sun:
  direction: [0, 1, 0]
  color: [1, 0.9, 0.8]
force_transparent_group: 1
`
	cfg, err := read(strings.NewReader(src), decoders[".yaml"])
	require.NoError(t, err)

	assert.Equal(t, renderer.PresentModeLowLatency, cfg.PresentMode())
	assert.True(t, cfg.Renderer.SoftwareAdapter)
	assert.Equal(t, uint32(4), cfg.Renderer.FragmentsPerPixel)
	assert.Equal(t, float32(1.5), cfg.Renderer.Exposure)
	assert.Equal(t, 1, cfg.ForceTransparentGroup)
	dir, color := cfg.SunVectors()
	assert.Equal(t, float32(1), dir[1])
	assert.Equal(t, float32(0.8), color[2])
	assert.Len(t, cfg.Lights, 2)
}

func TestReadEmptyYAML(t *testing.T) {
	cfg, err := read(strings.NewReader(""), decoders[".yml"])
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestReadRejectsInvalid(t *testing.T) {
	_, err := read(strings.NewReader("[renderer]\ntile_size = 0\n"), decoders[".toml"])
	assert.ErrorIs(t, err, ErrInvalidTileSize)

	_, err = read(strings.NewReader("[renderer\n"), decoders[".toml"])
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("[window]\ntitle = \"test\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Window.Title)

	_, err = Load(filepath.Join(dir, "engine.json"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
