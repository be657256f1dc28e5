package light

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/chewxy/math32"
)

// DefaultTileSize is the tile edge in pixels used when no configuration overrides it.
const DefaultTileSize = 16

// ErrInvalidTileConfig is returned by TileConfig.Validate for a zero tile size or an empty target.
var ErrInvalidTileConfig = errors.New("light: tile size and target dimensions must be non-zero")

// TileConfig describes the screen-space tile grid used for light culling.
// The grid covers the whole target; the last row and column may be partial.
type TileConfig struct {
	TileSize uint32
	Width    uint32
	Height   uint32
}

// Validate reports whether the configuration can produce a grid.
//
// Returns:
//   - error: ErrInvalidTileConfig when any field is zero
func (c TileConfig) Validate() error {
	if c.TileSize == 0 || c.Width == 0 || c.Height == 0 {
		return ErrInvalidTileConfig
	}
	return nil
}

// TilesX returns the number of tile columns, ceil(Width / TileSize).
func (c TileConfig) TilesX() uint32 {
	return common.DivCeil(c.Width, c.TileSize)
}

// TilesY returns the number of tile rows, ceil(Height / TileSize).
func (c TileConfig) TilesY() uint32 {
	return common.DivCeil(c.Height, c.TileSize)
}

// TileCount returns the total number of tiles.
func (c TileConfig) TileCount() uint32 {
	return c.TilesX() * c.TilesY()
}

// Uniforms returns the GPU description of the grid.
//
// Returns:
//   - GPUTileUniforms: the tile uniform block
func (c TileConfig) Uniforms() GPUTileUniforms {
	return GPUTileUniforms{
		TileSize: c.TileSize,
		TilesX:   c.TilesX(),
		TilesY:   c.TilesY(),
		Width:    c.Width,
		Height:   c.Height,
	}
}

// TileView is the camera state needed to build tile frustums.
type TileView struct {
	Position common.Vec3
	Basis    common.CameraBasis
	FovY     float32
	Aspect   float32
}

// TileLightLists is the compressed sparse row result of tile culling.
// Counts[i] is the end offset of tile i in Indices; the tile's range starts at Counts[i-1] (0 for the first tile).
// Tiles are numbered row-major from the top-left of the screen.
type TileLightLists struct {
	Counts  []uint32
	Indices []uint32
}

// Range returns the light indices assigned to a tile.
//
// Parameters:
//   - tile: the row-major tile index
//
// Returns:
//   - []uint32: the light indices, in scene order
func (t TileLightLists) Range(tile int) []uint32 {
	var start uint32
	if tile > 0 {
		start = t.Counts[tile-1]
	}
	return t.Indices[start:t.Counts[tile]]
}

// TileFrustum builds the world-space frustum of one tile.
// Tile edges are placed on the fractional grid Width/TileSize by Height/TileSize, so a partial last tile
// reaches slightly past the screen edge. Row 0 is the top of the screen.
//
// Parameters:
//   - view: the camera state
//   - cfg: the tile grid
//   - tx, ty: the tile column and row
//
// Returns:
//   - common.Frustum: the tile's five inward facing normals
func TileFrustum(view TileView, cfg TileConfig, tx, ty uint32) common.Frustum {
	tanY := math32.Tan(view.FovY / 2)
	tanX := tanY * view.Aspect

	nX := float32(cfg.Width) / float32(cfg.TileSize)
	nY := float32(cfg.Height) / float32(cfg.TileSize)

	left := -1 + 2*float32(tx)/nX
	right := -1 + 2*float32(tx+1)/nX
	top := 1 - 2*float32(ty)/nY
	bottom := 1 - 2*float32(ty+1)/nY

	return common.BuildSubFrustum(view.Basis, tanX, tanY, left, right, bottom, top)
}

// CullTiles assigns every light to each tile whose frustum its sphere of influence touches.
// A light appears at most once per tile and tiles list lights in scene order.
//
// Parameters:
//   - view: the camera state
//   - lights: the scene lights; a light's index in this slice is what the tile lists store
//   - cfg: the tile grid
//
// Returns:
//   - TileLightLists: the per-tile light lists in CSR form, empty for an invalid configuration
func CullTiles(view TileView, lights []PointLight, cfg TileConfig) TileLightLists {
	if cfg.Validate() != nil {
		return TileLightLists{}
	}

	tilesX, tilesY := cfg.TilesX(), cfg.TilesY()
	out := TileLightLists{
		Counts:  make([]uint32, 0, tilesX*tilesY),
		Indices: make([]uint32, 0, len(lights)),
	}

	// Every tile shares the near plane, so lights entirely behind the camera never reach a tile.
	spheres := make([]common.BoundingSphere, 0, len(lights))
	candidates := make([]uint32, 0, len(lights))
	for i, l := range lights {
		s := l.BoundingSphere()
		if s.Center.Sub(view.Position).Dot(view.Basis.Forward) > -s.Radius {
			spheres = append(spheres, s)
			candidates = append(candidates, uint32(i))
		}
	}

	for ty := range tilesY {
		for tx := range tilesX {
			f := TileFrustum(view, cfg, tx, ty)
			for k, s := range spheres {
				if s.IsVisible(view.Position, f) {
					out.Indices = append(out.Indices, candidates[k])
				}
			}
			out.Counts = append(out.Counts, uint32(len(out.Indices)))
		}
	}
	return out
}
