// Package terrain provides the walkability and height oracle consumed by the
// pathfinder, the movement integrator and the terminal renderer.
package terrain

import (
	"errors"
	"fmt"
	"math"

	"github.com/odina101/cossacks-web/internal/geom"
)

const DefaultTileSize = 32.0

var ErrInvalidDimensions = errors.New("terrain: grid dimensions must be positive")

// Terrain is the read-only view of the map used by the simulation.
type Terrain interface {
	// IsWalkable reports whether the tile containing the world coordinate can
	// be entered. Coordinates outside the map are never walkable.
	IsWalkable(x, y float64) bool
	// HeightAt returns the elevation of a tile, or 0 outside the map.
	HeightAt(tileX, tileY int) float64
	TileSize() float64
	Dimensions() (cols, rows int)
}

// Obstacle blocks every tile it overlaps.
type Obstacle struct {
	ID   string    `json:"id,omitempty" yaml:"id,omitempty"`
	Rect geom.Rect `json:"rect" yaml:"rect"`
}

// Grid is a uniform tile map. It is mutated while a scenario is built and
// treated as immutable once the world starts ticking.
type Grid struct {
	cols     int
	rows     int
	tileSize float64
	walkable []bool
	heights  []float64
}

// NewGrid builds a fully walkable, flat grid.
func NewGrid(cols, rows int, tileSize float64) (*Grid, error) {
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cols, rows)
	}
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	g := &Grid{
		cols:     cols,
		rows:     rows,
		tileSize: tileSize,
		walkable: make([]bool, cols*rows),
		heights:  make([]float64, cols*rows),
	}
	for i := range g.walkable {
		g.walkable[i] = true
	}
	return g, nil
}

func (g *Grid) TileSize() float64 { return g.tileSize }

func (g *Grid) Dimensions() (int, int) { return g.cols, g.rows }

// Bounds returns the map extent in world units.
func (g *Grid) Bounds() geom.Rect {
	return geom.Rect{Width: float64(g.cols) * g.tileSize, Height: float64(g.rows) * g.tileSize}
}

func (g *Grid) InBounds(col, row int) bool {
	return g != nil && col >= 0 && row >= 0 && col < g.cols && row < g.rows
}

func (g *Grid) index(col, row int) int {
	return row*g.cols + col
}

// Locate converts a world coordinate into tile indices by floor division.
func (g *Grid) Locate(x, y float64) (int, int, bool) {
	if g == nil || math.IsNaN(x) || math.IsNaN(y) {
		return 0, 0, false
	}
	col := int(math.Floor(x / g.tileSize))
	row := int(math.Floor(y / g.tileSize))
	if !g.InBounds(col, row) {
		return 0, 0, false
	}
	return col, row, true
}

// TileCenter returns the world coordinate at the middle of a tile.
func (g *Grid) TileCenter(col, row int) geom.Vec2 {
	return geom.Vec2{
		X: (float64(col) + 0.5) * g.tileSize,
		Y: (float64(row) + 0.5) * g.tileSize,
	}
}

func (g *Grid) IsWalkable(x, y float64) bool {
	col, row, ok := g.Locate(x, y)
	if !ok {
		return false
	}
	return g.walkable[g.index(col, row)]
}

// TileWalkable reports walkability by tile index.
func (g *Grid) TileWalkable(col, row int) bool {
	if !g.InBounds(col, row) {
		return false
	}
	return g.walkable[g.index(col, row)]
}

// SetWalkable marks a single tile. Out of range indices are ignored.
func (g *Grid) SetWalkable(col, row int, walkable bool) {
	if !g.InBounds(col, row) {
		return
	}
	g.walkable[g.index(col, row)] = walkable
}

func (g *Grid) HeightAt(tileX, tileY int) float64 {
	if !g.InBounds(tileX, tileY) {
		return 0
	}
	return g.heights[g.index(tileX, tileY)]
}

func (g *Grid) SetHeight(col, row int, height float64) {
	if !g.InBounds(col, row) {
		return
	}
	g.heights[g.index(col, row)] = height
}

// HeightRange returns the lowest and highest elevation on the map.
func (g *Grid) HeightRange() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, h := range g.heights {
		lo = min(lo, h)
		hi = max(hi, h)
	}
	return lo, hi
}

// BlockRect marks every tile overlapping obs as unwalkable and returns the
// number of tiles that changed.
func (g *Grid) BlockRect(obs Obstacle) int {
	if obs.Rect.Width <= 0 || obs.Rect.Height <= 0 {
		return 0
	}
	minCol := max(int(math.Floor(obs.Rect.X/g.tileSize)), 0)
	minRow := max(int(math.Floor(obs.Rect.Y/g.tileSize)), 0)
	maxCol := min(int(math.Ceil((obs.Rect.X+obs.Rect.Width)/g.tileSize)), g.cols-1)
	maxRow := min(int(math.Ceil((obs.Rect.Y+obs.Rect.Height)/g.tileSize)), g.rows-1)

	blocked := 0
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			tile := geom.Rect{
				X:      float64(col) * g.tileSize,
				Y:      float64(row) * g.tileSize,
				Width:  g.tileSize,
				Height: g.tileSize,
			}
			if !tile.Overlaps(obs.Rect, 0) {
				continue
			}
			idx := g.index(col, row)
			if g.walkable[idx] {
				g.walkable[idx] = false
				blocked++
			}
		}
	}
	return blocked
}

// WalkableCount reports how many tiles can be entered.
func (g *Grid) WalkableCount() int {
	count := 0
	for _, w := range g.walkable {
		if w {
			count++
		}
	}
	return count
}

var _ Terrain = (*Grid)(nil)
