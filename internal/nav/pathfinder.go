// Package nav implements grid navigation: the A* pathfinder and the mapping
// between movement vectors and the 16 sprite facings.
package nav

import (
	"container/heap"
	"math"

	"github.com/odina101/cossacks-web/internal/geom"
)

// Terrain is the subset of the terrain oracle the pathfinder needs.
type Terrain interface {
	IsWalkable(x, y float64) bool
	TileSize() float64
	Dimensions() (cols, rows int)
}

type neighbor struct {
	col      int
	row      int
	cost     float64
	diagonal bool
}

// Expansion order N, NE, E, SE, S, SW, W, NW.
var neighborOffsets = [...]neighbor{
	{col: 0, row: -1, cost: 1},
	{col: 1, row: -1, cost: math.Sqrt2, diagonal: true},
	{col: 1, row: 0, cost: 1},
	{col: 1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: 0, row: 1, cost: 1},
	{col: -1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: 0, cost: 1},
	{col: -1, row: -1, cost: math.Sqrt2, diagonal: true},
}

// Path is an ordered list of tile centers from the start tile to the goal
// tile, both inclusive. Cost is measured in tiles.
type Path struct {
	Waypoints []geom.Vec2
	Cost      float64
}

func (p Path) Len() int { return len(p.Waypoints) }

// SearchResult carries the path along with search statistics.
type SearchResult struct {
	Path     Path
	Found    bool
	Expanded int
}

type Option func(*Pathfinder)

// WithStrictDiagonals forbids diagonal steps that would cut the corner of an
// unwalkable orthogonal neighbor.
func WithStrictDiagonals() Option {
	return func(p *Pathfinder) {
		p.strictDiagonals = true
	}
}

// Pathfinder is stateless between calls and safe to share as long as the
// terrain is not mutated.
type Pathfinder struct {
	terrain         Terrain
	strictDiagonals bool
}

func NewPathfinder(terrain Terrain, opts ...Option) *Pathfinder {
	p := &Pathfinder{terrain: terrain}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// FindPath returns the cheapest route between the tiles containing start and
// goal, or false when none exists.
func (p *Pathfinder) FindPath(start, goal geom.Vec2) (Path, bool) {
	result := p.Search(start, goal)
	return result.Path, result.Found
}

type cell struct {
	col int
	row int
}

// Search runs A* and reports how many cells were expanded.
func (p *Pathfinder) Search(start, goal geom.Vec2) SearchResult {
	if p == nil || p.terrain == nil {
		return SearchResult{}
	}
	tileSize := p.terrain.TileSize()
	if tileSize <= 0 {
		return SearchResult{}
	}
	cols, rows := p.terrain.Dimensions()
	g := grid{terrain: p.terrain, cols: cols, rows: rows, tileSize: tileSize}

	from, ok := g.locate(start)
	if !ok {
		return SearchResult{}
	}
	to, ok := g.locate(goal)
	if !ok || !g.walkable(to) {
		return SearchResult{}
	}
	return p.astar(g, from, to)
}

type grid struct {
	terrain  Terrain
	cols     int
	rows     int
	tileSize float64
}

func (g grid) locate(v geom.Vec2) (cell, bool) {
	if math.IsNaN(v.X) || math.IsNaN(v.Y) {
		return cell{}, false
	}
	c := cell{
		col: int(math.Floor(v.X / g.tileSize)),
		row: int(math.Floor(v.Y / g.tileSize)),
	}
	return c, g.inBounds(c)
}

func (g grid) inBounds(c cell) bool {
	return c.col >= 0 && c.row >= 0 && c.col < g.cols && c.row < g.rows
}

func (g grid) index(c cell) int {
	return c.row*g.cols + c.col
}

func (g grid) center(c cell) geom.Vec2 {
	return geom.Vec2{
		X: (float64(c.col) + 0.5) * g.tileSize,
		Y: (float64(c.row) + 0.5) * g.tileSize,
	}
}

// walkable probes the oracle at the tile center.
func (g grid) walkable(c cell) bool {
	center := g.center(c)
	return g.terrain.IsWalkable(center.X, center.Y)
}

func heuristic(a, b cell) float64 {
	return math.Hypot(float64(a.col-b.col), float64(a.row-b.row))
}

type openNode struct {
	cell cell
	g    float64
	f    float64
	seq  uint64
}

// openList orders by f, then by insertion sequence so that the earliest
// candidate wins ties.
type openList []*openNode

func (o openList) Len() int { return len(o) }

func (o openList) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}

func (o openList) Swap(i, j int) { o[i], o[j] = o[j], o[i] }

func (o *openList) Push(x any) { *o = append(*o, x.(*openNode)) }

func (o *openList) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*o = old[:n-1]
	return item
}

func (p *Pathfinder) astar(g grid, start, goal cell) SearchResult {
	open := &openList{}
	var seq uint64
	push := func(c cell, gScore float64) {
		heap.Push(open, &openNode{cell: c, g: gScore, f: gScore + heuristic(c, goal), seq: seq})
		seq++
	}

	startIdx := g.index(start)
	gScore := map[int]float64{startIdx: 0}
	cameFrom := make(map[int]cell)
	closed := make(map[int]struct{})
	// Search already verified the goal tile.
	walkable := map[int]bool{g.index(goal): true}
	isWalkable := func(c cell) bool {
		idx := g.index(c)
		if w, ok := walkable[idx]; ok {
			return w
		}
		w := g.walkable(c)
		walkable[idx] = w
		return w
	}
	push(start, 0)

	expanded := 0
	for open.Len() > 0 {
		current := heap.Pop(open).(*openNode)
		currIdx := g.index(current.cell)
		if _, done := closed[currIdx]; done {
			continue
		}
		if current.cell == goal {
			return SearchResult{
				Path:     Path{Waypoints: reconstruct(g, cameFrom, goal, start), Cost: current.g},
				Found:    true,
				Expanded: expanded,
			}
		}
		closed[currIdx] = struct{}{}
		expanded++

		for _, delta := range neighborOffsets {
			next := cell{col: current.cell.col + delta.col, row: current.cell.row + delta.row}
			if !g.inBounds(next) {
				continue
			}
			idx := g.index(next)
			if _, done := closed[idx]; done {
				continue
			}
			if !isWalkable(next) {
				continue
			}
			if delta.diagonal && p.strictDiagonals {
				horiz := cell{col: next.col, row: current.cell.row}
				vert := cell{col: current.cell.col, row: next.row}
				if !isWalkable(horiz) || !isWalkable(vert) {
					continue
				}
			}
			tentative := current.g + delta.cost
			if prev, seen := gScore[idx]; seen && tentative >= prev {
				continue
			}
			gScore[idx] = tentative
			cameFrom[idx] = current.cell
			push(next, tentative)
		}
	}
	return SearchResult{Expanded: expanded}
}

func reconstruct(g grid, cameFrom map[int]cell, goal, start cell) []geom.Vec2 {
	cells := []cell{goal}
	for c := goal; c != start; {
		c = cameFrom[g.index(c)]
		cells = append(cells, c)
	}
	path := make([]geom.Vec2, len(cells))
	for i, c := range cells {
		path[len(cells)-1-i] = g.center(c)
	}
	return path
}
