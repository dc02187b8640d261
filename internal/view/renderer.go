// Package view renders a world onto a terminal and turns key presses into
// orders. It is the terminal counterpart of the websocket feed.
package view

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/odina101/cossacks-web/internal/geom"
	"github.com/odina101/cossacks-web/internal/nav"
	"github.com/odina101/cossacks-web/internal/terrain"
	"github.com/odina101/cossacks-web/internal/unit"
	"github.com/odina101/cossacks-web/internal/world"
)

const (
	glyphGround  = '.'
	glyphBlocked = '#'
	glyphPath    = '·'
	glyphTarget  = '×'
)

// arrows follows the facing convention: 0 points down the map, 4 left,
// 8 up and 12 right. Odd directions round towards the next even one.
var arrows = [nav.DirectionCount / 2]rune{'↓', '↙', '←', '↖', '↑', '↗', '→', '↘'}

var (
	styleBlocked  = tcell.StyleDefault.Foreground(tcell.ColorGray).Background(tcell.ColorBlack)
	styleAgent    = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleSelected = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	stylePath     = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
)

// DirectionGlyph returns the arrow drawn for an agent facing d.
func DirectionGlyph(d int) rune {
	d = int(nav.NormalizeDirection(d))
	return arrows[((d+1)/2)%len(arrows)]
}

// Frame is everything drawn in one refresh.
type Frame struct {
	Snapshot  world.Snapshot
	CursorCol int
	CursorRow int
	Status    string
}

// Renderer draws one terminal cell per tile with the status line on the
// bottom row. Tiles beyond the screen are clipped.
type Renderer struct {
	screen  tcell.Screen
	terrain terrain.Terrain
	minH    float64
	maxH    float64
}

func NewRenderer(screen tcell.Screen, t terrain.Terrain) *Renderer {
	r := &Renderer{screen: screen, terrain: t}
	r.minH, r.maxH = heightRange(t)
	return r
}

func heightRange(t terrain.Terrain) (float64, float64) {
	cols, rows := t.Dimensions()
	lo, hi := math.Inf(1), math.Inf(-1)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			h := t.HeightAt(col, row)
			lo = math.Min(lo, h)
			hi = math.Max(hi, h)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}

// TileAt maps a world coordinate onto its tile.
func TileAt(t terrain.Terrain, x, y float64) (int, int) {
	size := t.TileSize()
	return int(math.Floor(x / size)), int(math.Floor(y / size))
}

// TileCenter returns the world coordinate at the middle of a tile.
func TileCenter(t terrain.Terrain, col, row int) geom.Vec2 {
	size := t.TileSize()
	return geom.Vec2{X: (float64(col) + 0.5) * size, Y: (float64(row) + 0.5) * size}
}

func (r *Renderer) groundStyle(col, row int) tcell.Style {
	shade := 0.0
	if r.maxH > r.minH {
		shade = (r.terrain.HeightAt(col, row) - r.minH) / (r.maxH - r.minH)
	}
	green := int32(60 + shade*160)
	return tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(0, green/2, 0)).
		Background(tcell.NewRGBColor(0, green, 0))
}

func (r *Renderer) Draw(frame Frame) {
	r.screen.Clear()
	width, height := r.screen.Size()
	mapRows := height - 1

	cols, rows := r.terrain.Dimensions()
	for row := 0; row < rows && row < mapRows; row++ {
		for col := 0; col < cols && col < width; col++ {
			center := TileCenter(r.terrain, col, row)
			if r.terrain.IsWalkable(center.X, center.Y) {
				r.screen.SetContent(col, row, glyphGround, nil, r.groundStyle(col, row))
			} else {
				r.screen.SetContent(col, row, glyphBlocked, nil, styleBlocked)
			}
		}
	}

	for _, agent := range frame.Snapshot.Agents {
		if agent.Moving {
			r.drawPath(agent, width, mapRows)
		}
	}
	for _, agent := range frame.Snapshot.Agents {
		col, row := TileAt(r.terrain, agent.X, agent.Y)
		style := styleAgent
		if agent.Selected {
			style = styleSelected
		}
		r.put(col, row, DirectionGlyph(agent.Direction), style, width, mapRows)
	}

	if frame.CursorCol >= 0 && frame.CursorCol < width && frame.CursorRow >= 0 && frame.CursorRow < mapRows {
		mainc, combc, style, _ := r.screen.GetContent(frame.CursorCol, frame.CursorRow)
		r.screen.SetContent(frame.CursorCol, frame.CursorRow, mainc, combc, style.Reverse(true))
	}

	r.drawStatus(frame, width, height)
	r.screen.Show()
}

// drawPath marks the remaining route of a moving agent, sampling each
// segment every half tile.
func (r *Renderer) drawPath(agent unit.Snapshot, width, mapRows int) {
	if agent.PathIndex >= len(agent.Path) {
		return
	}
	step := r.terrain.TileSize() / 2
	from := geom.Vec2{X: agent.X, Y: agent.Y}
	for i := agent.PathIndex; i < len(agent.Path); i++ {
		to := agent.Path[i]
		dist := geom.Distance(from, to)
		for d := step; d < dist; d += step {
			p := from.Add(to.Sub(from).Scale(d / dist))
			col, row := TileAt(r.terrain, p.X, p.Y)
			r.put(col, row, glyphPath, stylePath, width, mapRows)
		}
		from = to
	}
	last := agent.Path[len(agent.Path)-1]
	col, row := TileAt(r.terrain, last.X, last.Y)
	r.put(col, row, glyphTarget, stylePath, width, mapRows)
}

// put draws ch over whatever ground is already in the cell.
func (r *Renderer) put(col, row int, ch rune, style tcell.Style, width, mapRows int) {
	if col < 0 || row < 0 || col >= width || row >= mapRows {
		return
	}
	_, _, existing, _ := r.screen.GetContent(col, row)
	_, bg, _ := existing.Decompose()
	r.screen.SetContent(col, row, ch, nil, style.Background(bg))
}

func (r *Renderer) drawStatus(frame Frame, width, height int) {
	if height <= 0 {
		return
	}
	snap := frame.Snapshot
	line := fmt.Sprintf(" tick %d  epoch %d  agents %d  %s", snap.Tick, snap.Epoch, len(snap.Agents), frame.Status)
	row := height - 1
	x := 0
	for _, ch := range line {
		if x >= width {
			break
		}
		r.screen.SetContent(x, row, ch, nil, styleStatus)
		x++
	}
	for ; x < width; x++ {
		r.screen.SetContent(x, row, ' ', nil, styleStatus)
	}
}
