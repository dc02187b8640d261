package view

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/odina101/cossacks-web/internal/geom"
	"github.com/odina101/cossacks-web/internal/sim"
	"github.com/odina101/cossacks-web/internal/terrain"
	"github.com/odina101/cossacks-web/internal/world"
)

const (
	DefaultFrameInterval = 50 * time.Millisecond
	DefaultOrderPriority = 1
)

// World is the part of the simulation the viewer reads and commands.
type World interface {
	Snapshot() world.Snapshot
	Enqueue(order sim.Order) (bool, string)
	Terrain() terrain.Terrain
}

type Config struct {
	FrameInterval time.Duration
	// OrderPriority is used for step and spin orders issued from the keyboard.
	OrderPriority int
}

// Viewer is an interactive terminal client. Keys:
//
//	arrows / hjkl  move the cursor
//	tab            select the next agent
//	enter / m      move the selection straight to the cursor
//	r              route the selection to the cursor around obstacles
//	1-8            step in one of eight directions (1 = down, then clockwise)
//	o              spin
//	x              stop
//	q / esc        quit
type Viewer struct {
	screen   tcell.Screen
	world    World
	renderer *Renderer
	cfg      Config

	cursorCol int
	cursorRow int
	selected  string
	status    string
}

func NewViewer(screen tcell.Screen, w World, cfg Config) *Viewer {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.OrderPriority == 0 {
		cfg.OrderPriority = DefaultOrderPriority
	}
	return &Viewer{
		screen:   screen,
		world:    w,
		renderer: NewRenderer(screen, w.Terrain()),
		cfg:      cfg,
		status:   "tab: select  enter: move  r: route  1-8: step  o: spin  x: stop  q: quit",
	}
}

func (v *Viewer) Cursor() (int, int) { return v.cursorCol, v.cursorRow }

func (v *Viewer) Selected() string { return v.selected }

func (v *Viewer) Status() string { return v.status }

// Run draws at the configured frame rate until ctx is cancelled or the user
// quits. The caller owns screen initialisation and Fini.
func (v *Viewer) Run(ctx context.Context) error {
	ticker := time.NewTicker(v.cfg.FrameInterval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	defer close(quit)
	go v.screen.ChannelEvents(events, quit)

	v.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if ev == nil {
				return nil
			}
			if !v.HandleEvent(ev) {
				return nil
			}
			v.Draw()
		case <-ticker.C:
			v.Draw()
		}
	}
}

func (v *Viewer) Draw() {
	v.renderer.Draw(Frame{
		Snapshot:  v.world.Snapshot(),
		CursorCol: v.cursorCol,
		CursorRow: v.cursorRow,
		Status:    v.status,
	})
}

// HandleEvent applies one input event. It returns false when the viewer
// should exit.
func (v *Viewer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			v.moveCursor(0, -1)
		case tcell.KeyDown:
			v.moveCursor(0, 1)
		case tcell.KeyLeft:
			v.moveCursor(-1, 0)
		case tcell.KeyRight:
			v.moveCursor(1, 0)
		case tcell.KeyTab:
			v.selectNext()
		case tcell.KeyEnter:
			v.orderToCursor(sim.OrderMove)
		case tcell.KeyRune:
			return v.handleRune(ev.Rune())
		}
	}
	return true
}

func (v *Viewer) handleRune(ch rune) bool {
	switch {
	case ch == 'q':
		return false
	case ch == 'h':
		v.moveCursor(-1, 0)
	case ch == 'j':
		v.moveCursor(0, 1)
	case ch == 'k':
		v.moveCursor(0, -1)
	case ch == 'l':
		v.moveCursor(1, 0)
	case ch == 'm':
		v.orderToCursor(sim.OrderMove)
	case ch == 'r':
		v.orderToCursor(sim.OrderRoute)
	case ch >= '1' && ch <= '8':
		v.issue(sim.Order{Type: sim.OrderStep, Step: &sim.StepOrder{
			Direction: int(ch-'1') * 2,
			Priority:  v.cfg.OrderPriority,
		}})
	case ch == 'o':
		v.issue(sim.Order{Type: sim.OrderSpin, Spin: &sim.SpinOrder{Priority: v.cfg.OrderPriority}})
	case ch == 'x':
		v.issue(sim.Order{Type: sim.OrderStop})
	}
	return true
}

func (v *Viewer) moveCursor(dc, dr int) {
	cols, rows := v.world.Terrain().Dimensions()
	v.cursorCol = int(geom.Clamp(float64(v.cursorCol+dc), 0, float64(cols-1)))
	v.cursorRow = int(geom.Clamp(float64(v.cursorRow+dr), 0, float64(rows-1)))
}

// selectNext moves the selection to the agent after the current one in
// world order, wrapping around.
func (v *Viewer) selectNext() {
	agents := v.world.Snapshot().Agents
	if len(agents) == 0 {
		v.status = "no agents"
		return
	}
	next := 0
	for i, agent := range agents {
		if agent.ID == v.selected {
			next = (i + 1) % len(agents)
			break
		}
	}
	if v.selected != "" && v.selected != agents[next].ID {
		v.enqueue(sim.Order{AgentID: v.selected, Type: sim.OrderSelect, Select: &sim.SelectOrder{Selected: false}})
	}
	v.selected = agents[next].ID
	if v.enqueue(sim.Order{AgentID: v.selected, Type: sim.OrderSelect, Select: &sim.SelectOrder{Selected: true}}) {
		v.status = "selected " + v.selected
	}
}

func (v *Viewer) orderToCursor(kind sim.OrderType) {
	target := TileCenter(v.world.Terrain(), v.cursorCol, v.cursorRow)
	v.issue(sim.Order{Type: kind, Move: &sim.MoveOrder{X: target.X, Y: target.Y}})
}

// issue sends order on behalf of the selected agent.
func (v *Viewer) issue(order sim.Order) {
	if v.selected == "" {
		v.status = "select an agent first (tab)"
		return
	}
	order.AgentID = v.selected
	if v.enqueue(order) {
		v.status = fmt.Sprintf("%s %s", order.Type, v.selected)
	}
}

func (v *Viewer) enqueue(order sim.Order) bool {
	ok, reason := v.world.Enqueue(order)
	if !ok {
		v.status = fmt.Sprintf("%s refused: %s", order.Type, reason)
	}
	return ok
}
