// Package unit implements the simulated agent: its command-driven behaviors,
// the direct-path movement integrator and the facing bookkeeping shared by
// both.
package unit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/odina101/cossacks-web/internal/anim"
	"github.com/odina101/cossacks-web/internal/geom"
	"github.com/odina101/cossacks-web/internal/nav"
	"github.com/odina101/cossacks-web/internal/sim"
	"github.com/odina101/cossacks-web/internal/terrain"
	"github.com/odina101/cossacks-web/logging"
	loggingagents "github.com/odina101/cossacks-web/logging/agents"
)

// DefaultSpeed is the distance an agent covers per tick.
const DefaultSpeed = 4.0

var (
	ErrUnwalkable       = errors.New("unit: destination is not walkable")
	ErrUnreachable      = errors.New("unit: destination is unreachable")
	ErrInvalidDirection = errors.New("unit: direction out of range")
	ErrMissingID        = errors.New("unit: agent id is required")
)

// Deps carries the shared collaborators of every agent in a world.
type Deps struct {
	Terrain    terrain.Terrain
	Catalog    *anim.Catalog
	Pathfinder *nav.Pathfinder
	Publisher  logging.Publisher
	// Tick reports the current world tick for event stamping.
	Tick func() uint64
	// RNG drives the idle variant choice. Each agent should own its source.
	RNG *rand.Rand
}

// Config describes an agent at spawn time.
type Config struct {
	ID        string
	Character string
	X         float64
	Y         float64
	Speed     float64
	Direction int
}

type Agent struct {
	id        string
	pos       geom.Vec2
	direction nav.Direction
	speed     float64
	anim      anim.State
	selected  bool
	handler   *sim.Handler[*Agent]

	moving    bool
	path      []geom.Vec2
	pathIndex int
	stride    float64

	deps Deps
	rng  *rand.Rand
}

func New(cfg Config, deps Deps) (*Agent, error) {
	id := strings.TrimSpace(cfg.ID)
	if id == "" {
		return nil, ErrMissingID
	}
	speed := cfg.Speed
	if speed <= 0 {
		speed = DefaultSpeed
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	rng := deps.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	a := &Agent{
		id:        id,
		pos:       geom.Vec2{X: cfg.X, Y: cfg.Y},
		direction: nav.NormalizeDirection(cfg.Direction),
		speed:     speed,
		anim:      anim.State{Character: cfg.Character},
		deps:      deps,
		rng:       rng,
	}
	if deps.Catalog != nil && cfg.Character != "" {
		state, err := deps.Catalog.NewState(cfg.Character, anim.VariantStand)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", id, err)
		}
		a.anim = state
	}
	a.handler = sim.NewHandler[*Agent](a, a.idleCommand)
	return a, nil
}

func (a *Agent) ID() string { return a.id }

func (a *Agent) Position() geom.Vec2 { return a.pos }

func (a *Agent) Direction() nav.Direction { return a.direction }

func (a *Agent) Speed() float64 { return a.speed }

// Animation returns a copy of the animation cursor.
func (a *Agent) Animation() anim.State { return a.anim }

func (a *Agent) Selected() bool { return a.selected }

func (a *Agent) SetSelected(selected bool) { a.selected = selected }

// Moving reports whether the direct-path integrator owns the agent.
func (a *Agent) Moving() bool { return a.moving }

// Path returns a copy of the installed waypoints.
func (a *Agent) Path() []geom.Vec2 {
	if len(a.path) == 0 {
		return nil
	}
	return append([]geom.Vec2(nil), a.path...)
}

func (a *Agent) PathIndex() int { return a.pathIndex }

// Handler exposes the command scheduler, mostly for inspection.
func (a *Agent) Handler() *sim.Handler[*Agent] { return a.handler }

// Tick advances the agent by one quantum. Movement and command execution are
// mutually exclusive: while moving, the scheduler is not consulted at all.
func (a *Agent) Tick() {
	if a.moving {
		a.advanceMovement()
		return
	}
	a.handler.HandleCommandQueue()
}

// Stop cancels movement and every command and shows the standing sheet.
// Calling it on an idle agent is harmless.
func (a *Agent) Stop() {
	a.handler.Clear()
	a.clearMovement()
	a.switchVariant(anim.VariantStand)
}

// face turns the agent toward (dx, dy). Degenerate vectors keep the current
// facing; invalid ones are reported and also keep it.
func (a *Agent) face(dx, dy float64) {
	d, err := nav.DirectionFromVector(dx, dy)
	if err == nil {
		a.direction = d
		return
	}
	var invalid *nav.InvalidDirectionError
	if errors.As(err, &invalid) {
		loggingagents.InvalidDirection(context.Background(), a.deps.Publisher, a.tick(), a.id, loggingagents.InvalidDirectionPayload{
			DX:       dx,
			DY:       dy,
			Computed: invalid.Computed,
			Retained: int(a.direction),
		})
	}
}

func (a *Agent) switchVariant(variant string) {
	if a.deps.Catalog == nil {
		a.anim.Variant = variant
		return
	}
	a.deps.Catalog.Switch(&a.anim, variant)
}

func (a *Agent) tick() uint64 {
	if a.deps.Tick == nil {
		return 0
	}
	return a.deps.Tick()
}

// Snapshot is the read-only view of an agent handed to renderers.
type Snapshot struct {
	ID        string      `json:"id"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	Direction int         `json:"direction"`
	Sprite    string      `json:"sprite"`
	Frame     int         `json:"frame"`
	Selected  bool        `json:"selected"`
	Moving    bool        `json:"moving"`
	Path      []geom.Vec2 `json:"path,omitempty"`
	PathIndex int         `json:"pathIndex,omitempty"`
	Command   string      `json:"command,omitempty"`
	Pending   int         `json:"pending,omitempty"`
}

func (a *Agent) Snapshot() Snapshot {
	snap := Snapshot{
		ID:        a.id,
		X:         a.pos.X,
		Y:         a.pos.Y,
		Direction: int(a.direction),
		Sprite:    a.anim.SpriteName,
		Frame:     a.anim.FrameIndex,
		Selected:  a.selected,
		Moving:    a.moving,
		Pending:   a.handler.Pending(),
	}
	if a.moving {
		snap.Path = a.Path()
		snap.PathIndex = a.pathIndex
	}
	if cmd := a.handler.Current(); cmd != nil {
		snap.Command = cmd.Kind()
	}
	return snap
}
