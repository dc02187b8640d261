package unit

import (
	"context"
	"fmt"
	"math"

	"github.com/odina101/cossacks-web/internal/anim"
	"github.com/odina101/cossacks-web/internal/geom"
	loggingagents "github.com/odina101/cossacks-web/logging/agents"
)

const (
	// strideLength is the distance travelled per walking frame.
	strideLength = 5.0
	// facingThreshold is the shortest displacement allowed to change facing
	// while moving.
	facingThreshold = 0.1
)

// MoveTo walks in a straight line to (x, y). Only the destination tile is
// checked; the agent may cross unwalkable tiles on the way.
func (a *Agent) MoveTo(x, y float64) error {
	if a.deps.Terrain != nil && !a.deps.Terrain.IsWalkable(x, y) {
		return fmt.Errorf("%w: (%.1f, %.1f)", ErrUnwalkable, x, y)
	}
	a.beginMovement([]geom.Vec2{a.pos, {X: x, Y: y}})
	return nil
}

// MoveAlong routes to (x, y) through the pathfinder, passing through the
// centers of the intermediate tiles and ending on the exact destination.
func (a *Agent) MoveAlong(x, y float64) error {
	if a.deps.Terrain != nil && !a.deps.Terrain.IsWalkable(x, y) {
		return fmt.Errorf("%w: (%.1f, %.1f)", ErrUnwalkable, x, y)
	}
	if a.deps.Pathfinder == nil {
		return fmt.Errorf("%w: no pathfinder configured", ErrUnreachable)
	}
	dest := geom.Vec2{X: x, Y: y}
	route, ok := a.deps.Pathfinder.FindPath(a.pos, dest)
	if !ok {
		return fmt.Errorf("%w: (%.1f, %.1f)", ErrUnreachable, x, y)
	}
	waypoints := make([]geom.Vec2, 0, route.Len()+1)
	waypoints = append(waypoints, a.pos)
	if route.Len() > 2 {
		waypoints = append(waypoints, route.Waypoints[1:route.Len()-1]...)
	}
	waypoints = append(waypoints, dest)
	a.beginMovement(waypoints)
	return nil
}

// beginMovement hands the agent to the integrator. Command state is discarded
// immediately, not on the next tick.
func (a *Agent) beginMovement(path []geom.Vec2) {
	a.handler.Clear()
	a.path = path
	a.pathIndex = 1
	a.moving = true
	a.stride = 0

	delta := path[1].Sub(a.pos)
	if math.Abs(delta.X) > facingThreshold || math.Abs(delta.Y) > facingThreshold {
		a.face(delta.X, delta.Y)
	}
	a.switchVariant(anim.VariantWalk)
}

func (a *Agent) advanceMovement() {
	if a.pathIndex >= len(a.path) {
		a.finishMovement()
		return
	}

	target := a.path[a.pathIndex]
	delta := target.Sub(a.pos)
	distance := delta.Len()

	if distance < a.speed {
		a.pos = target
		a.pathIndex++
		a.accumulateStride(distance)
		if a.pathIndex >= len(a.path) {
			a.finishMovement()
			return
		}
		next := a.path[a.pathIndex].Sub(a.pos)
		if next.Len() > facingThreshold {
			a.face(next.X, next.Y)
		}
		return
	}

	if distance > facingThreshold {
		a.face(delta.X, delta.Y)
	}
	a.pos = a.pos.Add(delta.Scale(a.speed / distance))
	a.accumulateStride(a.speed)
}

// accumulateStride advances the walking sheet one frame per strideLength
// travelled, independent of the tick rate.
func (a *Agent) accumulateStride(distance float64) {
	a.stride += distance
	for a.stride >= strideLength {
		a.anim.Advance()
		a.stride -= strideLength
	}
}

func (a *Agent) finishMovement() {
	a.clearMovement()
	a.switchVariant(anim.VariantStand)
	loggingagents.MovementFinished(context.Background(), a.deps.Publisher, a.tick(), a.id, loggingagents.MovementFinishedPayload{
		X:         a.pos.X,
		Y:         a.pos.Y,
		Direction: int(a.direction),
	})
}

func (a *Agent) clearMovement() {
	a.moving = false
	a.path = nil
	a.pathIndex = 0
	a.stride = 0
}
