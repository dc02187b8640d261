package unit

import (
	"fmt"
	"math"

	"github.com/odina101/cossacks-web/internal/geom"
	"github.com/odina101/cossacks-web/internal/nav"
	"github.com/odina101/cossacks-web/internal/sim"
)

const (
	// IdlePriority ranks the fallback command below every order.
	IdlePriority = -1
	// restChance is the share of idle commands that hold the current frame.
	restChance = 0.8

	stepSamples = 30
	// A step ends ten samples before its table runs out.
	stepIterations = stepSamples - 10
	spinIterations = 100
)

// idleBehavior cycles the current sheet once. A resting idle only keeps the
// bookkeeping running and leaves the frame where Init put it.
type idleBehavior struct {
	rest bool
}

func (idleBehavior) Kind() string { return "idle" }

func (idleBehavior) Init(a *Agent) any {
	a.anim.Rewind()
	return nil
}

func (b idleBehavior) Step(a *Agent, _ int, _ any) {
	if !b.rest {
		a.anim.Advance()
	}
}

func (idleBehavior) Finished(a *Agent, iteration int) bool {
	return iteration > a.anim.FrameCount
}

// stepBehavior walks along a precomputed trajectory in a fixed facing.
type stepBehavior struct {
	direction nav.Direction
}

func (stepBehavior) Kind() string { return "step" }

// Init samples the trajectory once so every later tick is a table lookup. The
// last slot is left empty; ticks that index it only update the facing.
func (b stepBehavior) Init(a *Agent) any {
	v := b.direction.Vector()
	samples := make([]*geom.Vec2, stepSamples)
	for i := 0; i < stepSamples-1; i++ {
		samples[i] = &geom.Vec2{
			X: roundHalfUp(a.pos.X + v.X*float64(i)*a.speed),
			Y: roundHalfUp(a.pos.Y + v.Y*float64(i)*a.speed),
		}
	}
	return samples
}

func (b stepBehavior) Step(a *Agent, iteration int, data any) {
	samples, _ := data.([]*geom.Vec2)
	if iteration < len(samples) && samples[iteration] != nil {
		a.pos = *samples[iteration]
		a.anim.Advance()
	}
	a.direction = b.direction
}

func (stepBehavior) Finished(_ *Agent, iteration int) bool {
	return iteration > stepIterations
}

// spinBehavior turns through every facing in order.
type spinBehavior struct{}

func (spinBehavior) Kind() string { return "spin" }

func (spinBehavior) Step(a *Agent, iteration int, _ any) {
	a.direction = nav.NormalizeDirection(iteration)
}

func (spinBehavior) Finished(_ *Agent, iteration int) bool {
	return iteration > spinIterations
}

func (a *Agent) idleCommand(h *sim.Handler[*Agent]) *sim.Command[*Agent] {
	rest := a.rng.Float64() < restChance
	cmd, err := sim.NewCommand[*Agent](h, idleBehavior{rest: rest}, IdlePriority)
	if err != nil {
		return nil
	}
	return cmd
}

// Go queues a step order in the given facing.
func (a *Agent) Go(direction, priority int) error {
	if direction < 0 || direction >= nav.DirectionCount {
		return fmt.Errorf("%w: %d", ErrInvalidDirection, direction)
	}
	cmd, err := sim.NewCommand[*Agent](a.handler, stepBehavior{direction: nav.Direction(direction)}, priority)
	if err != nil {
		return err
	}
	a.handler.AddCommand(cmd)
	return nil
}

// Spin queues a full rotation through the 16 facings.
func (a *Agent) Spin(priority int) error {
	cmd, err := sim.NewCommand[*Agent](a.handler, spinBehavior{}, priority)
	if err != nil {
		return err
	}
	a.handler.AddCommand(cmd)
	return nil
}

// roundHalfUp rounds ties toward positive infinity.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
