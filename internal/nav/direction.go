package nav

import (
	"errors"
	"fmt"
	"math"

	"github.com/odina101/cossacks-web/internal/geom"
)

// DirectionCount is the number of discrete facings a sprite sheet carries.
const DirectionCount = 16

// Vectors shorter than this on both axes carry no usable heading.
const zeroVectorEpsilon = 0.001

const directionStep = math.Pi / 8

var ErrZeroVector = errors.New("nav: vector too short to carry a direction")

// InvalidDirectionError reports a vector that produced an index outside
// [0, DirectionCount), typically because a component was NaN or infinite.
type InvalidDirectionError struct {
	DX, DY   float64
	Computed float64
}

func (e *InvalidDirectionError) Error() string {
	return fmt.Sprintf("nav: invalid direction %v from vector (%v, %v)", e.Computed, e.DX, e.DY)
}

// Direction indexes the 16 facings. Direction 0 points along +y and indices
// advance clockwise in screen space.
type Direction int

func (d Direction) Valid() bool {
	return d >= 0 && d < DirectionCount
}

// NormalizeDirection returns the smallest non-negative residue of n mod 16.
func NormalizeDirection(n int) Direction {
	return Direction(((n % DirectionCount) + DirectionCount) % DirectionCount)
}

// Vector returns the unit displacement for d:
// (cos((d+4)π/8), sin((d+4)π/8)).
func (d Direction) Vector() geom.Vec2 {
	angle := float64(d+4) * directionStep
	return geom.Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
}

// DirectionFromVector is the inverse of Direction.Vector. Halves round up, so
// a heading exactly between two facings resolves to the higher index before
// wrapping.
func DirectionFromVector(dx, dy float64) (Direction, error) {
	if math.Abs(dx) < zeroVectorEpsilon && math.Abs(dy) < zeroVectorEpsilon {
		return 0, ErrZeroVector
	}
	angle := math.Atan2(dy, dx)
	raw := math.Floor(angle/directionStep - 4 + 0.5)
	n := math.Mod(raw, DirectionCount)
	if n < 0 {
		n += DirectionCount
	}
	if math.IsNaN(n) || n < 0 || n >= DirectionCount {
		return 0, &InvalidDirectionError{DX: dx, DY: dy, Computed: n}
	}
	return Direction(n), nil
}
