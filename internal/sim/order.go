package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderType enumerates the intents a client can hand to the world.
type OrderType string

const (
	OrderMove   OrderType = "move"
	OrderRoute  OrderType = "route"
	OrderStep   OrderType = "step"
	OrderSpin   OrderType = "spin"
	OrderStop   OrderType = "stop"
	OrderSelect OrderType = "select"
)

// ErrInvalidOrder wraps every validation failure reported by Order.Validate.
var ErrInvalidOrder = errors.New("sim: invalid order")

// MoveOrder carries the destination of a move or route order.
type MoveOrder struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StepOrder carries the facing and priority of a step order.
type StepOrder struct {
	Direction int `json:"direction"`
	Priority  int `json:"priority"`
}

type SpinOrder struct {
	Priority int `json:"priority"`
}

type SelectOrder struct {
	Selected bool `json:"selected"`
}

// Order represents an intent captured for processing at the start of the next
// tick.
type Order struct {
	ID       string       `json:"id"`
	AgentID  string       `json:"agentId"`
	Type     OrderType    `json:"type"`
	IssuedAt time.Time    `json:"issuedAt"`
	Move     *MoveOrder   `json:"move,omitempty"`
	Step     *StepOrder   `json:"step,omitempty"`
	Spin     *SpinOrder   `json:"spin,omitempty"`
	Select   *SelectOrder `json:"select,omitempty"`
}

// NewOrderID returns a fresh identifier used to correlate an order with the
// events it produces.
func NewOrderID() string {
	return uuid.NewString()
}

// Validate checks that the payload matching Type is present.
func (o Order) Validate() error {
	if o.AgentID == "" {
		return fmt.Errorf("%w: missing agent id", ErrInvalidOrder)
	}
	switch o.Type {
	case OrderMove, OrderRoute:
		if o.Move == nil {
			return fmt.Errorf("%w: %s order without destination", ErrInvalidOrder, o.Type)
		}
	case OrderStep:
		if o.Step == nil {
			return fmt.Errorf("%w: step order without direction", ErrInvalidOrder)
		}
	case OrderSelect:
		if o.Select == nil {
			return fmt.Errorf("%w: select order without flag", ErrInvalidOrder)
		}
	case OrderSpin, OrderStop:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidOrder, o.Type)
	}
	return nil
}
