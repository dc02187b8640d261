package intake

import (
	"time"

	"github.com/odina101/cossacks-web/internal/net/proto"
	"github.com/odina101/cossacks-web/internal/sim"
	loggingorders "github.com/odina101/cossacks-web/logging/orders"
)

// Enqueuer stages orders for the next tick.
type Enqueuer interface {
	Enqueue(order sim.Order) (bool, string)
}

type OrderContext struct {
	World    Enqueuer
	HasAgent func(string) bool
	Now      func() time.Time
}

// StageClientOrder converts a client message into an order and hands it to
// the world. The returned reason is empty when the order was accepted.
func StageClientOrder(ctx OrderContext, msg proto.ClientMessage) (sim.Order, bool, string) {
	var zero sim.Order

	order, ok := proto.ClientOrder(msg)
	if !ok {
		return zero, false, loggingorders.ReasonInvalidOrder
	}
	if err := order.Validate(); err != nil {
		return zero, false, loggingorders.ReasonInvalidOrder
	}

	if ctx.HasAgent != nil && !ctx.HasAgent(order.AgentID) {
		return zero, false, loggingorders.ReasonUnknownAgent
	}

	order.ID = sim.NewOrderID()
	if ctx.Now != nil {
		order.IssuedAt = ctx.Now()
	} else {
		order.IssuedAt = time.Now()
	}

	if ctx.World == nil {
		return zero, false, loggingorders.ReasonQueueFull
	}
	if ok, reason := ctx.World.Enqueue(order); !ok {
		return zero, false, reason
	}

	return order, true, ""
}

// Retryable reports whether a rejected order may succeed if resent later.
func Retryable(reason string) bool {
	return reason == loggingorders.ReasonQueueFull
}
