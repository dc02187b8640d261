package world

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odina101/cossacks-web/internal/sim"
	"github.com/odina101/cossacks-web/internal/unit"
	loggingorders "github.com/odina101/cossacks-web/logging/orders"
)

// IssueMoveOrder sends the agent in a straight line to (x, y). The command
// queue is cleared before this call returns.
func (w *World) IssueMoveOrder(ctx context.Context, agentID string, x, y float64) error {
	return w.issue(ctx, sim.Order{AgentID: agentID, Type: sim.OrderMove, Move: &sim.MoveOrder{X: x, Y: y}})
}

// IssueRoutedMoveOrder sends the agent to (x, y) along an A* route.
func (w *World) IssueRoutedMoveOrder(ctx context.Context, agentID string, x, y float64) error {
	return w.issue(ctx, sim.Order{AgentID: agentID, Type: sim.OrderRoute, Move: &sim.MoveOrder{X: x, Y: y}})
}

// IssueStepOrder queues a step in the given facing.
func (w *World) IssueStepOrder(ctx context.Context, agentID string, direction, priority int) error {
	return w.issue(ctx, sim.Order{AgentID: agentID, Type: sim.OrderStep, Step: &sim.StepOrder{Direction: direction, Priority: priority}})
}

func (w *World) IssueSpinOrder(ctx context.Context, agentID string, priority int) error {
	return w.issue(ctx, sim.Order{AgentID: agentID, Type: sim.OrderSpin, Spin: &sim.SpinOrder{Priority: priority}})
}

// StopAgent cancels the agent's movement and commands.
func (w *World) StopAgent(ctx context.Context, agentID string) error {
	return w.issue(ctx, sim.Order{AgentID: agentID, Type: sim.OrderStop})
}

func (w *World) SetSelected(ctx context.Context, agentID string, selected bool) error {
	return w.issue(ctx, sim.Order{AgentID: agentID, Type: sim.OrderSelect, Select: &sim.SelectOrder{Selected: selected}})
}

func (w *World) issue(ctx context.Context, order sim.Order) error {
	order = stampOrder(order)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.applyOrderLocked(ctx, order)
}

// Enqueue stages an order for the start of the next tick. It is safe to call
// from any goroutine. The reason is one of the loggingorders.Reason values
// when the order is refused.
func (w *World) Enqueue(order sim.Order) (bool, string) {
	order = stampOrder(order)
	if err := order.Validate(); err != nil {
		w.deps.Metrics.Add(metricOrdersRejectedTotal, 1)
		loggingorders.Rejected(context.Background(), w.deps.Publisher, 0, order.AgentID, order.ID, loggingorders.OrderPayload{
			Kind:   string(order.Type),
			Reason: loggingorders.ReasonInvalidOrder,
		})
		return false, loggingorders.ReasonInvalidOrder
	}
	if !w.orders.Push(order) {
		loggingorders.Dropped(context.Background(), w.deps.Publisher, 0, order.AgentID, order.ID, orderPayload(order, loggingorders.ReasonQueueFull))
		return false, loggingorders.ReasonQueueFull
	}
	return true, ""
}

// PendingOrders reports how many staged orders wait for the next tick.
func (w *World) PendingOrders() int {
	return w.orders.Len()
}

func stampOrder(order sim.Order) sim.Order {
	if order.ID == "" {
		order.ID = sim.NewOrderID()
	}
	if order.IssuedAt.IsZero() {
		order.IssuedAt = time.Now()
	}
	return order
}

func (w *World) applyOrderLocked(ctx context.Context, order sim.Order) error {
	if err := order.Validate(); err != nil {
		w.reject(ctx, order, loggingorders.ReasonInvalidOrder)
		return err
	}
	agent, ok := w.index[order.AgentID]
	if !ok {
		w.reject(ctx, order, loggingorders.ReasonUnknownAgent)
		return fmt.Errorf("%w: %s", ErrUnknownAgent, order.AgentID)
	}

	var err error
	switch order.Type {
	case sim.OrderMove:
		err = agent.MoveTo(order.Move.X, order.Move.Y)
	case sim.OrderRoute:
		err = agent.MoveAlong(order.Move.X, order.Move.Y)
	case sim.OrderStep:
		err = agent.Go(order.Step.Direction, order.Step.Priority)
	case sim.OrderSpin:
		priority := 0
		if order.Spin != nil {
			priority = order.Spin.Priority
		}
		err = agent.Spin(priority)
	case sim.OrderStop:
		agent.Stop()
	case sim.OrderSelect:
		agent.SetSelected(order.Select.Selected)
	}

	switch {
	case err == nil:
		w.deps.Metrics.Add(metricOrdersAppliedTotal, 1)
		payload := orderPayload(order, "")
		if order.Type == sim.OrderRoute || order.Type == sim.OrderMove {
			payload.Waypoints = len(agent.Path())
		}
		loggingorders.Issued(ctx, w.deps.Publisher, w.tick, order.AgentID, order.ID, payload)
		return nil
	case errors.Is(err, unit.ErrUnreachable):
		w.deps.Metrics.Add(metricOrdersRejectedTotal, 1)
		loggingorders.PathUnreachable(ctx, w.deps.Publisher, w.tick, order.AgentID, order.ID, orderPayload(order, loggingorders.ReasonUnreachable))
	case errors.Is(err, unit.ErrUnwalkable):
		w.reject(ctx, order, loggingorders.ReasonUnwalkable)
	case errors.Is(err, unit.ErrInvalidDirection):
		w.reject(ctx, order, loggingorders.ReasonInvalidDirection)
	default:
		w.reject(ctx, order, loggingorders.ReasonInvalidOrder)
	}
	return err
}

func (w *World) reject(ctx context.Context, order sim.Order, reason string) {
	w.deps.Metrics.Add(metricOrdersRejectedTotal, 1)
	loggingorders.Rejected(ctx, w.deps.Publisher, w.tick, order.AgentID, order.ID, orderPayload(order, reason))
}

func orderPayload(order sim.Order, reason string) loggingorders.OrderPayload {
	payload := loggingorders.OrderPayload{Kind: string(order.Type), Reason: reason}
	if order.Move != nil {
		payload.TargetX = order.Move.X
		payload.TargetY = order.Move.Y
	}
	if order.Step != nil {
		payload.Direction = order.Step.Direction
		payload.Priority = order.Step.Priority
	}
	if order.Spin != nil {
		payload.Priority = order.Spin.Priority
	}
	return payload
}
