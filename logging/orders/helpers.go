package orders

import (
	"context"

	"github.com/odina101/cossacks-web/logging"
)

const (
	EventIssued          logging.EventType = "order.issued"
	EventRejected        logging.EventType = "order.rejected"
	EventPathUnreachable logging.EventType = "order.path_unreachable"
	EventDropped         logging.EventType = "order.dropped"
)

// Reasons attached to rejected or dropped orders.
const (
	ReasonUnwalkable       = "unwalkable_destination"
	ReasonUnreachable      = "unreachable_destination"
	ReasonInvalidDirection = "invalid_direction"
	ReasonUnknownAgent     = "unknown_agent"
	ReasonInvalidOrder     = "invalid_order"
	ReasonQueueFull        = "queue_full"
)

// OrderPayload describes an order in every event of this package.
type OrderPayload struct {
	Kind      string  `json:"kind"`
	TargetX   float64 `json:"targetX,omitempty"`
	TargetY   float64 `json:"targetY,omitempty"`
	Direction int     `json:"direction,omitempty"`
	Priority  int     `json:"priority,omitempty"`
	Waypoints int     `json:"waypoints,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

func Issued(ctx context.Context, pub logging.Publisher, tick uint64, agentID, orderID string, payload OrderPayload) {
	publish(ctx, pub, EventIssued, logging.SeverityDebug, tick, agentID, orderID, payload)
}

func Rejected(ctx context.Context, pub logging.Publisher, tick uint64, agentID, orderID string, payload OrderPayload) {
	publish(ctx, pub, EventRejected, logging.SeverityInfo, tick, agentID, orderID, payload)
}

func PathUnreachable(ctx context.Context, pub logging.Publisher, tick uint64, agentID, orderID string, payload OrderPayload) {
	publish(ctx, pub, EventPathUnreachable, logging.SeverityInfo, tick, agentID, orderID, payload)
}

// Dropped reports an order that never reached the simulation because the
// intake buffer was saturated.
func Dropped(ctx context.Context, pub logging.Publisher, tick uint64, agentID, orderID string, payload OrderPayload) {
	publish(ctx, pub, EventDropped, logging.SeverityWarn, tick, agentID, orderID, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, agentID, orderID string, payload OrderPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:      eventType,
		Tick:      tick,
		Actor:     logging.AgentRef(agentID),
		Severity:  severity,
		Category:  logging.CategoryOrders,
		Payload:   payload,
		CommandID: orderID,
	})
}
