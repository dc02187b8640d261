package agents

import (
	"context"

	"github.com/odina101/cossacks-web/logging"
)

const (
	EventInvalidDirection logging.EventType = "agent.invalid_direction"
	EventMovementFinished logging.EventType = "agent.movement_finished"
)

// InvalidDirectionPayload records a vector that could not be quantized.
type InvalidDirectionPayload struct {
	DX       float64 `json:"dx"`
	DY       float64 `json:"dy"`
	Computed float64 `json:"computed"`
	Retained int     `json:"retained"`
}

// InvalidDirection reports an invariant violation in direction quantization.
// The agent keeps its previous facing.
func InvalidDirection(ctx context.Context, pub logging.Publisher, tick uint64, agentID string, payload InvalidDirectionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventInvalidDirection,
		Tick:     tick,
		Actor:    logging.AgentRef(agentID),
		Severity: logging.SeverityError,
		Category: logging.CategoryAgents,
		Payload:  payload,
	})
}

type MovementFinishedPayload struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Direction int     `json:"direction"`
}

func MovementFinished(ctx context.Context, pub logging.Publisher, tick uint64, agentID string, payload MovementFinishedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMovementFinished,
		Tick:     tick,
		Actor:    logging.AgentRef(agentID),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryAgents,
		Payload:  payload,
	})
}
