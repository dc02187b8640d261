package simulation

import (
	"context"

	"github.com/odina101/cossacks-web/logging"
)

const (
	// EventTickBudgetOverrun is emitted when a tick takes longer than the configured period.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventEpochRollover is emitted when the tick counter wraps into a new epoch.
	EventEpochRollover logging.EventType = "simulation.epoch_rollover"
	// EventWorldStarted is emitted when the tick loop starts.
	EventWorldStarted logging.EventType = "simulation.world_started"
	// EventWorldStopped is emitted when the tick loop exits.
	EventWorldStopped logging.EventType = "simulation.world_stopped"
)

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
}

// TickBudgetOverrun publishes a warning when a tick exceeds its period.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

// EpochRolloverPayload reports the epoch that just began.
type EpochRolloverPayload struct {
	Epoch       uint64 `json:"epoch"`
	EpochLength uint64 `json:"epochLength"`
}

func EpochRollover(ctx context.Context, pub logging.Publisher, payload EpochRolloverPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEpochRollover,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityDebug,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

// LifecyclePayload describes the loop configuration at start or stop.
type LifecyclePayload struct {
	TickPeriodMillis int64  `json:"tickPeriodMillis"`
	Agents           int    `json:"agents"`
	Epoch            uint64 `json:"epoch"`
}

func WorldStarted(ctx context.Context, pub logging.Publisher, tick uint64, payload LifecyclePayload) {
	publishLifecycle(ctx, pub, EventWorldStarted, tick, payload)
}

func WorldStopped(ctx context.Context, pub logging.Publisher, tick uint64, payload LifecyclePayload) {
	publishLifecycle(ctx, pub, EventWorldStopped, tick, payload)
}

func publishLifecycle(ctx context.Context, pub logging.Publisher, eventType logging.EventType, tick uint64, payload LifecyclePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
		Payload:  payload,
	})
}
