// Package world owns the agents and drives them with a fixed-period clock.
package world

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/odina101/cossacks-web/internal/anim"
	"github.com/odina101/cossacks-web/internal/nav"
	"github.com/odina101/cossacks-web/internal/sim"
	"github.com/odina101/cossacks-web/internal/telemetry"
	"github.com/odina101/cossacks-web/internal/terrain"
	"github.com/odina101/cossacks-web/internal/unit"
	"github.com/odina101/cossacks-web/logging"
	loggingsimulation "github.com/odina101/cossacks-web/logging/simulation"
)

const (
	metricTicksTotal          = "world_ticks_total"
	metricEpoch               = "world_epoch"
	metricAgents              = "world_agents"
	metricOrdersAppliedTotal  = "world_orders_applied_total"
	metricOrdersRejectedTotal = "world_orders_rejected_total"
	metricTickOverrunsTotal   = "world_tick_overruns_total"
)

var (
	ErrUnknownAgent   = errors.New("world: unknown agent")
	ErrDuplicateAgent = errors.New("world: duplicate agent id")
	ErrMissingTerrain = errors.New("world: terrain is required")
	ErrAlreadyRunning = errors.New("world: tick loop already running")
)

// Hooks observe the loop without participating in it.
type Hooks struct {
	// AfterTick receives a snapshot of every completed tick. It runs on the
	// tick goroutine after the world lock is released.
	AfterTick func(Snapshot)
}

// Deps carries the collaborators injected into a World.
type Deps struct {
	Terrain    terrain.Terrain
	Catalog    *anim.Catalog
	Pathfinder *nav.Pathfinder
	Publisher  logging.Publisher
	Metrics    telemetry.Metrics
	Clock      logging.Clock
	Hooks      Hooks
}

// World advances every agent once per tick in insertion order. All mutation
// happens under mu, so synchronous orders never interleave with a tick.
type World struct {
	cfg  Config
	deps Deps

	mu     sync.Mutex
	agents []*unit.Agent
	index  map[string]*unit.Agent
	tick   uint64
	epoch  uint64
	total  uint64

	orders *sim.OrderBuffer

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config, deps Deps) (*World, error) {
	if deps.Terrain == nil {
		return nil, ErrMissingTerrain
	}
	cfg = cfg.normalized()
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = logging.SystemClock{}
	}
	if deps.Pathfinder == nil {
		deps.Pathfinder = nav.NewPathfinder(deps.Terrain)
	}
	return &World{
		cfg:    cfg,
		deps:   deps,
		index:  make(map[string]*unit.Agent),
		orders: sim.NewOrderBuffer(cfg.OrderCapacity, deps.Metrics),
	}, nil
}

func (w *World) Config() Config { return w.cfg }

func (w *World) Terrain() terrain.Terrain { return w.deps.Terrain }

// AddAgent spawns an agent. Agents are advanced in the order they were added.
func (w *World) AddAgent(cfg unit.Config) (*unit.Agent, error) {
	cfg.ID = strings.TrimSpace(cfg.ID)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.index[cfg.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateAgent, cfg.ID)
	}
	agent, err := unit.New(cfg, unit.Deps{
		Terrain:    w.deps.Terrain,
		Catalog:    w.deps.Catalog,
		Pathfinder: w.deps.Pathfinder,
		Publisher:  w.deps.Publisher,
		Tick:       w.currentTickLocked,
		RNG:        NewDeterministicRNG(w.cfg.Seed, "agent:"+cfg.ID),
	})
	if err != nil {
		return nil, err
	}
	w.agents = append(w.agents, agent)
	w.index[agent.ID()] = agent
	w.deps.Metrics.Store(metricAgents, uint64(len(w.agents)))
	return agent, nil
}

// currentTickLocked is handed to agents, which only call it while the world
// lock is held.
func (w *World) currentTickLocked() uint64 {
	return w.tick
}

// Tick applies staged orders, advances every agent and bumps the counters.
func (w *World) Tick() {
	w.mu.Lock()
	w.stepLocked()
	var snapshot Snapshot
	hook := w.deps.Hooks.AfterTick
	if hook != nil {
		snapshot = w.snapshotLocked()
	}
	w.mu.Unlock()

	if hook != nil {
		hook(snapshot)
	}
}

func (w *World) stepLocked() {
	for _, order := range w.orders.Drain() {
		_ = w.applyOrderLocked(context.Background(), order)
	}
	for _, agent := range w.agents {
		agent.Tick()
	}

	w.tick++
	w.total++
	w.deps.Metrics.Add(metricTicksTotal, 1)
	if w.tick >= uint64(w.cfg.EpochLength) {
		w.tick = 0
		w.epoch++
		w.deps.Metrics.Store(metricEpoch, w.epoch)
		loggingsimulation.EpochRollover(context.Background(), w.deps.Publisher, loggingsimulation.EpochRolloverPayload{
			Epoch:       w.epoch,
			EpochLength: uint64(w.cfg.EpochLength),
		})
	}
}

// TickCount reports the tick within the current epoch.
func (w *World) TickCount() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

func (w *World) EpochCount() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.epoch
}

// TotalTicks counts every tick since the world was created.
func (w *World) TotalTicks() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.total
}

// Snapshot is the state handed to renderers and network subscribers.
type Snapshot struct {
	Tick          uint64          `json:"tick"`
	Epoch         uint64          `json:"epoch"`
	TotalTicks    uint64          `json:"totalTicks"`
	PendingOrders int             `json:"pendingOrders,omitempty"`
	Agents        []unit.Snapshot `json:"agents"`
}

func (w *World) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *World) snapshotLocked() Snapshot {
	agents := make([]unit.Snapshot, 0, len(w.agents))
	for _, agent := range w.agents {
		agents = append(agents, agent.Snapshot())
	}
	return Snapshot{
		Tick:          w.tick,
		Epoch:         w.epoch,
		TotalTicks:    w.total,
		PendingOrders: w.orders.Len(),
		Agents:        agents,
	}
}

// Agent returns the snapshot of a single agent.
func (w *World) Agent(id string) (unit.Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	agent, ok := w.index[id]
	if !ok {
		return unit.Snapshot{}, false
	}
	return agent.Snapshot(), true
}

// AgentIDs lists agents in tick order.
func (w *World) AgentIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.agents))
	for _, agent := range w.agents {
		ids = append(ids, agent.ID())
	}
	return ids
}
