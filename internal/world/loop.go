package world

import (
	"context"
	"time"

	loggingsimulation "github.com/odina101/cossacks-web/logging/simulation"
)

// Start runs the tick loop on its own goroutine until ctx is cancelled or Stop
// is called. The period is fixed; a slow tick is reported but never made up.
func (w *World) Start(ctx context.Context) error {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if w.runningLocked() {
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	go w.run(runCtx, done)
	return nil
}

// Stop halts the loop and waits for the current tick to complete. Agent state
// is left as is. Stopping a stopped world does nothing.
func (w *World) Stop() {
	w.runMu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the tick loop goroutine is alive.
func (w *World) Running() bool {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	return w.runningLocked()
}

func (w *World) runningLocked() bool {
	if w.done == nil {
		return false
	}
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

func (w *World) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	period := w.cfg.TickPeriod
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	loggingsimulation.WorldStarted(ctx, w.deps.Publisher, w.TickCount(), w.lifecyclePayload())
	var streak uint64
	for {
		select {
		case <-ctx.Done():
			loggingsimulation.WorldStopped(context.Background(), w.deps.Publisher, w.TickCount(), w.lifecyclePayload())
			return
		case <-ticker.C:
			start := w.deps.Clock.Now()
			w.Tick()
			elapsed := w.deps.Clock.Now().Sub(start)
			if elapsed <= period {
				streak = 0
				continue
			}
			streak++
			w.deps.Metrics.Add(metricTickOverrunsTotal, 1)
			loggingsimulation.TickBudgetOverrun(ctx, w.deps.Publisher, w.TickCount(), loggingsimulation.TickBudgetOverrunPayload{
				DurationMillis: elapsed.Milliseconds(),
				BudgetMillis:   period.Milliseconds(),
				Ratio:          float64(elapsed) / float64(period),
				Streak:         streak,
			})
		}
	}
}

func (w *World) lifecyclePayload() loggingsimulation.LifecyclePayload {
	w.mu.Lock()
	defer w.mu.Unlock()
	return loggingsimulation.LifecyclePayload{
		TickPeriodMillis: w.cfg.TickPeriod.Milliseconds(),
		Agents:           len(w.agents),
		Epoch:            w.epoch,
	}
}
