// Package app assembles a runnable world from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	servernet "github.com/odina101/cossacks-web/internal/net"
	"github.com/odina101/cossacks-web/internal/net/ws"
	"github.com/odina101/cossacks-web/internal/observability"
	"github.com/odina101/cossacks-web/internal/scenario"
	"github.com/odina101/cossacks-web/internal/telemetry"
	"github.com/odina101/cossacks-web/internal/world"
	"github.com/odina101/cossacks-web/logging"
	loggingSinks "github.com/odina101/cossacks-web/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

// Runtime is a populated world with its logging and broadcast plumbing. The
// tick loop is not started.
type Runtime struct {
	Scenario scenario.Document
	World    *world.World
	Hub      *ws.Hub
	Router   *logging.Router
	Metrics  *logging.Metrics
	Logger   telemetry.Logger

	closers []io.Closer
}

// Build loads the scenario and wires the world, hub and logging router.
func Build(cfg Config) (*Runtime, error) {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	doc, err := loadScenario(cfg.ScenarioPath)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Scenario: doc, Metrics: &logging.Metrics{}, Logger: telemetryLogger}
	namedSinks, err := rt.buildSinks(cfg.Logging)
	if err != nil {
		rt.closeFiles()
		return nil, err
	}
	router, err := logging.NewRouter(logging.SystemClock{}, cfg.Logging, namedSinks, fallbackLogger)
	if err != nil {
		closeSinks(namedSinks)
		rt.closeFiles()
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	rt.Router = router

	grid, err := doc.BuildTerrain()
	if err != nil {
		rt.Close(context.Background())
		return nil, fmt.Errorf("scenario %s: %w", doc.Name, err)
	}
	catalog, err := doc.BuildCatalog()
	if err != nil {
		rt.Close(context.Background())
		return nil, fmt.Errorf("scenario %s: %w", doc.Name, err)
	}

	metrics := telemetry.WrapMetrics(rt.Metrics)
	rt.Hub = ws.NewHub(ws.HubConfig{
		Logger:         telemetryLogger,
		Metrics:        metrics,
		Publisher:      router,
		BroadcastEvery: cfg.BroadcastEvery,
	})

	worldCfg := doc.WorldConfig()
	if cfg.TickPeriod > 0 {
		worldCfg.TickPeriod = cfg.TickPeriod
	}
	w, err := world.New(worldCfg, world.Deps{
		Terrain:   grid,
		Catalog:   catalog,
		Publisher: router,
		Metrics:   metrics,
		Hooks:     world.Hooks{AfterTick: rt.Hub.Broadcast},
	})
	if err != nil {
		rt.Close(context.Background())
		return nil, fmt.Errorf("failed to construct world: %w", err)
	}
	if err := doc.Populate(w); err != nil {
		rt.Close(context.Background())
		return nil, fmt.Errorf("scenario %s: %w", doc.Name, err)
	}
	rt.World = w
	return rt, nil
}

func loadScenario(path string) (scenario.Document, error) {
	if path == "" {
		return scenario.Default()
	}
	return scenario.Load(path)
}

func (rt *Runtime) buildSinks(cfg logging.Config) ([]logging.NamedSink, error) {
	var named []logging.NamedSink
	for _, name := range cfg.EnabledSinks {
		switch name {
		case logging.SinkConsole:
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewConsole(os.Stdout, cfg.Console)})
		case logging.SinkJSON:
			var out io.Writer = os.Stdout
			if cfg.JSON.FilePath != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.JSON.FilePath), 0o755); err != nil {
					closeSinks(named)
					return nil, fmt.Errorf("json sink: %w", err)
				}
				f, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					closeSinks(named)
					return nil, fmt.Errorf("json sink: %w", err)
				}
				rt.closers = append(rt.closers, f)
				out = f
			}
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewJSON(out, cfg.JSON.FlushInterval)})
		case logging.SinkZstd:
			sink, err := loggingSinks.NewZstdFile(cfg.Zstd.FilePath)
			if err != nil {
				closeSinks(named)
				return nil, err
			}
			named = append(named, logging.NamedSink{Name: name, Sink: sink})
		case logging.SinkMemory:
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewMemory()})
		default:
			closeSinks(named)
			return nil, fmt.Errorf("unknown log sink %q", name)
		}
	}
	return named, nil
}

// closeSinks releases sinks that never made it into a router.
func closeSinks(named []logging.NamedSink) {
	for _, entry := range named {
		_ = entry.Sink.Close(context.Background())
	}
}

// Close stops the world, disconnects sessions and flushes the log sinks.
func (rt *Runtime) Close(ctx context.Context) {
	if rt.World != nil {
		rt.World.Stop()
	}
	if rt.Hub != nil {
		rt.Hub.Close()
	}
	if rt.Router != nil {
		if err := rt.Router.Close(ctx); err != nil {
			rt.Logger.Printf("failed to close logging router: %v", err)
		}
	}
	rt.closeFiles()
}

func (rt *Runtime) closeFiles() {
	for _, c := range rt.closers {
		_ = c.Close()
	}
	rt.closers = nil
}

// Handler returns the HTTP surface for the runtime.
func (rt *Runtime) Handler(clientDir string, obs observability.Config) http.Handler {
	return servernet.NewHTTPHandler(rt.World, rt.Hub, servernet.HTTPHandlerConfig{
		ClientDir:     clientDir,
		Logger:        rt.Logger,
		Metrics:       rt.Metrics,
		RouterStats:   rt.Router.Stats,
		Observability: obs,
	})
}

// Run serves the configured scenario until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	rt, err := Build(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		rt.Close(closeCtx)
	}()

	if err := rt.World.Start(ctx); err != nil {
		return fmt.Errorf("failed to start world: %w", err)
	}

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: rt.Handler(cfg.ClientDir, cfg.Observability)}
	rt.Logger.Printf("scenario %q with %d agents listening on %s", rt.Scenario.Name, len(rt.World.AgentIDs()), srv.Addr)

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
