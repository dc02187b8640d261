// Command rtsview runs a scenario locally and shows it in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/odina101/cossacks-web/internal/app"
	"github.com/odina101/cossacks-web/internal/telemetry"
	"github.com/odina101/cossacks-web/internal/view"
	"github.com/odina101/cossacks-web/logging"
)

func main() {
	var (
		scenarioPath string
		eventLog     string
	)
	flag.StringVar(&scenarioPath, "scenario", "", "scenario YAML (defaults to the embedded map)")
	flag.StringVar(&eventLog, "events", "", "write simulation events as JSON lines to this file")
	flag.Parse()

	if err := run(scenarioPath, eventLog); err != nil {
		fmt.Fprintf(os.Stderr, "rtsview: %v\n", err)
		os.Exit(1)
	}
}

func run(scenarioPath, eventLog string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The terminal belongs to the viewer, so events never go to stdout.
	cfg := app.DefaultConfig()
	cfg.ScenarioPath = scenarioPath
	cfg.Logger = telemetry.WrapLogger(log.New(os.Stderr, "[rtsview] ", log.LstdFlags))
	cfg.Logging.EnabledSinks = nil
	if eventLog != "" {
		cfg.Logging.EnabledSinks = []string{logging.SinkJSON}
		cfg.Logging.JSON.FilePath = eventLog
	}

	rt, err := app.Build(cfg)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	if err := rt.World.Start(ctx); err != nil {
		return err
	}

	viewer := view.NewViewer(screen, rt.World, view.Config{})
	if err := viewer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
