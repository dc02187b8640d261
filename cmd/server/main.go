package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/odina101/cossacks-web/internal/app"
	"github.com/odina101/cossacks-web/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := telemetry.WrapLogger(log.Default())
	cfg := app.ConfigFromEnv(logger)
	cfg.Logger = logger
	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
