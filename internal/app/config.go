package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/odina101/cossacks-web/internal/observability"
	"github.com/odina101/cossacks-web/internal/telemetry"
	"github.com/odina101/cossacks-web/logging"
)

const DefaultListenAddr = ":8080"

type Config struct {
	Logger telemetry.Logger
	// ScenarioPath selects a YAML scenario; empty loads the embedded one.
	ScenarioPath string
	ListenAddr   string
	ClientDir    string
	// TickPeriod overrides the scenario's tick period when positive.
	TickPeriod time.Duration
	// BroadcastEvery sends a state frame every n ticks.
	BroadcastEvery uint64
	Logging        logging.Config
	Observability  observability.Config
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:     DefaultListenAddr,
		BroadcastEvery: 1,
		Logging:        logging.DefaultConfig(),
	}
}

// ConfigFromEnv applies the process environment on top of DefaultConfig.
func ConfigFromEnv(logger telemetry.Logger) Config {
	return applyEnv(DefaultConfig(), os.Getenv, logger)
}

func applyEnv(cfg Config, getenv func(string) string, logger telemetry.Logger) Config {
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	if raw := getenv("SCENARIO_PATH"); raw != "" {
		cfg.ScenarioPath = raw
	}
	if raw := getenv("LISTEN_ADDR"); raw != "" {
		cfg.ListenAddr = raw
	}
	if raw := getenv("CLIENT_DIR"); raw != "" {
		cfg.ClientDir = raw
	}
	if raw := getenv("TICK_PERIOD_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.TickPeriod = time.Duration(value) * time.Millisecond
		} else {
			logger.Printf("invalid TICK_PERIOD_MS=%q", raw)
		}
	}
	if raw := getenv("BROADCAST_EVERY_TICKS"); raw != "" {
		if value, err := strconv.ParseUint(raw, 10, 64); err == nil {
			cfg.BroadcastEvery = value
		} else {
			logger.Printf("invalid BROADCAST_EVERY_TICKS=%q: %v", raw, err)
		}
	}
	if raw := getenv("ENABLE_PPROF"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Observability.EnablePprof = value
		} else {
			logger.Printf("invalid ENABLE_PPROF=%q: %v", raw, err)
		}
	}
	if raw := getenv("LOG_SINKS"); raw != "" {
		var enabled []string
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				enabled = append(enabled, name)
			}
		}
		cfg.Logging.EnabledSinks = enabled
	}
	if raw := getenv("LOG_JSON_PATH"); raw != "" {
		cfg.Logging.JSON.FilePath = raw
	}
	if raw := getenv("LOG_ZSTD_PATH"); raw != "" {
		cfg.Logging.Zstd.FilePath = raw
	}
	if raw := getenv("LOG_MIN_SEVERITY"); raw != "" {
		if severity, err := logging.ParseSeverity(raw); err == nil {
			cfg.Logging.MinimumSeverity = severity
		} else {
			logger.Printf("invalid LOG_MIN_SEVERITY=%q: %v", raw, err)
		}
	}
	if raw := getenv("LOG_SHOW_PAYLOAD"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Logging.Console.ShowPayload = value
		} else {
			logger.Printf("invalid LOG_SHOW_PAYLOAD=%q: %v", raw, err)
		}
	}
	return cfg
}
