package world

import (
	"strings"
	"time"
)

const (
	DefaultSeed          = "cossacks"
	DefaultTickPeriod    = 30 * time.Millisecond
	DefaultEpochLength   = 1024
	DefaultOrderCapacity = 256
)

// Config tunes the tick loop.
type Config struct {
	Seed          string        `json:"seed"`
	TickPeriod    time.Duration `json:"tickPeriod"`
	EpochLength   int           `json:"epochLength"`
	OrderCapacity int           `json:"orderCapacity"`
}

func (cfg Config) normalized() Config {
	normalized := cfg
	normalized.Seed = strings.TrimSpace(normalized.Seed)
	if normalized.Seed == "" {
		normalized.Seed = DefaultSeed
	}
	if normalized.TickPeriod <= 0 {
		normalized.TickPeriod = DefaultTickPeriod
	}
	if normalized.EpochLength <= 0 {
		normalized.EpochLength = DefaultEpochLength
	}
	if normalized.OrderCapacity <= 0 {
		normalized.OrderCapacity = DefaultOrderCapacity
	}
	return normalized
}

func (cfg Config) Normalized() Config {
	return cfg.normalized()
}

func DefaultConfig() Config {
	return Config{
		Seed:          DefaultSeed,
		TickPeriod:    DefaultTickPeriod,
		EpochLength:   DefaultEpochLength,
		OrderCapacity: DefaultOrderCapacity,
	}
}
