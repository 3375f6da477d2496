// internal/config/normalize.go
package config

import (
	"tigr-go/clock"
	"tigr-go/diag"
	"tigr-go/recorder"
)

const (
	DefaultBlocks = 2048 // 1 MiB image
	DefaultRateHz = 5
)

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Node.Capacity == 0 {
		cfg.Node.Capacity = recorder.DefaultCapacity
	}
	if cfg.Node.TickMs == 0 {
		cfg.Node.TickMs = 1000 / clock.DefaultTickHz
	}
	if cfg.Node.Start == "" {
		cfg.Node.Start = clock.DefaultStart.String()
	}
	if cfg.Node.DiagSize == 0 {
		cfg.Node.DiagSize = diag.DefaultSize
	}
	if cfg.Card.Blocks == 0 {
		cfg.Card.Blocks = DefaultBlocks
	}
	if cfg.Sim.RateHz == 0 {
		cfg.Sim.RateHz = DefaultRateHz
	}
	// Poll bounds left at zero take the driver defaults.
}
