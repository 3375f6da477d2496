// internal/config/validate.go
package config

import (
	"fmt"

	"tigr-go/clock"
)

const (
	maxCapacity = 4096
	maxTickMs   = 1000
	maxRateHz   = 10000
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	n := cfg.Node
	if n.Capacity < 0 || n.Capacity > maxCapacity {
		return fmt.Errorf("node.capacity %d out of range 0..%d", n.Capacity, maxCapacity)
	}
	if n.TickMs < 0 || n.TickMs > maxTickMs {
		return fmt.Errorf("node.tick_ms %d out of range 0..%d", n.TickMs, maxTickMs)
	}
	if n.TickMs > 0 && 1000%n.TickMs != 0 {
		return fmt.Errorf("node.tick_ms %d must divide 1000", n.TickMs)
	}
	if n.Start != "" {
		if _, err := clock.ParseCalendar(n.Start); err != nil {
			return fmt.Errorf("node.start %q: %w", n.Start, err)
		}
	}
	if n.DiagSize < 0 || (n.DiagSize > 0 && n.DiagSize&(n.DiagSize-1) != 0) {
		return fmt.Errorf("node.diag_size %d must be a power of two", n.DiagSize)
	}

	c := cfg.Card
	if c.Blocks < 0 {
		return fmt.Errorf("card.blocks %d must not be negative", c.Blocks)
	}
	for name, v := range map[string]int{
		"init_attempts":   c.InitAttempts,
		"op_cond_retries": c.OpCondRetries,
		"response_polls":  c.ResponsePolls,
		"token_polls":     c.TokenPolls,
		"busy_polls":      c.BusyPolls,
	} {
		if v < 0 {
			return fmt.Errorf("card.%s %d must not be negative", name, v)
		}
	}

	s := cfg.Sim
	if s.RateHz < 0 || s.RateHz > maxRateHz {
		return fmt.Errorf("sim.rate_hz %g out of range 0..%d", s.RateHz, maxRateHz)
	}
	if s.DurationMs < 0 {
		return fmt.Errorf("sim.duration_ms %d must not be negative", s.DurationMs)
	}

	return nil
}
