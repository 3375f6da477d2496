package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tigr-go/clock"
	"tigr-go/diag"
	"tigr-go/recorder"
)

const sample = `
node:
  capacity: 32
  tick_ms: 10
  start: "2024-02-29 23:59:58"
  echo: true
  measurement: 21
card:
  image: /tmp/tigr.img
  blocks: 4096
  busy_polls: 50
sim:
  rate_hz: 20
  duration_ms: 1500
  seed: 7
`

func TestLoadDecodesEverySection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tigr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	Normalize(cfg)

	require.Equal(t, 32, cfg.Node.Capacity)
	require.NotNil(t, cfg.Node.Measurement)
	require.Equal(t, int32(21), *cfg.Node.Measurement)
	require.Equal(t, "/tmp/tigr.img", cfg.Card.Image)
	require.Equal(t, 4096, cfg.Card.Blocks)
	require.Equal(t, int64(7), cfg.Sim.Seed)
	require.Equal(t, 50*time.Millisecond, cfg.SimPeriod())
	require.Equal(t, 1500*time.Millisecond, cfg.SimDuration())

	nc := cfg.NodeConfig()
	require.Equal(t, clock.Calendar{Year: 2024, Month: 2, Day: 29, Hour: 23, Minute: 59, Second: 58}, nc.Clock.Start)
	require.Equal(t, 10*time.Millisecond, nc.Clock.TickPeriod)
	require.Equal(t, recorder.Config{Capacity: 32, Echo: true}, nc.Recorder)
	require.Equal(t, 50, nc.Card.BusyPolls)
	require.Zero(t, nc.Card.TokenPolls)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Parse([]byte("node:\n  capacty: 3\n"))
	require.Error(t, err, "unknown keys are rejected")

	cfg, err := Parse([]byte("  \n"))
	require.NoError(t, err)
	require.Equal(t, &Config{}, cfg)
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, Validate(cfg))
	Normalize(cfg)

	require.Equal(t, recorder.DefaultCapacity, cfg.Node.Capacity)
	require.Equal(t, 10, cfg.Node.TickMs)
	require.Equal(t, "2025-10-14 12:00:00", cfg.Node.Start)
	require.Equal(t, diag.DefaultSize, cfg.Node.DiagSize)
	require.Equal(t, DefaultBlocks, cfg.Card.Blocks)
	require.Equal(t, float64(DefaultRateHz), cfg.Sim.RateHz)
	require.Equal(t, clock.DefaultStart, cfg.NodeConfig().Clock.Start)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"capacity":   func(c *Config) { c.Node.Capacity = -1 },
		"tick range": func(c *Config) { c.Node.TickMs = 2000 },
		"tick div":   func(c *Config) { c.Node.TickMs = 7 },
		"start":      func(c *Config) { c.Node.Start = "2025-02-30 00:00:00" },
		"start fmt":  func(c *Config) { c.Node.Start = "yesterday" },
		"diag":       func(c *Config) { c.Node.DiagSize = 1000 },
		"blocks":     func(c *Config) { c.Card.Blocks = -5 },
		"polls":      func(c *Config) { c.Card.TokenPolls = -1 },
		"rate":       func(c *Config) { c.Sim.RateHz = -1 },
		"duration":   func(c *Config) { c.Sim.DurationMs = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := &Config{}
			mutate(cfg)
			before := *cfg
			require.Error(t, Validate(cfg))
			require.Equal(t, before, *cfg, "Validate must not mutate")
		})
	}
	require.Error(t, Validate(nil))
}
