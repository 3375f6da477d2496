// internal/config/config.go
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Node NodeSection `yaml:"node"`
	Card CardSection `yaml:"card"`
	Sim  SimSection  `yaml:"sim"`
}

// ---- NODE ----

type NodeSection struct {
	Capacity int    `yaml:"capacity"`
	TickMs   int    `yaml:"tick_ms"`
	Start    string `yaml:"start"` // "YYYY-MM-DD HH:MM:SS"
	Echo     bool   `yaml:"echo"`
	DiagSize int    `yaml:"diag_size"`

	// Fixed measurement value (optional). When unset the simulator
	// reports a synthetic calibrated temperature.
	Measurement *int32 `yaml:"measurement"`
}

// ---- CARD ----

type CardSection struct {
	Image  string `yaml:"image"` // empty = in-memory card
	Blocks int    `yaml:"blocks"`
	Absent bool   `yaml:"absent"`

	InitAttempts  int `yaml:"init_attempts"`
	OpCondRetries int `yaml:"op_cond_retries"`
	ResponsePolls int `yaml:"response_polls"`
	TokenPolls    int `yaml:"token_polls"`
	BusyPolls     int `yaml:"busy_polls"`
}

// ---- SIM ----

type SimSection struct {
	RateHz     float64 `yaml:"rate_hz"`
	DurationMs int     `yaml:"duration_ms"` // 0 = until interrupted
	Seed       int64   `yaml:"seed"`
}

// Load reads and decodes a YAML file. Unknown keys are rejected. It does
// not validate or apply defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes YAML bytes. An empty document yields the zero Config.
func Parse(raw []byte) (*Config, error) {
	cfg := &Config{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}
