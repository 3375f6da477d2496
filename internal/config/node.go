// internal/config/node.go
package config

import (
	"time"

	"tigr-go/clock"
	"tigr-go/drivers/sdcard"
	"tigr-go/node"
	"tigr-go/recorder"
)

// NodeConfig maps a validated, normalized Config onto node.Config.
func (c *Config) NodeConfig() node.Config {
	nc := node.DefaultConfig()
	start, err := clock.ParseCalendar(c.Node.Start)
	if err != nil {
		start = clock.DefaultStart
	}
	nc.Clock = clock.Config{
		Start:      start,
		TickPeriod: time.Duration(c.Node.TickMs) * time.Millisecond,
	}
	nc.Recorder = recorder.Config{Capacity: c.Node.Capacity, Echo: c.Node.Echo}
	nc.Card = sdcard.Config{
		InitAttempts:  c.Card.InitAttempts,
		OpCondRetries: c.Card.OpCondRetries,
		ResponsePolls: c.Card.ResponsePolls,
		TokenPolls:    c.Card.TokenPolls,
		BusyPolls:     c.Card.BusyPolls,
	}
	if c.Node.DiagSize > 0 {
		nc.DiagSize = c.Node.DiagSize
	}
	return nc
}

// SimPeriod is the mean interval between synthetic hits.
func (c *Config) SimPeriod() time.Duration {
	if c.Sim.RateHz <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / c.Sim.RateHz)
}

// SimDuration is the run length, 0 meaning unbounded.
func (c *Config) SimDuration() time.Duration {
	return time.Duration(c.Sim.DurationMs) * time.Millisecond
}
