// Package clock keeps wall-clock time in software from a periodic tick.
//
// The tick path and the reader paths never share a lock: the whole state
// (calendar plus sub-second accumulator) lives in one 64-bit word that is
// updated with compare-and-swap and read with a single atomic load, so
// Now never observes a half-carried calendar.
package clock

import (
	"context"
	"sync/atomic"
	"time"

	"tigr-go/x/timex"
)

// DefaultTickHz is the periodic timer rate (10 ms ticks).
const DefaultTickHz = 100

type Config struct {
	Start      Calendar      // zero value means DefaultStart
	TickPeriod time.Duration // 0 means 1/DefaultTickHz; must not exceed 1s
}

// Clock is a software real-time clock.
type Clock struct {
	period   time.Duration
	step     uint32 // microseconds per tick
	state    atomic.Uint64
	ticks    atomic.Uint64
	overruns atomic.Uint32
}

// New returns a Clock at cfg.Start. An invalid start falls back to
// DefaultStart.
func New(cfg Config) *Clock {
	if cfg.TickPeriod < time.Microsecond || cfg.TickPeriod > time.Second {
		cfg.TickPeriod = timex.PeriodFromHz(DefaultTickHz)
	}
	if cfg.Start == (Calendar{}) || !cfg.Start.Valid() {
		cfg.Start = DefaultStart
	}
	// Sub-second time accumulates in whole microseconds.
	cfg.TickPeriod = cfg.TickPeriod.Truncate(time.Microsecond)
	c := &Clock{period: cfg.TickPeriod, step: uint32(cfg.TickPeriod / time.Microsecond)}
	c.state.Store(pack(cfg.Start, 0))
	return c
}

// Period is the tick period.
func (c *Clock) Period() time.Duration { return c.period }

const usPerSecond = 1_000_000

// Tick advances the clock by one tick period, carrying into the calendar
// on each whole second. Safe to call concurrently with Now and Set.
func (c *Clock) Tick() {
	for {
		old := c.state.Load()
		cal, sub := unpack(old)
		sub += c.step
		if sub >= usPerSecond {
			sub -= usPerSecond
			cal = cal.next()
		}
		if c.state.CompareAndSwap(old, pack(cal, sub)) {
			c.ticks.Add(1)
			return
		}
	}
}

// Now returns a consistent snapshot of the current calendar.
func (c *Clock) Now() Calendar {
	cal, _ := unpack(c.state.Load())
	return cal
}

// Set replaces the current time and clears the sub-second accumulator.
func (c *Clock) Set(cal Calendar) error {
	if !cal.Valid() {
		return ErrInvalid
	}
	c.state.Store(pack(cal, 0))
	return nil
}

// Ticks is the number of ticks applied since New.
func (c *Clock) Ticks() uint64 { return c.ticks.Load() }

// Overruns counts timer periods that were missed by Run.
func (c *Clock) Overruns() uint32 { return c.overruns.Load() }

// Run drives Tick from a periodic timer until ctx is cancelled.
// Periods the scheduler skipped are caught up so wall time does not drift.
func (c *Clock) Run(ctx context.Context) error {
	t := time.NewTicker(c.period)
	defer t.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			n := now.Sub(last) / c.period
			if n < 1 {
				n = 1
			}
			if n > 1 {
				c.overruns.Add(uint32(n - 1))
			}
			for i := time.Duration(0); i < n; i++ {
				c.Tick()
			}
			last = last.Add(n * c.period)
		}
	}
}

// Word layout, least significant first:
// second:6 minute:6 hour:5 day:5 month:4 year:12 sub:26
const (
	shMin   = 6
	shHour  = 12
	shDay   = 17
	shMonth = 22
	shYear  = 26
	shSub   = 38
)

func pack(c Calendar, sub uint32) uint64 {
	return uint64(c.Second) |
		uint64(c.Minute)<<shMin |
		uint64(c.Hour)<<shHour |
		uint64(c.Day)<<shDay |
		uint64(c.Month)<<shMonth |
		uint64(c.Year&0xFFF)<<shYear |
		uint64(sub&0x3FFFFFF)<<shSub
}

func unpack(w uint64) (Calendar, uint32) {
	return Calendar{
		Second: uint8(w & 0x3F),
		Minute: uint8(w >> shMin & 0x3F),
		Hour:   uint8(w >> shHour & 0x1F),
		Day:    uint8(w >> shDay & 0x1F),
		Month:  uint8(w >> shMonth & 0x0F),
		Year:   uint16(w >> shYear & 0xFFF),
	}, uint32(w >> shSub)
}
