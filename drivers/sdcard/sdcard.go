// Package sdcard drives an MMC/SD card in SPI mode as a raw 512-byte block
// device.
//
//	d := sdcard.New(spi, csPin, detectPin, sdcard.Config{})
//	if err := d.Init(); err != nil { ... }   // CMD0, CMD1 loop, CMD16
//	addr, err := d.Append(block[:])          // write at the cursor, cursor++
//
// Every wait on the card is bounded by a poll count from Config, so no call
// can hang on a dead or missing card. Errors carry an errcode.Code from the
// storage taxonomy (card_absent, init_timeout, response_error, ...).
//
// A Device is not safe for concurrent use: one goroutine owns block
// transfers. State and Cursor may be read from any goroutine.
package sdcard

import (
	"sync/atomic"

	"tinygo.org/x/drivers"

	"tigr-go/errcode"
)

// BlockSize is the fixed transfer unit set with CMD16.
const BlockSize = 512

// PinOutput drives a digital output to the given level.
type PinOutput func(level bool)

// PinInput returns the logical level of an input pin.
type PinInput func() bool

// Config controls the retry and poll bounds. All fields are optional.
type Config struct {
	// InitAttempts is the number of full init sequences tried. Default 3.
	InitAttempts int
	// OpCondRetries bounds the CMD1 loop per attempt. Default 1000.
	OpCondRetries int
	// ResponsePolls bounds the wait for an R1 response. Default 64.
	ResponsePolls int
	// TokenPolls bounds the wait for the 0xFE data token. Default 1000.
	TokenPolls int
	// BusyPolls bounds the post-write busy wait. Default 1000.
	BusyPolls int
	// DetectActiveHigh inverts the card-detect sense (default active-low).
	DetectActiveHigh bool
}

const (
	defaultInitAttempts  = 3
	defaultOpCondRetries = 1000
	defaultResponsePolls = 64
	defaultTokenPolls    = 1000
	defaultBusyPolls     = 1000
)

func (c *Config) applyDefaults() {
	if c.InitAttempts <= 0 {
		c.InitAttempts = defaultInitAttempts
	}
	if c.OpCondRetries <= 0 {
		c.OpCondRetries = defaultOpCondRetries
	}
	if c.ResponsePolls <= 0 {
		c.ResponsePolls = defaultResponsePolls
	}
	if c.TokenPolls <= 0 {
		c.TokenPolls = defaultTokenPolls
	}
	if c.BusyPolls <= 0 {
		c.BusyPolls = defaultBusyPolls
	}
}

// State is the card session state.
type State uint32

const (
	StateAbsent State = iota
	StateDetecting
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateDetecting:
		return "detecting"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Device is an SPI-attached MMC/SD card.
type Device struct {
	bus    drivers.SPI
	cs     PinOutput
	detect PinInput
	cfg    Config

	state  atomic.Uint32
	cursor atomic.Uint32

	cmd  [6]byte
	fill [10]byte
}

// New creates a Device. The SPI bus must already be configured (mode 0,
// at most 400 kHz until Init succeeds). New does not touch the card.
// A nil detect pin reports the card as always present.
func New(bus drivers.SPI, cs PinOutput, detect PinInput, cfg Config) *Device {
	cfg.applyDefaults()
	d := &Device{bus: bus, cs: cs, detect: detect, cfg: cfg}
	for i := range d.fill {
		d.fill[i] = 0xFF
	}
	if d.cs == nil {
		d.cs = func(bool) {}
	}
	d.state.Store(uint32(StateAbsent))
	return d
}

// Config returns the effective configuration.
func (d *Device) Config() Config { return d.cfg }

// State returns the current session state.
func (d *Device) State() State { return State(d.state.Load()) }

// Ready reports whether block transfers are allowed.
func (d *Device) Ready() bool { return d.State() == StateReady }

// Cursor is the block index the next Append writes to.
func (d *Device) Cursor() uint32 { return d.cursor.Load() }

// Ping reports card presence from the detect line only. It never talks to
// the card and never changes state.
func (d *Device) Ping() bool {
	if d.detect == nil {
		return true
	}
	level := d.detect()
	if d.cfg.DetectActiveHigh {
		return level
	}
	return !level
}

// Init brings the card into SPI block mode. It tries the full sequence up
// to InitAttempts times and always terminates. On success the state is
// StateReady; an absent card gives StateAbsent and errcode.CardAbsent;
// otherwise the state is StateFailed and the last attempt's error returned.
func (d *Device) Init() error {
	d.setState(StateDetecting)
	if !d.Ping() {
		d.setState(StateAbsent)
		return errcode.New(errcode.CardAbsent, "sdcard.init", "")
	}
	d.setState(StateInitializing)

	var err error
	for i := 0; i < d.cfg.InitAttempts; i++ {
		if err = d.initOnce(); err == nil {
			d.setState(StateReady)
			return nil
		}
	}
	d.setState(StateFailed)
	return err
}

func (d *Device) initOnce() error {
	// 80 clocks with CS high put the card in native wake-up state.
	d.cs(true)
	if err := d.write(d.fill[:]); err != nil {
		return err
	}

	// CMD0: software reset, card must answer "idle".
	d.cs(false)
	r, err := d.command(cmdGoIdle, 0)
	d.release()
	if err != nil {
		return err
	}
	if r != r1Idle {
		return respErr("sdcard.init", cmdGoIdle, r)
	}

	// CMD1 until the card leaves idle.
	ready := false
	for i := 0; i < d.cfg.OpCondRetries; i++ {
		d.cs(true)
		if err := d.write(d.fill[:1]); err != nil {
			return err
		}
		d.cs(false)
		r, err = d.command(cmdSendOpCond, 0)
		if err != nil {
			d.release()
			return err
		}
		if r == r1Ready {
			ready = true
			break
		}
	}
	d.release()
	if !ready {
		return errcode.New(errcode.InitTimeout, "sdcard.init", "card stayed idle")
	}

	// CMD16: fix the block length.
	d.cs(false)
	r, err = d.command(cmdSetBlockLen, BlockSize)
	d.release()
	if err != nil {
		return err
	}
	if r != r1Ready {
		return respErr("sdcard.init", cmdSetBlockLen, r)
	}
	return nil
}

func (d *Device) setState(s State) { d.state.Store(uint32(s)) }
