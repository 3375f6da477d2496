// Package sdemu emulates an MMC card in SPI mode, byte by byte, behind the
// same drivers.SPI interface the real bus provides. It lets the storage
// driver, the capture pipeline and the simulator run on a host against a
// RAM or file-backed image, with switchable faults.
package sdemu

import (
	"errors"
	"sync"
)

// BlockSize is the only block length the emulated card accepts.
const BlockSize = 512

var ErrImageSize = errors.New("sdemu: image size must be a non-zero multiple of 512")

// Faults switch failure behaviour on the emulated card.
type Faults struct {
	Absent       bool // detect line reports no card and the card never answers
	Silent       bool // no command responses at all
	NeverReady   bool // CMD1 never leaves idle
	NoToken      bool // reads never produce a data token
	RejectWrites bool // data response "CRC error"
	BusyForever  bool // card holds the line low after a write
}

// Stats counts card activity.
type Stats struct {
	Commands uint32
	Reads    uint32
	Writes   uint32
	Rejected uint32
}

type phase uint8

const (
	phaseCommand phase = iota
	phaseWriteToken
	phaseWriteData
)

const (
	r1Ready     = 0x00
	r1Idle      = 0x01
	r1Illegal   = 0x04
	r1AddrError = 0x20
	r1ParamErr  = 0x40

	dataAccepted = 0xE5
	dataCRCError = 0xEB
)

// Card is an emulated SPI-mode card. It implements drivers.SPI.
type Card struct {
	mu       sync.Mutex
	media    Media
	faults   Faults
	selected bool
	ready    bool
	opRounds int // CMD1 calls answered idle before ready
	opSeen   int
	busy     int // busy bytes after a write

	cmd  [6]byte
	cmdN int
	ph   phase
	addr int64
	data [BlockSize + 2]byte
	n    int
	out  []byte
	st   Stats
}

// Option tunes a Card.
type Option func(*Card)

// WithIdleRounds makes the card answer idle to the first n CMD1s.
func WithIdleRounds(n int) Option { return func(c *Card) { c.opRounds = n } }

// WithBusy sets how many busy bytes follow each accepted write.
func WithBusy(n int) Option { return func(c *Card) { c.busy = n } }

// New returns a card backed by media.
func New(media Media, opts ...Option) *Card {
	c := &Card{media: media, opRounds: 2, busy: 3}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetFaults replaces the active faults.
func (c *Card) SetFaults(f Faults) {
	c.mu.Lock()
	c.faults = f
	c.mu.Unlock()
}

// Stats returns the activity counters.
func (c *Card) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// Blocks is the media size in blocks.
func (c *Card) Blocks() uint32 { return uint32(c.media.Size() / BlockSize) }

// Select is the chip-select input, active low.
func (c *Card) Select(level bool) {
	c.mu.Lock()
	c.selected = !level
	if level {
		// Deselecting aborts any half-finished transaction.
		c.cmdN = 0
		c.ph = phaseCommand
		c.out = c.out[:0]
	}
	c.mu.Unlock()
}

// Detect is the card-detect output: low while a card is inserted.
func (c *Card) Detect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.faults.Absent
}

// Tx clocks w out and fills r, one byte at a time. A nil w sends 0xFF.
func (c *Card) Tx(w, r []byte) error {
	n := len(w)
	if len(r) > n {
		n = len(r)
	}
	for i := 0; i < n; i++ {
		out := byte(0xFF)
		if i < len(w) {
			out = w[i]
		}
		in, _ := c.Transfer(out)
		if i < len(r) {
			r[i] = in
		}
	}
	return nil
}

// Transfer exchanges one byte.
func (c *Card) Transfer(b byte) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.selected || c.faults.Absent {
		return 0xFF, nil
	}
	reply := byte(0xFF)
	if len(c.out) > 0 {
		reply = c.out[0]
		c.out = c.out[1:]
	} else if c.ph == phaseCommand && c.faults.BusyForever && c.st.Writes > 0 {
		reply = 0x00
	}
	c.clockIn(b)
	return reply, nil
}

func (c *Card) clockIn(b byte) {
	switch c.ph {
	case phaseCommand:
		if c.cmdN == 0 && b&0xC0 != 0x40 {
			return
		}
		c.cmd[c.cmdN] = b
		if c.cmdN++; c.cmdN == len(c.cmd) {
			c.cmdN = 0
			c.execute()
		}
	case phaseWriteToken:
		if b == 0xFE {
			c.ph, c.n = phaseWriteData, 0
		}
	case phaseWriteData:
		c.data[c.n] = b
		if c.n++; c.n == len(c.data) {
			c.ph = phaseCommand
			c.commit()
		}
	}
}

func (c *Card) respond(p ...byte) {
	c.out = append(c.out[:0], 0xFF) // one byte of command response time
	c.out = append(c.out, p...)
}

func (c *Card) execute() {
	c.st.Commands++
	if c.faults.Silent {
		return
	}
	idx := c.cmd[0] & 0x3F
	arg := uint32(c.cmd[1])<<24 | uint32(c.cmd[2])<<16 | uint32(c.cmd[3])<<8 | uint32(c.cmd[4])

	switch idx {
	case 0:
		if c.cmd[5] != 0x95 {
			c.respond(r1Idle | 0x08) // CRC error
			return
		}
		c.ready, c.opSeen = false, 0
		c.respond(r1Idle)
	case 1:
		c.opSeen++
		if c.faults.NeverReady || c.opSeen <= c.opRounds {
			c.respond(r1Idle)
			return
		}
		c.ready = true
		c.respond(r1Ready)
	case 9:
		if !c.ready {
			c.respond(r1Idle)
			return
		}
		csd := MakeCSD(c.Blocks())
		c.respond(r1Ready)
		c.out = append(c.out, 0xFF, 0xFE)
		c.out = append(c.out, csd[:]...)
		c.out = append(c.out, 0xFF, 0xFF)
	case 16:
		if arg != BlockSize {
			c.respond(r1ParamErr)
			return
		}
		c.respond(c.r1())
	case 17:
		if !c.ready {
			c.respond(r1Idle)
			return
		}
		off, ok := c.offset(arg)
		if !ok {
			c.respond(r1AddrError)
			return
		}
		c.respond(r1Ready)
		if c.faults.NoToken {
			return
		}
		c.st.Reads++
		block := c.data[:BlockSize]
		if _, err := c.media.ReadAt(block, off); err != nil {
			return
		}
		c.out = append(c.out, 0xFF, 0xFE)
		c.out = append(c.out, block...)
		c.out = append(c.out, 0xFF, 0xFF)
	case 24:
		if !c.ready {
			c.respond(r1Idle)
			return
		}
		off, ok := c.offset(arg)
		if !ok {
			c.respond(r1AddrError)
			return
		}
		c.addr = off
		c.respond(r1Ready)
		c.ph = phaseWriteToken
	default:
		c.respond(r1Illegal | c.r1())
	}
}

func (c *Card) r1() byte {
	if c.ready {
		return r1Ready
	}
	return r1Idle
}

func (c *Card) offset(arg uint32) (int64, bool) {
	off := int64(arg)
	return off, off%BlockSize == 0 && off+BlockSize <= c.media.Size()
}

func (c *Card) commit() {
	if c.faults.RejectWrites {
		c.st.Rejected++
		c.out = append(c.out[:0], dataCRCError)
		return
	}
	if _, err := c.media.WriteAt(c.data[:BlockSize], c.addr); err != nil {
		c.st.Rejected++
		c.out = append(c.out[:0], dataCRCError)
		return
	}
	c.st.Writes++
	c.out = append(c.out[:0], dataAccepted)
	if !c.faults.BusyForever {
		for i := 0; i < c.busy; i++ {
			c.out = append(c.out, 0x00)
		}
	}
}

// MakeCSD builds a version 1.0 CSD describing at most blocks 512-byte
// blocks, rounded down to what C_SIZE and C_SIZE_MULT can express.
func MakeCSD(blocks uint32) [16]byte {
	var csd [16]byte
	csd[5] = 0x09 // READ_BL_LEN = 512
	mult := uint32(0)
	for mult < 7 && blocks>>(mult+2) > 4096 {
		mult++
	}
	size := blocks >> (mult + 2)
	if size > 4096 {
		size = 4096
	}
	if size > 0 {
		size--
	}
	csd[6] = byte(size>>10) & 0x03
	csd[7] = byte(size >> 2)
	csd[8] = byte(size<<6) & 0xC0
	csd[9] = byte(mult>>1) & 0x03
	csd[10] = byte(mult<<7) & 0x80
	return csd
}
