package capture

import (
	"sync/atomic"

	"tigr-go/record"
)

// Latch models the edge-detect flag register of the band lines: bit b-1 is
// set when band b saw an edge and stays set until cleared by the handler.
type Latch struct {
	flags  atomic.Uint32
	notify chan struct{}
	sets   atomic.Uint32
}

func NewLatch() *Latch {
	return &Latch{notify: make(chan struct{}, 1)}
}

// Set latches band. Safe from interrupt context: one atomic OR and a
// non-blocking, coalesced wake-up. Out-of-range bands are ignored.
func (l *Latch) Set(band uint8) {
	if band < 1 || band > record.NumBands {
		return
	}
	l.flags.Or(1 << (band - 1))
	l.sets.Add(1)
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Flags returns the latched bits.
func (l *Latch) Flags() uint8 { return uint8(l.flags.Load()) }

// Clear resets the bits in mask.
func (l *Latch) Clear(mask uint8) { l.flags.And(^uint32(mask)) }

// Notify fires after Set; several Sets may share one wake-up.
func (l *Latch) Notify() <-chan struct{} { return l.notify }

// Sets counts Set calls, including those that hit an already latched bit.
func (l *Latch) Sets() uint32 { return l.sets.Load() }

// Highest returns the highest latched band, 0 if none.
func Highest(flags uint8) uint8 {
	for b := uint8(record.NumBands); b >= 1; b-- {
		if flags&(1<<(b-1)) != 0 {
			return b
		}
	}
	return 0
}
