//go:build !rp2040

package platform

import (
	"sync"

	"tigr-go/capture"
	"tigr-go/measure"
	"tigr-go/node"
	"tigr-go/record"
	"tigr-go/sdemu"
)

// FakePin implements capture.IRQPin for host builds. Set drives the level
// and runs the handler synchronously when the configured edge occurs.
type FakePin struct {
	mu      sync.RWMutex
	level   bool
	irqEdge capture.Edge
	irqFunc func()
}

// NewFakePin returns a pin idling at level.
func NewFakePin(level bool) *FakePin { return &FakePin{level: level} }

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	irq := p.irqFunc
	want := irqWanted(p.irqEdge, edgeFrom(old, level))
	p.mu.Unlock()
	if want && irq != nil {
		irq()
	}
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

// Pulse drives a high-low-high pulse, one falling and one rising edge.
func (p *FakePin) Pulse() {
	p.Set(true)
	p.Set(false)
	p.Set(true)
}

func (p *FakePin) SetIRQ(edge capture.Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

// Armed reports whether an interrupt handler is installed.
func (p *FakePin) Armed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.irqFunc != nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = capture.EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

func edgeFrom(old, new bool) capture.Edge {
	switch {
	case !old && new:
		return capture.EdgeRising
	case old && !new:
		return capture.EdgeFalling
	default:
		return capture.EdgeNone
	}
}

func irqWanted(cfg, seen capture.Edge) bool {
	if cfg == capture.EdgeBoth {
		return seen == capture.EdgeRising || seen == capture.EdgeFalling
	}
	return cfg != capture.EdgeNone && cfg == seen
}

// LED records the last level driven onto an output.
type LED struct {
	mu sync.Mutex
	on bool
}

func (l *LED) Set(level bool) { l.mu.Lock(); l.on = level; l.mu.Unlock() }
func (l *LED) On() bool       { l.mu.Lock(); defer l.mu.Unlock(); return l.on }

// Sim is a host stand-in for a detector board: an emulated card and four
// idle-high band lines.
type Sim struct {
	Card  *sdemu.Card
	Lines [record.NumBands]*FakePin
	LEDs  [2]LED
}

// NewSim builds a board around card.
func NewSim(card *sdemu.Card) *Sim {
	s := &Sim{Card: card}
	for i := range s.Lines {
		s.Lines[i] = NewFakePin(true)
	}
	return s
}

// Hardware returns the node's view of the simulated board.
func (s *Sim) Hardware(m measure.Source) node.Hardware {
	hw := node.Hardware{
		SPI:     s.Card,
		CS:      s.Card.Select,
		Detect:  s.Card.Detect,
		Measure: m,
		Indicator: capture.LEDPair{
			High: s.LEDs[0].Set,
			Low:  s.LEDs[1].Set,
		},
	}
	for i, p := range s.Lines {
		hw.Lines[i] = p
	}
	return hw
}

// Hit fires one detector pulse on band (1..4).
func (s *Sim) Hit(band uint8) {
	if band >= 1 && int(band) <= len(s.Lines) {
		s.Lines[band-1].Pulse()
	}
}
