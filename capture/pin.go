package capture

// Edge selects which transition raises a line interrupt.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// IRQPin is an input pin that can call a handler from interrupt context.
type IRQPin interface {
	Get() bool
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// PinOutput drives a digital output to the given level.
type PinOutput func(level bool)

// Attach routes falling edges on pin to band's latch bit. The returned func
// detaches the interrupt.
func Attach(l *Latch, band uint8, pin IRQPin) (func(), error) {
	return AttachEdge(l, band, pin, EdgeFalling)
}

// AttachEdge is Attach with an explicit edge. The handler only sets a bit:
// it never blocks and never allocates.
func AttachEdge(l *Latch, band uint8, pin IRQPin, edge Edge) (func(), error) {
	if edge == EdgeNone {
		return func() {}, nil
	}
	if err := pin.SetIRQ(edge, func() { l.Set(band) }); err != nil {
		return nil, err
	}
	return func() { _ = pin.ClearIRQ() }, nil
}
