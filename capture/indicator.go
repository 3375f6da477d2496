package capture

// Indicator shows the band of the last event to a human.
type Indicator interface {
	Show(band uint8)
	Off()
}

// LEDPair shows the band as a 2-bit code on two LEDs:
// band 4 = on,on; 3 = on,off; 2 = off,on; 1 = off,off.
type LEDPair struct {
	High PinOutput
	Low  PinOutput
}

func (p LEDPair) Show(band uint8) {
	if band < 1 {
		p.Off()
		return
	}
	code := band - 1
	p.set(code&2 != 0, code&1 != 0)
}

func (p LEDPair) Off() { p.set(false, false) }

func (p LEDPair) set(hi, lo bool) {
	if p.High != nil {
		p.High(hi)
	}
	if p.Low != nil {
		p.Low(lo)
	}
}

type noIndicator struct{}

func (noIndicator) Show(uint8) {}
func (noIndicator) Off()       {}
