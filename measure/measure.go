// Package measure provides the auxiliary measurement taken with each
// detector event, normally the on-chip temperature in whole degrees C.
package measure

import "tigr-go/x/mathx"

// Invalid is reported when no meaningful measurement could be taken.
const Invalid int32 = -273

// Source yields one measurement. Sample is called from the capture context
// and must not block.
type Source interface {
	Sample() int32
}

// Func adapts a plain function to Source.
type Func func() int32

func (f Func) Sample() int32 { return f() }

// Fixed always reports the same value.
type Fixed int32

func (f Fixed) Sample() int32 { return int32(f) }

// erased is the value of an unprogrammed calibration word.
const erased = 0xFFFF

// Calibrated converts raw ADC readings of the internal temperature sensor
// using two factory calibration points taken at 30 and 85 degrees C.
type Calibrated struct {
	Read  func() (uint16, error)
	Cal30 uint16
	Cal85 uint16
	// Min and Max clamp the result; both zero selects -40..125.
	Min, Max int32
}

// Sample returns the temperature, or Invalid when the calibration data is
// erased or degenerate or the ADC read fails.
func (c *Calibrated) Sample() int32 {
	if c.Read == nil || c.Cal30 == erased || c.Cal85 == erased || c.Cal85 <= c.Cal30 {
		return Invalid
	}
	raw, err := c.Read()
	if err != nil {
		return Invalid
	}
	t := (int32(raw)-int32(c.Cal30))*55/(int32(c.Cal85)-int32(c.Cal30)) + 30
	lo, hi := c.Min, c.Max
	if lo == 0 && hi == 0 {
		lo, hi = -40, 125
	}
	return mathx.Clamp(t, lo, hi)
}
