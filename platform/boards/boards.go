// Package boards holds the pin maps of the detector boards. Variants differ
// only in wiring (the band lines are routed in reverse order on rev B), so
// one firmware source serves all of them.
package boards

// Board describes the wiring of one PCB. Pins are plain GPIO numbers;
// mapping to machine.Pin happens in the platform package.
type Board struct {
	Name string

	SPI struct {
		SCK, SDO, SDI int
		HzInit, HzRun uint32
	}
	CardCS     int
	CardDetect int

	// Lines[i] is the input for band i+1.
	Lines [4]int

	LEDHigh, LEDLow int

	UART struct {
		TX, RX int
		Baud   uint32
	}
}

// TIGRA is the first board revision.
var TIGRA = func() Board {
	b := Board{Name: "tigr_a"}
	b.SPI.SCK, b.SPI.SDO, b.SPI.SDI = 18, 19, 16
	b.SPI.HzInit, b.SPI.HzRun = 400_000, 8_000_000
	b.CardCS, b.CardDetect = 17, 22
	b.Lines = [4]int{10, 11, 12, 13}
	b.LEDHigh, b.LEDLow = 14, 15
	b.UART.TX, b.UART.RX, b.UART.Baud = 0, 1, 115200
	return b
}()

// TIGRB routes the band lines in reverse order.
var TIGRB = func() Board {
	b := TIGRA
	b.Name = "tigr_b"
	b.Lines = [4]int{13, 12, 11, 10}
	return b
}()

// ByName looks a board up by its Name.
func ByName(name string) (Board, bool) {
	for _, b := range []Board{TIGRA, TIGRB} {
		if b.Name == name {
			return b, true
		}
	}
	return Board{}, false
}
