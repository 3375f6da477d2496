//go:build rp2040

package platform

import (
	"context"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx"

	"tigr-go/capture"
	"tigr-go/measure"
	"tigr-go/node"
	"tigr-go/platform/boards"
)

// Board is the configured hardware of a detector PCB.
type Board struct {
	desc boards.Board
	spi  *machine.SPI
	HW   node.Hardware
	UART *uartx.UART
}

// Open configures the bus, pins and console for desc. The SPI bus starts at
// the card identification rate; call FullSpeed once the card is ready.
func Open(desc boards.Board) (*Board, error) {
	b := &Board{desc: desc, spi: machine.SPI0}
	if err := b.spi.Configure(machine.SPIConfig{
		Frequency: desc.SPI.HzInit,
		SCK:       machine.Pin(desc.SPI.SCK),
		SDO:       machine.Pin(desc.SPI.SDO),
		SDI:       machine.Pin(desc.SPI.SDI),
		Mode:      0,
	}); err != nil {
		return nil, err
	}

	cs := output(desc.CardCS, true)
	det := machine.Pin(desc.CardDetect)
	det.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	b.HW = node.Hardware{
		SPI:     b.spi,
		CS:      cs,
		Detect:  det.Get,
		Measure: measure.Func(func() int32 { return machine.ReadTemperature() / 1000 }),
		Indicator: capture.LEDPair{
			High: output(desc.LEDHigh, false),
			Low:  output(desc.LEDLow, false),
		},
	}
	machine.InitADC()
	for i, n := range desc.Lines {
		p := machine.Pin(n)
		p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
		b.HW.Lines[i] = &irqPin{p: p}
	}

	b.UART = uartx.UART0
	_ = b.UART.Configure(uartx.UARTConfig{
		BaudRate: desc.UART.Baud,
		TX:       machine.Pin(desc.UART.TX),
		RX:       machine.Pin(desc.UART.RX),
	})
	return b, nil
}

// FullSpeed raises the SPI clock to the data-transfer rate.
func (b *Board) FullSpeed() error { return b.spi.SetBaudRate(b.desc.SPI.HzRun) }

// Console adapts the UART to io.ReadWriter for the diagnostic console.
type Console struct {
	U   *uartx.UART
	Ctx context.Context
}

func (c Console) Read(p []byte) (int, error)  { return c.U.RecvSomeContext(c.Ctx, p) }
func (c Console) Write(p []byte) (int, error) { return c.U.Write(p) }

func output(n int, initial bool) func(bool) {
	p := machine.Pin(n)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Set(initial)
	return p.Set
}

type irqPin struct{ p machine.Pin }

func (r *irqPin) Get() bool { return r.p.Get() }

func (r *irqPin) SetIRQ(edge capture.Edge, handler func()) error {
	return r.p.SetInterrupt(toPinChange(edge), func(machine.Pin) { handler() })
}

func (r *irqPin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

func toPinChange(e capture.Edge) machine.PinChange {
	switch e {
	case capture.EdgeRising:
		return machine.PinRising
	case capture.EdgeFalling:
		return machine.PinFalling
	case capture.EdgeBoth:
		return machine.PinToggle
	default:
		var zero machine.PinChange
		return zero
	}
}
