// Package node wires the clock, the card, the recorder and the capture
// handler into one detector node.
package node

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"tinygo.org/x/drivers"

	"tigr-go/capture"
	"tigr-go/clock"
	"tigr-go/diag"
	"tigr-go/drivers/sdcard"
	"tigr-go/measure"
	"tigr-go/record"
	"tigr-go/recorder"
	"tigr-go/x/conv"
)

type Config struct {
	Clock    clock.Config
	Card     sdcard.Config
	Recorder recorder.Config

	// DetectPolls bounds the wait for the card-detect line at Init.
	DetectPolls int
	// DetectInterval is the pause between detect polls.
	DetectInterval time.Duration
	// DiagSize is the diagnostic ring size, rounded up to a power of two.
	DiagSize int
}

// DefaultConfig returns the firmware defaults.
func DefaultConfig() Config {
	return Config{
		DetectPolls:    10,
		DetectInterval: 100 * time.Millisecond,
		DiagSize:       diag.DefaultSize,
	}
}

// Hardware is the set of primitives a board supplies.
type Hardware struct {
	SPI       drivers.SPI
	CS        sdcard.PinOutput
	Detect    sdcard.PinInput
	Lines     [record.NumBands]capture.IRQPin // Lines[0] is band 1
	Measure   measure.Source
	Indicator capture.Indicator
}

type Node struct {
	cfg     Config
	hw      Hardware
	clock   *clock.Clock
	card    *sdcard.Device
	latch   *capture.Latch
	rec     *recorder.Recorder
	handler *capture.Handler
	diag    *diag.Stream
	msg     []byte
}

// New builds the node. Nothing touches the hardware until Init.
func New(cfg Config, hw Hardware) *Node {
	if cfg.DetectPolls <= 0 {
		cfg.DetectPolls = 1
	}
	n := &Node{cfg: cfg, hw: hw}
	n.diag = diag.NewStream(cfg.DiagSize)
	n.clock = clock.New(cfg.Clock)
	n.card = sdcard.New(hw.SPI, hw.CS, hw.Detect, cfg.Card)
	n.latch = capture.NewLatch()
	n.rec = recorder.New(cfg.Recorder, n.clock, n.card, n.diag)
	n.handler = capture.New(n.latch, n.rec, hw.Measure, hw.Indicator)
	n.handler.SetBlockReader(n.card)
	return n
}

func (n *Node) Clock() *clock.Clock       { return n.clock }
func (n *Node) Card() *sdcard.Device      { return n.card }
func (n *Node) Handler() *capture.Handler { return n.handler }
func (n *Node) Latch() *capture.Latch     { return n.latch }
func (n *Node) Diag() *diag.Stream        { return n.diag }

// Init waits (bounded) for the card-detect line and initializes the card.
// On failure the node still runs: flushed blocks go to the diagnostic
// stream instead of the card.
func (n *Node) Init() error {
	present := false
	for i := 0; i < n.cfg.DetectPolls; i++ {
		if present = n.card.Ping(); present {
			break
		}
		if i+1 < n.cfg.DetectPolls {
			time.Sleep(n.cfg.DetectInterval)
		}
	}
	if !present {
		n.note("card: not detected")
	}
	if err := n.card.Init(); err != nil {
		n.note("card: init failed: " + err.Error())
		return err
	}
	if blocks, err := n.card.BlockCount(); err == nil {
		m := append(n.msg[:0], "card: ready blocks="...)
		n.note(string(conv.AppendUint(m, uint64(blocks))))
	} else {
		n.note("card: ready")
	}
	return nil
}

// Run attaches the band lines and runs the clock and capture contexts until
// ctx is done.
func (n *Node) Run(ctx context.Context) error {
	for i, pin := range n.hw.Lines {
		if pin == nil {
			continue
		}
		detach, err := capture.Attach(n.latch, uint8(i+1), pin)
		if err != nil {
			return err
		}
		defer detach()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.clock.Run(ctx) })
	g.Go(func() error { return n.handler.Run(ctx) })
	return g.Wait()
}

// Status is a foreground snapshot of the node.
type Status struct {
	Time        clock.Calendar
	Card        sdcard.State
	Cursor      uint32
	Events      uint32
	Recorder    recorder.Stats
	DiagDropped uint32
	Last        recorder.Report
	HasLast     bool
}

func (n *Node) Status() Status {
	last, ok := n.handler.LastReport()
	return Status{
		Time:        n.clock.Now(),
		Card:        n.card.State(),
		Cursor:      n.card.Cursor(),
		Events:      n.handler.Events(),
		Recorder:    n.rec.Stats(),
		DiagDropped: n.diag.Dropped(),
		Last:        last,
		HasLast:     ok,
	}
}

func (n *Node) note(s string) {
	n.diag.Write(append([]byte(s), '\n'))
}
