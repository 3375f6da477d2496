//go:build rp2040

// Command tigr is the detector node firmware.
package main

import (
	"context"
	"time"

	"tigr-go/console"
	"tigr-go/node"
	"tigr-go/platform"
	"tigr-go/platform/boards"
	"tigr-go/x/fmtx"
)

const (
	bootDelay  = 1500 * time.Millisecond // let the USB/UART host attach
	idlePeriod = 20 * time.Millisecond
	ledHold    = 100 * time.Millisecond
)

func main() {
	time.Sleep(bootDelay)
	println("[tigr] boot", boards.Selected.Name)

	board, err := platform.Open(boards.Selected)
	if err != nil {
		println("[tigr] board open failed:", err.Error())
		return
	}
	fmtx.DefaultOutput = board.UART

	n := node.New(node.DefaultConfig(), board.HW)
	if err := n.Init(); err != nil {
		// Keep running: blocks are echoed to the console instead.
		println("[tigr] card:", err.Error())
	} else if err := board.FullSpeed(); err != nil {
		println("[tigr] spi full speed:", err.Error())
	}

	ctx := context.Background()
	go func() {
		if err := n.Run(ctx); err != nil {
			println("[tigr] node stopped:", err.Error())
		}
	}()

	con := console.New(n, board.UART)
	go con.Serve(ctx, platform.Console{U: board.UART, Ctx: ctx})

	idle(ctx, n, board)
}

// idle drains diagnostics to the UART and turns the band LEDs off once an
// event has been shown for ledHold.
func idle(ctx context.Context, n *node.Node, board *platform.Board) {
	tick := time.NewTicker(idlePeriod)
	defer tick.Stop()
	var seen uint32
	var lit time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.Diag().Readable():
		case now := <-tick.C:
			if ev := n.Handler().Events(); ev != seen {
				seen, lit = ev, now
			} else if !lit.IsZero() && now.Sub(lit) >= ledHold {
				board.HW.Indicator.Off()
				lit = time.Time{}
			}
		}
		n.Diag().Drain(board.UART)
	}
}
