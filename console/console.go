// Package console is the line-oriented diagnostic console served on the
// node's UART (or stdin in the simulator).
package console

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/shlex"

	"tigr-go/capture"
	"tigr-go/clock"
	"tigr-go/node"
	"tigr-go/x/conv"
	"tigr-go/x/fmtx"
	"tigr-go/x/strconvx"
)

// Device is what the console inspects and controls. *node.Node implements it.
type Device interface {
	Status() node.Status
	Clock() *clock.Clock
	Handler() *capture.Handler
}

var (
	ErrUnknown = errors.New("unknown command")
	ErrUsage   = errors.New("usage")
)

// ReadTimeout bounds a "read" command's wait on the capture context.
const ReadTimeout = 2 * time.Second

type command struct {
	usage string
	run   func(c *Console, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":    {"help", (*Console).help},
		"status":  {"status", (*Console).status},
		"time":    {"time", (*Console).time},
		"settime": {"settime YYYY-MM-DD HH:MM:SS", (*Console).settime},
		"flush":   {"flush", (*Console).flush},
		"read":    {"read <block> [hex]", (*Console).read},
		"rtc":     {"rtc", (*Console).rtc},
	}
}

var order = []string{"help", "status", "time", "settime", "flush", "read", "rtc"}

type Console struct {
	dev    Device
	out    io.Writer
	Prompt string
}

func New(dev Device, out io.Writer) *Console {
	return &Console{dev: dev, out: out, Prompt: "> "}
}

// Exec runs one command line. Errors are also reported on the output.
func (c *Console) Exec(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		fmtx.Fprintf(c.out, "error: %s\n", err)
		return err
	}
	if len(args) == 0 {
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmtx.Fprintf(c.out, "error: unknown command %s (try help)\n", args[0])
		return ErrUnknown
	}
	if err := cmd.run(c, ctx, args[1:]); err != nil {
		if errors.Is(err, ErrUsage) {
			fmtx.Fprintf(c.out, "usage: %s\n", cmd.usage)
		} else {
			fmtx.Fprintf(c.out, "error: %s\n", err)
		}
		return err
	}
	return nil
}

// Serve reads lines from in and executes them until EOF or ctx is done.
// Command errors do not stop the loop.
func (c *Console) Serve(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	io.WriteString(c.out, c.Prompt)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.Exec(ctx, string(bytes.TrimRight(sc.Bytes(), "\r")))
		io.WriteString(c.out, c.Prompt)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func (c *Console) help(_ context.Context, _ []string) error {
	for _, name := range order {
		fmtx.Fprintf(c.out, "  %s\n", commands[name].usage)
	}
	return nil
}

func (c *Console) status(_ context.Context, _ []string) error {
	st := c.dev.Status()
	h := c.dev.Handler()
	fmtx.Fprintf(c.out, "time     %s\n", st.Time)
	fmtx.Fprintf(c.out, "card     %s cursor=%d\n", st.Card, st.Cursor)
	fmtx.Fprintf(c.out, "events   %d [%d %d %d %d]\n", st.Events,
		h.BandEvents(1), h.BandEvents(2), h.BandEvents(3), h.BandEvents(4))
	r := st.Recorder
	fmtx.Fprintf(c.out, "buffer   pending=%d next=%d\n", r.Pending, r.NextSeq)
	fmtx.Fprintf(c.out, "blocks   flushes=%d written=%d failed=%d skipped=%d\n", r.Flushes, r.Written, r.Failed, r.Skipped)
	if st.HasLast && st.Last.Err != nil {
		fmtx.Fprintf(c.out, "last     %s\n", st.Last.Err)
	}
	fmtx.Fprintf(c.out, "diag     dropped=%d\n", st.DiagDropped)
	return nil
}

func (c *Console) time(_ context.Context, _ []string) error {
	fmtx.Fprintf(c.out, "%s\n", c.dev.Clock().Now())
	return nil
}

func (c *Console) settime(_ context.Context, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	cal, err := clock.ParseDate(args[0], args[1])
	if err != nil {
		return err
	}
	if err := c.dev.Clock().Set(cal); err != nil {
		return err
	}
	fmtx.Fprintf(c.out, "time set %s\n", cal)
	return nil
}

func (c *Console) flush(_ context.Context, _ []string) error {
	c.dev.Handler().RequestFlush()
	fmtx.Fprintf(c.out, "flush requested\n")
	return nil
}

func (c *Console) read(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 || (len(args) == 2 && args[1] != "hex") {
		return ErrUsage
	}
	blk, err := strconvx.ParseUint(args[0], 0, 32)
	if err != nil {
		return ErrUsage
	}
	ctx, cancel := context.WithTimeout(ctx, ReadTimeout)
	defer cancel()
	data, err := c.dev.Handler().ReadBlock(ctx, uint32(blk))
	if err != nil {
		return err
	}
	if len(args) == 2 {
		c.hexdump(data)
		return nil
	}
	text := bytes.TrimRight(data, "\x00")
	fmtx.Fprintf(c.out, "block %d: %d bytes\n", blk, len(text))
	c.out.Write(text)
	if len(text) > 0 && text[len(text)-1] != '\n' {
		io.WriteString(c.out, "\n")
	}
	return nil
}

// hexdump prints 16 bytes per row and stops after the last non-zero row.
func (c *Console) hexdump(data []byte) {
	end := len(bytes.TrimRight(data, "\x00"))
	var line []byte
	for off := 0; off < end; off += 16 {
		row := data[off:min(off+16, len(data))]
		line = conv.AppendHex32(line[:0], uint32(off))
		line = append(line, ':')
		for _, b := range row {
			line = append(line, ' ')
			line = conv.AppendHex8(line, b)
		}
		line = append(line, "  |"...)
		for _, b := range row {
			if b < 0x20 || b > 0x7E {
				b = '.'
			}
			line = append(line, b)
		}
		line = append(line, "|\n"...)
		c.out.Write(line)
	}
	if end < len(data) {
		fmtx.Fprintf(c.out, "* %d zero bytes\n", len(data)-end)
	}
}

func (c *Console) rtc(_ context.Context, _ []string) error {
	r := c.dev.Clock().Now().BCD()
	fmtx.Fprintf(c.out, "year=%04x month=%02x day=%02x hour=%02x min=%02x sec=%02x\n",
		r.Year, r.Month, r.Day, r.Hour, r.Minute, r.Second)
	return nil
}
