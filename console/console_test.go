package console_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tigr-go/console"
	"tigr-go/measure"
	"tigr-go/node"
	"tigr-go/platform"
	"tigr-go/sdemu"
)

func setup(t *testing.T) (*console.Console, *bytes.Buffer, *node.Node, *platform.Sim) {
	t.Helper()
	sim := platform.NewSim(sdemu.New(sdemu.NewMemory(32)))
	cfg := node.DefaultConfig()
	cfg.Clock.TickPeriod = time.Second
	cfg.DetectPolls = 1
	n := node.New(cfg, sim.Hardware(measure.Fixed(23)))
	require.NoError(t, n.Init())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	t.Cleanup(func() { cancel(); <-done })
	for _, p := range sim.Lines {
		require.Eventually(t, p.Armed, time.Second, time.Millisecond)
	}

	out := &bytes.Buffer{}
	return console.New(n, out), out, n, sim
}

func TestHelpAndUnknown(t *testing.T) {
	c, out, _, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Exec(ctx, "help"))
	for _, cmd := range []string{"status", "settime YYYY-MM-DD HH:MM:SS", "read <block> [hex]", "rtc"} {
		require.Contains(t, out.String(), cmd)
	}

	out.Reset()
	require.ErrorIs(t, c.Exec(ctx, "launch"), console.ErrUnknown)
	require.Equal(t, "error: unknown command launch (try help)\n", out.String())

	out.Reset()
	require.NoError(t, c.Exec(ctx, "   "))
	require.Empty(t, out.String())

	require.Error(t, c.Exec(ctx, `read "0`))
}

func TestTimeSettimeAndRTC(t *testing.T) {
	c, out, n, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Exec(ctx, "time"))
	require.True(t, strings.HasPrefix(out.String(), "2025-10-14 12:00:0"), out.String())

	out.Reset()
	require.NoError(t, c.Exec(ctx, "settime 2031-12-31 23:59:50"))
	require.Equal(t, "time set 2031-12-31 23:59:50\n", out.String())
	require.Equal(t, uint16(2031), n.Clock().Now().Year)

	out.Reset()
	require.NoError(t, c.Exec(ctx, "rtc"))
	require.True(t, strings.HasPrefix(out.String(), "year=2031 month=12 day=31 hour=23 min=59 sec=5"), out.String())

	out.Reset()
	require.ErrorIs(t, c.Exec(ctx, "settime 2031-12-31"), console.ErrUsage)
	require.Equal(t, "usage: settime YYYY-MM-DD HH:MM:SS\n", out.String())

	out.Reset()
	require.Error(t, c.Exec(ctx, "settime 2031-02-30 00:00:00"))
	require.Equal(t, uint16(2031), n.Clock().Now().Year)
}

func TestFlushReadAndStatus(t *testing.T) {
	c, out, n, sim := setup(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		sim.Hit(uint8(i))
		want := uint32(i)
		require.Eventually(t, func() bool { return n.Status().Events == want }, time.Second, time.Millisecond)
	}
	require.NoError(t, c.Exec(ctx, "flush"))
	require.Equal(t, "flush requested\n", out.String())
	require.Eventually(t, func() bool { return n.Status().Cursor == 1 }, time.Second, time.Millisecond)

	out.Reset()
	require.NoError(t, c.Exec(ctx, "read 0"))
	lines := strings.Split(out.String(), "\n")
	require.Equal(t, "block 0: 81 bytes", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "1,1,2025-10-14,"), lines[1])
	require.True(t, strings.HasPrefix(lines[3], "3,3,2025-10-14,"), lines[3])

	out.Reset()
	require.NoError(t, c.Exec(ctx, "read 0x0 hex"))
	require.True(t, strings.HasPrefix(out.String(), "00000000: 31 2c 31 2c 32 30 32 35"), out.String())
	require.Contains(t, out.String(), "* 431 zero bytes\n")

	out.Reset()
	require.ErrorIs(t, c.Exec(ctx, "read zero"), console.ErrUsage)
	out.Reset()
	require.Error(t, c.Exec(ctx, "read 100000"))
	require.Contains(t, out.String(), "error: ")

	out.Reset()
	require.NoError(t, c.Exec(ctx, "status"))
	s := out.String()
	require.Contains(t, s, "card     ready cursor=1\n")
	require.Contains(t, s, "events   3 [1 1 1 0]\n")
	require.Contains(t, s, "blocks   flushes=1 written=1 failed=0 skipped=0\n")
	require.Contains(t, s, "buffer   pending=0 next=4\n")
}

func TestServeRunsUntilEOF(t *testing.T) {
	c, out, _, _ := setup(t)
	c.Prompt = "$ "
	in := strings.NewReader("time\r\nbogus\n")
	require.NoError(t, c.Serve(context.Background(), in))
	s := out.String()
	require.True(t, strings.HasPrefix(s, "$ 2025-10-14 12:00:0"), s)
	require.Contains(t, s, "error: unknown command bogus")
	require.True(t, strings.HasSuffix(s, "$ "))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, c.Serve(ctx, strings.NewReader("time\n")), context.Canceled)
}
