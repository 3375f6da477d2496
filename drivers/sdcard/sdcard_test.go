package sdcard

import (
	"bytes"
	"errors"
	"testing"

	"tigr-go/errcode"
)

// fakeBus replays scripted bytes on reads and records every written byte.
type fakeBus struct {
	rx   []byte // replies returned by Transfer, in order
	idle byte   // reply once rx is exhausted
	sent  []byte
	fail  error
	reads int // Transfer calls
}

func (b *fakeBus) Tx(w, r []byte) error {
	if b.fail != nil {
		return b.fail
	}
	b.sent = append(b.sent, w...)
	for i := range r {
		r[i], _ = b.Transfer(0xFF)
	}
	return nil
}

func (b *fakeBus) Transfer(byte) (byte, error) {
	if b.fail != nil {
		return 0, b.fail
	}
	b.reads++
	if len(b.rx) == 0 {
		return b.idle, nil
	}
	v := b.rx[0]
	b.rx = b.rx[1:]
	return v, nil
}

var initScript = []byte{r1Idle, r1Ready, r1Ready} // CMD0, CMD1, CMD16

func newReady(t *testing.T, cfg Config) (*Device, *fakeBus) {
	t.Helper()
	bus := &fakeBus{rx: append([]byte(nil), initScript...), idle: 0xFF}
	d := New(bus, nil, nil, cfg)
	if err := d.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	bus.sent = nil
	return d, bus
}

func TestInitSequence(t *testing.T) {
	bus := &fakeBus{rx: append([]byte(nil), initScript...), idle: 0xFF}
	var csLog []bool
	d := New(bus, func(v bool) { csLog = append(csLog, v) }, func() bool { return false }, Config{})

	if err := d.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if d.State() != StateReady || !d.Ready() {
		t.Fatalf("state = %v", d.State())
	}
	if !bytes.HasPrefix(bus.sent, bytes.Repeat([]byte{0xFF}, 10)) {
		t.Fatalf("missing 80 wake-up clocks: % x", bus.sent[:10])
	}
	for _, frame := range [][]byte{
		{0x40, 0, 0, 0, 0, 0x95},       // CMD0
		{0x41, 0, 0, 0, 0, 0xFF},       // CMD1
		{0x50, 0, 0, 0x02, 0x00, 0xFF}, // CMD16 512
	} {
		if !bytes.Contains(bus.sent, frame) {
			t.Fatalf("frame % x not sent", frame)
		}
	}
	if len(csLog) == 0 || !csLog[0] || !csLog[len(csLog)-1] {
		t.Fatalf("CS must start and end deasserted: %v", csLog)
	}
}

func TestInitAbsent(t *testing.T) {
	bus := &fakeBus{idle: 0xFF}
	d := New(bus, nil, func() bool { return true }, Config{}) // active-low: high means empty
	if d.Ping() {
		t.Fatal("Ping reported a card")
	}
	err := d.Init()
	if !errors.Is(err, errcode.CardAbsent) || d.State() != StateAbsent {
		t.Fatalf("err=%v state=%v", err, d.State())
	}
	if len(bus.sent) != 0 {
		t.Fatal("driver talked to an absent card")
	}
}

func TestInitOpCondTimeout(t *testing.T) {
	bus := &fakeBus{idle: r1Idle}
	d := New(bus, nil, nil, Config{OpCondRetries: 5})
	err := d.Init()
	if errcode.Of(err) != errcode.InitTimeout {
		t.Fatalf("err = %v", err)
	}
	if d.State() != StateFailed {
		t.Fatalf("state = %v", d.State())
	}
}

func TestInitNoResponse(t *testing.T) {
	bus := &fakeBus{idle: 0xFF}
	d := New(bus, nil, nil, Config{})
	if err := d.Init(); errcode.Of(err) != errcode.ResponseError {
		t.Fatalf("err = %v", err)
	}
	if d.State() != StateFailed {
		t.Fatalf("state = %v", d.State())
	}
}

func TestInitBusError(t *testing.T) {
	bus := &fakeBus{fail: errors.New("spi fault")}
	d := New(bus, nil, nil, Config{})
	if err := d.Init(); !errors.Is(err, errcode.Bus) {
		t.Fatalf("err = %v", err)
	}
}

func TestAppendAdvancesCursorOnSuccess(t *testing.T) {
	d, bus := newReady(t, Config{})
	bus.rx = []byte{r1Ready, 0xE5, 0x00, 0x00, 0xFF} // R1, accepted, busy, busy, done

	payload := bytes.Repeat([]byte{'a'}, BlockSize)
	addr, err := d.Append(payload)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if addr != 0 || d.Cursor() != 1 {
		t.Fatalf("addr=%d cursor=%d", addr, d.Cursor())
	}
	if !bytes.HasPrefix(bus.sent, []byte{0x58, 0, 0, 0, 0, 0xFF, 0xFF, 0xFE}) {
		t.Fatalf("CMD24 frame/token: % x", bus.sent[:8])
	}
	if !bytes.Contains(bus.sent, payload) {
		t.Fatal("payload not sent")
	}

	bus.rx = []byte{r1Ready, 0x05, 0xFF}
	if addr, err = d.Append(payload); err != nil || addr != 1 || d.Cursor() != 2 {
		t.Fatalf("second append addr=%d cursor=%d err=%v", addr, d.Cursor(), err)
	}
	if !bytes.Contains(bus.sent, []byte{0x58, 0, 0, 0x02, 0x00, 0xFF}) {
		t.Fatal("second block must be at byte address 512")
	}
}

func TestAppendNeverReadyLeavesCursor(t *testing.T) {
	d, bus := newReady(t, Config{ResponsePolls: 20})
	bus.reads = 0
	_, err := d.Append(make([]byte, BlockSize))
	if errcode.Of(err) != errcode.ResponseError {
		t.Fatalf("err = %v", err)
	}
	if bus.reads != 21 {
		t.Fatalf("response reads = %d, want ResponsePolls+1 = 21", bus.reads)
	}
	if d.Cursor() != 0 {
		t.Fatalf("cursor moved to %d", d.Cursor())
	}
	if d.State() != StateReady {
		t.Fatalf("failed transfer changed state to %v", d.State())
	}
}

func TestWriteBusyTimeout(t *testing.T) {
	d, bus := newReady(t, Config{BusyPolls: 10})
	bus.rx = []byte{r1Ready, 0x05}
	bus.idle = 0x00
	bus.reads = 0
	if _, err := d.Append(make([]byte, BlockSize)); errcode.Of(err) != errcode.WriteBusyTimeout {
		t.Fatalf("err = %v", err)
	}
	// R1, data response, then exactly BusyPolls busy reads.
	if bus.reads != 1+1+10 {
		t.Fatalf("reads = %d", bus.reads)
	}
	if d.Cursor() != 0 {
		t.Fatal("cursor moved")
	}
}

func TestWriteRejected(t *testing.T) {
	d, bus := newReady(t, Config{})
	bus.rx = []byte{r1Ready, 0x0B} // CRC error data response
	err := d.WriteBlock(3, make([]byte, BlockSize))
	if !errors.Is(err, errcode.WriteRejected) {
		t.Fatalf("err = %v", err)
	}
}

func TestReadBlock(t *testing.T) {
	d, bus := newReady(t, Config{})
	want := make([]byte, BlockSize)
	for i := range want {
		want[i] = byte(i)
	}
	bus.rx = append([]byte{r1Ready, 0xFF, 0xFF, tokenStart}, want...)
	bus.rx = append(bus.rx, 0x12, 0x34)

	got := make([]byte, BlockSize)
	if err := d.ReadBlock(2, got); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("payload mismatch")
	}
	if !bytes.HasPrefix(bus.sent, []byte{0x51, 0, 0, 0x04, 0x00, 0xFF}) {
		t.Fatalf("CMD17 frame: % x", bus.sent[:6])
	}
}

func TestReadMissingToken(t *testing.T) {
	d, bus := newReady(t, Config{TokenPolls: 20})
	bus.rx = []byte{r1Ready}
	if err := d.ReadBlock(0, make([]byte, BlockSize)); errcode.Of(err) != errcode.DataTokenError {
		t.Fatalf("err = %v", err)
	}
}

func TestPreconditions(t *testing.T) {
	d := New(&fakeBus{idle: 0xFF}, nil, nil, Config{})
	if err := d.ReadBlock(0, make([]byte, BlockSize)); errcode.Of(err) != errcode.NotReady {
		t.Fatalf("before Init: %v", err)
	}

	d, _ = newReady(t, Config{})
	if err := d.WriteBlock(0, make([]byte, 100)); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("short buffer: %v", err)
	}
	if err := d.WriteBlock(MaxBlock+1, make([]byte, BlockSize)); errcode.Of(err) != errcode.AddressRange {
		t.Fatalf("beyond range: %v", err)
	}
	if err := d.WriteBlock(MaxBlock, make([]byte, BlockSize)); errcode.Of(err) == errcode.AddressRange {
		t.Fatal("last addressable block rejected")
	}
}

func TestCSDCapacity(t *testing.T) {
	var c CSD
	c[5] = 0x09                      // READ_BL_LEN = 9
	c[6], c[7], c[8] = 3, 0xFF, 0xC0 // C_SIZE = 4095
	c[9], c[10] = 0x03, 0x80         // C_SIZE_MULT = 7
	if got := c.Capacity(); got != 1<<30 {
		t.Fatalf("capacity = %d", got)
	}

	var small CSD
	small[5] = 0x09
	if got := small.Capacity(); got != 2048 {
		t.Fatalf("minimal capacity = %d", got)
	}
}

func TestReadCSDAndBlockCount(t *testing.T) {
	d, bus := newReady(t, Config{})
	var c CSD
	c[5] = 0x09
	c[6], c[7], c[8] = 3, 0xFF, 0xC0
	c[9], c[10] = 0x03, 0x80
	bus.rx = append([]byte{r1Ready, tokenStart}, c[:]...)
	bus.rx = append(bus.rx, 0, 0)

	n, err := d.BlockCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != (1<<30)/BlockSize {
		t.Fatalf("blocks = %d", n)
	}
}

func TestStateStrings(t *testing.T) {
	for s, want := range map[State]string{
		StateAbsent: "absent", StateDetecting: "detecting", StateInitializing: "initializing",
		StateReady: "ready", StateFailed: "failed",
	} {
		if s.String() != want {
			t.Fatalf("%d: %q", s, s.String())
		}
	}
}
