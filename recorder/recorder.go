// Package recorder buffers detector events and persists them as 512-byte
// text blocks.
//
// A Recorder is owned by one goroutine (the capture context): Append and
// Flush are not safe for concurrent use. Stats may be read from anywhere.
package recorder

import (
	"io"
	"sync/atomic"

	"tigr-go/clock"
	"tigr-go/record"
	"tigr-go/x/conv"
)

// DefaultCapacity is the number of events held between flushes.
const DefaultCapacity = 16

type Config struct {
	// Capacity of the event buffer. Default 16.
	Capacity int
	// Echo copies every block's text to the diagnostic writer, not only
	// blocks that could not be stored.
	Echo bool
}

// Clock supplies event timestamps.
type Clock interface {
	Now() clock.Calendar
}

// Store is the block sink. *sdcard.Device implements it.
type Store interface {
	Ready() bool
	Append(block []byte) (uint32, error)
}

// Report describes one flush.
type Report struct {
	Records   int    // records serialized
	Blocks    int    // blocks produced
	Written   int    // blocks the store accepted
	Failed    int    // blocks the store rejected
	Skipped   int    // blocks routed to diagnostics because the store was not ready
	FirstAddr uint32 // block index of the first written block, valid when Written > 0
	Err       error  // first store error
}

// Stats is a snapshot of the recorder counters.
type Stats struct {
	Pending  int
	Accepted uint32
	NextSeq  uint32
	Flushes  uint32
	Written  uint32
	Failed   uint32
	Skipped  uint32
}

type Recorder struct {
	cfg   Config
	clock Clock
	store Store
	diag  io.Writer

	buf   *Buffer
	block Block
	line  [record.MaxLineLen]byte
	msg   [64]byte
	seq   uint32

	pending  atomic.Int32
	accepted atomic.Uint32
	nextSeq  atomic.Uint32
	flushes  atomic.Uint32
	written  atomic.Uint32
	failed   atomic.Uint32
	skipped  atomic.Uint32
}

// New returns a Recorder. A nil diag discards diagnostics.
func New(cfg Config, clk Clock, store Store, diag io.Writer) *Recorder {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if diag == nil {
		diag = io.Discard
	}
	r := &Recorder{
		cfg:   cfg,
		clock: clk,
		store: store,
		diag:  diag,
		buf:   NewBuffer(cfg.Capacity),
		seq:   1,
	}
	r.nextSeq.Store(1)
	return r
}

// Append timestamps and queues one event and reports whether the buffer is
// now full. If the buffer was already full it is flushed first, so an event
// is never dropped and never overwrites a queued one.
func (r *Recorder) Append(band uint8, measurement int32) (record.Record, bool) {
	rec := record.Record{
		Seq:         r.seq,
		Band:        band,
		Time:        r.clock.Now(),
		Measurement: measurement,
	}
	if r.buf.Full() {
		r.Flush()
	}
	r.buf.Push(rec)
	r.seq++
	r.nextSeq.Store(r.seq)
	r.accepted.Add(1)
	r.pending.Store(int32(r.buf.Len()))
	return rec, r.buf.Full()
}

// Capacity is the event buffer size.
func (r *Recorder) Capacity() int { return r.buf.Cap() }

// Pending is the number of queued records.
func (r *Recorder) Pending() int { return r.buf.Len() }

// Flush serializes every queued record in order into blocks and hands each
// to the store. A line never straddles blocks: when it does not fit, the
// current block is sealed and stored first. The queue is cleared once every
// block has been attempted, whatever the outcome; there are no retries.
func (r *Recorder) Flush() Report {
	rep := Report{Records: r.buf.Len()}
	if rep.Records == 0 {
		return rep
	}
	r.block.Reset()
	for i := 0; i < r.buf.Len(); i++ {
		line := r.buf.At(i).AppendCSV(r.line[:0])
		if !r.block.Fits(len(line)) {
			r.emit(&rep)
		}
		r.block.Write(line)
	}
	if r.block.Len() > 0 {
		r.emit(&rep)
	}
	r.buf.Reset()
	r.pending.Store(0)
	r.flushes.Add(1)
	return rep
}

func (r *Recorder) emit(rep *Report) {
	used := r.block.Len()
	text := r.block.Bytes()
	sealed := r.block.Seal()
	rep.Blocks++

	if r.store == nil || !r.store.Ready() {
		rep.Skipped++
		r.skipped.Add(1)
		r.note("blk skipped len=", uint64(used), " store not ready")
		r.diag.Write(text)
		r.block.Reset()
		return
	}
	if r.cfg.Echo {
		r.note("blk len=", uint64(used), "")
		r.diag.Write(text)
	}

	addr, err := r.store.Append(sealed)
	if err != nil {
		rep.Failed++
		r.failed.Add(1)
		if rep.Err == nil {
			rep.Err = err
		}
		r.note("blk write failed addr=", uint64(addr), " "+err.Error())
	} else {
		if rep.Written == 0 {
			rep.FirstAddr = addr
		}
		rep.Written++
		r.written.Add(1)
		r.note("blk written addr=", uint64(addr), "")
	}
	r.block.Reset()
}

func (r *Recorder) note(prefix string, n uint64, suffix string) {
	m := append(r.msg[:0], prefix...)
	m = conv.AppendUint(m, n)
	m = append(m, suffix...)
	m = append(m, '\n')
	r.diag.Write(m)
}

// Stats returns the counters; safe from any goroutine.
func (r *Recorder) Stats() Stats {
	return Stats{
		Pending:  int(r.pending.Load()),
		Accepted: r.accepted.Load(),
		NextSeq:  r.nextSeq.Load(),
		Flushes:  r.flushes.Load(),
		Written:  r.written.Load(),
		Failed:   r.failed.Load(),
		Skipped:  r.skipped.Load(),
	}
}
