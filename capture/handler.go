// Package capture turns detector line edges into buffered, timestamped
// records.
//
// Pin interrupts only set bits in a Latch. One goroutine, Handler.Run, is
// the capture context: it is the only code that touches the recorder and
// the card, so neither needs a lock. The foreground talks to it through
// atomics (Events, LastReport), a flush-request flag and a read-request
// channel.
package capture

import (
	"context"
	"sync/atomic"

	"tigr-go/errcode"
	"tigr-go/measure"
	"tigr-go/record"
	"tigr-go/recorder"
)

// BlockReader reads stored blocks back. *sdcard.Device implements it.
type BlockReader interface {
	ReadBlock(block uint32, dst []byte) error
}

type readReq struct {
	block uint32
	reply chan readResp
}

type readResp struct {
	data []byte
	err  error
}

type Handler struct {
	latch *Latch
	rec   *recorder.Recorder
	meas  measure.Source
	ind   Indicator
	rd    BlockReader

	events   atomic.Uint32
	perBand  [record.NumBands]atomic.Uint32
	flushReq atomic.Bool
	wake     chan struct{}
	reads    chan readReq
	last     atomic.Pointer[recorder.Report]
	onFlush  func(recorder.Report)
}

// New wires a handler. A nil measurement source reports measure.Invalid
// and a nil indicator shows nothing.
func New(latch *Latch, rec *recorder.Recorder, meas measure.Source, ind Indicator) *Handler {
	if meas == nil {
		meas = measure.Fixed(measure.Invalid)
	}
	if ind == nil {
		ind = noIndicator{}
	}
	return &Handler{
		latch: latch,
		rec:   rec,
		meas:  meas,
		ind:   ind,
		wake:  make(chan struct{}, 1),
		reads: make(chan readReq),
	}
}

// SetBlockReader enables ReadBlock. Call before Run.
func (h *Handler) SetBlockReader(r BlockReader) { h.rd = r }

// OnFlush registers a callback run in the capture context after each
// flush. Call before Run.
func (h *Handler) OnFlush(fn func(recorder.Report)) { h.onFlush = fn }

// Service handles one pending edge, as a single interrupt invocation would:
// the highest latched band wins and only its bit is cleared, so lower bands
// latched at the same time are served by the following calls. It samples
// the measurement, records the event and flushes when the buffer fills.
// Must only be called from the capture context.
func (h *Handler) Service() (uint8, bool) {
	band := Highest(h.latch.Flags())
	if band == 0 {
		return 0, false
	}
	h.latch.Clear(1 << (band - 1))

	h.ind.Show(band)
	m := h.meas.Sample()
	h.events.Add(1)
	h.perBand[band-1].Add(1)

	if _, full := h.rec.Append(band, m); full {
		h.flush()
	}
	return band, true
}

func (h *Handler) flush() {
	rep := h.rec.Flush()
	if rep.Records == 0 {
		return
	}
	h.last.Store(&rep)
	if h.onFlush != nil {
		h.onFlush(rep)
	}
}

// drain serves latched edges, at most one buffer's worth per pass so that a
// steady stream of edges cannot starve flush and read requests, then a
// pending flush request. It reports whether edges are still latched.
func (h *Handler) drain() bool {
	for i := 0; i < h.rec.Capacity(); i++ {
		if _, ok := h.Service(); !ok {
			break
		}
	}
	if h.flushReq.Swap(false) {
		h.flush()
	}
	return h.latch.Flags() != 0
}

// Run is the capture context. It returns when ctx is done, after serving
// edges still latched and flushing whatever is buffered.
func (h *Handler) Run(ctx context.Context) error {
	for {
		if h.drain() {
			select {
			case <-ctx.Done():
				return h.stop()
			case req := <-h.reads:
				req.reply <- h.read(req.block)
			default:
			}
			continue
		}
		select {
		case <-ctx.Done():
			return h.stop()
		case <-h.latch.Notify():
		case <-h.wake:
		case req := <-h.reads:
			req.reply <- h.read(req.block)
		}
	}
}

// stop serves what is latched (at most one edge per band) and flushes.
func (h *Handler) stop() error {
	for i := 0; i < record.NumBands && h.drain(); i++ {
	}
	h.flush()
	return nil
}

func (h *Handler) read(block uint32) readResp {
	if h.rd == nil {
		return readResp{err: errcode.New(errcode.NotReady, "capture.read", "no block reader")}
	}
	buf := make([]byte, recorder.BlockSize)
	if err := h.rd.ReadBlock(block, buf); err != nil {
		return readResp{err: err}
	}
	return readResp{data: buf}
}

// RequestFlush asks the capture context to flush at its next opportunity.
// It never blocks.
func (h *Handler) RequestFlush() {
	h.flushReq.Store(true)
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// ReadBlock reads a stored block through the capture context, so the card
// is never driven from two goroutines.
func (h *Handler) ReadBlock(ctx context.Context, block uint32) ([]byte, error) {
	req := readReq{block: block, reply: make(chan readResp, 1)}
	select {
	case h.reads <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp.data, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Events is the number of edges handled.
func (h *Handler) Events() uint32 { return h.events.Load() }

// BandEvents is the number of edges handled for band (1..NumBands).
func (h *Handler) BandEvents(band uint8) uint32 {
	if band < 1 || band > record.NumBands {
		return 0
	}
	return h.perBand[band-1].Load()
}

// LastReport returns the most recent non-empty flush report.
func (h *Handler) LastReport() (recorder.Report, bool) {
	p := h.last.Load()
	if p == nil {
		return recorder.Report{}, false
	}
	return *p, true
}
