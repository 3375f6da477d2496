// Package diag carries the node's diagnostic text from the capture context
// to the foreground without ever blocking the writer.
package diag

import (
	"bytes"
	"context"
	"io"
	"math/bits"
	"sync/atomic"
	"time"

	"tigr-go/x/shmring"
)

// DefaultSize is the ring size used when NewStream is given 0.
const DefaultSize = 4096

// Stream is a single-producer, single-consumer text pipe over a byte ring.
// Write is all-or-nothing: a write that does not fit is dropped and
// counted, so a reader never sees half a message.
type Stream struct {
	ring    *shmring.Ring
	dropped atomic.Uint32
	scratch [256]byte
}

// NewStream allocates a stream. size is rounded up to a power of two; zero
// or less selects DefaultSize.
func NewStream(size int) *Stream {
	if size <= 0 {
		size = DefaultSize
	}
	if size&(size-1) != 0 || size < 2 {
		size = 1 << bits.Len(uint(size))
	}
	return &Stream{ring: shmring.New(size)}
}

// Write never blocks and never fails.
func (s *Stream) Write(p []byte) (int, error) {
	if len(p) > s.ring.Space() {
		s.dropped.Add(uint32(len(p)))
		return len(p), nil
	}
	s.ring.TryWriteFrom(p)
	return len(p), nil
}

// Dropped is the number of bytes discarded because the ring was full.
func (s *Stream) Dropped() uint32 { return s.dropped.Load() }

// Buffered is the number of bytes waiting to be drained.
func (s *Stream) Buffered() int { return s.ring.Available() }

// Readable fires when the stream goes from empty to non-empty.
func (s *Stream) Readable() <-chan struct{} { return s.ring.Readable() }

// Drain copies everything buffered to w. Only the consumer may call it.
func (s *Stream) Drain(w io.Writer) (int, error) {
	total := 0
	for {
		n := s.ring.TryReadInto(s.scratch[:])
		if n == 0 {
			return total, nil
		}
		if _, err := w.Write(s.scratch[:n]); err != nil {
			return total, err
		}
		total += n
	}
}

// Pump drains to w whenever data arrives, and at least every period, until
// ctx is done. It drains once more before returning.
func (s *Stream) Pump(ctx context.Context, w io.Writer, period time.Duration) error {
	if period <= 0 {
		period = 100 * time.Millisecond
	}
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			_, err := s.Drain(w)
			return err
		case <-s.Readable():
		case <-t.C:
		}
		if _, err := s.Drain(w); err != nil {
			return err
		}
	}
}

// LineWriter reassembles drained bytes into lines and passes each complete
// line, without its newline, to Sink.
type LineWriter struct {
	Sink    func(line string)
	partial []byte
}

func (lw *LineWriter) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			lw.partial = append(lw.partial, p...)
			break
		}
		line := p[:i]
		if len(lw.partial) > 0 {
			line = append(lw.partial, line...)
			lw.partial = lw.partial[:0]
		}
		if lw.Sink != nil {
			lw.Sink(string(bytes.TrimRight(line, "\r")))
		}
		p = p[i+1:]
	}
	return n, nil
}

// Flush emits a trailing unterminated line, if any.
func (lw *LineWriter) Flush() {
	if len(lw.partial) > 0 && lw.Sink != nil {
		lw.Sink(string(lw.partial))
	}
	lw.partial = lw.partial[:0]
}
