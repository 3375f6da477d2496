package recorder

import "tigr-go/record"

// Buffer is a fixed-capacity event queue allocated once. It never grows and
// never overwrites: Push on a full buffer is refused.
type Buffer struct {
	recs []record.Record
	n    int
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{recs: make([]record.Record, capacity)}
}

// Push appends r and reports whether there was room.
func (b *Buffer) Push(r record.Record) bool {
	if b.n == len(b.recs) {
		return false
	}
	b.recs[b.n] = r
	b.n++
	return true
}

func (b *Buffer) Len() int   { return b.n }
func (b *Buffer) Cap() int   { return len(b.recs) }
func (b *Buffer) Full() bool { return b.n == len(b.recs) }

// At returns the i'th queued record; it panics outside [0, Len()).
func (b *Buffer) At(i int) record.Record {
	if i < 0 || i >= b.n {
		panic("recorder: index out of range")
	}
	return b.recs[i]
}

// Reset discards all queued records.
func (b *Buffer) Reset() { b.n = 0 }
