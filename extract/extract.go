// Package extract reads records back out of a raw card image.
package extract

import (
	"bytes"
	"errors"
	"io"

	"tigr-go/record"
)

// BlockSize is the card block size.
const BlockSize = 512

// Scanner walks an image block by block from block 0 and stops at the first
// empty block (zero-filled or erased to 0xFF), at end of input or after
// MaxBlocks blocks.
type Scanner struct {
	r         io.ReaderAt
	maxBlocks uint32
	next      uint32
	buf       [BlockSize]byte
	text      []byte
	err       error
}

// NewScanner returns a Scanner over r. maxBlocks == 0 means no limit.
func NewScanner(r io.ReaderAt, maxBlocks uint32) *Scanner {
	return &Scanner{r: r, maxBlocks: maxBlocks}
}

// Next advances to the next non-empty block.
func (s *Scanner) Next() bool {
	if s.err != nil || (s.maxBlocks != 0 && s.next >= s.maxBlocks) {
		return false
	}
	n, err := s.r.ReadAt(s.buf[:], int64(s.next)*BlockSize)
	if n < BlockSize {
		if err != nil && !errors.Is(err, io.EOF) {
			s.err = err
		}
		return false
	}
	if s.buf[0] == 0x00 || s.buf[0] == 0xFF {
		return false
	}
	s.text = bytes.TrimRight(s.buf[:], "\x00")
	s.next++
	return true
}

// Text is the current block's payload without its zero padding. It is
// overwritten by the next call to Next.
func (s *Scanner) Text() []byte { return s.text }

// Block is the index of the current block.
func (s *Scanner) Block() uint32 { return s.next - 1 }

// Err is the first read error, if any. Running off the end of the image is
// not an error.
func (s *Scanner) Err() error { return s.err }

// Result is everything recovered from an image.
type Result struct {
	Records   []record.Record
	Blocks    int
	Malformed int
}

// Records scans the image and parses every line. Malformed lines are
// counted and skipped.
func Records(r io.ReaderAt, maxBlocks uint32) (Result, error) {
	var res Result
	sc := NewScanner(r, maxBlocks)
	for sc.Next() {
		res.Blocks++
		text := sc.Text()
		for len(text) > 0 {
			line := text
			if i := bytes.IndexByte(text, '\n'); i >= 0 {
				line, text = text[:i], text[i+1:]
			} else {
				text = nil
			}
			if len(line) == 0 {
				continue
			}
			rec, err := record.Parse(line)
			if err != nil {
				res.Malformed++
				continue
			}
			res.Records = append(res.Records, rec)
		}
	}
	return res, sc.Err()
}

// WriteCSV writes record.Header and one row per record.
func WriteCSV(w io.Writer, recs []record.Record) error {
	buf := make([]byte, 0, 4096)
	buf = append(buf, record.Header...)
	buf = append(buf, '\n')
	for _, r := range recs {
		buf = r.AppendCSV(buf)
		if len(buf) > 4096-record.MaxLineLen {
			if _, err := w.Write(buf); err != nil {
				return err
			}
			buf = buf[:0]
		}
	}
	_, err := w.Write(buf)
	return err
}
