package sdemu

import (
	"errors"
	"io"
)

// Media is the storage behind an emulated card.
type Media interface {
	io.ReaderAt
	io.WriterAt
	Size() int64
}

var ErrOutOfRange = errors.New("sdemu: access beyond media")

// Memory is a RAM-backed medium.
type Memory []byte

// NewMemory returns a zeroed medium of the given number of blocks.
func NewMemory(blocks int) Memory { return make(Memory, blocks*BlockSize) }

func (m Memory) Size() int64 { return int64(len(m)) }

func (m Memory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m)) {
		return 0, ErrOutOfRange
	}
	return copy(p, m[off:]), nil
}

func (m Memory) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m)) {
		return 0, ErrOutOfRange
	}
	return copy(m[off:], p), nil
}
