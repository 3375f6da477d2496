//go:build !linux

package sdemu

import "os"

// Mapped is a card image file. Off linux it is read and written through
// the file rather than mapped.
type Mapped struct {
	f    *os.File
	size int64
}

// OpenImage opens the image at path, creating or growing it to blocks
// blocks. blocks == 0 uses the file at its current size.
func OpenImage(path string, blocks int) (*Mapped, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0664)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := st.Size()
	if want := int64(blocks) * BlockSize; want > size {
		if err := f.Truncate(want); err != nil {
			f.Close()
			return nil, err
		}
		size = want
	}
	if size == 0 || size%BlockSize != 0 {
		f.Close()
		return nil, ErrImageSize
	}
	return &Mapped{f: f, size: size}, nil
}

func (m *Mapped) Size() int64 { return m.size }

func (m *Mapped) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > m.size {
		return 0, ErrOutOfRange
	}
	return m.f.ReadAt(p, off)
}

func (m *Mapped) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > m.size {
		return 0, ErrOutOfRange
	}
	return m.f.WriteAt(p, off)
}

func (m *Mapped) Sync() error { return m.f.Sync() }

func (m *Mapped) Close() error { return m.f.Close() }
