//go:build linux

package sdemu

import (
	"golang.org/x/sys/unix"
)

// Mapped is a card image file mapped into memory. Writes land in the page
// cache immediately and reach the file on Sync or Close.
type Mapped struct {
	Memory
}

// OpenImage maps the image at path, creating or growing it to blocks
// blocks. blocks == 0 maps the file at its current size.
func OpenImage(path string, blocks int) (*Mapped, error) {
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0664)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, err
	}
	size := st.Size
	if want := int64(blocks) * BlockSize; want > size {
		if err := unix.Ftruncate(fd, want); err != nil {
			return nil, err
		}
		size = want
	}
	if size == 0 || size%BlockSize != 0 {
		return nil, ErrImageSize
	}
	buf, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return &Mapped{Memory: buf}, nil
}

// Sync flushes dirty pages to the file.
func (m *Mapped) Sync() error { return unix.Msync(m.Memory, unix.MS_SYNC) }

// Close syncs and unmaps the image.
func (m *Mapped) Close() error {
	if m.Memory == nil {
		return nil
	}
	err := m.Sync()
	if uerr := unix.Munmap(m.Memory); err == nil {
		err = uerr
	}
	m.Memory = nil
	return err
}
