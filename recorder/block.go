package recorder

// BlockSize is the serialization unit, one storage block.
const BlockSize = 512

// Block accumulates record lines for one storage block.
type Block struct {
	buf [BlockSize]byte
	n   int
}

// Fits reports whether n more bytes fit.
func (b *Block) Fits(n int) bool { return b.n+n <= BlockSize }

// Write copies p in whole or not at all.
func (b *Block) Write(p []byte) bool {
	if !b.Fits(len(p)) {
		return false
	}
	b.n += copy(b.buf[b.n:], p)
	return true
}

// Len is the number of payload bytes written so far.
func (b *Block) Len() int { return b.n }

// Bytes returns the payload written so far.
func (b *Block) Bytes() []byte { return b.buf[:b.n] }

// Seal zero-fills the tail and returns the full block.
func (b *Block) Seal() []byte {
	clear(b.buf[b.n:])
	return b.buf[:]
}

func (b *Block) Reset() { b.n = 0 }
