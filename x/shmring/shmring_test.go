package shmring

import "testing"

func TestOrderAcrossWrapWithPartialProgress(t *testing.T) {
	r := New(64)

	const N = 2000
	src := make([]byte, N)
	for i := range src {
		src[i] = byte(i)
	}

	p := src
	dst := make([]byte, N)
	off := 0
	for off < N {
		if len(p) > 0 {
			step := 7
			if step > len(p) {
				step = len(p)
			}
			n := r.TryWriteFrom(p[:step])
			p = p[n:]
		}
		var tmp [17]byte
		n := r.TryReadInto(tmp[:])
		copy(dst[off:], tmp[:n])
		off += n
	}

	for i := 0; i < N; i++ {
		if dst[i] != src[i] {
			t.Fatalf("mismatch at %d: got=%d want=%d", i, dst[i], src[i])
		}
	}
}

func TestFullRingRejectsWithoutBlocking(t *testing.T) {
	r := New(8)
	if n := r.TryWriteFrom([]byte("0123456789")); n != 8 {
		t.Fatalf("write = %d, want 8", n)
	}
	if r.Space() != 0 || r.Available() != 8 {
		t.Fatalf("space=%d avail=%d", r.Space(), r.Available())
	}
	if n := r.TryWriteFrom([]byte("x")); n != 0 {
		t.Fatalf("write into full ring = %d", n)
	}
}

func TestReadableEdge(t *testing.T) {
	r := New(8)
	select {
	case <-r.Readable():
		t.Fatal("unexpected Readable on empty ring")
	default:
	}
	r.TryWriteFrom([]byte{1, 2, 3})
	select {
	case <-r.Readable():
	default:
		t.Fatal("expected Readable")
	}
	r.TryWriteFrom([]byte{4})
	select {
	case <-r.Readable():
		t.Fatal("unexpected extra Readable while non-empty")
	default:
	}
}
