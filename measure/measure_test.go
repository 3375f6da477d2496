package measure

import (
	"errors"
	"testing"
)

func TestCalibrated(t *testing.T) {
	raw := uint16(0)
	c := &Calibrated{
		Read:  func() (uint16, error) { return raw, nil },
		Cal30: 2000,
		Cal85: 2550,
	}
	for _, tc := range []struct {
		raw  uint16
		want int32
	}{
		{2000, 30}, {2550, 85}, {1930, 23}, {2100, 40},
		{0, -40},     // clamped low
		{60000, 125}, // clamped high
	} {
		raw = tc.raw
		if got := c.Sample(); got != tc.want {
			t.Fatalf("raw %d: got %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestCalibratedInvalid(t *testing.T) {
	read := func() (uint16, error) { return 2000, nil }
	for name, c := range map[string]*Calibrated{
		"erased30":   {Read: read, Cal30: 0xFFFF, Cal85: 2550},
		"erased85":   {Read: read, Cal30: 2000, Cal85: 0xFFFF},
		"degenerate": {Read: read, Cal30: 2000, Cal85: 2000},
		"noreader":   {Cal30: 2000, Cal85: 2550},
		"readfail":   {Read: func() (uint16, error) { return 0, errors.New("adc") }, Cal30: 2000, Cal85: 2550},
	} {
		if got := c.Sample(); got != Invalid {
			t.Fatalf("%s: got %d, want %d", name, got, Invalid)
		}
	}
}

func TestAdapters(t *testing.T) {
	var s Source = Fixed(23)
	if s.Sample() != 23 {
		t.Fatal("Fixed")
	}
	n := int32(0)
	s = Func(func() int32 { n++; return n })
	if s.Sample() != 1 || s.Sample() != 2 {
		t.Fatal("Func")
	}
}
