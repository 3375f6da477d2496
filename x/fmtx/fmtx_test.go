package fmtx

import (
	"bytes"
	"errors"
	"testing"
)

func TestSprintfVerbs(t *testing.T) {
	for _, c := range []struct {
		fmt  string
		args []any
		want string
	}{
		{"hello %s", []any{"world"}, "hello world"},
		{"num %d hex %x HEX %X", []any{255, 255, 255}, "num 255 hex ff HEX FF"},
		{"addr=%08x", []any{uint32(0x2A00)}, "addr=00002a00"},
		{"r1=%02x", []any{uint8(1)}, "r1=01"},
		{"%02d:%02d", []any{9, 5}, "09:05"},
		{"temp=%d", []any{int32(-273)}, "temp=-273"},
		{"ok=%t", []any{true}, "ok=true"},
		{"literal %%", nil, "literal %"},
	} {
		if got := Sprintf(c.fmt, c.args...); got != c.want {
			t.Fatalf("Sprintf(%q) = %q, want %q", c.fmt, got, c.want)
		}
	}
}

func TestPrintUsesDefaultOutput(t *testing.T) {
	var buf bytes.Buffer
	prev := DefaultOutput
	DefaultOutput = &buf
	defer func() { DefaultOutput = prev }()

	if _, err := Printf("v=%d", 7); err != nil {
		t.Fatal(err)
	}
	if _, err := Print(" x", 2); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "v=7 x2" && got != "v=7 x 2" {
		t.Fatalf("output = %q", got)
	}
}

func TestFprintfAndErrorf(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Fprintf(&buf, "blocks=%d", 3); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "blocks=3" {
		t.Fatalf("Fprintf wrote %q", buf.String())
	}
	err := Errorf("bad %s: %d", "addr", 9)
	if err.Error() != "bad addr: 9" || !errors.Is(err, err) {
		t.Fatalf("Errorf = %v", err)
	}
}
