//go:build rp2040

package fmtx

import (
	"io"

	"tigr-go/x/strconvx"
)

// DefaultOutput is used by Print/Printf on MCU builds.
// The platform bootstrap points it at the console UART.
var DefaultOutput io.Writer = discard{}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func Sprintf(format string, a ...any) string {
	var b builder
	b.format(format, a...)
	return string(b.buf)
}

func Printf(format string, a ...any) (int, error) {
	return Fprintf(DefaultOutput, format, a...)
}

func Fprintf(w io.Writer, format string, a ...any) (int, error) {
	var b builder
	b.format(format, a...)
	return w.Write(b.buf)
}

func Errorf(format string, a ...any) error {
	return &stringError{Sprintf(format, a...)}
}

func Sprint(a ...any) string {
	var b builder
	for i, v := range a {
		if i > 0 {
			b.byte(' ')
		}
		b.any(v)
	}
	return string(b.buf)
}

func Fprint(w io.Writer, a ...any) (int, error) {
	return w.Write([]byte(Sprint(a...)))
}

func Print(a ...any) (int, error) { return Fprint(DefaultOutput, a...) }

// Supported: %s %d %x %X %v %t %% with an optional width, where a leading
// zero pads numbers with '0' (e.g. %02x, %08X, %4d).

type stringError struct{ s string }

func (e *stringError) Error() string { return e.s }

type builder struct{ buf []byte }

func (b *builder) byte(c byte)  { b.buf = append(b.buf, c) }
func (b *builder) str(s string) { b.buf = append(b.buf, s...) }

func (b *builder) any(v any) {
	switch x := v.(type) {
	case string:
		b.str(x)
	case []byte:
		b.buf = append(b.buf, x...)
	case bool:
		if x {
			b.str("true")
		} else {
			b.str("false")
		}
	case error:
		b.str(x.Error())
	case interface{ String() string }:
		b.str(x.String())
	default:
		if i, ok := toI64(v); ok {
			b.str(strconvx.FormatInt(i, 10))
			return
		}
		if u, ok := toU64(v); ok {
			b.str(strconvx.FormatUint(u, 10))
			return
		}
		b.str("<?>")
	}
}

func (b *builder) pad(s string, width int, zero bool) {
	fill := byte(' ')
	if zero {
		fill = '0'
	}
	neg := zero && len(s) > 0 && s[0] == '-'
	if neg {
		b.byte('-')
		s = s[1:]
		width--
	}
	for n := width - len(s); n > 0; n-- {
		b.byte(fill)
	}
	b.str(s)
}

func (b *builder) format(format string, args ...any) {
	ai := 0
	for i := 0; i < len(format); {
		c := format[i]
		if c != '%' {
			b.byte(c)
			i++
			continue
		}
		i++
		if i < len(format) && format[i] == '%' {
			b.byte('%')
			i++
			continue
		}
		zero := i < len(format) && format[i] == '0'
		width := 0
		for i < len(format) && '0' <= format[i] && format[i] <= '9' {
			width = width*10 + int(format[i]-'0')
			i++
		}
		if i >= len(format) {
			return
		}
		verb := format[i]
		i++
		if ai >= len(args) {
			b.str("%!")
			b.byte(verb)
			b.str("(MISSING)")
			continue
		}
		arg := args[ai]
		ai++

		switch verb {
		case 'd':
			if n, ok := toI64(arg); ok {
				b.pad(strconvx.FormatInt(n, 10), width, zero)
			} else if u, ok := toU64(arg); ok {
				b.pad(strconvx.FormatUint(u, 10), width, zero)
			} else {
				b.any(arg)
			}
		case 'x', 'X':
			var h string
			if u, ok := toU64(arg); ok {
				h = strconvx.FormatUint(u, 16)
			} else if n, ok := toI64(arg); ok {
				h = strconvx.FormatInt(n, 16)
			} else {
				b.any(arg)
				continue
			}
			if verb == 'X' {
				h = upper(h)
			}
			b.pad(h, width, zero)
		case 's', 'v', 't':
			var tmp builder
			tmp.any(arg)
			b.pad(string(tmp.buf), width, false)
		default:
			b.byte('%')
			b.byte(verb)
		}
	}
}

func upper(h string) string {
	p := []byte(h)
	for i, c := range p {
		if 'a' <= c && c <= 'f' {
			p[i] = c - ('a' - 'A')
		}
	}
	return string(p)
}

func toI64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	}
	return 0, false
}

func toU64(v any) (uint64, bool) {
	switch t := v.(type) {
	case uint:
		return uint64(t), true
	case uint8:
		return uint64(t), true
	case uint16:
		return uint64(t), true
	case uint32:
		return uint64(t), true
	case uint64:
		return t, true
	case uintptr:
		return uint64(t), true
	}
	return 0, false
}
