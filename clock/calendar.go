package clock

import (
	"errors"

	"tigr-go/x/conv"
	"tigr-go/x/mathx"
	"tigr-go/x/strconvx"
)

// MaxYear is the largest representable year; the year counter wraps to 0
// after it, like the 12-bit hardware RTC year register.
const MaxYear = 4095

// Calendar is a broken-down wall-clock time with one-second resolution.
type Calendar struct {
	Year   uint16
	Month  uint8 // 1..12
	Day    uint8 // 1..DaysIn(Month, Year)
	Hour   uint8 // 0..23
	Minute uint8 // 0..59
	Second uint8 // 0..59
}

// DefaultStart is the power-on time used when none is configured.
var DefaultStart = Calendar{Year: 2025, Month: 10, Day: 14, Hour: 12}

var ErrSyntax = errors.New("clock: want YYYY-MM-DD HH:MM:SS")
var ErrInvalid = errors.New("clock: calendar field out of range")

// IsLeap reports whether year has a 29 February.
func IsLeap(year uint16) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the number of days in month of year, or 0 for a bad month.
func DaysIn(month uint8, year uint16) uint8 {
	switch month {
	case 2:
		if IsLeap(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	}
	return 0
}

func (c Calendar) Valid() bool {
	return c.Year <= MaxYear &&
		mathx.Between(c.Month, 1, 12) &&
		mathx.Between(c.Day, 1, DaysIn(c.Month, c.Year)) &&
		c.Hour < 24 && c.Minute < 60 && c.Second < 60
}

// AppendDate appends "YYYY-MM-DD".
func (c Calendar) AppendDate(dst []byte) []byte {
	dst = conv.AppendPadded(dst, uint32(c.Year), 4)
	dst = append(dst, '-')
	dst = conv.AppendPadded(dst, uint32(c.Month), 2)
	dst = append(dst, '-')
	return conv.AppendPadded(dst, uint32(c.Day), 2)
}

// AppendTime appends "HH:MM:SS".
func (c Calendar) AppendTime(dst []byte) []byte {
	dst = conv.AppendPadded(dst, uint32(c.Hour), 2)
	dst = append(dst, ':')
	dst = conv.AppendPadded(dst, uint32(c.Minute), 2)
	dst = append(dst, ':')
	return conv.AppendPadded(dst, uint32(c.Second), 2)
}

func (c Calendar) String() string {
	var b [19]byte
	out := c.AppendDate(b[:0])
	out = append(out, ' ')
	return string(c.AppendTime(out))
}

// Before reports whether c is strictly earlier than d.
func (c Calendar) Before(d Calendar) bool { return c.key() < d.key() }

func (c Calendar) key() uint64 {
	return uint64(c.Year)<<40 | uint64(c.Month)<<32 | uint64(c.Day)<<24 |
		uint64(c.Hour)<<16 | uint64(c.Minute)<<8 | uint64(c.Second)
}

// ParseDate parses "YYYY-MM-DD" and "HH:MM:SS" halves into a Calendar.
func ParseDate(date, tod string) (Calendar, error) {
	if len(date) != 10 || date[4] != '-' || date[7] != '-' ||
		len(tod) != 8 || tod[2] != ':' || tod[5] != ':' {
		return Calendar{}, ErrSyntax
	}
	var f [6]uint64
	parts := [6]string{date[0:4], date[5:7], date[8:10], tod[0:2], tod[3:5], tod[6:8]}
	for i, p := range parts {
		for j := 0; j < len(p); j++ {
			if p[j] < '0' || p[j] > '9' {
				return Calendar{}, ErrSyntax
			}
		}
		v, err := strconvx.ParseUint(p, 10, 16)
		if err != nil {
			return Calendar{}, ErrSyntax
		}
		f[i] = v
	}
	c := Calendar{
		Year: uint16(f[0]), Month: uint8(f[1]), Day: uint8(f[2]),
		Hour: uint8(f[3]), Minute: uint8(f[4]), Second: uint8(f[5]),
	}
	if !c.Valid() {
		return Calendar{}, ErrInvalid
	}
	return c, nil
}

// ParseCalendar parses "YYYY-MM-DD HH:MM:SS" (a 'T' separator is accepted).
func ParseCalendar(s string) (Calendar, error) {
	if len(s) != 19 || (s[10] != ' ' && s[10] != 'T') {
		return Calendar{}, ErrSyntax
	}
	return ParseDate(s[:10], s[11:])
}

// next returns the calendar one second later.
func (c Calendar) next() Calendar {
	if c.Second++; c.Second < 60 {
		return c
	}
	c.Second = 0
	if c.Minute++; c.Minute < 60 {
		return c
	}
	c.Minute = 0
	if c.Hour++; c.Hour < 24 {
		return c
	}
	c.Hour = 0
	if c.Day++; c.Day <= DaysIn(c.Month, c.Year) {
		return c
	}
	c.Day = 1
	if c.Month++; c.Month <= 12 {
		return c
	}
	c.Month = 1
	if c.Year == MaxYear {
		c.Year = 0
	} else {
		c.Year++
	}
	return c
}
