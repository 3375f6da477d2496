package clock

// ToBCD encodes v (0..99) as packed BCD.
func ToBCD(v uint8) uint8 { return (v/10)<<4 | v%10 }

// FromBCD decodes a packed BCD byte.
func FromBCD(b uint8) uint8 { return (b>>4)*10 + b&0x0F }

// YearToBCD encodes a year (0..9999) as four BCD digits.
func YearToBCD(y uint16) uint16 {
	return uint16(ToBCD(uint8(y/100%100)))<<8 | uint16(ToBCD(uint8(y%100)))
}

func YearFromBCD(b uint16) uint16 {
	return uint16(FromBCD(uint8(b>>8)))*100 + uint16(FromBCD(uint8(b)))
}

// RTCRegisters is the calendar in the BCD register layout of a hardware
// RTC, used only for diagnostic dumps.
type RTCRegisters struct {
	Year                             uint16
	Month, Day, Hour, Minute, Second uint8
}

func (c Calendar) BCD() RTCRegisters {
	return RTCRegisters{
		Year:   YearToBCD(c.Year),
		Month:  ToBCD(c.Month),
		Day:    ToBCD(c.Day),
		Hour:   ToBCD(c.Hour),
		Minute: ToBCD(c.Minute),
		Second: ToBCD(c.Second),
	}
}

// Calendar decodes the registers back to binary fields.
func (r RTCRegisters) Calendar() Calendar {
	return Calendar{
		Year:   YearFromBCD(r.Year),
		Month:  FromBCD(r.Month),
		Day:    FromBCD(r.Day),
		Hour:   FromBCD(r.Hour),
		Minute: FromBCD(r.Minute),
		Second: FromBCD(r.Second),
	}
}
