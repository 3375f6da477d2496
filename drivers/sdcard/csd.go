package sdcard

// CSD is the 16-byte card-specific data register.
type CSD [16]byte

// Capacity in bytes from C_SIZE, C_SIZE_MULT and READ_BL_LEN (CSD v1).
func (c CSD) Capacity() uint64 {
	readBlLen := uint(c[5] & 0x0F)
	cSize := uint64(c[6]&0x03)<<10 | uint64(c[7])<<2 | uint64(c[8]&0xC0)>>6
	cSizeMult := uint(c[9]&0x03)<<1 | uint(c[10]&0x80)>>7
	mult := uint64(1) << (cSizeMult + 2)
	return (cSize + 1) * mult * (uint64(1) << readBlLen)
}

// Version is the CSD_STRUCTURE field (0 = v1.0).
func (c CSD) Version() uint8 { return c[0] >> 6 }

// ReadCSD reads the CSD register with CMD9.
func (d *Device) ReadCSD() (CSD, error) {
	const op = "sdcard.csd"
	var csd CSD
	if err := d.requireReady(op); err != nil {
		return csd, err
	}
	d.cs(false)
	defer d.release()

	r, err := d.command(cmdSendCSD, 0)
	if err != nil {
		return csd, err
	}
	if r != r1Ready {
		return csd, respErr(op, cmdSendCSD, r)
	}
	if err := d.waitToken(op); err != nil {
		return csd, err
	}
	for i := range csd {
		if csd[i], err = d.read(); err != nil {
			return csd, err
		}
	}
	if _, err := d.read(); err != nil {
		return csd, err
	}
	_, err = d.read()
	return csd, err
}

// BlockCount returns the card size in 512-byte blocks.
func (d *Device) BlockCount() (uint32, error) {
	csd, err := d.ReadCSD()
	if err != nil {
		return 0, err
	}
	n := csd.Capacity() / BlockSize
	if n > MaxBlock+1 {
		n = MaxBlock + 1
	}
	return uint32(n), nil
}
