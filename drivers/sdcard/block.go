package sdcard

import (
	"tigr-go/errcode"
	"tigr-go/x/conv"
)

// MaxBlock is the highest block index addressable with byte addressing.
const MaxBlock = 0xFFFFFFFF / BlockSize

func (d *Device) requireReady(op string) error {
	if !d.Ready() {
		return errcode.New(errcode.NotReady, op, d.State().String())
	}
	return nil
}

func (d *Device) check(op string, buf []byte, block uint32) (uint32, error) {
	if err := d.requireReady(op); err != nil {
		return 0, err
	}
	if len(buf) != BlockSize {
		return 0, errcode.New(errcode.InvalidParams, op, "buffer must be 512 bytes")
	}
	return byteAddress(op, block)
}

// ReadBlock reads the block at index block into dst (512 bytes).
func (d *Device) ReadBlock(block uint32, dst []byte) error {
	const op = "sdcard.read"
	addr, err := d.check(op, dst, block)
	if err != nil {
		return err
	}
	d.cs(false)
	defer d.release()

	r, err := d.command(cmdReadSingle, addr)
	if err != nil {
		return err
	}
	if r != r1Ready {
		return respErr(op, cmdReadSingle, r)
	}
	if err := d.waitToken(op); err != nil {
		return err
	}
	for i := range dst {
		if dst[i], err = d.read(); err != nil {
			return err
		}
	}
	// CRC is not checked in SPI mode.
	if _, err := d.read(); err != nil {
		return err
	}
	_, err = d.read()
	return err
}

// WriteBlock writes src (512 bytes) to the block at index block. It does
// not move the cursor.
func (d *Device) WriteBlock(block uint32, src []byte) error {
	const op = "sdcard.write"
	addr, err := d.check(op, src, block)
	if err != nil {
		return err
	}
	d.cs(false)
	defer d.release()

	r, err := d.command(cmdWriteSingle, addr)
	if err != nil {
		return err
	}
	if r != r1Ready {
		return respErr(op, cmdWriteSingle, r)
	}

	// One filler byte, the start token, the payload, two dummy CRC bytes.
	d.cmd[0], d.cmd[1] = 0xFF, tokenStart
	if err := d.write(d.cmd[:2]); err != nil {
		return err
	}
	if err := d.write(src); err != nil {
		return err
	}
	if err := d.write(d.fill[:2]); err != nil {
		return err
	}

	resp, err := d.read()
	if err != nil {
		return err
	}
	if resp&dataRespMask != dataAccepted {
		msg := conv.AppendHex8([]byte("data response 0x"), resp)
		return errcode.New(errcode.WriteRejected, op, string(msg))
	}

	// The card holds the line low while programming.
	for i := 0; ; i++ {
		b, err := d.read()
		if err != nil {
			return err
		}
		if b != 0x00 {
			return nil
		}
		if i+1 >= d.cfg.BusyPolls {
			return errcode.New(errcode.WriteBusyTimeout, op, "card busy")
		}
	}
}

// Append writes src at the cursor and returns the block index used. The
// cursor advances by exactly one on success and is untouched on failure.
func (d *Device) Append(src []byte) (uint32, error) {
	block := d.cursor.Load()
	if err := d.WriteBlock(block, src); err != nil {
		return block, err
	}
	d.cursor.Store(block + 1)
	return block, nil
}
