package sdcard

import (
	"tigr-go/errcode"
	"tigr-go/x/conv"
)

// SPI-mode commands used by the driver.
const (
	cmdGoIdle      = 0  // CMD0
	cmdSendOpCond  = 1  // CMD1
	cmdSendCSD     = 9  // CMD9
	cmdSetBlockLen = 16 // CMD16
	cmdReadSingle  = 17 // CMD17
	cmdWriteSingle = 24 // CMD24
)

const (
	r1Ready = 0x00
	r1Idle  = 0x01

	tokenStart   = 0xFE
	dataRespMask = 0x1F
	dataAccepted = 0x05

	crcGoIdle = 0x95 // the only command whose CRC is checked in SPI mode
	crcNone   = 0xFF
)

// command sends a 6-byte command frame and polls for its R1 response.
// CS must already be asserted.
func (d *Device) command(cmd byte, arg uint32) (byte, error) {
	d.cmd[0] = 0x40 | cmd
	d.cmd[1] = byte(arg >> 24)
	d.cmd[2] = byte(arg >> 16)
	d.cmd[3] = byte(arg >> 8)
	d.cmd[4] = byte(arg)
	d.cmd[5] = crcNone
	if cmd == cmdGoIdle {
		d.cmd[5] = crcGoIdle
	}
	if err := d.write(d.cmd[:]); err != nil {
		return 0, err
	}
	return d.response()
}

// response reads until the card answers ready or idle. Anything else after
// ResponsePolls+1 reads is returned as-is for the caller to reject.
func (d *Device) response() (byte, error) {
	var b byte
	for i := 0; i <= d.cfg.ResponsePolls; i++ {
		var err error
		if b, err = d.read(); err != nil {
			return 0, err
		}
		if b == r1Ready || b == r1Idle {
			return b, nil
		}
	}
	return b, nil
}

// waitToken polls for the start-of-data token.
func (d *Device) waitToken(op string) error {
	for i := 0; i < d.cfg.TokenPolls; i++ {
		b, err := d.read()
		if err != nil {
			return err
		}
		if b == tokenStart {
			return nil
		}
	}
	return errcode.New(errcode.DataTokenError, op, "no data token")
}

// release deasserts CS and sends 8 clocks so the card frees the data line.
func (d *Device) release() {
	d.cs(true)
	_ = d.write(d.fill[:1])
}

func (d *Device) read() (byte, error) {
	b, err := d.bus.Transfer(0xFF)
	if err != nil {
		return 0, errcode.Wrap(errcode.Bus, "sdcard.xfer", err)
	}
	return b, nil
}

func (d *Device) write(p []byte) error {
	if err := d.bus.Tx(p, nil); err != nil {
		return errcode.Wrap(errcode.Bus, "sdcard.xfer", err)
	}
	return nil
}

func respErr(op string, cmd, r byte) error {
	msg := make([]byte, 0, 16)
	msg = append(msg, "cmd"...)
	msg = conv.AppendUint(msg, uint64(cmd))
	msg = append(msg, " r1=0x"...)
	msg = conv.AppendHex8(msg, r)
	return errcode.New(errcode.ResponseError, op, string(msg))
}

// byteAddress converts a block index to the byte address carried in the
// command argument, refusing addresses past the 32-bit argument range.
func byteAddress(op string, block uint32) (uint32, error) {
	a := uint64(block) * BlockSize
	if a > 0xFFFFFFFF {
		return 0, errcode.New(errcode.AddressRange, op, "block beyond 32-bit byte address")
	}
	return uint32(a), nil
}
