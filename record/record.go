// Package record defines the detector event record and its text line form:
//
//	seq,band,YYYY-MM-DD,HH:MM:SS,measurement\n
//
// e.g. "1,1,2025-10-14,12:00:00,23\n". Lines are ASCII, fields are comma
// separated, the date and time are fixed width and the sequence number and
// signed measurement are plain decimal.
package record

import (
	"bytes"
	"errors"

	"tigr-go/clock"
	"tigr-go/x/conv"
	"tigr-go/x/strconvx"
)

// NumBands is the number of detector input lines (bands 1..NumBands).
const NumBands = 4

// MaxLineLen bounds the encoded length of any record line, newline included.
const MaxLineLen = 10 + 1 + 3 + 1 + 10 + 1 + 8 + 1 + 11 + 1

// Header names the columns in extracted CSV files. It is never written to
// the card.
const Header = "Muon#,Band,Date,Time,TempC"

var (
	ErrFields = errors.New("record: want 5 comma-separated fields")
	ErrSeq    = errors.New("record: bad sequence number")
	ErrBand   = errors.New("record: band out of range")
	ErrMeas   = errors.New("record: bad measurement")
)

// Record is one captured detector event.
type Record struct {
	Seq         uint32
	Band        uint8
	Time        clock.Calendar
	Measurement int32
}

// AppendCSV appends the line form of r, newline included.
func (r Record) AppendCSV(dst []byte) []byte {
	dst = conv.AppendUint(dst, uint64(r.Seq))
	dst = append(dst, ',')
	dst = conv.AppendUint(dst, uint64(r.Band))
	dst = append(dst, ',')
	dst = r.Time.AppendDate(dst)
	dst = append(dst, ',')
	dst = r.Time.AppendTime(dst)
	dst = append(dst, ',')
	dst = conv.AppendInt(dst, int64(r.Measurement))
	return append(dst, '\n')
}

func (r Record) String() string {
	var b [MaxLineLen]byte
	line := r.AppendCSV(b[:0])
	return string(line[:len(line)-1])
}

// Parse decodes one line. A trailing "\n" or "\r\n" is optional.
func Parse(line []byte) (Record, error) {
	line = bytes.TrimRight(line, "\r\n")
	var f [5][]byte
	n := 0
	for {
		i := bytes.IndexByte(line, ',')
		if n == len(f)-1 || i < 0 {
			f[n] = line
			n++
			break
		}
		f[n] = line[:i]
		line = line[i+1:]
		n++
	}
	if n != len(f) || bytes.IndexByte(f[4], ',') >= 0 {
		return Record{}, ErrFields
	}

	var r Record
	seq, err := strconvx.ParseUint(string(f[0]), 10, 32)
	if err != nil {
		return Record{}, ErrSeq
	}
	r.Seq = uint32(seq)

	band, err := strconvx.ParseUint(string(f[1]), 10, 8)
	if err != nil || band < 1 || band > NumBands {
		return Record{}, ErrBand
	}
	r.Band = uint8(band)

	if r.Time, err = clock.ParseDate(string(f[2]), string(f[3])); err != nil {
		return Record{}, err
	}

	meas, err := strconvx.ParseInt(string(f[4]), 10, 32)
	if err != nil {
		return Record{}, ErrMeas
	}
	r.Measurement = int32(meas)
	return r, nil
}
