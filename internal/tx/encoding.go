package tx

import (
	"encoding/binary"
	"fmt"
)

// encoder writes the canonical component encoding.
// Integers are little-endian, variable-length fields carry a u32 length prefix.
type encoder struct {
	buf []byte
}

func (e *encoder) u32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *encoder) boolean(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

func (e *encoder) fixed(b []byte) {
	e.buf = append(e.buf, b...)
}

func (e *encoder) str(s string) {
	e.u32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// decoder reads the canonical encoding. The first error sticks and later
// reads return zero values.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}

	if n < 0 || len(d.buf)-d.off < n {
		d.err = fmt.Errorf("truncated at offset %d: need %d bytes, have %d", d.off, n, len(d.buf)-d.off)
		return nil
	}

	b := d.buf[d.off : d.off+n]
	d.off += n

	return b
}

func (d *decoder) u32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) boolean() bool {
	b := d.take(1)
	if b == nil {
		return false
	}

	switch b[0] {
	case 0:
		return false
	case 1:
		return true
	default:
		d.err = fmt.Errorf("invalid bool byte 0x%02x at offset %d", b[0], d.off-1)
		return false
	}
}

func (d *decoder) fixed(n int) []byte {
	return d.take(n)
}

func (d *decoder) str() string {
	n := d.u32()
	return string(d.take(int(n)))
}
