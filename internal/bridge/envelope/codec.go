// Package envelope implements the canonical binary encoding of cross-chain
// messages exchanged with relayers.
//
// Layout rules: fixed-width integers are little-endian; byte sequences, lists
// and strings carry a 4-byte little-endian length prefix; enums are a 1-byte
// discriminant followed by the variant payload. An optional value is a 1-byte
// tag (0 absent, 1 present) followed by the value.
package envelope

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// ErrMalformed is returned for any input that is not a canonical encoding.
var ErrMalformed = errors.New("malformed envelope")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Encoder appends canonical encodings to an internal buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder with capacity hint n.
func NewEncoder(n int) *Encoder {
	return &Encoder{buf: make([]byte, 0, n)}
}

func (e *Encoder) Bytes() []byte { return e.buf }

func (e *Encoder) U8(v uint8) { e.buf = append(e.buf, v) }

func (e *Encoder) U32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }

func (e *Encoder) U64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

func (e *Encoder) I64(v int64) { e.U64(uint64(v)) }

func (e *Encoder) Bool(v bool) {
	if v {
		e.U8(1)
		return
	}
	e.U8(0)
}

// Fixed writes b without a length prefix.
func (e *Encoder) Fixed(b []byte) { e.buf = append(e.buf, b...) }

// Var writes a length-prefixed byte sequence. It panics when b exceeds
// the 4-byte prefix range, which no in-memory slice on supported platforms
// reaches in practice.
func (e *Encoder) Var(b []byte) {
	if uint64(len(b)) > math.MaxUint32 {
		panic("envelope: sequence exceeds u32 length prefix")
	}
	e.U32(uint32(len(b)))
	e.Fixed(b)
}

func (e *Encoder) String(s string) { e.Var([]byte(s)) }

// Option writes the presence tag and, when present, calls write.
func (e *Encoder) Option(present bool, write func(*Encoder)) {
	e.Bool(present)
	if present {
		write(e)
	}
}

// Decoder reads canonical encodings from a buffer. The first error sticks:
// once set, every subsequent read returns a zero value.
type Decoder struct {
	buf []byte
	off int
	err error
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

// Err returns the first decoding error.
func (d *Decoder) Err() error { return d.err }

// Remaining is the count of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

// Finish fails when unread bytes remain.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if d.Remaining() != 0 {
		d.err = malformed("%d trailing bytes", d.Remaining())
	}
	return d.err
}

func (d *Decoder) take(n int, field string) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || n > d.Remaining() {
		d.err = malformed("truncated %s: need %d bytes, have %d", field, n, d.Remaining())
		return nil
	}
	out := d.buf[d.off : d.off+n]
	d.off += n
	return out
}

func (d *Decoder) U8(field string) uint8 {
	b := d.take(1, field)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) U32(field string) uint32 {
	b := d.take(4, field)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *Decoder) U64(field string) uint64 {
	b := d.take(8, field)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *Decoder) I64(field string) int64 { return int64(d.U64(field)) }

func (d *Decoder) Bool(field string) bool {
	switch v := d.U8(field); v {
	case 0:
		return false
	case 1:
		return true
	default:
		if d.err == nil {
			d.err = malformed("invalid bool tag %d for %s", v, field)
		}
		return false
	}
}

// Fixed reads exactly n bytes and returns a copy.
func (d *Decoder) Fixed(n int, field string) []byte {
	b := d.take(n, field)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Var reads a length-prefixed byte sequence. The prefix is checked against
// the remaining buffer before any allocation. An empty sequence decodes as nil.
func (d *Decoder) Var(field string) []byte {
	n := d.U32(field + " length")
	if d.err != nil {
		return nil
	}
	if uint64(n) > uint64(d.Remaining()) {
		d.err = malformed("%s length %d exceeds remaining %d bytes", field, n, d.Remaining())
		return nil
	}
	if n == 0 {
		return nil
	}
	return d.Fixed(int(n), field)
}

func (d *Decoder) String(field string) string {
	b := d.Var(field)
	if d.err != nil {
		return ""
	}
	if !utf8.Valid(b) {
		d.err = malformed("%s is not valid UTF-8", field)
		return ""
	}
	return string(b)
}

// Option reads a presence tag and, when present, calls read.
func (d *Decoder) Option(field string, read func(*Decoder)) bool {
	present := d.Bool(field)
	if present && d.err == nil {
		read(d)
	}
	return present && d.err == nil
}
