package buffer

import (
	"encoding/binary"
	"errors"
)

// ErrShortBuffer is returned when a read requests more bytes than remain.
var ErrShortBuffer = errors.New("buffer: short buffer")

// ErrLengthExceedsMax is returned when a length-prefixed read's declared
// length exceeds the caller's max argument. Surfacing this distinctly
// from ErrShortBuffer lets callers treat it as a fatal protocol violation
// (spec.md §5: "TooMuchData ... is a fatal protocol violation") instead of
// simply waiting for more bytes.
var ErrLengthExceedsMax = errors.New("buffer: length exceeds max")

// Reader is a non-owning cursor over a byte slice. It never copies or
// takes ownership of the underlying array; the caller is responsible for
// that slice's lifetime.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps data for sequential reads starting at offset 0.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Pos returns the current read offset.
func (r *Reader) Pos() int { return r.pos }

// ReadByte consumes and returns a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.Len() < 1 {
		return 0, ErrShortBuffer
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// ReadUint16 consumes two little-endian bytes.
func (r *Reader) ReadUint16() (uint16, error) {
	if r.Len() < 2 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadUint32 consumes four little-endian bytes.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.Len() < 4 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadUint64 consumes eight little-endian bytes.
func (r *Reader) ReadUint64() (uint64, error) {
	if r.Len() < 8 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadInt64 consumes eight little-endian bytes as a signed integer.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadBytes consumes and returns n bytes verbatim. The returned slice
// aliases the Reader's backing array; copy it if it must outlive the
// next read.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, ErrShortBuffer
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// Remaining returns every unread byte without advancing the cursor.
func (r *Reader) Remaining() []byte {
	return r.buf[r.pos:]
}

// ReadPrefixed8 reads a u8 length prefix followed by that many bytes,
// rejecting a declared length above max.
func (r *Reader) ReadPrefixed8(max int) ([]byte, error) {
	n, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if int(n) > max {
		return nil, ErrLengthExceedsMax
	}
	return r.ReadBytes(int(n))
}

// ReadPrefixed16 reads a u16 length prefix followed by that many bytes,
// rejecting a declared length above max.
func (r *Reader) ReadPrefixed16(max int) ([]byte, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	if int(n) > max {
		return nil, ErrLengthExceedsMax
	}
	return r.ReadBytes(int(n))
}

// ReadPrefixed32 reads a u32 length prefix followed by that many bytes,
// rejecting a declared length above max.
func (r *Reader) ReadPrefixed32(max int) ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n > uint32(max) {
		return nil, ErrLengthExceedsMax
	}
	return r.ReadBytes(int(n))
}
