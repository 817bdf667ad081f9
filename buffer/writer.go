package buffer

import "encoding/binary"

// Writer accumulates bytes for a single outbound wire unit. It owns its
// backing array; callers take the finished bytes with Bytes once done.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity pre-reserved for sizeHint bytes.
// sizeHint is advisory; the Writer grows past it as needed.
func NewWriter(sizeHint int) *Writer {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Bytes returns the accumulated bytes. The returned slice aliases the
// Writer's internal buffer; callers must not retain it across further
// writes.
func (w *Writer) Bytes() []byte { return w.buf }

// WriteByte appends a single byte.
func (w *Writer) WriteByte(b byte) {
	w.buf = append(w.buf, b)
}

// WriteUint16 appends v as two little-endian bytes.
func (w *Writer) WriteUint16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteUint32 appends v as four little-endian bytes.
func (w *Writer) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteUint64 appends v as eight little-endian bytes.
func (w *Writer) WriteUint64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteInt64 appends v as eight little-endian bytes (used for the
// transport frame's system_time field, spec.md §4.3).
func (w *Writer) WriteInt64(v int64) {
	w.WriteUint64(uint64(v))
}

// WriteBytes appends data verbatim, with no length prefix.
func (w *Writer) WriteBytes(data []byte) {
	w.buf = append(w.buf, data...)
}

// WritePrefixed8 appends data preceded by its length as a single byte.
// It panics if len(data) would overflow a byte; callers are expected to
// have validated data against a limits constant before calling this.
func (w *Writer) WritePrefixed8(data []byte) {
	if len(data) > 0xFF {
		panic("buffer: WritePrefixed8 data too large")
	}
	w.WriteByte(byte(len(data)))
	w.WriteBytes(data)
}

// WritePrefixed16 appends data preceded by its length as a u16.
func (w *Writer) WritePrefixed16(data []byte) {
	if len(data) > 0xFFFF {
		panic("buffer: WritePrefixed16 data too large")
	}
	w.WriteUint16(uint16(len(data)))
	w.WriteBytes(data)
}

// WritePrefixed32 appends data preceded by its length as a u32.
func (w *Writer) WritePrefixed32(data []byte) {
	if uint64(len(data)) > 0xFFFFFFFF {
		panic("buffer: WritePrefixed32 data too large")
	}
	w.WriteUint32(uint32(len(data)))
	w.WriteBytes(data)
}
