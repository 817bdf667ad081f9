package frame

import "github.com/quantumgate/quantumgate/buffer"

// HeaderSize is the fixed on-wire size of a frame header: nonce_seed(4) +
// counter(1) + current_random_prefix_length(2) + next_random_prefix_length(2)
// + system_time(8) + data_size(4) (spec.md §4.3).
const HeaderSize = 4 + 1 + 2 + 2 + 8 + 4

// Header is the fixed-layout portion of a transport frame that follows
// the random prefix (spec.md §4.3).
type Header struct {
	NonceSeed                 uint32
	Counter                   uint8
	CurrentRandomPrefixLength uint16
	NextRandomPrefixLength    uint16
	SystemTimeMs              int64
	DataSize                  uint32
}

// Encode writes the header in its fixed little-endian layout.
func (h Header) Encode(w *buffer.Writer) {
	w.WriteUint32(h.NonceSeed)
	w.WriteByte(h.Counter)
	w.WriteUint16(h.CurrentRandomPrefixLength)
	w.WriteUint16(h.NextRandomPrefixLength)
	w.WriteInt64(h.SystemTimeMs)
	w.WriteUint32(h.DataSize)
}

// DecodeHeader reads a Header from r.
func DecodeHeader(r *buffer.Reader) (Header, error) {
	var h Header
	var err error

	if h.NonceSeed, err = r.ReadUint32(); err != nil {
		return Header{}, err
	}
	if h.Counter, err = r.ReadByte(); err != nil {
		return Header{}, err
	}
	if h.CurrentRandomPrefixLength, err = r.ReadUint16(); err != nil {
		return Header{}, err
	}
	if h.NextRandomPrefixLength, err = r.ReadUint16(); err != nil {
		return Header{}, err
	}
	if h.SystemTimeMs, err = r.ReadInt64(); err != nil {
		return Header{}, err
	}
	if h.DataSize, err = r.ReadUint32(); err != nil {
		return Header{}, err
	}
	return h, nil
}
