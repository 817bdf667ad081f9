package message

import (
	"errors"
	"fmt"

	"github.com/quantumgate/quantumgate/buffer"
	"github.com/quantumgate/quantumgate/limits"
	"github.com/quantumgate/quantumgate/quuid"
)

// flag bit positions within the wire format's single flags byte
// (spec.md §4.3: "fragment_kind: 2 bits, compressed: 1 bit,
// has_extender_uuid: 1 bit").
const (
	flagFragmentKindMask = 0x03
	flagCompressed       = 1 << 2
	flagHasExtenderUUID  = 1 << 3
)

// ErrUnknownFragmentKind is returned when decoding a flags byte whose
// fragment-kind bits don't map to a known FragmentKind.
var ErrUnknownFragmentKind = errors.New("message: unknown fragment kind")

// Message is one inner unit carried inside a transport frame's decrypted
// payload (spec.md §3).
type Message struct {
	Kind         Kind
	Fragment     FragmentKind
	Compressed   bool
	ExtenderUUID quuid.UUID
	HasExtender  bool
	Data         []byte
}

// Encode writes m in the wire format described in spec.md §4.3: {kind: u16,
// flags: u8, [extender_uuid: 16 bytes], data_length: u32-prefixed, data}.
func (m Message) Encode(w *buffer.Writer) error {
	if len(m.Data) > limits.MaxInnerData {
		return fmt.Errorf("message: encode: %w", limits.ErrTooLarge)
	}

	flags := byte(m.Fragment) & flagFragmentKindMask
	if m.Compressed {
		flags |= flagCompressed
	}
	if m.HasExtender {
		flags |= flagHasExtenderUUID
	}

	w.WriteUint16(uint16(m.Kind))
	w.WriteByte(flags)
	if m.HasExtender {
		w.WriteBytes(m.ExtenderUUID.Bytes())
	}
	w.WritePrefixed32(m.Data)
	return nil
}

// Decode reads one Message from r.
func Decode(r *buffer.Reader) (Message, error) {
	var m Message

	kind, err := r.ReadUint16()
	if err != nil {
		return Message{}, err
	}
	m.Kind = Kind(kind)

	flags, err := r.ReadByte()
	if err != nil {
		return Message{}, err
	}
	m.Fragment = FragmentKind(flags & flagFragmentKindMask)
	if m.Fragment > FragmentPartialEnd {
		return Message{}, ErrUnknownFragmentKind
	}
	m.Compressed = flags&flagCompressed != 0
	m.HasExtender = flags&flagHasExtenderUUID != 0

	if m.HasExtender {
		idBytes, err := r.ReadBytes(quuid.Size)
		if err != nil {
			return Message{}, err
		}
		id, err := quuid.Parse(idBytes)
		if err != nil {
			return Message{}, err
		}
		m.ExtenderUUID = id
	}

	data, err := r.ReadPrefixed32(limits.MaxInnerData)
	if err != nil {
		return Message{}, err
	}
	m.Data = data
	return m, nil
}
