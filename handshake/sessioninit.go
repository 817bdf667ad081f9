package handshake

import (
	"errors"
	"fmt"

	"github.com/quantumgate/quantumgate/buffer"
	"github.com/quantumgate/quantumgate/quuid"
)

// maxSessionInitExtenders bounds the extender-UUID list the same way meta
// exchange's algorithm lists are bounded, so a malicious peer cannot force
// an unbounded allocation (spec.md §4.2: SessionInit carries "its list of
// locally-enabled extender UUIDs").
const maxSessionInitExtenders = 256

// maxObservedEndpointLength bounds the reported-endpoint string the same
// way other length-prefixed fields in this package are bounded.
const maxObservedEndpointLength = 256

// SessionInitPayload is the inner content of a Begin/EndSessionInit
// message (spec.md §4.2): the sender's chosen starting message-counter
// value, the peer endpoint as the sender observes it, and the sender's
// locally-enabled extender UUIDs.
type SessionInitPayload struct {
	StartCounter     uint8
	ObservedEndpoint string
	Extenders        []quuid.UUID
}

// ErrExtenderKindMismatch is returned when a SessionInit payload lists a
// UUID that does not self-describe as kind Extender.
var ErrExtenderKindMismatch = errors.New("handshake: extender list contains a non-Extender UUID")

// ValidateSessionInitExtenders checks that every UUID in list is of kind
// Extender (spec.md §4.2: "the receiver validates the UUIDs (each must be
// of kind Extender)").
func ValidateSessionInitExtenders(list []quuid.UUID) error {
	for _, u := range list {
		if u.Kind() != quuid.KindExtender {
			return fmt.Errorf("handshake: %w: %s", ErrExtenderKindMismatch, u)
		}
	}
	return nil
}

// EncodeSessionInitPayload serializes p for transport as an inner
// message's Data.
func EncodeSessionInitPayload(p SessionInitPayload) []byte {
	w := buffer.NewWriter(0)
	w.WriteByte(p.StartCounter)
	w.WritePrefixed16([]byte(p.ObservedEndpoint))
	w.WriteUint16(uint16(len(p.Extenders)))
	for _, u := range p.Extenders {
		w.WriteBytes(u.Bytes())
	}
	return w.Bytes()
}

// DecodeSessionInitPayload reverses EncodeSessionInitPayload.
func DecodeSessionInitPayload(data []byte) (SessionInitPayload, error) {
	r := buffer.NewReader(data)

	counter, err := r.ReadByte()
	if err != nil {
		return SessionInitPayload{}, err
	}

	endpoint, err := r.ReadPrefixed16(maxObservedEndpointLength)
	if err != nil {
		return SessionInitPayload{}, err
	}

	count, err := r.ReadUint16()
	if err != nil {
		return SessionInitPayload{}, err
	}
	if int(count) > maxSessionInitExtenders {
		return SessionInitPayload{}, fmt.Errorf("handshake: session init: %d extenders exceeds limit", count)
	}

	extenders := make([]quuid.UUID, 0, count)
	for i := uint16(0); i < count; i++ {
		idBytes, err := r.ReadBytes(quuid.Size)
		if err != nil {
			return SessionInitPayload{}, err
		}
		id, err := quuid.Parse(idBytes)
		if err != nil {
			return SessionInitPayload{}, err
		}
		extenders = append(extenders, id)
	}

	return SessionInitPayload{
		StartCounter:     counter,
		ObservedEndpoint: string(endpoint),
		Extenders:        extenders,
	}, nil
}
