package relay

import (
	"fmt"

	"github.com/quantumgate/quantumgate/buffer"
)

// maxEndpointBytes caps the endpoint string in a RelayCreate payload,
// mirroring the length-prefixed-list caps the message package uses
// elsewhere (spec.md §4.2's 256-byte meta-exchange list cap is the
// closest precedent for a small, attacker-controlled string field).
const maxEndpointBytes = 256

// CreatePayload is the body of a RelayCreate message: the endpoint this
// node should ultimately reach, and how many relay hops remain (spec.md
// §4.14).
type CreatePayload struct {
	Endpoint string
	Hops     uint8
}

// Encode writes p as {endpoint: u16-prefixed, hops: u8}.
func (p CreatePayload) Encode() []byte {
	w := buffer.NewWriter(0)
	w.WritePrefixed16([]byte(p.Endpoint))
	w.WriteByte(p.Hops)
	return w.Bytes()
}

// DecodeCreatePayload reads a CreatePayload from data.
func DecodeCreatePayload(data []byte) (CreatePayload, error) {
	r := buffer.NewReader(data)
	endpoint, err := r.ReadPrefixed16(maxEndpointBytes)
	if err != nil {
		return CreatePayload{}, fmt.Errorf("relay: decode create payload: %w", err)
	}
	hops, err := r.ReadByte()
	if err != nil {
		return CreatePayload{}, fmt.Errorf("relay: decode create payload: %w", err)
	}
	return CreatePayload{Endpoint: string(endpoint), Hops: hops}, nil
}

// StatusCode reports a relay link's lifecycle event (spec.md §4.14:
// "RelayStatus carries lifecycle events").
type StatusCode uint8

const (
	StatusConnecting StatusCode = iota
	StatusConnected
	StatusDisconnected
)

func (c StatusCode) String() string {
	switch c {
	case StatusConnecting:
		return "Connecting"
	case StatusConnected:
		return "Connected"
	case StatusDisconnected:
		return "Disconnected"
	default:
		return "Invalid"
	}
}

// StatusPayload is the body of a RelayStatus message.
type StatusPayload struct {
	Code StatusCode
}

// Encode writes p as a single status byte.
func (p StatusPayload) Encode() []byte {
	return []byte{byte(p.Code)}
}

// DecodeStatusPayload reads a StatusPayload from data.
func DecodeStatusPayload(data []byte) (StatusPayload, error) {
	if len(data) != 1 {
		return StatusPayload{}, fmt.Errorf("relay: decode status payload: want 1 byte, got %d", len(data))
	}
	return StatusPayload{Code: StatusCode(data[0])}, nil
}

// AckPayload is the body of a RelayDataAck message: how many bytes of a
// prior RelayData the receiving side has now accepted, letting the
// sending side's flow control advance (spec.md §4.14).
type AckPayload struct {
	BytesAcked uint32
}

// Encode writes p as a single u32.
func (p AckPayload) Encode() []byte {
	w := buffer.NewWriter(4)
	w.WriteUint32(p.BytesAcked)
	return w.Bytes()
}

// DecodeAckPayload reads an AckPayload from data.
func DecodeAckPayload(data []byte) (AckPayload, error) {
	r := buffer.NewReader(data)
	v, err := r.ReadUint32()
	if err != nil {
		return AckPayload{}, fmt.Errorf("relay: decode ack payload: %w", err)
	}
	return AckPayload{BytesAcked: v}, nil
}
