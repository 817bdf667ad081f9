package kex

import "errors"

// ErrTrivialHandshakeData is returned when a received handshake blob is
// all-zero, all-one, or empty — a peer attempting to coax a predictable
// shared secret (spec.md §4.7).
var ErrTrivialHandshakeData = errors.New("kex: trivial handshake data")

// ValidateHandshakeData rejects a handshake blob that is empty,
// all-zero, or all-one, before any shared secret is derived from it.
func ValidateHandshakeData(blob []byte) error {
	if len(blob) == 0 {
		return ErrTrivialHandshakeData
	}
	allZero, allOne := true, true
	for _, b := range blob {
		if b != 0x00 {
			allZero = false
		}
		if b != 0xFF {
			allOne = false
		}
		if !allZero && !allOne {
			return nil
		}
	}
	return ErrTrivialHandshakeData
}
