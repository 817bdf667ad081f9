package kex

import (
	"errors"

	"github.com/quantumgate/quantumgate/crypto"
)

// ErrReplayedHandshakeData is returned when a handshake blob has already
// been seen before, within its store's replay window.
var ErrReplayedHandshakeData = errors.New("kex: replayed handshake data")

// ReplayGuard rejects a handshake blob (primary public key, secondary
// public key, or KEM ciphertext) seen once already, defending against an
// attacker replaying a captured handshake message into a new session.
type ReplayGuard struct {
	store *crypto.NonceStore
}

// NewReplayGuard wraps an existing in-memory NonceStore to guard
// handshake blobs rather than frame nonces.
func NewReplayGuard(store *crypto.NonceStore) *ReplayGuard {
	return &ReplayGuard{store: store}
}

// Check hashes blob to a 32-byte fingerprint and records it, rejecting a
// repeat. timestamp should be the current handshake-relative time in
// Unix seconds.
func (g *ReplayGuard) Check(blob []byte, timestamp int64) error {
	sum, err := crypto.Sum(crypto.HashBLAKE2B512, blob)
	if err != nil {
		return err
	}
	var fingerprint [32]byte
	copy(fingerprint[:], sum)

	if !g.store.CheckAndStore(fingerprint, timestamp) {
		return ErrReplayedHandshakeData
	}
	return nil
}
