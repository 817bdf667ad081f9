package kex

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/flynn/noise"
	"github.com/quantumgate/quantumgate/crypto"
	"github.com/quantumgate/quantumgate/keyset"
)

// PrimaryLeg drives the primary (DH) key-exchange leg (spec.md §4.2).
// Key generation is delegated to flynn/noise's DH25519 function set;
// the actual shared-secret computation reuses this module's own X25519
// implementation (crypto.DeriveSharedSecret) rather than noise's DH
// output, so the two dependencies are exercised without doubling up on
// who is trusted to get the curve math right.
type PrimaryLeg struct {
	keyPair noise.DHKey
	role    keyset.Role
	guard   *ReplayGuard
}

// NewPrimaryLeg generates a fresh ephemeral X25519 keypair for this leg.
func NewPrimaryLeg(role keyset.Role) (*PrimaryLeg, error) {
	kp, err := noise.DH25519.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("kex: generating primary keypair: %w", err)
	}
	return &PrimaryLeg{keyPair: kp, role: role}, nil
}

// SetReplayGuard wires g into this leg so DeriveSharedSecret also
// rejects a handshake blob already seen by another session (spec.md
// §4.7). Nil disables the check, which is the zero-value behavior.
func (l *PrimaryLeg) SetReplayGuard(g *ReplayGuard) {
	l.guard = g
}

// HandshakeBlob is the bytes this side sends as its primary handshake
// message: its public key.
func (l *PrimaryLeg) HandshakeBlob() []byte {
	return l.keyPair.Public
}

// DeriveSharedSecret validates the peer's handshake blob and derives the
// shared secret against this leg's private key.
func (l *PrimaryLeg) DeriveSharedSecret(peerBlob []byte) (keyset.AsymmetricKeyData, error) {
	if err := ValidateHandshakeData(peerBlob); err != nil {
		return keyset.AsymmetricKeyData{}, err
	}
	if l.guard != nil {
		if err := l.guard.Check(peerBlob, time.Now().Unix()); err != nil {
			return keyset.AsymmetricKeyData{}, err
		}
	}
	if len(peerBlob) != 32 {
		return keyset.AsymmetricKeyData{}, fmt.Errorf("kex: primary handshake blob must be 32 bytes, got %d", len(peerBlob))
	}

	var localPriv, peerPub [32]byte
	copy(localPriv[:], l.keyPair.Private)
	copy(peerPub[:], peerBlob)

	shared, err := crypto.DeriveSharedSecret(peerPub, localPriv)
	if err != nil {
		return keyset.AsymmetricKeyData{}, fmt.Errorf("kex: deriving primary shared secret: %w", err)
	}

	var localPub [32]byte
	copy(localPub[:], l.keyPair.Public)

	return keyset.AsymmetricKeyData{
		Algorithm:      "ECDH_X25519",
		Role:           l.role,
		LocalPublicKey: localPub,
		PeerPublicKey:  peerPub,
		SharedSecret:   shared,
	}, nil
}
