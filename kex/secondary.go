package kex

import (
	"fmt"
	"time"

	"github.com/quantumgate/quantumgate/crypto"
	"github.com/quantumgate/quantumgate/keyset"
)

// SecondaryLeg drives the secondary (KEM-style) key-exchange leg
// (spec.md §4.2). Alice is the key holder: her public key is the
// handshake blob she sends; Bob's handshake blob back to her is the KEM
// ciphertext, not a public key (spec.md §3: "Asymmetric key data").
type SecondaryLeg struct {
	role  keyset.Role
	alice crypto.KeyPair // only populated on the Alice side
	guard *ReplayGuard
}

// SetReplayGuard wires g into this leg so BobEncapsulate and
// AliceDecapsulate also reject a handshake blob already seen by another
// session (spec.md §4.7). Nil disables the check, which is the
// zero-value behavior.
func (l *SecondaryLeg) SetReplayGuard(g *ReplayGuard) {
	l.guard = g
}

// NewSecondaryLegAlice starts the secondary leg for Alice, using her
// long-term (or handshake-scoped) keypair.
func NewSecondaryLegAlice(aliceKeyPair crypto.KeyPair) *SecondaryLeg {
	return &SecondaryLeg{role: keyset.RoleAlice, alice: aliceKeyPair}
}

// NewSecondaryLegBob starts the secondary leg for Bob, who holds no
// static key of his own for this leg — only Alice's public key, received
// as her handshake blob.
func NewSecondaryLegBob() *SecondaryLeg {
	return &SecondaryLeg{role: keyset.RoleBob}
}

// AliceHandshakeBlob is what Alice sends: her public key.
func (l *SecondaryLeg) AliceHandshakeBlob() []byte {
	return l.alice.Public[:]
}

// BobEncapsulate is run by Bob on receiving Alice's public key: it
// validates the blob, encapsulates against it, and returns both the
// derived shared secret and the ciphertext blob to send back to Alice.
func (l *SecondaryLeg) BobEncapsulate(alicePublicBlob []byte) (keyset.AsymmetricKeyData, []byte, error) {
	if l.role != keyset.RoleBob {
		return keyset.AsymmetricKeyData{}, nil, fmt.Errorf("kex: BobEncapsulate called on a non-Bob leg")
	}
	if err := ValidateHandshakeData(alicePublicBlob); err != nil {
		return keyset.AsymmetricKeyData{}, nil, err
	}
	if l.guard != nil {
		if err := l.guard.Check(alicePublicBlob, time.Now().Unix()); err != nil {
			return keyset.AsymmetricKeyData{}, nil, err
		}
	}
	if len(alicePublicBlob) != 32 {
		return keyset.AsymmetricKeyData{}, nil, fmt.Errorf("kex: secondary handshake blob must be 32 bytes, got %d", len(alicePublicBlob))
	}

	var alicePub [32]byte
	copy(alicePub[:], alicePublicBlob)

	ciphertext, shared, err := crypto.KEMEncapsulate(alicePub)
	if err != nil {
		return keyset.AsymmetricKeyData{}, nil, fmt.Errorf("kex: KEM encapsulation: %w", err)
	}

	data := keyset.AsymmetricKeyData{
		Algorithm:      "KEM_X25519",
		Role:           keyset.RoleBob,
		LocalPublicKey: ciphertext, // the ciphertext Bob sends back; he has no static key for this leg
		PeerPublicKey:  alicePub,
		SharedSecret:   shared,
	}
	return data, ciphertext[:], nil
}

// AliceDecapsulate is run by Alice on receiving Bob's ciphertext blob.
func (l *SecondaryLeg) AliceDecapsulate(ciphertextBlob []byte) (keyset.AsymmetricKeyData, error) {
	if l.role != keyset.RoleAlice {
		return keyset.AsymmetricKeyData{}, fmt.Errorf("kex: AliceDecapsulate called on a non-Alice leg")
	}
	if err := ValidateHandshakeData(ciphertextBlob); err != nil {
		return keyset.AsymmetricKeyData{}, err
	}
	if l.guard != nil {
		if err := l.guard.Check(ciphertextBlob, time.Now().Unix()); err != nil {
			return keyset.AsymmetricKeyData{}, err
		}
	}
	if len(ciphertextBlob) != 32 {
		return keyset.AsymmetricKeyData{}, fmt.Errorf("kex: secondary ciphertext blob must be 32 bytes, got %d", len(ciphertextBlob))
	}

	var ciphertext crypto.KEMCiphertext
	copy(ciphertext[:], ciphertextBlob)

	shared, err := crypto.KEMDecapsulate(l.alice.Private, ciphertext)
	if err != nil {
		return keyset.AsymmetricKeyData{}, fmt.Errorf("kex: KEM decapsulation: %w", err)
	}

	return keyset.AsymmetricKeyData{
		Algorithm:      "KEM_X25519",
		Role:           keyset.RoleAlice,
		LocalPublicKey: l.alice.Public,
		PeerPublicKey:  ciphertext,
		SharedSecret:   shared,
	}, nil
}
