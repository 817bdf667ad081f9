package crypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/curve25519"
)

// KEMCiphertext is what Bob sends back to Alice for the secondary,
// KEM-style leg of the key exchange (spec.md §3, §4.2: "For KEM, Bob's
// 'public key' slot holds the ciphertext he sends to Alice").
//
// No production-grade post-quantum KEM is wired into this module's
// dependency set (see DESIGN.md); this wraps X25519 in the standard
// ephemeral-DH-as-KEM construction so the rest of the pipeline (symmetric
// key derivation, role asymmetry, transcript hashing) is exercised exactly
// as the spec describes, with the algorithm tag kept distinct from the
// primary DH leg so a real PQ KEM can be swapped in behind this same
// interface later.
type KEMCiphertext [32]byte

// KEMEncapsulate is run by Bob: given Alice's static public key, it
// generates an ephemeral key pair, derives the shared secret against
// Alice's public key, and returns the ciphertext (the ephemeral public
// key) that Alice needs to derive the same secret.
func KEMEncapsulate(alicePublic [32]byte) (ciphertext KEMCiphertext, sharedSecret [32]byte, err error) {
	var ephemeralPriv [32]byte
	if _, err = rand.Read(ephemeralPriv[:]); err != nil {
		return KEMCiphertext{}, [32]byte{}, err
	}

	kp, err := FromSecretKey(ephemeralPriv)
	if err != nil {
		return KEMCiphertext{}, [32]byte{}, err
	}
	ZeroBytes(ephemeralPriv[:])

	secret, err := curve25519.X25519(kp.Private[:], alicePublic[:])
	if err != nil {
		return KEMCiphertext{}, [32]byte{}, err
	}

	copy(ciphertext[:], kp.Public[:])
	copy(sharedSecret[:], secret)
	ZeroBytes(kp.Private[:])
	ZeroBytes(secret)
	return ciphertext, sharedSecret, nil
}

// KEMDecapsulate is run by Alice: given her static private key and Bob's
// ciphertext (his ephemeral public key), it recovers the shared secret.
func KEMDecapsulate(alicePrivate [32]byte, ciphertext KEMCiphertext) ([32]byte, error) {
	secret, err := curve25519.X25519(alicePrivate[:], ciphertext[:])
	if err != nil {
		return [32]byte{}, err
	}
	if len(secret) != 32 {
		return [32]byte{}, errors.New("crypto: unexpected shared secret length")
	}
	var out [32]byte
	copy(out[:], secret)
	ZeroBytes(secret)
	return out, nil
}
