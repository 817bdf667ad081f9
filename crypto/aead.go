package crypto

import (
	"encoding/binary"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/chacha20poly1305"
)

// SymmetricAlgorithm identifies a supported AEAD primitive for meta-exchange
// negotiation (spec.md §4.2).
type SymmetricAlgorithm uint8

const (
	SymmetricChaCha20Poly1305 SymmetricAlgorithm = iota
)

// NonceSize is the size, in bytes, of the AEAD nonce used by every
// supported symmetric algorithm.
const NonceSize = chacha20poly1305.NonceSizeX

// DeriveNonce derives a frame nonce from a 32-bit nonce seed and the
// hash algorithm negotiated for the session (spec.md §2: "nonce derivation
// from a seed+hash"). The seed alone is too short to be a safe AEAD nonce,
// so it is expanded by hashing it alongside the symmetric key's own
// authentication sub-key, binding the nonce to both the frame and the key
// that will be used to open it.
func DeriveNonce(alg HashAlgorithm, authKey []byte, seed uint32) ([]byte, error) {
	var seedBytes [4]byte
	binary.LittleEndian.PutUint32(seedBytes[:], seed)

	sum, err := Sum(alg, append(append([]byte{}, authKey...), seedBytes[:]...))
	if err != nil {
		return nil, err
	}
	if len(sum) < NonceSize {
		return nil, errors.New("crypto: hash output shorter than nonce size")
	}
	return sum[:NonceSize], nil
}

// Seal encrypts and authenticates plaintext under key, using nonce and
// associated data aad, per the AEAD external primitive required by
// spec.md §2.
func Seal(alg SymmetricAlgorithm, key, nonce, aad, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(alg, key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, errors.New("crypto: wrong nonce size")
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open decrypts and verifies ciphertext produced by Seal. A verification
// failure is reported to the caller as an opaque error so that, per
// spec.md §7, it can be treated as a fatal protocol condition without
// leaking which part of the check failed.
func Open(alg SymmetricAlgorithm, key, nonce, aad, ciphertext []byte) ([]byte, error) {
	aead, err := newAEAD(alg, key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, errors.New("crypto: wrong nonce size")
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"package":   "crypto",
			"operation": "aead_open",
		}).Debug("AEAD authentication failed")
		return nil, errors.New("crypto: AEAD authentication failed")
	}
	return plaintext, nil
}

func newAEAD(alg SymmetricAlgorithm, key []byte) (cipherAEAD, error) {
	switch alg {
	case SymmetricChaCha20Poly1305:
		return chacha20poly1305.NewX(key)
	default:
		return nil, errors.New("crypto: unsupported symmetric algorithm")
	}
}

// cipherAEAD is the subset of cipher.AEAD this package relies on.
type cipherAEAD interface {
	NonceSize() int
	Overhead() int
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}
