package crypto

import (
	"crypto/sha256"
	"errors"
	"hash"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

// HashAlgorithm identifies a supported hash primitive for meta-exchange
// negotiation (spec.md §4.2).
type HashAlgorithm uint8

const (
	HashBLAKE2B512 HashAlgorithm = iota
	HashSHA256
)

// Sum hashes data with the given algorithm.
func Sum(alg HashAlgorithm, data []byte) ([]byte, error) {
	switch alg {
	case HashBLAKE2B512:
		sum := blake2b.Sum512(data)
		return sum[:], nil
	case HashSHA256:
		sum := sha256.Sum256(data)
		return sum[:], nil
	default:
		return nil, errors.New("crypto: unsupported hash algorithm")
	}
}

// DeriveSymmetricMaterial derives n bytes of key material from a shared
// secret using HKDF, matching spec.md §2's "symmetric key derivation from a
// secret" external primitive. info binds the derived material to its
// purpose (e.g. "primary", "secondary", a key-update epoch) so that primary
// and secondary legs never collide.
func DeriveSymmetricMaterial(alg HashAlgorithm, secret, salt, info []byte, n int) ([]byte, error) {
	reader := hkdf.New(hashCtor(alg), secret, salt, info)
	out := make([]byte, n)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}

// hashCtor returns a constructor for the hash.Hash matching alg, for use
// with hkdf.New.
func hashCtor(alg HashAlgorithm) func() hash.Hash {
	switch alg {
	case HashBLAKE2B512:
		return func() hash.Hash {
			h, _ := blake2b.New512(nil)
			return h
		}
	default:
		return sha256.New
	}
}
