package frame

import "github.com/quantumgate/quantumgate/crypto"

// AutoGeneratedKey derives the deterministic, obfuscation-only key used
// before the first real symmetric pair is installed (spec.md §4.3): both
// sides compute the same key from the frame's own nonce seed, so the
// earliest frames are decryptable without having completed any key
// exchange. This defends against passive traffic fingerprinting only —
// it is never treated as a security boundary.
func AutoGeneratedKey(nonceSeed uint32) ([]byte, error) {
	seedBytes := []byte{
		byte(nonceSeed), byte(nonceSeed >> 8), byte(nonceSeed >> 16), byte(nonceSeed >> 24),
	}
	return crypto.DeriveSymmetricMaterial(crypto.HashBLAKE2B512, seedBytes, nil, []byte("quantumgate/auto-key"), 32)
}
