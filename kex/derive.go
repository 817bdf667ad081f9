package kex

import (
	"fmt"

	"github.com/quantumgate/quantumgate/crypto"
	"github.com/quantumgate/quantumgate/keyset"
)

// keyMaterialSize is how many derived bytes each directional sub-key
// needs: a symmetric key (32 bytes, chacha20poly1305.KeySize) plus an
// authentication sub-key of equal length.
const keyMaterialSize = 64

// DeriveKeyPair produces the symmetric key pair for one leg ("primary" or
// "secondary") from its shared secret, optionally salted with the Global
// Shared Secret (spec.md §4.2: "HKDF-style derivation from
// primary_shared_secret || global_shared_secret?"). The HKDF info string
// binds to the leg name and epoch so primary/secondary/key-update
// derivations never reuse each other's key stream (spec.md §4.5).
func DeriveKeyPair(hashAlg crypto.HashAlgorithm, symAlg crypto.SymmetricAlgorithm, leg string, epoch uint32, sharedSecret [32]byte, globalSharedSecret []byte) (*keyset.SymmetricKeyPair, error) {
	info := fmt.Sprintf("quantumgate/%s/epoch:%d", leg, epoch)

	encMaterial, err := crypto.DeriveSymmetricMaterial(hashAlg, sharedSecret[:], globalSharedSecret, []byte(info+"/encrypt"), keyMaterialSize)
	if err != nil {
		return nil, fmt.Errorf("kex: deriving %s encrypt material: %w", leg, err)
	}
	decMaterial, err := crypto.DeriveSymmetricMaterial(hashAlg, sharedSecret[:], globalSharedSecret, []byte(info+"/decrypt"), keyMaterialSize)
	if err != nil {
		return nil, fmt.Errorf("kex: deriving %s decrypt material: %w", leg, err)
	}

	half := keyMaterialSize / 2
	enc := keyset.DirectionalKey{
		Key:                encMaterial[:half],
		AuthKey:            encMaterial[half:],
		HashAlgorithm:      hashAlg,
		SymmetricAlgorithm: symAlg,
	}
	dec := keyset.DirectionalKey{
		Key:                decMaterial[:half],
		AuthKey:            decMaterial[half:],
		HashAlgorithm:      hashAlg,
		SymmetricAlgorithm: symAlg,
	}

	return keyset.NewSymmetricKeyPair(enc, dec), nil
}
