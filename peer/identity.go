package peer

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/quantumgate/quantumgate/quuid"
)

// Identity is a node's long-term Ed25519 signing key pair and the Peer
// UUID bound to it (spec.md §4.4). A node holds exactly one Identity and
// every session it drives authenticates against it during the
// Authentication phase.
type Identity struct {
	UUID           quuid.UUID
	SigningPrivate [32]byte
	SigningPublic  [32]byte
}

// NewIdentity generates a fresh Ed25519 identity and derives its Peer
// UUID from the public key.
func NewIdentity() (Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Identity{}, fmt.Errorf("peer: generating identity key: %w", err)
	}

	var id Identity
	copy(id.SigningPublic[:], pub)
	copy(id.SigningPrivate[:], priv.Seed())

	uuidVal, err := quuid.NewPeerUUID(id.SigningPublic, quuid.SignatureEd25519)
	if err != nil {
		return Identity{}, fmt.Errorf("peer: deriving peer UUID: %w", err)
	}
	id.UUID = uuidVal
	return id, nil
}
