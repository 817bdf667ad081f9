package keyset

// Role is which side of a DH/KEM leg a participant plays. Alice always
// holds the static key the leg is anchored to; Bob is the responder
// (spec.md §4.2: "Alice is the key holder", "Bob will return an
// encapsulated ciphertext").
type Role int

const (
	RoleAlice Role = iota
	RoleBob
)

// AsymmetricKeyData is the output of one key-exchange leg (spec.md §3):
// the algorithm used, which role the local side played, the local and
// peer public keys (for KEM, the ciphertext Bob sends back to Alice takes
// the place of Bob's public key: Alice's PeerPublicKey and Bob's
// LocalPublicKey), and the derived shared secret.
type AsymmetricKeyData struct {
	Algorithm      string
	Role           Role
	LocalPublicKey [32]byte
	PeerPublicKey  [32]byte
	SharedSecret   [32]byte
}
