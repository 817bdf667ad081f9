package handshake

import (
	"github.com/quantumgate/quantumgate/buffer"
	"github.com/quantumgate/quantumgate/keyset"
)

// Transcript builds the key-exchange transcript signed during
// Authentication (spec.md §4.2): primary and secondary are each side's
// own view of its two key-exchange legs (LocalPublicKey/PeerPublicKey
// already hold each side's identity correctly), and role picks the
// concatenation order. The ordering is constructed so that Alice calling
// Transcript(RoleAlice, herPrimary, herSecondary) and Bob calling
// Transcript(RoleBob, hisPrimary, hisSecondary) produce byte-identical
// output — one shared transcript both sides sign and verify, each with
// its own private key (spec.md §4.2: "Alice writes ...; Bob writes the
// mirror").
func Transcript(role keyset.Role, primary, secondary keyset.AsymmetricKeyData) []byte {
	w := buffer.NewWriter(0)

	if role == keyset.RoleAlice {
		w.WriteBytes(primary.LocalPublicKey[:])
		w.WriteBytes(secondary.LocalPublicKey[:])
		w.WriteBytes(primary.PeerPublicKey[:])
		w.WriteBytes(secondary.PeerPublicKey[:])
	} else {
		w.WriteBytes(primary.PeerPublicKey[:])
		w.WriteBytes(secondary.PeerPublicKey[:])
		w.WriteBytes(primary.LocalPublicKey[:])
		w.WriteBytes(secondary.LocalPublicKey[:])
	}

	w.WriteBytes(primary.SharedSecret[:])
	w.WriteBytes(secondary.SharedSecret[:])
	return w.Bytes()
}
