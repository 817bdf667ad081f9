package handshake

import (
	"testing"

	"github.com/quantumgate/quantumgate/keyset"
	"github.com/stretchr/testify/require"
)

func TestTranscriptAliceAndBobMirrorEachOther(t *testing.T) {
	alicePrimary := keyset.AsymmetricKeyData{LocalPublicKey: [32]byte{1}, PeerPublicKey: [32]byte{2}, SharedSecret: [32]byte{9}}
	aliceSecondary := keyset.AsymmetricKeyData{LocalPublicKey: [32]byte{3}, PeerPublicKey: [32]byte{4}, SharedSecret: [32]byte{10}}
	bobPrimary := keyset.AsymmetricKeyData{LocalPublicKey: [32]byte{2}, PeerPublicKey: [32]byte{1}, SharedSecret: [32]byte{9}}
	bobSecondary := keyset.AsymmetricKeyData{LocalPublicKey: [32]byte{4}, PeerPublicKey: [32]byte{3}, SharedSecret: [32]byte{10}}

	aliceTranscript := Transcript(keyset.RoleAlice, alicePrimary, aliceSecondary)
	bobTranscript := Transcript(keyset.RoleBob, bobPrimary, bobSecondary)

	require.Equal(t, aliceTranscript, bobTranscript)
}

func TestTranscriptDiffersOnMismatchedSecret(t *testing.T) {
	primary := keyset.AsymmetricKeyData{LocalPublicKey: [32]byte{1}, PeerPublicKey: [32]byte{2}, SharedSecret: [32]byte{9}}
	secondary := keyset.AsymmetricKeyData{LocalPublicKey: [32]byte{3}, PeerPublicKey: [32]byte{4}, SharedSecret: [32]byte{10}}

	t1 := Transcript(keyset.RoleAlice, primary, secondary)

	primary2 := primary
	primary2.SharedSecret = [32]byte{99}
	t2 := Transcript(keyset.RoleAlice, primary2, secondary)

	require.NotEqual(t, t1, t2)
}
