package handshake

import (
	"testing"

	"github.com/quantumgate/quantumgate/keyset"
	"github.com/quantumgate/quantumgate/message"
	"github.com/stretchr/testify/require"
)

func TestFullHandshakeRoundTrip(t *testing.T) {
	alice := NewProcessor(keyset.RoleAlice)
	bob := NewProcessor(keyset.RoleBob)

	kind, ok := alice.Start()
	require.True(t, ok)
	require.Equal(t, message.KindBeginMetaExchange, kind)
	require.Equal(t, StateMetaExchange, alice.State())

	var aliceReady, bobReady bool
	for !aliceReady {
		reply, hasReply, bReady, err := bob.Advance(kind)
		require.NoError(t, err)
		require.True(t, hasReply)
		bobReady = bReady

		var hasNext bool
		kind, hasNext, aliceReady, err = alice.Advance(reply)
		require.NoError(t, err)
		if !aliceReady {
			require.True(t, hasNext)
		}
	}

	require.True(t, bobReady)
	require.Equal(t, StateReady, alice.State())
	require.Equal(t, StateReady, bob.State())
}

func TestBobRejectsOutOfOrderMessage(t *testing.T) {
	bob := NewProcessor(keyset.RoleBob)
	_, _, _, err := bob.Advance(message.KindEndMetaExchange)
	require.ErrorIs(t, err, ErrUnexpectedMessage)
}

func TestAliceRejectsOutOfOrderMessage(t *testing.T) {
	alice := NewProcessor(keyset.RoleAlice)
	_, ok := alice.Start()
	require.True(t, ok)

	_, _, _, err := alice.Advance(message.KindBeginMetaExchange)
	require.ErrorIs(t, err, ErrUnexpectedMessage)
}

func TestStartOnlyWorksForAliceOnce(t *testing.T) {
	bob := NewProcessor(keyset.RoleBob)
	_, ok := bob.Start()
	require.False(t, ok)

	alice := NewProcessor(keyset.RoleAlice)
	_, ok = alice.Start()
	require.True(t, ok)
	_, ok = alice.Start()
	require.False(t, ok)
}

func TestAdvanceAfterReadyErrors(t *testing.T) {
	alice := NewProcessor(keyset.RoleAlice)
	alice.state = StateReady
	_, _, reachedReady, err := alice.Advance(message.KindNoise)
	require.ErrorIs(t, err, ErrHandshakeComplete)
	require.True(t, reachedReady)
}
