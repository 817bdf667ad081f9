package peer

import (
	"testing"

	"github.com/quantumgate/quantumgate/config"
	"github.com/quantumgate/quantumgate/keyset"
	"github.com/stretchr/testify/require"
)

func TestNewSessionInitialState(t *testing.T) {
	s := NewSession("tcp:203.0.113.5:9000", keyset.RoleBob, ConnectionInbound, config.Default(), nil)
	require.Equal(t, StatusInitialized, s.Status())
	require.Equal(t, DeriveLUID("tcp:203.0.113.5:9000"), s.LUID)
	require.NotNil(t, s.KeySet)
	require.NotNil(t, s.Handshake)
	require.NotNil(t, s.KeyUpdate)
	require.NotNil(t, s.InboundReassembler)
	require.NotNil(t, s.Noise)
	require.NotNil(t, s.Rates)
}

func TestSessionSetStatusEnforcesMonotoneOrder(t *testing.T) {
	s := NewSession("ep", keyset.RoleAlice, ConnectionOutbound, config.Default(), nil)
	s.status = StatusConnected

	require.NoError(t, s.SetStatus(StatusMetaExchange))
	require.Equal(t, StatusMetaExchange, s.Status())

	err := s.SetStatus(StatusSessionInit)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, StatusMetaExchange, s.Status())
}

func TestSessionSetStatusAllowsDisconnectFromAnyState(t *testing.T) {
	s := NewSession("ep", keyset.RoleAlice, ConnectionOutbound, config.Default(), nil)
	s.status = StatusMetaExchange
	require.NoError(t, s.SetStatus(StatusDisconnected))
	require.Equal(t, StatusDisconnected, s.Status())

	err := s.SetStatus(StatusConnected)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSessionActivateAndObserveCounters(t *testing.T) {
	s := NewSession("ep", keyset.RoleAlice, ConnectionOutbound, config.Default(), nil)
	require.Nil(t, s.LocalCounter)
	require.Nil(t, s.PeerCounter)

	s.ActivateCounters()
	require.NotNil(t, s.LocalCounter)
	require.Nil(t, s.PeerCounter)
	require.Equal(t, *s.LocalCounter, s.fr.counter)

	s.ObservePeerCounter(42)
	require.NotNil(t, s.PeerCounter)
	require.Equal(t, uint8(42), *s.PeerCounter)

	s.ObservePeerCounter(7)
	require.Equal(t, uint8(42), *s.PeerCounter)
}

func TestSessionDisconnectIsIdempotent(t *testing.T) {
	s := NewSession("ep", keyset.RoleAlice, ConnectionOutbound, config.Default(), nil)
	s.Disconnect(DisconnectTimedOutError)
	require.Equal(t, DisconnectTimedOutError, s.DisconnectCondition)

	s.Disconnect(DisconnectSocketError)
	require.Equal(t, DisconnectTimedOutError, s.DisconnectCondition)
}
