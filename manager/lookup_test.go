package manager

import (
	"net"
	"testing"

	"github.com/quantumgate/quantumgate/config"
	"github.com/quantumgate/quantumgate/keyset"
	"github.com/quantumgate/quantumgate/peer"
	"github.com/quantumgate/quantumgate/quuid"
	"github.com/stretchr/testify/require"
)

func newTestSession(addr string, connType peer.ConnectionType) *peer.Session {
	role := keyset.RoleBob
	if connType == peer.ConnectionOutbound {
		role = keyset.RoleAlice
	}
	return peer.NewSession(addr, role, connType, config.Default(), nil)
}

// advanceToReady drives s through every legitimate handshake transition up
// to Ready, the way the real handshake processor would over time.
func advanceToReady(t *testing.T, s *peer.Session) {
	t.Helper()
	for _, next := range []peer.Status{
		peer.StatusConnecting,
		peer.StatusConnected,
		peer.StatusMetaExchange,
		peer.StatusPrimaryKeyExchange,
		peer.StatusSecondaryKeyExchange,
		peer.StatusAuthentication,
		peer.StatusSessionInit,
		peer.StatusReady,
	} {
		require.NoError(t, s.SetStatus(next))
	}
}

func TestLookupMapsAddGetRemove(t *testing.T) {
	m := NewLookupMaps()
	s := newTestSession("10.0.0.1:9000", peer.ConnectionInbound)
	m.Add(s, "10.0.0.1:9000")

	got, ok := m.Get(s.LUID)
	require.True(t, ok)
	require.Same(t, s, got)

	require.Len(t, m.GetPeerByEndpoint("10.0.0.1:9000"), 1)
	require.Equal(t, 1, m.Len())

	m.Remove(s.LUID)
	_, ok = m.Get(s.LUID)
	require.False(t, ok)
	require.Equal(t, 0, m.Len())
	require.Empty(t, m.GetPeerByEndpoint("10.0.0.1:9000"))
}

func TestLookupMapsAddressFor(t *testing.T) {
	m := NewLookupMaps()
	s := newTestSession("10.0.0.9:9000", peer.ConnectionInbound)
	m.Add(s, "10.0.0.9:9000")

	addr, ok := m.AddressFor(s.LUID)
	require.True(t, ok)
	require.Equal(t, "10.0.0.9:9000", addr)

	m.Remove(s.LUID)
	_, ok = m.AddressFor(s.LUID)
	require.False(t, ok)
}

func TestLookupMapsSetPeerUUIDAndRemoveCleansIndex(t *testing.T) {
	m := NewLookupMaps()
	s := newTestSession("10.0.0.2:9000", peer.ConnectionInbound)
	m.Add(s, "10.0.0.2:9000")

	pub, err := quuid.NewPeerUUID([32]byte{1}, quuid.SignatureEd25519)
	require.NoError(t, err)
	s.PeerUUID = pub
	m.SetPeerUUID(s.LUID, pub)

	m.Remove(s.LUID)
	_, ok := m.Get(s.LUID)
	require.False(t, ok)
	require.Empty(t, m.byUUID)
}

func TestQueryPeersModes(t *testing.T) {
	m := NewLookupMaps()
	in := newTestSession("10.0.0.3:1", peer.ConnectionInbound)
	out := newTestSession("10.0.0.4:1", peer.ConnectionOutbound)
	m.Add(in, "10.0.0.3:1")
	m.Add(out, "10.0.0.4:1")

	inbound := peer.ConnectionInbound
	results := m.QueryPeers(QueryParams{ConnectionType: &inbound, Mode: ModeAllOf})
	require.Len(t, results, 1)
	require.Equal(t, in.LUID, results[0].LUID)

	results = m.QueryPeers(QueryParams{ConnectionType: &inbound, Mode: ModeNoneOf})
	require.Len(t, results, 1)
	require.Equal(t, out.LUID, results[0].LUID)
}

func TestGetRandomPeerExcludesAndRequiresReady(t *testing.T) {
	m := NewLookupMaps()
	ready := newTestSession("10.0.1.1:1", peer.ConnectionInbound)
	advanceToReady(t, ready)
	notReady := newTestSession("10.0.1.2:1", peer.ConnectionInbound)
	m.Add(ready, "10.0.1.1:1")
	m.Add(notReady, "10.0.1.2:1")

	s, err := m.GetRandomPeer(nil, nil, nil, 24, 128)
	require.NoError(t, err)
	require.Equal(t, ready.LUID, s.LUID)
}

func TestGetRandomPeerReturnsNotFoundWhenEmpty(t *testing.T) {
	m := NewLookupMaps()
	_, err := m.GetRandomPeer(nil, nil, nil, 24, 128)
	require.ErrorIs(t, err, ErrPeerNotFound)
}

func TestGetRandomPeerHonorsExcludedNetwork(t *testing.T) {
	m := NewLookupMaps()
	ready := newTestSession("10.0.1.1:1", peer.ConnectionInbound)
	advanceToReady(t, ready)
	m.Add(ready, "10.0.1.1:1")

	_, excluded, err := net.ParseCIDR("10.0.1.0/24")
	require.NoError(t, err)

	_, err = m.GetRandomPeer(nil, []*net.IPNet{excluded}, nil, 24, 128)
	require.ErrorIs(t, err, ErrPeerNotFound)
}
