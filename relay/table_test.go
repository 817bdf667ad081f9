package relay

import (
	"testing"

	"github.com/quantumgate/quantumgate/config"
	"github.com/quantumgate/quantumgate/keyset"
	"github.com/quantumgate/quantumgate/peer"
	"github.com/stretchr/testify/require"
)

func newSession(ep string) *peer.Session {
	return peer.NewSession(ep, keyset.RoleBob, peer.ConnectionInbound, config.Default(), nil)
}

func TestTableCreateIndexesBothLegs(t *testing.T) {
	tbl := NewTable()
	origin := newSession("origin:1")
	dest := newSession("dest:1")

	link := tbl.Create(origin, dest, "origin:1", "dest:1", 1)
	require.Equal(t, 1, tbl.Len())
	require.True(t, origin.Relay)
	require.True(t, dest.Relay)

	got, ok := tbl.Get(link.Port)
	require.True(t, ok)
	require.Same(t, link, got)

	byOrigin, ok := tbl.GetBySession(origin.LUID)
	require.True(t, ok)
	require.Same(t, link, byOrigin)

	byDest, ok := tbl.GetBySession(dest.LUID)
	require.True(t, ok)
	require.Same(t, link, byDest)
}

func TestTableRemoveDropsBothLegs(t *testing.T) {
	tbl := NewTable()
	origin := newSession("origin:2")
	dest := newSession("dest:2")
	link := tbl.Create(origin, dest, "origin:2", "dest:2", 1)

	tbl.Remove(link.Port)
	require.Equal(t, 0, tbl.Len())
	_, ok := tbl.GetBySession(origin.LUID)
	require.False(t, ok)
	_, ok = tbl.GetBySession(dest.LUID)
	require.False(t, ok)
}

func TestLinkOtherSideRejectsUnrelatedSession(t *testing.T) {
	origin := newSession("origin:3")
	dest := newSession("dest:3")
	stranger := newSession("stranger:3")
	link := &Link{Origin: origin, Destination: dest}

	other, err := link.OtherSide(origin)
	require.NoError(t, err)
	require.Same(t, dest, other)

	other, err = link.OtherSide(dest)
	require.NoError(t, err)
	require.Same(t, origin, other)

	_, err = link.OtherSide(stranger)
	require.ErrorIs(t, err, ErrUnknownLeg)
}
