package access

import (
	"testing"

	"github.com/quantumgate/quantumgate/quuid"
	"github.com/stretchr/testify/require"
)

func TestPeerListAllowListMode(t *testing.T) {
	list := NewPeerList(false)
	id := quuid.NewExtenderUUID()

	require.False(t, list.IsAllowed(id))
	list.Allow(id, [32]byte{})
	require.True(t, list.IsAllowed(id))
}

func TestPeerListDenyListMode(t *testing.T) {
	list := NewPeerList(true)
	id := quuid.NewExtenderUUID()
	require.True(t, list.IsAllowed(id))

	list.Deny(id)
	require.False(t, list.IsAllowed(id))

	list.Remove(id)
	require.True(t, list.IsAllowed(id))
}

func TestPeerListPinning(t *testing.T) {
	list := NewPeerList(false)
	id := quuid.NewExtenderUUID()
	var key [32]byte
	key[0] = 0x42
	list.Allow(id, key)

	got, pinned := list.PinnedKey(id)
	require.True(t, pinned)
	require.Equal(t, key, got)
}

func TestPeerListNoPinningWhenZeroKey(t *testing.T) {
	list := NewPeerList(false)
	id := quuid.NewExtenderUUID()
	list.Allow(id, [32]byte{})

	_, pinned := list.PinnedKey(id)
	require.False(t, pinned)
}
