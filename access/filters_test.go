package access

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustCIDR(t *testing.T, s string) *net.IPNet {
	t.Helper()
	_, n, err := net.ParseCIDR(s)
	require.NoError(t, err)
	return n
}

func TestIPFiltersBlockOverridesDefault(t *testing.T) {
	f := NewIPFilters()
	require.NoError(t, f.AddBlock(mustCIDR(t, "10.0.0.0/8")))

	allowed, err := f.IsAllowed(net.ParseIP("10.1.2.3"))
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = f.IsAllowed(net.ParseIP("192.168.1.1"))
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestIPFiltersAllowOverridesBlock(t *testing.T) {
	f := NewIPFilters()
	require.NoError(t, f.AddBlock(mustCIDR(t, "10.0.0.0/8")))
	require.NoError(t, f.AddAllow(mustCIDR(t, "10.1.0.0/16")))

	allowed, err := f.IsAllowed(net.ParseIP("10.1.2.3"))
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = f.IsAllowed(net.ParseIP("10.2.2.3"))
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestCreateMaskRejectsOutOfRange(t *testing.T) {
	_, err := CreateMask("ip4", 33)
	require.Error(t, err)
	_, err = CreateMask("ip6", 129)
	require.Error(t, err)
	_, err = CreateMask("ip5", 8)
	require.Error(t, err)
}
