package access

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubnetLimitsEnforcesCap(t *testing.T) {
	limits := NewSubnetLimits([]SubnetLimit{
		{Family: "ip4", LeadingBits: 24, MaxConns: 2},
	})

	ip1 := net.ParseIP("10.0.1.1")
	ip2 := net.ParseIP("10.0.1.2")
	ip3 := net.ParseIP("10.0.1.3")

	ok, err := limits.CanAcceptConnection(ip1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, limits.AddConnection(ip1))

	ok, err = limits.CanAcceptConnection(ip2)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, limits.AddConnection(ip2))

	ok, err = limits.CanAcceptConnection(ip3)
	require.NoError(t, err)
	require.False(t, ok, "bucket should be at cap")
}

func TestSubnetLimitsDrainOnRemove(t *testing.T) {
	limits := NewSubnetLimits([]SubnetLimit{
		{Family: "ip4", LeadingBits: 24, MaxConns: 1},
	})
	ip1 := net.ParseIP("172.16.0.1")
	ip2 := net.ParseIP("172.16.0.2")

	require.NoError(t, limits.AddConnection(ip1))
	ok, _ := limits.CanAcceptConnection(ip2)
	require.False(t, ok)

	require.NoError(t, limits.RemoveConnection(ip1))
	ok, _ = limits.CanAcceptConnection(ip2)
	require.True(t, ok)
}

func TestSubnetLimitsIgnoresOtherFamily(t *testing.T) {
	limits := NewSubnetLimits([]SubnetLimit{
		{Family: "ip6", LeadingBits: 48, MaxConns: 0},
	})
	ok, err := limits.CanAcceptConnection(net.ParseIP("10.0.0.1"))
	require.NoError(t, err)
	require.True(t, ok)
}
