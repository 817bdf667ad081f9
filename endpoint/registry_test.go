package endpoint

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTimeProvider struct{ now time.Time }

func (f *fakeTimeProvider) Now() time.Time                  { return f.now }
func (f *fakeTimeProvider) Since(t time.Time) time.Duration { return f.now.Sub(t) }

func TestReportAccumulatesPorts(t *testing.T) {
	tp := &fakeTimeProvider{now: time.Unix(1000, 0)}
	reg := NewRegistry(10, tp)
	ip := net.ParseIP("203.0.113.5")

	ok, err := reg.Report(ip, ProtocolTCP, 33445, net.ParseIP("10.0.0.1"), false)
	require.NoError(t, err)
	require.True(t, ok)

	e, found := reg.Get(ip)
	require.True(t, found)
	require.True(t, e.HasPort(ProtocolTCP, 33445))
}

func TestReportIgnoresUntrustedSameNetwork(t *testing.T) {
	tp := &fakeTimeProvider{now: time.Unix(1000, 0)}
	reg := NewRegistry(10, tp)
	ip := net.ParseIP("203.0.113.5")

	ok, err := reg.Report(ip, ProtocolTCP, 1, net.ParseIP("10.0.1.1"), false)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = reg.Report(ip, ProtocolTCP, 2, net.ParseIP("10.0.2.2"), false)
	require.NoError(t, err)
	require.False(t, ok, "same /16 as prior untrusted reporter should be ignored")

	e, _ := reg.Get(ip)
	require.False(t, e.HasPort(ProtocolTCP, 2))
}

func TestReportAllowsTrustedFromSameNetwork(t *testing.T) {
	tp := &fakeTimeProvider{now: time.Unix(1000, 0)}
	reg := NewRegistry(10, tp)
	ip := net.ParseIP("203.0.113.5")

	_, err := reg.Report(ip, ProtocolTCP, 1, net.ParseIP("10.0.1.1"), false)
	require.NoError(t, err)

	ok, err := reg.Report(ip, ProtocolTCP, 2, net.ParseIP("10.0.2.2"), true)
	require.NoError(t, err)
	require.True(t, ok, "trusted reporter must be counted even from an already-seen network")

	e, _ := reg.Get(ip)
	require.True(t, e.HasPort(ProtocolTCP, 2))
	require.True(t, e.Trusted)
}

func TestReportCountsDistinctNetworks(t *testing.T) {
	tp := &fakeTimeProvider{now: time.Unix(1000, 0)}
	reg := NewRegistry(10, tp)
	ip := net.ParseIP("203.0.113.5")

	_, err := reg.Report(ip, ProtocolUDP, 1, net.ParseIP("10.0.1.1"), false)
	require.NoError(t, err)
	_, err = reg.Report(ip, ProtocolUDP, 1, net.ParseIP("172.16.5.5"), false)
	require.NoError(t, err)

	e, _ := reg.Get(ip)
	require.Equal(t, 2, e.diversity())
}

func TestRemoveLeastRelevantPrunesInOrder(t *testing.T) {
	tp := &fakeTimeProvider{now: time.Unix(1000, 0)}
	reg := NewRegistry(100, tp)

	ips := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
	for i, s := range ips {
		ip := net.ParseIP(s)
		_, err := reg.Report(ip, ProtocolTCP, 1, net.ParseIP("192.168.0.1"), false)
		require.NoError(t, err)
		tp.now = tp.now.Add(time.Duration(i) * time.Second)
	}
	reg.MarkVerified(net.ParseIP(ips[2]))

	reg.RemoveLeastRelevant(2)
	require.Equal(t, 1, reg.Len())
	e, found := reg.Get(net.ParseIP(ips[2]))
	require.True(t, found)
	require.True(t, e.Verified)
}

func TestReportPrunesOnOverflow(t *testing.T) {
	tp := &fakeTimeProvider{now: time.Unix(1000, 0)}
	reg := NewRegistry(2, tp)

	for i, s := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		_, err := reg.Report(net.ParseIP(s), ProtocolTCP, 1, net.ParseIP("192.168.0.1"), false)
		require.NoError(t, err)
		tp.now = tp.now.Add(time.Duration(i) * time.Second)
	}
	require.Equal(t, 2, reg.Len())
}
