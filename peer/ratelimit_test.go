package peer

import (
	"testing"

	"github.com/quantumgate/quantumgate/limits"
	"github.com/quantumgate/quantumgate/message"
	"github.com/stretchr/testify/require"
)

func TestRateWindowCanAddAndAdd(t *testing.T) {
	w := NewRateWindow()
	require.True(t, w.CanAdd(limits.MaxInnerData))
	require.True(t, w.Add(limits.MaxInnerData))
	require.False(t, w.CanAdd(1))
	require.False(t, w.Add(1))
}

func TestRateWindowSubtractFreesBudget(t *testing.T) {
	w := NewRateWindow()
	require.True(t, w.Add(100))
	w.Subtract(40)
	require.True(t, w.CanAdd(limits.MaxInnerData-60))
	require.False(t, w.CanAdd(limits.MaxInnerData-59))
}

func TestRateWindowSubtractClampsAtZero(t *testing.T) {
	w := NewRateWindow()
	require.True(t, w.Add(10))
	w.Subtract(1000)
	require.True(t, w.CanAdd(limits.MaxInnerData))
}

func TestRateLimitsHasAllFiveKinds(t *testing.T) {
	r := NewRateLimits()
	for _, k := range []RateKind{
		RateExtenderCommunicationSend,
		RateExtenderCommunicationReceive,
		RateNoiseSend,
		RateRelayDataSend,
		RateRelayDataReceive,
	} {
		require.NotNil(t, r.Window(k))
	}
}

func TestRateLimitsDeferredQueue(t *testing.T) {
	r := NewRateLimits()
	require.Equal(t, 0, r.PendingDeferred())

	r.Defer(message.Message{Kind: message.KindExtenderCommunication, Data: []byte("a")})
	r.Defer(message.Message{Kind: message.KindExtenderCommunication, Data: []byte("b")})
	require.Equal(t, 2, r.PendingDeferred())

	drained := r.DrainDeferred()
	require.Len(t, drained, 2)
	require.Equal(t, 0, r.PendingDeferred())
}
