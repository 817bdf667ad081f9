package relay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreatePayloadRoundTrip(t *testing.T) {
	p := CreatePayload{Endpoint: "203.0.113.9:9000", Hops: 3}
	got, err := DecodeCreatePayload(p.Encode())
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestCreatePayloadRoundTripEmptyEndpoint(t *testing.T) {
	p := CreatePayload{Endpoint: "", Hops: 1}
	got, err := DecodeCreatePayload(p.Encode())
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestStatusPayloadRoundTrip(t *testing.T) {
	for _, code := range []StatusCode{StatusConnecting, StatusConnected, StatusDisconnected} {
		got, err := DecodeStatusPayload(StatusPayload{Code: code}.Encode())
		require.NoError(t, err)
		require.Equal(t, code, got.Code)
	}
}

func TestStatusPayloadRejectsWrongLength(t *testing.T) {
	_, err := DecodeStatusPayload([]byte{1, 2})
	require.Error(t, err)
}

func TestAckPayloadRoundTrip(t *testing.T) {
	p := AckPayload{BytesAcked: 123456}
	got, err := DecodeAckPayload(p.Encode())
	require.NoError(t, err)
	require.Equal(t, p, got)
}
