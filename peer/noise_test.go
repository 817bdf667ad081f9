package peer

import (
	"testing"
	"time"

	"github.com/quantumgate/quantumgate/config"
	"github.com/quantumgate/quantumgate/message"
	"github.com/stretchr/testify/require"
)

func TestNoiseQueueSchedulesAndFires(t *testing.T) {
	settings := config.NoiseSettings{
		Enabled:                true,
		TimeInterval:           10 * time.Millisecond,
		MinMessagesPerInterval: 1,
		MaxMessagesPerInterval: 1,
		MinMessageSize:         8,
		MaxMessageSize:         8,
	}
	q := NewNoiseQueue(settings, 0)

	now := time.Unix(1700000000, 0)
	q.EnsureScheduled(now)
	require.True(t, q.Due(now.Add(11*time.Millisecond)))
	require.True(t, q.Pop())
	require.False(t, q.Pop())
}

func TestNoiseQueueGeneratesUncompressedNoise(t *testing.T) {
	settings := config.NoiseSettings{
		MinMessageSize: 16,
		MaxMessageSize: 32,
	}
	q := NewNoiseQueue(settings, 0)

	m, err := q.GenerateNoiseMessage()
	require.NoError(t, err)
	require.Equal(t, message.KindNoise, m.Kind)
	require.False(t, m.Compressed)
	require.GreaterOrEqual(t, len(m.Data), 16)
	require.LessOrEqual(t, len(m.Data), 32)
}

func TestNoiseQueueHandshakeModeStretchesInterval(t *testing.T) {
	settings := config.NoiseSettings{
		TimeInterval:           10 * time.Second,
		MinMessagesPerInterval: 2,
		MaxMessagesPerInterval: 2,
		MinMessageSize:         8,
		MaxMessageSize:         8,
	}
	q := NewNoiseQueue(settings, 5*time.Second)
	q.SetHandshakeMode(true)

	now := time.Unix(1700000000, 0)
	q.EnsureScheduled(now)
	require.True(t, q.Due(now.Add(10*time.Second)))
}
