package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGSSSeedDeterministicAndBounded(t *testing.T) {
	gss := []byte("a shared secret both peers hold")

	s1, err := GSSSeed(gss)
	require.NoError(t, err)
	s2, err := GSSSeed(gss)
	require.NoError(t, err)
	require.Equal(t, s1, s2)
	require.GreaterOrEqual(t, s1, 0.0)
	require.LessOrEqual(t, s1, 1.0)

	other, err := GSSSeed([]byte("a different shared secret"))
	require.NoError(t, err)
	require.NotEqual(t, s1, other)
}

func TestDeriveDataSizeSettings(t *testing.T) {
	encKey := make([]byte, 32)
	decKey := make([]byte, 32)
	encKey[0], encKey[1], encKey[2], encKey[3] = 0x01, 0x00, 0x00, 0x00
	decKey[0], decKey[1], decKey[2], decKey[3] = 0x03, 0x00, 0x00, 0x00

	settings := DeriveDataSizeSettings(0.5, encKey, decKey)
	require.Equal(t, int(0.5*MaxMessageDataSizeOffset), settings.Offset)
	require.Equal(t, uint32(0x01^0x03), settings.XOR)
}

func TestDeriveDataSizeSettingsShortKeys(t *testing.T) {
	settings := DeriveDataSizeSettings(0.25, []byte{1, 2}, []byte{3, 4})
	require.Equal(t, uint32(0), settings.XOR)
}

func TestFirstRandomPrefixLengthBounds(t *testing.T) {
	require.Equal(t, 0, FirstRandomPrefixLength(0))
	require.Equal(t, 63, FirstRandomPrefixLength(0.999))
}

func TestZeroDataSizeSettings(t *testing.T) {
	require.Equal(t, DataSizeSettings{}, ZeroDataSizeSettings)
}
