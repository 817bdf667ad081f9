package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAutoGeneratedKeyDeterministic(t *testing.T) {
	k1, err := AutoGeneratedKey(42)
	require.NoError(t, err)
	k2, err := AutoGeneratedKey(42)
	require.NoError(t, err)
	require.Equal(t, k1, k2)
	require.Len(t, k1, 32)
}

func TestAutoGeneratedKeyDiffersBySeed(t *testing.T) {
	k1, err := AutoGeneratedKey(1)
	require.NoError(t, err)
	k2, err := AutoGeneratedKey(2)
	require.NoError(t, err)
	require.NotEqual(t, k1, k2)
}
