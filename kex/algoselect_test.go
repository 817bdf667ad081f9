package kex

import (
	"testing"

	"github.com/quantumgate/quantumgate/config"
	"github.com/stretchr/testify/require"
)

func TestSelectAlgorithmsUsesInboundOrder(t *testing.T) {
	inbound := config.SupportedAlgorithms{
		Hash:                []string{"SHA256", "BLAKE2B512"},
		PrimaryAsymmetric:   []string{"ECDH_X25519"},
		SecondaryAsymmetric: []string{"KEM_X25519"},
		Symmetric:           []string{"CHACHA20_POLY1305"},
		Compression:         []string{"ZSTANDARD", "NONE"},
	}
	outbound := config.SupportedAlgorithms{
		Hash:                []string{"BLAKE2B512", "SHA256"},
		PrimaryAsymmetric:   []string{"ECDH_X25519"},
		SecondaryAsymmetric: []string{"KEM_X25519"},
		Symmetric:           []string{"CHACHA20_POLY1305"},
		Compression:         []string{"NONE", "ZSTANDARD"},
	}

	chosen, err := SelectAlgorithms(inbound, outbound)
	require.NoError(t, err)
	require.Equal(t, "SHA256", chosen.Hash, "inbound lists SHA256 first, so it wins the tie")
	require.Equal(t, "ZSTANDARD", chosen.Compression)
}

func TestSelectAlgorithmsNoCommonHash(t *testing.T) {
	inbound := config.SupportedAlgorithms{Hash: []string{"SHA256"}, PrimaryAsymmetric: []string{"X"}, SecondaryAsymmetric: []string{"X"}, Symmetric: []string{"X"}, Compression: []string{"X"}}
	outbound := config.SupportedAlgorithms{Hash: []string{"BLAKE2B512"}, PrimaryAsymmetric: []string{"X"}, SecondaryAsymmetric: []string{"X"}, Symmetric: []string{"X"}, Compression: []string{"X"}}

	_, err := SelectAlgorithms(inbound, outbound)
	require.ErrorIs(t, err, ErrNoCommonAlgorithm)
}
