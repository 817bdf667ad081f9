package kex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateHandshakeDataRejectsEmpty(t *testing.T) {
	require.ErrorIs(t, ValidateHandshakeData(nil), ErrTrivialHandshakeData)
}

func TestValidateHandshakeDataRejectsAllZero(t *testing.T) {
	require.ErrorIs(t, ValidateHandshakeData(make([]byte, 32)), ErrTrivialHandshakeData)
}

func TestValidateHandshakeDataRejectsAllOne(t *testing.T) {
	blob := make([]byte, 32)
	for i := range blob {
		blob[i] = 0xFF
	}
	require.ErrorIs(t, ValidateHandshakeData(blob), ErrTrivialHandshakeData)
}

func TestValidateHandshakeDataAcceptsNormal(t *testing.T) {
	blob := make([]byte, 32)
	blob[5] = 0x42
	require.NoError(t, ValidateHandshakeData(blob))
}
