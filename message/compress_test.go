package message

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompressDecompressRoundTripZstandard(t *testing.T) {
	data := bytes.Repeat([]byte("quantumgate "), 200)

	compressed, err := Compress("ZSTANDARD", data)
	require.NoError(t, err)

	decompressed, err := Decompress("ZSTANDARD", compressed)
	require.NoError(t, err)
	require.Equal(t, data, decompressed)
}

func TestCompressNonePassesThrough(t *testing.T) {
	data := []byte("unchanged")
	out, err := Compress("NONE", data)
	require.NoError(t, err)
	require.Equal(t, data, out)

	out, err = Compress("", data)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestCompressRejectsUnknownAlgorithm(t *testing.T) {
	_, err := Compress("LZMA", []byte("x"))
	require.Error(t, err)
}
