package kex

import (
	"fmt"

	"github.com/quantumgate/quantumgate/buffer"
	"github.com/quantumgate/quantumgate/config"
	"github.com/quantumgate/quantumgate/crypto"
	"github.com/quantumgate/quantumgate/limits"
)

// ProtocolMajor and ProtocolMinor identify the wire protocol version
// advertised during meta exchange (spec.md §4.2).
const (
	ProtocolMajor = 1
	ProtocolMinor = 0
)

// Advertisement is what the inbound side sends to open meta exchange:
// the protocol version plus its five length-prefixed preference vectors,
// each capped at limits.MaxMetaListBytes (spec.md §4.2).
type Advertisement struct {
	ProtocolMajor uint8
	ProtocolMinor uint8
	Algorithms    config.SupportedAlgorithms
}

// NewAdvertisement builds the current protocol version's advertisement
// from algorithms.
func NewAdvertisement(algorithms config.SupportedAlgorithms) Advertisement {
	return Advertisement{
		ProtocolMajor: ProtocolMajor,
		ProtocolMinor: ProtocolMinor,
		Algorithms:    algorithms,
	}
}

func encodeList(w *buffer.Writer, list []string) {
	joined := joinNames(list)
	w.WritePrefixed8(joined)
}

func decodeList(r *buffer.Reader) ([]string, error) {
	raw, err := r.ReadPrefixed8(limits.MaxMetaListBytes)
	if err != nil {
		return nil, err
	}
	return splitNames(raw), nil
}

// Encode serializes the advertisement per spec.md §4.2's
// length-prefixed, capped-at-256-bytes list convention.
func (a Advertisement) Encode() []byte {
	w := buffer.NewWriter(64)
	w.WriteByte(a.ProtocolMajor)
	w.WriteByte(a.ProtocolMinor)
	encodeList(w, a.Algorithms.Hash)
	encodeList(w, a.Algorithms.PrimaryAsymmetric)
	encodeList(w, a.Algorithms.SecondaryAsymmetric)
	encodeList(w, a.Algorithms.Symmetric)
	encodeList(w, a.Algorithms.Compression)
	return w.Bytes()
}

// DecodeAdvertisement parses an Advertisement encoded by Encode.
func DecodeAdvertisement(data []byte) (Advertisement, error) {
	r := buffer.NewReader(data)
	major, err := r.ReadByte()
	if err != nil {
		return Advertisement{}, err
	}
	minor, err := r.ReadByte()
	if err != nil {
		return Advertisement{}, err
	}

	hash, err := decodeList(r)
	if err != nil {
		return Advertisement{}, err
	}
	primary, err := decodeList(r)
	if err != nil {
		return Advertisement{}, err
	}
	secondary, err := decodeList(r)
	if err != nil {
		return Advertisement{}, err
	}
	symmetric, err := decodeList(r)
	if err != nil {
		return Advertisement{}, err
	}
	compression, err := decodeList(r)
	if err != nil {
		return Advertisement{}, err
	}

	return Advertisement{
		ProtocolMajor: major,
		ProtocolMinor: minor,
		Algorithms: config.SupportedAlgorithms{
			Hash:                hash,
			PrimaryAsymmetric:   primary,
			SecondaryAsymmetric: secondary,
			Symmetric:           symmetric,
			Compression:         compression,
		},
	}, nil
}

// EncodeChosenAlgorithms serializes c for the EndMetaExchange reply,
// reusing Advertisement's length-prefixed list encoding with exactly one
// entry per category so the inbound side learns what the outbound side
// settled on (spec.md §4.2).
func EncodeChosenAlgorithms(c ChosenAlgorithms) []byte {
	w := buffer.NewWriter(32)
	encodeList(w, []string{c.Hash})
	encodeList(w, []string{c.PrimaryAsymmetric})
	encodeList(w, []string{c.SecondaryAsymmetric})
	encodeList(w, []string{c.Symmetric})
	encodeList(w, []string{c.Compression})
	return w.Bytes()
}

// DecodeChosenAlgorithms parses an EncodeChosenAlgorithms payload.
func DecodeChosenAlgorithms(data []byte) (ChosenAlgorithms, error) {
	r := buffer.NewReader(data)

	hash, err := decodeList(r)
	if err != nil {
		return ChosenAlgorithms{}, err
	}
	primary, err := decodeList(r)
	if err != nil {
		return ChosenAlgorithms{}, err
	}
	secondary, err := decodeList(r)
	if err != nil {
		return ChosenAlgorithms{}, err
	}
	symmetric, err := decodeList(r)
	if err != nil {
		return ChosenAlgorithms{}, err
	}
	compression, err := decodeList(r)
	if err != nil {
		return ChosenAlgorithms{}, err
	}
	if len(hash) != 1 || len(primary) != 1 || len(secondary) != 1 || len(symmetric) != 1 || len(compression) != 1 {
		return ChosenAlgorithms{}, fmt.Errorf("kex: chosen-algorithms category with != 1 entry")
	}

	return ChosenAlgorithms{
		Hash:                hash[0],
		PrimaryAsymmetric:   primary[0],
		SecondaryAsymmetric: secondary[0],
		Symmetric:           symmetric[0],
		Compression:         compression[0],
	}, nil
}

// HashAlgorithmFor maps a chosen hash algorithm name back to its crypto
// enum, for use once meta exchange has settled the category.
func HashAlgorithmFor(name string) (crypto.HashAlgorithm, error) {
	switch name {
	case "BLAKE2B512":
		return crypto.HashBLAKE2B512, nil
	case "SHA256":
		return crypto.HashSHA256, nil
	default:
		return 0, fmt.Errorf("kex: unknown hash algorithm %q", name)
	}
}

// SymmetricAlgorithmFor maps a chosen symmetric algorithm name back to its
// crypto enum.
func SymmetricAlgorithmFor(name string) (crypto.SymmetricAlgorithm, error) {
	switch name {
	case "CHACHA20_POLY1305":
		return crypto.SymmetricChaCha20Poly1305, nil
	default:
		return 0, fmt.Errorf("kex: unknown symmetric algorithm %q", name)
	}
}

// joinNames and splitNames use a NUL separator, which no algorithm name
// in this module's vocabulary (e.g. "ECDH_X25519") ever contains.
func joinNames(names []string) []byte {
	if len(names) == 0 {
		return nil
	}
	out := []byte(names[0])
	for _, n := range names[1:] {
		out = append(out, 0)
		out = append(out, n...)
	}
	return out
}

func splitNames(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var names []string
	start := 0
	for i, b := range data {
		if b == 0 {
			names = append(names, string(data[start:i]))
			start = i + 1
		}
	}
	names = append(names, string(data[start:]))
	return names
}
