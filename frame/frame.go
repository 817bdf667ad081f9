package frame

import (
	"fmt"

	"github.com/quantumgate/quantumgate/buffer"
	"github.com/quantumgate/quantumgate/crypto"
)

// Build assembles one transport frame: randomPrefix, then header, then
// the AEAD-sealed payload (spec.md §4.3). aad is additional authenticated
// data; callers typically pass the header bytes themselves so the header
// cannot be tampered with independent of the payload.
func Build(randomPrefix []byte, h Header, key []byte, nonce []byte, aad []byte, plaintextPayload []byte) ([]byte, error) {
	ciphertext, err := crypto.Seal(crypto.SymmetricChaCha20Poly1305, key, nonce, aad, plaintextPayload)
	if err != nil {
		return nil, fmt.Errorf("frame: sealing payload: %w", err)
	}
	h.DataSize = uint32(len(ciphertext))

	w := buffer.NewWriter(len(randomPrefix) + HeaderSize + len(ciphertext))
	w.WriteBytes(randomPrefix)
	h.Encode(w)
	w.WriteBytes(ciphertext)
	return w.Bytes(), nil
}

// Extract parses a complete frame (as identified by Peek) starting right
// after its random prefix, and decrypts its payload with key/nonce/aad.
// header-then-ciphertext layout.
func Extract(framedBytes []byte, key []byte, nonce []byte, aad []byte) (Header, []byte, error) {
	r := buffer.NewReader(framedBytes)
	h, err := DecodeHeader(r)
	if err != nil {
		return Header{}, nil, err
	}
	ciphertext, err := r.ReadBytes(int(h.DataSize))
	if err != nil {
		return Header{}, nil, err
	}

	plaintext, err := crypto.Open(crypto.SymmetricChaCha20Poly1305, key, nonce, aad, ciphertext)
	if err != nil {
		return Header{}, nil, fmt.Errorf("frame: opening payload: %w", err)
	}
	return h, plaintext, nil
}
