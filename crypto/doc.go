// Package crypto implements the cryptographic primitives QuantumGate's
// peer session subsystem treats as external collaborators (spec.md §2):
// hash, AEAD encrypt/decrypt, asymmetric keypair generation, DH and
// KEM-style shared-secret derivation, Ed25519 signatures, HKDF-based
// symmetric key derivation, and nonce derivation from a seed and a hash
// algorithm.
package crypto
