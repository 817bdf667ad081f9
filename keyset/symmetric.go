package keyset

import (
	"time"

	"github.com/quantumgate/quantumgate/crypto"
)

// DirectionalKey is one direction (encrypt or decrypt) of a symmetric key
// pair (spec.md §3): a derived key, an authentication sub-key, the
// algorithm tags it was derived for, and a running processed-bytes
// counter that feeds the key-update trigger (spec.md §4.5,
// RequireAfterNumProcessedBytes).
type DirectionalKey struct {
	Key                  []byte
	AuthKey              []byte
	HashAlgorithm        crypto.HashAlgorithm
	SymmetricAlgorithm   crypto.SymmetricAlgorithm
	CompressionAlgorithm string
	NumBytesProcessed    uint64
}

// AddProcessed accumulates n bytes of traffic against this direction's
// counter.
func (k *DirectionalKey) AddProcessed(n int) {
	k.NumBytesProcessed += uint64(n)
}

// SymmetricKeyPair is one derived primary or secondary key pair (spec.md
// §3): directional encrypt/decrypt sub-keys, usage flags, and an optional
// expiration with a fixed grace period during which a just-expired pair
// remains acceptable for decryption only.
type SymmetricKeyPair struct {
	Encryption       DirectionalKey
	Decryption       DirectionalKey
	UseForEncryption bool
	UseForDecryption bool

	expiresAt   time.Time
	hasExpiry   bool
	gracePeriod time.Duration
}

// NewSymmetricKeyPair returns a pair usable for both directions with no
// expiration set.
func NewSymmetricKeyPair(enc, dec DirectionalKey) *SymmetricKeyPair {
	return &SymmetricKeyPair{
		Encryption:       enc,
		Decryption:       dec,
		UseForEncryption: true,
		UseForDecryption: true,
	}
}

// SetExpiration marks this pair to expire at expiresAt, after which it
// remains valid for decryption only until expiresAt+gracePeriod.
func (p *SymmetricKeyPair) SetExpiration(expiresAt time.Time, gracePeriod time.Duration) {
	p.expiresAt = expiresAt
	p.hasExpiry = true
	p.gracePeriod = gracePeriod
}

// IsExpired reports whether now is past this pair's expiration, if any
// was set.
func (p *SymmetricKeyPair) IsExpired(now time.Time) bool {
	return p.hasExpiry && now.After(p.expiresAt)
}

// IsWithinGracePeriod reports whether now is past expiration but still
// within the grace window, during which the pair remains acceptable for
// decryption even though it should no longer be chosen for encryption.
func (p *SymmetricKeyPair) IsWithinGracePeriod(now time.Time) bool {
	if !p.hasExpiry || !now.After(p.expiresAt) {
		return false
	}
	return now.Before(p.expiresAt.Add(p.gracePeriod))
}

// UsableForDecryption reports whether this pair may still be tried for
// decryption: it was enabled for decryption and either never expired or
// is still within its grace period.
func (p *SymmetricKeyPair) UsableForDecryption(now time.Time) bool {
	if !p.UseForDecryption {
		return false
	}
	if !p.hasExpiry {
		return true
	}
	return !p.IsExpired(now) || p.IsWithinGracePeriod(now)
}

// UsableForEncryption reports whether this pair may be chosen for the
// next outbound frame: enabled for encryption and not expired (grace
// period does not extend encryption eligibility).
func (p *SymmetricKeyPair) UsableForEncryption(now time.Time) bool {
	return p.UseForEncryption && !p.IsExpired(now)
}
