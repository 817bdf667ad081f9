package keyset

import (
	"sync"
	"time"

	"github.com/quantumgate/quantumgate/limits"
)

// KeySet holds a peer's symmetric key pairs in most-recent-first order:
// the most recently inserted pair is the first tried for encryption, and
// decryption tries candidates in the same newest-first order (spec.md
// §3). At most limits.MaxSymmetricKeyPairs are retained; inserting past
// the cap evicts the oldest.
type KeySet struct {
	mu    sync.RWMutex
	pairs []*SymmetricKeyPair // index 0 is newest
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{}
}

// Insert adds pair as the newest entry, evicting the oldest if the set is
// already at capacity.
func (s *KeySet) Insert(pair *SymmetricKeyPair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pairs = append([]*SymmetricKeyPair{pair}, s.pairs...)
	if len(s.pairs) > limits.MaxSymmetricKeyPairs {
		s.pairs = s.pairs[:limits.MaxSymmetricKeyPairs]
	}
}

// Len returns the number of pairs currently held.
func (s *KeySet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pairs)
}

// EncryptionKey returns the newest pair still usable for encryption, or
// nil if none qualifies.
func (s *KeySet) EncryptionKey(now time.Time) *SymmetricKeyPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.pairs {
		if p.UsableForEncryption(now) {
			return p
		}
	}
	return nil
}

// DecryptionCandidates returns every pair usable for decryption, newest
// first, for the receive path to try in order (spec.md §4.4: "iterate
// candidate decryption keys from newest to oldest").
func (s *KeySet) DecryptionCandidates(now time.Time) []*SymmetricKeyPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*SymmetricKeyPair, 0, len(s.pairs))
	for _, p := range s.pairs {
		if p.UsableForDecryption(now) {
			out = append(out, p)
		}
	}
	return out
}
