package access

import (
	"sync"

	"github.com/quantumgate/quantumgate/quuid"
)

// peerRule is one allow/deny entry, optionally pinned to a specific
// public key (spec.md §4.4: "obtained either from the access plane's
// allow-list (if pinned) or refused (if pinning is required)").
type peerRule struct {
	allowed   bool
	pinned    bool
	publicKey [32]byte
}

// PeerList governs admission and authentication by PeerUUID: whether a
// UUID may connect at all, and if its signing public key is pinned, what
// key it must present.
type PeerList struct {
	mu    sync.RWMutex
	rules map[quuid.UUID]peerRule
	// defaultAllow governs UUIDs with no explicit rule.
	defaultAllow bool
}

// NewPeerList returns a PeerList. When defaultAllow is false, only
// explicitly-allowed UUIDs may connect (allow-list mode); when true,
// every UUID may connect unless explicitly denied (deny-list mode).
func NewPeerList(defaultAllow bool) *PeerList {
	return &PeerList{
		rules:        make(map[quuid.UUID]peerRule),
		defaultAllow: defaultAllow,
	}
}

// Allow admits id, optionally pinning it to publicKey. Pass a zero key to
// allow without pinning.
func (l *PeerList) Allow(id quuid.UUID, publicKey [32]byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var zero [32]byte
	l.rules[id] = peerRule{allowed: true, pinned: publicKey != zero, publicKey: publicKey}
}

// Deny removes admission for id, overriding defaultAllow.
func (l *PeerList) Deny(id quuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rules[id] = peerRule{allowed: false}
}

// Remove clears any explicit rule for id, reverting it to defaultAllow.
func (l *PeerList) Remove(id quuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rules, id)
}

// IsAllowed reports whether id may connect at all.
func (l *PeerList) IsAllowed(id quuid.UUID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rule, ok := l.rules[id]
	if !ok {
		return l.defaultAllow
	}
	return rule.allowed
}

// PinnedKey returns the public key id is pinned to and whether pinning is
// in effect. When pinning is in effect, a presented key that does not
// match must be refused regardless of signature validity.
func (l *PeerList) PinnedKey(id quuid.UUID) (key [32]byte, pinned bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rule, ok := l.rules[id]
	if !ok || !rule.pinned {
		return [32]byte{}, false
	}
	return rule.publicKey, true
}
