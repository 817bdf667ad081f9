package crypto

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// NonceStore tracks handshake-blob fingerprints seen during this
// process's lifetime to prevent replay attacks (spec.md §4.7): an
// attacker capturing one session's handshake blob and replaying it into
// a new session would otherwise coax a duplicate shared secret. The
// window this guards is the handshake timeout, measured in minutes, so
// the store is in-memory only — there is no cross-restart replay surface
// worth persisting to disk here.
//
// Example usage:
//
//	ns := crypto.NewNonceStore()
//	defer ns.Close()
//
//	// Check if nonce is fresh (not a replay)
//	if ns.CheckAndStore(nonce, time.Now().Unix()) {
//	    // Process the message
//	} else {
//	    // Replay attack detected, reject message
//	}
//
// The store is safe for concurrent use and automatically runs a
// background goroutine to clean up expired nonces.
type NonceStore struct {
	mu           sync.RWMutex
	nonces       map[[32]byte]int64 // nonce -> expiry timestamp
	stopChan     chan struct{}
	logger       *logrus.Logger
	timeProvider TimeProvider
}

// NewNonceStore creates an in-memory nonce store.
func NewNonceStore() *NonceStore {
	return NewNonceStoreWithTimeProvider(nil)
}

// NewNonceStoreWithTimeProvider creates a nonce store with a custom
// TimeProvider. Pass nil for timeProvider to use the default time
// provider.
func NewNonceStoreWithTimeProvider(timeProvider TimeProvider) *NonceStore {
	if timeProvider == nil {
		timeProvider = DefaultTimeProvider{}
	}

	ns := &NonceStore{
		nonces:       make(map[[32]byte]int64),
		stopChan:     make(chan struct{}),
		logger:       logrus.StandardLogger(),
		timeProvider: timeProvider,
	}

	go ns.cleanupLoop()

	return ns
}

// CheckAndStore checks if nonce was used and stores it if not.
// Returns true if nonce is new (not a replay), false if replay detected.
func (ns *NonceStore) CheckAndStore(nonce [32]byte, timestamp int64) bool {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	// Check if nonce exists (replay detection)
	if _, exists := ns.nonces[nonce]; exists {
		ns.logger.WithFields(logrus.Fields{
			"nonce":     fmt.Sprintf("%x", nonce[:8]),
			"timestamp": timestamp,
		}).Warn("Replay attack detected: nonce already used")
		return false
	}

	// Calculate expiry (5 minutes handshake window + 1 minute future drift)
	expiry := timestamp + int64((6 * time.Minute).Seconds())
	ns.nonces[nonce] = expiry

	return true
}

// cleanupLoop periodically removes expired nonces.
func (ns *NonceStore) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ns.cleanup()
		case <-ns.stopChan:
			return
		}
	}
}

// cleanup removes expired nonces.
func (ns *NonceStore) cleanup() {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	now := ns.getTimeProvider().Now().Unix()
	removed := 0

	for nonce, expiry := range ns.nonces {
		if expiry < now {
			delete(ns.nonces, nonce)
			removed++
		}
	}

	if removed > 0 {
		ns.logger.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(ns.nonces),
		}).Info("Cleaned up expired nonces")
	}
}

// Close stops the background cleanup goroutine.
func (ns *NonceStore) Close() error {
	close(ns.stopChan)
	return nil
}

// Size returns the current number of stored nonces.
func (ns *NonceStore) Size() int {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return len(ns.nonces)
}

// SetTimeProvider sets the time provider for deterministic testing.
// Pass nil to reset to the default time provider.
func (ns *NonceStore) SetTimeProvider(tp TimeProvider) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if tp == nil {
		tp = DefaultTimeProvider{}
	}
	ns.timeProvider = tp
}

// getTimeProvider returns the time provider, defaulting to
// DefaultTimeProvider if not set.
func (ns *NonceStore) getTimeProvider() TimeProvider {
	if ns.timeProvider == nil {
		return DefaultTimeProvider{}
	}
	return ns.timeProvider
}
