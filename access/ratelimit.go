package access

import (
	"net"
	"sync"
	"time"

	"github.com/quantumgate/quantumgate/crypto"
)

// ConnectionAttemptLimiter enforces a rolling per-IP connection attempt
// cap: at most maxPerInterval attempts within any window of length
// interval (spec.md §4.11). Overflow is the caller's cue to block the IP
// and deteriorate its reputation Severely.
type ConnectionAttemptLimiter struct {
	mu             sync.Mutex
	maxPerInterval int
	interval       time.Duration
	timeProvider   crypto.TimeProvider
	attempts       map[string][]time.Time
}

// NewConnectionAttemptLimiter returns a limiter allowing maxPerInterval
// attempts per interval, per IP.
func NewConnectionAttemptLimiter(maxPerInterval int, interval time.Duration, tp crypto.TimeProvider) *ConnectionAttemptLimiter {
	if tp == nil {
		tp = crypto.GetDefaultTimeProvider()
	}
	return &ConnectionAttemptLimiter{
		maxPerInterval: maxPerInterval,
		interval:       interval,
		timeProvider:   tp,
		attempts:       make(map[string][]time.Time),
	}
}

// Allow records a connection attempt from ip and reports whether it is
// within the rolling-window limit.
func (l *ConnectionAttemptLimiter) Allow(ip net.IP) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ip.String()
	now := l.timeProvider.Now()
	cutoff := now.Add(-l.interval)

	kept := l.attempts[key][:0]
	for _, t := range l.attempts[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.attempts[key] = kept

	if len(kept) >= l.maxPerInterval {
		return false
	}
	l.attempts[key] = append(l.attempts[key], now)
	return true
}
