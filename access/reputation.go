package access

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/quantumgate/quantumgate/crypto"
)

// Reputation score bounds and base, per spec.md §4.11.
const (
	MinScore  = -3000
	MaxScore  = 3000
	BaseScore = 0
)

// Severity names the magnitude of a reputation update. Concrete deltas
// are implementation constants (spec.md §9 Open Question 3); these
// satisfy Severe > Moderate > Minimal > 0 and let a single Severe event
// recover within tens of IPReputationImprovementInterval ticks.
type Severity int

const (
	SeverityMinimal Severity = iota
	SeverityModerate
	SeveritySevere
)

// Direction is whether an update nudges the score up or down.
type Direction int

const (
	DirectionImprove Direction = iota
	DirectionDeteriorate
)

func delta(sev Severity) int {
	switch sev {
	case SeverityModerate:
		return 25
	case SeveritySevere:
		return 50
	default:
		return 1
	}
}

type reputationEntry struct {
	score        int
	lastUpdate   time.Time
	lastImproved time.Time
}

// IPReputation tracks a score in [MinScore, MaxScore] per IP, with a
// lazily-applied time-decay improvement: on every read, elapsed whole
// IPReputationImprovementInterval ticks since the last improvement each
// add ImproveMinimal, clamped to MaxScore. State lives only in memory for
// the life of the process (spec.md §4.11).
type IPReputation struct {
	mu              sync.Mutex
	entries         map[string]*reputationEntry
	improveInterval time.Duration
	timeProvider    crypto.TimeProvider
}

// NewIPReputation returns an IPReputation that applies a lazy +1 recovery
// every improveInterval.
func NewIPReputation(improveInterval time.Duration, tp crypto.TimeProvider) *IPReputation {
	if tp == nil {
		tp = crypto.GetDefaultTimeProvider()
	}
	return &IPReputation{
		entries:         make(map[string]*reputationEntry),
		improveInterval: improveInterval,
		timeProvider:    tp,
	}
}

func (r *IPReputation) entryFor(ip net.IP) *reputationEntry {
	key := ip.String()
	e, ok := r.entries[key]
	if !ok {
		now := r.timeProvider.Now()
		e = &reputationEntry{score: MaxScore, lastUpdate: now, lastImproved: now}
		r.entries[key] = e
	}
	return e
}

// applyDecay must be called with the lock held.
func (r *IPReputation) applyDecay(e *reputationEntry) {
	if r.improveInterval <= 0 {
		return
	}
	now := r.timeProvider.Now()
	elapsed := now.Sub(e.lastImproved)
	ticks := int(elapsed / r.improveInterval)
	if ticks <= 0 {
		return
	}
	e.score += ticks * delta(SeverityMinimal)
	if e.score > MaxScore {
		e.score = MaxScore
	}
	e.lastImproved = e.lastImproved.Add(time.Duration(ticks) * r.improveInterval)
}

// Score returns ip's current reputation score, after applying any owed
// time-decay improvement.
func (r *IPReputation) Score(ip net.IP) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entryFor(ip)
	r.applyDecay(e)
	return e.score
}

// IsAcceptable reports whether ip's score is at or above BaseScore.
func (r *IPReputation) IsAcceptable(ip net.IP) bool {
	return r.Score(ip) >= BaseScore
}

// Update applies a severity-scaled delta in the given direction, clamped
// to [MinScore, MaxScore].
func (r *IPReputation) Update(ip net.IP, dir Direction, sev Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entryFor(ip)
	r.applyDecay(e)

	d := delta(sev)
	if dir == DirectionDeteriorate {
		d = -d
	}
	e.score += d
	if e.score > MaxScore {
		e.score = MaxScore
	}
	if e.score < MinScore {
		e.score = MinScore
	}
	e.lastUpdate = r.timeProvider.Now()
	return e.score
}

// ResetReputation sets ip's score back to MaxScore.
func (r *IPReputation) ResetReputation(ip net.IP) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.timeProvider.Now()
	r.entries[ip.String()] = &reputationEntry{score: MaxScore, lastUpdate: now, lastImproved: now}
}

// SetReputation forces ip's score and last-update time directly, used for
// restoring persisted state. It rejects a lastUpdate timestamp in the
// future.
func (r *IPReputation) SetReputation(ip net.IP, score int, lastUpdate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lastUpdate.After(r.timeProvider.Now()) {
		return fmt.Errorf("access: SetReputation last-update time %s is in the future", lastUpdate)
	}
	if score > MaxScore {
		score = MaxScore
	}
	if score < MinScore {
		score = MinScore
	}
	r.entries[ip.String()] = &reputationEntry{score: score, lastUpdate: lastUpdate, lastImproved: lastUpdate}
	return nil
}
