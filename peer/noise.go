package peer

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/quantumgate/quantumgate/config"
	"github.com/quantumgate/quantumgate/message"
)

// NoiseQueue schedules future Noise-kind sends to resist traffic analysis
// (spec.md §4.6). During the handshake the scheduling interval is
// stretched and the message count rescaled to preserve the same
// per-second rate, subject to a hard 3 messages/s ceiling — spec.md's
// "floor of 3 messages/s maximum capacity" is read here as a cap applied
// before rounding down to a whole message count, since a literal
// mathematical floor() on a rate has no meaningful effect on its own.
type NoiseQueue struct {
	settings          config.NoiseSettings
	maxHandshakeDelay time.Duration

	mu            sync.Mutex
	handshakeMode bool
	fireTimes     []time.Time
}

// NewNoiseQueue returns an empty queue; it schedules lazily on first
// EnsureScheduled call, mirroring spec.md §4.9's "enqueues noise if the
// noise queue is empty" primary-loop check.
func NewNoiseQueue(settings config.NoiseSettings, maxHandshakeDelay time.Duration) *NoiseQueue {
	return &NoiseQueue{settings: settings, maxHandshakeDelay: maxHandshakeDelay}
}

// SetHandshakeMode switches between the stretched pre-Ready interval and
// the steady-state interval. Changing mode does not retroactively alter
// already-scheduled fire times.
func (q *NoiseQueue) SetHandshakeMode(on bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handshakeMode = on
}

// EnsureScheduled schedules a fresh batch of fire times if none are
// currently pending.
func (q *NoiseQueue) EnsureScheduled(now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.fireTimes) > 0 {
		return
	}
	q.scheduleLocked(now)
}

func (q *NoiseQueue) scheduleLocked(now time.Time) {
	interval := q.settings.TimeInterval
	minN, maxN := q.settings.MinMessagesPerInterval, q.settings.MaxMessagesPerInterval

	if q.handshakeMode && q.maxHandshakeDelay > 0 {
		stretched := 2 * q.maxHandshakeDelay
		meanN := float64(minN+maxN) / 2
		ratePerSecond := meanN / interval.Seconds()
		scaledN := int(ratePerSecond * stretched.Seconds())
		cap := int(3 * stretched.Seconds())
		if scaledN > cap {
			scaledN = cap
		}
		if scaledN < 0 {
			scaledN = 0
		}
		minN, maxN = scaledN, scaledN
		interval = stretched
	}

	n := minN
	if maxN > minN {
		n = minN + randIntn(maxN-minN+1)
	}

	q.fireTimes = q.fireTimes[:0]
	for i := 0; i < n; i++ {
		offset := time.Duration(randInt63n(int64(interval) + 1))
		q.fireTimes = append(q.fireTimes, now.Add(offset))
	}
	sort.Slice(q.fireTimes, func(i, j int) bool { return q.fireTimes[i].Before(q.fireTimes[j]) })
}

// Due reports whether the earliest scheduled fire time has arrived.
func (q *NoiseQueue) Due(now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fireTimes) > 0 && !q.fireTimes[0].After(now)
}

// Pop removes and discards the earliest fire time, returning whether one
// was present.
func (q *NoiseQueue) Pop() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.fireTimes) == 0 {
		return false
	}
	q.fireTimes = q.fireTimes[1:]
	return true
}

// GenerateNoiseMessage builds one Noise-kind message with a uniformly
// random length in [MinMessageSize, MaxMessageSize] of pseudorandom
// bytes. Noise messages are never compressed (spec.md §4.6).
func (q *NoiseQueue) GenerateNoiseMessage() (message.Message, error) {
	lo, hi := q.settings.MinMessageSize, q.settings.MaxMessageSize
	size := lo
	if hi > lo {
		size = lo + randIntn(hi-lo+1)
	}
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		return message.Message{}, err
	}
	return message.Message{Kind: message.KindNoise, Fragment: message.FragmentComplete, Data: data}, nil
}

func randIntn(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		var buf [8]byte
		_, _ = rand.Read(buf[:])
		return int(binary.BigEndian.Uint64(buf[:]) % uint64(n))
	}
	return int(v.Int64())
}

func randInt63n(n int64) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(randIntn(int(n)))
}
