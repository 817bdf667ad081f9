package peer

import (
	"sync"

	"github.com/quantumgate/quantumgate/limits"
	"github.com/quantumgate/quantumgate/message"
)

// RateKind names one of the five rate-limited traffic classes a peer
// session tracks independently (spec.md §4.13).
type RateKind int

const (
	RateExtenderCommunicationSend RateKind = iota
	RateExtenderCommunicationReceive
	RateNoiseSend
	RateRelayDataSend
	RateRelayDataReceive
)

// RateWindow is a byte budget bounded by limits.MaxInnerData. CanAdd,
// Add, and Subtract run in constant time relative to the budget size —
// they are a counter compare-and-update, not a sliding log — matching
// spec.md §4.13's "constant-time" requirement.
type RateWindow struct {
	mu   sync.Mutex
	used uint64
	max  uint64
}

// NewRateWindow returns a window capped at limits.MaxInnerData.
func NewRateWindow() *RateWindow {
	return &RateWindow{max: limits.MaxInnerData}
}

// CanAdd reports whether n more bytes would fit without overflowing.
func (w *RateWindow) CanAdd(n uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.used+n <= w.max
}

// Add accounts n bytes against the budget, reporting false without
// modifying state if it would overflow.
func (w *RateWindow) Add(n uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.used+n > w.max {
		return false
	}
	w.used += n
	return true
}

// Subtract releases n bytes back to the budget, clamping at zero.
func (w *RateWindow) Subtract(n uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n >= w.used {
		w.used = 0
		return
	}
	w.used -= n
}

// Reset zeroes the window's usage, starting a fresh budget period.
func (w *RateWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.used = 0
}

// RateLimits holds one RateWindow per RateKind plus a deferred queue. The
// driver queues an outbound message here when its send window is full
// and re-enqueues the queue onto the session's send queue later; relay
// Forward also queues RelayData here on overflow. A directly received
// ExtenderCommunication or RelayData message whose receive window is full
// is not queued: the driver penalizes the peer and returns an error.
type RateLimits struct {
	windows map[RateKind]*RateWindow

	mu       sync.Mutex
	deferred []message.Message
}

// NewRateLimits returns a RateLimits with a fresh window per kind.
func NewRateLimits() *RateLimits {
	r := &RateLimits{windows: make(map[RateKind]*RateWindow, 5)}
	for _, k := range []RateKind{
		RateExtenderCommunicationSend,
		RateExtenderCommunicationReceive,
		RateNoiseSend,
		RateRelayDataSend,
		RateRelayDataReceive,
	} {
		r.windows[k] = NewRateWindow()
	}
	return r
}

// Window returns the window tracking kind.
func (r *RateLimits) Window(kind RateKind) *RateWindow {
	return r.windows[kind]
}

// ResetAll zeroes every tracked window, starting a fresh rate-limit period
// (spec.md §4.13). The driver calls this periodically so a burst early in
// one interval doesn't exhaust the budget for the rest of it.
func (r *RateLimits) ResetAll() {
	for _, w := range r.windows {
		w.Reset()
	}
}

// Defer queues m for later delivery because its rate window was full.
func (r *RateLimits) Defer(m message.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deferred = append(r.deferred, m)
}

// DrainDeferred removes and returns every currently queued message.
func (r *RateLimits) DrainDeferred() []message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.deferred
	r.deferred = nil
	return out
}

// PendingDeferred reports how many messages are waiting in the deferred
// queue.
func (r *RateLimits) PendingDeferred() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deferred)
}
