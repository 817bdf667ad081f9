package peer

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quantumgate/quantumgate/config"
	"github.com/quantumgate/quantumgate/crypto"
	"github.com/quantumgate/quantumgate/frame"
	"github.com/quantumgate/quantumgate/handshake"
	"github.com/quantumgate/quantumgate/kex"
	"github.com/quantumgate/quantumgate/keyset"
	"github.com/quantumgate/quantumgate/message"
	"github.com/quantumgate/quantumgate/quuid"
	"github.com/quantumgate/quantumgate/socket"
	"github.com/sirupsen/logrus"
)

// ErrInvalidTransition is returned when SetStatus is asked to move to a
// state that is not the successor of the current one (spec.md §3: "any
// attempt to enter a state from the wrong predecessor is a fatal
// protocol error").
var ErrInvalidTransition = errors.New("peer: invalid status transition")

// Session is a single peer connection's state (spec.md §3): identity,
// lifecycle status, key material, the handshake and key-update drivers
// that advance it, a fragment reassembler for inbound messages, a noise
// schedule, and per-kind rate limits. A Session owns exactly one KeySet,
// one Handshake processor, one KeyUpdate driver, and one inbound
// Reassembler, matching the "owns... at most one" invariant in spec.md §3.
type Session struct {
	LUID           LUID
	Endpoint       string
	PeerUUID       quuid.UUID
	LocalSessionID uint64
	PeerSessionID  uint64

	ConnectionType ConnectionType
	Relay          bool
	Flags          Flags

	LocalCounter *uint8
	PeerCounter  *uint8

	BytesSent     uint64
	BytesReceived uint64

	DisconnectCondition DisconnectCondition

	// Socket is the transport this session drives its frames over. It is
	// nil until the caller (the manager's dialer/acceptor) wires one in
	// with SetSocket; HasPendingWork/ProcessEvents treat a nil Socket as
	// having no I/O to do.
	Socket socket.Socket

	KeySet             *keyset.KeySet
	Handshake          *handshake.Processor
	KeyUpdate          *handshake.KeyUpdateDriver
	InboundReassembler *message.Reassembler
	Noise              *NoiseQueue
	Rates              *RateLimits

	// NegotiatedAlgorithms is the five-category result of meta exchange
	// (spec.md §4.2), recorded once EndMetaExchange is processed so later
	// phases and key updates know which algorithms to derive under.
	NegotiatedAlgorithms kex.ChosenAlgorithms

	// LocalExtenders and PeerExtenders are the locally-enabled and
	// peer-reported extender UUID sets exchanged during SessionInit
	// (spec.md §4.2). LocalExtenders is populated by the caller before
	// the handshake reaches SessionInit; PeerExtenders is populated from
	// the peer's payload.
	LocalExtenders []quuid.UUID
	PeerExtenders  []quuid.UUID

	timeProvider   crypto.TimeProvider
	status         Status
	connectedAt    time.Time
	handshakeStart time.Time

	// dialStart is when the driver first observed this session in
	// StatusConnecting, for ConnectTimeout enforcement.
	dialStart time.Time

	// handshakeSendAt is when the inbound side's randomized pre-first-send
	// delay expires (spec.md §4.1: "a small inbound-only randomized delay
	// is applied before first send"). Zero until scheduled.
	handshakeSendAt time.Time

	// relayHops is the number of stacked relay hops this session sits
	// behind, 0 for a direct connection. It scales MaxHandshakeDuration
	// by max(hops, 2) for a relayed peer (spec.md §3).
	relayHops int

	// keyUpdateDueAt is when the inbound side should next trigger a key
	// update, randomized between KeyUpdate.MinInterval and MaxInterval
	// (spec.md §4.5). Zero until the session reaches Ready.
	keyUpdateDueAt time.Time

	// rateWindowResetAt is when this session's rate windows were last
	// cleared; the driver periodically zeroes every RateWindow so a
	// burst early in the interval doesn't permanently exhaust the
	// budget for the rest of it (spec.md §4.13).
	rateWindowResetAt time.Time

	// sendQueueMu guards sendQueue, the normal (non-noise,
	// non-handshake) outbound inner-message queue a session's extender
	// traffic and protocol replies accumulate on between frame sends
	// (spec.md §4.3: "the normal send queue").
	sendQueueMu sync.Mutex
	sendQueue   []message.Message

	// kx is the working state of whichever key-exchange round is
	// currently in flight: the initial handshake, or a later key update.
	// It is nil once no round is active.
	kx *kexRound

	// epoch counts completed key-derivation rounds, binding each
	// derived symmetric pair to a distinct HKDF info string (spec.md
	// §4.5) so a key update can never rederive the handshake's keys.
	epoch uint32

	fr frameIO

	// lock is the peer's unique lock (spec.md §4.9, §5): a worker must
	// hold it for the duration of its ProcessEvents burst, and the
	// primary loop never schedules a peer onto more than one worker at
	// once precisely because of it.
	lock sync.Mutex
}

// SetSocket wires s as this session's transport.
func (s *Session) SetSocket(sock socket.Socket) {
	s.Socket = sock
}

// frameIO is a session's transport-frame bookkeeping: the raw receive
// buffer awaiting a complete frame, the next frame's counter and random
// prefix length, and the Global-Shared-Secret-derived data-size settings
// negotiated once at session start (spec.md §4.3, §4.8).
type frameIO struct {
	recv          []byte
	counter       uint8
	nextPrefixLen uint16
	dataSize      frame.DataSizeSettings

	// sendNextPrefixLen is the random-prefix length promised to the peer
	// in the frame just sent, which must be honored by the frame that
	// follows it (spec.md §4.3).
	sendNextPrefixLen uint16
}

// Lock acquires the session's unique lock. A worker holds it for the
// duration of one ProcessEvents burst so a peer is never concurrently
// driven by two workers (spec.md §5).
func (s *Session) Lock() { s.lock.Lock() }

// Unlock releases the session's unique lock.
func (s *Session) Unlock() { s.lock.Unlock() }

// NewSession creates a Session for an endpoint that has just been
// accepted (role Alice) or dialed (role Bob), deriving its LUID from the
// endpoint string.
func NewSession(endpoint string, role keyset.Role, connType ConnectionType, settings config.Settings, tp crypto.TimeProvider) *Session {
	if tp == nil {
		tp = crypto.DefaultTimeProvider{}
	}

	logrus.WithFields(logrus.Fields{
		"function":        "NewSession",
		"endpoint":        endpoint,
		"connection_type": connType,
	}).Info("Creating new peer session")

	s := &Session{
		LUID:               DeriveLUID(endpoint),
		Endpoint:           endpoint,
		LocalSessionID:     randomSessionID(),
		ConnectionType:     connType,
		KeySet:             keyset.NewKeySet(),
		Handshake:          handshake.NewProcessor(role),
		KeyUpdate:          handshake.NewKeyUpdateDriver(tp),
		InboundReassembler: message.NewReassembler(),
		Noise:              NewNoiseQueue(settings.Noise, settings.Local.MaxHandshakeDelay),
		Rates:              NewRateLimits(),
		timeProvider:       tp,
		status:             StatusInitialized,
		rateWindowResetAt:  tp.Now(),
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewSession",
		"luid":     s.LUID,
		"status":   s.status,
	}).Debug("Peer session initialized")

	return s
}

func randomSessionID() uint64 {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return binary.BigEndian.Uint64(buf[:])
}

// Status returns the current lifecycle status.
func (s *Session) Status() Status { return s.status }

// IsAuthenticated reports whether this session has completed the
// Authentication phase (spec.md §4.1), regardless of how far past it the
// handshake has progressed.
func (s *Session) IsAuthenticated() bool {
	switch s.status {
	case StatusSessionInit, StatusReady:
		return true
	default:
		return false
	}
}

// SetStatus transitions to next, enforcing the monotone handshake order
// (spec.md §3). Suspended and Disconnected may be entered from any
// non-terminal state; Disconnected is absorbing.
func (s *Session) SetStatus(next Status) error {
	if s.status == StatusDisconnected {
		return fmt.Errorf("peer: %w: session already disconnected", ErrInvalidTransition)
	}
	if next == StatusSuspended || next == StatusDisconnected {
		s.status = next
		return nil
	}

	if !isPermittedPredecessor(s.status, next) {
		logrus.WithFields(logrus.Fields{
			"function": "SetStatus",
			"luid":     s.LUID,
			"from":     s.status,
			"to":       next,
		}).Warn("Rejected invalid peer status transition")
		return fmt.Errorf("peer: %w: %s -> %s", ErrInvalidTransition, s.status, next)
	}

	s.status = next
	if next == StatusConnected {
		s.connectedAt = s.timeProvider.Now()
	}
	return nil
}

// MarkHandshakeStart records when the first handshake byte was expected,
// for the handshake-start-delay watchdog (spec.md §4.9).
func (s *Session) MarkHandshakeStart(now time.Time) {
	s.handshakeStart = now
	s.Flags.Set(FlagHandshakeStartDelay)
}

// HandshakeDuration reports elapsed time since the handshake began, or
// zero if it has not started.
func (s *Session) HandshakeDuration(now time.Time) time.Duration {
	if s.handshakeStart.IsZero() {
		return 0
	}
	return now.Sub(s.handshakeStart)
}

// ActivateCounters seeds the local and peer message counters with random
// starting values once Authentication completes (spec.md §4.1: "only
// after Authentication completes does each side activate its message
// counter"). s.fr.counter, the value actually stamped onto the next frame
// sent, is seeded from the same random value so the StartCounter
// advertised in SessionInit matches what appears on the wire.
func (s *Session) ActivateCounters() {
	var b [1]byte
	_, _ = rand.Read(b[:])
	local := b[0]
	s.LocalCounter = &local
	s.PeerCounter = nil
	s.fr.counter = local
}

// ObservePeerCounter records the first peer counter value seen, if not
// already activated.
func (s *Session) ObservePeerCounter(v uint8) {
	if s.PeerCounter == nil {
		c := v
		s.PeerCounter = &c
	}
}

// ScheduleNextKeyUpdate picks a fresh keyUpdateDueAt uniformly within
// [minInterval, maxInterval] of now (spec.md §4.5).
func (s *Session) ScheduleNextKeyUpdate(now time.Time, minInterval, maxInterval time.Duration) {
	span := maxInterval - minInterval
	offset := minInterval
	if span > 0 {
		offset = minInterval + time.Duration(randInt63n(int64(span)))
	}
	s.keyUpdateDueAt = now.Add(offset)
}

// KeyUpdateDue reports whether it is time for the inbound side to trigger
// a new key update, either because the scheduled interval elapsed or
// because the current encryption key has processed enough bytes
// (spec.md §4.5).
func (s *Session) KeyUpdateDue(now time.Time, requireAfterBytes uint64) bool {
	if !s.keyUpdateDueAt.IsZero() && !now.Before(s.keyUpdateDueAt) {
		return true
	}
	if pair := s.KeySet.EncryptionKey(now); pair != nil && requireAfterBytes > 0 {
		if pair.Encryption.NumBytesProcessed >= requireAfterBytes {
			return true
		}
	}
	return false
}

// EnqueueSend appends m to the normal outbound queue (spec.md §4.3). It is
// safe to call from any goroutine; the driver drains the queue under the
// session's lock during ProcessEvents.
func (s *Session) EnqueueSend(m message.Message) {
	s.sendQueueMu.Lock()
	s.sendQueue = append(s.sendQueue, m)
	s.sendQueueMu.Unlock()
}

// EnqueuePriority prepends m to the outbound queue, ahead of any normal
// application traffic already waiting — used for handshake and
// key-update protocol replies, which must go out before queued extender
// traffic (spec.md §4.1, §4.5).
func (s *Session) EnqueuePriority(m message.Message) {
	s.sendQueueMu.Lock()
	s.sendQueue = append([]message.Message{m}, s.sendQueue...)
	s.sendQueueMu.Unlock()
}

// DequeueSend removes and returns the oldest queued outbound message, if
// any.
func (s *Session) DequeueSend() (message.Message, bool) {
	s.sendQueueMu.Lock()
	defer s.sendQueueMu.Unlock()
	if len(s.sendQueue) == 0 {
		return message.Message{}, false
	}
	m := s.sendQueue[0]
	s.sendQueue = s.sendQueue[1:]
	return m, true
}

// PendingSend reports whether the normal outbound queue has anything
// waiting, without dequeuing it.
func (s *Session) PendingSend() bool {
	s.sendQueueMu.Lock()
	defer s.sendQueueMu.Unlock()
	return len(s.sendQueue) > 0
}

// Disconnect marks the session Disconnected with the given condition.
// It is idempotent; the first condition recorded wins.
func (s *Session) Disconnect(cond DisconnectCondition) {
	if s.status == StatusDisconnected {
		return
	}
	logrus.WithFields(logrus.Fields{
		"function":  "Disconnect",
		"luid":      s.LUID,
		"condition": cond,
	}).Info("Disconnecting peer session")
	s.DisconnectCondition = cond
	s.status = StatusDisconnected
}
