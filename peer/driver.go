package peer

import (
	"crypto/rand"
	"fmt"
	"net"
	"time"

	"github.com/quantumgate/quantumgate/access"
	"github.com/quantumgate/quantumgate/config"
	"github.com/quantumgate/quantumgate/crypto"
	"github.com/quantumgate/quantumgate/frame"
	"github.com/quantumgate/quantumgate/kex"
	"github.com/quantumgate/quantumgate/keyset"
	"github.com/quantumgate/quantumgate/message"
	"github.com/sirupsen/logrus"
)

// Driver is the concrete manager.EventProcessor for this module (spec.md
// §4.9): one Driver, shared across every session a node holds, drives each
// Session's connection bring-up, handshake, frame I/O, key updates, noise
// schedule, and rate bookkeeping through one ProcessEvents burst per
// worker turn. It never imports manager, relay, or socket's concrete
// implementations — only their seams (socket.Socket, ApplicationHandler) —
// so it can live in this package and satisfy manager.EventProcessor
// without an import cycle.
type Driver struct {
	settings config.Settings
	tp       crypto.TimeProvider

	identity Identity

	// secondaryLegKey is the long-term static key the secondary (KEM) leg
	// anchors to whenever this node plays Alice (spec.md §4.2). It is
	// independent of identity's Ed25519 signing key: Identity carries only
	// the key a Peer UUID binds to, not a DH/KEM key, so a node needs a
	// second key pair to drive kex.NewSecondaryLegAlice.
	secondaryLegKey *crypto.KeyPair

	replayGuard *kex.ReplayGuard

	peerList    *access.PeerList
	reputation  *access.IPReputation
	application ApplicationHandler
}

// NewDriver returns a Driver for one node identity. application may be nil,
// in which case relay and extender traffic is silently discarded
// (NopApplicationHandler).
func NewDriver(settings config.Settings, identity Identity, secondaryLegKey *crypto.KeyPair, peerList *access.PeerList, reputation *access.IPReputation, application ApplicationHandler, tp crypto.TimeProvider) *Driver {
	if tp == nil {
		tp = crypto.DefaultTimeProvider{}
	}
	if application == nil {
		application = NopApplicationHandler{}
	}
	return &Driver{
		settings:        settings,
		tp:              tp,
		identity:        identity,
		secondaryLegKey: secondaryLegKey,
		replayGuard:     kex.NewReplayGuard(crypto.NewNonceStoreWithTimeProvider(tp)),
		peerList:        peerList,
		reputation:      reputation,
		application:     application,
	}
}

// HasPendingWork reports whether s needs a ProcessEvents burst this sweep
// (spec.md §4.9): a dial/accept step still outstanding, socket readiness,
// a queued outbound message or due noise message, a due key update, or a
// watchdog timeout that must be enforced.
func (d *Driver) HasPendingWork(s *Session, now time.Time) bool {
	if s.Status() == StatusDisconnected {
		return false
	}
	if s.Socket == nil {
		return false
	}

	if d.timedOut(s, now) {
		return true
	}

	switch s.Status() {
	case StatusInitialized:
		return true
	case StatusConnecting:
		return true
	}

	if err := s.Socket.UpdateIOStatus(0); err != nil {
		return true
	}
	io := s.Socket.GetIOStatus()
	if io.HasError {
		return true
	}
	if io.CanRead {
		return true
	}

	if s.Noise.Due(now) {
		return true
	}
	if s.PendingSend() {
		return true
	}
	if s.Status() == StatusReady && s.ConnectionType == ConnectionInbound && s.KeyUpdateDue(now, d.settings.Local.KeyUpdate.RequireAfterNumProcessedBytes) {
		return true
	}
	if !s.handshakeSendAt.IsZero() && !now.Before(s.handshakeSendAt) {
		return true
	}
	return io.CanWrite && s.fr.recv != nil && len(s.fr.recv) > 0
}

// ProcessEvents drives one burst of work for s: at most maxBurst inner
// protocol steps, plus whatever frame I/O the socket currently allows
// (spec.md §4.9: "a worker processes at most WorkerThreadsMaxBurst events
// per peer before yielding"). A non-nil return disconnects s; the caller
// (manager.ThreadPool.runOne) is responsible for that per spec.md §5.
func (d *Driver) ProcessEvents(s *Session, maxBurst int) error {
	now := d.tp.Now()

	if d.timedOut(s, now) {
		return d.disconnectForTimeout(s, now)
	}

	if err := d.pumpConnection(s, now); err != nil {
		return err
	}
	if s.Status() == StatusDisconnected || s.Status() == StatusConnecting || s.Status() == StatusInitialized {
		return nil
	}

	d.resetRateWindowsIfDue(s, now)

	if err := d.receiveFrames(s, now, maxBurst); err != nil {
		return err
	}
	if s.Status() == StatusDisconnected {
		return nil
	}

	if s.Status() == StatusReady {
		d.maybeStartKeyUpdate(s, now)
	}
	if !s.handshakeSendAt.IsZero() && !now.Before(s.handshakeSendAt) {
		s.handshakeSendAt = time.Time{}
		if err := d.startHandshake(s); err != nil {
			return err
		}
	}

	d.drainDeferredRates(s)

	if s.Noise.Due(now) && s.Noise.Pop() {
		msg, err := s.Noise.GenerateNoiseMessage()
		if err != nil {
			return fmt.Errorf("peer: generating noise message: %w", err)
		}
		s.EnqueueSend(msg)
	}

	return d.drainOutgoing(s, now)
}

// pumpConnection advances a session still establishing its transport:
// starting an outbound dial, polling it to completion, or promoting an
// already-accepted inbound socket straight to Connected (spec.md §3,
// §4.9).
func (d *Driver) pumpConnection(s *Session, now time.Time) error {
	switch s.Status() {
	case StatusInitialized:
		if s.ConnectionType == ConnectionOutbound {
			if err := s.SetStatus(StatusConnecting); err != nil {
				return err
			}
			s.dialStart = now
			if err := s.Socket.BeginConnect(s.Endpoint); err != nil {
				s.Disconnect(DisconnectConnectError)
				return fmt.Errorf("peer: begin connect %s: %w", s.Endpoint, err)
			}
			return nil
		}
		if err := s.SetStatus(StatusAccepted); err != nil {
			return err
		}
		return d.onConnected(s, now)

	case StatusConnecting:
		if err := s.Socket.UpdateIOStatus(0); err != nil {
			s.Disconnect(DisconnectSocketError)
			return fmt.Errorf("peer: updating io status while connecting: %w", err)
		}
		io := s.Socket.GetIOStatus()
		if io.HasError {
			s.Disconnect(DisconnectConnectError)
			return fmt.Errorf("peer: connect to %s failed (code %d)", s.Endpoint, io.ErrorCode)
		}
		if io.Connecting {
			return nil
		}
		if err := s.Socket.CompleteConnect(); err != nil {
			s.Disconnect(DisconnectConnectError)
			return fmt.Errorf("peer: completing connect to %s: %w", s.Endpoint, err)
		}
		return d.onConnected(s, now)

	default:
		return nil
	}
}

// onConnected runs once a session's transport is up: it primes the
// GSS-derived frame settings, transitions to Connected, and — for the
// inbound (Alice) side only — schedules the randomized pre-first-send
// delay before the handshake's opening message goes out (spec.md §4.1:
// "on entering MetaExchange the inbound side SENDS BeginMetaExchange",
// "a small inbound-only randomized delay is applied before first send").
func (d *Driver) onConnected(s *Session, now time.Time) error {
	if err := s.SetStatus(StatusConnected); err != nil {
		return err
	}
	d.primeGSSKeyPair(s)
	s.MarkHandshakeStart(now)

	if s.ConnectionType == ConnectionOutbound {
		msg, err := d.firstNoiseMessage(s)
		if err != nil {
			return fmt.Errorf("peer: building first noise frame: %w", err)
		}
		s.EnqueuePriority(msg)
	}

	if s.Handshake.Role() == keyset.RoleAlice {
		s.handshakeSendAt = now.Add(randomDuration(d.settings.Local.MaxHandshakeDelay))
	}
	return nil
}

// firstNoiseMessage builds the Noise-kind message an outbound (Bob)
// session must send as its very first transmission, before any handshake
// reply, so a passive observer cannot tell which side dialed out just by
// which side spoke first (spec.md §4.1). When noise is globally disabled
// it still goes out, just with zero payload bytes.
func (d *Driver) firstNoiseMessage(s *Session) (message.Message, error) {
	if !d.settings.Noise.Enabled {
		return message.Message{Kind: message.KindNoise, Fragment: message.FragmentComplete}, nil
	}
	return s.Noise.GenerateNoiseMessage()
}

// startHandshake fires once, when an inbound session's pre-first-send
// delay has elapsed, enqueuing BeginMetaExchange ahead of anything else
// queued.
func (d *Driver) startHandshake(s *Session) error {
	kind, ok := s.Handshake.Start()
	if !ok {
		return nil
	}
	return d.sendHandshakeKind(s, kind)
}

// timedOut reports whether any of the watchdog deadlines spec.md §4.9
// names have passed: the dial timeout, the handshake duration (scaled by
// relay hop count), or an in-progress key update's own deadline.
func (d *Driver) timedOut(s *Session, now time.Time) bool {
	switch s.Status() {
	case StatusConnecting:
		if !s.dialStart.IsZero() && now.Sub(s.dialStart) > d.settings.Local.ConnectTimeout {
			return true
		}
	case StatusDisconnected:
		return false
	default:
		if !s.handshakeStart.IsZero() && s.Status() != StatusReady {
			maxDuration := d.settings.Local.MaxHandshakeDuration
			if s.relayHops > 0 {
				hops := s.relayHops
				if hops < 2 {
					hops = 2
				}
				maxDuration *= time.Duration(hops)
			}
			if s.HandshakeDuration(now) > maxDuration {
				return true
			}
		}
	}
	if s.Status() == StatusReady && s.KeyUpdate.TimedOut(now, d.settings.Local.KeyUpdate.MaxDuration) {
		return true
	}
	return false
}

func (d *Driver) disconnectForTimeout(s *Session, now time.Time) error {
	cond := DisconnectTimedOutError
	logrus.WithFields(logrus.Fields{
		"function": "Driver.disconnectForTimeout",
		"luid":     s.LUID,
		"status":   s.Status(),
	}).Warn("Peer session timed out")
	s.Disconnect(cond)
	return fmt.Errorf("peer: %s: watchdog timeout in status %s", s.Endpoint, s.Status())
}

// resetRateWindowsIfDue clears every rate window once an interval has
// elapsed since the last reset, so a burst early in the window doesn't
// permanently exhaust the budget for the rest of it (spec.md §4.13).
func (d *Driver) resetRateWindowsIfDue(s *Session, now time.Time) {
	if now.Sub(s.rateWindowResetAt) < time.Second {
		return
	}
	s.Rates.ResetAll()
	s.rateWindowResetAt = now
}

// drainDeferredRates re-attempts messages that were held back on a prior
// burst because a rate window was full (spec.md §4.13).
func (d *Driver) drainDeferredRates(s *Session) {
	for _, m := range s.Rates.DrainDeferred() {
		s.EnqueueSend(m)
	}
}

// penalize deteriorates ip's reputation by sev, if a reputation tracker is
// configured (spec.md §4.11). Driver instances constructed without one
// (e.g. for isolated unit tests) silently no-op.
func (d *Driver) penalize(ip net.IP, sev access.Severity) {
	if d.reputation == nil || ip == nil {
		return
	}
	d.reputation.Update(ip, access.DirectionDeteriorate, sev)
}

func (d *Driver) sessionRemoteIP(s *Session) net.IP {
	host, _, err := net.SplitHostPort(s.Endpoint)
	if err != nil {
		host = s.Endpoint
	}
	return net.ParseIP(host)
}

func randomDuration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	n := int64(0)
	for _, b := range buf {
		n = (n << 8) | int64(b)
	}
	if n < 0 {
		n = -n
	}
	return time.Duration(n % int64(max))
}

// primeGSSKeyPair derives this session's frame data-size settings and
// first random-prefix length from the configured Global Shared Secret
// (spec.md §4.8). With no GSS configured, both sides fall back to
// frame.ZeroDataSizeSettings and a zero-length first prefix.
func (d *Driver) primeGSSKeyPair(s *Session) {
	gss := d.settings.Local.GlobalSharedSecret
	if len(gss) == 0 {
		s.fr.dataSize = frame.ZeroDataSizeSettings
		s.fr.nextPrefixLen = 0
		s.fr.sendNextPrefixLen = 0
		return
	}

	seed, err := frame.GSSSeed(gss)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Driver.primeGSSKeyPair",
			"luid":     s.LUID,
			"error":    err,
		}).Warn("Failed to derive GSS seed, falling back to zero data-size settings")
		s.fr.dataSize = frame.ZeroDataSizeSettings
		return
	}

	encMaterial, errEnc := crypto.DeriveSymmetricMaterial(crypto.HashBLAKE2B512, gss, nil, []byte("quantumgate/gss-datasize/encrypt"), 64)
	decMaterial, errDec := crypto.DeriveSymmetricMaterial(crypto.HashBLAKE2B512, gss, nil, []byte("quantumgate/gss-datasize/decrypt"), 64)
	var dsSettings frame.DataSizeSettings
	if errEnc == nil && errDec == nil {
		dsSettings = frame.DeriveDataSizeSettings(seed, encMaterial[32:], decMaterial[32:])
	}
	s.fr.dataSize = dsSettings

	prefixLen := uint16(frame.FirstRandomPrefixLength(seed))
	s.fr.nextPrefixLen = prefixLen
	s.fr.sendNextPrefixLen = prefixLen
}
