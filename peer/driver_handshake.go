package peer

import (
	"fmt"
	"time"

	"github.com/quantumgate/quantumgate/access"
	"github.com/quantumgate/quantumgate/crypto"
	"github.com/quantumgate/quantumgate/handshake"
	"github.com/quantumgate/quantumgate/kex"
	"github.com/quantumgate/quantumgate/keyset"
	"github.com/quantumgate/quantumgate/message"
	"github.com/sirupsen/logrus"
)

// sendHandshakeKind builds and enqueues the one handshake message a
// Driver ever originates without first reacting to a received message:
// the inbound side's opening BeginMetaExchange (spec.md §4.1). Every
// later handshake message is a reply built in applyHandshakeMessage,
// queued alongside the Advance call that produces it.
func (d *Driver) sendHandshakeKind(s *Session, kind message.Kind) error {
	if kind != message.KindBeginMetaExchange {
		return fmt.Errorf("peer: sendHandshakeKind: unexpected opening kind %s", kind)
	}
	s.kx = &kexRound{}
	adv := kex.NewAdvertisement(d.settings.Local.SupportedAlgorithms)
	s.EnqueuePriority(message.Message{Kind: kind, Fragment: message.FragmentComplete, Data: adv.Encode()})
	return nil
}

// processHandshakeMessage dispatches one reassembled inner message that
// arrived while s has not yet reached Ready: a key-update message if one
// is already in flight post-Ready (never true pre-Ready, but ProcessEvents
// routes by kind rather than by status so the check lives here), otherwise
// a handshake phase message.
func (d *Driver) processHandshakeMessage(s *Session, now time.Time, m message.Message) error {
	if isKeyUpdateKind(m.Kind) {
		return d.processKeyUpdateMessage(s, now, m)
	}
	return d.applyHandshakeMessage(s, now, m)
}

func isKeyUpdateKind(k message.Kind) bool {
	switch k {
	case message.KindBeginPrimaryKeyUpdateExchange, message.KindEndPrimaryKeyUpdateExchange,
		message.KindBeginSecondaryKeyUpdateExchange, message.KindEndSecondaryKeyUpdateExchange,
		message.KindKeyUpdateReady:
		return true
	default:
		return false
	}
}

// applyHandshakeMessage validates and applies one received handshake
// message against s.Handshake (spec.md §4.1), builds whatever reply the
// phase transition calls for, and advances s.Status to match.
func (d *Driver) applyHandshakeMessage(s *Session, now time.Time, m message.Message) error {
	replyKind, hasReply, reachedReady, err := s.Handshake.Advance(m.Kind)
	if err != nil {
		return fmt.Errorf("peer: handshake: %w", err)
	}

	if err := d.syncHandshakeStatus(s); err != nil {
		return err
	}

	replyData, err := d.applyReceivedHandshakeKind(s, now, m.Kind, m.Data, replyKind, hasReply)
	if err != nil {
		return fmt.Errorf("peer: handshake: %w", err)
	}

	if hasReply {
		s.EnqueuePriority(message.Message{Kind: replyKind, Fragment: message.FragmentComplete, Data: replyData})
	}

	if reachedReady {
		d.finalizeReady(s, now)
	}
	return nil
}

// handshakeStatusForState maps a handshake.State to its peer.Status
// equivalent (spec.md §3, §4.1 describe the same sequence twice, once
// for the session's externally-visible lifecycle and once for the
// handshake processor's own bookkeeping).
func handshakeStatusForState(st handshake.State) Status {
	switch st {
	case handshake.StateConnected:
		return StatusConnected
	case handshake.StateMetaExchange:
		return StatusMetaExchange
	case handshake.StatePrimaryKeyExchange:
		return StatusPrimaryKeyExchange
	case handshake.StateSecondaryKeyExchange:
		return StatusSecondaryKeyExchange
	case handshake.StateAuthentication:
		return StatusAuthentication
	case handshake.StateSessionInit:
		return StatusSessionInit
	default:
		return StatusReady
	}
}

// syncHandshakeStatus advances s.Status to match s.Handshake's state,
// activating the message counters the instant Authentication completes
// (spec.md §4.1: "only after Authentication completes does each side
// activate its message counter"). It is a no-op once the two are already
// aligned, so a retried message that Advance rejects before mutating
// state never double-applies a transition.
func (d *Driver) syncHandshakeStatus(s *Session) error {
	target := handshakeStatusForState(s.Handshake.State())
	if s.Status() == target {
		return nil
	}
	enteringSessionInit := target == StatusSessionInit
	if err := s.SetStatus(target); err != nil {
		return err
	}
	if enteringSessionInit {
		s.ActivateCounters()
	}
	return nil
}

// applyReceivedHandshakeKind applies the crypto and state-mutation work
// for one received handshake kind and returns the payload for whatever
// reply kind Advance said to send (if any). Bob only ever receives the
// five Begin kinds, Alice only ever the five End kinds — see
// handshake.Processor.Advance — so this is a ten-case switch, not twenty.
func (d *Driver) applyReceivedHandshakeKind(s *Session, now time.Time, received message.Kind, data []byte, replyKind message.Kind, hasReply bool) ([]byte, error) {
	switch received {

	case message.KindBeginMetaExchange:
		peerAdv, err := kex.DecodeAdvertisement(data)
		if err != nil {
			return nil, fmt.Errorf("decoding peer advertisement: %w", err)
		}
		if peerAdv.ProtocolMajor != kex.ProtocolMajor {
			return nil, fmt.Errorf("unsupported protocol major version %d", peerAdv.ProtocolMajor)
		}
		chosen, err := kex.SelectAlgorithms(peerAdv.Algorithms, d.settings.Local.SupportedAlgorithms)
		if err != nil {
			return nil, fmt.Errorf("selecting algorithms: %w", err)
		}
		s.NegotiatedAlgorithms = chosen
		s.kx = &kexRound{chosen: chosen}
		return kex.EncodeChosenAlgorithms(chosen), nil

	case message.KindEndMetaExchange:
		chosen, err := kex.DecodeChosenAlgorithms(data)
		if err != nil {
			return nil, fmt.Errorf("decoding chosen algorithms: %w", err)
		}
		s.NegotiatedAlgorithms = chosen
		if s.kx == nil {
			s.kx = &kexRound{}
		}
		s.kx.chosen = chosen
		primary, err := kex.NewPrimaryLeg(keyset.RoleAlice)
		if err != nil {
			return nil, fmt.Errorf("starting primary leg: %w", err)
		}
		primary.SetReplayGuard(d.replayGuard)
		s.kx.primary = primary
		return primary.HandshakeBlob(), nil

	case message.KindBeginPrimaryKeyExchange:
		primary, err := kex.NewPrimaryLeg(keyset.RoleBob)
		if err != nil {
			return nil, fmt.Errorf("starting primary leg: %w", err)
		}
		primary.SetReplayGuard(d.replayGuard)
		primaryData, err := primary.DeriveSharedSecret(data)
		if err != nil {
			return nil, fmt.Errorf("deriving primary shared secret: %w", err)
		}
		s.kx.primary = primary
		s.kx.primaryData = primaryData
		return primary.HandshakeBlob(), nil

	case message.KindEndPrimaryKeyExchange:
		primaryData, err := s.kx.primary.DeriveSharedSecret(data)
		if err != nil {
			return nil, fmt.Errorf("deriving primary shared secret: %w", err)
		}
		s.kx.primaryData = primaryData
		secondary := kex.NewSecondaryLegAlice(*d.secondaryLegKey)
		secondary.SetReplayGuard(d.replayGuard)
		s.kx.secondary = secondary
		s.kx.aliceKeyPair = d.secondaryLegKey
		return secondary.AliceHandshakeBlob(), nil

	case message.KindBeginSecondaryKeyExchange:
		secondary := kex.NewSecondaryLegBob()
		secondary.SetReplayGuard(d.replayGuard)
		secondaryData, ciphertext, err := secondary.BobEncapsulate(data)
		if err != nil {
			return nil, fmt.Errorf("encapsulating secondary leg: %w", err)
		}
		s.kx.secondary = secondary
		s.kx.secondaryData = secondaryData
		return ciphertext, nil

	case message.KindEndSecondaryKeyExchange:
		secondaryData, err := s.kx.secondary.AliceDecapsulate(data)
		if err != nil {
			return nil, fmt.Errorf("decapsulating secondary leg: %w", err)
		}
		s.kx.secondaryData = secondaryData
		pair, err := d.deriveCombinedKeyPair(s, true)
		if err != nil {
			return nil, fmt.Errorf("deriving session key pair: %w", err)
		}
		s.kx.installedPrimaryPair = pair
		payload, err := d.buildAuthenticationPayload(s)
		if err != nil {
			return nil, fmt.Errorf("building authentication payload: %w", err)
		}
		return handshake.EncodeAuthenticationPayload(payload), nil

	case message.KindBeginAuthentication:
		pair, err := d.deriveCombinedKeyPair(s, true)
		if err != nil {
			return nil, fmt.Errorf("deriving session key pair: %w", err)
		}
		s.kx.installedPrimaryPair = pair
		if err := d.verifyPeerAuthentication(s, data); err != nil {
			return nil, err
		}
		payload, err := d.buildAuthenticationPayload(s)
		if err != nil {
			return nil, fmt.Errorf("building authentication payload: %w", err)
		}
		return handshake.EncodeAuthenticationPayload(payload), nil

	case message.KindEndAuthentication:
		if err := d.verifyPeerAuthentication(s, data); err != nil {
			return nil, err
		}
		payload := handshake.SessionInitPayload{
			StartCounter:     localCounterValue(s),
			ObservedEndpoint: s.Endpoint,
			Extenders:        s.LocalExtenders,
		}
		return handshake.EncodeSessionInitPayload(payload), nil

	case message.KindBeginSessionInit:
		payload, err := handshake.DecodeSessionInitPayload(data)
		if err != nil {
			return nil, fmt.Errorf("decoding session init: %w", err)
		}
		if err := d.applyPeerSessionInit(s, payload); err != nil {
			return nil, err
		}
		reply := handshake.SessionInitPayload{
			StartCounter:     localCounterValue(s),
			ObservedEndpoint: s.Endpoint,
			Extenders:        s.LocalExtenders,
		}
		return handshake.EncodeSessionInitPayload(reply), nil

	case message.KindEndSessionInit:
		payload, err := handshake.DecodeSessionInitPayload(data)
		if err != nil {
			return nil, fmt.Errorf("decoding session init: %w", err)
		}
		if err := d.applyPeerSessionInit(s, payload); err != nil {
			return nil, err
		}
		return nil, nil

	default:
		return nil, fmt.Errorf("unexpected handshake kind %s", received)
	}
}

func localCounterValue(s *Session) uint8 {
	if s.LocalCounter == nil {
		return 0
	}
	return *s.LocalCounter
}

// applyPeerSessionInit records the peer's extender set and starting
// counter, and logs the endpoint the peer reports observing us at
// (spec.md §4.2). There is no dedicated field for the observed endpoint
// beyond the log line: it informs NAT/relay diagnosis, not session state.
func (d *Driver) applyPeerSessionInit(s *Session, payload handshake.SessionInitPayload) error {
	if err := handshake.ValidateSessionInitExtenders(payload.Extenders); err != nil {
		return fmt.Errorf("validating peer extenders: %w", err)
	}
	s.PeerExtenders = payload.Extenders
	// The advertised StartCounter was stamped on the frame that carried
	// this payload, so the peer's next frame carries StartCounter+1.
	s.ObservePeerCounter(payload.StartCounter + 1)
	logrus.WithFields(logrus.Fields{
		"function":          "Driver.applyPeerSessionInit",
		"luid":              s.LUID,
		"observed_endpoint": payload.ObservedEndpoint,
	}).Debug("Peer reported observed endpoint during session init")
	return nil
}

// buildAuthenticationPayload signs this session's key-exchange transcript
// with the local identity's key, unless RequireAuthentication is off and
// no identity signature is being requested (spec.md §4.2).
func (d *Driver) buildAuthenticationPayload(s *Session) (handshake.AuthenticationPayload, error) {
	transcript := handshake.Transcript(s.Handshake.Role(), s.kx.primaryData, s.kx.secondaryData)
	return handshake.BuildAuthenticationPayload(d.identity.UUID, s.LocalSessionID, d.identity.SigningPrivate, transcript, false)
}

// verifyPeerAuthentication decodes and verifies the peer's authentication
// payload against this session's transcript, resolving the peer's
// verification key through the pinned peer list (spec.md §4.2, §4.11).
func (d *Driver) verifyPeerAuthentication(s *Session, data []byte) error {
	authPayload, err := handshake.DecodeAuthenticationPayload(data)
	if err != nil {
		return fmt.Errorf("decoding authentication payload: %w", err)
	}

	peerKey, pinned := d.peerList.PinnedKey(authPayload.PeerUUID)
	if !pinned && len(authPayload.Signature) > 0 {
		return handshake.ErrPeerKeyUnknown
	}

	transcript := handshake.Transcript(s.Handshake.Role(), s.kx.primaryData, s.kx.secondaryData)
	if err := handshake.VerifyAuthenticationPayload(authPayload, transcript, peerKey, d.settings.Local.RequireAuthentication); err != nil {
		d.penalize(d.sessionRemoteIP(s), access.SeveritySevere)
		return fmt.Errorf("verifying peer authentication: %w", err)
	}

	s.PeerUUID = authPayload.PeerUUID
	s.PeerSessionID = authPayload.SessionID
	return nil
}

// finalizeReady enables the handshake's held-back symmetric pair (already
// in the key set, decrypt-only) for encryption now that both sides have
// proven identity, activates the key-update driver,
// and — for the inbound side — schedules the session's first rotation
// (spec.md §4.2, §4.5).
func (d *Driver) finalizeReady(s *Session, now time.Time) {
	if s.kx != nil && s.kx.installedPrimaryPair != nil && !s.kx.keysInstalled {
		s.kx.installedPrimaryPair.UseForEncryption = true
		s.kx.keysInstalled = true
	}
	s.kx = nil
	s.Noise.SetHandshakeMode(false)
	s.Flags.Set(FlagConcatenateMessages)

	if err := s.KeyUpdate.Activate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Driver.finalizeReady",
			"luid":     s.LUID,
			"error":    err,
		}).Warn("Unexpected key-update driver state at Ready")
	}

	if s.ConnectionType == ConnectionInbound {
		s.ScheduleNextKeyUpdate(now, d.settings.Local.KeyUpdate.MinInterval, d.settings.Local.KeyUpdate.MaxInterval)
	}
}

// deriveCombinedKeyPair derives the symmetric pair for the key-exchange
// round currently recorded in s.kx, hashing both legs' shared secrets
// together rather than deriving the primary and secondary legs
// independently (spec.md §4.2's "combine the primary and secondary legs'
// shared secrets" is the only wording the spec gives for this step; a
// single BLAKE2B-512 digest of both secrets, truncated to 32 bytes, is
// the natural reading of "combine" and matches kexRound's single
// installedPrimaryPair field). holdBack marks the pair for the
// bootstrap-window treatment the initial handshake's primary pair needs;
// a key update's pair skips it.
func (d *Driver) deriveCombinedKeyPair(s *Session, holdBack bool) (*keyset.SymmetricKeyPair, error) {
	hashAlg, err := kex.HashAlgorithmFor(s.NegotiatedAlgorithms.Hash)
	if err != nil {
		return nil, err
	}
	symAlg, err := kex.SymmetricAlgorithmFor(s.NegotiatedAlgorithms.Symmetric)
	if err != nil {
		return nil, err
	}

	combined, err := combineSharedSecrets(s.kx.primaryData.SharedSecret, s.kx.secondaryData.SharedSecret)
	if err != nil {
		return nil, err
	}

	leg := "session"
	if s.kx.keyUpdate {
		leg = "key-update"
	}
	pair, err := kex.DeriveKeyPair(hashAlg, symAlg, leg, s.epoch, combined, d.settings.Local.GlobalSharedSecret)
	if err != nil {
		return nil, err
	}
	s.epoch++

	// DeriveKeyPair labels its halves from Alice's point of view; Bob
	// decrypts with what Alice encrypts with, and the other way round.
	if s.Handshake.Role() == keyset.RoleBob {
		pair.Encryption, pair.Decryption = pair.Decryption, pair.Encryption
	}

	if holdBack {
		pair.UseForEncryption = false
		s.KeySet.Insert(pair)
	}
	return pair, nil
}

func combineSharedSecrets(primary, secondary [32]byte) ([32]byte, error) {
	var out [32]byte
	digest, err := crypto.Sum(crypto.HashBLAKE2B512, append(primary[:], secondary[:]...))
	if err != nil {
		return out, err
	}
	copy(out[:], digest[:32])
	return out, nil
}

// maybeStartKeyUpdate triggers a new key-update round from the inbound
// side once one is due, generating a fresh primary leg and enqueuing its
// blob ahead of any queued application traffic (spec.md §4.5: "Triggers
// on the inbound side only").
func (d *Driver) maybeStartKeyUpdate(s *Session, now time.Time) {
	if s.ConnectionType != ConnectionInbound {
		return
	}
	if !s.KeyUpdateDue(now, d.settings.Local.KeyUpdate.RequireAfterNumProcessedBytes) {
		return
	}

	kind, err := s.KeyUpdate.BeginUpdate(now)
	if err != nil {
		return
	}

	primary, err := kex.NewPrimaryLeg(keyset.RoleAlice)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Driver.maybeStartKeyUpdate",
			"luid":     s.LUID,
			"error":    err,
		}).Warn("Failed to start key-update primary leg")
		return
	}
	primary.SetReplayGuard(d.replayGuard)
	s.kx = &kexRound{keyUpdate: true, chosen: s.NegotiatedAlgorithms, primary: primary}
	s.ScheduleNextKeyUpdate(now, d.settings.Local.KeyUpdate.MinInterval, d.settings.Local.KeyUpdate.MaxInterval)

	s.EnqueuePriority(message.Message{Kind: kind, Fragment: message.FragmentComplete, Data: primary.HandshakeBlob()})
}

// processKeyUpdateMessage drives one received key-update kind through
// s.KeyUpdate, doing the matching crypto step for each reply it produces
// and enqueuing every reply in order (spec.md §4.5). A single received
// kind can produce two replies — Bob's End-secondary reply and his own
// KeyUpdateReady land in the same step.
func (d *Driver) processKeyUpdateMessage(s *Session, now time.Time, m message.Message) error {
	replies, complete, err := s.KeyUpdate.ProcessMessage(now, m.Kind)
	if err != nil {
		return fmt.Errorf("peer: key update: %w", err)
	}

	for _, reply := range replies {
		data, err := d.applyReceivedKeyUpdateKind(s, m.Kind, m.Data, reply)
		if err != nil {
			return fmt.Errorf("peer: key update: %w", err)
		}
		s.EnqueuePriority(message.Message{Kind: reply, Fragment: message.FragmentComplete, Data: data})
	}

	if complete {
		s.kx = nil
	}
	return nil
}

// applyReceivedKeyUpdateKind applies the crypto side effect of having
// just received m.Kind and returns the payload for one of its replies
// (reply distinguishes the two-reply case, where End-secondary and
// KeyUpdateReady need different payloads from the same received kind).
func (d *Driver) applyReceivedKeyUpdateKind(s *Session, received message.Kind, data []byte, reply message.Kind) ([]byte, error) {
	switch received {

	case message.KindBeginPrimaryKeyUpdateExchange:
		primary, err := kex.NewPrimaryLeg(keyset.RoleBob)
		if err != nil {
			return nil, fmt.Errorf("starting key-update primary leg: %w", err)
		}
		primary.SetReplayGuard(d.replayGuard)
		primaryData, err := primary.DeriveSharedSecret(data)
		if err != nil {
			return nil, fmt.Errorf("deriving key-update primary shared secret: %w", err)
		}
		s.kx = &kexRound{keyUpdate: true, chosen: s.NegotiatedAlgorithms, primary: primary, primaryData: primaryData}
		return primary.HandshakeBlob(), nil

	case message.KindEndPrimaryKeyUpdateExchange:
		primaryData, err := s.kx.primary.DeriveSharedSecret(data)
		if err != nil {
			return nil, fmt.Errorf("deriving key-update primary shared secret: %w", err)
		}
		s.kx.primaryData = primaryData
		secondary := kex.NewSecondaryLegAlice(*d.secondaryLegKey)
		secondary.SetReplayGuard(d.replayGuard)
		s.kx.secondary = secondary
		s.kx.aliceKeyPair = d.secondaryLegKey
		return secondary.AliceHandshakeBlob(), nil

	case message.KindBeginSecondaryKeyUpdateExchange:
		secondary := kex.NewSecondaryLegBob()
		secondary.SetReplayGuard(d.replayGuard)
		secondaryData, ciphertext, err := secondary.BobEncapsulate(data)
		if err != nil {
			return nil, fmt.Errorf("encapsulating key-update secondary leg: %w", err)
		}
		s.kx.secondary = secondary
		s.kx.secondaryData = secondaryData

		if reply == message.KindEndSecondaryKeyUpdateExchange {
			return ciphertext, nil
		}
		// reply == KindKeyUpdateReady: both legs are complete on this
		// side, so install the rotated pair now.
		pair, err := d.deriveCombinedKeyPair(s, false)
		if err != nil {
			return nil, fmt.Errorf("deriving rotated key pair: %w", err)
		}
		s.KeySet.Insert(pair)
		return nil, nil

	case message.KindEndSecondaryKeyUpdateExchange:
		secondaryData, err := s.kx.secondary.AliceDecapsulate(data)
		if err != nil {
			return nil, fmt.Errorf("decapsulating key-update secondary leg: %w", err)
		}
		s.kx.secondaryData = secondaryData
		pair, err := d.deriveCombinedKeyPair(s, false)
		if err != nil {
			return nil, fmt.Errorf("deriving rotated key pair: %w", err)
		}
		s.KeySet.Insert(pair)
		return nil, nil

	case message.KindKeyUpdateReady:
		return nil, nil

	default:
		return nil, fmt.Errorf("unexpected key-update kind %s", received)
	}
}
