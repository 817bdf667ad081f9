package peer

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/quantumgate/quantumgate/access"
	"github.com/quantumgate/quantumgate/buffer"
	"github.com/quantumgate/quantumgate/crypto"
	"github.com/quantumgate/quantumgate/frame"
	"github.com/quantumgate/quantumgate/keyset"
	"github.com/quantumgate/quantumgate/limits"
	"github.com/quantumgate/quantumgate/message"
	"github.com/sirupsen/logrus"
)

// receiveBufferChunk is how much is read from the socket in one Receive
// call; frames accumulate in s.fr.recv across calls until Peek reports a
// complete one (spec.md §4.3).
const receiveBufferChunk = 65536

// receiveFrames pulls whatever the socket currently has buffered, then
// decodes and dispatches as many complete frames as are available, up to
// maxBurst (spec.md §4.9: "a worker processes at most
// WorkerThreadsMaxBurst events per peer before yielding").
func (d *Driver) receiveFrames(s *Session, now time.Time, maxBurst int) error {
	if s.Socket == nil {
		return nil
	}

	if err := s.Socket.UpdateIOStatus(0); err != nil {
		s.Disconnect(DisconnectSocketError)
		return fmt.Errorf("peer: updating io status: %w", err)
	}
	io := s.Socket.GetIOStatus()
	if io.HasError {
		s.Disconnect(DisconnectSocketError)
		return fmt.Errorf("peer: socket error (code %d)", io.ErrorCode)
	}

	if io.CanRead {
		buf := make([]byte, receiveBufferChunk)
		n, err := s.Socket.Receive(buf)
		if err != nil {
			s.Disconnect(DisconnectReceiveError)
			return fmt.Errorf("peer: receiving: %w", err)
		}
		if n > 0 {
			s.fr.recv = append(s.fr.recv, buf[:n]...)
			s.BytesReceived += uint64(n)
			if len(s.fr.recv) > limits.MaxProcessingBuffer {
				d.penalize(d.sessionRemoteIP(s), access.SeveritySevere)
				s.Disconnect(DisconnectUnknownMessageError)
				return fmt.Errorf("peer: receive buffer exceeds maximum size")
			}
		}
	}

	for i := 0; i < maxBurst; i++ {
		consumed, err := d.consumeOneFrame(s, now)
		if err != nil {
			return err
		}
		if !consumed {
			break
		}
		if s.Status() == StatusDisconnected {
			break
		}
	}
	return nil
}

// consumeOneFrame strips a pending random prefix, checks whether a
// complete frame is now buffered, and if so decrypts it and dispatches
// every inner message it carries. It returns false (no error) when the
// buffer holds no complete frame yet.
func (d *Driver) consumeOneFrame(s *Session, now time.Time) (bool, error) {
	if s.fr.nextPrefixLen > 0 {
		if len(s.fr.recv) < int(s.fr.nextPrefixLen) {
			return false, nil
		}
		s.fr.recv = s.fr.recv[s.fr.nextPrefixLen:]
		s.fr.nextPrefixLen = 0
	}

	result, total := frame.Peek(s.fr.recv)
	switch result {
	case frame.Incomplete:
		return false, nil
	case frame.TooMuchData:
		d.penalize(d.sessionRemoteIP(s), access.SeveritySevere)
		s.Disconnect(DisconnectUnknownMessageError)
		return false, fmt.Errorf("peer: frame declares excessive data size")
	}

	framed := s.fr.recv[:total]

	h, err := frame.DecodeHeader(buffer.NewReader(framed))
	if err != nil {
		d.penalize(d.sessionRemoteIP(s), access.SeveritySevere)
		s.Disconnect(DisconnectUnknownMessageError)
		return false, fmt.Errorf("peer: decoding frame header: %w", err)
	}
	if age := now.Sub(time.UnixMilli(h.SystemTimeMs)); age > d.settings.Message.AgeTolerance || age < -d.settings.Message.AgeTolerance {
		d.penalize(d.sessionRemoteIP(s), access.SeverityModerate)
		s.Disconnect(DisconnectUnknownMessageError)
		return false, fmt.Errorf("peer: frame system time outside age tolerance")
	}
	if err := d.checkPeerCounter(s, h.Counter); err != nil {
		return false, err
	}

	plaintext, pair, err := d.openFrame(s, now, h, framed)
	if err != nil {
		d.penalize(d.sessionRemoteIP(s), access.SeveritySevere)
		s.Disconnect(DisconnectUnknownMessageError)
		return false, fmt.Errorf("peer: opening frame: %w", err)
	}
	if pair != nil {
		pair.Decryption.AddProcessed(len(plaintext))
	}

	s.fr.recv = s.fr.recv[total:]
	s.fr.nextPrefixLen = h.NextRandomPrefixLength

	msgs, err := message.DecodePayload(plaintext)
	if err != nil {
		d.penalize(d.sessionRemoteIP(s), access.SeveritySevere)
		s.Disconnect(DisconnectUnknownMessageError)
		return false, fmt.Errorf("peer: decoding frame payload: %w", err)
	}

	for _, m := range msgs {
		if err := d.dispatchMessage(s, now, m); err != nil {
			return false, err
		}
		if s.Status() == StatusDisconnected {
			return true, nil
		}
	}
	return true, nil
}

// checkPeerCounter enforces strict monotonic frame counters once they are
// active (spec.md §4.1, §4.3: "requiring strict monotonic counters on
// received frames"). Before s.PeerCounter is observed (during and before
// SessionInit, when the counter field is still ignored) any value passes
// and nothing is recorded here — the true starting value comes from the
// peer's advertised StartCounter via ObservePeerCounter, not from a frame
// header. Once active, a counter that doesn't match the expected next
// value is rejected before its payload is decrypted or dispatched,
// closing the replay window scenario 3 and the in-flight key update of
// scenario 5 both depend on.
func (d *Driver) checkPeerCounter(s *Session, counter uint8) error {
	if s.PeerCounter == nil {
		return nil
	}
	if counter != *s.PeerCounter {
		d.penalize(d.sessionRemoteIP(s), access.SeveritySevere)
		s.Disconnect(DisconnectUnknownMessageError)
		return fmt.Errorf("peer: frame counter %d does not match expected %d", counter, *s.PeerCounter)
	}
	*s.PeerCounter = counter + 1
	return nil
}

// headerAAD is the additional authenticated data bound to a frame's
// payload: the header with DataSize zeroed, since DataSize isn't known
// until the ciphertext it describes has been produced (spec.md §4.3).
func headerAAD(h frame.Header) []byte {
	h.DataSize = 0
	w := buffer.NewWriter(frame.HeaderSize)
	h.Encode(w)
	return w.Bytes()
}

// openFrame tries every decryption-usable key in s.KeySet newest-first,
// falling back to the deterministic auto-generated key for the frames
// that precede any installed pair (spec.md §4.3, §4.4: "iterate candidate
// decryption keys from newest to oldest").
func (d *Driver) openFrame(s *Session, now time.Time, h frame.Header, framed []byte) ([]byte, *keyset.SymmetricKeyPair, error) {
	aad := headerAAD(h)

	for _, pair := range s.KeySet.DecryptionCandidates(now) {
		nonce, err := crypto.DeriveNonce(pair.Decryption.HashAlgorithm, pair.Decryption.AuthKey, h.NonceSeed)
		if err != nil {
			continue
		}
		_, plaintext, err := frame.Extract(framed, pair.Decryption.Key, nonce, aad)
		if err == nil {
			return plaintext, pair, nil
		}
	}

	autoKey, err := frame.AutoGeneratedKey(h.NonceSeed)
	if err != nil {
		return nil, nil, fmt.Errorf("deriving auto-generated key: %w", err)
	}
	nonce, err := crypto.DeriveNonce(crypto.HashBLAKE2B512, autoKey, h.NonceSeed)
	if err != nil {
		return nil, nil, fmt.Errorf("deriving auto-key nonce: %w", err)
	}
	_, plaintext, err := frame.Extract(framed, autoKey, nonce, aad)
	if err != nil {
		return nil, nil, fmt.Errorf("no usable key opened this frame: %w", err)
	}
	return plaintext, nil, nil
}

// dispatchMessage feeds m through reassembly and, once a complete inner
// message emerges, routes it by kind: application traffic to
// d.application, noise silently dropped, everything else (the handshake
// and key-update kinds) to processHandshakeMessage.
func (d *Driver) dispatchMessage(s *Session, now time.Time, raw message.Message) error {
	complete, ok, err := s.InboundReassembler.Feed(raw)
	if err != nil {
		d.penalize(d.sessionRemoteIP(s), access.SeveritySevere)
		s.Disconnect(DisconnectUnknownMessageError)
		return fmt.Errorf("peer: reassembling message: %w", err)
	}
	if !ok {
		return nil
	}
	m := *complete

	if m.Compressed {
		plain, err := message.Decompress(s.NegotiatedAlgorithms.Compression, m.Data)
		if err != nil {
			d.penalize(d.sessionRemoteIP(s), access.SeveritySevere)
			s.Disconnect(DisconnectUnknownMessageError)
			return fmt.Errorf("peer: decompressing message: %w", err)
		}
		m.Data = plain
	}

	if kind, limited := receiveRateKindFor(m.Kind); limited {
		if !s.Rates.Window(kind).Add(uint64(len(m.Data))) {
			d.penalize(d.sessionRemoteIP(s), access.SeverityModerate)
			return fmt.Errorf("peer: receive rate limit exceeded for %s", m.Kind)
		}
	}

	switch m.Kind {
	case message.KindNoise:
		return nil
	case message.KindRelayCreate:
		return d.application.HandleRelayCreate(s, m.Data)
	case message.KindRelayStatus, message.KindRelayData, message.KindRelayDataAck:
		return d.application.HandleRelayTraffic(s, m.Kind, m.Data)
	case message.KindExtenderCommunication:
		return d.application.HandleExtenderCommunication(s, m.ExtenderUUID, m.Data)
	case message.KindExtenderUpdate:
		return d.application.HandleExtenderUpdate(s, m.ExtenderUUID, m.Data)
	default:
		return d.processHandshakeMessage(s, now, m)
	}
}

func receiveRateKindFor(k message.Kind) (RateKind, bool) {
	switch k {
	case message.KindExtenderCommunication:
		return RateExtenderCommunicationReceive, true
	case message.KindRelayData:
		return RateRelayDataReceive, true
	default:
		return 0, false
	}
}

func sendRateKindFor(k message.Kind) (RateKind, bool) {
	switch k {
	case message.KindExtenderCommunication:
		return RateExtenderCommunicationSend, true
	case message.KindRelayData:
		return RateRelayDataSend, true
	case message.KindNoise:
		return RateNoiseSend, true
	default:
		return 0, false
	}
}

// drainOutgoing batches the normal send queue into as few frames as the
// effective payload size allows and writes them to the socket (spec.md
// §2: "a payload of 1..N inner messages"). Until FlagConcatenateMessages
// is set — true only once the session reaches Ready (spec.md §4.3: "exactly
// one inner message is written" before then) — each frame carries exactly
// one inner message instead of being batched up to effectiveMax. A message
// whose rate window is currently exhausted is deferred rather than sent,
// and retried once the window resets (spec.md §4.13).
func (d *Driver) drainOutgoing(s *Session, now time.Time) error {
	if s.Socket == nil {
		return nil
	}

	concatenate := s.Flags.Has(FlagConcatenateMessages)

	effectiveMax := limits.MaxInnerData - s.fr.dataSize.Offset
	if effectiveMax < 4096 {
		effectiveMax = 4096
	}

	var batch []message.Message
	size := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := d.sendFrame(s, now, batch)
		batch = nil
		size = 0
		return err
	}

	for {
		m, ok := s.DequeueSend()
		if !ok {
			break
		}

		if kind, limited := sendRateKindFor(m.Kind); limited {
			if !s.Rates.Window(kind).Add(uint64(len(m.Data))) {
				s.Rates.Defer(m)
				continue
			}
		}

		encoded := estimateEncodedSize(m)
		if len(batch) > 0 && (!concatenate || size+encoded > effectiveMax) {
			if err := flush(); err != nil {
				return err
			}
		}
		batch = append(batch, m)
		size += encoded
	}

	return flush()
}

func estimateEncodedSize(m message.Message) int {
	n := 2 + 1 + 4 + len(m.Data)
	if m.HasExtender {
		n += 16
	}
	return n
}

// sendFrame encrypts msgs as one frame payload and writes it to the
// socket, honoring the random-prefix length promised by the previous
// frame and promising a freshly chosen one for the next (spec.md §4.3).
func (d *Driver) sendFrame(s *Session, now time.Time, msgs []message.Message) error {
	payload, err := message.EncodePayload(msgs)
	if err != nil {
		return fmt.Errorf("peer: encoding outgoing payload: %w", err)
	}

	pair := s.KeySet.EncryptionKey(now)
	seed := randomUint32()

	var key, authKey []byte
	hashAlg := crypto.HashBLAKE2B512
	if pair != nil {
		key = pair.Encryption.Key
		authKey = pair.Encryption.AuthKey
		hashAlg = pair.Encryption.HashAlgorithm
	} else {
		autoKey, err := frame.AutoGeneratedKey(seed)
		if err != nil {
			return fmt.Errorf("peer: deriving auto-generated key: %w", err)
		}
		key = autoKey
		authKey = autoKey
	}

	nonce, err := crypto.DeriveNonce(hashAlg, authKey, seed)
	if err != nil {
		return fmt.Errorf("peer: deriving frame nonce: %w", err)
	}

	nextPrefixLen := d.randomPrefixLength()
	h := frame.Header{
		NonceSeed:                 seed,
		Counter:                   s.fr.counter,
		CurrentRandomPrefixLength: s.fr.sendNextPrefixLen,
		NextRandomPrefixLength:    nextPrefixLen,
		SystemTimeMs:              now.UnixMilli(),
	}
	aad := headerAAD(h)

	randomPrefix := make([]byte, s.fr.sendNextPrefixLen)
	if _, err := rand.Read(randomPrefix); err != nil {
		return fmt.Errorf("peer: generating random prefix: %w", err)
	}

	framed, err := frame.Build(randomPrefix, h, key, nonce, aad, payload)
	if err != nil {
		return fmt.Errorf("peer: building frame: %w", err)
	}

	if _, err := s.Socket.Send(framed); err != nil {
		s.Disconnect(DisconnectSendError)
		return fmt.Errorf("peer: sending frame: %w", err)
	}

	if pair != nil {
		pair.Encryption.AddProcessed(len(payload))
	}
	s.BytesSent += uint64(len(framed))
	s.fr.counter++
	s.fr.sendNextPrefixLen = nextPrefixLen
	if s.LocalCounter != nil {
		*s.LocalCounter = s.fr.counter
	}
	return nil
}

// randomPrefixLength picks a length within the configured bounds for the
// next frame's random prefix (spec.md §4.3), independent of the
// GSS-derived first-frame length primeGSSKeyPair sets once at connect.
func (d *Driver) randomPrefixLength() uint16 {
	min := d.settings.Message.MinRandomDataPrefixSize
	max := d.settings.Message.MaxRandomDataPrefixSize
	if max <= min {
		return min
	}
	span := uint32(max - min)
	return min + uint16(randomUint32()%span)
}

func randomUint32() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "randomUint32",
			"error":    err,
		}).Warn("Falling back to zero after random read failure")
		return 0
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
}
