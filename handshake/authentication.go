package handshake

import (
	"errors"
	"fmt"

	"github.com/quantumgate/quantumgate/buffer"
	"github.com/quantumgate/quantumgate/crypto"
	"github.com/quantumgate/quantumgate/quuid"
)

// ErrUnauthenticatedNotAllowed is returned when a peer sends an empty
// signature (requesting unauthenticated communication) while local policy
// requires authentication (spec.md §4.2).
var ErrUnauthenticatedNotAllowed = errors.New("handshake: unauthenticated communication is not allowed")

// ErrSignatureVerificationFailed is returned when a non-empty signature
// fails to verify against the claimed peer's public key.
var ErrSignatureVerificationFailed = errors.New("handshake: signature verification failed")

// ErrPeerKeyUnknown is returned when a peer's public key cannot be
// obtained because it isn't pinned in the access plane.
var ErrPeerKeyUnknown = errors.New("handshake: peer public key unknown")

// AuthenticationPayload is the inner content of a Begin/EndAuthentication
// message (spec.md §4.2): {local_UUID, local_session_id, signature}. An
// empty Signature requests unauthenticated communication.
type AuthenticationPayload struct {
	PeerUUID  quuid.UUID
	SessionID uint64
	Signature []byte
}

// BuildAuthenticationPayload signs transcript with privateKey and packages
// it alongside the local identity, or leaves Signature empty if
// requestUnauthenticated is set.
func BuildAuthenticationPayload(localUUID quuid.UUID, sessionID uint64, privateKey [32]byte, transcript []byte, requestUnauthenticated bool) (AuthenticationPayload, error) {
	if requestUnauthenticated {
		return AuthenticationPayload{PeerUUID: localUUID, SessionID: sessionID}, nil
	}
	sig, err := crypto.Sign(transcript, privateKey)
	if err != nil {
		return AuthenticationPayload{}, fmt.Errorf("handshake: signing transcript: %w", err)
	}
	return AuthenticationPayload{PeerUUID: localUUID, SessionID: sessionID, Signature: sig[:]}, nil
}

// VerifyAuthenticationPayload checks p's signature against transcript
// using peerPublicKey, which the caller obtains from the access plane's
// pinned-key store (spec.md §4.2: "obtained either from the access
// plane's allow-list (if pinned) or refused"). An empty signature is
// accepted only when requireAuthentication is false.
func VerifyAuthenticationPayload(p AuthenticationPayload, transcript []byte, peerPublicKey [32]byte, requireAuthentication bool) error {
	if len(p.Signature) == 0 {
		if requireAuthentication {
			return ErrUnauthenticatedNotAllowed
		}
		return nil
	}
	if len(p.Signature) != crypto.SignatureSize {
		return ErrSignatureVerificationFailed
	}
	var sig crypto.Signature
	copy(sig[:], p.Signature)

	ok, err := crypto.Verify(transcript, sig, peerPublicKey)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	if !ok {
		return ErrSignatureVerificationFailed
	}
	return nil
}

// EncodeAuthenticationPayload serializes p for transport as an inner
// message's Data.
func EncodeAuthenticationPayload(p AuthenticationPayload) []byte {
	w := buffer.NewWriter(0)
	w.WriteBytes(p.PeerUUID.Bytes())
	w.WriteUint64(p.SessionID)
	w.WritePrefixed8(p.Signature)
	return w.Bytes()
}

// DecodeAuthenticationPayload reverses EncodeAuthenticationPayload.
func DecodeAuthenticationPayload(data []byte) (AuthenticationPayload, error) {
	r := buffer.NewReader(data)

	idBytes, err := r.ReadBytes(quuid.Size)
	if err != nil {
		return AuthenticationPayload{}, err
	}
	id, err := quuid.Parse(idBytes)
	if err != nil {
		return AuthenticationPayload{}, err
	}

	sessionID, err := r.ReadUint64()
	if err != nil {
		return AuthenticationPayload{}, err
	}

	sig, err := r.ReadPrefixed8(crypto.SignatureSize)
	if err != nil {
		return AuthenticationPayload{}, err
	}

	return AuthenticationPayload{PeerUUID: id, SessionID: sessionID, Signature: sig}, nil
}
