package quuid

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
	"github.com/quantumgate/quantumgate/crypto"
)

// Size is the fixed wire length of a QuantumGate UUID.
const Size = 16

// fingerprintSize is the portion of the UUID body bound to the owner's
// public key for Peer UUIDs (spec.md §6: "recomputes a hash-derived
// portion and compares").
const fingerprintSize = 14

// Kind distinguishes a Peer identity from an Extender identity.
type Kind uint8

const (
	KindPeer Kind = iota
	KindExtender
)

func (k Kind) String() string {
	switch k {
	case KindPeer:
		return "Peer"
	case KindExtender:
		return "Extender"
	default:
		return "Unknown"
	}
}

// SignatureAlgorithm identifies which signing algorithm a Peer UUID's
// public key uses (spec.md §4.4: "the signing algorithm implied by the
// UUID"). Only meaningful when Kind is KindPeer.
type SignatureAlgorithm uint8

const (
	SignatureEd25519 SignatureAlgorithm = iota
)

var (
	// ErrWrongSize is returned when parsing a byte slice that isn't
	// exactly Size bytes long.
	ErrWrongSize = errors.New("quuid: wrong byte length")
	// ErrNotPeer is returned by operations that only make sense for a
	// Peer UUID (such as Verify) when called on an Extender UUID.
	ErrNotPeer = errors.New("quuid: not a peer UUID")
)

// UUID is a 16-byte QuantumGate identifier: a type tag, a signature
// algorithm tag (Peer only), and a 14-byte body. For a Peer UUID the body
// is a hash fingerprint of the owner's long-term public key; for an
// Extender UUID the body is random.
type UUID [Size]byte

// NewPeerUUID derives a Peer UUID bound to publicKey under sigAlg. The
// binding can later be checked with Verify without consulting any side
// channel other than the public key itself.
func NewPeerUUID(publicKey [32]byte, sigAlg SignatureAlgorithm) (UUID, error) {
	fingerprint, err := fingerprintOf(publicKey)
	if err != nil {
		return UUID{}, err
	}

	var id UUID
	id[0] = byte(KindPeer)
	id[1] = byte(sigAlg)
	copy(id[2:], fingerprint)
	return id, nil
}

// NewExtenderUUID generates a fresh, randomly identified Extender UUID.
// Extenders carry no public-key binding, so there is nothing to derive
// the body from; it is pulled from a cryptographically random UUIDv4.
func NewExtenderUUID() UUID {
	random := uuid.New()

	var id UUID
	id[0] = byte(KindExtender)
	id[1] = 0
	copy(id[2:], random[2:Size])
	return id
}

// Parse reads a UUID from its 16-byte wire representation.
func Parse(b []byte) (UUID, error) {
	if len(b) != Size {
		return UUID{}, ErrWrongSize
	}
	var id UUID
	copy(id[:], b)
	return id, nil
}

// Kind reports whether id identifies a Peer or an Extender.
func (id UUID) Kind() Kind {
	return Kind(id[0])
}

// SignatureAlgorithm reports the signing algorithm a Peer UUID's owner
// uses. The result is meaningless for an Extender UUID.
func (id UUID) SignatureAlgorithm() SignatureAlgorithm {
	return SignatureAlgorithm(id[1])
}

// Verify checks that id is the Peer UUID bound to publicKey. It fails
// closed: any Kind other than KindPeer, or a mismatched fingerprint,
// returns false.
func (id UUID) Verify(publicKey [32]byte) (bool, error) {
	if id.Kind() != KindPeer {
		return false, ErrNotPeer
	}
	fingerprint, err := fingerprintOf(publicKey)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(id[2:], fingerprint) == 1, nil
}

// Bytes returns the UUID's 16-byte wire representation.
func (id UUID) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, id[:])
	return out
}

// String renders the UUID as lowercase hex, grouped like a standard UUID
// for readability in logs.
func (id UUID) String() string {
	b := id[:]
	return hex.EncodeToString(b[0:4]) + "-" +
		hex.EncodeToString(b[4:6]) + "-" +
		hex.EncodeToString(b[6:8]) + "-" +
		hex.EncodeToString(b[8:10]) + "-" +
		hex.EncodeToString(b[10:16])
}

// IsZero reports whether id is the zero value.
func (id UUID) IsZero() bool {
	return id == UUID{}
}

func fingerprintOf(publicKey [32]byte) ([]byte, error) {
	sum, err := crypto.Sum(crypto.HashBLAKE2B512, publicKey[:])
	if err != nil {
		return nil, err
	}
	return sum[:fingerprintSize], nil
}
