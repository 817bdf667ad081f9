package manager

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"math/big"
	"net"
	"sync"

	"github.com/quantumgate/quantumgate/peer"
	"github.com/quantumgate/quantumgate/quuid"
)

// ErrPeerNotFound is returned by lookups and GetRandomPeer when no
// eligible peer exists (spec.md §4.10).
var ErrPeerNotFound = errors.New("manager: peer not found")

// MembershipMode selects how QueryPeers combines its filter criteria
// (spec.md §4.10: "OneOf | AllOf | NoneOf semantics").
type MembershipMode int

const (
	ModeOneOf MembershipMode = iota
	ModeAllOf
	ModeNoneOf
)

// QueryParams filters QueryPeers by authentication, relay, and direction
// membership. A nil/zero-value field is not checked. Extender membership
// is deferred to the caller, which can inspect the returned sessions.
type QueryParams struct {
	Authenticated  *bool
	Relayed        *bool
	ConnectionType *peer.ConnectionType
	Mode           MembershipMode
}

func (p QueryParams) matches(s *peer.Session) bool {
	var criteria []bool
	if p.Authenticated != nil {
		criteria = append(criteria, s.IsAuthenticated() == *p.Authenticated)
	}
	if p.Relayed != nil {
		criteria = append(criteria, s.Relay == *p.Relayed)
	}
	if p.ConnectionType != nil {
		criteria = append(criteria, s.ConnectionType == *p.ConnectionType)
	}
	if len(criteria) == 0 {
		return true
	}

	switch p.Mode {
	case ModeAllOf:
		for _, c := range criteria {
			if !c {
				return false
			}
		}
		return true
	case ModeNoneOf:
		for _, c := range criteria {
			if c {
				return false
			}
		}
		return true
	default: // ModeOneOf
		for _, c := range criteria {
			if c {
				return true
			}
		}
		return false
	}
}

// LookupMaps indexes every live peer session four ways — by LUID, by
// peer UUID, by remote address, and by endpoint hash — and keeps the
// four mutually consistent under a single lock (spec.md §3's "all four
// must remain mutually consistent" and §4.10).
type LookupMaps struct {
	mu sync.RWMutex

	byLUID     map[peer.LUID]*peer.Session
	byUUID     map[quuid.UUID]map[peer.LUID]struct{}
	byAddress  map[string]map[peer.LUID]struct{}
	byEndpoint map[peer.LUID]string // LUID -> address, for removal
}

// NewLookupMaps returns an empty set of lookup maps.
func NewLookupMaps() *LookupMaps {
	return &LookupMaps{
		byLUID:     make(map[peer.LUID]*peer.Session),
		byUUID:     make(map[quuid.UUID]map[peer.LUID]struct{}),
		byAddress:  make(map[string]map[peer.LUID]struct{}),
		byEndpoint: make(map[peer.LUID]string),
	}
}

// Add inserts s, indexed by its LUID and remote address. Its peer UUID
// index entry, if any, is populated once the UUID is learned via
// SetPeerUUID.
func (m *LookupMaps) Add(s *peer.Session, address string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byLUID[s.LUID] = s
	m.byEndpoint[s.LUID] = address
	if m.byAddress[address] == nil {
		m.byAddress[address] = make(map[peer.LUID]struct{})
	}
	m.byAddress[address][s.LUID] = struct{}{}
}

// SetPeerUUID records s's peer UUID (learned during the handshake) in
// the UUID index.
func (m *LookupMaps) SetPeerUUID(luid peer.LUID, id quuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.byUUID[id] == nil {
		m.byUUID[id] = make(map[peer.LUID]struct{})
	}
	m.byUUID[id][luid] = struct{}{}
}

// Remove deletes luid from every index.
func (m *LookupMaps) Remove(luid peer.LUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(luid)
}

func (m *LookupMaps) removeLocked(luid peer.LUID) {
	s, ok := m.byLUID[luid]
	if !ok {
		return
	}
	delete(m.byLUID, luid)

	if addr, ok := m.byEndpoint[luid]; ok {
		if bucket := m.byAddress[addr]; bucket != nil {
			delete(bucket, luid)
			if len(bucket) == 0 {
				delete(m.byAddress, addr)
			}
		}
		delete(m.byEndpoint, luid)
	}

	if s.PeerUUID != (quuid.UUID{}) {
		if bucket := m.byUUID[s.PeerUUID]; bucket != nil {
			delete(bucket, luid)
			if len(bucket) == 0 {
				delete(m.byUUID, s.PeerUUID)
			}
		}
	}
}

// Get returns the session for luid, if present.
func (m *LookupMaps) Get(luid peer.LUID) (*peer.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byLUID[luid]
	return s, ok
}

// AddressFor returns the remote address a session was added under, if
// still tracked. Used by the relay plane to learn an intermediate's
// dial address before opening the next hop (spec.md §4.14).
func (m *LookupMaps) AddressFor(luid peer.LUID) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	addr, ok := m.byEndpoint[luid]
	return addr, ok
}

// GetPeerByEndpoint returns every session currently bound to address.
func (m *LookupMaps) GetPeerByEndpoint(address string) []*peer.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket := m.byAddress[address]
	out := make([]*peer.Session, 0, len(bucket))
	for luid := range bucket {
		out = append(out, m.byLUID[luid])
	}
	return out
}

// QueryPeers returns every session matching params.
func (m *LookupMaps) QueryPeers(params QueryParams) []*peer.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*peer.Session
	for _, s := range m.byLUID {
		if params.matches(s) {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of tracked sessions.
func (m *LookupMaps) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byLUID)
}

// GetRandomPeer implements the relay-path builder (spec.md §4.10): a
// uniformly random address bucket, then a uniformly random LUID within
// it, retried up to 3 times on an excluded candidate, falling back to a
// linear scan before finally reporting ErrPeerNotFound. Eligibility
// requires Status == Ready.
func (m *LookupMaps) GetRandomPeer(excludeLUIDs map[peer.LUID]struct{}, excludeNetsV4, excludeNetsV6 []*net.IPNet, ip4Bits, ip6Bits int) (*peer.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	addresses := make([]string, 0, len(m.byAddress))
	for addr := range m.byAddress {
		addresses = append(addresses, addr)
	}
	if len(addresses) == 0 {
		return nil, ErrPeerNotFound
	}

	eligible := func(s *peer.Session, addr string) bool {
		if s.Status() != peer.StatusReady {
			return false
		}
		if excludeLUIDs != nil {
			if _, excluded := excludeLUIDs[s.LUID]; excluded {
				return false
			}
		}
		host, _, err := net.SplitHostPort(addr)
		ip := net.ParseIP(host)
		if err != nil || ip == nil {
			return true
		}
		nets := excludeNetsV4
		if ip.To4() == nil {
			nets = excludeNetsV6
		}
		for _, n := range nets {
			if n.Contains(ip) {
				return false
			}
		}
		return true
	}

	for attempt := 0; attempt < 3; attempt++ {
		addr := addresses[randIntn(len(addresses))]
		bucket := m.byAddress[addr]
		luids := make([]peer.LUID, 0, len(bucket))
		for luid := range bucket {
			luids = append(luids, luid)
		}
		if len(luids) == 0 {
			continue
		}
		candidate := luids[randIntn(len(luids))]
		s := m.byLUID[candidate]
		if eligible(s, addr) {
			return s, nil
		}
	}

	for addr, bucket := range m.byAddress {
		for luid := range bucket {
			s := m.byLUID[luid]
			if eligible(s, addr) {
				return s, nil
			}
		}
	}

	return nil, ErrPeerNotFound
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
