package relay

import (
	"errors"
	"sync"

	"github.com/quantumgate/quantumgate/peer"
	"github.com/sirupsen/logrus"
)

// ErrUnknownLeg is returned by Link.OtherSide when the given session is
// neither leg of the link.
var ErrUnknownLeg = errors.New("relay: session is not a leg of this link")

// ErrLinkNotFound is returned when a port or session has no associated
// link.
var ErrLinkNotFound = errors.New("relay: link not found")

// Link splices two peer sessions together: Origin is the session that
// sent the RelayCreate, Destination is the outbound session this node
// opened in response — either straight to the requested endpoint (Hops
// == 1) or to a GetRandomPeer-selected intermediate (Hops > 1). Neither
// leg can decrypt what the other sends; this node only forwards opaque
// RelayData payloads between them (spec.md §4.14).
type Link struct {
	Port        Port
	Origin      *peer.Session
	Destination *peer.Session
	OriginAddr  string
	DestAddr    string
	Hops        uint8
}

// OtherSide returns the leg of the link opposite from, so a caller that
// just received traffic on one leg knows where to forward it.
func (l *Link) OtherSide(from *peer.Session) (*peer.Session, error) {
	switch from.LUID {
	case l.Origin.LUID:
		return l.Destination, nil
	case l.Destination.LUID:
		return l.Origin, nil
	default:
		return nil, ErrUnknownLeg
	}
}

// Table indexes every live relay link by its Port and by each leg's LUID,
// keeping both mutually consistent under one lock (grounded on
// manager.LookupMaps' multi-index style for the same consistency
// requirement, spec.md §3/§4.10).
type Table struct {
	mu        sync.RWMutex
	byPort    map[Port]*Link
	bySession map[peer.LUID]*Link
}

// NewTable returns an empty relay table.
func NewTable() *Table {
	return &Table{
		byPort:    make(map[Port]*Link),
		bySession: make(map[peer.LUID]*Link),
	}
}

// Create registers a new link between origin and destination and returns
// it. The caller has already opened destination (spec.md §4.14: "opens a
// new outbound peer session S2... then splices the two").
func (t *Table) Create(origin, destination *peer.Session, originAddr, destAddr string, hops uint8) *Link {
	link := &Link{
		Port:        NewPort(),
		Origin:      origin,
		Destination: destination,
		OriginAddr:  originAddr,
		DestAddr:    destAddr,
		Hops:        hops,
	}

	t.mu.Lock()
	t.byPort[link.Port] = link
	t.bySession[origin.LUID] = link
	t.bySession[destination.LUID] = link
	t.mu.Unlock()

	origin.Relay = true
	destination.Relay = true

	logrus.WithFields(logrus.Fields{
		"function": "Table.Create",
		"port":     link.Port,
		"origin":   origin.LUID,
		"dest":     destination.LUID,
		"hops":     hops,
	}).Info("Created relay link")

	return link
}

// Get returns the link registered under port.
func (t *Table) Get(port Port) (*Link, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	l, ok := t.byPort[port]
	return l, ok
}

// GetBySession returns the link one of whose legs is luid.
func (t *Table) GetBySession(luid peer.LUID) (*Link, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	l, ok := t.bySession[luid]
	return l, ok
}

// Remove deletes a link from every index. Called once either leg
// disconnects (spec.md §4.14: "RelayStatus carries lifecycle events").
func (t *Table) Remove(port Port) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.byPort[port]
	if !ok {
		return
	}
	delete(t.byPort, port)
	delete(t.bySession, l.Origin.LUID)
	delete(t.bySession, l.Destination.LUID)
}

// Len reports how many links are currently tracked.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byPort)
}
