package relay

import (
	"errors"
	"fmt"
	"net"

	"github.com/quantumgate/quantumgate/access"
	"github.com/quantumgate/quantumgate/config"
	"github.com/quantumgate/quantumgate/message"
	"github.com/quantumgate/quantumgate/peer"
	"github.com/sirupsen/logrus"
)

// ErrDeferred is returned by Forward when the destination leg's rate
// window is full; the caller should hold the payload on the originating
// session's deferred-receive queue instead of dropping it (spec.md
// §4.13).
var ErrDeferred = errors.New("relay: destination rate window full, deferred")

// Connector opens an outbound peer session to addr. It is the seam
// between this package's routing logic and the manager's actual session
// construction (grounded on manager.EventProcessor's same separation of
// routing decision from I/O, since concrete connection establishment
// belongs to the socket layer, spec.md §1 "Out of scope").
type Connector func(addr string) (*peer.Session, error)

// Lookup is the subset of manager.LookupMaps the router needs to pick a
// relay intermediate, kept minimal so tests can supply a fake.
type Lookup interface {
	GetRandomPeer(excludeLUIDs map[peer.LUID]struct{}, excludeNetsV4, excludeNetsV6 []*net.IPNet, ip4Bits, ip6Bits int) (*peer.Session, error)
	AddressFor(luid peer.LUID) (string, bool)
}

// Router turns inbound RelayCreate messages into spliced links and
// forwards RelayData/RelayDataAck/RelayStatus traffic between a link's
// two legs, never inspecting the opaque payload (spec.md §4.14).
type Router struct {
	table     *Table
	lookup    Lookup
	settings  config.RelaySettings
	connector Connector
}

// NewRouter returns a Router backed by table, using lookup to pick relay
// intermediates and connector to open the second leg.
func NewRouter(table *Table, lookup Lookup, settings config.RelaySettings, connector Connector) *Router {
	return &Router{table: table, lookup: lookup, settings: settings, connector: connector}
}

// HandleCreate processes a RelayCreate received from origin (spec.md
// §4.14): if payload.Hops > 1 it picks a GetRandomPeer intermediate and
// opens the second leg to it, returning a RelayCreate message the caller
// must forward to that intermediate with Hops-1; if Hops == 1 it opens
// the second leg directly to payload.Endpoint and there is nothing
// further to forward.
func (r *Router) HandleCreate(origin *peer.Session, originAddr string, payload CreatePayload) (*Link, *message.Message, error) {
	excludeLUIDs := map[peer.LUID]struct{}{origin.LUID: {}}

	var excludeV4, excludeV6 []*net.IPNet
	if net4, err := r.excludedNetwork(originAddr, "ip4"); err == nil && net4 != nil {
		excludeV4 = append(excludeV4, net4)
	}
	if net6, err := r.excludedNetwork(originAddr, "ip6"); err == nil && net6 != nil {
		excludeV6 = append(excludeV6, net6)
	}

	var destAddr string
	var forward *message.Message

	if payload.Hops > 1 {
		intermediate, err := r.lookup.GetRandomPeer(excludeLUIDs, excludeV4, excludeV6,
			r.settings.IPv4ExcludedNetworksCIDRLeadingBits, r.settings.IPv6ExcludedNetworksCIDRLeadingBits)
		if err != nil {
			return nil, nil, fmt.Errorf("relay: selecting intermediate: %w", err)
		}
		addr, ok := r.lookup.AddressFor(intermediate.LUID)
		if !ok {
			return nil, nil, fmt.Errorf("relay: intermediate %v has no known address", intermediate.LUID)
		}
		destAddr = addr
		forward = &message.Message{
			Kind: message.KindRelayCreate,
			Data: CreatePayload{Endpoint: payload.Endpoint, Hops: payload.Hops - 1}.Encode(),
		}
	} else {
		destAddr = payload.Endpoint
	}

	dest, err := r.connector(destAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("relay: opening second leg to %s: %w", destAddr, err)
	}

	link := r.table.Create(origin, dest, originAddr, destAddr, payload.Hops)

	logrus.WithFields(logrus.Fields{
		"function": "Router.HandleCreate",
		"port":     link.Port,
		"hops":     payload.Hops,
		"dest":     destAddr,
	}).Info("Opened relay second leg")

	return link, forward, nil
}

// Forward routes an opaque RelayData/RelayDataAck/RelayStatus payload
// arriving on from to the other leg of its link, accounting it against
// both sides' RelayDataSend/RelayDataReceive rate windows (spec.md
// §4.13, §4.14). Kinds other than RelayData bypass rate accounting —
// RelayDataAck/RelayStatus are control traffic, not payload.
func (r *Router) Forward(from *peer.Session, kind message.Kind, data []byte) (*peer.Session, *message.Message, error) {
	link, ok := r.table.GetBySession(from.LUID)
	if !ok {
		return nil, nil, fmt.Errorf("relay: %w", ErrLinkNotFound)
	}
	other, err := link.OtherSide(from)
	if err != nil {
		return nil, nil, err
	}

	if kind == message.KindRelayData {
		n := uint64(len(data))
		if !from.Rates.Window(peer.RateRelayDataReceive).Add(n) {
			from.Rates.Defer(message.Message{Kind: kind, Data: data})
			return nil, nil, ErrDeferred
		}
		if !other.Rates.Window(peer.RateRelayDataSend).Add(n) {
			from.Rates.Window(peer.RateRelayDataReceive).Subtract(n)
			from.Rates.Defer(message.Message{Kind: kind, Data: data})
			return nil, nil, ErrDeferred
		}
	}

	return other, &message.Message{Kind: kind, Data: data}, nil
}

// Close tears down the link either leg of port belonged to.
func (r *Router) Close(port Port) {
	r.table.Remove(port)
}

func (r *Router) excludedNetwork(addr, family string) (*net.IPNet, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("relay: invalid address %q", addr)
	}

	var raw net.IP
	var bits int
	switch family {
	case "ip4":
		raw = ip.To4()
		bits = r.settings.IPv4ExcludedNetworksCIDRLeadingBits
	default:
		raw = ip.To16()
		bits = r.settings.IPv6ExcludedNetworksCIDRLeadingBits
	}
	if raw == nil {
		return nil, nil
	}

	mask, err := access.CreateMask(family, bits)
	if err != nil {
		return nil, err
	}
	return &net.IPNet{IP: raw.Mask(mask), Mask: mask}, nil
}
