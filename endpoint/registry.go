package endpoint

import (
	"net"
	"sort"
	"sync"

	"github.com/quantumgate/quantumgate/access"
	"github.com/quantumgate/quantumgate/crypto"
)

// Registry aggregates Endpoint reports across peers and prunes to
// MaxEndpoints by relevance (spec.md §4.12).
type Registry struct {
	mu           sync.Mutex
	endpoints    map[string]*Endpoint
	maxEndpoints int
	timeProvider crypto.TimeProvider
}

// NewRegistry returns an empty Registry that prunes down to maxEndpoints
// entries whenever a report pushes it over.
func NewRegistry(maxEndpoints int, tp crypto.TimeProvider) *Registry {
	if tp == nil {
		tp = crypto.GetDefaultTimeProvider()
	}
	return &Registry{
		endpoints:    make(map[string]*Endpoint),
		maxEndpoints: maxEndpoints,
		timeProvider: tp,
	}
}

// reporterNetworkKey computes the CIDR/16 (v4) or /48 (v6) network a
// reporter's IP falls in, per spec.md §4.12.
func reporterNetworkKey(reporterIP net.IP) (string, error) {
	family := "ip4"
	bits := 16
	if reporterIP.To4() == nil {
		family = "ip6"
		bits = 48
	}
	mask, err := access.CreateMask(family, bits)
	if err != nil {
		return "", err
	}
	masked := reporterIP.Mask(mask)
	return family + ":" + masked.String(), nil
}

// Report records that reporterIP, over the given protocol, observed our
// public endpoint as (ip, port). It returns whether the report was
// counted: an untrusted report from a network that has already vouched
// for this endpoint is ignored rather than double-counted.
func (r *Registry) Report(ip net.IP, proto Protocol, port uint16, reporterIP net.IP, reporterTrusted bool) (bool, error) {
	netKey, err := reporterNetworkKey(reporterIP)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := ip.String()
	e, exists := r.endpoints[key]
	now := r.timeProvider.Now()
	if !exists {
		e = newEndpoint(ip, now)
		r.endpoints[key] = e
	}

	_, seenNetwork := e.ReportingNetworks[netKey]
	if seenNetwork && !reporterTrusted {
		return false, nil
	}

	e.ReportingNetworks[netKey] = struct{}{}
	e.addPort(proto, port)
	e.LastSeen = now
	if reporterTrusted {
		e.Trusted = true
	}

	if r.maxEndpoints > 0 && len(r.endpoints) > r.maxEndpoints {
		r.pruneLocked()
	}
	return true, nil
}

// MarkVerified flags ip's endpoint as independently verified (for
// example, by a successful inbound connection on the reported address).
func (r *Registry) MarkVerified(ip net.IP) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.endpoints[ip.String()]; ok {
		e.Verified = true
	}
}

// Get returns the current aggregated view for ip, if any has been
// reported.
func (r *Registry) Get(ip net.IP) (*Endpoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.endpoints[ip.String()]
	return e, ok
}

// Len returns the number of distinct endpoints currently tracked.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.endpoints)
}

// RemoveLeastRelevant drops the n lowest-relevance endpoints, scored by
// (verified, trusted, reporter-network diversity, recency) — each factor
// breaking ties in the one before it, per spec.md §4.12.
func (r *Registry) RemoveLeastRelevant(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneN(n)
}

func (r *Registry) pruneLocked() {
	over := len(r.endpoints) - r.maxEndpoints
	if over > 0 {
		r.pruneN(over)
	}
}

func (r *Registry) pruneN(n int) {
	if n <= 0 || n >= len(r.endpoints) {
		if n >= len(r.endpoints) {
			r.endpoints = make(map[string]*Endpoint)
		}
		return
	}

	keys := make([]string, 0, len(r.endpoints))
	for k := range r.endpoints {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		return lessRelevant(r.endpoints[keys[i]], r.endpoints[keys[j]])
	})

	for _, k := range keys[:n] {
		delete(r.endpoints, k)
	}
}

// lessRelevant reports whether a is strictly less relevant than b.
func lessRelevant(a, b *Endpoint) bool {
	if a.Verified != b.Verified {
		return !a.Verified
	}
	if a.Trusted != b.Trusted {
		return !a.Trusted
	}
	if a.diversity() != b.diversity() {
		return a.diversity() < b.diversity()
	}
	return a.LastSeen.Before(b.LastSeen)
}
