package access

import (
	"net"
	"sync"
)

// SubnetLimit bounds concurrent connections from a single CIDR bucket,
// keyed by leadingBits significant bits of the peer IP (spec.md §4.11).
type SubnetLimit struct {
	Family      string // "ip4" or "ip6"
	LeadingBits int
	MaxConns    int
}

// SubnetLimits enforces one or more SubnetLimit rules at admission time.
// Tightening a limit after connections already exist can leave a bucket
// "over"; such a bucket stays closed to new connections until it drains
// naturally (spec.md §4.11), never forcibly evicted.
type SubnetLimits struct {
	mu      sync.Mutex
	limits  []SubnetLimit
	buckets map[string]int // bucket key -> current connection count
}

// NewSubnetLimits returns a SubnetLimits enforcing the given rules.
func NewSubnetLimits(limits []SubnetLimit) *SubnetLimits {
	return &SubnetLimits{
		limits:  append([]SubnetLimit(nil), limits...),
		buckets: make(map[string]int),
	}
}

func bucketKey(family string, network *net.IPNet) string {
	return family + ":" + network.String()
}

func networkFor(ip net.IP, leadingBits int) (*net.IPNet, string, error) {
	family := "ip4"
	addr := ip.To4()
	if addr == nil {
		family = "ip6"
		addr = ip.To16()
		if addr == nil {
			return nil, "", net.InvalidAddrError(ip.String())
		}
	}
	mask, err := CreateMask(family, leadingBits)
	if err != nil {
		return nil, "", err
	}
	return &net.IPNet{IP: addr.Mask(mask), Mask: mask}, family, nil
}

// CanAcceptConnection reports false iff any configured bucket containing
// ip is already at or above its cap.
func (s *SubnetLimits) CanAcceptConnection(ip net.IP) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, limit := range s.limits {
		network, family, err := networkFor(ip, limit.LeadingBits)
		if err != nil {
			return false, err
		}
		if family != limit.Family {
			continue
		}
		if s.buckets[bucketKey(family, network)] >= limit.MaxConns {
			return false, nil
		}
	}
	return true, nil
}

// AddConnection records a new admitted connection from ip against every
// configured bucket that contains it.
func (s *SubnetLimits) AddConnection(ip net.IP) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, limit := range s.limits {
		network, family, err := networkFor(ip, limit.LeadingBits)
		if err != nil {
			return err
		}
		if family != limit.Family {
			continue
		}
		s.buckets[bucketKey(family, network)]++
	}
	return nil
}

// RemoveConnection decrements the bucket counters for a connection from
// ip that has since closed.
func (s *SubnetLimits) RemoveConnection(ip net.IP) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, limit := range s.limits {
		network, family, err := networkFor(ip, limit.LeadingBits)
		if err != nil {
			return err
		}
		if family != limit.Family {
			continue
		}
		key := bucketKey(family, network)
		if s.buckets[key] > 0 {
			s.buckets[key]--
		}
	}
	return nil
}
