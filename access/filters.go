package access

import (
	"fmt"
	"net"

	"github.com/libp2p/go-cidranger"
	"github.com/sirupsen/logrus"
)

// IPFilters evaluates CIDR-masked allow/block rules (spec.md §4.11): a
// peer IP is allowed iff it matches at least one Allowed rule, or matches
// no Blocked rule at all. A specific allow always overrides a broader
// block, because membership in either trie is sufficient on its own.
type IPFilters struct {
	allow cidranger.Ranger
	block cidranger.Ranger
}

// NewIPFilters returns an IPFilters with empty allow and block lists.
func NewIPFilters() *IPFilters {
	return &IPFilters{
		allow: cidranger.NewPCTrieRanger(),
		block: cidranger.NewPCTrieRanger(),
	}
}

// AddAllow inserts an allow rule for the given CIDR network.
func (f *IPFilters) AddAllow(network *net.IPNet) error {
	return f.allow.Insert(cidranger.NewBasicRangerEntry(*network))
}

// AddBlock inserts a block rule for the given CIDR network.
func (f *IPFilters) AddBlock(network *net.IPNet) error {
	return f.block.Insert(cidranger.NewBasicRangerEntry(*network))
}

// RemoveAllow removes a previously-added allow rule for the given network.
func (f *IPFilters) RemoveAllow(network *net.IPNet) error {
	_, err := f.allow.Remove(*network)
	return err
}

// RemoveBlock removes a previously-added block rule for the given network.
func (f *IPFilters) RemoveBlock(network *net.IPNet) error {
	_, err := f.block.Remove(*network)
	return err
}

// IsAllowed reports whether ip is admitted under the current rule set.
func (f *IPFilters) IsAllowed(ip net.IP) (bool, error) {
	allowed, err := f.allow.Contains(ip)
	if err != nil {
		return false, fmt.Errorf("access: evaluating allow rules for %s: %w", ip, err)
	}
	if allowed {
		return true, nil
	}

	blocked, err := f.block.Contains(ip)
	if err != nil {
		return false, fmt.Errorf("access: evaluating block rules for %s: %w", ip, err)
	}

	result := !blocked
	logrus.WithFields(logrus.Fields{
		"ip":      ip.String(),
		"allowed": result,
	}).Debug("access: evaluated IP filter rules")
	return result, nil
}

// CreateMask builds the net.IPMask for family ("ip4" or "ip6") with
// leadingBits significant bits, matching spec.md §4.11's
// mask = CreateMask(family, leading_bits). Masks are always contiguous:
// all 1s from the MSB followed by all 0s.
func CreateMask(family string, leadingBits int) (net.IPMask, error) {
	switch family {
	case "ip4":
		if leadingBits < 0 || leadingBits > 32 {
			return nil, fmt.Errorf("access: leading bits %d out of range for ip4", leadingBits)
		}
		return net.CIDRMask(leadingBits, 32), nil
	case "ip6":
		if leadingBits < 0 || leadingBits > 128 {
			return nil, fmt.Errorf("access: leading bits %d out of range for ip6", leadingBits)
		}
		return net.CIDRMask(leadingBits, 128), nil
	default:
		return nil, fmt.Errorf("access: unknown address family %q", family)
	}
}
