package manager

import (
	"fmt"
	"net"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/quantumgate/quantumgate/access"
	"github.com/quantumgate/quantumgate/config"
	"github.com/quantumgate/quantumgate/crypto"
	"github.com/quantumgate/quantumgate/keyset"
	"github.com/quantumgate/quantumgate/peer"
)

// defaultSweepInterval is how often each pool's primary loop scans its
// peers (spec.md §4.9).
const defaultSweepInterval = 50 * time.Millisecond

// Manager owns every peer session in the process: the lookup maps, the
// thread pools that schedule their I/O, and the access plane that gates
// admission (spec.md §4.9, §4.10, §4.11).
type Manager struct {
	settings config.Settings
	tp       crypto.TimeProvider

	lookup *LookupMaps
	pools  []*ThreadPool

	filters        *access.IPFilters
	subnets        *access.SubnetLimits
	reputation     *access.IPReputation
	connectAttempt *access.ConnectionAttemptLimiter
	peerList       *access.PeerList

	accessUpdateFlag uint64
}

// New constructs a Manager with N thread pools, N = max(1,
// settings.Local.Concurrency.MinThreadPools, cpus), each running one
// primary goroutine plus MinThreadsPerPool-1 (at least one) worker
// goroutines once started (spec.md §4.9).
func New(settings config.Settings, tp crypto.TimeProvider, processor EventProcessor) *Manager {
	if tp == nil {
		tp = crypto.DefaultTimeProvider{}
	}

	poolCount := settings.Local.Concurrency.MinThreadPools
	if cpus := runtime.NumCPU(); cpus > poolCount {
		poolCount = cpus
	}
	if poolCount < 1 {
		poolCount = 1
	}

	m := &Manager{
		settings:       settings,
		tp:             tp,
		lookup:         NewLookupMaps(),
		filters:        access.NewIPFilters(),
		subnets:        access.NewSubnetLimits(nil),
		reputation:     access.NewIPReputation(settings.Local.IPReputationImprovementInterval, tp),
		connectAttempt: access.NewConnectionAttemptLimiter(settings.Local.IPConnectionAttempts.MaxPerInterval, settings.Local.IPConnectionAttempts.Interval, tp),
		peerList:       access.NewPeerList(true),
	}

	workerCount := settings.Local.Concurrency.MinThreadsPerPool - 1
	if workerCount < 1 {
		workerCount = 1
	}
	for i := 0; i < poolCount; i++ {
		pool := NewThreadPool(i, workerCount, settings.Local.Concurrency.WorkerThreadsMaxBurst, processor)
		pool.SetAccessUpdateFlag(&m.accessUpdateFlag)
		m.pools = append(m.pools, pool)
	}

	return m
}

// Start launches every pool's primary and worker goroutines.
func (m *Manager) Start() {
	workerCount := m.settings.Local.Concurrency.MinThreadsPerPool - 1
	if workerCount < 1 {
		workerCount = 1
	}
	for _, p := range m.pools {
		p.Start(defaultSweepInterval, workerCount)
	}
}

// Stop signals every pool to exit and waits for them.
func (m *Manager) Stop() {
	for _, p := range m.pools {
		p.Stop()
	}
}

// Lookup returns the manager's lookup maps.
func (m *Manager) Lookup() *LookupMaps { return m.lookup }

// PeerList returns the manager's pinned-key/authorization list, so the
// event processor can resolve a peer's public key during Authentication
// (spec.md §4.2).
func (m *Manager) PeerList() *access.PeerList { return m.peerList }

// Reputation returns the manager's IP reputation tracker, so the event
// processor can record deterioration on protocol violations (spec.md
// §4.11).
func (m *Manager) Reputation() *access.IPReputation { return m.reputation }

// NotifyAccessUpdate flags every pool to mark its peers NeedsAccessCheck
// on their next sweep (spec.md §4.9 step 1).
func (m *Manager) NotifyAccessUpdate() {
	atomic.AddUint64(&m.accessUpdateFlag, 1)
}

// leastLoadedPool returns the pool with the fewest assigned peers
// (spec.md §4.9: "assigned to the pool with the current minimum peer
// count").
func (m *Manager) leastLoadedPool() *ThreadPool {
	best := m.pools[0]
	for _, p := range m.pools[1:] {
		if p.PeerCount() < best.PeerCount() {
			best = p
		}
	}
	return best
}

// Admit runs the access-plane admission checks for a newly accepted or
// about-to-be-dialed IP (spec.md §4.11): IP filter, reputation, and
// subnet limit, in that order.
func (m *Manager) Admit(ip net.IP) error {
	allowed, err := m.filters.IsAllowed(ip)
	if err != nil {
		return fmt.Errorf("manager: ip filter: %w", err)
	}
	if !allowed {
		return fmt.Errorf("manager: %w", errIPNotAllowed)
	}
	if !m.reputation.IsAcceptable(ip) {
		return fmt.Errorf("manager: %w", errIPNotAllowed)
	}
	ok, err := m.subnets.CanAcceptConnection(ip)
	if err != nil {
		return fmt.Errorf("manager: subnet limit: %w", err)
	}
	if !ok {
		return fmt.Errorf("manager: %w", errIPNotAllowed)
	}
	return nil
}

// AddSession indexes a new session, assigns it to the least-loaded pool,
// and counts it against its subnet. It runs no admission check; callers
// run Admit first.
func (m *Manager) AddSession(s *peer.Session, address string) {
	m.lookup.Add(s, address)
	pool := m.leastLoadedPool()
	pool.AssignPeer(s)

	if err := m.subnets.AddConnection(sessionIP(address)); err != nil {
		// Subnet bookkeeping failure is non-fatal to the session itself;
		// the connection was already admitted under Admit.
		_ = err
	}
}

// RemoveSession disconnects s's bookkeeping: drops it from the lookup
// maps, its pool, and the subnet counters.
func (m *Manager) RemoveSession(s *peer.Session, address string) {
	m.lookup.Remove(s.LUID)
	for _, p := range m.pools {
		p.RemovePeer(s.LUID)
	}
	_ = m.subnets.RemoveConnection(sessionIP(address))
}

// NewOutboundSession creates a session dialing address as the Bob
// role, admits it, and assigns it to a pool. spec.md's Glossary defines
// the inbound side as Alice, so the dialing side is Bob and waits for
// the peer to speak first.
func (m *Manager) NewOutboundSession(address string) (*peer.Session, error) {
	if err := m.Admit(sessionIP(address)); err != nil {
		return nil, err
	}
	s := peer.NewSession(address, keyset.RoleBob, peer.ConnectionOutbound, m.settings, m.tp)
	m.AddSession(s, address)
	return s, nil
}

// NewInboundSession accepts address as the Alice role, admits it, and
// assigns it to a pool.
func (m *Manager) NewInboundSession(address string) (*peer.Session, error) {
	if err := m.Admit(sessionIP(address)); err != nil {
		return nil, err
	}
	s := peer.NewSession(address, keyset.RoleAlice, peer.ConnectionInbound, m.settings, m.tp)
	m.AddSession(s, address)
	return s, nil
}

func sessionIP(address string) net.IP {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return net.ParseIP(address)
	}
	return net.ParseIP(host)
}
