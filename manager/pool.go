package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/quantumgate/quantumgate/peer"
)

// EventProcessor performs the per-peer I/O a worker drives once a
// session has pending work (spec.md §4.9's receive/send/key-update
// steps). Concrete socket I/O is an external collaborator (spec.md §1
// "Out of scope"); this interface is the seam the socket/relay wiring
// satisfies.
type EventProcessor interface {
	// HasPendingWork reports whether s needs a worker pass right now:
	// receive-ready, send-ready, noise-due, needs-extender-update, or a
	// pending key-update event.
	HasPendingWork(s *peer.Session, now time.Time) bool
	// ProcessEvents runs one bounded burst of work for s — receive,
	// noise drain, extender-update send, queued send, key-update check,
	// in that order (spec.md §4.9) — and returns a non-nil error on fatal
	// failure, on which the pool disconnects s with DisconnectGeneralFailure.
	ProcessEvents(s *peer.Session, maxBurst int) error
}

// ThreadPool runs one primary goroutine and several worker goroutines
// over the subset of sessions assigned to it (spec.md §4.9), grounded on
// the channel-driven per-peer queue/stop pattern of
// WireGuard-go's device/peer.go and device.go's runtime.NumCPU()-sized
// worker count.
type ThreadPool struct {
	id        int
	processor EventProcessor
	maxBurst  int

	mu    sync.RWMutex
	peers map[peer.LUID]*peer.Session

	queue chan peer.LUID
	stop  chan struct{}
	wg    sync.WaitGroup

	accessUpdateFlag *uint64
	lastAccessFlag   uint64
}

// SetAccessUpdateFlag wires the process-wide access-update counter the
// manager bumps via NotifyAccessUpdate (spec.md §4.9 step 1).
func (p *ThreadPool) SetAccessUpdateFlag(flag *uint64) {
	p.accessUpdateFlag = flag
}

// NewThreadPool returns a pool that is not yet started. The number of
// worker goroutines is set by the workerCount passed to Start; the
// workerCount given here is not stored.
func NewThreadPool(id, workerCount, maxBurst int, processor EventProcessor) *ThreadPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &ThreadPool{
		id:        id,
		processor: processor,
		maxBurst:  maxBurst,
		peers:     make(map[peer.LUID]*peer.Session),
		queue:     make(chan peer.LUID, 4096),
		stop:      make(chan struct{}),
	}
}

// PeerCount returns how many sessions are currently assigned to this
// pool, used by the manager to pick the least-loaded pool for a new
// peer.
func (p *ThreadPool) PeerCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.peers)
}

// AssignPeer adds s to this pool.
func (p *ThreadPool) AssignPeer(s *peer.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.peers[s.LUID] = s
}

// RemovePeer drops luid from this pool.
func (p *ThreadPool) RemovePeer(luid peer.LUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.peers, luid)
}

// Start launches the primary and worker goroutines. sweepInterval
// governs how often the primary loop scans its peers.
func (p *ThreadPool) Start(sweepInterval time.Duration, workerCount int) {
	p.wg.Add(1)
	go p.primaryLoop(sweepInterval)

	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.workerLoop()
	}
}

// Stop signals every goroutine in this pool to exit and waits for them.
func (p *ThreadPool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

func (p *ThreadPool) primaryLoop(sweepInterval time.Duration) {
	defer p.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case now := <-ticker.C:
			p.sweep(now)
		}
	}
}

// sweep implements spec.md §4.9's primary-loop body: skip peers already
// queued, enqueue those with pending work, and disconnect-and-drop those
// that should be removed.
func (p *ThreadPool) sweep(now time.Time) {
	p.mu.RLock()
	snapshot := make([]*peer.Session, 0, len(p.peers))
	for _, s := range p.peers {
		snapshot = append(snapshot, s)
	}
	p.mu.RUnlock()

	if p.accessUpdateFlag != nil {
		if current := atomic.LoadUint64(p.accessUpdateFlag); current != p.lastAccessFlag {
			p.lastAccessFlag = current
			for _, s := range snapshot {
				s.Flags.Set(peer.FlagNeedsAccessCheck)
			}
		}
	}

	for _, s := range snapshot {
		if s.Flags.Has(peer.FlagInQueue) {
			continue
		}
		if s.Status() == peer.StatusDisconnected {
			p.RemovePeer(s.LUID)
			continue
		}
		if p.processor != nil && p.processor.HasPendingWork(s, now) {
			if !s.Flags.Set(peer.FlagInQueue) {
				select {
				case p.queue <- s.LUID:
				default:
					s.Flags.Clear(peer.FlagInQueue)
				}
			}
		}
	}
}

func (p *ThreadPool) workerLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case luid := <-p.queue:
			p.runOne(luid)
		}
	}
}

func (p *ThreadPool) runOne(luid peer.LUID) {
	p.mu.RLock()
	s, ok := p.peers[luid]
	p.mu.RUnlock()
	if !ok {
		return
	}

	s.Lock()
	s.Flags.Clear(peer.FlagInQueue)
	var err error
	if p.processor != nil {
		err = p.processor.ProcessEvents(s, p.maxBurst)
	}
	s.Unlock()

	if err != nil {
		s.Disconnect(peer.DisconnectGeneralFailure)
		return
	}

	// Re-enqueue immediately if it still has pending work, rather than
	// waiting for the next primary sweep (spec.md §4.9).
	if p.processor != nil && p.processor.HasPendingWork(s, time.Now()) {
		if !s.Flags.Set(peer.FlagInQueue) {
			select {
			case p.queue <- luid:
			default:
				s.Flags.Clear(peer.FlagInQueue)
			}
		}
	}
}
