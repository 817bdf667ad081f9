package manager

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quantumgate/quantumgate/config"
	"github.com/quantumgate/quantumgate/keyset"
	"github.com/quantumgate/quantumgate/peer"
	"github.com/stretchr/testify/require"
)

var errProcessFailed = errors.New("manager: simulated process failure")

type fakeProcessor struct {
	mu      sync.Mutex
	pending map[peer.LUID]bool
	runs    int32
	fail    bool
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{pending: make(map[peer.LUID]bool)}
}

func (f *fakeProcessor) setPending(luid peer.LUID, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[luid] = v
}

func (f *fakeProcessor) HasPendingWork(s *peer.Session, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[s.LUID]
}

func (f *fakeProcessor) ProcessEvents(s *peer.Session, maxBurst int) error {
	atomic.AddInt32(&f.runs, 1)
	f.setPending(s.LUID, false)
	if f.fail {
		return errProcessFailed
	}
	return nil
}

func TestThreadPoolAssignAndRemovePeer(t *testing.T) {
	p := NewThreadPool(0, 2, 64, newFakeProcessor())
	s := peer.NewSession("ep1", keyset.RoleBob, peer.ConnectionInbound, config.Default(), nil)
	p.AssignPeer(s)
	require.Equal(t, 1, p.PeerCount())

	p.RemovePeer(s.LUID)
	require.Equal(t, 0, p.PeerCount())
}

func TestThreadPoolProcessesPendingPeer(t *testing.T) {
	proc := newFakeProcessor()
	p := NewThreadPool(0, 2, 64, proc)
	s := peer.NewSession("ep2", keyset.RoleBob, peer.ConnectionInbound, config.Default(), nil)
	p.AssignPeer(s)
	proc.setPending(s.LUID, true)

	p.Start(5*time.Millisecond, 2)
	defer p.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&proc.runs) >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestThreadPoolDisconnectsPeerOnProcessError(t *testing.T) {
	proc := newFakeProcessor()
	proc.fail = true
	p := NewThreadPool(0, 1, 64, proc)
	s := peer.NewSession("ep3", keyset.RoleBob, peer.ConnectionInbound, config.Default(), nil)
	p.AssignPeer(s)
	proc.setPending(s.LUID, true)

	p.Start(5*time.Millisecond, 1)
	defer p.Stop()

	require.Eventually(t, func() bool {
		return s.Status() == peer.StatusDisconnected
	}, time.Second, 5*time.Millisecond)
}

func TestThreadPoolSweepRemovesDisconnectedPeer(t *testing.T) {
	proc := newFakeProcessor()
	p := NewThreadPool(0, 1, 64, proc)
	s := peer.NewSession("ep4", keyset.RoleBob, peer.ConnectionInbound, config.Default(), nil)
	s.Disconnect(peer.DisconnectRequest)
	p.AssignPeer(s)
	require.Equal(t, 1, p.PeerCount())

	p.sweep(time.Now())
	require.Equal(t, 0, p.PeerCount())
}

func TestThreadPoolSweepSetsNeedsAccessCheckOnFlagChange(t *testing.T) {
	p := NewThreadPool(0, 1, 64, newFakeProcessor())
	s := peer.NewSession("ep5", keyset.RoleBob, peer.ConnectionInbound, config.Default(), nil)
	p.AssignPeer(s)

	var flag uint64
	p.SetAccessUpdateFlag(&flag)
	p.sweep(time.Now())
	require.False(t, s.Flags.Has(peer.FlagNeedsAccessCheck))

	atomic.AddUint64(&flag, 1)
	p.sweep(time.Now())
	require.True(t, s.Flags.Has(peer.FlagNeedsAccessCheck))
}
