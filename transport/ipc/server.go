// File: transport/ipc/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server-side IPC Acceptor (spec §4.J): owns the control region, discovers
// clients that have claimed a slot and created their rings, and evicts
// clients whose heartbeat has gone stale. Grounded on the teacher's
// discovery/poll idiom (internal/concurrency/eventloop.go) generalized from
// a single run loop into one discovery loop plus one heartbeat-timeout loop.

package ipc

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/xtransport/api"
	"github.com/momentics/xtransport/internal/clock"
)

// Acceptor is the server side of one IPC channel.
type Acceptor struct {
	opts Options
	ctrl *mapping
	view *controlView
	clk  *clock.Clock

	mu    sync.Mutex
	peers map[int]*serverPeer

	cbMu              sync.RWMutex
	onClientConnected api.ClientConnectedFunc
	onClientDisc      api.ClientDisconnectedFunc
	onReceived        api.ReceivedFunc

	stopCh chan struct{}
	wg     sync.WaitGroup

	startOnce sync.Once
	started   int32
}

var _ api.Acceptor = (*Acceptor)(nil)

// NewAcceptor constructs an Acceptor for the named IPC channel.
func NewAcceptor(opts Options) *Acceptor {
	opts = opts.normalize()
	return &Acceptor{
		opts:   opts,
		peers:  make(map[int]*serverPeer),
		stopCh: make(chan struct{}),
	}
}

func (a *Acceptor) OnClientConnected(fn api.ClientConnectedFunc) {
	a.cbMu.Lock()
	a.onClientConnected = fn
	a.cbMu.Unlock()
}

func (a *Acceptor) OnClientDisconnected(fn api.ClientDisconnectedFunc) {
	a.cbMu.Lock()
	a.onClientDisc = fn
	a.cbMu.Unlock()
}

func (a *Acceptor) OnReceived(fn api.ReceivedFunc) {
	a.cbMu.Lock()
	a.onReceived = fn
	a.cbMu.Unlock()
}

// Start creates (or reopens) the control region, marks the server alive,
// and launches the discovery and heartbeat-monitor loops. Idempotent.
func (a *Acceptor) Start() error {
	var err error
	a.startOnce.Do(func() {
		var ctrl *mapping
		ctrl, err = mapRegion(controlPath(a.opts.Dir, a.opts.Name), controlRegionSize(a.opts.MaxClients))
		if err != nil {
			err = api.ErrConnectionFailed.WithCause(err)
			return
		}
		a.ctrl = ctrl
		a.view = newControlView(ctrl.data, a.opts.MaxClients)
		a.view.initHeader()
		a.clk = clock.New()
		a.view.setServerAlive(true)
		atomic.StoreInt32(&a.started, 1)

		a.wg.Add(2)
		go a.discoveryLoop()
		go a.heartbeatMonitorLoop()
	})
	return err
}

func (a *Acceptor) discoveryLoop() {
	defer a.wg.Done()
	t := time.NewTicker(defaultDiscoveryInterval)
	defer t.Stop()
	for {
		select {
		case <-a.stopCh:
			return
		case <-t.C:
			for i := 0; i < a.opts.MaxClients; i++ {
				if !a.view.slotOccupied(i) || a.view.slotState(i) != api.SlotLive {
					continue
				}
				a.mu.Lock()
				_, known := a.peers[i]
				a.mu.Unlock()
				if known {
					continue
				}
				a.attach(i)
			}
		}
	}
}

func (a *Acceptor) attach(slot int) {
	c2s, err := mapRegion(ringPath(a.opts.Dir, a.opts.Name, slot, "c2s"), ringRegionSize(a.opts.RingCapacity))
	if err != nil {
		return
	}
	s2c, err := mapRegion(ringPath(a.opts.Dir, a.opts.Name, slot, "s2c"), ringRegionSize(a.opts.RingCapacity))
	if err != nil {
		c2s.close()
		return
	}
	peer := &serverPeer{
		acceptor: a,
		slot:     slot,
		clientID: a.view.slotClientID(slot),
		c2s:      c2s,
		s2c:      s2c,
		in:       newShmRing(c2s, a.opts.RingCapacity),
		out:      newShmRing(s2c, a.opts.RingCapacity),
		stopCh:   make(chan struct{}),
		state:    int32(api.StateStarted),
	}

	a.mu.Lock()
	a.peers[slot] = peer
	a.mu.Unlock()

	a.cbMu.RLock()
	onConnected := a.onClientConnected
	onReceived := a.onReceived
	a.cbMu.RUnlock()
	if onReceived != nil {
		peer.OnReceived(onReceived)
	}

	// Wire callbacks before starting the receive loop: readRecord
	// unconditionally advances the ring's consumer cursor, so a record that
	// lands before OnReceived is set would be read off the wire and
	// permanently discarded rather than redelivered.
	peer.wg.Add(1)
	go peer.receiveLoop()

	if onConnected != nil {
		onConnected(peer)
	}
}

func (a *Acceptor) heartbeatMonitorLoop() {
	defer a.wg.Done()
	t := time.NewTicker(a.opts.HeartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-a.stopCh:
			return
		case <-t.C:
			now := a.clk.Now().UnixNano()
			timeout := a.opts.HeartbeatTimeout.Nanoseconds()
			a.mu.Lock()
			var stale []*serverPeer
			for slot, peer := range a.peers {
				if !a.view.slotOccupied(slot) {
					stale = append(stale, peer)
					continue
				}
				if now-a.view.heartbeat(slot) > timeout {
					stale = append(stale, peer)
				}
			}
			a.mu.Unlock()
			for _, peer := range stale {
				a.evict(peer, api.ErrConnectionFailed.WithContext("reason", "heartbeat_timeout"))
			}
		}
	}
}

func (a *Acceptor) evict(peer *serverPeer, cause error) {
	a.mu.Lock()
	if _, ok := a.peers[peer.slot]; !ok {
		a.mu.Unlock()
		return
	}
	delete(a.peers, peer.slot)
	a.mu.Unlock()

	peer.closeWithCause(cause)
	if a.view.slotOccupied(peer.slot) {
		a.view.releaseSlot(peer.slot)
	}
	_ = unlinkRegion(ringPath(a.opts.Dir, a.opts.Name, peer.slot, "c2s"))
	_ = unlinkRegion(ringPath(a.opts.Dir, a.opts.Name, peer.slot, "s2c"))

	a.cbMu.RLock()
	onDisc := a.onClientDisc
	a.cbMu.RUnlock()
	if onDisc != nil {
		onDisc(peer, cause)
	}
}

// Snapshot returns the currently attached peer Endpoints.
func (a *Acceptor) Snapshot() []api.Endpoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]api.Endpoint, 0, len(a.peers))
	for _, p := range a.peers {
		out = append(out, p)
	}
	return out
}

// Dispose marks the server dead, stops the background loops, tears down all
// attached peers, and unmaps the control region. Idempotent.
func (a *Acceptor) Dispose() error {
	if !atomic.CompareAndSwapInt32(&a.started, 1, 0) {
		return nil
	}
	if a.view != nil {
		a.view.setServerAlive(false)
	}
	close(a.stopCh)
	a.wg.Wait()

	a.mu.Lock()
	peers := make([]*serverPeer, 0, len(a.peers))
	for _, p := range a.peers {
		peers = append(peers, p)
	}
	a.mu.Unlock()
	for _, p := range peers {
		a.evict(p, api.ErrDisposed)
	}

	if a.clk != nil {
		a.clk.Stop()
	}
	if a.ctrl != nil {
		a.ctrl.close()
	}
	_ = unlinkRegion(controlPath(a.opts.Dir, a.opts.Name))
	return nil
}
