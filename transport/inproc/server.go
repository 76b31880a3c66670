// File: transport/inproc/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package inproc

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/xtransport/api"
)

// Acceptor is the server side of one in-process channel.
type Acceptor struct {
	opts Options
	hub  *hub

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

// NewAcceptor constructs an Acceptor for the named in-process channel.
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

// Start creates (or reopens) the hub, marks the channel alive, and launches
// the discovery and heartbeat-monitor loops. Idempotent.
func (a *Acceptor) Start() error {
	a.startOnce.Do(func() {
		a.hub = openHub(a.opts)
		a.hub.setAlive(true)
		atomic.StoreInt32(&a.started, 1)

		a.wg.Add(2)
		go a.discoveryLoop()
		go a.heartbeatMonitorLoop()
	})
	return nil
}

func (a *Acceptor) discoveryLoop() {
	defer a.wg.Done()
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-a.stopCh:
			return
		case <-t.C:
			for _, slot := range a.hub.liveSlots() {
				a.mu.Lock()
				_, known := a.peers[slot]
				a.mu.Unlock()
				if known {
					continue
				}
				a.attach(slot)
			}
		}
	}
}

func (a *Acceptor) attach(slot int) {
	c2s, s2c, ok := a.hub.rings(slot)
	if !ok {
		return
	}
	peer := &serverPeer{
		acceptor: a,
		slot:     slot,
		in:       c2s,
		out:      s2c,
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
	// lands before OnReceived is set would be read off the ring and
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
		case now := <-t.C:
			for _, slot := range a.hub.staleSlots(now, a.opts.HeartbeatTimeout) {
				a.mu.Lock()
				peer, ok := a.peers[slot]
				a.mu.Unlock()
				if !ok {
					continue
				}
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
	a.hub.releaseSlot(peer.slot)

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

// Dispose marks the channel dead, stops the background loops, tears down
// all attached peers, and removes the hub from the registry. Idempotent.
func (a *Acceptor) Dispose() error {
	if !atomic.CompareAndSwapInt32(&a.started, 1, 0) {
		return nil
	}
	a.hub.setAlive(false)
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

	closeHub(a.opts.Name)
	return nil
}
