// File: transport/inproc/peer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package inproc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/xtransport/api"
	"github.com/momentics/xtransport/ring"
)

// serverPeer is the Acceptor-side handle for one attached client.
type serverPeer struct {
	acceptor *Acceptor
	slot     int
	in       *ring.ByteRing // reads client-to-server
	out      *ring.ByteRing // writes server-to-client

	state int32 // atomic api.State

	cbMu           sync.RWMutex
	onReceived     api.ReceivedFunc
	onConnected    api.ConnectedFunc
	onDisconnected api.DisconnectedFunc

	stopCh      chan struct{}
	wg          sync.WaitGroup
	disposeOnce sync.Once
}

var _ api.Endpoint = (*serverPeer)(nil)

func (p *serverPeer) Backend() api.Backend { return api.BackendInProc }
func (p *serverPeer) State() api.State     { return api.State(atomic.LoadInt32(&p.state)) }

func (p *serverPeer) OnReceived(fn api.ReceivedFunc) {
	p.cbMu.Lock()
	p.onReceived = fn
	p.cbMu.Unlock()
}

func (p *serverPeer) OnConnected(fn api.ConnectedFunc) {
	p.cbMu.Lock()
	p.onConnected = fn
	p.cbMu.Unlock()
}

func (p *serverPeer) OnDisconnected(fn api.DisconnectedFunc) {
	p.cbMu.Lock()
	p.onDisconnected = fn
	p.cbMu.Unlock()
}

func (p *serverPeer) Send(payload []byte) error {
	if p.State() == api.StateDisposed {
		return api.ErrDisposed
	}
	if len(payload)+4 > p.out.Cap() {
		return api.ErrPayloadTooLarge.WithContext("len", len(payload))
	}
	if !p.out.WriteRecord(payload) {
		return api.ErrRingFull
	}
	return nil
}

func (p *serverPeer) SendAsync(ctx context.Context, payload []byte) <-chan error {
	result := make(chan error, 1)
	go func() { result <- p.Send(payload) }()
	return result
}

func (p *serverPeer) receiveLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}
		got := p.in.ReadRecord(func(payload []byte) {
			p.cbMu.RLock()
			fn := p.onReceived
			p.cbMu.RUnlock()
			if fn != nil {
				fn(p, payload)
			}
		})
		if !got {
			time.Sleep(time.Millisecond)
		}
	}
}

func (p *serverPeer) closeWithCause(cause error) {
	p.disposeOnce.Do(func() {
		atomic.StoreInt32(&p.state, int32(api.StateDisposed))
		close(p.stopCh)
		p.wg.Wait()

		p.cbMu.RLock()
		fn := p.onDisconnected
		p.cbMu.RUnlock()
		if fn != nil {
			fn(p, cause)
		}
	})
}

// Dispose detaches this peer from its Acceptor, which also evicts it.
func (p *serverPeer) Dispose() error {
	p.acceptor.evict(p, nil)
	return nil
}
