// File: transport/ipc/peer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// serverPeer is the Acceptor-side handle for one attached client: an
// api.Endpoint facade over the same pair of rings the client mapped, with
// the producer/consumer roles reversed (server sends on s2c, reads c2s).

package ipc

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/momentics/xtransport/api"
)

type serverPeer struct {
	acceptor *Acceptor
	slot     int
	clientID uint64

	c2s *mapping
	s2c *mapping
	in  *shmRing // reads client-to-server
	out *shmRing // writes server-to-client

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

func (p *serverPeer) Backend() api.Backend { return api.BackendIPC }
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
	if len(payload)+4 > p.acceptor.opts.RingCapacity {
		return api.ErrPayloadTooLarge.WithContext("len", len(payload))
	}
	if !p.out.writeRecord(payload) {
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
		got := p.in.readRecord(func(payload []byte) {
			p.cbMu.RLock()
			fn := p.onReceived
			p.cbMu.RUnlock()
			if fn != nil {
				fn(p, payload)
			}
		})
		if !got {
			pollBackoff()
		}
	}
}

func (p *serverPeer) closeWithCause(cause error) {
	p.disposeOnce.Do(func() {
		atomic.StoreInt32(&p.state, int32(api.StateDisposed))
		close(p.stopCh)
		p.wg.Wait()
		p.c2s.close()
		p.s2c.close()

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
