// File: transport/inproc/client.go
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

var clientIDSeq uint64

func nextClientID() uint64 { return atomic.AddUint64(&clientIDSeq, 1) }

// Endpoint is the client side of one in-process channel.
type Endpoint struct {
	opts Options
	hub  *hub
	slot int
	out  *ring.ByteRing // c2s
	in   *ring.ByteRing // s2c

	state int32 // atomic api.State

	cbMu           sync.RWMutex
	onReceived     api.ReceivedFunc
	onConnected    api.ConnectedFunc
	onDisconnected api.DisconnectedFunc

	stopCh      chan struct{}
	loopsDone   sync.WaitGroup
	disposeOnce sync.Once
}

var _ api.Endpoint = (*Endpoint)(nil)

// Dial joins the named in-process channel, claiming a free slot.
func Dial(ctx context.Context, opts Options) (*Endpoint, error) {
	opts = opts.normalize()
	h := openHub(opts)
	if !h.isAlive() {
		return nil, api.ErrConnectionFailed.WithContext("reason", "no_server").WithContext("name", opts.Name)
	}

	slot, c2s, s2c := h.claimSlot(nextClientID())
	if slot == -1 {
		return nil, api.ErrConnectionFailed.WithContext("reason", "no_free_slot").WithContext("name", opts.Name)
	}

	ep := &Endpoint{
		opts:   opts,
		hub:    h,
		slot:   slot,
		out:    c2s,
		in:     s2c,
		state:  int32(api.StateStarted),
		stopCh: make(chan struct{}),
	}

	ep.loopsDone.Add(2)
	go ep.heartbeatLoop()
	go ep.receiveLoop()

	ep.cbMu.RLock()
	connected := ep.onConnected
	ep.cbMu.RUnlock()
	if connected != nil {
		connected(ep)
	}
	return ep, nil
}

func (e *Endpoint) Backend() api.Backend { return api.BackendInProc }
func (e *Endpoint) State() api.State     { return api.State(atomic.LoadInt32(&e.state)) }

func (e *Endpoint) OnReceived(fn api.ReceivedFunc) {
	e.cbMu.Lock()
	e.onReceived = fn
	e.cbMu.Unlock()
}

func (e *Endpoint) OnConnected(fn api.ConnectedFunc) {
	e.cbMu.Lock()
	e.onConnected = fn
	e.cbMu.Unlock()
}

func (e *Endpoint) OnDisconnected(fn api.DisconnectedFunc) {
	e.cbMu.Lock()
	e.onDisconnected = fn
	e.cbMu.Unlock()
}

func (e *Endpoint) Send(payload []byte) error {
	if e.State() == api.StateDisposed {
		return api.ErrDisposed
	}
	if len(payload)+4 > e.out.Cap() {
		return api.ErrPayloadTooLarge.WithContext("len", len(payload))
	}
	if !e.out.WriteRecord(payload) {
		return api.ErrRingFull
	}
	return nil
}

func (e *Endpoint) SendAsync(ctx context.Context, payload []byte) <-chan error {
	result := make(chan error, 1)
	go func() { result <- e.Send(payload) }()
	return result
}

func (e *Endpoint) heartbeatLoop() {
	defer e.loopsDone.Done()
	t := time.NewTicker(e.opts.HeartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case now := <-t.C:
			e.hub.touchHeartbeat(e.slot, now)
			if !e.hub.isAlive() {
				e.closeWithCause(api.ErrConnectionFailed.WithContext("reason", "server_gone"))
				return
			}
		}
	}
}

func (e *Endpoint) receiveLoop() {
	defer e.loopsDone.Done()
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}
		got := e.in.ReadRecord(func(payload []byte) {
			e.cbMu.RLock()
			fn := e.onReceived
			e.cbMu.RUnlock()
			if fn != nil {
				fn(e, payload)
			}
		})
		if !got {
			time.Sleep(time.Millisecond)
		}
	}
}

func (e *Endpoint) closeWithCause(cause error) {
	e.disposeOnce.Do(func() {
		atomic.StoreInt32(&e.state, int32(api.StateDisposed))
		close(e.stopCh)
		e.hub.releaseSlot(e.slot)

		e.cbMu.RLock()
		fn := e.onDisconnected
		e.cbMu.RUnlock()
		if fn != nil {
			fn(e, cause)
		}
	})
}

// Dispose idempotently leaves the channel.
func (e *Endpoint) Dispose() error {
	e.closeWithCause(nil)
	e.loopsDone.Wait()
	return nil
}
