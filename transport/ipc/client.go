// File: transport/ipc/client.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Client-side IPC Endpoint (spec §4.I): opens an existing control region,
// claims a free slot via CAS, creates its own paired rings, and exchanges
// length-prefixed records with the server over them. Grounded on the
// teacher's internal/concurrency/eventloop.go run/quit lifecycle for the
// heartbeat/receive goroutines, and on ring/byte_ring.go's record framing
// reused here through shmRing.

package ipc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/xtransport/api"
	"github.com/momentics/xtransport/internal/clock"
)

var clientIDSeq uint64

func nextClientID() uint64 {
	return (uint64(time.Now().UnixNano()) << 8) ^ atomic.AddUint64(&clientIDSeq, 1)
}

// Endpoint is the client side of one IPC channel.
type Endpoint struct {
	opts Options
	slot int

	ctrl *mapping
	view *controlView

	c2s *mapping // client writes, server reads
	s2c *mapping // server writes, client reads
	out *shmRing
	in  *shmRing

	clk *clock.Clock

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

// Dial joins the named IPC channel, creating a fresh pair of rings under a
// slot claimed from the server's control region.
func Dial(ctx context.Context, opts Options) (*Endpoint, error) {
	opts = opts.normalize()

	ctrlPath := controlPath(opts.Dir, opts.Name)
	existed := regionExists(ctrlPath)
	ctrl, err := mapRegion(ctrlPath, controlRegionSize(opts.MaxClients))
	if err != nil {
		return nil, api.ErrConnectionFailed.WithCause(err).WithContext("name", opts.Name)
	}
	if !existed {
		// mapRegion's O_CREATE just fabricated a fresh, zeroed region: no
		// server has ever started on this channel. Surface this as
		// ConnectionFailed (spec §4.I step 1), not ProtocolMismatch, and
		// remove the stray region rather than leave it for the next Dial.
		ctrl.close()
		unlinkRegion(ctrlPath)
		return nil, api.ErrConnectionFailed.WithContext("reason", "no_server").WithContext("name", opts.Name)
	}
	view := newControlView(ctrl.data, opts.MaxClients)
	if !view.checkMagic() {
		ctrl.close()
		return nil, api.ErrProtocolMismatch.WithContext("name", opts.Name)
	}
	if !view.serverAlive() {
		ctrl.close()
		return nil, api.ErrConnectionFailed.WithContext("reason", "no_server").WithContext("name", opts.Name)
	}

	clientID := nextClientID()
	slot := -1
	for i := 0; i < opts.MaxClients; i++ {
		if view.tryOccupySlot(i, clientID) {
			slot = i
			break
		}
	}
	if slot == -1 {
		ctrl.close()
		return nil, api.ErrConnectionFailed.WithContext("reason", "no_free_slot").WithContext("name", opts.Name)
	}

	c2s, err := mapRegion(ringPath(opts.Dir, opts.Name, slot, "c2s"), ringRegionSize(opts.RingCapacity))
	if err != nil {
		view.releaseSlot(slot)
		ctrl.close()
		return nil, api.ErrConnectionFailed.WithCause(err)
	}
	s2c, err := mapRegion(ringPath(opts.Dir, opts.Name, slot, "s2c"), ringRegionSize(opts.RingCapacity))
	if err != nil {
		c2s.close()
		view.releaseSlot(slot)
		ctrl.close()
		return nil, api.ErrConnectionFailed.WithCause(err)
	}

	out := newShmRing(c2s, opts.RingCapacity)
	out.initHeader()
	in := newShmRing(s2c, opts.RingCapacity)
	in.initHeader()

	clk := clock.New()
	view.touchHeartbeat(slot, clk.Now().UnixNano())
	view.setSlotState(slot, api.SlotLive)

	ep := &Endpoint{
		opts:   opts,
		slot:   slot,
		ctrl:   ctrl,
		view:   view,
		c2s:    c2s,
		s2c:    s2c,
		out:    out,
		in:     in,
		clk:    clk,
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

func (e *Endpoint) Backend() api.Backend { return api.BackendIPC }
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

// Send writes payload onto the client-to-server ring. Returns ErrRingFull if
// the server is not draining fast enough.
func (e *Endpoint) Send(payload []byte) error {
	if e.State() == api.StateDisposed {
		return api.ErrDisposed
	}
	if len(payload)+4 > e.opts.RingCapacity {
		return api.ErrPayloadTooLarge.WithContext("len", len(payload))
	}
	if !e.out.writeRecord(payload) {
		return api.ErrRingFull
	}
	return nil
}

// SendAsync mirrors Send but reports its result on a channel, matching the
// Endpoint contract's async shape even though a shared-memory write never
// blocks on I/O.
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
		case <-t.C:
			e.view.touchHeartbeat(e.slot, e.clk.Now().UnixNano())
			if e.view.slotState(e.slot) == api.SlotLeaving || !e.view.serverAlive() {
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
		got := e.in.readRecord(func(payload []byte) {
			e.cbMu.RLock()
			fn := e.onReceived
			e.cbMu.RUnlock()
			if fn != nil {
				fn(e, payload)
			}
		})
		if !got {
			pollBackoff()
		}
	}
}

func (e *Endpoint) closeWithCause(cause error) {
	e.disposeOnce.Do(func() {
		atomic.StoreInt32(&e.state, int32(api.StateDisposed))
		close(e.stopCh)
		e.view.setSlotState(e.slot, api.SlotLeaving)
		e.view.releaseSlot(e.slot)
		e.clk.Stop()

		e.cbMu.RLock()
		fn := e.onDisconnected
		e.cbMu.RUnlock()
		if fn != nil {
			fn(e, cause)
		}
	})
}

// Dispose idempotently leaves the channel: marks the slot vacated, stops
// the heartbeat/receive loops, and unmaps (but does not unlink — the server
// may still be draining) the ring regions.
func (e *Endpoint) Dispose() error {
	e.closeWithCause(nil)
	e.loopsDone.Wait()
	e.c2s.close()
	e.s2c.close()
	e.ctrl.close()
	return nil
}
