// File: reconnect/wrapper.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package reconnect implements the auto-reconnect wrapper (spec §4.M): an
// api.Endpoint facade over a DialFunc that redials with capped exponential
// backoff whenever the underlying connection drops, presenting a single
// stable Connecting/Connected/Disposed state machine to callers. Grounded on
// the teacher's internal/concurrency/eventloop.go quit/stopped channel pair
// lifecycle, generalized from one hot-path event loop into one long-lived
// connect/redial loop — never one goroutine per disconnect, per spec §9
// Open Question (iii).
package reconnect

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/xtransport/api"
	"github.com/momentics/xtransport/internal/clock"
)

// Status is the reconnect wrapper's own lifecycle, distinct from the
// wrapped Endpoint's api.State: Connecting covers both the first dial and
// every subsequent redial attempt.
type Status int32

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusDisposed
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusDisposed:
		return "disposed"
	default:
		return "connecting"
	}
}

// DialFunc establishes one underlying connection attempt.
type DialFunc func(ctx context.Context) (api.Endpoint, error)

// Options configures backoff timing. For the 1-indexed failed attempt n,
// delay(n) = min(Base*2^(n-1), Max), so the first retry waits Base.
type Options struct {
	Base    time.Duration
	Max     time.Duration
	Backend api.Backend // reported by Backend() before the first successful dial
}

// defaultBase and defaultMax match spec.md §4.M's stated backoff defaults
// (base=1s, max=30s) verbatim.
const (
	defaultBase = time.Second
	defaultMax  = 30 * time.Second
)

func (o Options) normalize() Options {
	if o.Base <= 0 {
		o.Base = defaultBase
	}
	if o.Max <= 0 {
		o.Max = defaultMax
	}
	return o
}

// backoffDelay computes the capped exponential backoff for the given
// 1-indexed attempt number.
func backoffDelay(opts Options, attempt int) time.Duration {
	d := opts.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= opts.Max {
			return opts.Max
		}
	}
	if d > opts.Max {
		d = opts.Max
	}
	return d
}

// Wrapper is an api.Endpoint that transparently redials DialFunc whenever
// the current underlying Endpoint disconnects.
type Wrapper struct {
	dial DialFunc
	opts Options
	clk  *clock.Clock

	status   int32 // atomic Status, informational only (see Status/State)
	disposed int32 // atomic bool, guards Dispose idempotency

	mu      sync.RWMutex
	current api.Endpoint

	cbMu           sync.RWMutex
	onReceived     api.ReceivedFunc
	onConnected    api.ConnectedFunc
	onDisconnected api.DisconnectedFunc

	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
}

var _ api.Endpoint = (*Wrapper)(nil)

// New starts a Wrapper: it immediately begins dialing in the background and
// keeps redialing with capped exponential backoff for as long as it is not
// Disposed.
func New(ctx context.Context, dial DialFunc, opts Options) *Wrapper {
	opts = opts.normalize()
	loopCtx, cancel := context.WithCancel(ctx)
	w := &Wrapper{
		dial:     dial,
		opts:     opts,
		clk:      clock.New(),
		status:   int32(StatusConnecting),
		ctx:      loopCtx,
		cancel:   cancel,
		loopDone: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Wrapper) Status() Status {
	if atomic.LoadInt32(&w.disposed) == 1 {
		return StatusDisposed
	}
	return Status(atomic.LoadInt32(&w.status))
}

func (w *Wrapper) Backend() api.Backend {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.current != nil {
		return w.current.Backend()
	}
	return w.opts.Backend
}

func (w *Wrapper) State() api.State {
	switch w.Status() {
	case StatusDisposed:
		return api.StateDisposed
	default:
		return api.StateStarted
	}
}

func (w *Wrapper) OnReceived(fn api.ReceivedFunc) {
	w.cbMu.Lock()
	w.onReceived = fn
	w.cbMu.Unlock()
}

func (w *Wrapper) OnConnected(fn api.ConnectedFunc) {
	w.cbMu.Lock()
	w.onConnected = fn
	w.cbMu.Unlock()
}

func (w *Wrapper) OnDisconnected(fn api.DisconnectedFunc) {
	w.cbMu.Lock()
	w.onDisconnected = fn
	w.cbMu.Unlock()
}

// Send forwards to the current underlying Endpoint. While reconnecting
// (no current Endpoint) it fails with ErrConnectionFailed rather than
// blocking or silently dropping the payload.
func (w *Wrapper) Send(payload []byte) error {
	if w.Status() == StatusDisposed {
		return api.ErrDisposed
	}
	w.mu.RLock()
	cur := w.current
	w.mu.RUnlock()
	if cur == nil {
		return api.ErrConnectionFailed.WithContext("reason", "reconnecting")
	}
	return cur.Send(payload)
}

func (w *Wrapper) SendAsync(ctx context.Context, payload []byte) <-chan error {
	result := make(chan error, 1)
	if w.Status() == StatusDisposed {
		result <- api.ErrDisposed
		return result
	}
	w.mu.RLock()
	cur := w.current
	w.mu.RUnlock()
	if cur == nil {
		result <- api.ErrConnectionFailed.WithContext("reason", "reconnecting")
		return result
	}
	return cur.SendAsync(ctx, payload)
}

func (w *Wrapper) setCurrent(ep api.Endpoint) {
	w.mu.Lock()
	w.current = ep
	w.mu.Unlock()
}

func (w *Wrapper) clearCurrent() {
	w.mu.Lock()
	w.current = nil
	w.mu.Unlock()
}

func (w *Wrapper) fireConnected() {
	w.cbMu.RLock()
	fn := w.onConnected
	w.cbMu.RUnlock()
	if fn != nil {
		fn(w)
	}
}

func (w *Wrapper) fireDisconnected(cause error) {
	w.cbMu.RLock()
	fn := w.onDisconnected
	w.cbMu.RUnlock()
	if fn != nil {
		fn(w, cause)
	}
}

// run is the single long-lived connect/redial loop: one goroutine for the
// entire Wrapper lifetime, never one per disconnect.
func (w *Wrapper) run() {
	defer close(w.loopDone)
	attempt := 0
	for {
		if w.ctx.Err() != nil {
			return
		}
		atomic.StoreInt32(&w.status, int32(StatusConnecting))
		ep, err := w.dial(w.ctx)
		if err != nil {
			attempt++
			if !w.sleepBackoff(attempt) {
				return
			}
			continue
		}
		attempt = 0

		disconnected := make(chan error, 1)
		ep.OnDisconnected(func(_ api.Endpoint, cause error) {
			select {
			case disconnected <- cause:
			default:
			}
		})
		ep.OnReceived(func(_ api.Endpoint, view []byte) {
			w.cbMu.RLock()
			fn := w.onReceived
			w.cbMu.RUnlock()
			if fn != nil {
				fn(w, view)
			}
		})

		w.setCurrent(ep)
		atomic.StoreInt32(&w.status, int32(StatusConnected))
		w.fireConnected()

		select {
		case cause := <-disconnected:
			w.clearCurrent()
			w.fireDisconnected(cause)
		case <-w.ctx.Done():
			_ = ep.Dispose()
			return
		}
	}
}

// sleepBackoff waits delay(attempt) before the next redial, returning false
// if the Wrapper was disposed during the wait.
func (w *Wrapper) sleepBackoff(attempt int) bool {
	d := backoffDelay(w.opts, attempt)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-w.ctx.Done():
		return false
	}
}

// Dispose stops redialing and tears down the current underlying Endpoint,
// if any. Idempotent.
func (w *Wrapper) Dispose() error {
	if !atomic.CompareAndSwapInt32(&w.disposed, 0, 1) {
		return nil
	}
	w.cancel()
	<-w.loopDone
	atomic.StoreInt32(&w.status, int32(StatusDisposed))
	w.clk.Stop()
	return nil
}
