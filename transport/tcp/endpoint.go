// File: transport/tcp/endpoint.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Client TCP Endpoint (spec §4.F): a framed, zero-copy full-duplex stream
// over one net.Conn. Grounded on the teacher's transport/netconn.go
// pool-backed connection wrapper, generalized from a bare passthrough into a
// full send/receive/frame pipeline.

package tcp

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/momentics/xtransport/api"
	"github.com/momentics/xtransport/frame"
	"github.com/momentics/xtransport/ioop"
	"github.com/momentics/xtransport/pool"
)

const (
	defaultSliceSize   = 8192
	defaultParallelism = 8
)

// Options configures a client Endpoint.
type Options struct {
	SliceSize   int // per-slice buffer size, default 8192
	Parallelism int // burst send-operation pool depth, default 8
}

func (o Options) normalize() Options {
	if o.SliceSize <= 0 {
		o.SliceSize = defaultSliceSize
	}
	if o.Parallelism <= 0 {
		o.Parallelism = defaultParallelism
	}
	return o
}

// Endpoint is the client-side TCP transport realizing api.Endpoint.
type Endpoint struct {
	conn   net.Conn
	pool   *pool.Manager
	parser *frame.Parser

	sliceSize int

	sendMu  sync.Mutex // serializes the "regular" send path (spec §4.F)
	sendBuf api.Buffer

	burst *ioop.Pool // "burst" variant: fresh op per call, parallel producers

	recvBuf  api.Buffer
	recvOp   *ioop.Operation
	recvOnce sync.Once
	recvDone chan struct{}

	state int32 // atomic api.State

	cbMu           sync.RWMutex
	onReceived     api.ReceivedFunc
	onConnected    api.ConnectedFunc
	onDisconnected api.DisconnectedFunc

	disposeOnce sync.Once
}

var _ api.Endpoint = (*Endpoint)(nil)

// NewFromConn wraps an already-established net.Conn (used directly by
// clients dialing out, and by the Acceptor's "from-accepted-socket" path).
// The returned Endpoint is constructed but not started: callers must wire
// OnReceived/OnConnected/OnDisconnected and then call Start, so that no
// frame can be parsed and discarded before a receiver is registered.
func NewFromConn(conn net.Conn, opts Options) *Endpoint {
	opts = opts.normalize()
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
		_ = tc.SetReadBuffer(1 << 20)
		_ = tc.SetWriteBuffer(1 << 20)
	}

	bufs := pool.NewManager(opts.SliceSize, 2*opts.Parallelism+2)
	sendBuf, _ := bufs.Get()
	recvBuf, _ := bufs.Get()

	ep := &Endpoint{
		conn:      conn,
		pool:      bufs,
		sliceSize: opts.SliceSize,
		sendBuf:   sendBuf,
		recvBuf:   recvBuf,
		recvDone:  make(chan struct{}),
		state:     int32(api.StateConstructed),
	}
	ep.burst = ioop.NewPool(func() *ioop.Operation {
		b, ok := bufs.Get()
		if !ok {
			b = api.Buffer{Data: make([]byte, opts.SliceSize)}
		}
		return &ioop.Operation{Conn: conn, Kind: ioop.KindSend, Buf: b, Window: b.Data}
	})
	ep.parser = frame.NewParser(opts.SliceSize - 4)
	ep.parser.OnFrame = func(payload []byte) { ep.dispatchReceived(payload) }
	ep.parser.OnError = func(frame.ErrorKind) {
		ep.closeWithCause(api.ErrProtocolOverflow)
	}

	ep.recvOp = &ioop.Operation{Conn: conn, Kind: ioop.KindReceive, Buf: recvBuf, Window: recvBuf.Data}
	return ep
}

// Start transitions a constructed Endpoint to running: it launches the
// receive loop and fires OnConnected. Callers must wire their callbacks
// before calling Start.
func (e *Endpoint) Start() {
	atomic.StoreInt32(&e.state, int32(api.StateStarted))
	go e.receiveLoop()

	e.cbMu.RLock()
	connected := e.onConnected
	e.cbMu.RUnlock()
	if connected != nil {
		connected(e)
	}
}

// Dial connects to addr and returns a started client Endpoint.
func Dial(ctx context.Context, addr string, opts Options) (*Endpoint, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, api.ErrConnectionFailed.WithCause(err).WithContext("addr", addr)
	}
	ep := NewFromConn(conn, opts)
	ep.Start()
	return ep, nil
}

func (e *Endpoint) Backend() api.Backend { return api.BackendTCP }

func (e *Endpoint) State() api.State { return api.State(atomic.LoadInt32(&e.state)) }

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

func (e *Endpoint) dispatchReceived(payload []byte) {
	e.cbMu.RLock()
	fn := e.onReceived
	e.cbMu.RUnlock()
	if fn != nil {
		fn(e, payload)
	}
}

// Send is the "regular" path: one reusable send operation serializes
// concurrent callers at the Endpoint level (spec §4.F). It never suspends
// past the OS accepting the write.
func (e *Endpoint) Send(payload []byte) error {
	if e.State() == api.StateDisposed {
		return api.ErrDisposed
	}
	if len(payload) > e.sliceSize-4 {
		return api.ErrPayloadTooLarge.WithContext("len", len(payload)).WithContext("max", e.sliceSize-4)
	}
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	wire := frame.Encode(e.sendBuf.Data[:0], payload)
	if _, err := e.conn.Write(wire); err != nil {
		e.closeWithCause(api.ErrTransportFault.WithCause(err))
		return api.ErrTransportFault.WithCause(err)
	}
	return nil
}

// SendAsync is the "burst" path: a fresh send operation is drawn from a pool
// on every call, so parallel producers do not serialize on each other. The
// returned channel receives nil once the OS has accepted the bytes (not once
// a peer has acknowledged them) — signaled from the completion callback,
// unlike the teacher's source where this completion source is never signaled
// (spec §9 Open Question (i)).
func (e *Endpoint) SendAsync(ctx context.Context, payload []byte) <-chan error {
	result := make(chan error, 1)
	if e.State() == api.StateDisposed {
		result <- api.ErrDisposed
		return result
	}
	if len(payload) > e.sliceSize-4 {
		result <- api.ErrPayloadTooLarge.WithContext("len", len(payload))
		return result
	}

	op := e.burst.Get()
	wire := frame.Encode(op.Buf.Data[:0], payload)
	op.Window = wire
	op.Completion = func(_ int, err error) {
		e.burst.Put(op)
		if err != nil {
			e.closeWithCause(api.ErrTransportFault.WithCause(err))
			result <- api.ErrTransportFault.WithCause(err)
			return
		}
		result <- nil
	}
	go op.Submit()
	return result
}

func (e *Endpoint) receiveLoop() {
	defer close(e.recvDone)
	for {
		n, err := e.conn.Read(e.recvOp.Window)
		if err != nil {
			e.closeWithCause(api.ErrTransportFault.WithCause(err))
			return
		}
		if n == 0 {
			e.closeWithCause(api.ErrTransportFault)
			return
		}
		if e.State() == api.StateDisposed {
			return
		}
		if !e.parser.Feed(e.recvOp.Window[:n]) {
			return // parser already reported ProtocolOverflow and closed
		}
	}
}

func (e *Endpoint) closeWithCause(cause error) {
	e.disposeOnce.Do(func() {
		atomic.StoreInt32(&e.state, int32(api.StateDisposed))
		_ = e.conn.Close()
		e.sendBuf.Release()
		e.recvBuf.Release()
		e.parser.Reset()

		e.cbMu.RLock()
		fn := e.onDisconnected
		e.cbMu.RUnlock()
		if fn != nil {
			fn(e, cause)
		}
	})
}

// Dispose idempotently tears the Endpoint down: shuts down the socket,
// disposes I/O operations, drains the parser, and invokes OnDisconnected
// exactly once.
func (e *Endpoint) Dispose() error {
	e.closeWithCause(nil)
	<-e.recvDone
	return nil
}
