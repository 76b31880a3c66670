// File: transport/udp/endpoint.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// UDP datagram Endpoint (spec §4.L): unlike the framed stream transports,
// each Send call is exactly one datagram and each OnReceived delivery is
// exactly one inbound datagram — no frame parser is involved. Grounded on
// the teacher's transport/netconn.go zero-copy Read/Write shape, generalized
// from net.Conn to net.PacketConn, with optional multicast group membership
// and an optional golang.org/x/time/rate send limiter (grounded on
// nishisan-dev-n-backup's internal/agent/throttle.go rate.Limiter usage).

package udp

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/momentics/xtransport/api"
)

const defaultMaxDatagram = 65507

// Options configures a UDP Endpoint.
type Options struct {
	MaxDatagram     int    // largest payload accepted/delivered, default 65507
	Multicast       string // optional multicast group address to join, e.g. "239.0.0.1:9000"
	Interface       string // optional network interface name for multicast join
	AllowBroadcast  bool
	DisableLoopback bool // multicast loopback suppression
	RateLimit       *rate.Limiter
}

func (o Options) normalize() Options {
	if o.MaxDatagram <= 0 {
		o.MaxDatagram = defaultMaxDatagram
	}
	return o
}

// Endpoint is a UDP datagram transport realizing api.Endpoint. A single
// Endpoint can be used both to send to a fixed peer address and to receive
// from any source once started via Listen or Dial.
type Endpoint struct {
	conn     net.PacketConn
	peerAddr net.Addr // fixed destination for Send, nil for a receive-only/listening Endpoint
	opts     Options

	state int32 // atomic api.State

	cbMu           sync.RWMutex
	onReceived     api.ReceivedFunc
	onConnected    api.ConnectedFunc
	onDisconnected api.DisconnectedFunc

	recvDone    chan struct{}
	disposeOnce sync.Once
}

var _ api.Endpoint = (*Endpoint)(nil)

// Dial resolves addr and returns an Endpoint that sends datagrams to it
// while also receiving any datagram arriving on its ephemeral local port.
func Dial(ctx context.Context, addr string, opts Options) (*Endpoint, error) {
	opts = opts.normalize()
	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, api.ErrConnectionFailed.WithCause(err).WithContext("addr", addr)
	}
	peerAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		conn.Close()
		return nil, api.ErrConnectionFailed.WithCause(err).WithContext("addr", addr)
	}
	ep := newEndpoint(conn, peerAddr, opts)
	ep.Start()
	return ep, nil
}

// Listen binds a UDP socket on addr and returns a receive-capable Endpoint
// with no fixed peer (use SendTo, or Dial instead for a fixed-peer sender).
// If opts.Multicast is set, addr is ignored and the socket instead joins
// that multicast group.
func Listen(addr string, opts Options) (*Endpoint, error) {
	opts = opts.normalize()

	var conn net.PacketConn
	var err error
	if opts.Multicast != "" {
		conn, err = listenMulticast(opts)
	} else {
		conn, err = net.ListenPacket("udp", addr)
	}
	if err != nil {
		return nil, api.ErrConnectionFailed.WithCause(err).WithContext("addr", addr)
	}
	if opts.AllowBroadcast {
		if udpConn, ok := conn.(*net.UDPConn); ok {
			_ = enableBroadcast(udpConn)
		}
	}
	ep := newEndpoint(conn, nil, opts)
	ep.Start()
	return ep, nil
}

// newEndpoint constructs an Endpoint without starting its receive loop,
// leaving callers a window to wire OnReceived before any datagram can be
// read off the socket and discarded.
func newEndpoint(conn net.PacketConn, peerAddr net.Addr, opts Options) *Endpoint {
	return &Endpoint{
		conn:     conn,
		peerAddr: peerAddr,
		opts:     opts,
		state:    int32(api.StateConstructed),
		recvDone: make(chan struct{}),
	}
}

// Start transitions a constructed Endpoint to running: it launches the
// receive loop and fires OnConnected. Callers must wire OnReceived before
// calling Start.
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

func (e *Endpoint) Backend() api.Backend { return api.BackendUDP }
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

// Send writes payload as a single datagram to the Endpoint's fixed peer
// address (set via Dial). Returns ErrInvalidArgument if this Endpoint has
// no fixed peer (it was created via Listen).
func (e *Endpoint) Send(payload []byte) error {
	return e.SendTo(payload, e.peerAddr)
}

// SendTo writes payload as a single datagram to an explicit destination,
// for Endpoints that fan out to multiple peers (e.g. multicast senders).
func (e *Endpoint) SendTo(payload []byte, dst net.Addr) error {
	if e.State() == api.StateDisposed {
		return api.ErrDisposed
	}
	if dst == nil {
		return api.ErrInvalidArgument.WithContext("reason", "no_peer_address")
	}
	if len(payload) > e.opts.MaxDatagram {
		return api.ErrPayloadTooLarge.WithContext("len", len(payload)).WithContext("max", e.opts.MaxDatagram)
	}
	if e.opts.RateLimit != nil && !e.opts.RateLimit.Allow() {
		return api.ErrTransportFault.WithContext("reason", "rate_limited")
	}
	if _, err := e.conn.WriteTo(payload, dst); err != nil {
		return api.ErrTransportFault.WithCause(err)
	}
	return nil
}

// SendAsync mirrors Send, reporting its result on a channel to match the
// Endpoint contract's async shape.
func (e *Endpoint) SendAsync(ctx context.Context, payload []byte) <-chan error {
	result := make(chan error, 1)
	go func() { result <- e.Send(payload) }()
	return result
}

func (e *Endpoint) receiveLoop() {
	defer close(e.recvDone)
	buf := make([]byte, e.opts.MaxDatagram)
	for {
		n, _, err := e.conn.ReadFrom(buf)
		if err != nil {
			e.closeWithCause(api.ErrTransportFault.WithCause(err))
			return
		}
		if e.State() == api.StateDisposed {
			return
		}
		e.cbMu.RLock()
		fn := e.onReceived
		e.cbMu.RUnlock()
		if fn != nil {
			fn(e, buf[:n])
		}
	}
}

func (e *Endpoint) closeWithCause(cause error) {
	e.disposeOnce.Do(func() {
		atomic.StoreInt32(&e.state, int32(api.StateDisposed))
		_ = e.conn.Close()

		e.cbMu.RLock()
		fn := e.onDisconnected
		e.cbMu.RUnlock()
		if fn != nil {
			fn(e, cause)
		}
	})
}

// Dispose idempotently closes the socket and stops the receive loop.
func (e *Endpoint) Dispose() error {
	e.closeWithCause(nil)
	<-e.recvDone
	return nil
}
