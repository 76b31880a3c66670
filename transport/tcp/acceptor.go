// File: transport/tcp/acceptor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TCP Acceptor (spec §4.G): binds a listening socket and accepts connections
// asynchronously, minting one Endpoint per accepted peer via the
// "from-accepted-socket" path. Grounded on the accept-loop shape of the
// teacher's transport/tcp/listener.go (StartTCPListener / go handleConn),
// with the WebSocket handshake dropped and replaced by this spec's framing.

package tcp

import (
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/momentics/xtransport/api"
)

const defaultBacklog = 1024

// AcceptorOptions configures a server Acceptor.
type AcceptorOptions struct {
	Addr        string
	Backlog     int // defaults to 1024 but is not applied: Start uses net.Listen with the OS default backlog
	Endpoint    Options
	Parallelism int // not read: the Acceptor runs a single accept loop, one Accept in flight at a time
}

func (o AcceptorOptions) normalize() AcceptorOptions {
	if o.Backlog <= 0 {
		o.Backlog = defaultBacklog
	}
	o.Endpoint = o.Endpoint.normalize()
	return o
}

// Acceptor listens for TCP connections and mints one Endpoint per peer.
type Acceptor struct {
	opts AcceptorOptions
	ln   net.Listener

	mu    sync.Mutex
	peers map[*Endpoint]struct{}

	cbMu              sync.RWMutex
	onClientConnected api.ClientConnectedFunc
	onClientDisc      api.ClientDisconnectedFunc
	onReceived        api.ReceivedFunc

	stopCh chan struct{}
	doneCh chan struct{}
}

var _ api.Acceptor = (*Acceptor)(nil)

// NewAcceptor constructs an Acceptor bound to opts.Addr once Start is called.
func NewAcceptor(opts AcceptorOptions) *Acceptor {
	opts = opts.normalize()
	return &Acceptor{
		opts:   opts,
		peers:  make(map[*Endpoint]struct{}),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
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

// Start binds the listening socket and launches the accept loop. Idempotent:
// calling Start again on an already-started Acceptor is a no-op.
func (a *Acceptor) Start() error {
	if a.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", a.opts.Addr)
	if err != nil {
		return api.ErrConnectionFailed.WithCause(err).WithContext("addr", a.opts.Addr)
	}
	a.ln = ln
	go a.acceptLoop()
	return nil
}

func (a *Acceptor) acceptLoop() {
	defer close(a.doneCh)
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			select {
			case <-a.stopCh:
				return
			default:
				fmt.Fprintf(os.Stderr, "xtransport: tcp accept error: %v\n", err)
				continue
			}
		}
		go a.handleAccepted(conn)
	}
}

func (a *Acceptor) handleAccepted(conn net.Conn) {
	peer := NewFromConn(conn, a.opts.Endpoint)

	a.mu.Lock()
	a.peers[peer] = struct{}{}
	a.mu.Unlock()

	a.cbMu.RLock()
	onReceived := a.onReceived
	onDisc := a.onClientDisc
	a.cbMu.RUnlock()

	if onReceived != nil {
		peer.OnReceived(onReceived)
	}
	peer.OnDisconnected(func(ep api.Endpoint, cause error) {
		a.mu.Lock()
		delete(a.peers, peer)
		a.mu.Unlock()
		if onDisc != nil {
			onDisc(ep, cause)
		}
	})

	// peer.OnConnected fires onClientConnected too (both observe the same
	// event here), wired before Start so the receive loop never parses a
	// frame before onReceived has been registered.
	a.cbMu.RLock()
	onConnected := a.onClientConnected
	a.cbMu.RUnlock()
	if onConnected != nil {
		peer.OnConnected(func(ep api.Endpoint) { onConnected(ep) })
	}

	peer.Start()
}

// Snapshot returns the currently live peer Endpoints.
func (a *Acceptor) Snapshot() []api.Endpoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]api.Endpoint, 0, len(a.peers))
	for p := range a.peers {
		out = append(out, p)
	}
	return out
}

// Dispose stops accepting and tears down all live peer Endpoints. Idempotent.
func (a *Acceptor) Dispose() error {
	select {
	case <-a.stopCh:
		return nil
	default:
		close(a.stopCh)
	}
	if a.ln != nil {
		_ = a.ln.Close()
		<-a.doneCh
	}
	a.mu.Lock()
	peers := make([]*Endpoint, 0, len(a.peers))
	for p := range a.peers {
		peers = append(peers, p)
	}
	a.mu.Unlock()
	for _, p := range peers {
		_ = p.Dispose()
	}
	return nil
}
