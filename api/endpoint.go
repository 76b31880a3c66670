// File: api/endpoint.go
// Package api defines the backend-agnostic Endpoint/Acceptor contracts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Every backend (in-process, IPC shared memory, TCP, UDP) implements Endpoint
// with identical semantics: message-oriented delivery of opaque byte payloads.

package api

import "context"

// Backend identifies which transport realizes an Endpoint.
type Backend int

const (
	BackendInProc Backend = iota
	BackendIPC
	BackendTCP
	BackendUDP
)

func (b Backend) String() string {
	switch b {
	case BackendInProc:
		return "inproc"
	case BackendIPC:
		return "ipc"
	case BackendTCP:
		return "tcp"
	case BackendUDP:
		return "udp"
	default:
		return "unknown"
	}
}

// State mirrors an Endpoint's lifecycle: constructed -> started -> disposed.
type State int32

const (
	StateConstructed State = iota
	StateStarted
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateStarted:
		return "started"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// ReceivedFunc is invoked with a borrowed view of one payload. The slice
// aliases internal storage and is valid only for the duration of the call;
// implementations that need to retain it must copy.
type ReceivedFunc func(ep Endpoint, view []byte)

// ConnectedFunc is invoked once an Endpoint has completed its handshake.
type ConnectedFunc func(ep Endpoint)

// DisconnectedFunc is invoked exactly once when an Endpoint stops, with the
// triggering cause (nil for a caller-initiated Dispose).
type DisconnectedFunc func(ep Endpoint, cause error)

// Endpoint is the uniform message-passing handle exposed by every backend.
type Endpoint interface {
	// Backend reports which transport this Endpoint is realized over.
	Backend() Backend

	// OnReceived sets the receive callback. Effective on the next dispatch.
	OnReceived(fn ReceivedFunc)

	// OnConnected sets the connect callback. Effective on the next dispatch.
	OnConnected(fn ConnectedFunc)

	// OnDisconnected sets the disconnect callback. Effective on the next dispatch.
	OnDisconnected(fn DisconnectedFunc)

	// Send submits payload for delivery. Never suspends past a ring-park;
	// returns *Error (ErrCodePayloadTooLarge, ErrCodeDisposed, ErrCodeRingFull)
	// for synchronously detectable faults.
	Send(payload []byte) error

	// SendAsync submits payload for delivery and completes when the transport
	// has accepted the bytes (not when a peer has acknowledged them).
	SendAsync(ctx context.Context, payload []byte) <-chan error

	// Dispose releases all OS resources. Idempotent: the second and later
	// calls observe identical effects to the first.
	Dispose() error

	// State reports the current lifecycle stage.
	State() State
}

// ClientConnectedFunc is invoked by an Acceptor once per newly accepted peer.
type ClientConnectedFunc func(peer Endpoint)

// ClientDisconnectedFunc is invoked by an Acceptor once per peer teardown.
type ClientDisconnectedFunc func(peer Endpoint, cause error)

// Acceptor mints one server-side Endpoint per connected peer.
type Acceptor interface {
	// Start begins listening/discovery. Idempotent.
	Start() error

	// Dispose stops accepting and tears down all live peer Endpoints. Idempotent.
	Dispose() error

	// OnClientConnected sets the per-peer connect callback.
	OnClientConnected(fn ClientConnectedFunc)

	// OnClientDisconnected sets the per-peer disconnect callback.
	OnClientDisconnected(fn ClientDisconnectedFunc)

	// OnReceived sets the receive callback shared by all peers.
	OnReceived(fn ReceivedFunc)

	// Snapshot returns the currently live peer Endpoints.
	Snapshot() []Endpoint
}
