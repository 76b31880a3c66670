// File: ioop/operation.go
// Package ioop implements the reusable async I/O operation abstraction
// (spec §4.E): a submission object carrying a socket, a pooled-buffer
// window, a completion callback, and a user token, shared by send and
// receive paths.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the completion-callback shape of the teacher's
// reactor/reactor_linux.go / reactor/epoll_reactor.go and the op-pooling
// idiom of internal/concurrency/executor.go, generalized from a raw
// epoll/IOCP reactor to plain net.Conn since this module targets portable
// stream sockets rather than a platform-specific poller.

package ioop

import (
	"net"
	"sync"

	"github.com/eapache/queue"
	"github.com/momentics/xtransport/api"
)

// Kind distinguishes the last operation performed, so one completion
// callback can dispatch correctly.
type Kind int

const (
	KindSend Kind = iota
	KindReceive
)

// CompletionFunc receives the number of bytes transferred and any error.
type CompletionFunc func(n int, err error)

// Operation is one reusable I/O submission: a target connection, a window
// into a pooled buffer, a completion callback, and a free-form token.
type Operation struct {
	Conn       net.Conn
	Buf        api.Buffer
	Window     []byte // Buf.Data[offset:offset+length], restored to full on Reset
	Kind       Kind
	Token      any
	Completion CompletionFunc
}

// Reset restores the operation's window to the buffer's full slice and
// clears per-submission fields, so the operation can be returned to a pool.
func (o *Operation) Reset() {
	o.Window = o.Buf.Data
	o.Token = nil
	o.Completion = nil
}

// Submit performs the I/O synchronously relative to the calling goroutine
// and invokes Completion exactly once, either inline (when the call returns
// immediately) or after blocking on the underlying connection. Dispatch onto
// a completion thread (the Go analogue of the teacher's reactor/IOCP
// completion thread) is the caller's responsibility: submit from a
// dedicated per-Endpoint goroutine to get the "runs on an I/O thread"
// behavior spec §4.E calls for.
func (o *Operation) Submit() {
	var n int
	var err error
	switch o.Kind {
	case KindSend:
		n, err = o.Conn.Write(o.Window)
	case KindReceive:
		n, err = o.Conn.Read(o.Window)
	}
	if o.Completion != nil {
		o.Completion(n, err)
	}
}

// Pool is a reusable free list of *Operation, used by the TCP burst-send
// path (spec §4.F: "a pool of send operations for burst mode") so parallel
// producers each draw a fresh operation instead of serializing on one.
// Backed by github.com/eapache/queue (the teacher's own dependency, used for
// task dispatch in internal/concurrency/executor.go) guarded by a mutex,
// since eapache/queue itself is not safe for concurrent use.
type Pool struct {
	mu   sync.Mutex
	free *queue.Queue
	new  func() *Operation
}

// NewPool creates an operation pool that lazily constructs operations with
// newOp when the free list is empty.
func NewPool(newOp func() *Operation) *Pool {
	return &Pool{free: queue.New(), new: newOp}
}

// Get returns a free operation, creating one if none is available.
func (p *Pool) Get() *Operation {
	p.mu.Lock()
	if p.free.Length() > 0 {
		op := p.free.Remove().(*Operation)
		p.mu.Unlock()
		return op
	}
	p.mu.Unlock()
	return p.new()
}

// Put resets and returns an operation to the free list.
func (p *Pool) Put(op *Operation) {
	op.Reset()
	p.mu.Lock()
	p.free.Add(op)
	p.mu.Unlock()
}
