// File: builder/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package builder is the thin configuration surface spec.md §1 explicitly
// scopes out of this module: it holds the option struct and functional
// options needed to describe a single Endpoint/Acceptor across all four
// backends, plus the supplemented Validate() from SPEC_FULL.md §4, but does
// not itself wire up and dial a transport — callers pass the relevant
// sub-options (tcp.Options, ipc.Options, ...) straight to that backend's
// Dial/Listen/NewAcceptor. Grounded on the teacher's server/options.go
// functional-option-over-a-config-struct idiom.
package builder

import (
	"time"

	"github.com/momentics/xtransport/api"
	"github.com/momentics/xtransport/reconnect"
	"github.com/momentics/xtransport/transport/ipc"
	"github.com/momentics/xtransport/transport/inproc"
	"github.com/momentics/xtransport/transport/tcp"
	"github.com/momentics/xtransport/transport/udp"
)

// Role distinguishes a connecting client configuration from a listening
// server configuration.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// Options describes one Endpoint or Acceptor across all four backends. Only
// the fields relevant to Backend are read by Validate and by the transport
// packages' own Dial/Listen/NewAcceptor calls.
type Options struct {
	Backend api.Backend
	Role    Role
	Addr    string // remote (client) or listen (server) address, for TCP/UDP

	TCP    tcp.Options
	UDP    udp.Options
	IPC    ipc.Options
	InProc inproc.Options

	// Reconnect, when non-nil, wraps a client Endpoint in a
	// reconnect.Wrapper using these backoff settings.
	Reconnect *reconnect.Options
}

// Option mutates an Options value during New.
type Option func(*Options)

// New applies opts over a zero-valued Options and returns the result.
func New(opts ...Option) Options {
	var o Options
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

func WithBackend(b api.Backend) Option { return func(o *Options) { o.Backend = b } }
func WithRole(r Role) Option            { return func(o *Options) { o.Role = r } }
func WithAddr(addr string) Option       { return func(o *Options) { o.Addr = addr } }
func WithTCP(opts tcp.Options) Option   { return func(o *Options) { o.TCP = opts } }
func WithUDP(opts udp.Options) Option   { return func(o *Options) { o.UDP = opts } }
func WithIPC(opts ipc.Options) Option   { return func(o *Options) { o.IPC = opts } }
func WithInProc(opts inproc.Options) Option {
	return func(o *Options) { o.InProc = opts }
}

// WithReconnect enables the auto-reconnect wrapper for a client Endpoint
// with the given capped-exponential-backoff settings.
func WithReconnect(base, max time.Duration) Option {
	return func(o *Options) { o.Reconnect = &reconnect.Options{Base: base, Max: max} }
}

// Validate surfaces api.ErrInvalidArgument for option combinations that
// cannot describe a working Endpoint/Acceptor, matching the teacher's
// api.ErrInvalidArgument sentinel (SPEC_FULL.md §4 "Builder validation
// errors").
func (o Options) Validate() error {
	switch o.Backend {
	case api.BackendTCP, api.BackendUDP:
		if o.Role == RoleClient && o.Addr == "" {
			return api.ErrInvalidArgument.WithContext("reason", "missing_remote_endpoint").
				WithContext("backend", o.Backend.String())
		}
		if o.Role == RoleServer && o.Addr == "" {
			return api.ErrInvalidArgument.WithContext("reason", "missing_listen_address").
				WithContext("backend", o.Backend.String())
		}
	case api.BackendIPC:
		if o.IPC.Name == "" {
			return api.ErrInvalidArgument.WithContext("reason", "missing_channel_name").
				WithContext("backend", o.Backend.String())
		}
	case api.BackendInProc:
		if o.InProc.Name == "" {
			return api.ErrInvalidArgument.WithContext("reason", "missing_channel_name").
				WithContext("backend", o.Backend.String())
		}
	default:
		return api.ErrInvalidArgument.WithContext("reason", "unknown_backend")
	}
	if o.Role == RoleClient && o.Reconnect != nil && o.Reconnect.Max > 0 && o.Reconnect.Base > o.Reconnect.Max {
		return api.ErrInvalidArgument.WithContext("reason", "reconnect_base_exceeds_max")
	}
	return nil
}
