// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package ipc implements the cross-process shared-memory transport
// (spec §4.H-J): a control-channel handshake over a memory-mapped control
// region, followed by a pair of memory-mapped SPSC byte rings (c2s, s2c) per
// client. Grounded on the teacher's golang.org/x/sys dependency and the
// retrieval pack's shared-memory ring examples (other_examples shmring.go,
// AlephTX/aleph-tx shm/seqlock.go).
package ipc

import "time"

const (
	defaultMaxClients = 16
	// defaultRingCapacity matches spec.md §3's glossary default of 1 MiB plus
	// 128 bytes of padding, rounded up to the next power of two by normalize.
	defaultRingCapacity      = 1<<20 + 128
	defaultHeartbeatInterval = 50 * time.Millisecond
	// defaultHeartbeatTimeout matches spec.md §4.J's stated liveness timeout
	// default of 5 seconds.
	defaultHeartbeatTimeout  = 5 * time.Second
	defaultDiscoveryInterval = 5 * time.Millisecond
)

// Options configures both the client Endpoint (Dial) and the server
// Acceptor (NewAcceptor) for one named IPC channel. Both sides of a channel
// must agree on Dir, Name, MaxClients, and RingCapacity.
type Options struct {
	Dir               string // shared region directory, default os.TempDir()
	Name              string // channel name; identifies the backing files
	MaxClients        int    // control slot table size, default 16
	RingCapacity      int    // per-ring payload bytes, rounded to a power of two, default 1MiB+128
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
}

func (o Options) normalize() Options {
	if o.MaxClients <= 0 {
		o.MaxClients = defaultMaxClients
	}
	if o.RingCapacity <= 0 {
		o.RingCapacity = defaultRingCapacity
	}
	o.RingCapacity = int(nextPow2(uint32(o.RingCapacity)))
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = defaultHeartbeatInterval
	}
	if o.HeartbeatTimeout <= 0 {
		o.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	return o
}

// pollBackoff is the sleep between failed readRecord attempts in the
// receive loops. Shared-memory rings have no blocking wait primitive across
// process boundaries, so consumers poll; a flat 1ms keeps CPU use bounded
// without materially hurting spec §8's latency scenarios.
func pollBackoff() { time.Sleep(time.Millisecond) }

func nextPow2(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
