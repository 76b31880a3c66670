// File: transport/inproc/hub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package inproc implements the in-process transport (spec §4.K): the same
// control-slot-table-plus-paired-rings design as package ipc, but with the
// control table and rings living on the Go heap instead of in mapped shared
// memory, since both endpoints of an in-process channel already share one
// address space. A hub is the heap equivalent of an ipc control region;
// reuses ring.ByteRing directly rather than the mmap-aware shmRing in
// package ipc, making this package the most direct read of the underlying
// ring algorithm's behavior (spec §4.K "canonical reference for the ring
// layer's behavior"). Grounded on the teacher's internal/concurrency
// eventloop run/quit lifecycle, generalized from one loop into a discovery
// loop plus a heartbeat-monitor loop exactly as in package ipc.
package inproc

import (
	"sync"
	"time"

	"github.com/momentics/xtransport/api"
	"github.com/momentics/xtransport/ring"
)

const (
	defaultMaxClients = 16
	// defaultRingCapacity matches spec.md §3's glossary default of 1 MiB plus
	// 128 bytes of padding, rounded up to the next power of two by
	// ring.NewByteRing when the slot's rings are created.
	defaultRingCapacity      = 1<<20 + 128
	defaultHeartbeatInterval = 20 * time.Millisecond
	// defaultHeartbeatTimeout matches spec.md §4.J's stated liveness timeout
	// default of 5 seconds (in-proc reuses the same default as ipc since
	// spec.md §4.K does not state a separate one).
	defaultHeartbeatTimeout = 5 * time.Second
)

// Options configures both Dial and NewAcceptor for one named in-process
// channel. Dial and NewAcceptor for the same Name must agree on MaxClients
// and RingCapacity.
type Options struct {
	Name              string
	MaxClients        int
	RingCapacity      int
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
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = defaultHeartbeatInterval
	}
	if o.HeartbeatTimeout <= 0 {
		o.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	return o
}

type slotEntry struct {
	occupied      bool
	clientID      uint64
	state         api.SlotState
	lastHeartbeat time.Time
	c2s           *ring.ByteRing
	s2c           *ring.ByteRing
}

// hub is the heap-resident equivalent of an ipc control region: one per
// channel Name, shared by every Dial/NewAcceptor call naming it.
type hub struct {
	mu    sync.Mutex
	opts  Options
	alive bool
	slots []slotEntry
}

var (
	registryMu sync.Mutex
	registry   = map[string]*hub{}
)

func openHub(opts Options) *hub {
	registryMu.Lock()
	defer registryMu.Unlock()
	h, ok := registry[opts.Name]
	if !ok {
		h = &hub{opts: opts, slots: make([]slotEntry, opts.MaxClients)}
		registry[opts.Name] = h
	}
	return h
}

// closeHub removes a hub from the registry once its Acceptor disposes,
// freeing it for reuse under the same Name.
func closeHub(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

func (h *hub) setAlive(alive bool) {
	h.mu.Lock()
	h.alive = alive
	h.mu.Unlock()
}

func (h *hub) isAlive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alive
}

// claimSlot finds a free slot, creates its rings, and marks it Live. Returns
// the slot index and its two rings, or -1 on exhaustion.
func (h *hub) claimSlot(clientID uint64) (int, *ring.ByteRing, *ring.ByteRing) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.slots {
		if h.slots[i].occupied {
			continue
		}
		c2s := ring.NewByteRing(h.opts.RingCapacity)
		s2c := ring.NewByteRing(h.opts.RingCapacity)
		h.slots[i] = slotEntry{
			occupied:      true,
			clientID:      clientID,
			state:         api.SlotLive,
			lastHeartbeat: time.Now(),
			c2s:           c2s,
			s2c:           s2c,
		}
		return i, c2s, s2c
	}
	return -1, nil, nil
}

func (h *hub) touchHeartbeat(slot int, now time.Time) {
	h.mu.Lock()
	if slot >= 0 && slot < len(h.slots) && h.slots[slot].occupied {
		h.slots[slot].lastHeartbeat = now
	}
	h.mu.Unlock()
}

func (h *hub) releaseSlot(slot int) {
	h.mu.Lock()
	if slot >= 0 && slot < len(h.slots) {
		h.slots[slot] = slotEntry{}
	}
	h.mu.Unlock()
}

// liveSlots returns the indices of slots that are occupied and Live.
func (h *hub) liveSlots() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]int, 0, len(h.slots))
	for i, s := range h.slots {
		if s.occupied && s.state == api.SlotLive {
			out = append(out, i)
		}
	}
	return out
}

// staleSlots returns slot indices whose heartbeat is older than timeout.
func (h *hub) staleSlots(now time.Time, timeout time.Duration) []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []int
	for i, s := range h.slots {
		if s.occupied && now.Sub(s.lastHeartbeat) > timeout {
			out = append(out, i)
		}
	}
	return out
}

func (h *hub) rings(slot int) (*ring.ByteRing, *ring.ByteRing, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if slot < 0 || slot >= len(h.slots) || !h.slots[slot].occupied {
		return nil, nil, false
	}
	return h.slots[slot].c2s, h.slots[slot].s2c, true
}
