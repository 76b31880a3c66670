// File: pool/bufferpool.go
// Author: momentics <momentics@gmail.com>
//
// Manager carves one contiguous []byte into N equal slices and hands out one
// slice per async I/O operation via a channel-backed free list, grounded on
// the free-list idiom in the teacher's pool/bytepool.go generalized with the
// "single contiguous backing array" requirement from spec §4.B.

package pool

import (
	"sync/atomic"

	"github.com/momentics/xtransport/api"
)

// Manager is a concurrent pool of fixed-size slices drawn from one backing array.
type Manager struct {
	backing   []byte
	sliceSize int
	free      chan int // free slot indices
	inUse     int64
	allocs    int64
	frees     int64
}

var _ api.BufferPool = (*Manager)(nil)

// NewManager allocates a backing array of sliceSize*count bytes and
// pre-populates the free list with all count slots.
func NewManager(sliceSize, count int) *Manager {
	if sliceSize <= 0 {
		sliceSize = 8192
	}
	if count <= 0 {
		count = 1
	}
	m := &Manager{
		backing:   make([]byte, sliceSize*count),
		sliceSize: sliceSize,
		free:      make(chan int, count),
	}
	for i := 0; i < count; i++ {
		m.free <- i
	}
	return m
}

// SliceSize returns the fixed window size of every slice this pool hands out.
func (m *Manager) SliceSize() int { return m.sliceSize }

// Get rents one free slice, or returns (zero, false) if none is available.
func (m *Manager) Get() (api.Buffer, bool) {
	select {
	case idx := <-m.free:
		atomic.AddInt64(&m.inUse, 1)
		atomic.AddInt64(&m.allocs, 1)
		start := idx * m.sliceSize
		return api.Buffer{
			Data:  m.backing[start : start+m.sliceSize : start+m.sliceSize],
			Index: idx,
			Pool:  m,
		}, true
	default:
		return api.Buffer{}, false
	}
}

// Put returns a rented slice to the free list, restoring its full window.
func (m *Manager) Put(b api.Buffer) {
	if b.Pool != m {
		return
	}
	select {
	case m.free <- b.Index:
		atomic.AddInt64(&m.inUse, -1)
		atomic.AddInt64(&m.frees, 1)
	default:
		// Pool over-capacity put (double release); drop silently.
	}
}

// Stats reports current pool usage.
func (m *Manager) Stats() api.BufferPoolStats {
	return api.BufferPoolStats{
		Capacity:   len(m.backing) / m.sliceSize,
		InUse:      int(atomic.LoadInt64(&m.inUse)),
		TotalAlloc: atomic.LoadInt64(&m.allocs),
		TotalFree:  atomic.LoadInt64(&m.frees),
	}
}
