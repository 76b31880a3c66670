// File: ring/spsc.go
// Package ring implements the single-producer/single-consumer ring buffer
// (spec §4.A) and its padded-cursor variant (spec §4.D).
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's pool/ring.go head/tail ring, generalized with
// explicit acquire/release cursor semantics and the cache-line padding idiom
// from core/concurrency/lock_free_queue.go.

package ring

import (
	"sync/atomic"

	"github.com/momentics/xtransport/api"
)

const cacheLinePad = 64

// SPSC is a fixed-capacity, power-of-two-sized ring with exactly one producer
// and one consumer. The producer owns tail; the consumer owns head. Each is
// padded to a cache line to avoid false sharing between producer and
// consumer cores.
type SPSC[T any] struct {
	head uint64
	_    [cacheLinePad]byte // padding for hot/cold separation
	tail uint64
	_    [cacheLinePad]byte
	mask uint64
	data []T
}

var _ api.Ring[int] = (*SPSC[int])(nil)

// New allocates an SPSC ring, rounding capacity up to the next power of two.
func New[T any](capacity int) *SPSC[T] {
	if capacity < 2 {
		capacity = 2
	}
	size := nextPow2(uint64(capacity))
	return &SPSC[T]{
		mask: size - 1,
		data: make([]T, size),
	}
}

func nextPow2(n uint64) uint64 {
	if n&(n-1) == 0 {
		return n
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// TryEnqueue publishes item for the consumer. Returns false if the ring is
// full. Must only be called from the single producer goroutine.
func (r *SPSC[T]) TryEnqueue(item T) bool {
	head := atomic.LoadUint64(&r.head) // acquire: observe consumer progress
	tail := r.tail                     // owned by this goroutine
	if tail-head == uint64(len(r.data)) {
		return false
	}
	r.data[tail&r.mask] = item
	atomic.StoreUint64(&r.tail, tail+1) // release: publish to consumer
	return true
}

// TryDequeue removes and returns the oldest item. ok is false if the ring is
// empty. Must only be called from the single consumer goroutine.
func (r *SPSC[T]) TryDequeue() (item T, ok bool) {
	tail := atomic.LoadUint64(&r.tail) // acquire: observe producer progress
	head := r.head                     // owned by this goroutine
	if head == tail {
		return item, false
	}
	idx := head & r.mask
	item = r.data[idx]
	var zero T
	r.data[idx] = zero // drop references so GC can reclaim
	atomic.StoreUint64(&r.head, head+1) // release: publish to producer
	return item, true
}

// Len returns a snapshot of the number of items currently in the ring.
func (r *SPSC[T]) Len() int {
	tail := atomic.LoadUint64(&r.tail)
	head := atomic.LoadUint64(&r.head)
	return int(tail - head)
}

// Cap returns the fixed ring capacity (power of two).
func (r *SPSC[T]) Cap() int { return len(r.data) }

// Clear resets both cursors to zero and zeroes the backing array. Only
// valid under external exclusion (no concurrent producer/consumer activity).
func (r *SPSC[T]) Clear() {
	atomic.StoreUint64(&r.head, 0)
	atomic.StoreUint64(&r.tail, 0)
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
}
