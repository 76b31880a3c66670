// Package api
// Author: momentics
//
// Fast, lock-free SPSC ring buffer contract (spec §4.A) for cross-thread
// data transfer between exactly one producer and one consumer.

package api

// Ring is the single-producer/single-consumer FIFO contract.
type Ring[T any] interface {
	// TryEnqueue adds item, returns false if the ring is full.
	TryEnqueue(item T) bool

	// TryDequeue removes and returns the oldest item, false if the ring is empty.
	TryDequeue() (T, bool)

	// Len returns the number of items currently in the ring.
	Len() int

	// Cap returns the fixed ring capacity (power of two).
	Cap() int
}
