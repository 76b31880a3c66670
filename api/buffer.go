// File: api/buffer.go
// Package api defines Buffer and BufferPool, the §4.B pooled byte-slice
// buffer manager contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Buffer is a borrowed, fixed-size window into a pool's single contiguous
// backing array. Converted to a struct to avoid interface boxing on the hot
// send/receive path.
type Buffer struct {
	Data  []byte
	Index int // slot index within the pool's backing array
	Pool  Releaser
}

// Releaser decouples Buffer from a concrete pool implementation.
type Releaser interface {
	Put(Buffer)
}

// Bytes returns the full byte slice backing this Buffer.
func (b Buffer) Bytes() []byte { return b.Data }

// Copy returns a heap copy of the buffer's current contents.
func (b Buffer) Copy() []byte {
	dup := make([]byte, len(b.Data))
	copy(dup, b.Data)
	return dup
}

// Slice returns a new Buffer view sharing the same underlying memory.
func (b Buffer) Slice(from, to int) Buffer {
	if from < 0 || to > len(b.Data) || from > to {
		return Buffer{Index: b.Index, Pool: b.Pool}
	}
	return Buffer{Data: b.Data[from:to], Index: b.Index, Pool: b.Pool}
}

// Release returns the buffer to its pool, restoring its full window.
func (b Buffer) Release() {
	if b.Pool != nil {
		b.Pool.Put(b)
	}
}

// Capacity returns the capacity of the underlying slice.
func (b Buffer) Capacity() int {
	return cap(b.Data)
}

// BufferPool hands out fixed-size slices drawn from one contiguous backing
// array; a rented slice is exclusively held by its renter until released.
type BufferPool interface {
	Get() (Buffer, bool)
	Put(b Buffer)
	SliceSize() int
	Stats() BufferPoolStats
}

// BufferPoolStats summarizes pool usage.
type BufferPoolStats struct {
	Capacity   int
	InUse      int
	TotalAlloc int64
	TotalFree  int64
}
