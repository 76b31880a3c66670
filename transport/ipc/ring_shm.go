// File: transport/ipc/ring_shm.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// shmRing is the mmap'd counterpart of package ring's ByteRing: the same
// span-acquire/commit byte-ring algorithm (grounded on other_examples
// shmring.go, already used verbatim by ring.ByteRing), but with its
// producer/consumer cursors living at fixed offsets inside a shared mapped
// region instead of as Go-heap atomic.Uint32 struct fields, so that two
// independent OS processes mapping the same file observe the same cursor
// state (spec §4.H "per-client paired SPSC rings").

package ipc

import (
	"sync/atomic"
)

// shmRing is a single-producer/single-consumer byte ring backed by a region
// of mapped memory. One shmRing instance is opened per direction (c2s, s2c)
// per client; only one side ever calls the producer methods and only the
// other side ever calls the consumer methods.
type shmRing struct {
	region   *mapping
	capacity uint32 // power of two
	mask     uint32
	payload  []byte // region.data[ringHeaderSize:]
}

func newShmRing(region *mapping, capacity int) *shmRing {
	r := &shmRing{
		region:   region,
		capacity: uint32(capacity),
		mask:     uint32(capacity - 1),
		payload:  region.data[ringHeaderSize : ringHeaderSize+capacity],
	}
	return r
}

func (r *shmRing) initHeader() {
	copy(r.region.data[ringMagicOff:ringMagicOff+4], ringMagic[:])
	r.region.data[ringVersionOff] = protocolVersionMajor
	r.region.data[ringVersionOff+1] = protocolVersionMinor
	atomicStoreU32(r.region.data, ringCapacityOff, r.capacity)
	r.storeProducer(0)
	r.storeConsumer(0)
}

func (r *shmRing) checkMagic() bool {
	for i := 0; i < 4; i++ {
		if r.region.data[ringMagicOff+i] != ringMagic[i] {
			return false
		}
	}
	return true
}

func (r *shmRing) loadProducer() uint32 { return atomicLoadU32(r.region.data, ringProducerOff) }
func (r *shmRing) storeProducer(v uint32) {
	atomicStoreU32(r.region.data, ringProducerOff, v)
}
func (r *shmRing) loadConsumer() uint32 { return atomicLoadU32(r.region.data, ringConsumerOff) }
func (r *shmRing) storeConsumer(v uint32) {
	atomicStoreU32(r.region.data, ringConsumerOff, v)
}

func (r *shmRing) available() uint32 { return r.loadProducer() - r.loadConsumer() }
func (r *shmRing) space() uint32     { return r.capacity - r.available() }

// writeRecord length-prefixes payload with a 4-byte LE header and writes it
// atomically (from the single producer's perspective), returning false if
// there is not enough free space for header+payload.
func (r *shmRing) writeRecord(payload []byte) bool {
	need := uint32(4 + len(payload))
	if need > r.space() {
		return false
	}
	wr := r.loadProducer()
	r.writeBytes(wr, u32le(uint32(len(payload))))
	r.writeBytes(wr+4, payload)
	r.storeProducer(wr + need)
	return true
}

func (r *shmRing) writeBytes(at uint32, b []byte) {
	for len(b) > 0 {
		off := at & r.mask
		n := copy(r.payload[off:], b)
		b = b[n:]
		at += uint32(n)
	}
}

func (r *shmRing) readBytes(at uint32, n uint32) []byte {
	off := at & r.mask
	if off+n <= r.capacity {
		return r.payload[off : off+n]
	}
	out := make([]byte, n)
	first := r.capacity - off
	copy(out, r.payload[off:])
	copy(out[first:], r.payload[:n-first])
	return out
}

// readRecord invokes fn with the next queued record, if any, and advances
// the consumer cursor past it. The slice passed to fn is only valid for the
// duration of the call.
func (r *shmRing) readRecord(fn func(payload []byte)) bool {
	if r.available() < 4 {
		return false
	}
	rd := r.loadConsumer()
	hdr := r.readBytes(rd, 4)
	length := u32FromLE(hdr)
	if r.available() < 4+length {
		return false
	}
	body := r.readBytes(rd+4, length)
	fn(body)
	r.storeConsumer(rd + 4 + length)
	return true
}

func u32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func u32FromLE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func atomicLoadU32(b []byte, off int) uint32     { return atomic.LoadUint32(u32ptr(b, off)) }
func atomicStoreU32(b []byte, off int, v uint32) { atomic.StoreUint32(u32ptr(b, off), v) }
