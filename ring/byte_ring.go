// File: ring/byte_ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ByteRing is the byte-stream SPSC ring backing IPC and in-process record
// storage (spec §4.H: "a variable-length record area addressed by cursors in
// bytes"). Grounded on the span-acquire/commit API of the retrieval pack's
// shmring package (other_examples, jangala-dev/devicecode-go), adapted to
// this module's Endpoint/record conventions: WriteRecord/ReadRecord
// length-prefix each record (4-byte little-endian) so message boundaries
// survive wraparound.

package ring

import "sync/atomic"

// ByteRing is a fixed-capacity, power-of-two-sized circular byte buffer with
// exactly one producer and one consumer. Producer and consumer cursors are
// monotonic byte offsets; slot index is cursor & mask.
type ByteRing struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer cursor
	_    [cacheLinePad]byte
	wr   atomic.Uint32 // producer cursor
	_    [cacheLinePad]byte
}

// NewByteRing allocates a ring of the given power-of-two size (>= 2).
func NewByteRing(size int) *ByteRing {
	if size < 2 || size&(size-1) != 0 {
		sz := nextPow2(uint64(size))
		if sz < 2 {
			sz = 2
		}
		size = int(sz)
	}
	return &ByteRing{
		buf:  make([]byte, size),
		mask: uint32(size - 1),
	}
}

// Cap returns the ring capacity in bytes.
func (r *ByteRing) Cap() int { return len(r.buf) }

// Available returns bytes currently readable by the consumer.
func (r *ByteRing) Available() int {
	return int(r.wr.Load() - r.rd.Load())
}

// Space returns bytes currently writable by the producer.
func (r *ByteRing) Space() int {
	return len(r.buf) - r.Available()
}

// WriteAcquire returns up to two contiguous writable spans (p1, p2). The
// producer must call WriteCommit(n) to publish written bytes, where
// n <= len(p1)+len(p2).
func (r *ByteRing) WriteAcquire() (p1, p2 []byte) {
	rd := r.rd.Load()
	wr := r.wr.Load()
	size := uint32(len(r.buf))
	space := size - (wr - rd)
	if space == 0 {
		return nil, nil
	}
	idx := wr & r.mask
	first := size - idx
	if first > space {
		first = space
	}
	p1 = r.buf[idx : idx+first]
	if rem := space - first; rem > 0 {
		p2 = r.buf[:rem]
	}
	return p1, p2
}

// WriteCommit publishes n bytes previously reserved by WriteAcquire.
func (r *ByteRing) WriteCommit(n int) {
	if n <= 0 {
		return
	}
	r.wr.Store(r.wr.Load() + uint32(n))
}

// ReadAcquire returns up to two contiguous readable spans (p1, p2). The
// consumer must call ReadRelease(n) to advance the consumer cursor.
func (r *ByteRing) ReadAcquire() (p1, p2 []byte) {
	rd := r.rd.Load()
	wr := r.wr.Load()
	size := uint32(len(r.buf))
	avail := wr - rd
	if avail == 0 {
		return nil, nil
	}
	idx := rd & r.mask
	first := size - idx
	if first > avail {
		first = avail
	}
	p1 = r.buf[idx : idx+first]
	if rem := avail - first; rem > 0 {
		p2 = r.buf[:rem]
	}
	return p1, p2
}

// ReadRelease consumes n bytes previously obtained by ReadAcquire.
func (r *ByteRing) ReadRelease(n int) {
	if n <= 0 {
		return
	}
	r.rd.Store(r.rd.Load() + uint32(n))
}

// WriteRecord length-prefixes payload (4-byte little-endian) and writes it
// into the ring in one call, returning false if there is insufficient space.
// Not safe to call concurrently with another producer.
func (r *ByteRing) WriteRecord(payload []byte) bool {
	need := 4 + len(payload)
	if r.Space() < need {
		return false
	}
	var hdr [4]byte
	putUint32LE(hdr[:], uint32(len(payload)))
	r.writeBytes(hdr[:])
	r.writeBytes(payload)
	return true
}

func (r *ByteRing) writeBytes(b []byte) {
	p1, p2 := r.WriteAcquire()
	n := copy(p1, b)
	if n < len(b) {
		n += copy(p2, b[n:])
	}
	r.WriteCommit(n)
}

// ReadRecord reads one length-prefixed record, invoking fn with a view that
// is only valid for the duration of the call. Returns false if fewer than a
// full record is currently available.
func (r *ByteRing) ReadRecord(fn func(payload []byte)) bool {
	if r.Available() < 4 {
		return false
	}
	var hdr [4]byte
	r.peekBytes(hdr[:])
	length := getUint32LE(hdr[:])
	if r.Available() < 4+int(length) {
		return false
	}
	r.ReadRelease(4)
	if length == 0 {
		fn(nil)
		return true
	}
	buf := make([]byte, length)
	r.readBytes(buf)
	fn(buf)
	return true
}

func (r *ByteRing) peekBytes(dst []byte) {
	p1, p2 := r.ReadAcquire()
	n := copy(dst, p1)
	if n < len(dst) {
		copy(dst[n:], p2)
	}
}

func (r *ByteRing) readBytes(dst []byte) {
	p1, p2 := r.ReadAcquire()
	n := copy(dst, p1)
	if n < len(dst) {
		n += copy(dst[n:], p2)
	}
	r.ReadRelease(n)
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
