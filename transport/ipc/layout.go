// File: transport/ipc/layout.go
// Package ipc implements the shared-memory IPC transport (spec §4.H-J): a
// control-channel handshake plus per-client paired SPSC rings in a
// memory-mapped region.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The control region holds magic 'F','T','I','P' at offset 0, version
// major/minor at 4-5, slot_count (uint16) at 8, and server_alive as a
// 4-byte-aligned uint32 at 12 so it can be accessed atomically; the slot
// table starts at 16. Little-endian throughout. Grounded on
// the mmap+unsafe-pointer-atomics idiom of the retrieval pack's
// other_examples shm seqlock ring (AlephTX/aleph-tx, feeder/shm/seqlock.go),
// adapted from a fixed-slot seqlock to the spec's producer/consumer cursor
// ring header.

package ipc

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"

	"github.com/momentics/xtransport/api"
)

// Control region layout.
const (
	ctrlMagicOff       = 0  // [4]byte
	ctrlVersionMajOff  = 4  // uint8
	ctrlVersionMinOff  = 5  // uint8
	ctrlServerAliveOff = 6  // uint8
	ctrlSlotCountOff   = 8  // uint16
	ctrlHeaderSize     = 16 // slot table starts here

	slotRecordSize     = 32
	slotOccupiedOff    = 0  // uint32
	slotClientIDOff    = 8  // uint64
	slotStateOff       = 16 // uint32
	slotHeartbeatNsOff = 24 // int64
)

var ctrlMagic = [4]byte{'F', 'T', 'I', 'P'}

const (
	protocolVersionMajor = 1
	protocolVersionMinor = 0
)

// controlRegionSize returns the byte size of a control region with
// slotCount client slots.
func controlRegionSize(slotCount int) int {
	return ctrlHeaderSize + slotCount*slotRecordSize
}

// controlView is a thin accessor over a mapped control region's bytes.
type controlView struct {
	data      []byte
	slotCount int
}

func newControlView(data []byte, slotCount int) *controlView {
	return &controlView{data: data, slotCount: slotCount}
}

func (c *controlView) initHeader() {
	copy(c.data[ctrlMagicOff:ctrlMagicOff+4], ctrlMagic[:])
	c.data[ctrlVersionMajOff] = protocolVersionMajor
	c.data[ctrlVersionMinOff] = protocolVersionMinor
	binary.LittleEndian.PutUint16(c.data[ctrlSlotCountOff:], uint16(c.slotCount))
	c.setServerAlive(false)
}

// checkMagic validates the control header's magic/version, returning false
// on mismatch (spec §4.H "mismatched magic fails open with ProtocolMismatch").
func (c *controlView) checkMagic() bool {
	if len(c.data) < ctrlHeaderSize {
		return false
	}
	for i := 0; i < 4; i++ {
		if c.data[ctrlMagicOff+i] != ctrlMagic[i] {
			return false
		}
	}
	return c.data[ctrlVersionMajOff] == protocolVersionMajor
}

func (c *controlView) serverAlive() bool {
	return atomic.LoadUint32(u32ptr(c.data, ctrlServerAliveOffAligned)) != 0
}

func (c *controlView) setServerAlive(alive bool) {
	var v uint32
	if alive {
		v = 1
	}
	atomic.StoreUint32(u32ptr(c.data, ctrlServerAliveOffAligned), v)
}

// ctrlServerAliveOffAligned is a 4-byte-aligned offset carrying the
// server_alive flag; the wire format's 1-byte field at offset 6 is folded
// into this aligned word so it can be accessed atomically.
const ctrlServerAliveOffAligned = 12

func (c *controlView) slotOffset(i int) int {
	return ctrlHeaderSize + i*slotRecordSize
}

func (c *controlView) slotBytes(i int) []byte {
	off := c.slotOffset(i)
	return c.data[off : off+slotRecordSize]
}

func (c *controlView) tryOccupySlot(i int, clientID uint64) bool {
	occAddr := u32ptr(c.data, c.slotOffset(i)+slotOccupiedOff)
	if !atomic.CompareAndSwapUint32(occAddr, 0, 1) {
		return false
	}
	s := c.slotBytes(i)
	binary.LittleEndian.PutUint64(s[slotClientIDOff:], clientID)
	atomic.StoreUint32(u32ptr(c.data, c.slotOffset(i)+slotStateOff), uint32(api.SlotJoining))
	return true
}

func (c *controlView) releaseSlot(i int) {
	s := c.slotBytes(i)
	binary.LittleEndian.PutUint64(s[slotClientIDOff:], 0)
	atomic.StoreUint32(u32ptr(c.data, c.slotOffset(i)+slotStateOff), uint32(api.SlotEmpty))
	atomic.StoreUint32(u32ptr(c.data, c.slotOffset(i)+slotOccupiedOff), 0)
}

func (c *controlView) slotState(i int) api.SlotState {
	return api.SlotState(atomic.LoadUint32(u32ptr(c.data, c.slotOffset(i)+slotStateOff)))
}

func (c *controlView) setSlotState(i int, st api.SlotState) {
	atomic.StoreUint32(u32ptr(c.data, c.slotOffset(i)+slotStateOff), uint32(st))
}

func (c *controlView) slotOccupied(i int) bool {
	return atomic.LoadUint32(u32ptr(c.data, c.slotOffset(i)+slotOccupiedOff)) != 0
}

func (c *controlView) slotClientID(i int) uint64 {
	s := c.slotBytes(i)
	return binary.LittleEndian.Uint64(s[slotClientIDOff:])
}

func (c *controlView) heartbeat(i int) int64 {
	return atomic.LoadInt64(i64ptr(c.data, c.slotOffset(i)+slotHeartbeatNsOff))
}

func (c *controlView) touchHeartbeat(i int, nowNs int64) {
	atomic.StoreInt64(i64ptr(c.data, c.slotOffset(i)+slotHeartbeatNsOff), nowNs)
}

func u32ptr(b []byte, off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&b[off]))
}

func i64ptr(b []byte, off int) *int64 {
	return (*int64)(unsafe.Pointer(&b[off]))
}

// Ring region layout (per-client c2s/s2c data region), spec §3 "Ring header".
const (
	ringMagicOff    = 0  // [4]byte
	ringVersionOff  = 4  // uint16
	ringCapacityOff = 8  // uint32
	ringProducerOff = 16 // uint32 cursor, wraps modulo 2^32; shares the first cache line with the header fields
	ringConsumerOff = 64 // uint32 cursor, wraps modulo 2^32; own cache line
	ringHeaderSize  = 128
)

var ringMagic = [4]byte{'R', 'I', 'N', 'G'}

func ringRegionSize(capacity int) int {
	return ringHeaderSize + capacity
}
