// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants.

package api

import "time"

// SlotState enumerates the lifecycle of one IPC/in-proc client control slot.
type SlotState int32

const (
	SlotEmpty SlotState = iota
	SlotJoining
	SlotLive
	SlotLeaving
)

func (s SlotState) String() string {
	switch s {
	case SlotJoining:
		return "joining"
	case SlotLive:
		return "live"
	case SlotLeaving:
		return "leaving"
	default:
		return "empty"
	}
}

// Metrics provides a standard layout for Endpoint/Acceptor health reporting.
type Metrics struct {
	NumPeers        int
	NumMessages     int64
	InboundTraffic  uint64 // bytes received
	OutboundTraffic uint64 // bytes sent
	StartedAt       time.Time
}
