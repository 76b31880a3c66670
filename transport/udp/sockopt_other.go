//go:build !linux

// File: transport/udp/sockopt_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package udp

import "net"

// disableMulticastLoopback is a no-op outside Linux: the unix socket-option
// path in sockopt_linux.go is not portable, and no other GOOS-neutral
// mechanism is available through this module's dependencies.
func disableMulticastLoopback(conn *net.UDPConn) error { return nil }

// enableBroadcast is a no-op outside Linux; see sockopt_linux.go.
func enableBroadcast(conn *net.UDPConn) error { return nil }
