//go:build linux

// File: transport/udp/sockopt_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package udp

import (
	"net"

	"golang.org/x/sys/unix"
)

// disableMulticastLoopback clears IP_MULTICAST_LOOP on conn's underlying
// file descriptor so the sender does not also receive its own datagrams.
func disableMulticastLoopback(conn *net.UDPConn) error {
	rc, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = rc.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptByte(int(fd), unix.IPPROTO_IP, unix.IP_MULTICAST_LOOP, 0)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// enableBroadcast sets SO_BROADCAST so the socket may send to broadcast
// destination addresses.
func enableBroadcast(conn *net.UDPConn) error {
	rc, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = rc.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
