// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp implements the framed, length-prefixed TCP Endpoint (client,
// spec §4.F) and Acceptor (server, spec §4.G): full-duplex streams over
// net.Conn with the pooled async I/O operations from package ioop and the
// frame parser from package frame.
package tcp
