// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package udp implements the datagram Endpoint (spec §4.L): one Send per
// datagram, no framing, optional multicast group membership and an optional
// golang.org/x/time/rate send-rate limiter.
package udp
