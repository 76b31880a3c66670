// File: pool/doc.go
// Package pool
// Author: momentics <momentics@gmail.com>
//
// Pooled byte-slice buffer manager (spec §4.B): a single contiguous backing
// array carved into SliceSize x N fixed windows, handed out one per in-flight
// async I/O operation. All public methods are thread-safe.
package pool
