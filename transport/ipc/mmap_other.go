//go:build !linux && !windows

// File: transport/ipc/mmap_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fallback for every remaining GOOS (Linux has mmap_linux.go, Windows has
// mmap_windows.go): golang.org/x/sys does not expose a single portable Mmap
// across every GOOS this module might target, and the spec's IPC transport
// only needs cross-process visibility within a single host. This
// degenerate backend keeps a process-wide registry of named byte regions so
// multiple opens of the same path within one OS process observe the same
// backing array; it does not span real separate processes on non-Linux
// hosts, which is recorded as a known limitation in DESIGN.md rather than
// silently pretended away.

package ipc

import "sync"

var (
	registryMu sync.Mutex
	registry   = map[string][]byte{}
)

type mapping struct {
	path string
	data []byte
}

// regionExists reports whether path already names a region, so callers can
// distinguish "no server has ever started" from "a bad/incompatible region
// exists" before mapRegion silently fabricates a fresh zeroed entry.
func regionExists(path string) bool {
	registryMu.Lock()
	defer registryMu.Unlock()
	_, ok := registry[path]
	return ok
}

func mapRegion(path string, size int) (*mapping, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	data, ok := registry[path]
	if !ok || len(data) < size {
		data = make([]byte, size)
		registry[path] = data
	}
	return &mapping{path: path, data: data}, nil
}

func (m *mapping) close() error { return nil }

func unlinkRegion(path string) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, path)
	return nil
}
