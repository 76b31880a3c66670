//go:build windows

// File: transport/ipc/mmap_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows mapping backend: a real on-disk file backs the mapping (same file
// layout as the Linux build) but the view is obtained via CreateFileMapping/
// MapViewOfFile instead of unix.Mmap, grounded on the teacher's
// core/buffer/bufferpool_windows.go golang.org/x/sys/windows usage.
package ipc

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

type mapping struct {
	file    *os.File
	handle  windows.Handle
	addr    uintptr
	data    []byte
}

// regionExists reports whether path already names a region, so callers can
// distinguish "no server has ever started" from "a bad/incompatible region
// exists" before mapRegion's O_CREATE silently produces a fresh zeroed file.
func regionExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func mapRegion(path string, size int) (*mapping, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, err
	}

	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READWRITE, 0, uint32(size), nil)
	if err != nil {
		f.Close()
		return nil, err
	}

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(h)
		f.Close()
		return nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &mapping{file: f, handle: h, addr: addr, data: data}, nil
}

func (m *mapping) close() error {
	_ = windows.UnmapViewOfFile(m.addr)
	_ = windows.CloseHandle(m.handle)
	return m.file.Close()
}

func unlinkRegion(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
