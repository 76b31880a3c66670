// File: transport/ipc/paths.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ipc

import (
	"fmt"
	"os"
	"path/filepath"
)

func resolveDir(dir string) string {
	if dir == "" {
		return os.TempDir()
	}
	return dir
}

func controlPath(dir, name string) string {
	return filepath.Join(resolveDir(dir), fmt.Sprintf("xtransport-%s.ctrl", name))
}

func ringPath(dir, name string, slot int, suffix string) string {
	return filepath.Join(resolveDir(dir), fmt.Sprintf("xtransport-%s.%d.%s", name, slot, suffix))
}
