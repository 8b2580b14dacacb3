//go:build !linux

package dma

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// OpenDevice always fails: the XDMA bridge only exists on Linux BMCs.
func OpenDevice(path string) (Device, error) {
	return nil, fmt.Errorf("open %s on %s: %w", path, runtime.GOOS, unix.ENODEV)
}
