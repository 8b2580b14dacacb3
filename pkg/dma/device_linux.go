//go:build linux

package dma

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type xdmaDevice struct {
	fd int
}

// OpenDevice opens the bridge device read-write.
func OpenDevice(path string) (Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return &xdmaDevice{fd: fd}, nil
}

func (d *xdmaDevice) Map(size int, dir Direction) ([]byte, error) {
	prot := unix.PROT_READ
	if dir == Upload {
		prot = unix.PROT_WRITE
	}
	return unix.Mmap(d.fd, 0, size, prot, unix.MAP_SHARED)
}

func (d *xdmaDevice) Unmap(mem []byte) error {
	return unix.Munmap(mem)
}

func (d *xdmaDevice) Trigger(desc Descriptor) error {
	b, err := desc.MarshalBinary()
	if err != nil {
		return err
	}
	n, err := unix.Write(d.fd, b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return fmt.Errorf("%w: wrote %d of %d descriptor bytes", ErrShortTransfer, n, len(b))
	}
	return nil
}

func (d *xdmaDevice) Close() error {
	return unix.Close(d.fd)
}
