package dma

import (
	"encoding/binary"
	"fmt"

	"github.com/go-restruct/restruct"
)

// DefaultDevicePath is the ASPEED XDMA bridge character device.
const DefaultDevicePath = "/dev/aspeed-xdma"

// Direction of a transfer relative to the controller.
type Direction uint8

const (
	// Download moves bytes from host memory into local storage or a buffer.
	Download Direction = iota
	// Upload moves bytes from local storage or a buffer into host memory.
	Upload
)

func (d Direction) String() string {
	if d == Upload {
		return "upload"
	}
	return "download"
}

// Descriptor is the control record written to the bridge device to start one
// hardware transfer. It is packed in native byte order, as the driver reads
// it straight into its own struct.
type Descriptor struct {
	HostAddress uint64 `struct:"uint64"`
	Length      uint32 `struct:"uint32"`
	Upstream    uint32 `struct:"uint32"`
}

// DescriptorSize is the packed size of Descriptor.
const DescriptorSize = 16

func newDescriptor(address uint64, length uint32, dir Direction) Descriptor {
	d := Descriptor{HostAddress: address, Length: length}
	if dir == Upload {
		d.Upstream = 1
	}
	return d
}

// MarshalBinary encodes the 16-byte trigger record in native byte order.
func (d Descriptor) MarshalBinary() ([]byte, error) {
	b, err := restruct.Pack(binary.NativeEndian, &d)
	if err != nil {
		return nil, fmt.Errorf("pack dma descriptor: %w", err)
	}
	return b, nil
}

// Device is one open handle on the bridge device. An Engine call opens a
// Device, maps exactly one window, triggers once and closes it.
type Device interface {
	// Map maps size bytes of the device buffer, read-only for downloads and
	// writable for uploads.
	Map(size int, dir Direction) ([]byte, error)

	// Unmap releases a window returned by Map.
	Unmap(mem []byte) error

	// Trigger starts the hardware transfer described by desc and blocks
	// until the driver accepts it.
	Trigger(desc Descriptor) error

	Close() error
}

// Opener opens the device at path.
type Opener func(path string) (Device, error)
