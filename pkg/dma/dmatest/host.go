// Package dmatest simulates the XDMA bridge device and a slab of host
// physical memory so DMA-backed code can be tested without hardware.
package dmatest

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/marmos91/pldmfs/pkg/dma"
)

// Host is simulated host memory starting at Base. Devices opened through
// Opener copy between their window and this memory on Trigger.
type Host struct {
	Base uint64

	mu     sync.Mutex
	memory []byte

	openErr    error
	mapErr     error
	triggerErr error
	failAt     int

	opens    int
	closes   int
	unmaps   int
	maps     []mapping
	triggers []dma.Descriptor
}

type mapping struct {
	size int
	dir  dma.Direction
}

// NewHost returns size bytes of zeroed host memory at base.
func NewHost(base uint64, size int) *Host {
	return &Host{Base: base, memory: make([]byte, size)}
}

// Opener returns a dma.Opener bound to h.
func (h *Host) Opener() dma.Opener {
	return func(path string) (dma.Device, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.openErr != nil {
			return nil, h.openErr
		}
		h.opens++
		return &device{host: h}, nil
	}
}

// FailOpen makes every subsequent open fail with err.
func (h *Host) FailOpen(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.openErr = err
}

// FailMap makes every subsequent mmap fail with err.
func (h *Host) FailMap(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mapErr = err
}

// FailTrigger makes the nth trigger (1-based, counted from now on) fail with
// err. n <= 0 fails every trigger.
func (h *Host) FailTrigger(err error, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.triggerErr = err
	if n > 0 {
		h.failAt = len(h.triggers) + n
	} else {
		h.failAt = 0
	}
}

// Read returns a copy of n bytes of host memory at addr.
func (h *Host) Read(addr uint64, n int) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	start := int(addr - h.Base)
	out := make([]byte, n)
	copy(out, h.memory[start:start+n])
	return out
}

// Write stores data in host memory at addr.
func (h *Host) Write(addr uint64, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	copy(h.memory[int(addr-h.Base):], data)
}

// Opens counts device opens.
func (h *Host) Opens() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opens
}

// Closes counts device closes.
func (h *Host) Closes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closes
}

// Unmaps counts released windows.
func (h *Host) Unmaps() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unmaps
}

// MapSizes returns the window size of every successful mmap, in order.
func (h *Host) MapSizes() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]int, len(h.maps))
	for i, m := range h.maps {
		out[i] = m.size
	}
	return out
}

// Triggers returns every descriptor written to a device, failed ones
// included.
func (h *Host) Triggers() []dma.Descriptor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]dma.Descriptor(nil), h.triggers...)
}

type device struct {
	host   *Host
	window []byte
	dir    dma.Direction
	closed bool
}

func (d *device) Map(size int, dir dma.Direction) ([]byte, error) {
	h := d.host
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mapErr != nil {
		return nil, h.mapErr
	}
	if size <= 0 {
		return nil, unix.EINVAL
	}
	d.window = make([]byte, size)
	// Device memory is not zeroed; make stale bytes visible to tests.
	for i := range d.window {
		d.window[i] = 0xA5
	}
	d.dir = dir
	h.maps = append(h.maps, mapping{size: size, dir: dir})
	return d.window, nil
}

func (d *device) Unmap(mem []byte) error {
	h := d.host
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unmaps++
	return nil
}

func (d *device) Trigger(desc dma.Descriptor) error {
	h := d.host
	h.mu.Lock()
	defer h.mu.Unlock()

	h.triggers = append(h.triggers, desc)
	if h.triggerErr != nil && (h.failAt == 0 || h.failAt == len(h.triggers)) {
		return h.triggerErr
	}

	if desc.HostAddress < h.Base || desc.HostAddress+uint64(desc.Length) > h.Base+uint64(len(h.memory)) {
		return unix.EFAULT
	}
	if int(desc.Length) > len(d.window) {
		return fmt.Errorf("descriptor length %d exceeds window %d: %w", desc.Length, len(d.window), unix.EINVAL)
	}

	start := int(desc.HostAddress - h.Base)
	if desc.Upstream == 1 {
		copy(h.memory[start:start+int(desc.Length)], d.window[:desc.Length])
	} else {
		copy(d.window[:desc.Length], h.memory[start:start+int(desc.Length)])
	}
	return nil
}

func (d *device) Close() error {
	h := d.host
	h.mu.Lock()
	defer h.mu.Unlock()
	if d.closed {
		return unix.EBADF
	}
	d.closed = true
	h.closes++
	return nil
}
