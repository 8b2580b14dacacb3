package filetype

import (
	"context"
	"fmt"

	"github.com/marmos91/pldmfs/pkg/dma"
	"github.com/marmos91/pldmfs/pkg/store/journal"
)

// base carries the identity of a handler and the helpers every family shares.
type base struct {
	deps     *Deps
	fileType FileType
	handle   uint32
}

func newBase(deps *Deps, t FileType, handle uint32) base {
	return base{deps: deps, fileType: t, handle: handle}
}

func (b base) String() string {
	return fmt.Sprintf("%s[0x%08X]", b.fileType, b.handle)
}

// clamp validates offset against size and shortens length so the range ends
// at size.
func clamp(offset, length uint32, size int64) (uint32, error) {
	if int64(offset) >= size {
		return 0, fmt.Errorf("%w: offset=%d size=%d", ErrOutOfRange, offset, size)
	}
	if int64(offset)+int64(length) > size {
		length = uint32(size - int64(offset))
	}
	return length, nil
}

// padded extends data with zeros to a multiple of the DMA granularity.
func padded(data []byte) []byte {
	rem := len(data) % dma.MinSize
	if rem == 0 {
		return data
	}
	out := make([]byte, len(data)+dma.MinSize-rem)
	copy(out, data)
	return out
}

// upload moves data into host memory at address.
func (b base) upload(data []byte, address uint64) error {
	return b.deps.Chunker.TransferBuffer(padded(data), address, dma.Upload)
}

// download reads length bytes of host memory at address.
func (b base) download(length uint32, address uint64) ([]byte, error) {
	buf := make([]byte, length)
	if err := b.deps.Chunker.TransferBuffer(buf, address, dma.Download); err != nil {
		return nil, err
	}
	return buf, nil
}

func (b base) record(ctx context.Context, event journal.Event, length uint64) error {
	_, err := b.deps.Journal.Append(ctx, journal.Record{
		FileType: uint16(b.fileType),
		Handle:   b.handle,
		Length:   length,
		Event:    event,
	})
	if err != nil {
		return fmt.Errorf("journal %s %s: %w", event, b, err)
	}
	return nil
}

func (b base) acknowledge(ctx context.Context, status uint8) error {
	if _, err := b.deps.Journal.Acknowledge(ctx, uint16(b.fileType), b.handle, status); err != nil {
		return fmt.Errorf("journal ack %s: %w", b, err)
	}
	return nil
}

// kickWatchdog resets the host watchdog if it is running.
func (b base) kickWatchdog() {
	if b.deps.Platform.WatchdogRunning() {
		b.deps.Platform.ResetWatchdog()
	}
}
