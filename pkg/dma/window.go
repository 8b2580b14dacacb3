package dma

import (
	"github.com/marmos91/pldmfs/internal/logger"
)

// window owns one mapping of the device buffer for the lifetime of an
// Engine call.
type window struct {
	dev         Device
	mem         []byte
	interrupted bool
}

// fail records err on the window and returns it unchanged.
func (w *window) fail(err error) error {
	if KindOf(err) == KindInterrupted {
		w.interrupted = true
	}
	return err
}

// release unmaps the window on every exit path but one: if any syscall in
// the call returned EINTR the hardware may still be using the buffer, so the
// mapping is left in place and only logged.
func (w *window) release() {
	if w.interrupted {
		logger.Warn("DMA window left mapped after interrupted transfer: size=%d", len(w.mem))
		return
	}
	if err := w.dev.Unmap(w.mem); err != nil {
		logger.Error("DMA munmap failed: size=%d error=%v", len(w.mem), err)
	}
}
