// Package oem holds the platform-side collaborator that OEM file-type
// handlers notify about side effects (watchdog, code update, progress codes).
// Handlers call into it but never interpret its state beyond the readiness
// check.
package oem

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/pldmfs/internal/logger"
)

// ErrBMCNotReady is returned by CheckBMCState while the BMC cannot accept
// firmware updates.
var ErrBMCNotReady = errors.New("bmc not ready")

// PlatformHandler is consumed by file-type handlers.
type PlatformHandler interface {
	// WatchdogRunning reports whether the host surveillance watchdog is armed.
	WatchdogRunning() bool

	// ResetWatchdog re-arms the watchdog timer.
	ResetWatchdog()

	// CheckBMCState returns ErrBMCNotReady unless the BMC is ready.
	CheckBMCState() error

	// SetCodeUpdateInProgress marks the start or end of a firmware update
	// staged by the host.
	SetCodeUpdateInProgress(bool)

	CodeUpdateInProgress() bool

	// NotifyProgressCode forwards a host boot progress code.
	NotifyProgressCode(code []byte)
}

// Default is an in-process PlatformHandler that keeps the bookkeeping and
// logs every side effect.
type Default struct {
	watchdogArmed  atomic.Bool
	watchdogResets atomic.Uint64
	lastReset      atomic.Int64
	bmcReady       atomic.Bool
	codeUpdate     atomic.Bool

	mu           sync.Mutex
	progressCode []byte
	progressSeen uint64
}

var _ PlatformHandler = (*Default)(nil)

// NewDefault returns a handler with the BMC ready and the watchdog armed.
func NewDefault() *Default {
	d := &Default{}
	d.bmcReady.Store(true)
	d.watchdogArmed.Store(true)
	return d
}

// WatchdogRunning reports whether the host watchdog is armed.
func (d *Default) WatchdogRunning() bool {
	return d.watchdogArmed.Load()
}

// ResetWatchdog restarts the watchdog countdown and counts the reset.
func (d *Default) ResetWatchdog() {
	n := d.watchdogResets.Add(1)
	d.lastReset.Store(time.Now().UnixNano())
	logger.Debug("OEM: watchdog reset: count=%d", n)
}

// SetWatchdogArmed arms or disarms the watchdog.
func (d *Default) SetWatchdogArmed(armed bool) {
	d.watchdogArmed.Store(armed)
	logger.Info("OEM: watchdog armed=%t", armed)
}

// WatchdogResets returns how many times the watchdog was reset and when last.
func (d *Default) WatchdogResets() (uint64, time.Time) {
	last := d.lastReset.Load()
	if last == 0 {
		return d.watchdogResets.Load(), time.Time{}
	}
	return d.watchdogResets.Load(), time.Unix(0, last)
}

// CheckBMCState returns ErrBMCNotReady until the BMC is marked ready.
func (d *Default) CheckBMCState() error {
	if !d.bmcReady.Load() {
		return ErrBMCNotReady
	}
	return nil
}

// SetBMCReady changes what CheckBMCState reports.
func (d *Default) SetBMCReady(ready bool) {
	d.bmcReady.Store(ready)
}

// SetCodeUpdateInProgress records whether a firmware update is being staged.
func (d *Default) SetCodeUpdateInProgress(v bool) {
	if d.codeUpdate.Swap(v) != v {
		logger.Info("OEM: code update in progress=%t", v)
	}
}

// CodeUpdateInProgress reports the flag set by SetCodeUpdateInProgress.
func (d *Default) CodeUpdateInProgress() bool {
	return d.codeUpdate.Load()
}

// NotifyProgressCode keeps a copy of the latest progress code and logs it.
func (d *Default) NotifyProgressCode(code []byte) {
	d.mu.Lock()
	d.progressCode = append(d.progressCode[:0], code...)
	d.progressSeen++
	d.mu.Unlock()
	logger.Info("OEM: progress code: %x", code)
}

// ProgressCode returns the last progress code and how many were received.
func (d *Default) ProgressCode() ([]byte, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.progressCode...), d.progressSeen
}
