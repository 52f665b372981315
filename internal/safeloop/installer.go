// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package safeloop

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/tomtom215/safeloop/internal/fault"
	"github.com/tomtom215/safeloop/internal/logging"
	"github.com/tomtom215/safeloop/internal/looper"
)

// ErrNoLooper is returned by the *Current methods when ctx is not bound to
// a looper.
var ErrNoLooper = errors.New("safeloop: no looper bound to context")

// Stats is a snapshot of supervisor activity for one Installer.
type Stats struct {
	Drains   int64 `json:"drains"`
	Skips    int64 `json:"skips"`
	Declines int64 `json:"declines"`
	Faults   int64 `json:"faults"`
	Rearms   int64 `json:"rearms"`
	Exits    int64 `json:"exits"`
	Abandons int64 `json:"abandons"`
}

type stats struct {
	drains   atomic.Int64
	skips    atomic.Int64
	declines atomic.Int64
	faults   atomic.Int64
	rearms   atomic.Int64
	exits    atomic.Int64
	abandons atomic.Int64
}

// Installer installs and removes supervisors on loopers. It owns the guard
// registry, so every looper in a process should be managed by the same
// Installer.
type Installer struct {
	router *fault.Router
	guard  *Guard
	stats  stats
}

// NewInstaller creates an Installer that routes faults through router.
// A nil router gets a private one.
func NewInstaller(router *fault.Router) *Installer {
	if router == nil {
		router = fault.NewRouter()
	}
	return &Installer{
		router: router,
		guard:  NewGuard(),
	}
}

// Router returns the fault router faults are sent to.
func (i *Installer) Router() *fault.Router {
	return i.router
}

// Install queues a supervisor on host, ahead of any pending task, and drops
// any exit marker still pending. If a supervisor is already draining host
// the queued one is consumed as a no-op.
func (i *Installer) Install(host Host) {
	removed := host.RemoveByTag(exit)
	host.PostAtFront(newSupervisor(i).Task())

	logging.Debug().
		Str("loop", host.Thread().Name).
		Int("stale_markers", removed).
		Msg("Supervisor install queued")
}

// UninstallDelay queues an exit marker on host, due after delay. Any exit
// marker already pending is replaced. A draining supervisor finishes its
// in-flight task first and stops when it reaches the marker.
func (i *Installer) UninstallDelay(host Host, delay time.Duration) {
	host.RemoveByTag(exit)
	host.PostDelayed(newExitTask(), delay)

	logging.Debug().
		Str("loop", host.Thread().Name).
		Dur("delay", delay).
		Msg("Supervisor uninstall queued")
}

// Uninstall is UninstallDelay with no delay.
func (i *Installer) Uninstall(host Host) {
	i.UninstallDelay(host, 0)
}

// IsActive reports whether a supervisor is draining host right now.
func (i *Installer) IsActive(host Host) bool {
	return i.guard.Active(host.Thread().ID)
}

// SetFaultHandler replaces the fault handler. Nil removes it; faults are then
// dropped.
func (i *Installer) SetFaultHandler(h fault.Handler) {
	i.router.Set(h)
}

// Stats returns a snapshot of supervisor activity.
func (i *Installer) Stats() Stats {
	return Stats{
		Drains:   i.stats.drains.Load(),
		Skips:    i.stats.skips.Load(),
		Declines: i.stats.declines.Load(),
		Faults:   i.stats.faults.Load(),
		Rearms:   i.stats.rearms.Load(),
		Exits:    i.stats.exits.Load(),
		Abandons: i.stats.abandons.Load(),
	}
}

// ActiveCount returns how many loopers currently have a draining supervisor.
func (i *Installer) ActiveCount() int {
	return i.guard.Len()
}

// InstallCurrent installs on the looper running the calling task.
func (i *Installer) InstallCurrent(ctx context.Context) error {
	target, ok := looper.TargetFromContext(ctx)
	if !ok {
		return ErrNoLooper
	}
	i.Install(target)
	return nil
}

// UninstallCurrent uninstalls from the looper running the calling task.
func (i *Installer) UninstallCurrent(ctx context.Context) error {
	return i.UninstallDelayCurrent(ctx, 0)
}

// UninstallDelayCurrent is UninstallDelay for the looper running the calling
// task.
func (i *Installer) UninstallDelayCurrent(ctx context.Context, delay time.Duration) error {
	target, ok := looper.TargetFromContext(ctx)
	if !ok {
		return ErrNoLooper
	}
	i.UninstallDelay(target, delay)
	return nil
}

// IsActiveCurrent reports whether the looper running the calling task is
// supervised. It is false when ctx carries no looper.
func (i *Installer) IsActiveCurrent(ctx context.Context) bool {
	target, ok := looper.TargetFromContext(ctx)
	if !ok {
		return false
	}
	return i.IsActive(target)
}
