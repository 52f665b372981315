// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

/*
Package safeloop keeps a looper alive across task faults.

Installing posts a Supervisor task at the front of a looper's queue. When the
looper runs it, the Supervisor takes over the loop: it dequeues and
dispatches every following task itself, inside fault.Capture. When a task
panics or returns an error the Supervisor hands the cause to the fault
router, queues a fresh Supervisor at the front of the queue and returns. The
looper runs the fresh Supervisor next, so the remaining tasks keep running
and the goroutine never dies.

# Lifecycle

	Idle -> Draining -> Exiting   (exit marker, Quit, or ctx done)
	                 -> Faulted   (fault routed, next Supervisor queued)
	Idle -> Skipped              (a Supervisor already drains this thread)
	Idle -> Declined             (ctx has no drainable looper)

A Guard registry keyed by thread ID makes Install idempotent: an extra
Supervisor that finds the guard taken returns immediately. The guard is
released on both the Exiting and the Faulted path and re-acquired by the next
Supervisor, so IsActive reads false between a fault and the re-arm.

# Uninstalling

UninstallDelay posts an exit marker task. The draining Supervisor stops when
it dequeues the marker; the in-flight task is never interrupted. A marker
reached by the plain looper is a no-op task.

# Usage

	inst := safeloop.NewInstaller(router)
	inst.SetFaultHandler(fault.HandlerFunc(func(ctx context.Context, th fault.Thread, err error) {
	    logging.Ctx(ctx).Error().Err(err).Msg("Task faulted")
	}))
	inst.Install(l)
	go l.Loop(ctx)

Package-level functions use a default Installer on fault.DefaultRouter and
are meant for the composition root.
*/
package safeloop
