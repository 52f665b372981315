// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

/*
Package fault holds the vocabulary shared by every layer that deals with task
faults: the invocation envelope a fault travels in, the identity of the thread
(looper goroutine) it happened on, and the process-wide routing slot that hands
captured faults to a single registered handler.

# Faults

A fault is either a panic raised inside a task body or a non-nil error the task
returns. Capture converts both into an *InvocationError:

	err := fault.Capture(func() error {
	    return task.Run(ctx)
	})
	// err is nil, or an *InvocationError wrapping the cause

The envelope records the raw recovered value and the goroutine stack at the
point of recovery. Underlying strips the envelope when a cause is present; a
panic with a non-error value (panic("boom")) has no cause, so the envelope
itself is what handlers receive.

# Routing

A Router is a single mutable handler slot. The last Set wins, and the slot is
read at the moment each fault is routed rather than latched when a loop is
installed:

	router := fault.NewRouter()
	router.Set(fault.HandlerFunc(func(ctx context.Context, th fault.Thread, err error) {
	    log.Printf("crashed in %s: %v\n%s", th, err, fault.StackFromContext(ctx))
	}))

With no handler registered, routed faults are dropped. DefaultRouter returns a
process-wide Router intended for the outermost composition root only; library
code takes a *Router explicitly.
*/
package fault
