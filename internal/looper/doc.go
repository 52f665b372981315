// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

/*
Package looper provides a single-goroutine sequential task loop.

A Looper owns a time-ordered Queue. Producers on any goroutine post tasks;
the goroutine running Loop dequeues them one at a time and dispatches them.
Tasks may be posted with a delay, at the front of the queue, and removed by
tag before they run.

# Native Semantics

Loop recovers nothing on behalf of the application. The first task that
panics or returns an error ends Loop with a *fault.InvocationError and the
loop is dead: nothing posted afterwards runs. Package safeloop installs a
supervisor on top of a Looper to change that.

# Usage

	l := looper.New("main")
	l.PostFunc("hello", func(ctx context.Context) error {
	    logging.Ctx(ctx).Info().Msg("hello from the loop")
	    return nil
	})
	go func() { _ = l.Loop(ctx) }()

Tasks can find the looper they run on through TargetFromContext.
*/
package looper
