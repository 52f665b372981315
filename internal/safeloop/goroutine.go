// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package safeloop

import (
	"context"

	"github.com/google/uuid"

	"github.com/tomtom215/safeloop/internal/fault"
	"github.com/tomtom215/safeloop/internal/logging"
)

// Go runs fn on a new goroutine that is not a looper. A panic or returned
// error is routed to router under a thread identity named name, so
// background workers report through the same handler as supervised loops.
//
// The returned channel receives the fault (nil on success) and is closed.
func Go(ctx context.Context, router *fault.Router, name string, fn func(ctx context.Context) error) <-chan error {
	thread := fault.Thread{ID: uuid.New().String(), Name: name}
	done := make(chan error, 1)

	go func() {
		defer close(done)
		gctx := logging.ContextWithThread(ctx, thread.ID, thread.Name)

		err := fault.Capture(func() error {
			return fn(gctx)
		})
		if err != nil {
			router.Route(gctx, thread, err)
		}
		done <- err
	}()
	return done
}
