// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package safeloop

import (
	"context"
	"time"

	"github.com/tomtom215/safeloop/internal/fault"
	"github.com/tomtom215/safeloop/internal/looper"
)

// Host is the part of a task loop the installer needs: a thread identity
// and the ability to enqueue and remove tasks.
type Host interface {
	Thread() fault.Thread
	PostAtFront(t *looper.Task)
	PostDelayed(t *looper.Task, delay time.Duration)
	RemoveByTag(tag any) int
}

// Drainer is the capability a supervisor needs to take over a loop: a
// blocking dequeue and a synchronous dispatch on the calling goroutine.
// Hosts without it cannot be supervised and the supervisor declines.
type Drainer interface {
	Next(ctx context.Context) (*looper.Task, error)
	Dispatch(ctx context.Context, t *looper.Task) error
}

var (
	_ Host    = (*looper.Looper)(nil)
	_ Drainer = (*looper.Looper)(nil)
	_ Host    = looper.Target(nil)
)

// exitMarker tags the task that tells a draining supervisor to stop. It is
// never zero-sized so that its address is unique.
type exitMarker struct {
	_ byte
}

var exit = &exitMarker{}

// isExit reports whether t is an exit marker task.
func isExit(t *looper.Task) bool {
	return t != nil && t.Tag == any(exit)
}

func newExitTask() *looper.Task {
	return &looper.Task{Tag: exit, Name: "safeloop.exit"}
}
