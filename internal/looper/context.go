// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package looper

import (
	"context"
	"time"

	"github.com/tomtom215/safeloop/internal/fault"
)

// Target is the view of a looper that code running on it may use to post
// more work to its own thread.
type Target interface {
	Thread() fault.Thread
	Post(t *Task)
	PostAtFront(t *Task)
	PostDelayed(t *Task, delay time.Duration)
	RemoveByTag(tag any) int
}

type targetKey struct{}

// WithTarget returns a context bound to target. Dispatch does this for
// every task it runs.
func WithTarget(ctx context.Context, target Target) context.Context {
	return context.WithValue(ctx, targetKey{}, target)
}

// TargetFromContext returns the looper bound to ctx, if any.
func TargetFromContext(ctx context.Context) (Target, bool) {
	t, ok := ctx.Value(targetKey{}).(Target)
	return t, ok && t != nil
}
