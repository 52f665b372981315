// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package looper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/safeloop/internal/fault"
	"github.com/tomtom215/safeloop/internal/logging"
	"github.com/tomtom215/safeloop/internal/metrics"
)

// Looper is a single-consumer task loop bound to one goroutine at a time.
//
// Producers post tasks from any goroutine. The goroutine that calls Loop (or
// Turn) is the loop's thread: every task runs there, one at a time, in queue
// order. Without supervision the first task fault ends Loop.
type Looper struct {
	thread fault.Thread
	queue  *Queue
}

// New creates a looper with a fresh thread identity.
func New(name string) *Looper {
	return &Looper{
		thread: fault.Thread{ID: uuid.New().String(), Name: name},
		queue:  NewQueue(),
	}
}

// Thread returns the identity of the loop's thread.
func (l *Looper) Thread() fault.Thread {
	return l.thread
}

// Name returns the loop name.
func (l *Looper) Name() string {
	return l.thread.Name
}

// Post enqueues t behind every task already due.
func (l *Looper) Post(t *Task) {
	l.queue.Enqueue(t)
	metrics.SetQueueDepth(l.thread.Name, l.queue.Len())
}

// PostDelayed enqueues t, due after delay.
func (l *Looper) PostDelayed(t *Task, delay time.Duration) {
	l.queue.EnqueueDelayed(t, delay)
	metrics.SetQueueDepth(l.thread.Name, l.queue.Len())
}

// PostAtFront enqueues t ahead of every pending task.
func (l *Looper) PostAtFront(t *Task) {
	l.queue.EnqueueAtFront(t)
	metrics.SetQueueDepth(l.thread.Name, l.queue.Len())
}

// PostFunc is shorthand for posting an untagged task.
func (l *Looper) PostFunc(name string, run func(ctx context.Context) error) {
	l.Post(NamedTask(name, run))
}

// RemoveByTag drops every pending task tagged with tag.
func (l *Looper) RemoveByTag(tag any) int {
	n := l.queue.RemoveByTag(tag)
	if n > 0 {
		metrics.SetQueueDepth(l.thread.Name, l.queue.Len())
	}
	return n
}

// Pending returns the number of tasks waiting in the queue.
func (l *Looper) Pending() int {
	return l.queue.Len()
}

// Next blocks until the next task is due and removes it from the queue.
func (l *Looper) Next(ctx context.Context) (*Task, error) {
	t, err := l.queue.Next(ctx)
	if err != nil {
		return nil, err
	}
	metrics.SetQueueDepth(l.thread.Name, l.queue.Len())
	return t, nil
}

// Dispatch runs t on the calling goroutine with the looper bound to ctx.
// Panics are not recovered here. On a clean return the task is released.
func (l *Looper) Dispatch(ctx context.Context, t *Task) error {
	if t.Run == nil {
		t.release()
		return nil
	}
	ctx = l.bind(ctx)
	if err := t.Run(ctx); err != nil {
		return err
	}
	t.release()
	return nil
}

// Turn runs one native iteration: dequeue the next task and dispatch it.
//
// A task fault is returned as a *fault.InvocationError wrapped with the
// thread identity; once Turn has faulted the caller must treat the loop as
// dead. Turn returns ErrQuit after Quit and ctx.Err() on cancellation.
func (l *Looper) Turn(ctx context.Context) error {
	t, err := l.Next(ctx)
	if err != nil {
		return err
	}
	if ferr := fault.Capture(func() error {
		return l.Dispatch(ctx, t)
	}); ferr != nil {
		metrics.RecordLoopDeath(l.thread.Name)
		return fmt.Errorf("looper %s terminated: %w", l.thread, ferr)
	}
	return nil
}

// Loop runs Turn until the queue quits, ctx is cancelled, or a task faults.
// It returns nil after Quit, ctx.Err() on cancellation and the fault
// otherwise.
func (l *Looper) Loop(ctx context.Context) error {
	logging.Debug().Str("loop", l.thread.Name).Str("thread_id", l.thread.ID).Msg("Looper started")
	for {
		if err := l.Turn(ctx); err != nil {
			if errors.Is(err, ErrQuit) {
				logging.Debug().Str("loop", l.thread.Name).Msg("Looper quit")
				return nil
			}
			return err
		}
	}
}

// Quit stops the loop. Pending tasks are discarded and any blocked Next
// returns ErrQuit.
func (l *Looper) Quit() {
	l.queue.Quit()
	metrics.SetQueueDepth(l.thread.Name, 0)
}

// bind attaches the looper and its thread fields to ctx.
func (l *Looper) bind(ctx context.Context) context.Context {
	if cur, ok := TargetFromContext(ctx); ok && cur == Target(l) {
		return ctx
	}
	ctx = WithTarget(ctx, l)
	return logging.ContextWithThread(ctx, l.thread.ID, l.thread.Name)
}
