// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package safeloop

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tomtom215/safeloop/internal/fault"
	"github.com/tomtom215/safeloop/internal/logging"
	"github.com/tomtom215/safeloop/internal/looper"
	"github.com/tomtom215/safeloop/internal/metrics"
)

// State is the lifecycle position of one supervisor turn.
type State int32

const (
	// StateIdle: created, not yet run.
	StateIdle State = iota
	// StateDraining: owns the loop and dispatches tasks itself.
	StateDraining
	// StateExiting: saw the exit marker or lost its queue; guard released.
	StateExiting
	// StateFaulted: a task faulted; the fault was routed and a replacement
	// supervisor was queued.
	StateFaulted
	// StateSkipped: another supervisor already drains this thread.
	StateSkipped
	// StateDeclined: the host cannot be drained.
	StateDeclined
	// StateAbandoned: the goroutine ended mid-drain (runtime.Goexit); guard
	// released.
	StateAbandoned
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StateExiting:
		return "exiting"
	case StateFaulted:
		return "faulted"
	case StateSkipped:
		return "skipped"
	case StateDeclined:
		return "declined"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Supervisor is one turn of the fault-isolated loop. It runs as a task on
// the loop it supervises and drains the queue until told to exit or until a
// task faults, in which case it hands the fault to the router and queues a
// fresh Supervisor behind itself. A Supervisor is never reused.
type Supervisor struct {
	inst  *Installer
	state atomic.Int32
}

func newSupervisor(inst *Installer) *Supervisor {
	return &Supervisor{inst: inst}
}

// State returns the current state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(st State) {
	s.state.Store(int32(st))
}

// Task wraps the supervisor in a queue task.
func (s *Supervisor) Task() *looper.Task {
	return &looper.Task{Name: "safeloop.supervisor", Run: s.Run}
}

// Run executes the supervisor on the looper bound to ctx. It always
// returns nil; faults of the tasks it dispatches never escape it.
func (s *Supervisor) Run(ctx context.Context) error {
	target, ok := looper.TargetFromContext(ctx)
	if !ok {
		s.decline(ctx, "", "no_looper")
		return nil
	}
	thread := target.Thread()
	drainer, ok := target.(Drainer)
	if !ok {
		s.decline(ctx, thread.Name, "not_drainable")
		return nil
	}

	if !s.inst.guard.Acquire(thread.ID) {
		s.setState(StateSkipped)
		s.inst.stats.skips.Add(1)
		metrics.RecordDecline(thread.Name, "already_active")
		logging.Ctx(ctx).Debug().Msg("Supervisor already draining, skipping")
		return nil
	}

	s.setState(StateDraining)
	s.inst.stats.drains.Add(1)
	metrics.RecordDrainStart(thread.Name)
	logging.Ctx(ctx).Debug().Msg("Supervisor draining")

	// Run leaves through exit or rearm, or not at all when a task ends the
	// goroutine with runtime.Goexit. The guard must not outlive the goroutine.
	settled := false
	defer func() {
		if !settled {
			s.abandon(ctx, thread)
		}
	}()

	for {
		task, err := drainer.Next(ctx)
		if err != nil || isExit(task) {
			settled = true
			s.exit(ctx, thread, err)
			return nil
		}

		start := time.Now()
		ferr := fault.Capture(func() error {
			return drainer.Dispatch(ctx, task)
		})
		metrics.RecordDispatch(thread.Name, time.Since(start), ferr)
		if ferr == nil {
			continue
		}

		settled = true
		s.rearm(ctx, target, thread, task, ferr)
		return nil
	}
}

func (s *Supervisor) exit(ctx context.Context, thread fault.Thread, cause error) {
	s.setState(StateExiting)
	s.inst.guard.Release(thread.ID)
	s.inst.stats.exits.Add(1)
	metrics.RecordDrainEnd(thread.Name, false)

	ev := logging.Ctx(ctx).Debug()
	if cause != nil {
		ev = ev.Err(cause)
	}
	ev.Msg("Supervisor exiting")
}

// rearm routes the fault, releases the guard and queues the next
// supervisor turn at the front of the queue.
func (s *Supervisor) rearm(ctx context.Context, target looper.Target, thread fault.Thread, task *looper.Task, ferr error) {
	s.setState(StateFaulted)
	s.inst.stats.faults.Add(1)
	s.inst.router.Route(ctx, thread, ferr)

	s.inst.guard.Release(thread.ID)
	metrics.RecordDrainEnd(thread.Name, true)
	s.inst.stats.rearms.Add(1)

	logging.Ctx(ctx).Debug().
		Str("task", task.String()).
		Msg("Supervisor re-arming after fault")

	target.PostAtFront(newSupervisor(s.inst).Task())
}

// abandon releases the guard of a supervisor whose goroutine is unwinding
// without returning, so a later Install can drain the thread again.
func (s *Supervisor) abandon(ctx context.Context, thread fault.Thread) {
	s.setState(StateAbandoned)
	s.inst.guard.Release(thread.ID)
	s.inst.stats.abandons.Add(1)
	metrics.RecordDrainEnd(thread.Name, false)
	logging.Ctx(ctx).Warn().Msg("Supervisor goroutine exited without returning, guard released")
}

func (s *Supervisor) decline(ctx context.Context, loop, reason string) {
	s.setState(StateDeclined)
	s.inst.stats.declines.Add(1)
	metrics.RecordDecline(loop, reason)
	logging.Ctx(ctx).Debug().Str("reason", reason).Msg("Supervisor declined")
}
