// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package looper

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrQuit is returned by Next once the queue has been quit.
var ErrQuit = errors.New("looper: queue has quit")

// Task is a unit of work owned by a Queue.
type Task struct {
	// Tag identifies the task for RemoveByTag and marker checks. Comparison
	// is by interface equality, so pointer tags compare by identity.
	Tag any

	// Name is used in logs only.
	Name string

	// Run is the task body. A nil Run is a no-op.
	Run func(ctx context.Context) error

	when  time.Time
	seq   int64
	index int
}

// NewTask creates a task with the given tag and body.
func NewTask(tag any, run func(ctx context.Context) error) *Task {
	return &Task{Tag: tag, Run: run}
}

// NamedTask creates an untagged task with a name for logging.
func NamedTask(name string, run func(ctx context.Context) error) *Task {
	return &Task{Name: name, Run: run}
}

// String implements fmt.Stringer.
func (t *Task) String() string {
	if t.Name != "" {
		return t.Name
	}
	if t.Tag != nil {
		return fmt.Sprintf("task(%v)", t.Tag)
	}
	return "task"
}

// release clears the task after dispatch so it cannot run twice.
func (t *Task) release() {
	t.Run = nil
	t.Tag = nil
}

// taskHeap orders tasks by due time, then by enqueue sequence.
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if !h[i].when.Equal(h[j].when) {
		return h[i].when.Before(h[j].when)
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*Task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Queue is a blocking, time-ordered task queue for a single consumer.
//
// Tasks due at the same instant are delivered in enqueue order. Tasks posted
// at the front are delivered before everything else, most recent first.
// Producers may enqueue from any goroutine.
type Queue struct {
	mu       sync.Mutex
	tasks    taskHeap
	seq      int64
	frontSeq int64
	quit     bool
	wake     chan struct{}
	now      func() time.Time
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
		now:  time.Now,
	}
}

// Enqueue appends t, due immediately.
func (q *Queue) Enqueue(t *Task) {
	q.EnqueueDelayed(t, 0)
}

// EnqueueDelayed inserts t, due after delay. A non-positive delay is due now.
func (q *Queue) EnqueueDelayed(t *Task, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	q.mu.Lock()
	q.seq++
	t.when = q.now().Add(delay)
	t.seq = q.seq
	heap.Push(&q.tasks, t)
	q.mu.Unlock()
	q.signal()
}

// EnqueueAtFront inserts t ahead of every pending task.
func (q *Queue) EnqueueAtFront(t *Task) {
	q.mu.Lock()
	q.frontSeq--
	t.when = time.Time{}
	t.seq = q.frontSeq
	heap.Push(&q.tasks, t)
	q.mu.Unlock()
	q.signal()
}

// RemoveByTag removes every pending task whose Tag equals tag and reports how
// many were removed. Removing a tag that matches nothing is a no-op.
func (q *Queue) RemoveByTag(tag any) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.tasks[:0]
	removed := 0
	for _, t := range q.tasks {
		if t.Tag == tag {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(q.tasks); i++ {
		q.tasks[i] = nil
	}
	q.tasks = kept
	for i, t := range q.tasks {
		t.index = i
	}
	heap.Init(&q.tasks)
	return removed
}

// Len returns the number of pending tasks, including ones not yet due.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Quit wakes the consumer and makes every later Next return ErrQuit.
// Pending tasks are discarded.
func (q *Queue) Quit() {
	q.mu.Lock()
	q.quit = true
	q.tasks = nil
	q.mu.Unlock()
	q.signal()
}

// Next blocks until a task is due and returns it. It returns ErrQuit after
// Quit, or ctx.Err() when ctx is done first.
func (q *Queue) Next(ctx context.Context) (*Task, error) {
	for {
		q.mu.Lock()
		if q.quit {
			q.mu.Unlock()
			return nil, ErrQuit
		}
		wait := time.Duration(-1)
		if len(q.tasks) > 0 {
			head := q.tasks[0]
			now := q.now()
			if !head.when.After(now) {
				heap.Pop(&q.tasks)
				q.mu.Unlock()
				return head, nil
			}
			wait = head.when.Sub(now)
		}
		q.mu.Unlock()

		if err := q.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// sleep waits for a signal, the wait duration, or ctx. A negative wait
// means no deadline.
func (q *Queue) sleep(ctx context.Context, wait time.Duration) error {
	if wait < 0 {
		select {
		case <-q.wake:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-q.wake:
		return nil
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// signal wakes a blocked Next without blocking the producer.
func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
