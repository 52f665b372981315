// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package safeloop

import "sync"

// Guard records which looper threads have a draining supervisor.
// At most one supervisor per thread may hold it.
type Guard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewGuard creates an empty guard registry.
func NewGuard() *Guard {
	return &Guard{active: make(map[string]struct{})}
}

// Acquire marks thread as active. It returns false if it already was.
func (g *Guard) Acquire(thread string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.active[thread]; ok {
		return false
	}
	g.active[thread] = struct{}{}
	return true
}

// Release clears the mark for thread.
func (g *Guard) Release(thread string) {
	g.mu.Lock()
	delete(g.active, thread)
	g.mu.Unlock()
}

// Active reports whether thread is marked.
func (g *Guard) Active(thread string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[thread]
	return ok
}

// Len returns the number of active threads.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}
