// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package report

import "sync"

// Latest holds the most recent fault report for display.
type Latest struct {
	mu     sync.RWMutex
	report *Report
	count  int64
}

// Set replaces the held report.
func (l *Latest) Set(r *Report) {
	l.mu.Lock()
	l.report = r
	l.count++
	l.mu.Unlock()
}

// Report returns the held report, or nil.
func (l *Latest) Report() *Report {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.report
}

// Text returns the formatted crash text of the held report, or "".
func (l *Latest) Text() string {
	r := l.Report()
	if r == nil {
		return ""
	}
	return r.Format()
}

// Count returns how many reports have been set.
func (l *Latest) Count() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}
