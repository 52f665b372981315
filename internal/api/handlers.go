// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package api

import (
	"context"
	"time"

	"github.com/tomtom215/safeloop/internal/report"
	"github.com/tomtom215/safeloop/internal/safeloop"
)

// Loop is a looper the API can inspect and control.
//
// Satisfied by *looper.Looper.
type Loop interface {
	safeloop.Host
	Pending() int
}

// Supervisors installs and removes safeloop supervisors.
//
// Satisfied by *safeloop.Installer.
type Supervisors interface {
	Install(host safeloop.Host)
	UninstallDelay(host safeloop.Host, delay time.Duration)
	IsActive(host safeloop.Host) bool
	Stats() safeloop.Stats
	ActiveCount() int
}

// FaultStore reads persisted fault reports.
//
// Satisfied by *report.Store.
type FaultStore interface {
	Get(ctx context.Context, id string) (*report.Report, error)
	Recent(ctx context.Context, limit int) ([]*report.Report, error)
}

// HandlerConfig configures NewHandler.
type HandlerConfig struct {
	// Loops in display order. Names must be unique.
	Loops       []Loop
	Supervisors Supervisors
	Store       FaultStore
	Latest      *report.Latest

	// RecentLimit caps GET /api/v1/faults. Default: 50
	RecentLimit int
}

// Handler serves the ops API.
type Handler struct {
	loops       []Loop
	byName      map[string]Loop
	supervisors Supervisors
	store       FaultStore
	latest      *report.Latest
	recentLimit int
	startTime   time.Time
}

// NewHandler creates a handler over the given loops and report sources.
// Store and Latest may be nil; their endpoints then answer 503.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 50
	}
	byName := make(map[string]Loop, len(cfg.Loops))
	for _, l := range cfg.Loops {
		byName[l.Thread().Name] = l
	}
	return &Handler{
		loops:       cfg.Loops,
		byName:      byName,
		supervisors: cfg.Supervisors,
		store:       cfg.Store,
		latest:      cfg.Latest,
		recentLimit: cfg.RecentLimit,
		startTime:   time.Now(),
	}
}

// status snapshots one loop.
func (h *Handler) status(l Loop) LoopStatus {
	thread := l.Thread()
	return LoopStatus{
		Name:     thread.Name,
		ThreadID: thread.ID,
		Thread:   thread.String(),
		Active:   h.supervisors.IsActive(l),
		Pending:  l.Pending(),
	}
}
