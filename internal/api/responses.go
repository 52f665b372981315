// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package api

import (
	"time"

	"github.com/tomtom215/safeloop/internal/report"
	"github.com/tomtom215/safeloop/internal/safeloop"
	"github.com/tomtom215/safeloop/internal/validation"
)

// APIResponse is the envelope every JSON endpoint returns.
//
// Fields:
//   - Status: "success" or "error"
//   - Data: endpoint payload, nil on error
//   - Metadata: response timestamp and request ID
//   - Error: set only when Status is "error"
type APIResponse struct {
	Status   string               `json:"status"`
	Data     interface{}          `json:"data"`
	Metadata Metadata             `json:"metadata"`
	Error    *validation.APIError `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// LoopStatus describes one looper.
type LoopStatus struct {
	Name     string `json:"name"`
	ThreadID string `json:"thread_id"`
	Thread   string `json:"thread"`
	Active   bool   `json:"supervisor_active"`
	Pending  int    `json:"pending"`
}

// LoopsResponse is the body of GET /api/v1/loops.
type LoopsResponse struct {
	Loops             []LoopStatus   `json:"loops"`
	ActiveSupervisors int            `json:"active_supervisors"`
	Stats             safeloop.Stats `json:"stats"`
}

// LoopActionResponse acknowledges an install or uninstall request. The
// action is queued on the loop, not yet applied.
type LoopActionResponse struct {
	Loop   string `json:"loop"`
	Action string `json:"action"`
	Delay  string `json:"delay,omitempty"`
}

// FaultsResponse is the body of GET /api/v1/faults.
type FaultsResponse struct {
	Reports []*report.Report `json:"reports"`
	Count   int              `json:"count"`
}

// HealthStatus is the body of GET /healthz.
type HealthStatus struct {
	Status string `json:"status"`
	Loops  int    `json:"loops"`
	Uptime string `json:"uptime"`
}
