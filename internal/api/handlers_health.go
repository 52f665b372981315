// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package api

import (
	"net/http"
	"time"
)

// Health reports liveness.
//
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, HealthStatus{
		Status: "healthy",
		Loops:  len(h.loops),
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	})
}
