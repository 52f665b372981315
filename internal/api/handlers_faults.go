// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/safeloop/internal/report"
	"github.com/tomtom215/safeloop/internal/validation"
)

// FaultsRequest is the validated form of a fault listing.
type FaultsRequest struct {
	Limit int `validate:"gte=1"`
}

// Faults lists stored fault reports, newest first.
//
// GET /api/v1/faults?limit=20
func (h *Handler) Faults(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Fault report store is not configured", nil)
		return
	}

	limit, err := getIntParam(r, "limit", h.recentLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), nil)
		return
	}
	req := FaultsRequest{Limit: limit}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}
	if req.Limit > h.recentLimit {
		req.Limit = h.recentLimit
	}

	reports, err := h.store.Recent(r.Context(), req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to read fault reports", err)
		return
	}
	if reports == nil {
		reports = []*report.Report{}
	}

	respondData(w, http.StatusOK, FaultsResponse{Reports: reports, Count: len(reports)})
}

// Fault returns one stored report.
//
// GET /api/v1/faults/{id}
func (h *Handler) Fault(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Fault report store is not configured", nil)
		return
	}

	rep, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, report.ErrNotFound):
		respondError(w, http.StatusNotFound, "REPORT_NOT_FOUND", "Fault report not found", nil)
	case err != nil:
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to read fault report", err)
	default:
		respondData(w, http.StatusOK, rep)
	}
}

// LatestFault returns the most recent report seen on the report topic.
// With ?format=text it returns the plain crash text instead of JSON.
//
// GET /api/v1/faults/latest
func (h *Handler) LatestFault(w http.ResponseWriter, r *http.Request) {
	if h.latest == nil {
		respondError(w, http.StatusServiceUnavailable, "LATEST_UNAVAILABLE", "Latest fault tracking is not configured", nil)
		return
	}

	rep := h.latest.Report()
	if rep == nil {
		respondError(w, http.StatusNotFound, "NO_FAULTS", "No fault has been reported", nil)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(rep.Format()))
		return
	}
	respondData(w, http.StatusOK, rep)
}
