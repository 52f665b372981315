// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/safeloop/internal/logging"
	"github.com/tomtom215/safeloop/internal/validation"
)

// UninstallRequest is the validated form of an uninstall call.
type UninstallRequest struct {
	Loop  string        `validate:"required,loopname"`
	Delay time.Duration `validate:"gte=0,lte=24h"`
}

// Loops lists every looper with its supervisor state.
//
// GET /api/v1/loops
func (h *Handler) Loops(w http.ResponseWriter, r *http.Request) {
	statuses := make([]LoopStatus, 0, len(h.loops))
	for _, l := range h.loops {
		statuses = append(statuses, h.status(l))
	}

	respondData(w, http.StatusOK, LoopsResponse{
		Loops:             statuses,
		ActiveSupervisors: h.supervisors.ActiveCount(),
		Stats:             h.supervisors.Stats(),
	})
}

// Loop returns one looper's status.
//
// GET /api/v1/loops/{name}
func (h *Handler) Loop(w http.ResponseWriter, r *http.Request) {
	l, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, h.status(l))
}

// Install queues a supervisor on a looper. It answers 202: the supervisor
// starts draining when the loop reaches it.
//
// POST /api/v1/loops/{name}/install
func (h *Handler) Install(w http.ResponseWriter, r *http.Request) {
	l, ok := h.lookup(w, r)
	if !ok {
		return
	}

	h.supervisors.Install(l)
	logging.Ctx(r.Context()).Info().Str("loop", l.Thread().Name).Msg("Supervisor install requested")

	respondData(w, http.StatusAccepted, LoopActionResponse{
		Loop:   l.Thread().Name,
		Action: "install",
	})
}

// Uninstall queues an exit marker on a looper, optionally delayed.
//
// POST /api/v1/loops/{name}/uninstall?delay=5s
func (h *Handler) Uninstall(w http.ResponseWriter, r *http.Request) {
	delay, err := getDurationParam(r, "delay")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), nil)
		return
	}

	req := UninstallRequest{Loop: chi.URLParam(r, "name"), Delay: delay}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}

	l, ok := h.lookup(w, r)
	if !ok {
		return
	}

	h.supervisors.UninstallDelay(l, req.Delay)
	logging.Ctx(r.Context()).Info().
		Str("loop", req.Loop).
		Dur("delay", req.Delay).
		Msg("Supervisor uninstall requested")

	resp := LoopActionResponse{Loop: req.Loop, Action: "uninstall"}
	if req.Delay > 0 {
		resp.Delay = req.Delay.String()
	}
	respondData(w, http.StatusAccepted, resp)
}

// lookup resolves the {name} URL parameter, answering 404 when unknown.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (Loop, bool) {
	name := chi.URLParam(r, "name")
	l, ok := h.byName[name]
	if !ok {
		respondError(w, http.StatusNotFound, "LOOP_NOT_FOUND", "No loop named "+sanitizeLogValue(name), nil)
		return nil, false
	}
	return l, true
}
