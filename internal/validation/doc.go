// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

// Package validation provides struct validation using go-playground/validator v10.
//
// The package wraps a thread-safe singleton validator, adds the custom
// "loopname" tag for loop names, and translates failures into readable
// messages and the ops API error body.
//
// # Quick Start
//
//	type UninstallRequest struct {
//	    Loop  string        `validate:"required,loopname"`
//	    Delay time.Duration `validate:"gte=0"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr)
//	    return
//	}
//
// Field names in messages are the struct namespace (for example
// "Config.Server.Port"), which keeps configuration errors unambiguous.
package validation
