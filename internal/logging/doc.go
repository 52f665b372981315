// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

// Package logging provides centralized zerolog-based structured logging.
//
// The package provides:
//   - A global zerolog logger configured once from main
//   - JSON output for production, console output for development
//   - Context-aware logging carrying correlation IDs and looper thread fields
//   - An slog adapter for libraries that take *slog.Logger (suture, watermill)
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("loop", "main").Msg("Supervisor installed")
//	logging.Error().Err(err).Msg("Report publish failed")
//
//	// Context-aware logging from inside a task
//	logging.Ctx(ctx).Debug().Msg("Draining")
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event is
// never written.
package logging
