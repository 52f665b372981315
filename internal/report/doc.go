// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

// Package report turns routed faults into crash reports.
//
// A Reporter is a fault.Handler. It builds a Report for every fault, keeps
// the newest one in a Latest holder, logs it through zerolog behind a
// rate limiter, persists it in BadgerDB (Store) and publishes it on a
// Watermill topic through a gobreaker circuit breaker (Publisher).
// Consumers read published reports back with Decode.
package report
