// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

// Package main is the entry point for the safeloop daemon.
//
// The daemon runs a set of named task loops, each on its own goroutine, and
// keeps them alive when a task panics or returns an error. Every fault is
// turned into a report that is logged, stored in BadgerDB and published on a
// Watermill topic; a small ops API exposes loop state and recent reports.
//
// # Application Architecture
//
// Components are initialized in this order:
//
//  1. Configuration: defaults, optional config.yaml and environment (Koanf v2)
//  2. Logging: zerolog, bridged to slog for suture and Watermill
//  3. Report store: BadgerDB on disk, or in memory with REPORT_IN_MEMORY=true;
//     its value log GC runs on a safeloop.Go goroutine every REPORT_GC_INTERVAL
//  4. Report pipeline: GoChannel pub/sub, circuit-broken publisher, Reporter
//  5. Loops: one looper per configured name, supervised by safeloop
//  6. Supervisor tree: loops layer and ops layer (HTTP API, report consumer,
//     optional demo producer)
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor tree stops every
// service within SUPERVISOR_SHUTDOWN_TIMEOUT, then the store is closed.
//
// # Example Usage
//
// Two loops with the demo producer faulting every third task:
//
//	export LOOP_NAMES=main,io
//	export REPORT_IN_MEMORY=true
//	export DEMO_ENABLED=true
//	export DEMO_FAULT_EVERY=3
//	export LOG_FORMAT=console
//	./safeloop
//
// Then inspect the loops and the latest crash:
//
//	curl localhost:8085/api/v1/loops
//	curl 'localhost:8085/api/v1/faults/latest?format=text'
package main
