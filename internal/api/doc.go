// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

/*
Package api provides the ops HTTP API for Safeloop using the Chi router.

The API is an operational surface over the running loopers: it reports
supervisor state, lets an operator install or remove a supervisor on a loop,
and serves stored fault reports.

# Endpoints

	GET  /healthz                          liveness
	GET  /metrics                          Prometheus exposition
	GET  /api/v1/loops                     every loop with supervisor state
	GET  /api/v1/loops/{name}              one loop
	POST /api/v1/loops/{name}/install      queue a supervisor (202)
	POST /api/v1/loops/{name}/uninstall    queue an exit marker, ?delay=5s (202)
	GET  /api/v1/faults                    stored reports, newest first, ?limit=
	GET  /api/v1/faults/latest             last report seen on the topic, ?format=text
	GET  /api/v1/faults/{id}               one stored report

Install and uninstall are asynchronous: they queue work on the loop and
return before the loop processes it.

# Response Format

JSON endpoints return the APIResponse envelope:

	{"status":"success","data":{...},"metadata":{"timestamp":"...","request_id":"..."}}
	{"status":"error","data":null,"error":{"code":"LOOP_NOT_FOUND","message":"..."},"metadata":{...}}

# Middleware

Every request gets an X-Request-ID (also the logging correlation ID), real IP
extraction, panic recovery and Prometheus instrumentation. /api/v1 is rate
limited per client IP with go-chi/httprate.
*/
package api
