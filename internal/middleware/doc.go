// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

/*
Package middleware provides HTTP middleware for the ops API.

Key Components:

  - RequestID: UUID request IDs, echoed in X-Request-ID and used as the
    logging correlation ID
  - PrometheusMetrics: request count, duration and in-flight gauge, labelled
    by chi route pattern

Both are http.HandlerFunc decorators; the api package adapts them to chi's
func(http.Handler) http.Handler form.

Usage Example:

	r := chi.NewRouter()
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chiMiddleware(middleware.PrometheusMetrics))
*/
package middleware
