// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	threadKey        contextKey = "thread"
)

// threadFields is what ContextWithThread stores.
type threadFields struct {
	id   string
	name string
}

// GenerateCorrelationID creates a new short correlation ID.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID returns a new context with the given correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a context with a newly generated correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext retrieves the correlation ID from context.
// Returns empty string if not present.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithThread records the looper thread a context is dispatched on so
// that Ctx can tag log lines with it.
func ContextWithThread(ctx context.Context, id, name string) context.Context {
	return context.WithValue(ctx, threadKey, threadFields{id: id, name: name})
}

// Ctx returns a logger with context values (correlation_id, thread_id,
// thread) added.
//
//	logging.Ctx(ctx).Info().Msg("Supervisor draining")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := Logger().With()

	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	if th, ok := ctx.Value(threadKey).(threadFields); ok {
		logCtx = logCtx.Str("thread_id", th.id).Str("thread", th.name)
	}

	l := logCtx.Logger()
	return &l
}
