// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package fault

import (
	"context"
	"sync/atomic"

	"github.com/tomtom215/safeloop/internal/logging"
	"github.com/tomtom215/safeloop/internal/metrics"
)

// Handler receives faults captured on a looper goroutine. It is invoked
// synchronously on that goroutine, before the loop is re-armed.
type Handler interface {
	HandleFault(ctx context.Context, thread Thread, err error)
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(ctx context.Context, thread Thread, err error)

// HandleFault calls f(ctx, thread, err).
func (f HandlerFunc) HandleFault(ctx context.Context, thread Thread, err error) {
	f(ctx, thread, err)
}

// handlerBox lets a nil Handler be stored in an atomic.Pointer.
type handlerBox struct {
	h Handler
}

// Router is the single mutable fault-handler slot.
// The zero value is ready to use and has no handler.
type Router struct {
	slot atomic.Pointer[handlerBox]
}

// NewRouter creates a Router with no handler registered.
func NewRouter() *Router {
	return &Router{}
}

var defaultRouter = NewRouter()

// DefaultRouter returns the process-wide Router used by the package-level
// safeloop API. Only the composition root should rely on it.
func DefaultRouter() *Router {
	return defaultRouter
}

// Set replaces the registered handler. Passing nil unregisters it.
func (r *Router) Set(h Handler) {
	r.slot.Store(&handlerBox{h: h})
}

// Handler returns the currently registered handler, or nil.
func (r *Router) Handler() Handler {
	box := r.slot.Load()
	if box == nil {
		return nil
	}
	return box.h
}

// Route hands a captured fault to the current handler.
//
// The envelope is unwrapped to its cause (see Underlying) and the recorded
// stack, if any, is attached to ctx for StackFromContext. Faults routed with
// no handler registered are dropped. A handler that panics is contained here
// so that nothing escapes back into the looper. Route reports whether a
// handler was invoked.
func (r *Router) Route(ctx context.Context, thread Thread, err error) (handled bool) {
	h := r.Handler()
	if h == nil {
		metrics.RecordFault(thread.Name, false)
		return false
	}
	metrics.RecordFault(thread.Name, true)

	if stack := StackOf(err); stack != nil {
		ctx = ContextWithStack(ctx, stack)
	}
	cause := Underlying(err)

	if herr := Capture(func() error {
		h.HandleFault(ctx, thread, cause)
		return nil
	}); herr != nil {
		logging.Error().
			Err(herr).
			Str("thread", thread.String()).
			Str("fault", cause.Error()).
			Msg("Fault handler panicked")
	}
	return true
}

type stackKey struct{}

// ContextWithStack returns a context carrying the goroutine stack recorded
// when a fault was captured.
func ContextWithStack(ctx context.Context, stack []byte) context.Context {
	return context.WithValue(ctx, stackKey{}, stack)
}

// StackFromContext returns the stack attached by Route, or nil.
func StackFromContext(ctx context.Context) []byte {
	if s, ok := ctx.Value(stackKey{}).([]byte); ok {
		return s
	}
	return nil
}
