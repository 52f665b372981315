// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package fault

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Thread identifies the looper goroutine a fault was captured on.
type Thread struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// String renders the thread the way crash reports print it.
func (t Thread) String() string {
	id := t.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("Thread[%s,%s]", t.Name, id)
}

// InvocationError is the envelope a dispatch fault travels in.
//
// Cause is the underlying error: the error a task returned, or the panic
// value when that value is an error. It is nil when a task panicked with a
// non-error value; Value always holds what recover() returned.
type InvocationError struct {
	Cause    error
	Value    any
	Stack    []byte
	Panicked bool
}

// Error reports the cause when there is one so that handlers receiving the
// envelope still see the original message.
func (e *InvocationError) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return fmt.Sprint(e.Value)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// Capture runs fn and converts a panic or a returned error into an
// *InvocationError. It returns nil when fn completes cleanly.
func Capture(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ie := &InvocationError{
				Value:    r,
				Stack:    debug.Stack(),
				Panicked: true,
			}
			if cause, ok := r.(error); ok {
				ie.Cause = cause
			}
			err = ie
		}
	}()

	if runErr := fn(); runErr != nil {
		return &InvocationError{Cause: runErr, Value: runErr}
	}
	return nil
}

// Underlying unwraps an InvocationError to its cause. When the cause is
// absent, or err is not an envelope, err is returned unchanged.
func Underlying(err error) error {
	var ie *InvocationError
	if errors.As(err, &ie) && ie.Cause != nil {
		return ie.Cause
	}
	return err
}

// StackOf returns the stack recorded on the envelope wrapping err, if any.
func StackOf(err error) []byte {
	var ie *InvocationError
	if errors.As(err, &ie) {
		return ie.Stack
	}
	return nil
}
