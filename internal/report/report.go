// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/safeloop/internal/fault"
)

// Report is the durable record of one routed fault.
type Report struct {
	ID       string       `json:"id"`
	Thread   fault.Thread `json:"thread"`
	Message  string       `json:"message"`
	Type     string       `json:"type"`
	Panicked bool         `json:"panicked"`
	Stack    string       `json:"stack,omitempty"`
	Time     time.Time    `json:"time"`
}

// New builds a report for a fault delivered to a handler. err is what the
// handler received: the underlying cause, or the envelope itself when the
// task panicked with a non-error value. stack may be nil.
func New(thread fault.Thread, err error, stack []byte) *Report {
	r := &Report{
		ID:       uuid.New().String(),
		Thread:   thread,
		Panicked: len(stack) > 0,
		Stack:    string(stack),
		Time:     time.Now().UTC(),
	}
	if err == nil {
		r.Message = "<nil>"
		r.Type = "<nil>"
		return r
	}

	r.Message = err.Error()
	r.Type = fmt.Sprintf("%T", err)

	var ie *fault.InvocationError
	if errors.As(err, &ie) && ie.Cause == nil {
		r.Type = fmt.Sprintf("%T", ie.Value)
		r.Panicked = r.Panicked || ie.Panicked
	}
	return r
}

// Format renders the crash text shown to operators:
//
//	Crashed in Thread[main,1b4e28ba]
//
//	*errors.errorString: boom
//	goroutine 7 [running]:
//	...
func (r *Report) Format() string {
	var b strings.Builder
	b.WriteString("Crashed in ")
	b.WriteString(r.Thread.String())
	b.WriteString("\n\n")
	b.WriteString(r.Type)
	b.WriteString(": ")
	b.WriteString(r.Message)
	b.WriteString("\n")
	if r.Stack != "" {
		b.WriteString(r.Stack)
	}
	return b.String()
}
