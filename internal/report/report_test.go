// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/safeloop/internal/fault"
	"github.com/tomtom215/safeloop/internal/metrics"
)

var testThread = fault.Thread{ID: "0123456789abcdef", Name: "main"}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("returned error", func(t *testing.T) {
		t.Parallel()
		r := New(testThread, errors.New("boom"), nil)

		if r.ID == "" {
			t.Error("expected an ID")
		}
		if r.Message != "boom" || r.Type != "*errors.errorString" {
			t.Errorf("unexpected message/type: %q %q", r.Message, r.Type)
		}
		if r.Panicked {
			t.Error("a returned error is not a panic")
		}
		if r.Time.IsZero() {
			t.Error("expected a capture time")
		}
	})

	t.Run("panic without error value", func(t *testing.T) {
		t.Parallel()
		envelope := fault.Capture(func() error { panic("oops") })
		r := New(testThread, envelope, fault.StackOf(envelope))

		if r.Message != "oops" || r.Type != "string" {
			t.Errorf("unexpected message/type: %q %q", r.Message, r.Type)
		}
		if !r.Panicked || r.Stack == "" {
			t.Error("expected a panic with stack")
		}
	})

	t.Run("nil error", func(t *testing.T) {
		t.Parallel()
		r := New(testThread, nil, nil)
		if r.Message != "<nil>" {
			t.Errorf("Message = %q", r.Message)
		}
	})
}

func TestFormat(t *testing.T) {
	t.Parallel()

	r := New(testThread, errors.New("boom"), []byte("goroutine 1 [running]:\nmain.main()\n"))
	text := r.Format()

	if !strings.HasPrefix(text, "Crashed in Thread[main,01234567]\n\n") {
		t.Errorf("unexpected header: %q", text)
	}
	if !strings.Contains(text, "*errors.errorString: boom\n") {
		t.Errorf("missing fault line: %q", text)
	}
	if !strings.HasSuffix(text, "main.main()\n") {
		t.Errorf("missing stack: %q", text)
	}
}

func TestLatest(t *testing.T) {
	t.Parallel()

	var l Latest
	if l.Report() != nil || l.Text() != "" || l.Count() != 0 {
		t.Fatal("zero Latest should be empty")
	}

	first := New(testThread, errors.New("first"), nil)
	second := New(testThread, errors.New("second"), nil)
	l.Set(first)
	l.Set(second)

	if l.Report() != second {
		t.Error("expected the newest report")
	}
	if !strings.Contains(l.Text(), "second") {
		t.Errorf("Text() = %q", l.Text())
	}
	if l.Count() != 2 {
		t.Errorf("Count() = %d, want 2", l.Count())
	}
}

type memSaver struct {
	mu      sync.Mutex
	reports []*Report
	err     error
}

func (m *memSaver) Save(_ context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, r)
	return nil
}

type memSender struct {
	mu      sync.Mutex
	reports []*Report
	err     error
}

func (m *memSender) Publish(_ context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, r)
	return nil
}

func TestReporter_HandleFault(t *testing.T) {
	t.Parallel()

	saver := &memSaver{}
	sender := &memSender{}
	latest := &Latest{}
	rep := NewReporter(ReporterConfig{}, saver, sender, latest)

	stack := []byte("goroutine 9 [running]:\n")
	ctx := fault.ContextWithStack(context.Background(), stack)
	rep.HandleFault(ctx, testThread, errors.New("boom"))

	if len(saver.reports) != 1 || len(sender.reports) != 1 {
		t.Fatalf("saved %d, published %d; want 1 each", len(saver.reports), len(sender.reports))
	}
	if saver.reports[0] != sender.reports[0] || latest.Report() != saver.reports[0] {
		t.Error("expected the same report to be stored, published and held")
	}
	got := latest.Report()
	if got.Thread != testThread || got.Message != "boom" || got.Stack != string(stack) {
		t.Errorf("unexpected report: %+v", got)
	}
}

func TestReporter_FailuresDoNotEscape(t *testing.T) {
	t.Parallel()

	saver := &memSaver{err: errors.New("disk full")}
	sender := &memSender{err: errors.New("broker down")}
	latest := &Latest{}
	rep := NewReporter(ReporterConfig{}, saver, sender, latest)

	before := testutil.ToFloat64(metrics.ReportsStored.WithLabelValues("error"))
	rep.HandleFault(context.Background(), testThread, errors.New("boom"))
	after := testutil.ToFloat64(metrics.ReportsStored.WithLabelValues("error"))

	if latest.Count() != 1 {
		t.Error("expected the report to be held despite downstream failures")
	}
	if after-before < 1 {
		t.Error("expected the store failure to be counted")
	}
}

func TestReporter_RateLimitsLogs(t *testing.T) {
	t.Parallel()

	rep := NewReporter(ReporterConfig{LogRate: 0.001, LogBurst: 2}, nil, nil, nil)

	before := testutil.ToFloat64(metrics.ReportLogsSuppressed)
	for i := 0; i < 5; i++ {
		rep.HandleFault(context.Background(), testThread, errors.New("boom"))
	}
	after := testutil.ToFloat64(metrics.ReportLogsSuppressed)

	if after-before < 3 {
		t.Errorf("expected at least 3 suppressed log lines, got %v", after-before)
	}
}
