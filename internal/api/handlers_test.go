// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/safeloop/internal/fault"
	"github.com/tomtom215/safeloop/internal/looper"
	"github.com/tomtom215/safeloop/internal/middleware"
	"github.com/tomtom215/safeloop/internal/report"
	"github.com/tomtom215/safeloop/internal/safeloop"
	"github.com/tomtom215/safeloop/internal/validation"
)

type apiFixture struct {
	router http.Handler
	main   *looper.Looper
	io     *looper.Looper
	inst   *safeloop.Installer
	store  *report.Store
	latest *report.Latest
}

func newFixture(t *testing.T, mw *ChiMiddlewareConfig) *apiFixture {
	t.Helper()

	store, err := report.OpenStore(report.StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	f := &apiFixture{
		main:   looper.New("main"),
		io:     looper.New("io"),
		inst:   safeloop.NewInstaller(fault.NewRouter()),
		store:  store,
		latest: &report.Latest{},
	}
	h := NewHandler(HandlerConfig{
		Loops:       []Loop{f.main, f.io},
		Supervisors: f.inst,
		Store:       store,
		Latest:      f.latest,
		RecentLimit: 5,
	})
	if mw == nil {
		mw = &ChiMiddlewareConfig{RateLimitDisabled: true}
	}
	f.router = NewRouter(h, mw).SetupChi()
	return f
}

type envelope struct {
	Status   string               `json:"status"`
	Data     json.RawMessage      `json:"data"`
	Metadata Metadata             `json:"metadata"`
	Error    *validation.APIError `json:"error"`
}

func (f *apiFixture) do(t *testing.T, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v\n%s", method, target, err, rec.Body.String())
		}
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func saveReport(t *testing.T, store *report.Store, msg string) *report.Report {
	t.Helper()
	r := report.New(fault.Thread{ID: "0123456789abcdef", Name: "main"}, errors.New(msg), nil)
	if err := store.Save(context.Background(), r); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return r
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK || env.Status != "success" {
		t.Fatalf("status = %d/%s, want 200/success", rec.Code, env.Status)
	}

	var health HealthStatus
	decodeData(t, env, &health)
	if health.Status != "healthy" || health.Loops != 2 {
		t.Errorf("health = %+v", health)
	}

	if id := rec.Header().Get(middleware.RequestIDHeader); id == "" || env.Metadata.RequestID != id {
		t.Errorf("request ID header %q, metadata %q", id, env.Metadata.RequestID)
	}
}

func TestLoops(t *testing.T) {
	f := newFixture(t, nil)
	f.io.Post(looper.NamedTask("pending", nil))

	rec, env := f.do(t, http.MethodGet, "/api/v1/loops")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp LoopsResponse
	decodeData(t, env, &resp)
	if len(resp.Loops) != 2 || resp.Loops[0].Name != "main" || resp.Loops[1].Name != "io" {
		t.Fatalf("loops = %+v, want main, io", resp.Loops)
	}
	if resp.Loops[0].ThreadID != f.main.Thread().ID || resp.Loops[0].Thread != f.main.Thread().String() {
		t.Errorf("main identity = %+v", resp.Loops[0])
	}
	if resp.Loops[1].Pending != 1 || resp.Loops[0].Active {
		t.Errorf("unexpected state: %+v", resp.Loops)
	}

	rec, env = f.do(t, http.MethodGet, "/api/v1/loops/io")
	var one LoopStatus
	decodeData(t, env, &one)
	if rec.Code != http.StatusOK || one.Name != "io" {
		t.Errorf("GET /loops/io = %d %+v", rec.Code, one)
	}
}

func TestInstall(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodPost, "/api/v1/loops/main/install")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	var resp LoopActionResponse
	decodeData(t, env, &resp)
	if resp.Loop != "main" || resp.Action != "install" {
		t.Errorf("response = %+v", resp)
	}
	if f.main.Pending() != 1 {
		t.Errorf("main pending = %d, want the queued supervisor", f.main.Pending())
	}

	// The supervisor drains once the loop runs it.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.main.Loop(ctx) }()
	deadline := time.Now().Add(2 * time.Second)
	for !f.inst.IsActive(f.main) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	_, env = f.do(t, http.MethodGet, "/api/v1/loops/main")
	var status LoopStatus
	decodeData(t, env, &status)
	if !status.Active {
		t.Error("supervisor should be reported active")
	}
	cancel()
	<-done
}

func TestUninstall(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantError string
		wantDelay string
	}{
		{name: "immediate", target: "/api/v1/loops/main/uninstall", wantCode: http.StatusAccepted},
		{name: "delayed", target: "/api/v1/loops/main/uninstall?delay=5s", wantCode: http.StatusAccepted, wantDelay: "5s"},
		{name: "malformed delay", target: "/api/v1/loops/main/uninstall?delay=soon", wantCode: http.StatusBadRequest, wantError: "INVALID_PARAMETER"},
		{name: "negative delay", target: "/api/v1/loops/main/uninstall?delay=-1s", wantCode: http.StatusBadRequest, wantError: "VALIDATION_ERROR"},
		{name: "delay too long", target: "/api/v1/loops/main/uninstall?delay=48h", wantCode: http.StatusBadRequest, wantError: "VALIDATION_ERROR"},
		{name: "invalid loop name", target: "/api/v1/loops/Main/uninstall", wantCode: http.StatusBadRequest, wantError: "VALIDATION_ERROR"},
		{name: "unknown loop", target: "/api/v1/loops/render/uninstall", wantCode: http.StatusNotFound, wantError: "LOOP_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			rec, env := f.do(t, http.MethodPost, tt.target)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantError != "" {
				if env.Error == nil || env.Error.Code != tt.wantError {
					t.Errorf("error = %+v, want code %s", env.Error, tt.wantError)
				}
				if f.main.Pending() != 0 {
					t.Error("rejected request must not queue anything")
				}
				return
			}

			var resp LoopActionResponse
			decodeData(t, env, &resp)
			if resp.Action != "uninstall" || resp.Delay != tt.wantDelay {
				t.Errorf("response = %+v", resp)
			}
			if f.main.Pending() != 1 {
				t.Errorf("pending = %d, want the exit marker", f.main.Pending())
			}
		})
	}
}

func TestFaults(t *testing.T) {
	f := newFixture(t, nil)
	for _, msg := range []string{"first", "second", "third"} {
		saveReport(t, f.store, msg)
		time.Sleep(time.Millisecond)
	}

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantCount int
		wantFirst string
	}{
		{name: "default limit", target: "/api/v1/faults", wantCode: http.StatusOK, wantCount: 3, wantFirst: "third"},
		{name: "explicit limit", target: "/api/v1/faults?limit=2", wantCode: http.StatusOK, wantCount: 2, wantFirst: "third"},
		{name: "limit clamped", target: "/api/v1/faults?limit=500", wantCode: http.StatusOK, wantCount: 3, wantFirst: "third"},
		{name: "zero limit", target: "/api/v1/faults?limit=0", wantCode: http.StatusBadRequest},
		{name: "malformed limit", target: "/api/v1/faults?limit=ten", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := f.do(t, http.MethodGet, tt.target)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var resp FaultsResponse
			decodeData(t, env, &resp)
			if resp.Count != tt.wantCount || len(resp.Reports) != tt.wantCount {
				t.Fatalf("count = %d (%d reports), want %d", resp.Count, len(resp.Reports), tt.wantCount)
			}
			if resp.Reports[0].Message != tt.wantFirst {
				t.Errorf("first = %q, want %q", resp.Reports[0].Message, tt.wantFirst)
			}
		})
	}
}

func TestFaultByID(t *testing.T) {
	f := newFixture(t, nil)
	saved := saveReport(t, f.store, "boom")

	rec, env := f.do(t, http.MethodGet, "/api/v1/faults/"+saved.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got report.Report
	decodeData(t, env, &got)
	if got.ID != saved.ID || got.Message != "boom" {
		t.Errorf("report = %+v", got)
	}

	rec, env = f.do(t, http.MethodGet, "/api/v1/faults/does-not-exist")
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != "REPORT_NOT_FOUND" {
		t.Errorf("unknown id: %d %+v", rec.Code, env.Error)
	}
}

func TestLatestFault(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodGet, "/api/v1/faults/latest")
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != "NO_FAULTS" {
		t.Fatalf("empty latest: %d %+v", rec.Code, env.Error)
	}

	r := report.New(f.main.Thread(), errors.New("boom"), nil)
	f.latest.Set(r)

	rec, env = f.do(t, http.MethodGet, "/api/v1/faults/latest")
	var got report.Report
	decodeData(t, env, &got)
	if rec.Code != http.StatusOK || got.ID != r.ID {
		t.Errorf("latest = %d %+v", rec.Code, got)
	}

	rec, _ = f.do(t, http.MethodGet, "/api/v1/faults/latest?format=text")
	if !strings.HasPrefix(rec.Body.String(), "Crashed in "+f.main.Thread().String()) {
		t.Errorf("text body = %q", rec.Body.String())
	}
}

func TestUnconfiguredSources(t *testing.T) {
	h := NewHandler(HandlerConfig{Supervisors: safeloop.NewInstaller(nil)})
	router := NewRouter(h, &ChiMiddlewareConfig{RateLimitDisabled: true}).SetupChi()

	for _, target := range []string{"/api/v1/faults", "/api/v1/faults/abc", "/api/v1/faults/latest"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s = %d, want 503", target, rec.Code)
		}
	}
}
