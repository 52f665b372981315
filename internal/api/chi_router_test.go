// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package api

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestRouter_MetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	// Generate at least one API series before scraping.
	f.do(t, http.MethodGet, "/api/v1/loops")

	rec, _ := f.do(t, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "safeloop_api_requests_total") {
		t.Error("metrics output should include safeloop_api_requests_total")
	}
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodGet, "/api/v1/nothing")
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("unknown route: %d %+v", rec.Code, env.Error)
	}

	rec, env = f.do(t, http.MethodGet, "/api/v1/loops/main/install")
	if rec.Code != http.StatusMethodNotAllowed || env.Error == nil || env.Error.Code != "METHOD_NOT_ALLOWED" {
		t.Errorf("GET on install: %d %+v", rec.Code, env.Error)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	f := newFixture(t, &ChiMiddlewareConfig{
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	})

	for i := 0; i < 2; i++ {
		if rec, _ := f.do(t, http.MethodGet, "/api/v1/loops"); rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d, want 200", i+1, rec.Code)
		}
	}

	rec, env := f.do(t, http.MethodGet, "/api/v1/loops")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "RATE_LIMITED" {
		t.Errorf("error = %+v, want RATE_LIMITED", env.Error)
	}

	// Ops endpoints use their own, larger budget.
	if rec, _ := f.do(t, http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("/healthz = %d, want 200", rec.Code)
	}
}

func TestNewChiMiddleware_Defaults(t *testing.T) {
	m := NewChiMiddleware(nil)
	if m.config.RateLimitRequests != 100 || m.config.RateLimitWindow != time.Minute {
		t.Errorf("config = %+v, want 100/min", m.config)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("main\nforged"); got != `main\x0aforged` {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
}
