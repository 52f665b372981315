// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/safeloop/internal/metrics"
)

// instrumented mounts h behind PrometheusMetrics on a chi router, the way the
// ops API does.
func instrumented(method, pattern string, h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return PrometheusMetrics(next.ServeHTTP)
	})
	r.MethodFunc(method, pattern, h)
	return r
}

func TestPrometheusMetrics(t *testing.T) {
	t.Run("labels by route pattern", func(t *testing.T) {
		const pattern = "/mw-test/loops/{name}/install"
		handler := instrumented(http.MethodPost, pattern, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		})

		counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodPost, pattern, "202")
		before := testutil.ToFloat64(counter)

		for _, loop := range []string{"main", "io", "render"} {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mw-test/loops/"+loop+"/install", nil))
			if rec.Code != http.StatusAccepted {
				t.Fatalf("status = %d, want 202", rec.Code)
			}
		}

		if got := testutil.ToFloat64(counter) - before; got != 3 {
			t.Errorf("expected 3 requests on one series, got %v", got)
		}
	})

	t.Run("defaults to 200 when WriteHeader not called", func(t *testing.T) {
		const pattern = "/mw-test/implicit"
		handler := instrumented(http.MethodGet, pattern, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("Hello"))
		})

		counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, pattern, "200")
		before := testutil.ToFloat64(counter)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, pattern, nil))

		if got := testutil.ToFloat64(counter) - before; got != 1 {
			t.Errorf("expected status 200 to be recorded once, got %v", got)
		}
	})

	t.Run("outside chi the route is unmatched", func(t *testing.T) {
		handler := PrometheusMetrics(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})

		counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "418")
		before := testutil.ToFloat64(counter)

		handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anything", nil))

		if got := testutil.ToFloat64(counter) - before; got != 1 {
			t.Errorf("expected unmatched request to be recorded once, got %v", got)
		}
	})

	t.Run("releases the in-flight gauge", func(t *testing.T) {
		active := testutil.ToFloat64(metrics.APIActiveRequests)
		var during float64
		handler := PrometheusMetrics(func(w http.ResponseWriter, r *http.Request) {
			during = testutil.ToFloat64(metrics.APIActiveRequests)
		})

		handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if during != active+1 {
			t.Errorf("in-flight gauge during request = %v, want %v", during, active+1)
		}
		if got := testutil.ToFloat64(metrics.APIActiveRequests); got != active {
			t.Errorf("in-flight gauge after request = %v, want %v", got, active)
		}
	})
}

func TestMetricsResponseWriter(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	wrapper := &metricsResponseWriter{
		ResponseWriter: rec,
		statusCode:     http.StatusOK,
	}

	wrapper.Header().Set("Content-Type", "application/json")
	wrapper.WriteHeader(http.StatusNotFound)
	if _, err := wrapper.Write([]byte("test body")); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	if wrapper.statusCode != http.StatusNotFound || rec.Code != http.StatusNotFound {
		t.Errorf("status = %d/%d, want 404", wrapper.statusCode, rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Error("Header should be preserved")
	}
	if rec.Body.String() != "test body" {
		t.Errorf("Body not written: %s", rec.Body.String())
	}
}
