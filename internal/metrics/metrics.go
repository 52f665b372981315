// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Loop label values are looper names, which come from configuration and are
// therefore bounded.

var (
	// Dispatch Metrics
	TasksDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeloop_tasks_dispatched_total",
			Help: "Total number of tasks dispatched by a supervisor",
		},
		[]string{"loop", "outcome"}, // outcome: "ok", "fault"
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safeloop_dispatch_duration_seconds",
			Help:    "Duration of supervised task dispatches in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"loop"},
	)

	// Fault Metrics
	FaultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeloop_faults_total",
			Help: "Total number of faults routed, by whether a handler was registered",
		},
		[]string{"loop", "handled"},
	)

	// Supervisor Lifecycle Metrics
	SupervisorDrains = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeloop_supervisor_drains_total",
			Help: "Total number of supervisors that entered the draining state",
		},
		[]string{"loop"},
	)

	SupervisorRearms = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeloop_supervisor_rearms_total",
			Help: "Total number of fresh supervisors enqueued after a fault",
		},
		[]string{"loop"},
	)

	SupervisorExits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeloop_supervisor_exits_total",
			Help: "Total number of supervisors that shut down on an exit marker or queue quit",
		},
		[]string{"loop"},
	)

	SupervisorDeclines = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeloop_supervisor_declines_total",
			Help: "Total number of supervisor invocations that did not drain",
		},
		[]string{"loop", "reason"}, // reason: "no_looper", "not_drainable", "already_active"
	)

	SupervisorsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "safeloop_supervisors_active",
			Help: "Current number of supervisors draining a queue",
		},
	)

	// Host Loop Metrics
	LoopDeaths = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeloop_loop_deaths_total",
			Help: "Total number of native loops terminated by an unsupervised fault",
		},
		[]string{"loop"},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "safeloop_queue_depth",
			Help: "Number of tasks pending in a looper queue",
		},
		[]string{"loop"},
	)

	// Fault Report Metrics
	ReportsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeloop_reports_stored_total",
			Help: "Total number of fault reports written to the report store",
		},
		[]string{"result"}, // "success", "error"
	)

	ReportGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeloop_report_gc_runs_total",
			Help: "Total number of report store value log GC runs",
		},
		[]string{"result"}, // "success", "error"
	)

	ReportsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeloop_reports_published_total",
			Help: "Total number of fault reports published to the report topic",
		},
		[]string{"result"}, // "success", "error", "breaker_open"
	)

	ReportLogsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safeloop_report_logs_suppressed_total",
			Help: "Total number of fault log lines dropped by the report rate limiter",
		},
	)

	ReportBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "safeloop_report_breaker_state",
			Help: "Report publisher circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Ops API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeloop_api_requests_total",
			Help: "Total number of ops API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safeloop_api_request_duration_seconds",
			Help:    "Ops API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "safeloop_api_active_requests",
			Help: "Number of ops API requests currently being handled",
		},
	)
)

// RecordDispatch records a supervised dispatch and its outcome.
func RecordDispatch(loop string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "fault"
	}
	TasksDispatched.WithLabelValues(loop, outcome).Inc()
	DispatchDuration.WithLabelValues(loop).Observe(duration.Seconds())
}

// RecordFault records a routed fault.
func RecordFault(loop string, handled bool) {
	FaultsTotal.WithLabelValues(loop, strconv.FormatBool(handled)).Inc()
}

// RecordDrainStart records a supervisor entering the draining state.
func RecordDrainStart(loop string) {
	SupervisorDrains.WithLabelValues(loop).Inc()
	SupervisorsActive.Inc()
}

// RecordDrainEnd records a supervisor leaving the draining state. rearmed is
// true when it left because of a fault and queued its replacement.
func RecordDrainEnd(loop string, rearmed bool) {
	SupervisorsActive.Dec()
	if rearmed {
		SupervisorRearms.WithLabelValues(loop).Inc()
		return
	}
	SupervisorExits.WithLabelValues(loop).Inc()
}

// RecordDecline records a supervisor invocation that did not drain.
func RecordDecline(loop, reason string) {
	SupervisorDeclines.WithLabelValues(loop, reason).Inc()
}

// RecordLoopDeath records a native loop terminated by a fault.
func RecordLoopDeath(loop string) {
	LoopDeaths.WithLabelValues(loop).Inc()
}

// SetQueueDepth updates the pending-task gauge for a loop.
func SetQueueDepth(loop string, depth int) {
	QueueDepth.WithLabelValues(loop).Set(float64(depth))
}

// RecordReportStored records the result of persisting a fault report.
func RecordReportStored(err error) {
	if err != nil {
		ReportsStored.WithLabelValues("error").Inc()
		return
	}
	ReportsStored.WithLabelValues("success").Inc()
}

// RecordReportGC records the result of a report store GC run.
func RecordReportGC(err error) {
	if err != nil {
		ReportGCRuns.WithLabelValues("error").Inc()
		return
	}
	ReportGCRuns.WithLabelValues("success").Inc()
}

// RecordReportPublished records the result of publishing a fault report.
// result should be one of "success", "error" or "breaker_open".
func RecordReportPublished(result string) {
	ReportsPublished.WithLabelValues(result).Inc()
}

// RecordReportLogSuppressed records a fault log line dropped by rate limiting.
func RecordReportLogSuppressed() {
	ReportLogsSuppressed.Inc()
}

// SetReportBreakerState records the publisher circuit breaker state.
func SetReportBreakerState(state int) {
	ReportBreakerState.Set(float64(state))
}

// RecordAPIRequest records a completed ops API request. route is the route
// pattern, not the raw path, so loop names do not multiply series.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}
