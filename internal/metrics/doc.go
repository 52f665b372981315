// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

/*
Package metrics provides Prometheus instrumentation for supervised loops.

Collectors are registered on the default registry through promauto and
exposed by the ops API at /metrics:

	curl http://localhost:9464/metrics

# Available Metrics

Dispatch:
  - safeloop_tasks_dispatched_total{loop,outcome}: supervised dispatches
  - safeloop_dispatch_duration_seconds{loop}: dispatch latency (histogram)

Faults:
  - safeloop_faults_total{loop,handled}: routed faults; handled="false" means
    no handler was registered and the fault was dropped

Supervisor lifecycle:
  - safeloop_supervisor_drains_total{loop}
  - safeloop_supervisor_rearms_total{loop}
  - safeloop_supervisor_exits_total{loop}
  - safeloop_supervisor_declines_total{loop,reason}
  - safeloop_supervisors_active

Host loops:
  - safeloop_loop_deaths_total{loop}: native loops killed by an unsupervised fault
  - safeloop_queue_depth{loop}

Fault reports:
  - safeloop_reports_stored_total{result}
  - safeloop_reports_published_total{result}
  - safeloop_report_logs_suppressed_total
  - safeloop_report_breaker_state

# Usage

Record helpers hide label handling:

	start := time.Now()
	err := dispatch()
	metrics.RecordDispatch(loopName, time.Since(start), err)
*/
package metrics
