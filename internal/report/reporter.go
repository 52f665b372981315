// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package report

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/tomtom215/safeloop/internal/fault"
	"github.com/tomtom215/safeloop/internal/logging"
	"github.com/tomtom215/safeloop/internal/metrics"
)

// Saver persists reports.
type Saver interface {
	Save(ctx context.Context, r *Report) error
}

// Sender forwards reports to subscribers.
type Sender interface {
	Publish(ctx context.Context, r *Report) error
}

// ReporterConfig configures a Reporter.
type ReporterConfig struct {
	// LogRate is the sustained number of fault log lines per second.
	// Zero or less disables the limit.
	LogRate float64

	// LogBurst is how many fault log lines may be written back to back.
	LogBurst int
}

// Reporter is the fault handler used by the binary. For every fault it
// records the latest report, logs it (rate limited), stores it and
// publishes it. Store and publish failures are logged and never returned to
// the loop.
type Reporter struct {
	saver   Saver
	sender  Sender
	latest  *Latest
	limiter *rate.Limiter
}

// NewReporter creates a Reporter. Any of saver, sender and latest may be nil.
func NewReporter(cfg ReporterConfig, saver Saver, sender Sender, latest *Latest) *Reporter {
	limit := rate.Inf
	if cfg.LogRate > 0 {
		limit = rate.Limit(cfg.LogRate)
	}
	burst := cfg.LogBurst
	if burst < 1 {
		burst = 1
	}

	return &Reporter{
		saver:   saver,
		sender:  sender,
		latest:  latest,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// HandleFault implements fault.Handler.
func (r *Reporter) HandleFault(ctx context.Context, thread fault.Thread, err error) {
	rep := New(thread, err, fault.StackFromContext(ctx))

	if r.latest != nil {
		r.latest.Set(rep)
	}

	if r.limiter.Allow() {
		logging.Ctx(ctx).Error().
			Err(err).
			Str("report_id", rep.ID).
			Str("fault_type", rep.Type).
			Bool("panicked", rep.Panicked).
			Msg("Task faulted on " + thread.String())
	} else {
		metrics.RecordReportLogSuppressed()
	}

	if r.saver != nil {
		saveErr := r.saver.Save(ctx, rep)
		metrics.RecordReportStored(saveErr)
		if saveErr != nil {
			logging.Ctx(ctx).Warn().Err(saveErr).Str("report_id", rep.ID).Msg("Failed to store fault report")
		}
	}

	if r.sender != nil {
		if pubErr := r.sender.Publish(ctx, rep); pubErr != nil {
			logging.Ctx(ctx).Warn().Err(pubErr).Str("report_id", rep.ID).Msg("Failed to publish fault report")
		}
	}
}
