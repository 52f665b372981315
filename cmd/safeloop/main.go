// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/safeloop/internal/api"
	"github.com/tomtom215/safeloop/internal/config"
	"github.com/tomtom215/safeloop/internal/logging"
	"github.com/tomtom215/safeloop/internal/looper"
	"github.com/tomtom215/safeloop/internal/report"
	"github.com/tomtom215/safeloop/internal/safeloop"
	"github.com/tomtom215/safeloop/internal/supervisor"
	"github.com/tomtom215/safeloop/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Strs("loops", cfg.Loops.Names).
		Bool("auto_install", cfg.Loops.AutoInstall).
		Bool("report_in_memory", cfg.Report.InMemory).
		Msg("Starting safeloop")

	store, err := report.OpenStore(report.StoreConfig{
		Path:      cfg.Report.StorePath,
		InMemory:  cfg.Report.InMemory,
		Retention: cfg.Report.Retention,
	})
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Report.StorePath).Msg("Failed to open report store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing report store")
		}
	}()

	slogLogger := logging.NewSlogLogger()

	// In-process pub/sub: the Reporter publishes, the consumer service feeds
	// Latest, and the API serves it.
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewSlogLogger(slogLogger),
	)
	defer func() {
		if err := pubSub.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing report pub/sub")
		}
	}()

	breaker := report.DefaultBreakerConfig()
	breaker.FailureThreshold = cfg.Report.BreakerFailureThreshold
	breaker.Timeout = cfg.Report.BreakerTimeout
	publisher := report.NewPublisher(pubSub, cfg.Report.Topic, report.NewCircuitBreaker(breaker))

	latest := &report.Latest{}
	reporter := report.NewReporter(report.ReporterConfig{
		LogRate:  cfg.Report.LogRate,
		LogBurst: cfg.Report.LogBurst,
	}, store, publisher, nil)

	installer := safeloop.Default()
	installer.SetFaultHandler(reporter)

	loops := make([]*looper.Looper, 0, len(cfg.Loops.Names))
	for _, name := range cfg.Loops.Names {
		loops = append(loops, looper.New(name))
	}

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// === LOOPS LAYER ===

	apiLoops := make([]api.Loop, 0, len(loops))
	posters := make([]services.Poster, 0, len(loops))
	for _, l := range loops {
		tree.AddLoopService(services.NewLooperService(l, installer, cfg.Loops.AutoInstall))
		apiLoops = append(apiLoops, l)
		posters = append(posters, l)
	}
	logging.Info().Int("count", len(loops)).Msg("Looper services added to supervisor tree")

	// === OPS LAYER ===

	tree.AddOpsService(services.NewReportConsumerService(pubSub, cfg.Report.Topic, latest))

	if cfg.Server.Enabled {
		handler := api.NewHandler(api.HandlerConfig{
			Loops:       apiLoops,
			Supervisors: installer,
			Store:       store,
			Latest:      latest,
			RecentLimit: cfg.Report.RecentLimit,
		})
		router := api.NewRouter(handler, &api.ChiMiddlewareConfig{
			RateLimitRequests: cfg.Server.RateLimitReqs,
			RateLimitWindow:   cfg.Server.RateLimitWindow,
			RateLimitDisabled: cfg.Server.RateLimitDisabled,
		})

		server := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router.SetupChi(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.Server.Timeout,
			WriteTimeout:      cfg.Server.Timeout,
			IdleTimeout:       60 * time.Second,
		}
		tree.AddOpsService(services.NewHTTPServerService(server, cfg.Supervisor.ShutdownTimeout))
		logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")
	}

	if cfg.Demo.Enabled {
		tree.AddOpsService(services.NewDemoProducerService(posters, cfg.Demo.Interval, cfg.Demo.FaultEvery))
		logging.Warn().
			Dur("interval", cfg.Demo.Interval).
			Int("fault_every", cfg.Demo.FaultEvery).
			Msg("Demo producer enabled, loops will receive faulting tasks")
	}

	// === START SUPERVISOR TREE ===

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store GC runs outside the loops; a failure is routed to the Reporter
	// like any loop fault.
	gcCtx, stopGC := context.WithCancel(ctx)
	defer stopGC()
	gcDone := safeloop.Go(gcCtx, installer.Router(), "report-gc", func(ctx context.Context) error {
		return store.Maintain(ctx, cfg.Report.GCInterval)
	})

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// The channel carries exactly one value once the tree has stopped.
	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	for _, l := range loops {
		l.Quit()
	}

	stopGC()
	if err := <-gcDone; err != nil {
		logging.Error().Err(err).Msg("Report store GC stopped with an error")
	}

	logging.Info().
		Int64("faults_seen", latest.Count()).
		Msg("Safeloop stopped gracefully")
}
