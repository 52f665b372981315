// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

/*
Package supervisor provides process supervision for Safeloop using suture v4.

Safeloop's own Supervisor keeps a looper alive across task faults from inside
the loop. This package sits one level above: it keeps the goroutines that run
loopers and the ops services alive across process-level failures, with
Erlang/OTP-style restart, backoff and graceful shutdown.

# Overview

	RootSupervisor ("safeloop")
	├── LoopsSupervisor ("loops-layer")
	│   └── LooperService (one per configured loop name)
	└── OpsSupervisor ("ops-layer")
	    ├── HTTPServerService (if HTTP_ENABLED)
	    ├── ReportConsumerService
	    └── DemoProducerService (if DEMO_ENABLED)

A looper whose loop dies natively (no safeloop Supervisor installed) returns
its fault from Serve. The loops layer restarts it and LooperService installs
a fresh Supervisor when configured to, while the ops layer keeps serving.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    FailureThreshold: cfg.Supervisor.FailureThreshold,
	    FailureBackoff:   cfg.Supervisor.FailureBackoff,
	    ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
	    return err
	}
	tree.AddLoopService(services.NewLooperService(l, installer, true))
	tree.AddOpsService(services.NewHTTPServerService(srv, 10*time.Second))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

Services live in the services subpackage.
*/
package supervisor
