// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

/*
Package services provides suture.Service wrappers for Safeloop components.

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

and fmt.Stringer so suture can name it in log events.

# Available Services

Looper (LooperService):
  - Runs a looper's native loop on the service goroutine
  - Installs a safeloop supervisor on every start when auto-install is on
  - Returns the task fault when an unsupervised loop dies, so suture restarts it
  - Returns suture.ErrDoNotRestart once the looper has quit

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Configurable shutdown timeout for draining connections

Report Consumer (ReportConsumerService):
  - Subscribes to the Watermill fault report topic
  - Decodes reports and hands them to report.Latest
  - Acks and drops messages that fail to decode

Demo Producer (DemoProducerService):
  - Posts a task to each looper on an interval
  - Every Nth task panics with DemoFault

# Error Handling

Serve returns ctx.Err() on shutdown. Any other error is a failure suture
counts toward the tree's FailureThreshold before backing off.
*/
package services
