// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

/*
Package config provides centralized configuration management for Safeloop.

Configuration is layered with Koanf v2 and validated with
go-playground/validator before the process starts any loop.

# Configuration Sources

Later sources override earlier ones:
  - Built-in defaults (defaultConfig)
  - An optional YAML file: CONFIG_PATH, then ./config.yaml, then /etc/safeloop/config.yaml
  - Mapped environment variables (LOOP_NAMES, HTTP_PORT, LOG_LEVEL, ...)

# Configuration Structure

  - LoopsConfig: looper names and whether supervisors install automatically
  - SupervisorConfig: suture restart thresholds and shutdown timeout
  - ReportConfig: fault report store, topic, log rate limit and circuit breaker
  - ServerConfig: ops HTTP server and rate limiting
  - DemoConfig: optional producer that posts tasks and injects faults
  - LoggingConfig: zerolog level, format and caller info

# Usage Example

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(cfg.Server.Addr())

# Environment Variables

Only mapped variables are read. Slice values such as LOOP_NAMES are
comma-separated:

	LOOP_NAMES=main,io,render
	REPORT_IN_MEMORY=true
	HTTP_PORT=9090
*/
package config
