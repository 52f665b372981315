// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/safeloop/internal/validation"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Config is immutable after LoadWithKoanf and safe for concurrent reads.
type Config struct {
	Loops      LoopsConfig      `koanf:"loops"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Report     ReportConfig     `koanf:"report"`
	Server     ServerConfig     `koanf:"server"`
	Demo       DemoConfig       `koanf:"demo"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// LoopsConfig lists the loopers the process runs.
type LoopsConfig struct {
	// Names of the loopers to start. Each gets its own goroutine.
	Names []string `koanf:"names" validate:"min=1,max=64,dive,loopname"`

	// AutoInstall installs a supervisor on every looper when it starts.
	AutoInstall bool `koanf:"auto_install"`
}

// SupervisorConfig tunes the suture tree that keeps looper goroutines and
// ops services running.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// ReportConfig configures fault report logging, storage and publishing.
type ReportConfig struct {
	// StorePath is the BadgerDB directory for reports.
	StorePath string `koanf:"store_path" validate:"required_unless=InMemory true"`

	// InMemory keeps reports in memory only.
	InMemory bool `koanf:"in_memory"`

	// Retention is how long reports are kept. Zero keeps them forever.
	Retention time.Duration `koanf:"retention" validate:"gte=0"`

	// Topic is the Watermill topic reports are published on.
	Topic string `koanf:"topic" validate:"required"`

	// LogRate and LogBurst limit fault log lines. LogRate 0 disables the limit.
	LogRate  float64 `koanf:"log_rate" validate:"gte=0"`
	LogBurst int     `koanf:"log_burst" validate:"gte=1"`

	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold" validate:"gte=1"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout" validate:"gt=0"`

	// RecentLimit caps GET /api/v1/faults.
	RecentLimit int `koanf:"recent_limit" validate:"gte=1,lte=1000"`

	// GCInterval is how often the store reclaims value log space.
	GCInterval time.Duration `koanf:"gc_interval" validate:"gt=0"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Enabled           bool          `koanf:"enabled"`
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DemoConfig configures the demo task producer.
type DemoConfig struct {
	Enabled bool `koanf:"enabled"`

	// Interval between demo tasks per loop.
	Interval time.Duration `koanf:"interval" validate:"gt=0"`

	// FaultEvery makes every Nth demo task panic. Zero never faults.
	FaultEvery int `koanf:"fault_every" validate:"gte=0"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	seen := make(map[string]struct{}, len(c.Loops.Names))
	for _, name := range c.Loops.Names {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("loops.names: duplicate loop name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
