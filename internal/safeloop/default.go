// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package safeloop

import (
	"context"
	"time"

	"github.com/tomtom215/safeloop/internal/fault"
)

var defaultInstaller = NewInstaller(fault.DefaultRouter())

// Default returns the process-wide Installer behind the package functions.
func Default() *Installer {
	return defaultInstaller
}

// Install calls Default().Install.
func Install(host Host) { defaultInstaller.Install(host) }

// Uninstall calls Default().Uninstall.
func Uninstall(host Host) { defaultInstaller.Uninstall(host) }

// UninstallDelay calls Default().UninstallDelay.
func UninstallDelay(host Host, delay time.Duration) { defaultInstaller.UninstallDelay(host, delay) }

// IsActive calls Default().IsActive.
func IsActive(host Host) bool { return defaultInstaller.IsActive(host) }

// SetFaultHandler calls Default().SetFaultHandler.
func SetFaultHandler(h fault.Handler) { defaultInstaller.SetFaultHandler(h) }

// InstallCurrent calls Default().InstallCurrent.
func InstallCurrent(ctx context.Context) error { return defaultInstaller.InstallCurrent(ctx) }

// UninstallCurrent calls Default().UninstallCurrent.
func UninstallCurrent(ctx context.Context) error { return defaultInstaller.UninstallCurrent(ctx) }

// UninstallDelayCurrent calls Default().UninstallDelayCurrent.
func UninstallDelayCurrent(ctx context.Context, delay time.Duration) error {
	return defaultInstaller.UninstallDelayCurrent(ctx, delay)
}

// IsActiveCurrent calls Default().IsActiveCurrent.
func IsActiveCurrent(ctx context.Context) bool { return defaultInstaller.IsActiveCurrent(ctx) }
