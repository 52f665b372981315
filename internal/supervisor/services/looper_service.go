// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/safeloop/internal/logging"
	"github.com/tomtom215/safeloop/internal/safeloop"
)

// Loop is the looper surface LooperService drives.
//
// Satisfied by *looper.Looper.
type Loop interface {
	safeloop.Host
	Loop(ctx context.Context) error
}

// Installer is the part of *safeloop.Installer LooperService needs.
type Installer interface {
	Install(host safeloop.Host)
}

// LooperService runs a looper's native loop as a supervised service.
//
// When autoInstall is set, the first start queues a safeloop supervisor
// before the loop begins, so faulting tasks are reported and the loop keeps
// going. Restarts do not install again: a supervised loop only dies natively
// after an operator uninstall, and that decision stands until the next
// explicit install. Without a supervisor, a faulting task ends the loop:
// Serve returns the fault and suture restarts the service on the same
// looper, pending tasks intact.
//
// Example usage:
//
//	l := looper.New("main")
//	tree.AddLoopService(services.NewLooperService(l, safeloop.Default(), true))
type LooperService struct {
	loop        Loop
	installer   Installer
	autoInstall bool
	installed   atomic.Bool
	name        string
}

// NewLooperService creates a service for loop.
func NewLooperService(loop Loop, installer Installer, autoInstall bool) *LooperService {
	return &LooperService{
		loop:        loop,
		installer:   installer,
		autoInstall: autoInstall && installer != nil,
		name:        "loop-" + loop.Thread().Name,
	}
}

// Serve implements suture.Service.
//
// Returns ctx.Err() on shutdown and the task fault if the loop dies. A loop
// that quit is finished for good and is not restarted.
func (s *LooperService) Serve(ctx context.Context) error {
	if s.autoInstall && s.installed.CompareAndSwap(false, true) {
		s.installer.Install(s.loop)
	}

	err := s.loop.Loop(ctx)
	switch {
	case err == nil:
		logging.Info().Str("loop", s.loop.Thread().Name).Msg("Looper quit, not restarting")
		return suture.ErrDoNotRestart
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		logging.Error().Err(err).Str("loop", s.loop.Thread().Name).Msg("Looper died")
		return fmt.Errorf("loop %s: %w", s.loop.Thread().Name, err)
	}
}

// String implements fmt.Stringer for suture log messages.
func (s *LooperService) String() string {
	return s.name
}
