// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package safeloop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/safeloop/internal/fault"
	"github.com/tomtom215/safeloop/internal/looper"
)

func TestGuard(t *testing.T) {
	t.Parallel()

	g := NewGuard()
	if g.Active("a") {
		t.Fatal("new guard should be empty")
	}
	if !g.Acquire("a") {
		t.Fatal("first Acquire should succeed")
	}
	if g.Acquire("a") {
		t.Fatal("second Acquire should fail")
	}
	if !g.Acquire("b") {
		t.Fatal("Acquire for another thread should succeed")
	}
	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}

	g.Release("a")
	if g.Active("a") {
		t.Error("expected a to be released")
	}
	if !g.Acquire("a") {
		t.Error("Acquire after Release should succeed")
	}
}

func TestInstaller_StaleMarkerClearedOnInstall(t *testing.T) {
	t.Parallel()

	l := looper.New("stale-marker")
	inst := NewInstaller(nil)

	inst.Uninstall(l)
	if l.Pending() != 1 {
		t.Fatalf("Pending() = %d, want the marker", l.Pending())
	}

	inst.Install(l)
	if l.Pending() != 1 {
		t.Fatalf("Pending() = %d, want only the supervisor", l.Pending())
	}

	ran := false
	l.PostFunc("work", func(context.Context) error {
		ran = true
		return nil
	})
	inst.Uninstall(l)
	runTurns(t, l, 1)

	if !ran {
		t.Error("expected work to run under the supervisor")
	}
	if st := inst.Stats(); st.Drains != 1 || st.Exits != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestInstaller_UninstallReplacesPendingMarker(t *testing.T) {
	t.Parallel()

	l := looper.New("replace-marker")
	inst := NewInstaller(nil)

	inst.UninstallDelay(l, time.Hour)
	inst.UninstallDelay(l, 0)
	if l.Pending() != 1 {
		t.Fatalf("Pending() = %d, want one marker", l.Pending())
	}

	// The immediate marker replaced the delayed one, so a turn does not block.
	runTurns(t, l, 1)
	if l.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", l.Pending())
	}
}

func TestInstaller_UninstallWhenInactiveIsNativeNoop(t *testing.T) {
	t.Parallel()

	l := looper.New("inactive-uninstall")
	inst := NewInstaller(nil)

	inst.Uninstall(l)
	runTurns(t, l, 1)

	if inst.IsActive(l) {
		t.Error("expected supervisor to remain inactive")
	}
	if st := inst.Stats(); st != (Stats{}) {
		t.Errorf("expected no supervisor activity, got %+v", st)
	}
}

func TestInstaller_UninstallDelayWaits(t *testing.T) {
	t.Parallel()

	l := looper.New("uninstall-delay")
	inst := NewInstaller(nil)
	inst.Install(l)
	startLoop(t, l)

	waitFor(t, "supervisor to start", func() bool { return inst.IsActive(l) })
	inst.UninstallDelay(l, 50*time.Millisecond)

	time.Sleep(10 * time.Millisecond)
	if !inst.IsActive(l) {
		t.Fatal("supervisor exited before the delay elapsed")
	}
	waitFor(t, "supervisor to exit", func() bool { return !inst.IsActive(l) })
}

func TestInstaller_CurrentWithoutLooper(t *testing.T) {
	t.Parallel()

	inst := NewInstaller(nil)
	ctx := context.Background()

	if err := inst.InstallCurrent(ctx); !errors.Is(err, ErrNoLooper) {
		t.Errorf("InstallCurrent() = %v, want ErrNoLooper", err)
	}
	if err := inst.UninstallCurrent(ctx); !errors.Is(err, ErrNoLooper) {
		t.Errorf("UninstallCurrent() = %v, want ErrNoLooper", err)
	}
	if err := inst.UninstallDelayCurrent(ctx, time.Second); !errors.Is(err, ErrNoLooper) {
		t.Errorf("UninstallDelayCurrent() = %v, want ErrNoLooper", err)
	}
	if inst.IsActiveCurrent(ctx) {
		t.Error("IsActiveCurrent() = true without a looper")
	}
}

func TestInstaller_InstallCurrentFromTask(t *testing.T) {
	t.Parallel()

	l := looper.New("install-current")
	inst := NewInstaller(nil)
	faults := &faultLog{}
	inst.SetFaultHandler(faults)

	l.PostFunc("bootstrap", func(ctx context.Context) error {
		return inst.InstallCurrent(ctx)
	})
	l.PostFunc("fault", panics("boom"))
	l.PostFunc("after", func(ctx context.Context) error {
		return inst.UninstallCurrent(ctx)
	})

	// bootstrap runs natively, then the supervisor it queued takes over.
	runTurns(t, l, 3)

	if faults.count() != 1 {
		t.Errorf("handler invoked %d times, want 1", faults.count())
	}
	if inst.IsActive(l) {
		t.Error("expected supervisor to have exited")
	}
}

func TestInstaller_NilRouter(t *testing.T) {
	t.Parallel()

	inst := NewInstaller(nil)
	if inst.Router() == nil {
		t.Fatal("expected a private router")
	}
	if inst.Router() == fault.DefaultRouter() {
		t.Error("expected nil router to not fall back to the default router")
	}
}

func TestDefaultInstaller(t *testing.T) {
	faults := &faultLog{}
	SetFaultHandler(faults)
	defer SetFaultHandler(nil)

	if Default().Router() != fault.DefaultRouter() {
		t.Fatal("default installer must use the default router")
	}
	if fault.DefaultRouter().Handler() == nil {
		t.Fatal("SetFaultHandler did not reach the default router")
	}

	l := looper.New("default-api")
	var activeInside bool
	l.PostFunc("fault", panics("boom"))
	l.PostFunc("probe", func(ctx context.Context) error {
		activeInside = IsActiveCurrent(ctx)
		return UninstallCurrent(ctx)
	})
	Install(l)

	runTurns(t, l, 2)

	if faults.count() != 1 {
		t.Errorf("handler invoked %d times, want 1", faults.count())
	}
	if !activeInside {
		t.Error("expected IsActiveCurrent to be true inside a supervised task")
	}
	if IsActive(l) {
		t.Error("expected supervisor to have exited")
	}

	UninstallDelay(l, 0)
	Uninstall(l)
	if l.Pending() != 1 {
		t.Errorf("Pending() = %d, want a single marker", l.Pending())
	}
	if err := InstallCurrent(context.Background()); !errors.Is(err, ErrNoLooper) {
		t.Errorf("InstallCurrent() = %v, want ErrNoLooper", err)
	}
	if err := UninstallDelayCurrent(context.Background(), 0); !errors.Is(err, ErrNoLooper) {
		t.Errorf("UninstallDelayCurrent() = %v, want ErrNoLooper", err)
	}
}

func TestGo(t *testing.T) {
	t.Parallel()

	t.Run("panic is routed", func(t *testing.T) {
		t.Parallel()
		router := fault.NewRouter()
		faults := &faultLog{}
		router.Set(faults)

		err := <-Go(context.Background(), router, "worker", panics("worker crashed"))

		var ie *fault.InvocationError
		if !errors.As(err, &ie) || !ie.Panicked {
			t.Fatalf("Go() result = %v, want a panic envelope", err)
		}
		if faults.count() != 1 {
			t.Fatalf("handler invoked %d times, want 1", faults.count())
		}
		if faults.threads[0].Name != "worker" || faults.threads[0].ID == "" {
			t.Errorf("unexpected thread identity: %+v", faults.threads[0])
		}
	})

	t.Run("clean return is not routed", func(t *testing.T) {
		t.Parallel()
		router := fault.NewRouter()
		faults := &faultLog{}
		router.Set(faults)

		done := Go(context.Background(), router, "worker", func(context.Context) error { return nil })
		if err := <-done; err != nil {
			t.Fatalf("Go() result = %v, want nil", err)
		}
		if _, open := <-done; open {
			t.Error("expected result channel to be closed")
		}
		if faults.count() != 0 {
			t.Errorf("handler invoked %d times, want 0", faults.count())
		}
	})
}
