// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/safeloop/internal/looper"
)

// Poster is the queue surface the demo producer posts to.
//
// Satisfied by *looper.Looper.
type Poster interface {
	Name() string
	Post(t *looper.Task)
}

// DemoFault is the panic value of injected demo faults.
type DemoFault struct {
	Loop string
	Seq  int
}

func (f DemoFault) Error() string {
	return fmt.Sprintf("demo fault #%d on %s", f.Seq, f.Loop)
}

// DemoProducerService posts a task to every target on a fixed interval.
// Every faultEvery-th task panics, which shows a supervised loop surviving
// and an unsupervised one dying and being restarted.
type DemoProducerService struct {
	targets    []Poster
	interval   time.Duration
	faultEvery int
	seq        int
	name       string
}

// NewDemoProducerService creates a demo producer. faultEvery <= 0 never faults.
func NewDemoProducerService(targets []Poster, interval time.Duration, faultEvery int) *DemoProducerService {
	if interval <= 0 {
		interval = time.Second
	}
	return &DemoProducerService{
		targets:    targets,
		interval:   interval,
		faultEvery: faultEvery,
		name:       "demo-producer",
	}
}

// Serve implements suture.Service.
func (d *DemoProducerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.produce()
		}
	}
}

// produce posts one task to each target.
func (d *DemoProducerService) produce() {
	for _, target := range d.targets {
		d.seq++
		seq := d.seq
		loop := target.Name()
		faulty := d.faultEvery > 0 && seq%d.faultEvery == 0

		target.Post(looper.NamedTask(fmt.Sprintf("demo-%d", seq), func(context.Context) error {
			if faulty {
				panic(DemoFault{Loop: loop, Seq: seq})
			}
			return nil
		}))
	}
}

// String implements fmt.Stringer for suture log messages.
func (d *DemoProducerService) String() string {
	return d.name
}
