// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package watchdog drives the P25 SM's time-based maintenance at ~1 Hz so
// hangtime, safety nets, and candidate hunting keep progressing even when
// the demod thread is blocked in a long read (base spec §4.5). Grounded on
// DMRHub's internal/dmr/netscheduler gocron.Scheduler wiring, generalized
// from its cron-expression jobs to a single fixed-interval job.
package watchdog

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// TryTicker is the subset of sm.Context the watchdog drives. Defined here
// (rather than importing sm directly) so the watchdog stays test-friendly
// and has no compile-time dependency on the SM package's internals.
type TryTicker interface {
	// TryTick attempts sm_tick under a try-lock. ticked is false, with a nil
	// error, when the SM lock was already held by a concurrent caller (base
	// spec §4.5: "a no-op" when colliding with a demod-thread tick).
	TryTick(now float64) (ticked bool, err error)
}

// Clock supplies the monotonic timestamp passed to TryTick.
type Clock interface {
	Monotonic() float64
}

// Watchdog runs sm_tick on a fixed ~1 Hz schedule via TryTick, so a tick
// already running on the demod thread just makes this firing a no-op rather
// than blocking the watchdog goroutine (base spec §4.5, §5 "the watchdog
// uses a try-lock to skip ticks colliding with a demod-thread tick").
type Watchdog struct {
	scheduler gocron.Scheduler
	sm        TryTicker
	clk       Clock
	interval  time.Duration
}

// New returns a Watchdog that will call sm.TryTick roughly once per
// interval once Start is called. interval should be close to 1 second (base
// spec §4.5 "~1 Hz"); it is not validated further since operators may
// legitimately want a tighter or looser cadence for testing.
func New(sm TryTicker, clk Clock, interval time.Duration) (*Watchdog, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Watchdog{scheduler: s, sm: sm, clk: clk, interval: interval}, nil
}

// Start registers the tick job and starts the underlying scheduler.
func (w *Watchdog) Start() error {
	_, err := w.scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.tick),
		gocron.WithName("p25sm-watchdog-tick"),
	)
	if err != nil {
		return err
	}
	w.scheduler.Start()
	return nil
}

// Stop stops the scheduler cleanly (base spec §5 "the watchdog joins on
// shutdown").
func (w *Watchdog) Stop() error {
	if err := w.scheduler.StopJobs(); err != nil {
		slog.Warn("failed to stop watchdog jobs", "error", err)
	}
	return w.scheduler.Shutdown()
}

// tick is the gocron task body.
func (w *Watchdog) tick(_ context.Context) {
	_, err := w.sm.TryTick(w.clk.Monotonic())
	if err != nil {
		slog.Warn("sm tick failed", "error", err)
	}
}
