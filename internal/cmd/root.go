// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package cmd wires the P25 follower's CLI entry point: config resolution,
// logging, persistence restore/save, tuner selection, the state machine,
// the watchdog ticker, and the optional metrics server (base spec §6 CLI
// surface, §4.5 watchdog, §9 "treat persistence as advisory").
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/arancormonk/dsd-neo-p25sm/internal/clock"
	"github.com/arancormonk/dsd-neo-p25sm/internal/config"
	"github.com/arancormonk/dsd-neo-p25sm/internal/logging"
	"github.com/arancormonk/dsd-neo-p25sm/internal/metrics"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/enc"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/event"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/iden"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/sm"
	"github.com/arancormonk/dsd-neo-p25sm/internal/persist"
	"github.com/arancormonk/dsd-neo-p25sm/internal/pprof"
	"github.com/arancormonk/dsd-neo-p25sm/internal/tuner"
	"github.com/arancormonk/dsd-neo-p25sm/internal/watchdog"
)

// watchdogInterval is the fixed ~1 Hz cadence base spec §4.5 calls for.
const watchdogInterval = 1 * time.Second

// shutdownGrace bounds how long graceful shutdown waits for the metrics and
// pprof servers to stop and for the final persistence saves; stopping the
// watchdog takes no context and is not bounded by it.
const shutdownGrace = 5 * time.Second

// NewCommand builds the root cobra command. version/commit are baked in by
// the build (ldflags), mirroring the teacher's version/commit annotation
// pattern.
func NewCommand(version, commit string) *cobra.Command {
	var cli config.Config
	cmd := &cobra.Command{
		Use:     "p25sm",
		Short:   "P25 trunking follower state machine",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd.Flags(), cli)
		},
	}
	config.Flags(cmd.Flags(), &cli)
	return cmd
}

// runRoot resolves configuration, wires every collaborator, runs until a
// shutdown signal arrives, then persists what it can before exiting.
func runRoot(fs *pflag.FlagSet, cli config.Config) error {
	cfg, err := config.Resolve(fs, cli)
	if err != nil {
		return fmt.Errorf("failed to resolve configuration: %w", err)
	}

	logging.Setup(cfg.LogLevel)

	tp := newTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		if cerr := tp.Shutdown(context.Background()); cerr != nil {
			slog.Warn("failed to shut down tracer provider", "error", cerr)
		}
	}()

	eventLog, err := logging.NewEventLog(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer func() {
		if cerr := eventLog.Close(); cerr != nil {
			slog.Warn("failed to close event log", "error", cerr)
		}
	}()

	store, err := persist.New(&cfg)
	if err != nil {
		return fmt.Errorf("failed to create persistence store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			slog.Warn("failed to close persistence store", "error", cerr)
		}
	}()

	adapter, err := newTunerAdapter(&cfg)
	if err != nil {
		return fmt.Errorf("failed to create tuner adapter: %w", err)
	}
	defer func() {
		if cerr := adapter.Close(); cerr != nil {
			slog.Warn("failed to close tuner adapter", "error", cerr)
		}
	}()

	met := metrics.NewMetrics()
	sink := event.NewSink(eventLog)
	clk := clock.NewSystem()

	ctx := sm.New(&cfg, clk, adapter, sink, met)

	ctx.Candidates.Restore(store.LoadCandidates(context.Background(), 0, 0))
	ctx.GroupList.Restore(fromLockoutRecords(store.LoadLockouts(context.Background())))

	wd, err := watchdog.New(ctx, clk, watchdogInterval)
	if err != nil {
		return fmt.Errorf("failed to create watchdog: %w", err)
	}
	if err := wd.Start(); err != nil {
		return fmt.Errorf("failed to start watchdog: %w", err)
	}

	var metricsServer *metrics.Server
	var pprofServer *pprof.Server
	serverErrCh := make(chan error, 2)
	if cfg.MetricsEnabled {
		metricsServer = metrics.NewServer(&cfg)
		go func() { serverErrCh <- metricsServer.Serve() }()
		slog.Info("metrics server listening", "bind", cfg.MetricsBind, "port", cfg.MetricsPort)
	}
	if cfg.PProfEnabled {
		pprofServer = pprof.NewServer(&cfg)
		go func() { serverErrCh <- pprofServer.Serve() }()
		slog.Info("pprof server listening", "bind", cfg.PProfBind, "port", cfg.PProfPort)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	slog.Info("p25sm running", "trunking", cfg.Trunking, "tuner", cfg.TunerKind)

	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-serverErrCh:
		if err != nil {
			slog.Error("ambient server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := wd.Stop(); err != nil {
		slog.Warn("failed to stop watchdog cleanly", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to shut down metrics server cleanly", "error", err)
		}
	}
	if pprofServer != nil {
		if err := pprofServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to shut down pprof server cleanly", "error", err)
		}
	}

	wacn, sysid := currentSiteID(ctx.Idens)
	store.SaveCandidates(shutdownCtx, wacn, sysid, ctx.Candidates.Snapshot())
	store.SaveLockouts(shutdownCtx, toLockoutRecords(ctx.GroupList.Snapshot()))

	return nil
}

// newTracerProvider builds the SDK TracerProvider backing the SM's
// instrumentation spans (internal/p25/sm uses otel.Tracer("p25sm")). No
// exporter is wired yet, so spans are sampled and dropped at the end of the
// pipeline; this gives a real provider to attach a batcher/exporter to later
// without touching the instrumented code, mirroring the teacher's
// SetTracerProvider wiring point.
func newTracerProvider() *sdktrace.TracerProvider {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", "p25sm"),
	))
	if err != nil {
		res = resource.Default()
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
	)
}

// newTunerAdapter selects the tuner.Adapter implementation named by
// cfg.TunerKind (base spec §4.6). config.Validate already guarantees the
// addresses required by sdr/rigctl are non-empty.
func newTunerAdapter(cfg *config.Config) (tuner.Adapter, error) {
	switch cfg.TunerKind {
	case config.TunerKindSDR:
		return tuner.NewSDR(cfg.SDRAddr, cfg.SDRPPM, cfg.SDRAGC), nil
	case config.TunerKindRigctl:
		return tuner.NewRigctl(cfg.RigctlAddr), nil
	case config.TunerKindNoop:
		return tuner.NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown tuner kind %q", cfg.TunerKind)
	}
}

// currentSiteID returns the (wacn, sysid) of the most-trusted IDEN entry
// currently known, for keying the on-disk candidate cache (base spec §3
// CandidateStore "Optional on-disk cache keyed by (wacn, sysid)"). It
// returns (0, 0) when nothing has been learned yet, which is still a valid
// cache key for a single-system deployment.
func currentSiteID(idens *iden.Table) (wacn, sysid uint32) {
	for i := uint8(0); i < 16; i++ {
		entry, ok := idens.Entry(i)
		if !ok || entry.Trust < iden.TrustOnCC {
			continue
		}
		return entry.Provenance.WACN, entry.Provenance.SysID
	}
	return 0, 0
}

// toLockoutRecords adapts a GroupList snapshot to the persistence package's
// wire record shape.
func toLockoutRecords(entries map[uint32]enc.GroupListEntry) map[uint32]persist.LockoutRecord {
	out := make(map[uint32]persist.LockoutRecord, len(entries))
	for tg, e := range entries {
		out[tg] = persist.LockoutRecord{TG: tg, Mode: e.Mode, Name: e.Name}
	}
	return out
}

// fromLockoutRecords is toLockoutRecords' inverse, used to restore a
// GroupList from a loaded persistence snapshot.
func fromLockoutRecords(records map[uint32]persist.LockoutRecord) map[uint32]enc.GroupListEntry {
	if records == nil {
		return nil
	}
	out := make(map[uint32]enc.GroupListEntry, len(records))
	for tg, r := range records {
		out[tg] = enc.GroupListEntry{Mode: r.Mode, Name: r.Name}
	}
	return out
}
