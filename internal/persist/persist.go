// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package persist implements the P25 follower's best-effort warm-start
// persistence: the per-(wacn,sysid) candidate cache and the per-TG lockout
// table (base spec §4.2, §6, §9 "treat persistence as advisory and never
// fail the SM if it is unavailable or corrupt"). The default backend is a
// plain line-oriented text file under a per-user data directory, exactly as
// base spec §6 specifies; an optional Redis backend (msgp-encoded records)
// is available for deployments running more than one follower process
// against the same trunked system, grounded on DMRHub's internal/kv
// in-memory/Redis backend split.
package persist

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/arancormonk/dsd-neo-p25sm/internal/config"
)

// Store is the best-effort persistence facade the SM's startup/shutdown
// path consults. Every method is advisory: a failure is logged and the
// caller proceeds as if nothing were persisted.
type Store struct {
	backend backend
}

// backend is the storage-agnostic persistence surface. fileBackend and
// redisBackend both implement it.
type backend interface {
	loadCandidates(ctx context.Context, wacn, sysid uint32) ([]uint64, error)
	saveCandidates(ctx context.Context, wacn, sysid uint32, freqs []uint64) error
	loadLockouts(ctx context.Context) (map[uint32]LockoutRecord, error)
	saveLockouts(ctx context.Context, entries map[uint32]LockoutRecord) error
	close() error
}

// New selects a backend per cfg.RedisEnabled: the local per-user data
// directory by default, or Redis when explicitly opted in. It never
// returns an error for the local backend; a Redis dial failure is returned
// so the caller can decide whether to fall back (New itself does not fall
// back silently, since that decision belongs to the caller's startup log).
func New(cfg *config.Config) (*Store, error) {
	if cfg.RedisEnabled {
		b, err := newRedisBackend(cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis persistence backend: %w", err)
		}
		return &Store{backend: b}, nil
	}
	dir, err := dataDir(cfg.DataDir)
	if err != nil {
		// Per base spec §9, persistence is advisory; fall back to a no-op
		// backend rather than failing SM startup over a data-dir lookup.
		slog.Warn("persist: could not resolve data directory, persistence disabled", "error", err)
		return &Store{backend: noopBackend{}}, nil
	}
	return &Store{backend: newFileBackend(dir)}, nil
}

// LoadCandidates returns the previously persisted CC candidate list for
// (wacn, sysid), or an empty slice if none was found or the load failed.
func (s *Store) LoadCandidates(ctx context.Context, wacn, sysid uint32) []uint64 {
	freqs, err := s.backend.loadCandidates(ctx, wacn, sysid)
	if err != nil {
		slog.Debug("persist: load candidates failed", "wacn", wacn, "sysid", sysid, "error", err)
		return nil
	}
	return freqs
}

// SaveCandidates persists freqs for (wacn, sysid). Failures are logged,
// never returned, per base spec §4.2 "failures are silently ignored but
// logged at verbose>1".
func (s *Store) SaveCandidates(ctx context.Context, wacn, sysid uint32, freqs []uint64) {
	if err := s.backend.saveCandidates(ctx, wacn, sysid, freqs); err != nil {
		slog.Debug("persist: save candidates failed", "wacn", wacn, "sysid", sysid, "error", err)
	}
}

// LoadLockouts returns the previously persisted TG lockout table, or nil if
// none was found or the load failed.
func (s *Store) LoadLockouts(ctx context.Context) map[uint32]LockoutRecord {
	entries, err := s.backend.loadLockouts(ctx)
	if err != nil {
		slog.Debug("persist: load lockouts failed", "error", err)
		return nil
	}
	return entries
}

// SaveLockouts persists the TG lockout table. Failures are logged, never
// returned.
func (s *Store) SaveLockouts(ctx context.Context, entries map[uint32]LockoutRecord) {
	if err := s.backend.saveLockouts(ctx, entries); err != nil {
		slog.Debug("persist: save lockouts failed", "error", err)
	}
}

// Close releases any resources (e.g. the Redis client) held by the
// selected backend.
func (s *Store) Close() error {
	return s.backend.close()
}

// dataDir resolves the per-user data directory base spec §6 requires,
// preferring an explicit override, otherwise os.UserCacheDir()/dsd-neo-p25sm.
func dataDir(override string) (string, error) {
	if override != "" {
		if err := os.MkdirAll(override, 0o755); err != nil {
			return "", fmt.Errorf("failed to create data dir %q: %w", override, err)
		}
		return override, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user cache dir: %w", err)
	}
	dir := filepath.Join(base, "dsd-neo-p25sm")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data dir %q: %w", dir, err)
	}
	return dir, nil
}

// noopBackend is used when even the local data directory cannot be
// resolved; every call is a silent no-op.
type noopBackend struct{}

func (noopBackend) loadCandidates(context.Context, uint32, uint32) ([]uint64, error) { return nil, nil }
func (noopBackend) saveCandidates(context.Context, uint32, uint32, []uint64) error   { return nil }
func (noopBackend) loadLockouts(context.Context) (map[uint32]LockoutRecord, error)   { return nil, nil }
func (noopBackend) saveLockouts(context.Context, map[uint32]LockoutRecord) error     { return nil }
func (noopBackend) close() error                                                     { return nil }
