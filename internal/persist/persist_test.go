// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package persist_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arancormonk/dsd-neo-p25sm/internal/config"
	"github.com/arancormonk/dsd-neo-p25sm/internal/persist"
)

func newTestStore(t *testing.T) *persist.Store {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.DataDir = t.TempDir()
	store, err := persist.New(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCandidatesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	freqs := []uint64{851012500, 851512500, 852250000}
	store.SaveCandidates(ctx, 0xBEE00, 0x123, freqs)

	got := store.LoadCandidates(ctx, 0xBEE00, 0x123)
	assert.Equal(t, freqs, got)
}

func TestCandidatesLoadMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)
	got := store.LoadCandidates(context.Background(), 1, 2)
	assert.Nil(t, got)
}

func TestCandidatesKeyedByWacnSysid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.SaveCandidates(ctx, 1, 1, []uint64{100})
	store.SaveCandidates(ctx, 1, 2, []uint64{200})

	assert.Equal(t, []uint64{100}, store.LoadCandidates(ctx, 1, 1))
	assert.Equal(t, []uint64{200}, store.LoadCandidates(ctx, 1, 2))
}

func TestLockoutsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entries := map[uint32]persist.LockoutRecord{
		52198: {TG: 52198, Mode: "DE", Name: "ENC LO"},
		100:   {TG: 100, Mode: "DE", Name: ""},
	}
	store.SaveLockouts(ctx, entries)

	got := store.LoadLockouts(ctx)
	if diff := cmp.Diff(entries, got); diff != "" {
		t.Errorf("lockout record round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLockoutsLoadMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)
	assert.Nil(t, store.LoadLockouts(context.Background()))
}

func TestCorruptCandidateFileSkipsBadLines(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.DataDir = t.TempDir()

	path := filepath.Join(cfg.DataDir, "candidates-1-1.txt")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number\n851012500\n\n"), 0o644))

	store, err := persist.New(&cfg)
	require.NoError(t, err)
	defer store.Close()

	got := store.LoadCandidates(context.Background(), 1, 1)
	assert.Equal(t, []uint64{851012500}, got)
}

func TestNewCreatesDataDir(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.DataDir = filepath.Join(t.TempDir(), "nested", "data")

	store, err := persist.New(&cfg)
	require.NoError(t, err)
	defer store.Close()

	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
