// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package affiliation tracks radio-unit and radio-unit/talkgroup
// affiliations observed on the control channel (base spec §3
// AffiliationTable, GroupAffiliationTable). Reads are lock-free so the UI
// thread never contends with the SM mutex for a snapshot (base spec §5
// "readers on the UI thread take a short read lock... and accept
// eventually-consistent values").
package affiliation

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arancormonk/dsd-neo-p25sm/internal/clock"
)

const (
	// ridTableSize is the AffiliationTable capacity (base spec §3: "256 slots").
	ridTableSize = 256
	// ridTableTTLSeconds is the AffiliationTable TTL (base spec §3: "15 min").
	ridTableTTLSeconds = 15 * 60

	// groupTableSize is the GroupAffiliationTable capacity (base spec §3: "512 slots").
	groupTableSize = 512
	// groupTableTTLSeconds is the GroupAffiliationTable TTL (base spec §3: "30 min").
	groupTableTTLSeconds = 30 * 60
)

// Table tracks affiliated radio IDs with a last-seen timestamp, evicting
// the stalest entry on overflow (base spec §3 AffiliationTable).
type Table struct {
	clk     clock.Source
	entries *xsync.Map[uint32, float64]
	size    atomic.Int64
	mu      sync.Mutex // serializes overflow eviction against concurrent inserts
}

// NewTable returns an empty AffiliationTable.
func NewTable(clk clock.Source) *Table {
	return &Table{clk: clk, entries: xsync.NewMap[uint32, float64]()}
}

// Observe records rid as seen just now.
func (t *Table) Observe(rid uint32) {
	now := t.clk.Monotonic()
	if _, existed := t.entries.Load(rid); existed {
		t.entries.Store(rid, now)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, existed := t.entries.Load(rid); existed {
		t.entries.Store(rid, now)
		return
	}
	if t.size.Load() >= ridTableSize {
		t.evictStalestLocked()
	}
	t.entries.Store(rid, now)
	t.size.Add(1)
}

func (t *Table) evictStalestLocked() {
	var stalestRID uint32
	stalestTime := 0.0
	first := true
	t.entries.Range(func(rid uint32, last float64) bool {
		if first || last < stalestTime {
			stalestRID = rid
			stalestTime = last
			first = false
		}
		return true
	})
	if !first {
		t.entries.Delete(stalestRID)
		t.size.Add(-1)
	}
}

// Active reports whether rid was observed within the TTL.
func (t *Table) Active(rid uint32) bool {
	last, ok := t.entries.Load(rid)
	if !ok {
		return false
	}
	return t.clk.Monotonic()-last <= ridTableTTLSeconds
}

// Prune drops entries older than the TTL.
func (t *Table) Prune() {
	now := t.clk.Monotonic()
	var stale []uint32
	t.entries.Range(func(rid uint32, last float64) bool {
		if now-last > ridTableTTLSeconds {
			stale = append(stale, rid)
		}
		return true
	})
	for _, rid := range stale {
		if _, ok := t.entries.LoadAndDelete(rid); ok {
			t.size.Add(-1)
		}
	}
}

// groupKey identifies one (rid, tg) affiliation.
type groupKey struct {
	rid uint32
	tg  uint32
}

// GroupTable tracks RID↔TG affiliations with a last-seen timestamp
// (base spec §3 GroupAffiliationTable).
type GroupTable struct {
	clk     clock.Source
	entries *xsync.Map[groupKey, float64]
	size    atomic.Int64
	mu      sync.Mutex
}

// NewGroupTable returns an empty GroupAffiliationTable.
func NewGroupTable(clk clock.Source) *GroupTable {
	return &GroupTable{clk: clk, entries: xsync.NewMap[groupKey, float64]()}
}

// Observe records that rid is affiliated with tg as of now.
func (g *GroupTable) Observe(rid, tg uint32) {
	key := groupKey{rid: rid, tg: tg}
	now := g.clk.Monotonic()
	if _, existed := g.entries.Load(key); existed {
		g.entries.Store(key, now)
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, existed := g.entries.Load(key); existed {
		g.entries.Store(key, now)
		return
	}
	if g.size.Load() >= groupTableSize {
		g.evictStalestLocked()
	}
	g.entries.Store(key, now)
	g.size.Add(1)
}

func (g *GroupTable) evictStalestLocked() {
	var stalestKey groupKey
	stalestTime := 0.0
	first := true
	g.entries.Range(func(key groupKey, last float64) bool {
		if first || last < stalestTime {
			stalestKey = key
			stalestTime = last
			first = false
		}
		return true
	})
	if !first {
		g.entries.Delete(stalestKey)
		g.size.Add(-1)
	}
}

// Active reports whether (rid, tg) was observed within the TTL.
func (g *GroupTable) Active(rid, tg uint32) bool {
	last, ok := g.entries.Load(groupKey{rid: rid, tg: tg})
	if !ok {
		return false
	}
	return g.clk.Monotonic()-last <= groupTableTTLSeconds
}

// Prune drops entries older than the TTL.
func (g *GroupTable) Prune() {
	now := g.clk.Monotonic()
	var stale []groupKey
	g.entries.Range(func(key groupKey, last float64) bool {
		if now-last > groupTableTTLSeconds {
			stale = append(stale, key)
		}
		return true
	})
	for _, key := range stale {
		if _, ok := g.entries.LoadAndDelete(key); ok {
			g.size.Add(-1)
		}
	}
}
