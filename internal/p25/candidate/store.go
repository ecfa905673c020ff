// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package candidate implements the bounded FIFO of control-channel
// candidates with cooldowns (base spec §3 CandidateStore, §4.2) and the
// bounded recent-neighbor set (base spec §3 NeighborTable).
package candidate

import (
	"sync"

	"github.com/arancormonk/dsd-neo-p25sm/internal/clock"
)

// maxEntries is the fixed CandidateStore capacity (base spec §3).
const maxEntries = 16

type entry struct {
	freqHz    uint64
	coolUntil float64
}

// Store is a bounded, insertion-ordered FIFO of CC candidate frequencies
// with per-entry cooldowns and a round-robin iterator cursor.
type Store struct {
	mu      sync.Mutex
	clk     clock.Source
	entries []entry
	cursor  int
}

// NewStore returns an empty candidate store driven by clk's monotonic time.
func NewStore(clk clock.Source) *Store {
	return &Store{clk: clk}
}

// Add inserts freqHz if not already present; duplicate inserts are
// coalesced (base spec §4.2 "add is idempotent"). On overflow the oldest
// entry is evicted (base spec §3 "bounded FIFO... on overflow, oldest
// evicted").
func (s *Store) Add(freqHz uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].freqHz == freqHz {
			return
		}
	}
	if len(s.entries) >= maxEntries {
		s.entries = s.entries[1:]
		if s.cursor > 0 {
			s.cursor--
		}
	}
	s.entries = append(s.entries, entry{freqHz: freqHz})
}

// Cooldown marks freqHz unavailable to Next for the given number of
// seconds from now.
func (s *Store) Cooldown(freqHz uint64, seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until := s.clk.Monotonic() + seconds
	for i := range s.entries {
		if s.entries[i].freqHz == freqHz {
			s.entries[i].coolUntil = until
			return
		}
	}
}

// Next returns the next candidate in round-robin insertion order, skipping
// entries still in cooldown and the currently tuned CC frequency
// (base spec §4.2). It advances the internal cursor so repeated calls
// sweep the whole set before revisiting an entry.
func (s *Store) Next(currentCC uint64) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	if n == 0 {
		return 0, false
	}
	now := s.clk.Monotonic()
	for i := 0; i < n; i++ {
		idx := (s.cursor + i) % n
		e := s.entries[idx]
		if e.freqHz == currentCC {
			continue
		}
		if now < e.coolUntil {
			continue
		}
		s.cursor = (idx + 1) % n
		return e.freqHz, true
	}
	return 0, false
}

// Len returns the current number of candidates.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Snapshot returns a copy of the stored frequencies in insertion order, for
// best-effort persistence (base spec §4.2 persist/load).
func (s *Store) Snapshot() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.freqHz
	}
	return out
}

// Restore repopulates the store from a prior Snapshot, ignoring entries
// beyond capacity. Restore never fails; a corrupt or truncated snapshot
// just yields a smaller store (base spec §9 "treat persistence as
// advisory").
func (s *Store) Restore(freqs []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
	s.cursor = 0
	for _, f := range freqs {
		if len(s.entries) >= maxEntries {
			break
		}
		dup := false
		for _, e := range s.entries {
			if e.freqHz == f {
				dup = true
				break
			}
		}
		if !dup {
			s.entries = append(s.entries, entry{freqHz: f})
		}
	}
}
