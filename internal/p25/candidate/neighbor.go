// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package candidate

import (
	"sync"

	"github.com/arancormonk/dsd-neo-p25sm/internal/clock"
)

// neighborTTLSeconds is the UI display TTL for a neighbor CC entry
// (base spec §3 "TTL ~10 min").
const neighborTTLSeconds = 10 * 60

// maxNeighbors bounds the neighbor set; base spec describes it only as
// "bounded", this mirrors the CandidateStore capacity.
const maxNeighbors = 16

// NeighborTable is a bounded, TTL-aged set of recently observed neighbor
// control-channel frequencies, kept for UI display only.
type NeighborTable struct {
	mu    sync.Mutex
	clk   clock.Source
	seen  map[uint64]float64
	order []uint64
}

// NewNeighborTable returns an empty neighbor table driven by clk.
func NewNeighborTable(clk clock.Source) *NeighborTable {
	return &NeighborTable{clk: clk, seen: make(map[uint64]float64)}
}

// Observe records freqHz as seen just now, evicting the stalest entry if
// the table is at capacity and freqHz is new.
func (n *NeighborTable) Observe(freqHz uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.clk.Monotonic()
	if _, ok := n.seen[freqHz]; !ok {
		if len(n.order) >= maxNeighbors {
			n.evictStalestLocked()
		}
		n.order = append(n.order, freqHz)
	}
	n.seen[freqHz] = now
}

func (n *NeighborTable) evictStalestLocked() {
	if len(n.order) == 0 {
		return
	}
	stalestIdx := 0
	stalestTime := n.seen[n.order[0]]
	for i, f := range n.order {
		if t := n.seen[f]; t < stalestTime {
			stalestTime = t
			stalestIdx = i
		}
	}
	stale := n.order[stalestIdx]
	delete(n.seen, stale)
	n.order = append(n.order[:stalestIdx], n.order[stalestIdx+1:]...)
}

// Snapshot returns the non-expired neighbor frequencies, most recently
// seen first.
func (n *NeighborTable) Snapshot() []uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.clk.Monotonic()
	type pair struct {
		freq uint64
		last float64
	}
	pairs := make([]pair, 0, len(n.order))
	for _, f := range n.order {
		last := n.seen[f]
		if now-last > neighborTTLSeconds {
			continue
		}
		pairs = append(pairs, pair{f, last})
	}
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j].last > pairs[j-1].last; j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}
	out := make([]uint64, len(pairs))
	for i, p := range pairs {
		out[i] = p.freq
	}
	return out
}

// Prune drops entries that have aged past the TTL, for periodic cleanup
// from the watchdog tick.
func (n *NeighborTable) Prune() {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.clk.Monotonic()
	kept := n.order[:0]
	for _, f := range n.order {
		if now-n.seen[f] > neighborTTLSeconds {
			delete(n.seen, f)
			continue
		}
		kept = append(kept, f)
	}
	n.order = kept
}
