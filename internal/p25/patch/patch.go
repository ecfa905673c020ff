// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package patch tracks P25 patch/regroup super-group membership
// (base spec §3 PatchTable). A key-clear super-group (KEY=0000) lets the
// grant policy (internal/p25/grant) bypass encryption lock-out for its
// member talkgroups.
package patch

import (
	"sync"

	"github.com/arancormonk/dsd-neo-p25sm/internal/clock"
)

const (
	// maxSuperGroups bounds the table (base spec §3: "up to 8 super-groups").
	maxSuperGroups = 8
	// maxMembers bounds each super-group's member list (base spec §3:
	// "member_tgs[8], member_rids[8]").
	maxMembers = 8
	// ttlSeconds is the super-group TTL (base spec §3: "TTL 10 min").
	ttlSeconds = 10 * 60
	// keyClear is the sentinel ALGID/key value meaning "KEY=0000", the
	// clear-override signal (base spec §3).
	keyClear = 0
)

// SuperGroup is one patch/regroup entry.
type SuperGroup struct {
	SGID       uint32
	IsPatch    bool
	Active     bool
	LastUpdate float64
	MemberTGs  [maxMembers]uint32
	MemberRIDs [maxMembers]uint32
	Alg        uint8
	Key        uint16
	SSN        uint16
}

// KeyClear reports whether this super-group's key is the KEY=0000
// clear-override sentinel.
func (s SuperGroup) KeyClear() bool {
	return s.Key == keyClear
}

// Table holds up to maxSuperGroups active patches/regroups.
type Table struct {
	mu     sync.Mutex
	clk    clock.Source
	groups map[uint32]*SuperGroup
	order  []uint32
}

// NewTable returns an empty PatchTable.
func NewTable(clk clock.Source) *Table {
	return &Table{clk: clk, groups: make(map[uint32]*SuperGroup)}
}

// Upsert creates or refreshes a super-group entry, evicting the oldest
// entry by LastUpdate if the table is full and sgid is new.
func (t *Table) Upsert(sg SuperGroup) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sg.LastUpdate = t.clk.Monotonic()
	if _, exists := t.groups[sg.SGID]; !exists {
		if len(t.order) >= maxSuperGroups {
			t.evictOldestLocked()
		}
		t.order = append(t.order, sg.SGID)
	}
	stored := sg
	t.groups[sg.SGID] = &stored
}

func (t *Table) evictOldestLocked() {
	if len(t.order) == 0 {
		return
	}
	oldestIdx := 0
	oldestTime := t.groups[t.order[0]].LastUpdate
	for i, sgid := range t.order {
		if g := t.groups[sgid]; g.LastUpdate < oldestTime {
			oldestTime = g.LastUpdate
			oldestIdx = i
		}
	}
	delete(t.groups, t.order[oldestIdx])
	t.order = append(t.order[:oldestIdx], t.order[oldestIdx+1:]...)
}

// Lookup returns a copy of the super-group for sgid, if present and not
// expired.
func (t *Table) Lookup(sgid uint32) (SuperGroup, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.groups[sgid]
	if !ok {
		return SuperGroup{}, false
	}
	if t.clk.Monotonic()-g.LastUpdate > ttlSeconds {
		return SuperGroup{}, false
	}
	return *g, true
}

// KeyClearForTG reports whether tg is a member of any active, non-expired
// super-group whose key is KEY=0000 (base spec §4.3 group-grant policy:
// "allow only when patch tracker marks tg or enclosing super-group as
// key-clear").
func (t *Table) KeyClearForTG(tg uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clk.Monotonic()
	for _, sgid := range t.order {
		g := t.groups[sgid]
		if now-g.LastUpdate > ttlSeconds || !g.Active || !g.KeyClear() {
			continue
		}
		for _, member := range g.MemberTGs {
			if member == tg {
				return true
			}
		}
	}
	return false
}

// Prune drops super-groups older than the TTL.
func (t *Table) Prune() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clk.Monotonic()
	kept := t.order[:0]
	for _, sgid := range t.order {
		if now-t.groups[sgid].LastUpdate > ttlSeconds {
			delete(t.groups, sgid)
			continue
		}
		kept = append(kept, sgid)
	}
	t.order = kept
}
