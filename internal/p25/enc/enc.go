// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package enc implements the encryption lock-out policy (base spec §4.7):
// the one-shot "emit_enc_lockout_once" guard and the decryptable-stream
// predicate consulted from the TUNED state's ENC event handler. Grounded
// on DMRHub's internal/dmr/rules pure-predicate style.
package enc

import (
	"fmt"
	"sync"

	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/event"
)

const (
	// AlgClear is the ALGID for an unencrypted (clear) stream.
	AlgClear uint8 = 0x00
	// AlgClearAlt is the alternate clear-stream ALGID named in base spec
	// §4.4 ("alg∈{clear, 0x80}").
	AlgClearAlt uint8 = 0x80
)

// IsClearAlg reports whether alg denotes an unencrypted stream.
func IsClearAlg(alg uint8) bool {
	return alg == AlgClear || alg == AlgClearAlt
}

// Decryptable reports whether a stream tagged with alg can be rendered as
// audio: either it is clear, or a key is loaded for its algorithm family
// (base spec §4.4 TUNED/ENC handling).
func Decryptable(alg uint8, keyLoaded bool) bool {
	return IsClearAlg(alg) || keyLoaded
}

// GroupListEntry is the talkgroup-alias table entry the lock-out policy
// annotates (base spec §4.7: "Finds or inserts the TG in the group table
// with mode \"DE\" and name \"ENC LO\" (preserving any user label)").
type GroupListEntry struct {
	Mode string
	Name string
}

// GroupList is the minimal talkgroup-alias registry the lock-out policy
// mutates. A full channel/group-list importer is out of scope (base spec
// §1 Non-goals: "CSV import of channel maps, group lists, key material");
// this holds only what the lock-out and grant-policy group-list-mode checks
// need at runtime.
type GroupList struct {
	mu      sync.Mutex
	entries map[uint32]*GroupListEntry
}

// NewGroupList returns an empty registry.
func NewGroupList() *GroupList {
	return &GroupList{entries: make(map[uint32]*GroupListEntry)}
}

// Entry returns a copy of tg's entry, or the zero value if absent.
func (g *GroupList) Entry(tg uint32) GroupListEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.entries[tg]; ok {
		return *e
	}
	return GroupListEntry{}
}

// Mode returns tg's group-list mode, or "" if it has no entry.
func (g *GroupList) Mode(tg uint32) string {
	return g.Entry(tg).Mode
}

func (g *GroupList) markLockedOut(tg uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[tg]
	if !ok {
		e = &GroupListEntry{}
		g.entries[tg] = e
	}
	e.Mode = "DE"
	if e.Name == "" {
		e.Name = "ENC LO"
	}
}

// Clear resets tg's mode, allowing a future lockout to be emitted again
// (base spec §3 invariant: "at most once until its mode entry is cleared
// externally").
func (g *GroupList) Clear(tg uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, tg)
}

// Snapshot returns a copy of the current TG→entry table, for best-effort
// persistence of the lockout table (base spec §4.2-style persist/load,
// applied here to the group list rather than the candidate store).
func (g *GroupList) Snapshot() map[uint32]GroupListEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[uint32]GroupListEntry, len(g.entries))
	for tg, e := range g.entries {
		out[tg] = *e
	}
	return out
}

// Restore repopulates the table from a prior Snapshot. It never fails; a
// corrupt or truncated snapshot just yields a smaller table (base spec §9
// "treat persistence as advisory").
func (g *GroupList) Restore(entries map[uint32]GroupListEntry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = make(map[uint32]*GroupListEntry, len(entries))
	for tg, e := range entries {
		entry := e
		g.entries[tg] = &entry
	}
}

// Policy enforces the one-shot encryption lock-out per TG.
type Policy struct {
	list      *GroupList
	mu        sync.Mutex
	lockedOut map[uint32]struct{}
}

// NewPolicy returns a lock-out policy backed by list.
func NewPolicy(list *GroupList) *Policy {
	return &Policy{list: list, lockedOut: make(map[uint32]struct{})}
}

// EmitOnce marks tg as encryption-locked-out and records one history event
// on sink, unless it was already locked out since the last Clear. It
// returns true if this call actually emitted the event.
func (p *Policy) EmitOnce(tg uint32, slot int, now float64, sink *event.Sink) bool {
	p.mu.Lock()
	if _, already := p.lockedOut[tg]; already {
		p.mu.Unlock()
		return false
	}
	p.lockedOut[tg] = struct{}{}
	p.mu.Unlock()

	p.list.markLockedOut(tg)
	if sink != nil {
		sink.Record(event.Event{
			Slot:  slot,
			Color: event.ColorWarning,
			Time:  now,
			Text:  fmt.Sprintf("Target %d has been locked out; Encryption Lock Out Enabled", tg),
		})
	}
	return true
}

// Clear removes tg's lock-out, both from the internal one-shot guard and
// from the group-list entry.
func (p *Policy) Clear(tg uint32) {
	p.mu.Lock()
	delete(p.lockedOut, tg)
	p.mu.Unlock()
	p.list.Clear(tg)
}

// LockedOut reports whether tg currently carries the one-shot lock-out.
func (p *Policy) LockedOut(tg uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.lockedOut[tg]
	return ok
}
