// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package grant implements the pure grant_allowed predicate (base spec
// §4.3). It has no side effects of its own: callers are responsible for the
// one-shot encryption lock-out emission the predicate signals for.
package grant

// Request describes one grant to be evaluated. It carries only the fields
// grant_allowed needs, independent of how the signaling layer represents a
// grant internally.
type Request struct {
	IsData    bool
	IsPrivate bool
	Encrypted bool
	HasSrc    bool
	HasTG     bool
	Src       uint32
	TG        uint32
}

// Options is the subset of the operator's configuration that the grant
// policy consults.
type Options struct {
	TuneDataCalls    bool
	TunePrivateCalls bool
	TuneEncCalls     bool
	// GroupListMode is the group-list entry's mode for this TG, if any
	// ("" when the TG has no group-list entry). "DE" and "B" both reject
	// (base spec §4.3 rule 3b).
	GroupListMode string
	TGHoldActive  bool
	TGHold        uint32
}

// Reason is a closed set of status tags surfaced to the UI and asserted in
// tests (base spec §9 design note: "define them as a closed enum").
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonBlockedData      Reason = "grant-blocked-data"
	ReasonBlockedPrivate   Reason = "grant-blocked-private"
	ReasonBlockedEnc       Reason = "grant-blocked-enc"
	ReasonBlockedTGHold    Reason = "grant-blocked-tghold"
	ReasonBlockedGroupList Reason = "grant-blocked-grouplist"
	// ReasonBlockedBackoff tags a grant dropped by the SM core's retune
	// backoff guard (base spec §4.4 "Retune backoff guard"), not by this
	// package's own predicate.
	ReasonBlockedBackoff Reason = "grant-blocked-backoff"
)

// Decision is the predicate's verdict.
type Decision struct {
	Allowed bool
	Reason  Reason
	// EmitEncLockout is set when the rejection reason is encryption and the
	// caller must emit the one-shot ENC lock-out event (base spec §4.3 rule
	// 3a, §4.7).
	EmitEncLockout bool
	// RecordAffiliation is set when both Src and TG are known and the
	// caller should record the RID/TG affiliation (base spec §4.3 rule 4).
	RecordAffiliation bool
}

// Allowed evaluates req against opts in the order specified by base spec
// §4.3: data calls, then individual calls, then group calls, first
// rejection wins. keyClear is the caller's precomputed patch-tracker
// key-clear verdict for req.TG (base spec §4.3 rule 3a).
func Allowed(opts Options, req Request, keyClear bool) Decision {
	if req.IsData && !opts.TuneDataCalls {
		return Decision{Reason: ReasonBlockedData}
	}

	if req.IsPrivate {
		if !opts.TunePrivateCalls {
			return Decision{Reason: ReasonBlockedPrivate}
		}
		if req.Encrypted && !opts.TuneEncCalls {
			return Decision{Reason: ReasonBlockedEnc}
		}
		if opts.TGHoldActive {
			return Decision{Reason: ReasonBlockedTGHold}
		}
		return Decision{Allowed: true, RecordAffiliation: req.HasSrc && req.HasTG}
	}

	if req.Encrypted && !opts.TuneEncCalls {
		if !keyClear {
			return Decision{Reason: ReasonBlockedEnc, EmitEncLockout: true}
		}
	}
	if opts.GroupListMode == "DE" || opts.GroupListMode == "B" {
		return Decision{Reason: ReasonBlockedGroupList}
	}
	if opts.TGHoldActive && req.TG != opts.TGHold {
		return Decision{Reason: ReasonBlockedTGHold}
	}

	return Decision{Allowed: true, RecordAffiliation: req.HasSrc && req.HasTG}
}
