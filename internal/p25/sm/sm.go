// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package sm

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/arancormonk/dsd-neo-p25sm/internal/clock"
	"github.com/arancormonk/dsd-neo-p25sm/internal/config"
	"github.com/arancormonk/dsd-neo-p25sm/internal/metrics"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/affiliation"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/candidate"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/enc"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/event"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/grant"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/iden"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/patch"
	"github.com/arancormonk/dsd-neo-p25sm/internal/tuner"
)

// ccHuntEvalWindowSeconds is the hunt-candidate evaluation window (base spec
// §4.4 HUNTING: "start a 3-second eval window").
const ccHuntEvalWindowSeconds = 3.0

// ccHuntCooldownSeconds is how long a candidate that failed its eval window
// is skipped (base spec §4.4: "cool down that candidate for 10 s").
const ccHuntCooldownSeconds = 10.0

// action is a device call the caller must perform once the SM mutex has
// been released (base spec §5: tune/return calls "must not be called while
// holding the SM lock").
type action func(tuner.Adapter) error

// Context is the singleton P25 follower state machine (base spec §3
// SmContext). All mutation goes through HandleEvent/Tick under one mutex;
// the tuner adapter is always invoked after the mutex is released.
type Context struct {
	mu sync.Mutex

	clk    clock.Source
	cfg    *config.Config
	tuner  tuner.Adapter
	sink   *event.Sink
	met    *metrics.Metrics

	Idens        *iden.Table
	Candidates   *candidate.Store
	Neighbors    *candidate.NeighborTable
	Affiliations *affiliation.Table
	GroupAffils  *affiliation.GroupTable
	Patches      *patch.Table
	GroupList    *enc.GroupList
	encPolicy    *enc.Policy

	state      State
	vc         VC
	vcSlotHint int
	slots      [2]SlotState

	tTuneM         float64
	tVoiceM        float64
	tCCSyncM       float64
	tHuntTryM      float64
	posthangStartM float64

	backoff  Backoff
	counters Counters

	p1ErrHoldUntilM  float64
	p1ErrSamples     [5]float64
	p1ErrSampleIdx   int
	p1ErrSampleCount int

	huntEvalDeadlineM float64
	huntCandidateFreq uint64
	huntCandidateSet  bool

	lastKnownCC uint64

	manualChannels []uint64
	manualIdx      int
}

// New returns a Context in state IDLE, wired to the given collaborators.
// met may be nil (metrics are then skipped); sink may be nil (history is
// then dropped, matching event.Sink's own nil-log behavior).
func New(cfg *config.Config, clk clock.Source, t tuner.Adapter, sink *event.Sink, met *metrics.Metrics) *Context {
	groupList := enc.NewGroupList()
	return &Context{
		clk:          clk,
		cfg:          cfg,
		tuner:        t,
		sink:         sink,
		met:          met,
		Idens:        iden.NewTable(),
		Candidates:   candidate.NewStore(clk),
		Neighbors:    candidate.NewNeighborTable(clk),
		Affiliations: affiliation.NewTable(clk),
		GroupAffils:  affiliation.NewGroupTable(clk),
		Patches:      patch.NewTable(clk),
		GroupList:    groupList,
		encPolicy:    enc.NewPolicy(groupList),
		state:        StateIDLE,
	}
}

// PresetCC puts the context directly into ON_CC on a known control-channel
// frequency (base spec §3: "initial IDLE (or ON_CC if a CC frequency is
// preset)").
func (c *Context) PresetCC(freqHz uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateOnCC
	c.lastKnownCC = freqHz
	c.tCCSyncM = c.clk.Monotonic()
	c.setStateMetric()
}

// SetManualChannels installs the operator-supplied LCN list consulted
// during HUNTING when PreferCCCandidates is false (base spec §4.4
// try_next_cc: "else a user-supplied LCN list (round-robin, skipping
// duplicates)"). Channels are deduplicated in order.
func (c *Context) SetManualChannels(freqs []uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[uint64]struct{}, len(freqs))
	out := make([]uint64, 0, len(freqs))
	for _, f := range freqs {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	c.manualChannels = out
	c.manualIdx = 0
}

// State returns the current SM state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Counters returns a copy of the observability counters.
func (c *Context) Counters() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters
}

// VC returns a copy of the currently tuned voice channel; zero value if not
// TUNED.
func (c *Context) VC() VC {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vc
}

// HandleEvent processes one typed signaling event (base spec §2 Flow,
// §4.4). Any device call the transition requires is performed after the
// mutex is released.
func (c *Context) HandleEvent(ev Event) error {
	_, span := otel.Tracer("p25sm").Start(context.Background(), "sm.HandleEvent")
	defer span.End()

	c.mu.Lock()
	act := c.handleEventLocked(ev)
	c.mu.Unlock()
	if act != nil {
		return act(c.tuner)
	}
	return nil
}

// Tick drives the time-based maintenance a watchdog or demod-loop caller
// invokes at ~1 Hz (base spec §4.4, §4.5).
func (c *Context) Tick(now float64) error {
	_, span := otel.Tracer("p25sm").Start(context.Background(), "sm.Tick")
	defer span.End()

	start := c.clk.Monotonic()
	c.mu.Lock()
	act := c.tickLocked(now)
	c.mu.Unlock()
	if c.met != nil {
		c.met.ObserveTick(c.clk.Monotonic() - start)
	}
	if act != nil {
		return act(c.tuner)
	}
	return nil
}

// TryTick is Tick's try-lock variant (base spec §4.5, §5: "calls sm_tick
// while holding a try-lock; if a tick is already in progress on the demod
// thread it is a no-op"). It reports ticked=false without error when the
// mutex is already held, so the watchdog can distinguish "skipped" from
// "ran and failed".
func (c *Context) TryTick(now float64) (ticked bool, err error) {
	_, span := otel.Tracer("p25sm").Start(context.Background(), "sm.TryTick")
	defer span.End()

	if !c.mu.TryLock() {
		return false, nil
	}
	start := c.clk.Monotonic()
	act := c.tickLocked(now)
	c.mu.Unlock()
	if c.met != nil {
		c.met.ObserveTick(c.clk.Monotonic() - start)
	}
	if act != nil {
		return true, act(c.tuner)
	}
	return true, nil
}

func (c *Context) setStateMetric() {
	if c.met != nil {
		c.met.SetState(c.state.String())
	}
}

func (c *Context) handleEventLocked(ev Event) action {
	switch c.state {
	case StateIDLE:
		return c.handleIdleLocked(ev)
	case StateOnCC:
		return c.handleOnCCLocked(ev)
	case StateTuned:
		return c.handleTunedLocked(ev)
	case StateHunting:
		return c.handleHuntingLocked(ev)
	default:
		return nil
	}
}

func (c *Context) handleIdleLocked(ev Event) action {
	if ev.Kind == EvCCSync {
		c.state = StateOnCC
		c.tCCSyncM = ev.Time
		c.setStateMetric()
	}
	return nil
}

func (c *Context) handleOnCCLocked(ev Event) action {
	switch ev.Kind {
	case EvCCSync:
		c.tCCSyncM = ev.Time
	case EvNeighborUpdate:
		if ev.FreqHz != 0 {
			c.Neighbors.Observe(ev.FreqHz)
			if c.cfg.PreferCCCandidates {
				c.Candidates.Add(ev.FreqHz)
			}
		}
	case EvGrant:
		return c.handleGrantLocked(ev)
	}
	return nil
}

func (c *Context) handleTunedLocked(ev Event) action {
	switch ev.Kind {
	case EvPTT, EvActive:
		if ev.Slot == 0 || ev.Slot == 1 {
			c.slots[ev.Slot].VoiceActive = true
			c.slots[ev.Slot].LastActiveM = ev.Time
		}
		c.tVoiceM = ev.Time
		if ev.HasP1ErrPct {
			c.recordP1ErrSample(ev.P1ErrPct, ev.Time)
		}
	case EvEnd, EvIdle, EvTDU:
		if ev.Slot == 0 || ev.Slot == 1 {
			c.slots[ev.Slot].VoiceActive = false
		}
		if !c.slots[0].VoiceActive && !c.slots[1].VoiceActive &&
			c.cfg.HangtimeSeconds == 0 && ev.Time-c.tTuneM >= c.cfg.VCGraceSeconds {
			return c.releaseLocked(ReasonHangtimeExpired, ev.Time)
		}
	case EvVCSync:
		// VC_SYNC counts as voice observed for the grant-timeout invariant
		// (base spec §8 "no PTT/ACTIVE/VC_SYNC arrives") without itself
		// asserting a slot's voice_active flag.
		c.tVoiceM = ev.Time
	case EvCCSync:
		// Ignored while TUNED except to remember the last-known CC
		// frequency if one was never recorded (base spec §4.4).
		if c.lastKnownCC == 0 && ev.FreqHz != 0 {
			c.lastKnownCC = ev.FreqHz
		}
	case EvEnc:
		return c.handleEncLocked(ev)
	case EvGrant:
		return c.handleTunedGrantLocked(ev)
	case EvCallTermination:
		return c.releaseLocked(ReasonCallTermination, ev.Time)
	}
	return nil
}

func (c *Context) handleHuntingLocked(ev Event) action {
	if ev.Kind == EvCCSync {
		c.state = StateOnCC
		c.tCCSyncM = ev.Time
		c.huntEvalDeadlineM = 0
		c.huntCandidateSet = false
		c.setStateMetric()
	}
	return nil
}

// handleEncLocked implements the TUNED/ENC dual-indication lock-out
// (base spec §4.4).
func (c *Context) handleEncLocked(ev Event) action {
	if ev.Slot != 0 && ev.Slot != 1 {
		return nil
	}
	slot := &c.slots[ev.Slot]
	slot.AlgID = ev.Alg
	slot.KeyID = ev.KeyID
	slot.TG = ev.TG

	// keyClear (the patch table's super-group KEY=0000 clear override, base
	// spec §4.3.3a) stands in for Decryptable's keyLoaded argument here:
	// the two are different concepts, but actual key-material import is
	// out of scope, so this is the closest proxy available.
	keyClear := c.Patches.KeyClearForTG(ev.TG)
	if c.cfg.TrunkTuneEncCalls || enc.Decryptable(ev.Alg, keyClear) {
		slot.AllowAudio = true
		slot.EncPending = false
		slot.EncConfirmed = false
		return nil
	}

	if !slot.EncPending || slot.EncPendingTG != ev.TG {
		slot.EncPending = true
		slot.EncPendingTG = ev.TG
		return nil
	}

	slot.EncConfirmed = true
	slot.AllowAudio = false
	if c.met != nil {
		c.met.RecordEncLockout()
	}
	c.encPolicy.EmitOnce(ev.TG, ev.Slot, ev.Time, c.sink)

	other := 1 - ev.Slot
	if !c.slots[other].VoiceActive {
		return c.releaseLocked(ReasonEncLockout, ev.Time)
	}
	return nil
}

// handleTunedGrantLocked implements the idempotent-grant invariant (base
// spec §8 "Two GRANTs to the same (freq,tg) while already TUNED produce no
// additional tune_to_vc calls"): a repeated grant for the call already in
// progress, or a grant for any other channel, never triggers a second
// tune_to_vc while a call is active.
func (c *Context) handleTunedGrantLocked(_ Event) action {
	return nil
}

func slotHintFromChannel(ch uint16) int {
	if ch&0x1 != 0 {
		return 1
	}
	return 0
}

// handleGrantLocked implements grant_allowed and the ON_CC -> TUNED
// transition (base spec §4.3, §4.4).
func (c *Context) handleGrantLocked(ev Event) action {
	if ev.ExplicitRetune && !(c.cfg.AllowLCWExplicitRetune && c.cfg.AllowLCW0x44UnconditionalRetune) {
		return nil
	}

	hasTG := ev.TG != 0

	keyClear := false
	if !ev.IsPrivate && hasTG {
		keyClear = c.Patches.KeyClearForTG(ev.TG)
	}

	opts := grant.Options{
		TuneDataCalls:    c.cfg.TrunkTuneDataCalls,
		TunePrivateCalls: c.cfg.TrunkTunePrivateCalls,
		TuneEncCalls:     c.cfg.TrunkTuneEncCalls,
		GroupListMode:    c.GroupList.Mode(ev.TG),
		TGHoldActive:     c.cfg.TGHold != 0,
		TGHold:           c.cfg.TGHold,
	}
	req := grant.Request{
		IsData:    ev.IsData,
		IsPrivate: ev.IsPrivate,
		Encrypted: ev.Encrypted,
		HasSrc:    ev.HasSrc,
		HasTG:     hasTG,
		Src:       ev.Src,
		TG:        ev.TG,
	}
	decision := grant.Allowed(opts, req, keyClear)
	if !decision.Allowed {
		if c.met != nil {
			c.met.RecordGrantRejected(string(decision.Reason))
		}
		if decision.EmitEncLockout {
			c.encPolicy.EmitOnce(ev.TG, -1, ev.Time, c.sink)
			if c.met != nil {
				c.met.RecordEncLockout()
			}
		}
		return nil
	}

	freq, ok := c.Idens.Resolve(ev.Channel, true)
	if !ok || freq == 0 {
		return nil
	}

	slotHint := slotHintFromChannel(ev.Channel)
	if c.backoff.Active(ev.Time, freq, slotHint) {
		if c.met != nil {
			c.met.RecordRetuneBackoff()
			c.met.RecordGrantRejected(string(grant.ReasonBlockedBackoff))
		}
		return nil
	}

	isTDMA := c.Idens.IsTDMA(ev.Channel)

	c.slots = [2]SlotState{}
	c.vc = VC{FreqHz: freq, Channel: ev.Channel, TG: ev.TG, Src: ev.Src, IsTDMA: isTDMA}
	c.vcSlotHint = slotHint
	c.tTuneM = ev.Time
	c.tVoiceM = 0
	c.resetP1ErrHistoryLocked()
	c.state = StateTuned
	c.setStateMetric()

	c.counters.Tunes++
	c.counters.Grants++
	if c.met != nil {
		c.met.RecordTune(channelTypeTag(req))
		c.met.RecordGrant(grantTypeTag(req))
	}
	if decision.RecordAffiliation {
		c.Affiliations.Observe(ev.Src)
		c.GroupAffils.Observe(ev.Src, ev.TG)
	}

	return func(t tuner.Adapter) error {
		return t.TuneToVC(freq, isTDMA, slotHint)
	}
}

func channelTypeTag(req grant.Request) string {
	switch {
	case req.IsData:
		return "data"
	case req.IsPrivate:
		return "private"
	case req.Encrypted:
		return "enc"
	default:
		return "voice"
	}
}

func grantTypeTag(req grant.Request) string {
	switch {
	case req.IsData:
		return "data"
	case req.IsPrivate:
		return "private"
	default:
		return "group"
	}
}

// releaseLocked is the shared release path (base spec §4.4 "Release path
// (shared)"). It must be called with the mutex held; it returns the
// return_to_cc action to run after unlock.
func (c *Context) releaseLocked(reason ReleaseReason, now float64) action {
	lastVC := c.vc
	lastSlot := c.vcSlotHint
	voiceSeen := c.tVoiceM > 0

	c.vc = VC{}
	c.slots = [2]SlotState{}
	c.tTuneM = 0
	c.tVoiceM = 0
	c.posthangStartM = 0
	c.resetP1ErrHistoryLocked()

	c.state = StateOnCC
	c.setStateMetric()

	c.counters.Releases++
	c.counters.CCReturns++
	if c.met != nil {
		c.met.RecordRelease(string(reason))
	}

	if !voiceSeen && lastVC.IsTDMA && lastVC.FreqHz != 0 {
		c.backoff = Backoff{
			BlockFreq:   lastVC.FreqHz,
			BlockSlot:   lastSlot,
			BlockUntilM: now + c.cfg.RetuneBackoffSeconds,
		}
	} else {
		c.backoff = Backoff{}
	}

	return func(t tuner.Adapter) error {
		return t.ReturnToCC()
	}
}

// tickLocked implements the ON_CC/TUNED/HUNTING tick bodies (base spec
// §4.4). It must be called with the mutex held.
func (c *Context) tickLocked(now float64) action {
	switch c.state {
	case StateOnCC:
		return c.tickOnCCLocked(now)
	case StateTuned:
		return c.tickTunedLocked(now)
	case StateHunting:
		return c.tickHuntingLocked(now)
	default:
		return nil
	}
}

func (c *Context) tickOnCCLocked(now float64) action {
	if c.tCCSyncM == 0 || now-c.tCCSyncM > c.cfg.CCGraceSeconds {
		c.state = StateHunting
		c.setStateMetric()
		c.tHuntTryM = 0
		return c.tryNextCCLocked(now)
	}
	return nil
}

// recordP1ErrSample folds a P25 Phase 1 IMBE error-rate sample into the
// short rolling history and arms the elevated-error hangtime extension once
// the average crosses the configured threshold (base spec §4.4 "Elevated-
// error hold"). The hold, once armed, persists for the rest of the call;
// effectiveHangtime bounds its effect at the hard safety-net cap.
func (c *Context) recordP1ErrSample(pct, now float64) {
	c.p1ErrSamples[c.p1ErrSampleIdx] = pct
	c.p1ErrSampleIdx = (c.p1ErrSampleIdx + 1) % len(c.p1ErrSamples)
	if c.p1ErrSampleCount < len(c.p1ErrSamples) {
		c.p1ErrSampleCount++
	}

	var sum float64
	for i := 0; i < c.p1ErrSampleCount; i++ {
		sum += c.p1ErrSamples[i]
	}
	avg := sum / float64(c.p1ErrSampleCount)
	if avg >= c.cfg.P1ErrHoldPct {
		c.p1ErrHoldUntilM = now
	}
}

func (c *Context) resetP1ErrHistoryLocked() {
	c.p1ErrSamples = [5]float64{}
	c.p1ErrSampleIdx = 0
	c.p1ErrSampleCount = 0
	c.p1ErrHoldUntilM = 0
}

func (c *Context) effectiveHangtime() float64 {
	h := c.cfg.HangtimeSeconds
	if c.p1ErrHoldUntilM > 0 {
		h += c.cfg.P1ErrHoldSeconds
	}
	// Bounded so the extension can never push the ordinary hangtime check
	// past the hard safety-net cutoff (base spec §4.4: "Bounded so it can
	// never exceed the hard safety-net cap").
	hardCap := c.cfg.HangtimeSeconds + c.cfg.ForceReleaseExtraSeconds + c.cfg.ForceReleaseMarginSeconds
	if h > hardCap {
		h = hardCap
	}
	return h
}

func (c *Context) tickTunedLocked(now float64) action {
	anyActive := c.slots[0].VoiceActive || c.slots[1].VoiceActive
	if anyActive {
		c.tVoiceM = now
	}

	pastMinDwell := now-c.tTuneM >= c.cfg.VCGraceSeconds

	if !anyActive {
		hangtime := c.effectiveHangtime()
		if c.tVoiceM > 0 && now-c.tVoiceM >= hangtime && pastMinDwell {
			return c.releaseLocked(ReasonHangtimeExpired, now)
		}
		if c.tVoiceM == 0 && now-c.tTuneM >= c.cfg.GrantVoiceTimeoutSeconds {
			return c.releaseLocked(ReasonGrantTimeout, now)
		}
	}

	if pastMinDwell {
		hangtime := c.effectiveHangtime()
		extra := c.cfg.ForceReleaseExtraSeconds
		margin := c.cfg.ForceReleaseMarginSeconds

		if c.tVoiceM > 0 && now-c.tVoiceM >= hangtime+extra+margin {
			if c.met != nil {
				c.met.RecordSafetyNet()
			}
			return c.releaseLocked(ReasonSafetyNetHard, now)
		}

		if c.vc.IsTDMA && !anyActive && c.tVoiceM == 0 && now-c.tTuneM >= hangtime+extra {
			if c.met != nil {
				c.met.RecordSafetyNet()
			}
			return c.releaseLocked(ReasonSafetyNetNoSync, now)
		}

		// Post-hang watchdog: a hard backstop for a call that did carry
		// voice but is still held past hangtime+extra (post-hang MAC/ring
		// gating keeping the VC alive). Gated on voice having been seen so
		// it can never preempt grant-timeout for a grant that never carried
		// voice, and anchored to t_voice_m like the other cutoffs above so
		// it can only fire after hangtime-expired already had its chance.
		if c.tVoiceM > 0 && !anyActive {
			if c.posthangStartM == 0 {
				c.posthangStartM = now
			}
			if now-c.tVoiceM >= hangtime+extra {
				if c.met != nil {
					c.met.RecordSafetyNet()
				}
				return c.releaseLocked(ReasonPostHangWatchdog, now)
			}
		} else {
			c.posthangStartM = 0
		}
	}

	return nil
}

func (c *Context) tickHuntingLocked(now float64) action {
	if c.huntCandidateSet && c.huntEvalDeadlineM != 0 && now >= c.huntEvalDeadlineM {
		if c.cfg.PreferCCCandidates {
			c.Candidates.Cooldown(c.huntCandidateFreq, ccHuntCooldownSeconds)
		}
		c.huntEvalDeadlineM = 0
		c.huntCandidateSet = false
		return c.tryNextCCLocked(now)
	}

	if now-c.tHuntTryM >= c.cfg.CCHuntIntervalSeconds {
		return c.tryNextCCLocked(now)
	}
	return nil
}

// tryNextCCLocked picks the next hunt candidate and tunes to it (base spec
// §4.4 try_next_cc).
func (c *Context) tryNextCCLocked(now float64) action {
	c.tHuntTryM = now

	var freq uint64
	var ok bool
	if c.cfg.PreferCCCandidates {
		freq, ok = c.Candidates.Next(c.lastKnownCC)
	} else {
		freq, ok = c.nextManualLocked()
	}
	if !ok {
		return nil
	}

	c.lastKnownCC = freq
	c.huntCandidateFreq = freq
	c.huntCandidateSet = true
	c.huntEvalDeadlineM = now + ccHuntEvalWindowSeconds

	return func(t tuner.Adapter) error {
		return t.TuneToCC(freq)
	}
}

func (c *Context) nextManualLocked() (uint64, bool) {
	n := len(c.manualChannels)
	if n == 0 {
		return 0, false
	}
	for i := 0; i < n; i++ {
		idx := (c.manualIdx + i) % n
		freq := c.manualChannels[idx]
		if freq == c.lastKnownCC {
			continue
		}
		c.manualIdx = (idx + 1) % n
		return freq, true
	}
	return 0, false
}
