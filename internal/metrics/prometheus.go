// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package metrics exposes Prometheus counters and gauges for the P25
// follower state machine: tunes, releases, grants and encryption
// lockouts (base spec §4 status tags), plus a gauge mirroring the
// current SM state for dashboards.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter/gauge the SM core updates. The zero value is
// not usable; construct with NewMetrics.
type Metrics struct {
	TunesTotal          *prometheus.CounterVec
	ReleasesTotal       *prometheus.CounterVec
	GrantsTotal         *prometheus.CounterVec
	GrantsRejectedTotal *prometheus.CounterVec
	EncLockoutsTotal    prometheus.Counter
	RetuneBackoffsTotal prometheus.Counter
	SafetyNetTotal      prometheus.Counter
	TickDuration        prometheus.Histogram
	SMState             prometheus.Gauge
}

// smStateValues orders the SM's four states for the SMState gauge.
var smStateValues = map[string]float64{
	"IDLE":    0,
	"ON_CC":   1,
	"TUNED":   2,
	"HUNTING": 3,
}

// NewMetrics constructs and registers the SM metrics against the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		TunesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "p25_sm_tunes_total",
			Help: "Total number of voice channel tunes, by channel type",
		}, []string{"channel_type"}),
		ReleasesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "p25_sm_releases_total",
			Help: "Total number of releases back to the control channel, by reason",
		}, []string{"reason"}),
		GrantsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "p25_sm_grants_total",
			Help: "Total number of grants observed, by grant type",
		}, []string{"grant_type"}),
		GrantsRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "p25_sm_grants_rejected_total",
			Help: "Total number of grants rejected by policy, by reason",
		}, []string{"reason"}),
		EncLockoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "p25_sm_enc_lockouts_total",
			Help: "Total number of one-shot encryption lock-out events",
		}),
		RetuneBackoffsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "p25_sm_retune_backoffs_total",
			Help: "Total number of grants suppressed by dead-grant retune backoff",
		}),
		SafetyNetTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "p25_sm_safety_net_total",
			Help: "Total number of hard safety-net forced releases",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "p25_sm_tick_duration_seconds",
			Help:    "Duration of a single sm_tick invocation",
			Buckets: prometheus.DefBuckets,
		}),
		SMState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "p25_sm_state",
			Help: "Current SM state: 0=IDLE 1=ON_CC 2=TUNED 3=HUNTING",
		}),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	prometheus.MustRegister(m.TunesTotal)
	prometheus.MustRegister(m.ReleasesTotal)
	prometheus.MustRegister(m.GrantsTotal)
	prometheus.MustRegister(m.GrantsRejectedTotal)
	prometheus.MustRegister(m.EncLockoutsTotal)
	prometheus.MustRegister(m.RetuneBackoffsTotal)
	prometheus.MustRegister(m.SafetyNetTotal)
	prometheus.MustRegister(m.TickDuration)
	prometheus.MustRegister(m.SMState)
}

// RecordTune increments the tune counter for the given channel type
// ("voice", "data", "private", "enc").
func (m *Metrics) RecordTune(channelType string) {
	m.TunesTotal.WithLabelValues(channelType).Inc()
}

// RecordRelease increments the release counter for the given reason tag
// (the sm.ReleaseReason values: "hangtime-expired", "grant-timeout",
// "safety-net-hard", "call-termination", ...).
func (m *Metrics) RecordRelease(reason string) {
	m.ReleasesTotal.WithLabelValues(reason).Inc()
}

// RecordGrant increments the grant counter for the given grant type.
func (m *Metrics) RecordGrant(grantType string) {
	m.GrantsTotal.WithLabelValues(grantType).Inc()
}

// RecordGrantRejected increments the grant-rejection counter for the given
// policy reason tag (e.g. "grant-blocked-data", "grant-blocked-enc").
func (m *Metrics) RecordGrantRejected(reason string) {
	m.GrantsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordEncLockout increments the one-shot encryption lock-out counter.
func (m *Metrics) RecordEncLockout() {
	m.EncLockoutsTotal.Inc()
}

// RecordRetuneBackoff increments the dead-grant backoff counter.
func (m *Metrics) RecordRetuneBackoff() {
	m.RetuneBackoffsTotal.Inc()
}

// RecordSafetyNet increments the hard safety-net counter.
func (m *Metrics) RecordSafetyNet() {
	m.SafetyNetTotal.Inc()
}

// ObserveTick records how long a single sm_tick call took.
func (m *Metrics) ObserveTick(seconds float64) {
	m.TickDuration.Observe(seconds)
}

// SetState updates the SM state gauge; unknown state names are ignored.
func (m *Metrics) SetState(state string) {
	if v, ok := smStateValues[state]; ok {
		m.SMState.Set(v)
	}
}
