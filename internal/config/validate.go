// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package config

import "errors"

var (
	// ErrNegativeDuration indicates a duration-valued tunable was negative.
	ErrNegativeDuration = errors.New("duration tunable must be >= 0")
	// ErrInvalidLogLevel indicates an unrecognized log level was configured.
	ErrInvalidLogLevel = errors.New("invalid log level provided")
	// ErrInvalidTunerKind indicates an unrecognized tuner adapter kind.
	ErrInvalidTunerKind = errors.New("invalid tuner kind provided")
	// ErrConflictingScanMode indicates trunking and conventional scanning were
	// both requested; base spec §6 treats -Y as disabling trunking.
	ErrConflictingScanMode = errors.New("trunking and conventional scanning are mutually exclusive")
	// ErrInvalidRigctlAddr indicates the rigctl adapter was selected without a
	// usable host:port address.
	ErrInvalidRigctlAddr = errors.New("rigctl tuner requires a non-empty address")
	// ErrInvalidSDRAddr indicates the sdr adapter was selected without a
	// usable host:port address.
	ErrInvalidSDRAddr = errors.New("sdr tuner requires a non-empty address")
)

// Validate checks the resolved Config for fatal misconfiguration (base spec
// §7, "missing mandatory INI field when --print-config validates"). All
// durations named in SmContext.config must be non-negative; zero is
// accepted (e.g. a hangtime of 0 releases immediately on END).
func Validate(cfg *Config) error {
	durations := []float64{
		cfg.VCGraceSeconds,
		cfg.MinFollowDwellSeconds,
		cfg.GrantVoiceTimeoutSeconds,
		cfg.RetuneBackoffSeconds,
		cfg.MACHoldSeconds,
		cfg.RingHoldSeconds,
		cfg.CCGraceSeconds,
		cfg.ForceReleaseExtraSeconds,
		cfg.ForceReleaseMarginSeconds,
		cfg.P1ErrHoldPct,
		cfg.P1ErrHoldSeconds,
		cfg.HangtimeSeconds,
		cfg.CCHuntIntervalSeconds,
		cfg.P1TailMillis,
		cfg.P2TailMillis,
	}
	for _, d := range durations {
		if d < 0 {
			return ErrNegativeDuration
		}
	}

	switch cfg.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return ErrInvalidLogLevel
	}

	switch cfg.TunerKind {
	case TunerKindNoop, TunerKindSDR, TunerKindRigctl:
	default:
		return ErrInvalidTunerKind
	}

	if cfg.TunerKind == TunerKindRigctl && cfg.RigctlAddr == "" {
		return ErrInvalidRigctlAddr
	}

	if cfg.TunerKind == TunerKindSDR && cfg.SDRAddr == "" {
		return ErrInvalidSDRAddr
	}

	if cfg.Trunking && cfg.ConventionalScanning {
		return ErrConflictingScanMode
	}

	return nil
}
