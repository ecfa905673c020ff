// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.

package config

// LogLevel controls the verbosity of the structured logger.
type LogLevel string

const (
	// LogLevelDebug logs every SM transition and tick decision.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs state transitions, releases and lockouts.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs only policy rejections and forced releases.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs only fatal/adapter errors.
	LogLevelError LogLevel = "error"
)

// TunerKind selects which tuner adapter implementation backs the SM.
type TunerKind string

const (
	// TunerKindNoop is the test/stub adapter that only updates state.
	TunerKindNoop TunerKind = "noop"
	// TunerKindSDR tunes a local SDR device directly.
	TunerKindSDR TunerKind = "sdr"
	// TunerKindRigctl drives a rigctld-compatible TCP endpoint.
	TunerKindRigctl TunerKind = "rigctl"
)
