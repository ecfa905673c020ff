// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package config_test

import (
	"testing"

	"github.com/arancormonk/dsd-neo-p25sm/internal/config"
	"github.com/stretchr/testify/require"
)

func TestINIRoundTripDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.Default()
	require.NoError(t, err)

	text := config.RenderINI(cfg)
	parsed, err := config.ParseINI(text)
	require.NoError(t, err)
	require.Equal(t, cfg, parsed)
}

func TestINIRoundTripCustomized(t *testing.T) {
	t.Parallel()
	cfg, err := config.Default()
	require.NoError(t, err)

	cfg.Trunking = true
	cfg.HangtimeSeconds = 1.5
	cfg.TGHold = 52198
	cfg.LogLevel = config.LogLevelDebug
	cfg.TunerKind = config.TunerKindRigctl
	cfg.RigctlAddr = "127.0.0.1:4532"
	cfg.DataDir = "/var/lib/dsd-neo-p25sm"
	cfg.Verbose = 2
	cfg.RedisEnabled = true
	cfg.RedisAddr = "127.0.0.1:6380"
	cfg.SDRAddr = "127.0.0.1:4321"
	cfg.SDRPPM = -5
	cfg.SDRAGC = false
	cfg.PProfEnabled = true
	cfg.PProfBind = "0.0.0.0"
	cfg.PProfPort = 9999

	text := config.RenderINI(cfg)
	parsed, err := config.ParseINI(text)
	require.NoError(t, err)
	require.Equal(t, cfg, parsed)

	// Rendering the parsed value again must reproduce the same text
	// (render(parse(render(cfg))) == render(cfg)).
	require.Equal(t, text, config.RenderINI(parsed))
}

func TestINIParseIgnoresUnknownSectionsAndComments(t *testing.T) {
	t.Parallel()
	text := "; a leading comment\n" +
		"[other]\n" +
		"trunking = true\n" +
		"[p25]\n" +
		"# inline comment\n" +
		"trunking = true\n" +
		"hangtime = 2.0\n"

	cfg, err := config.ParseINI(text)
	require.NoError(t, err)
	require.True(t, cfg.Trunking)
	require.Equal(t, 2.0, cfg.HangtimeSeconds)
}

func TestINIParseMalformedLine(t *testing.T) {
	t.Parallel()
	_, err := config.ParseINI("[p25]\nnotakeyvalue\n")
	require.Error(t, err)
}
