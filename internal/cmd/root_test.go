// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package cmd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arancormonk/dsd-neo-p25sm/internal/cmd"
	"github.com/arancormonk/dsd-neo-p25sm/internal/config"
)

func TestNewCommandUseAndVersion(t *testing.T) {
	t.Parallel()
	c := cmd.NewCommand("1.2.3", "deadbeef")
	assert.Equal(t, "p25sm", c.Use)
	assert.Contains(t, c.Version, "1.2.3")
	assert.Contains(t, c.Version, "deadbeef")
}

func TestNewCommandRegistersKnownFlags(t *testing.T) {
	t.Parallel()
	c := cmd.NewCommand("test", "test")
	for _, name := range []string{"trunking", "conventional", "hangtime", "metrics", "redis", "tg-hold"} {
		assert.NotNil(t, c.Flags().Lookup(name), "expected flag %q to be registered", name)
	}
}

func TestRunRootRejectsConflictingScanModes(t *testing.T) {
	t.Parallel()
	c := cmd.NewCommand("test", "test")
	c.SetArgs([]string{"-T", "-Y"})
	c.SilenceUsage = true
	c.SilenceErrors = true

	err := c.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrConflictingScanMode)
}
