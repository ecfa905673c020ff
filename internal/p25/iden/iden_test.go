// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package iden_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/iden"
)

func TestResolveComputesFrequencyFromBaseAndSpacing(t *testing.T) {
	table := iden.NewTable()
	table.Update(1, iden.Entry{
		BaseFreq5kHz:   170200, // 851000000 Hz
		ChannelSpacing: 12500,
		Trust:          iden.TrustOnCC,
	})

	channel := uint16(1)<<12 | 0x064
	freq, ok := table.Resolve(channel, false)
	require.True(t, ok)
	require.EqualValues(t, 852250000, freq)
}

func TestResolveReturnsFalseForAbsentIden(t *testing.T) {
	table := iden.NewTable()
	_, ok := table.Resolve(uint16(3)<<12, false)
	require.False(t, ok)
}

func TestResolveRefusesUntrustedIdenWhenHunting(t *testing.T) {
	table := iden.NewTable()
	table.Update(2, iden.Entry{
		BaseFreq5kHz:   100000,
		ChannelSpacing: 12500,
		Trust:          iden.TrustOffCC,
	})
	channel := uint16(2) << 12

	_, ok := table.Resolve(channel, false)
	require.False(t, ok, "off-CC hunting must refuse entries trusted below TrustOnCC")

	freq, ok := table.Resolve(channel, true)
	require.True(t, ok, "resolving while parked on the known CC bypasses the trust check")
	require.EqualValues(t, 100000*5000, freq)
}

func TestResolveZeroSpacingIsUnresolvable(t *testing.T) {
	table := iden.NewTable()
	table.Update(4, iden.Entry{BaseFreq5kHz: 100000, ChannelSpacing: 0, Trust: iden.TrustOnCC})
	_, ok := table.Resolve(uint16(4)<<12, false)
	require.False(t, ok)
}

func TestOverrideBypassesComputation(t *testing.T) {
	table := iden.NewTable()
	channel := uint16(5) << 12
	table.SetOverride(channel, 999999999)

	freq, ok := table.Resolve(channel, false)
	require.True(t, ok)
	require.EqualValues(t, 999999999, freq)

	table.ClearOverride(channel)
	_, ok = table.Resolve(channel, false)
	require.False(t, ok)
}

func TestIsTDMAReflectsEntry(t *testing.T) {
	table := iden.NewTable()
	table.Update(6, iden.Entry{BaseFreq5kHz: 1, ChannelSpacing: 1, IsTDMA: true})
	require.True(t, table.IsTDMA(uint16(6)<<12))
	require.False(t, table.IsTDMA(uint16(7)<<12))
}
