// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package enc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/enc"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/event"
)

func TestIsClearAlgRecognizesBothSentinels(t *testing.T) {
	require.True(t, enc.IsClearAlg(enc.AlgClear))
	require.True(t, enc.IsClearAlg(enc.AlgClearAlt))
	require.False(t, enc.IsClearAlg(0xAA))
}

func TestDecryptableAllowsClearOrLoadedKey(t *testing.T) {
	require.True(t, enc.Decryptable(enc.AlgClear, false))
	require.True(t, enc.Decryptable(0xAA, true))
	require.False(t, enc.Decryptable(0xAA, false))
}

func TestEmitOnceIsOneShotPerTG(t *testing.T) {
	list := enc.NewGroupList()
	policy := enc.NewPolicy(list)
	sink := event.NewSink(nil)

	require.True(t, policy.EmitOnce(1234, 0, 1.0, sink))
	require.False(t, policy.EmitOnce(1234, 0, 1.2, sink), "a second indication must not emit again")
	require.Len(t, sink.Snapshot(0), 1)
}

func TestEmitOnceSetsGroupListModeAndPreservesLabel(t *testing.T) {
	list := enc.NewGroupList()
	policy := enc.NewPolicy(list)
	policy.EmitOnce(1234, 0, 1.0, nil)

	e := list.Entry(1234)
	require.Equal(t, "DE", e.Mode)
	require.Equal(t, "ENC LO", e.Name)
}

func TestClearAllowsLockoutToReEmit(t *testing.T) {
	list := enc.NewGroupList()
	policy := enc.NewPolicy(list)
	sink := event.NewSink(nil)

	policy.EmitOnce(1234, 0, 1.0, sink)
	require.True(t, policy.LockedOut(1234))

	policy.Clear(1234)
	require.False(t, policy.LockedOut(1234))
	require.True(t, policy.EmitOnce(1234, 0, 2.0, sink))
	require.Len(t, sink.Snapshot(0), 2)
}
