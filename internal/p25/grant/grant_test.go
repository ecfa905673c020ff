// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package grant_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/grant"
)

func TestDataGrantRejectedWhenDisabled(t *testing.T) {
	d := grant.Allowed(grant.Options{}, grant.Request{IsData: true}, false)
	require.False(t, d.Allowed)
	require.Equal(t, grant.ReasonBlockedData, d.Reason)
}

func TestDataGrantAllowedWhenEnabled(t *testing.T) {
	d := grant.Allowed(grant.Options{TuneDataCalls: true}, grant.Request{IsData: true}, false)
	require.True(t, d.Allowed)
}

func TestPrivateGrantRejectedWhenDisabled(t *testing.T) {
	d := grant.Allowed(grant.Options{}, grant.Request{IsPrivate: true}, false)
	require.False(t, d.Allowed)
	require.Equal(t, grant.ReasonBlockedPrivate, d.Reason)
}

func TestPrivateEncryptedGrantRejectedWhenEncDisabled(t *testing.T) {
	opts := grant.Options{TunePrivateCalls: true}
	d := grant.Allowed(opts, grant.Request{IsPrivate: true, Encrypted: true}, false)
	require.False(t, d.Allowed)
	require.Equal(t, grant.ReasonBlockedEnc, d.Reason)
}

func TestPrivateGrantRejectedDuringTGHold(t *testing.T) {
	opts := grant.Options{TunePrivateCalls: true, TGHoldActive: true, TGHold: 99}
	d := grant.Allowed(opts, grant.Request{IsPrivate: true}, false)
	require.False(t, d.Allowed)
	require.Equal(t, grant.ReasonBlockedTGHold, d.Reason)
}

func TestGroupEncryptedGrantAllowedWhenKeyClear(t *testing.T) {
	d := grant.Allowed(grant.Options{}, grant.Request{Encrypted: true, TG: 1234}, true)
	require.True(t, d.Allowed)
	require.False(t, d.EmitEncLockout)
}

func TestGroupEncryptedGrantRejectedAndEmitsLockoutWhenNotKeyClear(t *testing.T) {
	d := grant.Allowed(grant.Options{}, grant.Request{Encrypted: true, TG: 1234}, false)
	require.False(t, d.Allowed)
	require.Equal(t, grant.ReasonBlockedEnc, d.Reason)
	require.True(t, d.EmitEncLockout)
}

func TestGroupGrantRejectedByGroupListMode(t *testing.T) {
	for _, mode := range []string{"DE", "B"} {
		d := grant.Allowed(grant.Options{GroupListMode: mode}, grant.Request{TG: 1234}, false)
		require.False(t, d.Allowed)
		require.Equal(t, grant.ReasonBlockedGroupList, d.Reason)
	}
}

func TestGroupGrantRejectedByMismatchedTGHold(t *testing.T) {
	opts := grant.Options{TGHoldActive: true, TGHold: 5000}
	d := grant.Allowed(opts, grant.Request{TG: 1234}, false)
	require.False(t, d.Allowed)
	require.Equal(t, grant.ReasonBlockedTGHold, d.Reason)
}

func TestGroupGrantAllowedWhenTGMatchesHold(t *testing.T) {
	opts := grant.Options{TGHoldActive: true, TGHold: 1234}
	d := grant.Allowed(opts, grant.Request{TG: 1234, Src: 42, HasSrc: true, HasTG: true}, false)
	require.True(t, d.Allowed)
	require.True(t, d.RecordAffiliation)
}

func TestPlainGroupGrantAllowedByDefault(t *testing.T) {
	d := grant.Allowed(grant.Options{}, grant.Request{TG: 1234}, false)
	require.True(t, d.Allowed)
	require.Equal(t, grant.ReasonNone, d.Reason)
}
