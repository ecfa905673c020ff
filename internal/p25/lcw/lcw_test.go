// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package lcw_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arancormonk/dsd-neo-p25sm/internal/clock"
	"github.com/arancormonk/dsd-neo-p25sm/internal/config"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/event"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/iden"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/lcw"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/sm"
	"github.com/arancormonk/dsd-neo-p25sm/internal/tuner"
)

func TestDecodeGroupVoiceGrant(t *testing.T) {
	// svc=0x00, channel=0x1064, tg=1234 (0x04D2), src=0x2A (42)
	payload := []byte{0x00, 0x10, 0x64, 0x04, 0xD2, 0x00, 0x00, 0x2A}
	f := lcw.Frame{Domain: lcw.DomainTSBK, Slot: -1, Payload: payload}

	ev, unk := lcw.Decode(f)
	require.Nil(t, unk)
	require.Equal(t, sm.EvGrant, ev.Kind)
	require.EqualValues(t, 0x1064, ev.Channel)
	require.EqualValues(t, 1234, ev.TG)
	require.True(t, ev.HasSrc)
	require.EqualValues(t, 42, ev.Src)
	require.False(t, ev.Encrypted)
	require.False(t, ev.IsData)
}

func TestDecodeGroupVoiceGrantEncryptedServiceBit(t *testing.T) {
	payload := []byte{0x40, 0x10, 0x64, 0x04, 0xD2}
	f := lcw.Frame{Domain: lcw.DomainTSBK, Payload: payload}
	ev, unk := lcw.Decode(f)
	require.Nil(t, unk)
	require.True(t, ev.Encrypted)
}

func TestDecodeSNDCPDataChannelGrantSetsIsData(t *testing.T) {
	payload := []byte{0x10, 0x64}
	f := lcw.Frame{Domain: lcw.DomainTSBK, Opcode: 0x16, Payload: payload}
	ev, unk := lcw.Decode(f)
	require.Nil(t, unk)
	require.Equal(t, sm.EvGrant, ev.Kind)
	require.True(t, ev.IsData)
}

func TestDecodeCallTermination(t *testing.T) {
	f := lcw.Frame{Domain: lcw.DomainTSBK, Opcode: 0x2F}
	ev, unk := lcw.Decode(f)
	require.Nil(t, unk)
	require.Equal(t, sm.EvCallTermination, ev.Kind)
}

func TestDecodeRFSSStatusBroadcastIsCCSync(t *testing.T) {
	f := lcw.Frame{Domain: lcw.DomainTSBK, Opcode: 0x3A}
	ev, unk := lcw.Decode(f)
	require.Nil(t, unk)
	require.Equal(t, sm.EvCCSync, ev.Kind)
}

func TestDecodeMACActive(t *testing.T) {
	f := lcw.Frame{Domain: lcw.DomainMAC, Opcode: 0x81, Slot: 1, Payload: []byte{0x04, 0xD2}}
	ev, unk := lcw.Decode(f)
	require.Nil(t, unk)
	require.Equal(t, sm.EvActive, ev.Kind)
	require.Equal(t, 1, ev.Slot)
	require.EqualValues(t, 1234, ev.TG)
}

func TestDecodeMACSignalEncInfoMarksEncrypted(t *testing.T) {
	payload := []byte{0xAA, 0x00, 0x01, 0x04, 0xD2}
	f := lcw.Frame{Domain: lcw.DomainMAC, Opcode: 0x86, Slot: 0, Payload: payload}
	ev, unk := lcw.Decode(f)
	require.Nil(t, unk)
	require.Equal(t, sm.EvEnc, ev.Kind)
	require.True(t, ev.Encrypted)
	require.EqualValues(t, 0xAA, ev.Alg)
}

func TestDecodeMACSignalEncInfoClearAlgNotEncrypted(t *testing.T) {
	payload := []byte{0x00, 0x00, 0x00, 0x04, 0xD2}
	f := lcw.Frame{Domain: lcw.DomainMAC, Opcode: 0x86, Payload: payload}
	ev, unk := lcw.Decode(f)
	require.Nil(t, unk)
	require.False(t, ev.Encrypted)
}

func TestDecodeLCWExplicitRetuneMarksEvent(t *testing.T) {
	payload := []byte{0x10, 0x64}
	f := lcw.Frame{Domain: lcw.DomainLCW, Opcode: 0x44, Payload: payload}
	ev, unk := lcw.Decode(f)
	require.Nil(t, unk)
	require.Equal(t, sm.EvGrant, ev.Kind)
	require.EqualValues(t, 0x1064, ev.Channel)
	require.True(t, ev.ExplicitRetune)
}

func TestDecodeLCWTerminatorDataUnit(t *testing.T) {
	f := lcw.Frame{Domain: lcw.DomainLCW, Opcode: 0x2F}
	ev, unk := lcw.Decode(f)
	require.Nil(t, unk)
	require.Equal(t, sm.EvTDU, ev.Kind)
}

func TestDecodeUnknownOpcodeReturnsCatchAll(t *testing.T) {
	f := lcw.Frame{Domain: lcw.DomainTSBK, MFID: 0x00, Opcode: 0xFE, Payload: []byte{1, 2, 3}}
	_, unk := lcw.Decode(f)
	require.NotNil(t, unk)
	require.EqualValues(t, 0xFE, unk.Opcode)
	require.Equal(t, []byte{1, 2, 3}, unk.Payload)
}

func TestUnknownVendorMFIDIsOpaquePassThrough(t *testing.T) {
	f := lcw.Frame{Domain: lcw.DomainLCW, MFID: 0x90, Opcode: 0x05, Payload: []byte("KW4XYZ")}
	_, unk := lcw.Decode(f)
	require.NotNil(t, unk)
	require.True(t, unk.IsOpaquePassThrough())
}

func TestFeedDrivesSMFromDecodedGrant(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	clk := clock.NewManual(time.Unix(0, 0))
	nt := tuner.NewNoop()
	sink := event.NewSink(nil)
	ctx := sm.New(&cfg, clk, nt, sink, nil)
	ctx.Idens.Update(1, iden.Entry{BaseFreq5kHz: 851000000 / 5000, ChannelSpacing: 12500})

	require.NoError(t, lcw.Feed(ctx, sink, lcw.Frame{Domain: lcw.DomainTSBK, Opcode: 0x3A}))
	require.Equal(t, sm.StateOnCC, ctx.State())

	payload := []byte{0x00, 0x10, 0x64, 0x04, 0xD2, 0x00, 0x00, 0x2A}
	require.NoError(t, lcw.Feed(ctx, sink, lcw.Frame{Domain: lcw.DomainTSBK, Payload: payload}))
	require.Equal(t, sm.StateTuned, ctx.State())
}

func TestFeedRecordsUnknownFrameWithoutDrivingSM(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	clk := clock.NewManual(time.Unix(0, 0))
	nt := tuner.NewNoop()
	sink := event.NewSink(nil)
	ctx := sm.New(&cfg, clk, nt, sink, nil)

	require.NoError(t, lcw.Feed(ctx, sink, lcw.Frame{Domain: lcw.DomainTSBK, MFID: 0x00, Opcode: 0xFE, Slot: 0, Payload: []byte{1, 2, 3}}))
	require.Equal(t, sm.StateIDLE, ctx.State(), "an unrecognized frame must not drive the SM")
	snap := sink.Snapshot(0)
	require.Len(t, snap, 1)
	require.Equal(t, event.ColorWarning, snap[0].Color)
}

func TestDecodeTruncatedPayloadFallsBackToUnknown(t *testing.T) {
	f := lcw.Frame{Domain: lcw.DomainTSBK, Opcode: 0x00, Payload: []byte{0x00}}
	_, unk := lcw.Decode(f)
	require.NotNil(t, unk, "a grant opcode with too short a payload should not panic, and should surface as unknown")
}
