// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package lcw

import (
	"encoding/binary"

	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/sm"
)

// Standard (MFID 0) trunking-signaling-block opcodes this decoder
// recognizes. Everything else falls through to Unknown.
const (
	opGroupVoiceGrant         uint8 = 0x00
	opGroupVoiceGrantUpdate   uint8 = 0x02
	opUnitToUnitVoiceGrant    uint8 = 0x3D
	opSNDCPDataChannelGrant   uint8 = 0x16
	opCallTermination         uint8 = 0x2F
	opRFSSStatusBroadcast     uint8 = 0x3A
	opAdjacentStatusBroadcast uint8 = 0x7C
)

// svcBitEncrypted and svcBitData mirror the service-options bit layout
// used throughout the standard opcodes below.
const (
	svcBitEncrypted uint8 = 0x40
	svcBitData      uint8 = 0x10
)

var standardTSBKDecoders = map[uint8]decoderFunc{
	opGroupVoiceGrant:         decodeGroupVoiceGrant,
	opGroupVoiceGrantUpdate:   decodeGroupVoiceGrantUpdate,
	opUnitToUnitVoiceGrant:    decodeUnitToUnitVoiceGrant,
	opSNDCPDataChannelGrant:   decodeSNDCPDataChannelGrant,
	opCallTermination:         decodeCallTermination,
	opRFSSStatusBroadcast:     decodeRFSSStatusBroadcast,
	opAdjacentStatusBroadcast: decodeAdjacentStatusBroadcast,
}

// decodeGroupVoiceGrant expects payload = svc_bits(1) | channel(2) | tg(2)
// | src(3, optional).
func decodeGroupVoiceGrant(f Frame) (sm.Event, bool) {
	if len(f.Payload) < 5 {
		return sm.Event{}, false
	}
	svc := f.Payload[0]
	ev := sm.Event{
		Kind:      sm.EvGrant,
		Time:      f.Time,
		Slot:      -1,
		SvcBits:   svc,
		Channel:   binary.BigEndian.Uint16(f.Payload[1:3]),
		TG:        uint32(binary.BigEndian.Uint16(f.Payload[3:5])),
		Encrypted: svc&svcBitEncrypted != 0,
		IsData:    svc&svcBitData != 0,
	}
	if len(f.Payload) >= 8 {
		ev.Src = be24(f.Payload, 5)
		ev.HasSrc = true
	}
	return ev, true
}

// decodeGroupVoiceGrantUpdate expects payload = channel(2) | tg(2); no
// service options or source are retransmitted on an update.
func decodeGroupVoiceGrantUpdate(f Frame) (sm.Event, bool) {
	if len(f.Payload) < 4 {
		return sm.Event{}, false
	}
	return sm.Event{
		Kind:    sm.EvGrant,
		Time:    f.Time,
		Slot:    -1,
		Channel: binary.BigEndian.Uint16(f.Payload[0:2]),
		TG:      uint32(binary.BigEndian.Uint16(f.Payload[2:4])),
	}, true
}

// decodeUnitToUnitVoiceGrant expects payload = svc_bits(1) | channel(2) |
// target(3) | source(3).
func decodeUnitToUnitVoiceGrant(f Frame) (sm.Event, bool) {
	if len(f.Payload) < 9 {
		return sm.Event{}, false
	}
	svc := f.Payload[0]
	return sm.Event{
		Kind:      sm.EvGrant,
		Time:      f.Time,
		Slot:      -1,
		SvcBits:   svc,
		Channel:   binary.BigEndian.Uint16(f.Payload[1:3]),
		TG:        be24(f.Payload, 3),
		Src:       be24(f.Payload, 6),
		HasSrc:    true,
		IsPrivate: true,
		Encrypted: svc&svcBitEncrypted != 0,
	}, true
}

// decodeSNDCPDataChannelGrant expects payload = channel(2).
func decodeSNDCPDataChannelGrant(f Frame) (sm.Event, bool) {
	if len(f.Payload) < 2 {
		return sm.Event{}, false
	}
	return sm.Event{
		Kind:    sm.EvGrant,
		Time:    f.Time,
		Slot:    -1,
		Channel: binary.BigEndian.Uint16(f.Payload[0:2]),
		IsData:  true,
	}, true
}

func decodeCallTermination(f Frame) (sm.Event, bool) {
	return sm.Event{Kind: sm.EvCallTermination, Time: f.Time, Slot: -1}, true
}

// decodeRFSSStatusBroadcast is heard only on a confirmed control channel;
// its presence is what the SM treats as CC_SYNC (base spec §4.4 ON_CC).
func decodeRFSSStatusBroadcast(f Frame) (sm.Event, bool) {
	return sm.Event{Kind: sm.EvCCSync, Time: f.Time, Slot: -1}, true
}

// decodeAdjacentStatusBroadcast assumes the explicit (non-compact) format,
// carrying an absolute frequency rather than an IDEN-indexed channel
// number, so the decoder needs no access to the local IdenTable: payload =
// freq_hz(4).
func decodeAdjacentStatusBroadcast(f Frame) (sm.Event, bool) {
	if len(f.Payload) < 4 {
		return sm.Event{}, false
	}
	return sm.Event{
		Kind:   sm.EvNeighborUpdate,
		Time:   f.Time,
		Slot:   -1,
		FreqHz: uint64(binary.BigEndian.Uint32(f.Payload[0:4])),
	}, true
}
