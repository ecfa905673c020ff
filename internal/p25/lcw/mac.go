// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package lcw

import (
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/sm"
)

// Standard (MFID 0) Phase 2 MAC opcodes this decoder recognizes.
const (
	opMACActive        uint8 = 0x81
	opMACEndPTT        uint8 = 0x82
	opMACIdle          uint8 = 0x83
	opMACSignalEncInfo uint8 = 0x86
)

var standardMACDecoders = map[uint8]decoderFunc{
	opMACActive:        decodeMACActive,
	opMACEndPTT:        decodeMACEndPTT,
	opMACIdle:          decodeMACIdle,
	opMACSignalEncInfo: decodeMACSignalEncInfo,
}

func decodeMACActive(f Frame) (sm.Event, bool) {
	ev := sm.Event{Kind: sm.EvActive, Time: f.Time, Slot: f.Slot}
	if len(f.Payload) >= 2 {
		ev.TG = uint32(be16(f.Payload, 0))
	}
	return ev, true
}

func decodeMACEndPTT(f Frame) (sm.Event, bool) {
	return sm.Event{Kind: sm.EvEnd, Time: f.Time, Slot: f.Slot}, true
}

func decodeMACIdle(f Frame) (sm.Event, bool) {
	return sm.Event{Kind: sm.EvIdle, Time: f.Time, Slot: f.Slot}, true
}

// decodeMACSignalEncInfo expects payload = alg(1) | key_id(2) | tg(2).
func decodeMACSignalEncInfo(f Frame) (sm.Event, bool) {
	if len(f.Payload) < 5 {
		return sm.Event{}, false
	}
	alg := f.Payload[0]
	return sm.Event{
		Kind:      sm.EvEnc,
		Time:      f.Time,
		Slot:      f.Slot,
		Alg:       alg,
		KeyID:     be16(f.Payload, 1),
		TG:        uint32(be16(f.Payload, 3)),
		Encrypted: alg != 0x00 && alg != 0x80,
	}, true
}
