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

// Standard (MFID 0) Phase 1 link-control-word opcodes this decoder
// recognizes.
const (
	opLCWTerminatorDataUnit   uint8 = 0x2F
	opLCWEncryptionSyncParams uint8 = 0x31
	// opLCWExplicitRetune is format 0x44, kept behind the explicit
	// operator opt-in named in base spec §9's open question ("Whether
	// LCW format 0x44 retune should ever be unconditional. Keep behind an
	// explicit opt-in flag"). The decoder always emits the event tagged
	// Event.ExplicitRetune; the SM core drops it unless both
	// AllowLCWExplicitRetune and AllowLCW0x44UnconditionalRetune are set.
	opLCWExplicitRetune uint8 = 0x44
)

var standardLCWDecoders = map[uint8]decoderFunc{
	opLCWTerminatorDataUnit:   decodeLCWTerminatorDataUnit,
	opLCWEncryptionSyncParams: decodeLCWEncryptionSyncParams,
	opLCWExplicitRetune:       decodeLCWExplicitRetune,
}

func decodeLCWTerminatorDataUnit(f Frame) (sm.Event, bool) {
	return sm.Event{Kind: sm.EvTDU, Time: f.Time, Slot: f.Slot}, true
}

// decodeLCWEncryptionSyncParams expects payload = alg(1) | key_id(2) |
// tg(2).
func decodeLCWEncryptionSyncParams(f Frame) (sm.Event, bool) {
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

// decodeLCWExplicitRetune expects payload = channel(2).
func decodeLCWExplicitRetune(f Frame) (sm.Event, bool) {
	if len(f.Payload) < 2 {
		return sm.Event{}, false
	}
	return sm.Event{
		Kind:           sm.EvGrant,
		Time:           f.Time,
		Slot:           -1,
		Channel:        be16(f.Payload, 0),
		ExplicitRetune: true,
	}, true
}
