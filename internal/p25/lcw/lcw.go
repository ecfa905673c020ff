// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package lcw decodes P25 link-control words, trunking signaling blocks,
// and Phase 2 MAC messages into the typed events the SM core consumes
// (base spec §4, §9). Dispatch is a tagged variant keyed by (domain, MFID,
// opcode); anything the table doesn't recognize falls into a single
// Unknown arm that is logged only, never interpreted (base spec §9 design
// note: "Represent as a tagged variant per MFID family; unknown families
// fall into a single Unknown{mfid, opcode, payload} arm that is logged
// only").
package lcw

import (
	"encoding/binary"
	"fmt"

	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/event"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/sm"
)

// Domain distinguishes the three PDU families the base spec names
// together ("LCW / TSBK / MAC decoders").
type Domain int

const (
	// DomainTSBK is a trunking signaling block, heard only on the control
	// channel.
	DomainTSBK Domain = iota
	// DomainMAC is a Phase 2 media-access-control message, heard on a
	// TDMA voice channel and tagged to one of its two logical slots.
	DomainMAC
	// DomainLCW is a Phase 1 link-control word, heard on a voice channel.
	DomainLCW
)

// mfidStandard is the MFID value for the standard (non-vendor) opcode
// tables, shared across all three domains.
const mfidStandard uint8 = 0x00

// mfidMotorola is Motorola's vendor MFID, named in base spec §9's open
// question about opcode 0x5 ("BSI").
const mfidMotorola uint8 = 0x90

// Frame is one raw, CRC-verified PDU handed to the decoder. Slot is -1 for
// TSBK/LCW frames that are not slot-scoped.
type Frame struct {
	Domain  Domain
	MFID    uint8
	Opcode  uint8
	Slot    int
	Time    float64
	Payload []byte
}

// Unknown is the catch-all arm for any (domain, MFID, opcode) the decoder
// does not recognize, or recognizes but has no typed interpretation for
// (base spec §9 open question on MFID90 opcode 0x5 "BSI": "the current
// code logs raw bytes... keeps this as an opaque pass-through").
type Unknown struct {
	Domain  Domain
	MFID    uint8
	Opcode  uint8
	Payload []byte
}

type decoderFunc func(Frame) (sm.Event, bool)

// registry is domain -> mfid -> opcode -> decoder.
var registry = map[Domain]map[uint8]map[uint8]decoderFunc{
	DomainTSBK: {
		mfidStandard: standardTSBKDecoders,
	},
	DomainMAC: {
		mfidStandard: standardMACDecoders,
	},
	DomainLCW: {
		mfidStandard: standardLCWDecoders,
	},
}

// Decode dispatches f to the registered decoder for its (domain, MFID,
// opcode). On a match it returns the typed event and a nil Unknown; on no
// match (or a decoder that declines) it returns an Unknown describing the
// frame verbatim for logging.
func Decode(f Frame) (sm.Event, *Unknown) {
	family, ok := registry[f.Domain]
	if ok {
		opcodes, ok := family[f.MFID]
		if ok {
			if dec, ok := opcodes[f.Opcode]; ok {
				if ev, ok := dec(f); ok {
					return ev, nil
				}
			}
		}
	}
	return sm.Event{}, &Unknown{Domain: f.Domain, MFID: f.MFID, Opcode: f.Opcode, Payload: f.Payload}
}

// Feed decodes f and drives ctx with the resulting event. An Unknown frame
// is not handed to ctx; it is recorded to sink as a warning only when it
// carries a slot (0 or 1), because the sink drops slot-less events, so an
// unknown TSBK or LCW frame (Slot -1) leaves no record. A
// demod source feeding raw PDUs would call this on every received frame.
// That demod collaborator is out of scope here, so Feed is otherwise
// unreached outside tests.
func Feed(ctx *sm.Context, sink *event.Sink, f Frame) error {
	ev, unk := Decode(f)
	if unk != nil {
		if sink != nil {
			sink.Record(event.Event{
				Slot:  f.Slot,
				Color: event.ColorWarning,
				Time:  f.Time,
				Text:  fmt.Sprintf("unknown PDU: domain=%d mfid=0x%02X opcode=0x%02X", f.Domain, f.MFID, f.Opcode),
			})
		}
		return nil
	}
	return ctx.HandleEvent(ev)
}

// IsOpaquePassThrough reports whether u is a known-but-undocumented vendor
// message that should be logged for operator visibility rather than
// silently dropped (base spec §9: Motorola MFID90 opcode 0x5 "BSI").
func (u Unknown) IsOpaquePassThrough() bool {
	return u.MFID == mfidMotorola && u.Opcode == 0x05
}

// be16 reads a big-endian uint16 at offset off, or 0 if payload is too
// short.
func be16(payload []byte, off int) uint16 {
	if off+2 > len(payload) {
		return 0
	}
	return binary.BigEndian.Uint16(payload[off:])
}

// be24 reads a big-endian 24-bit unsigned value at offset off.
func be24(payload []byte, off int) uint32 {
	if off+3 > len(payload) {
		return 0
	}
	return uint32(payload[off])<<16 | uint32(payload[off+1])<<8 | uint32(payload[off+2])
}
