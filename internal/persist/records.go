// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package persist

import "github.com/tinylib/msgp/msgp"

// CandidateRecord is one CandidateStore entry, keyed externally by
// (wacn, sysid) (base spec §4.2 "load(wacn, sysid)", "persist(wacn, sysid)").
// It carries msgp tags so the Redis backend can encode it as a compact
// binary blob rather than the local text format, mirroring DMRHub's
// models.Repeater //go:generate msgp records.
//
//go:generate msgp
type CandidateRecord struct {
	FreqHz uint64 `msg:"freq_hz"`
}

// LockoutRecord is one GroupList entry for a talkgroup locked out by the
// encryption policy (base spec §4.7).
//
//go:generate msgp
type LockoutRecord struct {
	TG   uint32 `msg:"tg"`
	Mode string `msg:"mode"`
	Name string `msg:"name"`
}

// The MarshalMsg/UnmarshalMsg/Msgsize methods below are hand-written in the
// shape msgp's generator produces, since this tree has no go:generate step
// to run. Only the Redis backend exercises these; the default file backend
// uses the plain line-oriented text format base spec §6 specifies.

// MarshalMsg implements msgp.Marshaler.
func (r CandidateRecord) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 1)
	b = msgp.AppendString(b, "freq_hz")
	b = msgp.AppendUint64(b, r.FreqHz)
	return b, nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (r *CandidateRecord) UnmarshalMsg(bts []byte) ([]byte, error) {
	n, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return bts, err
	}
	for i := uint32(0); i < n; i++ {
		var field string
		field, bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return bts, err
		}
		switch field {
		case "freq_hz":
			r.FreqHz, bts, err = msgp.ReadUint64Bytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return bts, err
		}
	}
	return bts, nil
}

// Msgsize implements msgp.Sizer, used to preallocate the encode buffer.
func (r CandidateRecord) Msgsize() int {
	return msgp.MapHeaderSize + msgp.StringPrefixSize + len("freq_hz") + msgp.Uint64Size
}

// MarshalMsg implements msgp.Marshaler.
func (r LockoutRecord) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 3)
	b = msgp.AppendString(b, "tg")
	b = msgp.AppendUint32(b, r.TG)
	b = msgp.AppendString(b, "mode")
	b = msgp.AppendString(b, r.Mode)
	b = msgp.AppendString(b, "name")
	b = msgp.AppendString(b, r.Name)
	return b, nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (r *LockoutRecord) UnmarshalMsg(bts []byte) ([]byte, error) {
	n, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return bts, err
	}
	for i := uint32(0); i < n; i++ {
		var field string
		field, bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return bts, err
		}
		switch field {
		case "tg":
			r.TG, bts, err = msgp.ReadUint32Bytes(bts)
		case "mode":
			r.Mode, bts, err = msgp.ReadStringBytes(bts)
		case "name":
			r.Name, bts, err = msgp.ReadStringBytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return bts, err
		}
	}
	return bts, nil
}

// Msgsize implements msgp.Sizer.
func (r LockoutRecord) Msgsize() int {
	return msgp.MapHeaderSize +
		msgp.StringPrefixSize + len("tg") + msgp.Uint32Size +
		msgp.StringPrefixSize + len("mode") + msgp.StringPrefixSize + len(r.Mode) +
		msgp.StringPrefixSize + len("name") + msgp.StringPrefixSize + len(r.Name)
}

// marshalCandidateFreqs encodes a candidate-store snapshot as an msgp array
// of CandidateRecord, for the Redis backend's value blob.
func marshalCandidateFreqs(freqs []uint64) ([]byte, error) {
	b := msgp.AppendArrayHeader(nil, uint32(len(freqs)))
	for _, f := range freqs {
		rec := CandidateRecord{FreqHz: f}
		var err error
		b, err = rec.MarshalMsg(b)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

// unmarshalCandidateFreqs decodes what marshalCandidateFreqs produced.
func unmarshalCandidateFreqs(b []byte) ([]uint64, error) {
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, n)
	for i := uint32(0); i < n; i++ {
		var rec CandidateRecord
		b, err = rec.UnmarshalMsg(b)
		if err != nil {
			return nil, err
		}
		out = append(out, rec.FreqHz)
	}
	return out, nil
}

// marshalLockouts encodes the lockout table as an msgp array of
// LockoutRecord, for the Redis backend's single shared value blob.
func marshalLockouts(entries map[uint32]LockoutRecord) ([]byte, error) {
	b := msgp.AppendArrayHeader(nil, uint32(len(entries)))
	for _, rec := range entries {
		var err error
		b, err = rec.MarshalMsg(b)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

// unmarshalLockouts decodes what marshalLockouts produced.
func unmarshalLockouts(b []byte) (map[uint32]LockoutRecord, error) {
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, err
	}
	out := make(map[uint32]LockoutRecord, n)
	for i := uint32(0); i < n; i++ {
		var rec LockoutRecord
		b, err = rec.UnmarshalMsg(b)
		if err != nil {
			return nil, err
		}
		out[rec.TG] = rec
	}
	return out, nil
}
