// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package event_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/event"
)

func TestRingPushAndSnapshotOrder(t *testing.T) {
	r := event.NewRing()
	r.Push(event.Event{Text: "first"})
	r.Push(event.Event{Text: "second"})

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, "first", snap[0].Text)
	require.Equal(t, "second", snap[1].Text)
}

func TestRingOverwritesOldestOnOverflow(t *testing.T) {
	r := event.NewRing()
	for i := 0; i < 257; i++ {
		r.Push(event.Event{Text: "x"})
	}
	snap := r.Snapshot()
	require.Len(t, snap, 256, "ring caps at its fixed capacity")
}

func TestSinkRecordRoutesBySlot(t *testing.T) {
	s := event.NewSink(nil)
	s.Record(event.Event{Slot: 0, Text: "slot0 event"})
	s.Record(event.Event{Slot: 1, Text: "slot1 event"})

	require.Len(t, s.Snapshot(0), 1)
	require.Len(t, s.Snapshot(1), 1)
	require.Equal(t, "slot0 event", s.Snapshot(0)[0].Text)
}

func TestSinkSnapshotInvalidSlotReturnsNil(t *testing.T) {
	s := event.NewSink(nil)
	require.Nil(t, s.Snapshot(2))
}

func TestColorStringifiesToClosedSet(t *testing.T) {
	require.Equal(t, "normal", event.ColorNormal.String())
	require.Equal(t, "warning", event.ColorWarning.String())
	require.Equal(t, "error", event.ColorError.String())
}
