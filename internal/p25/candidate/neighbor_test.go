// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package candidate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arancormonk/dsd-neo-p25sm/internal/clock"
	"github.com/arancormonk/dsd-neo-p25sm/internal/p25/candidate"
)

func TestNeighborObserveAndSnapshot(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	n := candidate.NewNeighborTable(clk)
	n.Observe(100)
	clk.Advance(1)
	n.Observe(200)

	snap := n.Snapshot()
	require.Equal(t, []uint64{200, 100}, snap, "most recently seen first")
}

func TestNeighborTTLExpiry(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	n := candidate.NewNeighborTable(clk)
	n.Observe(100)

	clk.Advance(11 * 60)
	require.Empty(t, n.Snapshot())
}

func TestNeighborPruneDropsExpired(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	n := candidate.NewNeighborTable(clk)
	n.Observe(100)
	clk.Advance(11 * 60)
	n.Observe(200)

	n.Prune()
	snap := n.Snapshot()
	require.Equal(t, []uint64{200}, snap)
}
