// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tuner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arancormonk/dsd-neo-p25sm/internal/tuner"
)

func TestNoopRecordsLastFrequencies(t *testing.T) {
	n := tuner.NewNoop()
	require.NoError(t, n.TuneToCC(851012500))
	require.NoError(t, n.TuneToVC(852250000, false, 0))
	require.EqualValues(t, 851012500, n.LastCCHz())
	require.EqualValues(t, 852250000, n.LastVCHz())

	require.NoError(t, n.ReturnToCC())
	require.EqualValues(t, 0, n.LastVCHz())
	require.Equal(t, []string{"tune_to_cc", "tune_to_vc", "return_to_cc"}, n.Calls())
}
