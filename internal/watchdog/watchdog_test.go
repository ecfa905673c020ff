// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package watchdog_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arancormonk/dsd-neo-p25sm/internal/watchdog"
)

type fakeTicker struct {
	ticks  atomic.Int64
	ticked bool
	err    error
}

func (f *fakeTicker) TryTick(_ float64) (bool, error) {
	f.ticks.Add(1)
	return f.ticked, f.err
}

type fakeClock struct{}

func (fakeClock) Monotonic() float64 { return 0 }

func TestNewNotNil(t *testing.T) {
	t.Parallel()
	wd, err := watchdog.New(&fakeTicker{ticked: true}, fakeClock{}, 10*time.Millisecond)
	require.NoError(t, err)
	assert.NotNil(t, wd)
}

func TestStartAndStopDoesNotPanic(t *testing.T) {
	t.Parallel()
	wd, err := watchdog.New(&fakeTicker{ticked: true}, fakeClock{}, 10*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, wd.Start())
	require.NoError(t, wd.Stop())
}

func TestStartTicksRepeatedly(t *testing.T) {
	t.Parallel()
	ft := &fakeTicker{ticked: true}
	wd, err := watchdog.New(ft, fakeClock{}, 5*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, wd.Start())
	t.Cleanup(func() { _ = wd.Stop() })

	require.Eventually(t, func() bool {
		return ft.ticks.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}
