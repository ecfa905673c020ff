// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/arancormonk/dsd-neo-p25sm/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestEventLogAppendsFormattedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	log, err := logging.NewEventLog(path)
	require.NoError(t, err)
	defer log.Close()

	log.Record("CC acquired on 851.0125 MHz")
	log.Recordf("Call Termination TG=%d", 52198)
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "CC acquired on 851.0125 MHz")
	require.Contains(t, lines[1], "Call Termination TG=52198")
	for _, line := range lines {
		// YYYY/MM/DD HH:MM:SS prefix is 19 bytes.
		require.GreaterOrEqual(t, len(line), 20)
	}
}

func TestEventLogEmptyPathIsNoOp(t *testing.T) {
	log, err := logging.NewEventLog("")
	require.NoError(t, err)
	log.Record("should not panic or write anywhere")
	require.NoError(t, log.Close())
}

func TestEventLogConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	log, err := logging.NewEventLog(path)
	require.NoError(t, err)
	defer log.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			log.Recordf("event %d", n)
		}(i)
	}
	wg.Wait()
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 50)
}
