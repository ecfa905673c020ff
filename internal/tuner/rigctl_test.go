// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tuner_test

import (
	"bufio"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arancormonk/dsd-neo-p25sm/internal/tuner"
)

// fakeRigctld accepts a single connection and echoes "RPRT 0" for every
// line it receives, recording the lines it saw.
func fakeRigctld(t *testing.T) (addr string, received <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	lines := make(chan string, 16)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		reader := bufio.NewReader(conn)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				lines <- line
			}
			if err != nil {
				return
			}
			if _, err := conn.Write([]byte("RPRT 0\n")); err != nil {
				return
			}
		}
	}()
	return ln.Addr().String(), lines
}

func TestRigctlTuneToCCSendsModeAndFreq(t *testing.T) {
	addr, lines := fakeRigctld(t)
	r := tuner.NewRigctl(addr)
	defer r.Close()

	require.NoError(t, r.TuneToCC(851012500))
	require.Equal(t, "M FM 12500\n", <-lines)
	require.Equal(t, "F 851012500\n", <-lines)
}

func TestRigctlMemoizesRedundantCommands(t *testing.T) {
	addr, lines := fakeRigctld(t)
	r := tuner.NewRigctl(addr)
	defer r.Close()

	require.NoError(t, r.TuneToCC(851012500))
	<-lines
	<-lines

	require.NoError(t, r.TuneToCC(851012500))
	select {
	case l := <-lines:
		t.Fatalf("expected no further commands for a repeated tune, got %q", l)
	default:
	}
}

func TestRigctlTuneToVCUsesNarrowbandForTDMA(t *testing.T) {
	addr, lines := fakeRigctld(t)
	r := tuner.NewRigctl(addr)
	defer r.Close()

	require.NoError(t, r.TuneToVC(852250000, true, 0))
	require.Equal(t, "M FMN 6250\n", <-lines)
	require.Equal(t, "F 852250000\n", <-lines)
}

func TestRigctlReturnToCCRetunesLastCCFreq(t *testing.T) {
	addr, lines := fakeRigctld(t)
	r := tuner.NewRigctl(addr)
	defer r.Close()

	require.NoError(t, r.TuneToCC(851012500))
	<-lines
	<-lines
	require.NoError(t, r.TuneToVC(852250000, false, 0))
	<-lines
	<-lines

	require.NoError(t, r.ReturnToCC())
	require.Equal(t, "M FM 12500\n", <-lines)
	require.Equal(t, "F 851012500\n", <-lines)
}
