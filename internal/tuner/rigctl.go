// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tuner

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	dialTimeout  = 3 * time.Second
	writeTimeout = 2 * time.Second
	readTimeout  = 2 * time.Second

	modeFM     = "FM"
	modeFMN    = "FMN"
	bwWideHz   = 12500
	bwNarrowHz = 6250
)

// Rigctl drives a rigctld-compatible TCP endpoint with the newline-terminated
// `M <mode> <bw>` / `F <hz>` command set (base spec §6). It memoizes the
// last commanded mode/bandwidth/frequency so redundant commands are skipped
// (base spec §4.6: "memoization of last freq/bw to avoid redundant
// commands").
type Rigctl struct {
	addr string

	mu       sync.Mutex
	conn     net.Conn
	lastMode string
	lastBw   int
	lastFreq uint64
	lastCC   uint64
}

// NewRigctl returns an adapter that dials addr lazily on first use.
func NewRigctl(addr string) *Rigctl {
	return &Rigctl{addr: addr}
}

func (r *Rigctl) ensureConn() (net.Conn, error) {
	if r.conn != nil {
		return r.conn, nil
	}
	conn, err := net.DialTimeout("tcp", r.addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial rigctl %q: %w", r.addr, err)
	}
	r.conn = conn
	return conn, nil
}

func (r *Rigctl) send(line string) error {
	conn, err := r.ensureConn()
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		r.conn = nil
		return fmt.Errorf("write rigctl command %q: %w", line, err)
	}
	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}
	reader := bufio.NewReader(conn)
	if _, err := reader.ReadString('\n'); err != nil {
		r.conn = nil
		return fmt.Errorf("read rigctl response to %q: %w", line, err)
	}
	return nil
}

func (r *Rigctl) setFreq(freqHz uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastFreq == freqHz {
		return nil
	}
	if err := r.send(fmt.Sprintf("F %d", freqHz)); err != nil {
		return err
	}
	r.lastFreq = freqHz
	return nil
}

func (r *Rigctl) setMode(mode string, bwHz int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastMode == mode && r.lastBw == bwHz {
		return nil
	}
	if err := r.send(fmt.Sprintf("M %s %d", mode, bwHz)); err != nil {
		return err
	}
	r.lastMode = mode
	r.lastBw = bwHz
	return nil
}

// TuneToCC sets a wideband-FM control-channel mode and frequency.
func (r *Rigctl) TuneToCC(freqHz uint64) error {
	if err := r.setMode(modeFM, bwWideHz); err != nil {
		return err
	}
	if err := r.setFreq(freqHz); err != nil {
		return err
	}
	r.mu.Lock()
	r.lastCC = freqHz
	r.mu.Unlock()
	return nil
}

// TuneToVC sets a narrowband mode for TDMA (Phase 2) channels, wideband
// otherwise, then the frequency. slotHint is not represented in the rigctl
// wire protocol; it is accepted to satisfy the Adapter interface.
func (r *Rigctl) TuneToVC(freqHz uint64, isTDMA bool, _ int) error {
	bw := bwWideHz
	mode := modeFM
	if isTDMA {
		bw = bwNarrowHz
		mode = modeFMN
	}
	if err := r.setMode(mode, bw); err != nil {
		return err
	}
	return r.setFreq(freqHz)
}

// ReturnToCC re-tunes to the last control-channel frequency commanded via
// TuneToCC.
func (r *Rigctl) ReturnToCC() error {
	r.mu.Lock()
	ccFreq := r.lastCC
	r.mu.Unlock()
	return r.TuneToCC(ccFreq)
}

// Close closes the underlying TCP connection, if one is open.
func (r *Rigctl) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	if err != nil {
		return fmt.Errorf("close rigctl connection: %w", err)
	}
	return nil
}
