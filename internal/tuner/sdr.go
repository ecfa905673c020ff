// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tuner

import (
	"fmt"
	"net"
	"sync"

	"github.com/bemasher/rtltcp"
)

// SDR drives a local rtl_tcp-compatible dongle directly, with optional PPM
// correction and AGC (base spec §4.6: "direct tune with optional PPM/AGC").
type SDR struct {
	mu        sync.Mutex
	sdr       rtltcp.SDR
	addr      string
	ppm       int
	agc       bool
	lastCC    uint64
	lastHz    uint64
	connected bool
}

// NewSDR returns an adapter that connects to a local rtl_tcp server at addr
// lazily on first use, applying ppm correction and enabling AGC if agc is
// true.
func NewSDR(addr string, ppm int, agc bool) *SDR {
	return &SDR{addr: addr, ppm: ppm, agc: agc}
}

func (s *SDR) ensureConnected() error {
	if s.connected {
		return nil
	}
	raddr, err := net.ResolveTCPAddr("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("resolve rtl_tcp addr %q: %w", s.addr, err)
	}
	if err := s.sdr.Connect(raddr); err != nil {
		return fmt.Errorf("connect rtl_tcp %q: %w", s.addr, err)
	}
	s.sdr.SetGainMode(s.agc)
	if s.ppm != 0 {
		s.sdr.SetFreqCorrection(int32(s.ppm))
	}
	s.connected = true
	return nil
}

func (s *SDR) tune(freqHz uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureConnected(); err != nil {
		return err
	}
	if s.lastHz == freqHz {
		return nil
	}
	s.sdr.SetCenterFreq(uint32(freqHz))
	s.lastHz = freqHz
	return nil
}

// TuneToCC tunes the dongle directly to a control-channel frequency.
func (s *SDR) TuneToCC(freqHz uint64) error {
	if err := s.tune(freqHz); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastCC = freqHz
	s.mu.Unlock()
	return nil
}

// TuneToVC tunes the dongle to a voice-channel frequency. isTDMA and
// slotHint carry no rtl_tcp-level meaning and are accepted only to satisfy
// the Adapter interface.
func (s *SDR) TuneToVC(freqHz uint64, _ bool, _ int) error {
	return s.tune(freqHz)
}

// ReturnToCC retunes to the last-commanded control-channel frequency.
func (s *SDR) ReturnToCC() error {
	s.mu.Lock()
	cc := s.lastCC
	s.mu.Unlock()
	return s.TuneToCC(cc)
}

// Close disconnects from the rtl_tcp server, if connected.
func (s *SDR) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil
	}
	s.sdr.Close()
	s.connected = false
	return nil
}
