// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// EventLog appends one free-form line per call-history event to a file in
// the format `YYYY/MM/DD HH:MM:SS <text>` (base spec §6). It is safe for
// concurrent use by the demod and watchdog threads.
type EventLog struct {
	mu   sync.Mutex
	w    io.WriteCloser
	file *os.File
	now  func() time.Time
}

// NewEventLog opens path for append, creating it if necessary. An empty path
// yields a no-op log so the SM never fails to start over event-history
// persistence (base spec §7 fatal errors are limited to device open and
// mandatory INI fields, not logging).
func NewEventLog(path string) (*EventLog, error) {
	if path == "" {
		return &EventLog{w: io.Discard, now: time.Now}, nil
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log %q: %w", path, err)
	}
	return &EventLog{w: f, file: f, now: time.Now}, nil
}

// Record appends a single event line, formatted with the current wall
// clock time per base spec §6.
func (e *EventLog) Record(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ts := e.now().Format("2006/01/02 15:04:05")
	fmt.Fprintf(e.w, "%s %s\n", ts, text)
}

// Recordf is Record with fmt.Sprintf-style formatting.
func (e *EventLog) Recordf(format string, args ...interface{}) {
	e.Record(fmt.Sprintf(format, args...))
}

// Close closes the underlying file, if any.
func (e *EventLog) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return nil
	}
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("failed to close event log: %w", err)
	}
	return nil
}
