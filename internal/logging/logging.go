// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package logging sets up the process-wide structured logger (base spec
// §4.7 "verbose logs") and the separate line-oriented event history file
// (base spec §6 "Event log file format").
package logging

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"

	"github.com/arancormonk/dsd-neo-p25sm/internal/config"
)

// Setup builds the default slog logger from the resolved log level and
// installs it as the process default, mirroring the teacher's cmd/root.go
// tint wiring. The returned logger is also handed back directly so callers
// do not need to go through slog.Default().
func Setup(level config.LogLevel) *slog.Logger {
	var logger *slog.Logger
	switch level {
	case config.LogLevelDebug:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	case config.LogLevelInfo:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	case config.LogLevelWarn:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case config.LogLevelError:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	default:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	}
	slog.SetDefault(logger)
	return logger
}
