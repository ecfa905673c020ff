// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package logging_test

import (
	"log/slog"
	"testing"

	"github.com/arancormonk/dsd-neo-p25sm/internal/config"
	"github.com/arancormonk/dsd-neo-p25sm/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestSetupInstallsDefaultLogger(t *testing.T) {
	for _, level := range []config.LogLevel{
		config.LogLevelDebug,
		config.LogLevelInfo,
		config.LogLevelWarn,
		config.LogLevelError,
		config.LogLevel("bogus"),
	} {
		logger := logging.Setup(level)
		require.NotNil(t, logger)
		require.Same(t, logger, slog.Default())
	}
}
