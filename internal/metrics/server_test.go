// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package metrics_test

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arancormonk/dsd-neo-p25sm/internal/config"
	"github.com/arancormonk/dsd-neo-p25sm/internal/metrics"
)

func TestServerServesMetricsAndShutsDown(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := uint16(listener.Addr().(*net.TCPAddr).Port)
	require.NoError(t, listener.Close())

	cfg := &config.Config{
		MetricsEnabled: true,
		MetricsBind:    "127.0.0.1",
		MetricsPort:    port,
	}
	srv := metrics.NewServer(cfg)

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	addr := "http://127.0.0.1:" + strconv.Itoa(int(port)) + "/metrics"
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(addr)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-done)
}
