// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arancormonk/dsd-neo-p25sm/internal/config"
)

const readTimeout = 3 * time.Second

// Server serves /metrics for Prometheus scraping. It is entirely optional;
// the SM core never depends on it being reachable.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a metrics HTTP server bound to cfg's metrics address.
// The caller starts it with Serve and stops it with Shutdown.
func NewServer(cfg *config.Config) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.MetricsBind, cfg.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: readTimeout,
		},
	}
}

// Serve blocks until the server stops; it returns nil on a clean shutdown.
func (s *Server) Serve() error {
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down metrics server: %w", err)
	}
	return nil
}
