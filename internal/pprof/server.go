// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package pprof serves Go's runtime profiler over HTTP, for diagnosing the
// SM core under load (goroutine leaks around a stuck tuner, lock
// contention on the SM mutex). It is entirely optional ambient tooling,
// off by default.
package pprof

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/arancormonk/dsd-neo-p25sm/internal/config"
)

const readTimeout = 3 * time.Second

// Server serves /debug/pprof/* for `go tool pprof`. The SM core never
// depends on it being reachable.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a pprof HTTP server bound to cfg's pprof address.
func NewServer(cfg *config.Config) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.PProfBind, cfg.PProfPort),
			Handler:           mux,
			ReadHeaderTimeout: readTimeout,
		},
	}
}

// Serve blocks until the server stops; it returns nil on a clean shutdown.
func (s *Server) Serve() error {
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("pprof server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the pprof server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down pprof server: %w", err)
	}
	return nil
}
