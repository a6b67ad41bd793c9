package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

type ControlPlaneServer struct {
	config *ControlPlaneConfig
	server *http.Server
	addr   atomic.Pointer[string]
}

func NewControlPlaneServer(config *ControlPlaneConfig, deps *RouteDeps) (*ControlPlaneServer, error) {
	if _, err := addrToURL(config.Addr); err != nil {
		return nil, err
	}

	routes, err := SetupRoutes(deps, &RouteConfig{
		AuthToken: config.AuthToken,
		RateLimit: config.RateLimit,
		Logger:    config.Logger,
	})
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:    config.Addr,
		Handler: routes,
		// Timeouts to prevent slow client attacks. Pushes are synchronous, so writes get more room.
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// Connection control
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	return &ControlPlaneServer{
		config: config,
		server: httpServer,
	}, nil
}

// Start listens and serves until Stop is called.
func (s *ControlPlaneServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	addr := ln.Addr().String()
	s.addr.Store(&addr)

	url, _ := addrToURL(addr)
	slog.Info("control plane start", "addr", url, "auth", s.config.AuthToken != "")

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Addr returns the bound address once Start is listening, or "" before.
func (s *ControlPlaneServer) Addr() string {
	if addr := s.addr.Load(); addr != nil {
		return *addr
	}
	return ""
}

func (s *ControlPlaneServer) Stop(ctx context.Context) error {
	slog.Info("control plane stop")
	return s.server.Shutdown(ctx)
}

// addrToURL turns a listen address into a base url. An empty host means all interfaces.
func addrToURL(addr string) (string, error) {
	if addr == "" || strings.Contains(addr, "://") {
		return "", fmt.Errorf("invalid control plane address %q", addr)
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid control plane address %q: %w", addr, err)
	}
	if port == "" {
		return "", fmt.Errorf("invalid control plane address %q: missing port", addr)
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return "http://" + net.JoinHostPort(host, port), nil
}
