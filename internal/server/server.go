// Package server runs the gate's HTTP server under the fx lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/brizzai/entitlement-gate/internal/auth"
	"github.com/brizzai/entitlement-gate/internal/config"
	"github.com/brizzai/entitlement-gate/internal/logger"
	"github.com/brizzai/entitlement-gate/internal/metrics"
	"github.com/brizzai/entitlement-gate/internal/server/handler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// defaultShutdownTimeout is used when the config leaves it unset
	defaultShutdownTimeout = 5 * time.Second
)

// Server owns the listening HTTP server.
type Server struct {
	config     *config.ServerConfig
	httpServer *http.Server
	errChan    chan error
	addr       string
}

// NewServer creates the HTTP server for the gate. It does not listen until Start.
func NewServer(cfg *config.ServerConfig, authService *auth.Service, recorder *metrics.Recorder) *Server {
	h := handler.NewHandler(authService, recorder)
	return &Server{
		config: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           h.CreateHTTPHandler(),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		errChan: make(chan error, 1),
	}
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr is the bound address once Start has returned.
func (s *Server) Addr() string {
	return s.addr
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.addr = ln.Addr().String()

	go func() {
		defer close(s.errChan)
		logger.Info("Starting server",
			zap.String("name", s.config.Name),
			zap.String("address", s.addr),
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errChan <- fmt.Errorf("server error: %w", err)
		}
	}()
	return nil
}

// Stop drains in-flight requests within the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	logger.Info("Shutting down server", zap.Duration("timeout", timeout))

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

func register(lc fx.Lifecycle, s *Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := s.Start(ctx); err != nil {
				return err
			}
			go func() {
				if err, ok := <-s.errChan; ok {
					logger.Error("HTTP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: s.Stop,
	})
}

// Module provides the HTTP server and ties it to the application lifecycle
var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(register),
)
