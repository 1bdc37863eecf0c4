// Package handler assembles the HTTP handler tree served by the gate.
package handler

import (
	"net/http"

	"github.com/brizzai/entitlement-gate/internal/auth"
	authmw "github.com/brizzai/entitlement-gate/internal/auth/middleware"
	"github.com/brizzai/entitlement-gate/internal/logger"
	"github.com/brizzai/entitlement-gate/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler manages routing and the middleware stack.
type Handler struct {
	auth     *auth.Service
	recorder *metrics.Recorder
}

// NewHandler creates a new HTTP handler. recorder may be nil.
func NewHandler(auth *auth.Service, recorder *metrics.Recorder) *Handler {
	return &Handler{
		auth:     auth,
		recorder: recorder,
	}
}

// CreateHTTPHandler builds the router with the gate routes and, when metrics are
// enabled, the /metrics endpoint.
func (h *Handler) CreateHTTPHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(authmw.RequestLogger)
	r.Use(middleware.Recoverer)
	if h.recorder != nil {
		r.Use(h.recorder.Middleware)
	}

	h.auth.RegisterRoutes(r)
	logger.Info("Registered gate routes")

	if h.recorder != nil {
		r.Method(http.MethodGet, "/metrics", h.recorder.Handler())
	}

	return h.auth.WrapWithCors(r)
}
