package auth

import (
	"net/http"

	"github.com/brizzai/entitlement-gate/internal/auth/handlers"
	"github.com/brizzai/entitlement-gate/internal/auth/middleware"
	"github.com/go-chi/chi/v5"
)

// Service represents the OAuth gate's browser-facing surface
type Service struct {
	frontendURL string
	handler     *handlers.Handler
}

// NewService creates a new OAuth service
func NewService(frontendURL string, handler *handlers.Handler) *Service {
	return &Service{
		frontendURL: frontendURL,
		handler:     handler,
	}
}

// RegisterRoutes registers all OAuth and session routes
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/", s.handler.HandleHealth)

	r.Route("/api/oauth", func(r chi.Router) {
		r.Get("/start", s.handler.HandleStart)
		r.Get("/callback", s.handler.HandleCallback)
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/check", s.handler.HandleCheck)
		r.Post("/session", s.handler.HandleFinalize)
		r.Delete("/session", s.handler.HandleLogout)
	})
}

// WrapWithCors allows credentialed calls from the frontend origin
func (s *Service) WrapWithCors(handler http.Handler) http.Handler {
	return middleware.CORSWithOrigins([]string{s.frontendURL})(handler)
}
