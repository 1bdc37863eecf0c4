package auth

import (
	"github.com/brizzai/entitlement-gate/internal/auth/flow"
	"github.com/brizzai/entitlement-gate/internal/auth/handlers"
	"github.com/brizzai/entitlement-gate/internal/auth/providers"
	"github.com/brizzai/entitlement-gate/internal/auth/session"
	"github.com/brizzai/entitlement-gate/internal/config"
	"go.uber.org/fx"
)

// ServiceParams are the dependencies of the auth Service. Observer is optional.
type ServiceParams struct {
	fx.In

	Server       *config.ServerConfig
	Frontend     *config.FrontendConfig
	Session      *config.SessionConfig
	Provider     providers.Provider
	Orchestrator *flow.Orchestrator
	Gate         *session.Gate
	Tickets      session.TicketStore
	Observer     handlers.Observer `optional:"true"`
}

func newServiceFromParams(p ServiceParams) *Service {
	h := handlers.NewHandler(handlers.Options{
		ServiceName:  p.Server.Name,
		FrontendURL:  p.Frontend.URL,
		Strategy:     p.Session.Strategy,
		Provider:     p.Provider,
		Orchestrator: p.Orchestrator,
		Gate:         p.Gate,
		Tickets:      p.Tickets,
		Observer:     p.Observer,
	})
	return NewService(p.Frontend.URL, h)
}

// Module provides the auth Service
var Module = fx.Module("auth",
	fx.Provide(newServiceFromParams),
)
