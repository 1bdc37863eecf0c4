package flow

import (
	"github.com/brizzai/entitlement-gate/internal/auth/policy"
	"github.com/brizzai/entitlement-gate/internal/auth/providers"
	"github.com/brizzai/entitlement-gate/internal/config"
	"go.uber.org/fx"
)

// Params are the orchestrator's dependencies. Observer is optional.
type Params struct {
	fx.In

	Provider       providers.Provider
	Products       *policy.AllowedProductSet
	Access         *config.AccessConfig
	ProviderConfig *config.ProviderConfig
	Observer       CallObserver `optional:"true"`
}

func newFromParams(p Params) *Orchestrator {
	return NewOrchestrator(p.Provider, p.Products, p.Access, p.ProviderConfig, WithObserver(p.Observer))
}

// Module provides the callback orchestrator
var Module = fx.Module("flow",
	fx.Provide(newFromParams),
)
