package metrics

import (
	"github.com/brizzai/entitlement-gate/internal/auth/flow"
	"github.com/brizzai/entitlement-gate/internal/auth/handlers"
	"go.uber.org/fx"
)

// Module provides the Recorder and exposes it to the orchestrator and handlers
var Module = fx.Module("metrics",
	fx.Provide(
		NewRecorder,
		func(r *Recorder) flow.CallObserver { return r },
		func(r *Recorder) handlers.Observer { return r },
	),
)
