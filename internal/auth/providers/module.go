package providers

import "go.uber.org/fx"

// Module wires the Whop provider as the gate's Provider
var Module = fx.Module("providers",
	fx.Provide(
		fx.Annotate(NewWhopProvider, fx.As(new(Provider))),
	),
)
