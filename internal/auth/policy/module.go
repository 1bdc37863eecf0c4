package policy

import "go.uber.org/fx"

// Module provides the compiled-in product allow-list
var Module = fx.Module("policy",
	fx.Provide(DefaultProducts),
)
