package config

import "go.uber.org/fx"

// Module splits a loaded Config into the sections other modules depend on.
var Module = fx.Module("config",
	fx.Provide(
		func(c *Config) *ServerConfig { return &c.Server },
		func(c *Config) *LoggingConfig { return &c.Logging },
		func(c *Config) *ProviderConfig { return &c.Provider },
		func(c *Config) *FrontendConfig { return &c.Frontend },
		func(c *Config) *AccessConfig { return &c.Access },
		func(c *Config) *SessionConfig { return &c.Session },
	),
)
