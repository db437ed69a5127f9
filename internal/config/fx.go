package config

import "go.uber.org/fx"

// Module wires application configuration and the persisted settings file.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewSettingsHolder,
	),
)
