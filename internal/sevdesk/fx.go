package sevdesk

import (
	"github.com/smallbiznis/sevsync/internal/config"
	"go.uber.org/fx"
)

// Module wires the sevdesk API client. The settings holder doubles as the
// credential source so a key added at runtime is picked up per call.
var Module = fx.Module("sevdesk.client",
	fx.Provide(NewMetrics),
	fx.Provide(func(cfg config.Config, settings *config.SettingsHolder, metrics *Metrics) *Client {
		return NewClient(cfg.Sevdesk.BaseURL, settings, metrics)
	}),
)
