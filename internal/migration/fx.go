package migration

import (
	"github.com/smallbiznis/sevsync/internal/order/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module creates the side-channel tables this service owns. The order
// records themselves live in the shop platform and are never migrated here.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		return conn.AutoMigrate(
			&domain.OrderMeta{},
			&domain.OrderNote{},
			&domain.WebhookEvent{},
		)
	}),
)
