package order

import (
	"github.com/smallbiznis/sevsync/internal/order/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("order.store",
	fx.Provide(repository.NewStore),
)
