package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sevsync/internal/clock"
	"github.com/smallbiznis/sevsync/internal/config"
	"github.com/smallbiznis/sevsync/internal/logger"
	"github.com/smallbiznis/sevsync/internal/migration"
	"github.com/smallbiznis/sevsync/internal/order"
	"github.com/smallbiznis/sevsync/internal/server"
	"github.com/smallbiznis/sevsync/internal/sevdesk"
	"github.com/smallbiznis/sevsync/internal/sync"
	"github.com/smallbiznis/sevsync/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		order.Module,
		sevdesk.Module,
		sync.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
