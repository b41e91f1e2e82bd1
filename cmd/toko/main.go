package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/toko/internal/clock"
	"github.com/smallbiznis/toko/internal/config"
	"github.com/smallbiznis/toko/internal/migration"
	"github.com/smallbiznis/toko/internal/observability"
	"github.com/smallbiznis/toko/internal/server"
	"github.com/smallbiznis/toko/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
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
