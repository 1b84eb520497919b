package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/novabiz/paydesk/internal/config"
	"github.com/novabiz/paydesk/internal/migration"
	"github.com/novabiz/paydesk/internal/observability"
	"github.com/novabiz/paydesk/internal/server"
	"github.com/novabiz/paydesk/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
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
