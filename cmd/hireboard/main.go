package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/hireboard/hireboard/internal/authorization"
	"github.com/hireboard/hireboard/internal/cache"
	"github.com/hireboard/hireboard/internal/clock"
	"github.com/hireboard/hireboard/internal/config"
	"github.com/hireboard/hireboard/internal/eventbus"
	"github.com/hireboard/hireboard/internal/identity"
	"github.com/hireboard/hireboard/internal/joblisting"
	"github.com/hireboard/hireboard/internal/logger"
	"github.com/hireboard/hireboard/internal/migration"
	"github.com/hireboard/hireboard/internal/observability"
	"github.com/hireboard/hireboard/internal/organization"
	"github.com/hireboard/hireboard/internal/server"
	"github.com/hireboard/hireboard/internal/user"
	"github.com/hireboard/hireboard/pkg/db"
)

// Single-process deployment: HTTP surface and bus worker in one binary.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		cache.Module,
		observability.Module,

		eventbus.Module,
		identity.Module,
		organization.Module,
		authorization.Module,
		joblisting.Module,
		user.Module,
		eventbus.WorkerModule,

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
