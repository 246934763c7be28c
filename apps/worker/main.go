package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/hireboard/hireboard/internal/cache"
	"github.com/hireboard/hireboard/internal/clock"
	"github.com/hireboard/hireboard/internal/config"
	"github.com/hireboard/hireboard/internal/eventbus"
	"github.com/hireboard/hireboard/internal/logger"
	"github.com/hireboard/hireboard/internal/migration"
	"github.com/hireboard/hireboard/internal/observability"
	"github.com/hireboard/hireboard/internal/user"
	"github.com/hireboard/hireboard/pkg/db"
)

// The worker process drains the durable bus: it re-verifies identity events
// and keeps the local user mirror in sync.
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
		user.Module,
		eventbus.WorkerModule,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
