package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/hireboard/hireboard/internal/config"
)

// Module runs SQL migrations for postgres deployments. Other drivers (used
// in tests and local sqlite setups) fall back to gorm auto-migration.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			return AutoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
