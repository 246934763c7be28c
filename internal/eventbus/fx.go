package eventbus

import (
	"context"
	"time"

	"github.com/hireboard/hireboard/internal/clock"
	"github.com/hireboard/hireboard/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newWorkerFromConfig(db *gorm.DB, log *zap.Logger, clk clock.Clock, cfg config.Config) *Worker {
	return NewWorker(db, log, clk, WorkerConfig{
		PollInterval: time.Duration(cfg.BusPollIntervalMillis) * time.Millisecond,
		MaxAttempts:  cfg.BusMaxAttempts,
	})
}

func runWorker(lc fx.Lifecycle, worker *Worker) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go worker.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

// Module provides the durable bus publisher and worker.
var Module = fx.Module("eventbus",
	fx.Provide(NewPublisher),
	fx.Provide(newWorkerFromConfig),
)

// WorkerModule starts the polling worker; consumer apps include it after
// registering their handlers.
var WorkerModule = fx.Module("eventbus.worker",
	fx.Invoke(runWorker),
)
