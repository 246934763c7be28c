package user

import (
	"github.com/hireboard/hireboard/internal/cache"
	"github.com/hireboard/hireboard/internal/config"
	"github.com/hireboard/hireboard/internal/eventbus"
	"github.com/hireboard/hireboard/internal/identity/webhook"
	"github.com/hireboard/hireboard/internal/user/domain"
	"github.com/hireboard/hireboard/internal/user/repository"
	"github.com/hireboard/hireboard/internal/user/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newSyncHandler(repo domain.Repository, log *zap.Logger, cfg config.Config, invalidator cache.Invalidator) (*service.SyncHandler, error) {
	// tolerance disabled: bus events are re-verified long after delivery
	verifier, err := webhook.NewVerifier(cfg.IdentityWebhookSecret, 0, nil)
	if err != nil {
		return nil, err
	}
	return service.New(repo, log, verifier, invalidator), nil
}

func registerHandlers(handler *service.SyncHandler, worker *eventbus.Worker) {
	handler.RegisterHandlers(worker)
}

// Module wires the local user mirror and its bus consumer.
var Module = fx.Module("user",
	fx.Provide(repository.NewRepository),
	fx.Provide(newSyncHandler),
	fx.Invoke(registerHandlers),
)
