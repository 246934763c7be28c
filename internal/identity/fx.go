package identity

import (
	"time"

	"github.com/hireboard/hireboard/internal/clock"
	"github.com/hireboard/hireboard/internal/config"
	"github.com/hireboard/hireboard/internal/identity/webhook"
	"go.uber.org/fx"
)

func newVerifier(cfg config.Config, clk clock.Clock) (*webhook.Verifier, error) {
	tolerance := time.Duration(cfg.WebhookReplayToleranceSeconds) * time.Second
	return webhook.NewVerifier(cfg.IdentityWebhookSecret, tolerance, clk)
}

// Module wires webhook verification and dispatch.
var Module = fx.Module("identity",
	fx.Provide(newVerifier),
	fx.Provide(webhook.NewDispatcher),
)
