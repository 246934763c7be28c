package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hireboard/hireboard/internal/cache"
	"github.com/hireboard/hireboard/internal/eventbus"
	identitydomain "github.com/hireboard/hireboard/internal/identity/domain"
	"github.com/hireboard/hireboard/internal/identity/webhook"
	"github.com/hireboard/hireboard/internal/user/domain"
	"go.uber.org/zap"
)

// SyncHandler applies identity.* bus events to local user records. Every
// event is re-verified against the embedded raw payload and headers before
// anything is written: the bus is durable, not trusted.
type SyncHandler struct {
	repo        domain.Repository
	log         *zap.Logger
	verifier    *webhook.Verifier
	invalidator cache.Invalidator
}

// New builds a SyncHandler. The verifier must have the replay tolerance
// disabled: bus redelivery after arbitrary delay is expected and must not
// be mistaken for a replay attack.
func New(repo domain.Repository, log *zap.Logger, verifier *webhook.Verifier, invalidator cache.Invalidator) *SyncHandler {
	return &SyncHandler{
		repo:        repo,
		log:         log.Named("user.sync"),
		verifier:    verifier,
		invalidator: invalidator,
	}
}

// RegisterHandlers binds the handler to the identity event names.
func (h *SyncHandler) RegisterHandlers(worker *eventbus.Worker) {
	worker.Register(identitydomain.EventIdentityCreated, h.HandleUpserted)
	worker.Register(identitydomain.EventIdentityUpdated, h.HandleUpserted)
	worker.Register(identitydomain.EventIdentityDeleted, h.HandleDeleted)
}

// HandleUpserted creates or updates the local record for a provider user.
// Redelivering the same event produces the same final record.
func (h *SyncHandler) HandleUpserted(ctx context.Context, evt *eventbus.Event) error {
	verified, err := h.reverify(evt)
	if err != nil {
		return err
	}

	user, err := userFromPayload(verified.Data)
	if err != nil {
		return err
	}

	if err := h.repo.Upsert(ctx, user); err != nil {
		return err
	}

	h.log.Info("user record synced", zap.String("user_id", user.ID), zap.String("event", evt.Name))
	return h.invalidator.Invalidate(ctx,
		cache.GlobalTag(cache.KindUsers),
		cache.IDTag(cache.KindUsers, user.ID),
	)
}

// HandleDeleted removes the local record. Deleting an already-deleted user
// is a successful no-op.
func (h *SyncHandler) HandleDeleted(ctx context.Context, evt *eventbus.Event) error {
	verified, err := h.reverify(evt)
	if err != nil {
		return err
	}

	var data struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(verified.Data, &data); err != nil || strings.TrimSpace(data.ID) == "" {
		return fmt.Errorf("identity event payload has no user id")
	}

	if err := h.repo.Delete(ctx, data.ID); err != nil {
		return err
	}

	h.log.Info("user record deleted", zap.String("user_id", data.ID))
	return h.invalidator.Invalidate(ctx,
		cache.GlobalTag(cache.KindUsers),
		cache.IDTag(cache.KindUsers, data.ID),
	)
}

func (h *SyncHandler) reverify(evt *eventbus.Event) (*identitydomain.VerifiedEvent, error) {
	var envelope identitydomain.EventEnvelope
	if err := json.Unmarshal(evt.Payload, &envelope); err != nil {
		return nil, fmt.Errorf("malformed bus envelope: %w", err)
	}

	headers := identitydomain.WebhookHeaders{
		ID:        envelope.Headers[identitydomain.HeaderID],
		Timestamp: envelope.Headers[identitydomain.HeaderTimestamp],
		Signature: envelope.Headers[identitydomain.HeaderSignature],
	}
	verified, err := h.verifier.Verify([]byte(envelope.Raw), headers)
	if err != nil {
		return nil, fmt.Errorf("bus event re-verification failed: %w", err)
	}
	return verified, nil
}

// userFromPayload maps the provider's user payload onto the local record.
func userFromPayload(data json.RawMessage) (*domain.User, error) {
	var payload struct {
		ID             string  `json:"id"`
		FirstName      string  `json:"first_name"`
		LastName       string  `json:"last_name"`
		ImageURL       *string `json:"image_url"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("malformed identity payload: %w", err)
	}
	if strings.TrimSpace(payload.ID) == "" {
		return nil, fmt.Errorf("identity event payload has no user id")
	}

	email := ""
	if len(payload.EmailAddresses) > 0 {
		email = payload.EmailAddresses[0].EmailAddress
	}
	name := strings.TrimSpace(strings.TrimSpace(payload.FirstName) + " " + strings.TrimSpace(payload.LastName))

	return &domain.User{
		ID:       payload.ID,
		Email:    email,
		Name:     name,
		ImageURL: payload.ImageURL,
	}, nil
}
