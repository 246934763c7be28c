package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hireboard/hireboard/internal/eventbus"
	"github.com/hireboard/hireboard/internal/identity/domain"
	"github.com/hireboard/hireboard/internal/observability"
	"go.uber.org/zap"
)

// eventNames maps recognized provider event types to internal event names.
// The set is closed; unlisted types are accepted and dropped silently so a
// provider rollout of new event types never turns into webhook failures.
var eventNames = map[string]string{
	domain.ProviderEventUserCreated: domain.EventIdentityCreated,
	domain.ProviderEventUserUpdated: domain.EventIdentityUpdated,
	domain.ProviderEventUserDeleted: domain.EventIdentityDeleted,
}

// Dispatcher translates verified webhook payloads into internal events and
// forwards them to the durable bus. It does not retry: a transport failure
// is surfaced as ErrDispatchFailed for the HTTP boundary to map to a 500,
// which makes the provider redeliver.
type Dispatcher struct {
	publisher eventbus.Publisher
	log       *zap.Logger
	metrics   *observability.WebhookMetrics
}

func NewDispatcher(publisher eventbus.Publisher, log *zap.Logger, metrics *observability.WebhookMetrics) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		log:       log.Named("identity.dispatcher"),
		metrics:   metrics,
	}
}

// Dispatch emits exactly one internal event per recognized provider event.
// The envelope carries the original raw body and headers so consumers can
// re-verify without trusting the bus.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *domain.VerifiedEvent) (domain.DispatchResult, error) {
	name, ok := eventNames[evt.Type]
	if !ok {
		d.log.Info("unrecognized provider event type ignored", zap.String("type", evt.Type))
		d.metrics.ObserveDispatch("ignored")
		return domain.DispatchResult{Ignored: true}, nil
	}

	envelope := domain.EventEnvelope{
		Data: evt.Data,
		Raw:  string(evt.Raw),
		Headers: map[string]string{
			domain.HeaderID:        evt.Headers.ID,
			domain.HeaderTimestamp: evt.Headers.Timestamp,
			domain.HeaderSignature: evt.Headers.Signature,
		},
	}

	err := d.publisher.Publish(ctx, eventbus.Message{
		Name:    name,
		Key:     orderingKey(evt),
		DedupID: evt.Headers.ID,
		Payload: envelope,
	})
	if err != nil {
		d.metrics.ObserveDispatch("failed")
		return domain.DispatchResult{}, fmt.Errorf("%w: %v", domain.ErrDispatchFailed, err)
	}

	d.metrics.ObserveDispatch("published")
	d.log.Info("identity event published",
		zap.String("event", name),
		zap.String("delivery_id", evt.Headers.ID),
	)
	return domain.DispatchResult{EventName: name}, nil
}

// orderingKey keys bus ordering by the provider's entity id, falling back to
// the delivery id when the payload carries none.
func orderingKey(evt *domain.VerifiedEvent) string {
	var data struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(evt.Data, &data); err == nil && data.ID != "" {
		return data.ID
	}
	return evt.Headers.ID
}
