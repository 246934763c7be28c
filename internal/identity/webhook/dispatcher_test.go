package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/hireboard/hireboard/internal/eventbus"
	"github.com/hireboard/hireboard/internal/identity/domain"
)

type fakePublisher struct {
	published []eventbus.Message
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, msg eventbus.Message) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func verifiedEvent(eventType, deliveryID string, data string) *domain.VerifiedEvent {
	raw := []byte(`{"type":"` + eventType + `","data":` + data + `}`)
	return &domain.VerifiedEvent{
		Type: eventType,
		Data: json.RawMessage(data),
		Raw:  raw,
		Headers: domain.WebhookHeaders{
			ID:        deliveryID,
			Timestamp: "1748779200",
			Signature: "v1,c2ln",
		},
	}
}

func TestDispatchMapsProviderEvents(t *testing.T) {
	cases := map[string]string{
		domain.ProviderEventUserCreated: domain.EventIdentityCreated,
		domain.ProviderEventUserUpdated: domain.EventIdentityUpdated,
		domain.ProviderEventUserDeleted: domain.EventIdentityDeleted,
	}

	for providerType, want := range cases {
		pub := &fakePublisher{}
		d := NewDispatcher(pub, zap.NewNop(), nil)

		result, err := d.Dispatch(context.Background(), verifiedEvent(providerType, "msg_1", `{"id":"user_1"}`))
		assert.NoError(t, err)
		assert.False(t, result.Ignored)
		assert.Equal(t, want, result.EventName)
		if assert.Len(t, pub.published, 1) {
			msg := pub.published[0]
			assert.Equal(t, want, msg.Name)
			assert.Equal(t, "user_1", msg.Key)
			assert.Equal(t, "msg_1", msg.DedupID)
		}
	}
}

func TestDispatchEnvelopeCarriesRawAndHeaders(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub, zap.NewNop(), nil)

	evt := verifiedEvent(domain.ProviderEventUserCreated, "msg_2", `{"id":"user_9"}`)
	_, err := d.Dispatch(context.Background(), evt)
	assert.NoError(t, err)

	envelope, ok := pub.published[0].Payload.(domain.EventEnvelope)
	assert.True(t, ok)
	assert.Equal(t, string(evt.Raw), envelope.Raw)
	assert.Equal(t, "msg_2", envelope.Headers[domain.HeaderID])
	assert.Equal(t, evt.Headers.Signature, envelope.Headers[domain.HeaderSignature])
}

func TestDispatchIgnoresUnrecognizedTypes(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub, zap.NewNop(), nil)

	result, err := d.Dispatch(context.Background(), verifiedEvent("session.created", "msg_3", `{"id":"sess_1"}`))
	assert.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.Empty(t, pub.published)
}

func TestDispatchOrderingKeyFallsBackToDeliveryID(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub, zap.NewNop(), nil)

	_, err := d.Dispatch(context.Background(), verifiedEvent(domain.ProviderEventUserDeleted, "msg_4", `{}`))
	assert.NoError(t, err)
	assert.Equal(t, "msg_4", pub.published[0].Key)
}

func TestDispatchWrapsPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection reset")}
	d := NewDispatcher(pub, zap.NewNop(), nil)

	_, err := d.Dispatch(context.Background(), verifiedEvent(domain.ProviderEventUserCreated, "msg_5", `{"id":"user_1"}`))
	assert.ErrorIs(t, err, domain.ErrDispatchFailed)
}
