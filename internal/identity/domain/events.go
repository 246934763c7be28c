// Package domain contains the contracts for identity-provider webhook intake.
package domain

import "encoding/json"

// Provider event types this service recognizes. Anything else is accepted
// and dropped silently so new provider event types never break the endpoint.
const (
	ProviderEventUserCreated = "user.created"
	ProviderEventUserUpdated = "user.updated"
	ProviderEventUserDeleted = "user.deleted"
)

// Internal event names emitted onto the durable bus.
const (
	EventIdentityCreated = "identity.created"
	EventIdentityUpdated = "identity.updated"
	EventIdentityDeleted = "identity.deleted"
)

// Webhook verification header names (svix scheme).
const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"
)

// WebhookHeaders carries the three verification headers of an inbound
// webhook request.
type WebhookHeaders struct {
	ID        string `json:"svix-id"`
	Timestamp string `json:"svix-timestamp"`
	Signature string `json:"svix-signature"`
}

// Empty reports whether any of the three headers is missing.
func (h WebhookHeaders) Incomplete() bool {
	return h.ID == "" || h.Timestamp == "" || h.Signature == ""
}

// VerifiedEvent is a webhook payload that passed signature verification.
// Raw preserves the exact byte sequence received; the signature covers it,
// so downstream re-verification must use Raw, never a re-serialization.
type VerifiedEvent struct {
	Type    string
	Data    json.RawMessage
	Raw     []byte
	Headers WebhookHeaders
}

// EventEnvelope is the payload shape of every identity.* internal event.
// Raw and Headers travel with the event so consumers can re-verify the
// original webhook independently of the HTTP request that carried it.
type EventEnvelope struct {
	Data    json.RawMessage   `json:"data"`
	Raw     string            `json:"raw"`
	Headers map[string]string `json:"headers"`
}

// DispatchResult reports what Dispatch did with a verified event.
type DispatchResult struct {
	// EventName is the internal event name emitted, empty when ignored.
	EventName string
	// Ignored is true for recognized-but-unmapped provider event types.
	Ignored bool
}
