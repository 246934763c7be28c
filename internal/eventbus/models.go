// Package eventbus is a durable, at-least-once event queue on the relational
// store. Producers insert events; a polling worker delivers them to named
// handlers, preserving order per event key but not globally. Handlers must be
// idempotent: redelivery after a partial failure is expected, not exceptional.
package eventbus

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusDead       Status = "dead"
)

// Event is one durable bus entry.
type Event struct {
	ID snowflake.ID `gorm:"primaryKey"`
	// Name routes the event to a registered handler.
	Name string `gorm:"type:text;not null;index"`
	// Key orders delivery: no event is delivered while an earlier event
	// with the same key is still pending or processing.
	Key string `gorm:"type:text;not null;index"`
	// DedupID deduplicates publishes; redelivered webhooks carry the same
	// provider delivery id and insert no second row.
	DedupID       string         `gorm:"column:dedup_id;type:text;not null;uniqueIndex:ux_bus_events_dedup"`
	Payload       datatypes.JSON `gorm:"type:jsonb;not null"`
	Status        Status         `gorm:"type:text;not null;default:'pending';index"`
	Attempts      int            `gorm:"not null;default:0"`
	NextAttemptAt time.Time      `gorm:"column:next_attempt_at;not null;index"`
	LastError     string         `gorm:"column:last_error;type:text"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Event) TableName() string { return "bus_events" }

// Message is what producers hand to the Publisher.
type Message struct {
	Name    string
	Key     string
	DedupID string
	Payload any
}

// Publisher appends a message to the durable bus. Publishing the same
// DedupID twice is a successful no-op.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Handler consumes one event. A returned error is a retryable failure; the
// worker owns the backoff and retry policy.
type Handler func(ctx context.Context, evt *Event) error
