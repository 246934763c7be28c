package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/hireboard/hireboard/internal/clock"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormPublisher struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clk   clock.Clock
}

// NewPublisher returns a Publisher writing to the bus_events table.
func NewPublisher(db *gorm.DB, log *zap.Logger, genID *snowflake.Node, clk clock.Clock) Publisher {
	return &gormPublisher{
		db:    db,
		log:   log.Named("eventbus.publisher"),
		genID: genID,
		clk:   clk,
	}
}

func (p *gormPublisher) Publish(ctx context.Context, msg Message) error {
	name := strings.TrimSpace(msg.Name)
	if name == "" {
		return errors.New("event name is required")
	}
	dedupID := strings.TrimSpace(msg.DedupID)
	if dedupID == "" {
		return errors.New("event dedup id is required")
	}
	key := strings.TrimSpace(msg.Key)
	if key == "" {
		key = dedupID
	}

	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return err
	}

	now := p.clk.Now()
	evt := Event{
		ID:            p.genID.Generate(),
		Name:          name,
		Key:           key,
		DedupID:       dedupID,
		Payload:       payload,
		Status:        StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	result := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_id"}},
		DoNothing: true,
	}).Create(&evt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		p.log.Debug("duplicate event publish ignored",
			zap.String("name", name),
			zap.String("dedup_id", dedupID),
		)
	}
	return nil
}
