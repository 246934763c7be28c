package eventbus

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hireboard/hireboard/internal/clock"
)

func newTestBus(t *testing.T) (*gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&Event{}))

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return db, node, clk
}

func publish(t *testing.T, pub Publisher, name, key, dedupID string) {
	t.Helper()
	err := pub.Publish(context.Background(), Message{
		Name:    name,
		Key:     key,
		DedupID: dedupID,
		Payload: map[string]string{"k": key},
	})
	assert.NoError(t, err)
}

func TestPublishDeduplicatesByDeliveryID(t *testing.T) {
	db, node, clk := newTestBus(t)
	pub := NewPublisher(db, zap.NewNop(), node, clk)

	publish(t, pub, "identity.created", "user_1", "msg_1")
	publish(t, pub, "identity.created", "user_1", "msg_1")

	var count int64
	assert.NoError(t, db.Model(&Event{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPublishKeyFallsBackToDedupID(t *testing.T) {
	db, node, clk := newTestBus(t)
	pub := NewPublisher(db, zap.NewNop(), node, clk)

	publish(t, pub, "identity.created", "", "msg_2")

	var evt Event
	assert.NoError(t, db.First(&evt).Error)
	assert.Equal(t, "msg_2", evt.Key)
}

func TestProcessOneDeliversAndCompletes(t *testing.T) {
	db, node, clk := newTestBus(t)
	pub := NewPublisher(db, zap.NewNop(), node, clk)
	worker := NewWorker(db, zap.NewNop(), clk, WorkerConfig{})

	var seen []string
	worker.Register("identity.created", func(ctx context.Context, evt *Event) error {
		seen = append(seen, evt.DedupID)
		return nil
	})

	publish(t, pub, "identity.created", "user_1", "msg_1")

	delivered, err := worker.ProcessOne(context.Background())
	assert.NoError(t, err)
	assert.True(t, delivered)
	assert.Equal(t, []string{"msg_1"}, seen)

	var evt Event
	assert.NoError(t, db.First(&evt).Error)
	assert.Equal(t, StatusProcessed, evt.Status)

	delivered, err = worker.ProcessOne(context.Background())
	assert.NoError(t, err)
	assert.False(t, delivered)
}

func TestProcessOnePreservesPerKeyOrder(t *testing.T) {
	db, node, clk := newTestBus(t)
	pub := NewPublisher(db, zap.NewNop(), node, clk)
	worker := NewWorker(db, zap.NewNop(), clk, WorkerConfig{})

	var order []string
	worker.Register("identity.created", func(ctx context.Context, evt *Event) error {
		order = append(order, evt.DedupID)
		return nil
	})
	worker.Register("identity.updated", func(ctx context.Context, evt *Event) error {
		order = append(order, evt.DedupID)
		return nil
	})

	publish(t, pub, "identity.created", "user_1", "msg_1")
	publish(t, pub, "identity.updated", "user_1", "msg_2")
	publish(t, pub, "identity.created", "user_2", "msg_3")

	for {
		delivered, err := worker.ProcessOne(context.Background())
		assert.NoError(t, err)
		if !delivered {
			break
		}
	}
	assert.Equal(t, []string{"msg_1", "msg_2", "msg_3"}, order)
}

func TestProcessOneHoldsSuccessorWhileEarlierEventPending(t *testing.T) {
	db, node, clk := newTestBus(t)
	pub := NewPublisher(db, zap.NewNop(), node, clk)
	worker := NewWorker(db, zap.NewNop(), clk, WorkerConfig{})

	var seen []string
	worker.Register("identity.updated", func(ctx context.Context, evt *Event) error {
		seen = append(seen, evt.DedupID)
		return nil
	})

	// msg_1 has no registered handler yet, but it still blocks msg_2 on
	// the same key.
	publish(t, pub, "identity.created", "user_1", "msg_1")
	publish(t, pub, "identity.updated", "user_1", "msg_2")

	delivered, err := worker.ProcessOne(context.Background())
	assert.NoError(t, err)
	assert.False(t, delivered)
	assert.Empty(t, seen)
}

func TestProcessOneRetriesWithBackoff(t *testing.T) {
	db, node, clk := newTestBus(t)
	pub := NewPublisher(db, zap.NewNop(), node, clk)
	worker := NewWorker(db, zap.NewNop(), clk, WorkerConfig{MaxAttempts: 3})

	calls := 0
	worker.Register("identity.created", func(ctx context.Context, evt *Event) error {
		calls++
		return errors.New("downstream unavailable")
	})

	publish(t, pub, "identity.created", "user_1", "msg_1")

	delivered, err := worker.ProcessOne(context.Background())
	assert.NoError(t, err)
	assert.True(t, delivered)
	assert.Equal(t, 1, calls)

	var evt Event
	assert.NoError(t, db.First(&evt).Error)
	assert.Equal(t, StatusPending, evt.Status)
	assert.Equal(t, 1, evt.Attempts)
	assert.Equal(t, "downstream unavailable", evt.LastError)
	assert.True(t, evt.NextAttemptAt.After(clk.Now()))

	// Not due yet.
	delivered, err = worker.ProcessOne(context.Background())
	assert.NoError(t, err)
	assert.False(t, delivered)

	// Drain the remaining attempts.
	clk.Advance(time.Minute)
	_, err = worker.ProcessOne(context.Background())
	assert.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = worker.ProcessOne(context.Background())
	assert.NoError(t, err)

	assert.NoError(t, db.First(&evt).Error)
	assert.Equal(t, StatusDead, evt.Status)
	assert.Equal(t, 3, evt.Attempts)
	assert.Equal(t, 3, calls)
}

func TestExponentialRetryPolicyCapsAtMax(t *testing.T) {
	p := ExponentialRetryPolicy{Initial: time.Second, Max: 8 * time.Second}

	assert.Equal(t, time.Second, p.NextDelay(1))
	assert.Equal(t, 2*time.Second, p.NextDelay(2))
	assert.Equal(t, 4*time.Second, p.NextDelay(3))
	assert.Equal(t, 8*time.Second, p.NextDelay(4))
	assert.Equal(t, 8*time.Second, p.NextDelay(10))
}
