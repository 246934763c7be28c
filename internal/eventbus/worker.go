package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/hireboard/hireboard/internal/clock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Worker polls the bus_events table and delivers due events to registered
// handlers. Claiming is a conditional update on status, so multiple workers
// never deliver the same event concurrently.
type Worker struct {
	db           *gorm.DB
	log          *zap.Logger
	clk          clock.Clock
	retry        RetryPolicy
	pollInterval time.Duration
	maxAttempts  int

	mu       sync.RWMutex
	handlers map[string]Handler
}

type WorkerConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
	Retry        RetryPolicy
}

func NewWorker(db *gorm.DB, log *zap.Logger, clk clock.Clock, cfg WorkerConfig) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.Retry == nil {
		cfg.Retry = ExponentialRetryPolicy{Initial: time.Second, Max: 5 * time.Minute}
	}
	return &Worker{
		db:           db,
		log:          log.Named("eventbus.worker"),
		clk:          clk,
		retry:        cfg.Retry,
		pollInterval: cfg.PollInterval,
		maxAttempts:  cfg.MaxAttempts,
		handlers:     make(map[string]Handler),
	}
}

// Register binds a handler to an event name. Events with unregistered names
// are left untouched for another worker generation to pick up.
func (w *Worker) Register(name string, handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[name] = handler
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				delivered, err := w.ProcessOne(ctx)
				if err != nil {
					w.log.Error("bus poll failed", zap.Error(err))
					break
				}
				if !delivered {
					break
				}
			}
		}
	}
}

// ProcessOne claims and delivers at most one due event. It reports whether
// an event was claimed; handler failures are recorded on the event, not
// returned.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	names := w.registeredNames()
	if len(names) == 0 {
		return false, nil
	}

	now := w.clk.Now()
	var evt Event
	err := w.db.WithContext(ctx).Raw(
		`SELECT * FROM bus_events e
		 WHERE e.status = ? AND e.next_attempt_at <= ? AND e.name IN ?
		   AND NOT EXISTS (
		     SELECT 1 FROM bus_events p
		     WHERE p.key = e.key AND p.id < e.id AND p.status IN (?, ?)
		   )
		 ORDER BY e.id ASC
		 LIMIT 1`,
		StatusPending, now, names, StatusPending, StatusProcessing,
	).Scan(&evt).Error
	if err != nil {
		return false, err
	}
	if evt.ID == 0 {
		return false, nil
	}

	claim := w.db.WithContext(ctx).Model(&Event{}).
		Where("id = ? AND status = ?", evt.ID, StatusPending).
		Updates(map[string]any{"status": StatusProcessing, "updated_at": now})
	if claim.Error != nil {
		return false, claim.Error
	}
	if claim.RowsAffected == 0 {
		// lost the claim to another worker
		return true, nil
	}

	handler := w.handlerFor(evt.Name)
	handleErr := handler(ctx, &evt)
	if handleErr == nil {
		return true, w.complete(ctx, evt.ID)
	}
	return true, w.fail(ctx, &evt, handleErr)
}

func (w *Worker) complete(ctx context.Context, id any) error {
	return w.db.WithContext(ctx).Model(&Event{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     StatusProcessed,
			"last_error": "",
			"updated_at": w.clk.Now(),
		}).Error
}

func (w *Worker) fail(ctx context.Context, evt *Event, cause error) error {
	attempts := evt.Attempts + 1
	status := StatusPending
	nextAttempt := w.clk.Now().Add(w.retry.NextDelay(attempts))
	if attempts >= w.maxAttempts {
		status = StatusDead
		w.log.Error("event exhausted retries",
			zap.String("name", evt.Name),
			zap.String("key", evt.Key),
			zap.Int("attempts", attempts),
			zap.Error(cause),
		)
	} else {
		w.log.Warn("event handler failed, will retry",
			zap.String("name", evt.Name),
			zap.String("key", evt.Key),
			zap.Int("attempts", attempts),
			zap.Error(cause),
		)
	}

	return w.db.WithContext(ctx).Model(&Event{}).
		Where("id = ?", evt.ID).
		Updates(map[string]any{
			"status":          status,
			"attempts":        attempts,
			"next_attempt_at": nextAttempt,
			"last_error":      cause.Error(),
			"updated_at":      w.clk.Now(),
		}).Error
}

func (w *Worker) registeredNames() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, 0, len(w.handlers))
	for name := range w.handlers {
		names = append(names, name)
	}
	return names
}

func (w *Worker) handlerFor(name string) Handler {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.handlers[name]
}
