package outbox

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/coltonheil/email-automation/pkg/mq"
	"github.com/coltonheil/email-automation/pkg/trace"
)

const (
	defaultInterval    = time.Second
	defaultBatchSize   = 100
	defaultMaxAttempts = 5
)

// Dispatcher drains due outbox entries into RabbitMQ on a fixed cadence.
// Delivery is at-least-once: consumers dedup through Redis and their own
// job rows.
type Dispatcher struct {
	store     *Store
	publisher *mq.Publisher
	logger    *zap.Logger

	interval    time.Duration
	batchSize   int
	maxAttempts int
}

func NewDispatcher(store *Store, publisher *mq.Publisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:       store,
		publisher:   publisher,
		logger:      logger,
		interval:    defaultInterval,
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
	}
}

// Start blocks until ctx is cancelled. Run it in its own goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("outbox dispatcher started",
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
		zap.Int("max_attempts", d.maxAttempts),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	entries, err := d.store.Due(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("load due outbox entries", zap.Error(err))
		return
	}

	for _, entry := range entries {
		evCtx := traceContext(ctx, entry.Payload)
		if err := d.publisher.PublishRaw(evCtx, entry.RoutingKey, entry.Payload); err != nil {
			d.logger.Error("publish outbox entry",
				zap.Int64("entry_id", entry.ID),
				zap.String("routing_key", entry.RoutingKey),
				zap.Int("attempts", entry.RetryCount+1),
				zap.Error(err),
			)
			if err := d.store.MarkFailed(ctx, entry.ID, d.maxAttempts); err != nil {
				d.logger.Error("record outbox failure", zap.Int64("entry_id", entry.ID), zap.Error(err))
			}
			continue
		}

		if err := d.store.MarkSent(ctx, entry.ID); err != nil {
			d.logger.Error("record outbox delivery", zap.Int64("entry_id", entry.ID), zap.Error(err))
		}
	}
}

// traceContext restores a trace id embedded in the payload, if any, so the
// published message keeps the trace of the request that staged it.
func traceContext(ctx context.Context, payload json.RawMessage) context.Context {
	var fields struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(payload, &fields); err != nil || fields.TraceID == "" {
		return ctx
	}
	return trace.WithContext(ctx, fields.TraceID)
}
