package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/coltonheil/email-automation/pkg/metrics"
	"github.com/coltonheil/email-automation/pkg/trace"
)

// Handler processes one delivery. A nil return acknowledges the message; an
// error sends a first-time failure back to the queue and a repeat failure
// to the dead letter queue.
type Handler func(ctx context.Context, body json.RawMessage) error

// prefetch bounds unacked deliveries per worker. Edit jobs call the
// generation backend, so a small window keeps latency visible.
const prefetch = 8

// Consumer drains one durable queue bound to a single routing key. The
// queue dead letters into the events.dlq exchange, and a matching parked
// queue keeps rejected deliveries around for inspection.
type Consumer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   string
	binding string
	handler Handler
	logger  *zap.Logger
}

func NewConsumer(url, queue, binding string, handler Handler, logger *zap.Logger) (*Consumer, error) {
	conn, ch, err := dial(url)
	if err != nil {
		return nil, err
	}

	teardown := func() {
		ch.Close()
		conn.Close()
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		teardown()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	args := amqp091.Table{"x-dead-letter-exchange": DeadLetterExchange}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		teardown()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, binding, Exchange, false, nil); err != nil {
		teardown()
		return nil, fmt.Errorf("bind queue %s: %w", queue, err)
	}

	parked := queue + ".parked"
	if _, err := ch.QueueDeclare(parked, true, false, false, false, nil); err != nil {
		teardown()
		return nil, fmt.Errorf("declare queue %s: %w", parked, err)
	}
	if err := ch.QueueBind(parked, binding, DeadLetterExchange, false, nil); err != nil {
		teardown()
		return nil, fmt.Errorf("bind queue %s: %w", parked, err)
	}

	logger.Info("consumer ready",
		zap.String("queue", queue),
		zap.String("binding", binding),
	)

	return &Consumer{
		conn:    conn,
		channel: ch,
		queue:   queue,
		binding: binding,
		handler: handler,
		logger:  logger,
	}, nil
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Run consumes until ctx is cancelled or the channel dies. Acknowledgement
// is manual: every delivery ends in exactly one ack or nack.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	c.logger.Info("consuming", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg amqp091.Delivery) {
	start := time.Now()

	// 从消息头恢复 trace id
	if raw, ok := msg.Headers[trace.HeaderName]; ok {
		if traceID, ok := raw.(string); ok && traceID != "" {
			ctx = trace.WithContext(ctx, traceID)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panicked",
				zap.String("queue", c.queue),
				zap.Any("panic", r),
			)
			c.settle(msg)
		}
	}()

	if err := c.handler(ctx, msg.Body); err != nil {
		c.logger.Error("handler failed",
			zap.String("queue", c.queue),
			zap.Bool("redelivered", msg.Redelivered),
			zap.Error(err),
		)
		c.settle(msg)
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("ack failed", zap.String("queue", c.queue), zap.Error(err))
		return
	}
	metrics.RecordMQConsumeLatency(c.binding, c.queue, time.Since(start))
}

// settle nacks a failed delivery. A first failure goes back on the queue
// for one more try; a redelivered one is dead lettered, since edit jobs own
// their state in the job row and endless requeueing only hides the fault.
func (c *Consumer) settle(msg amqp091.Delivery) {
	if err := msg.Nack(false, requeueOnFailure(msg)); err != nil {
		c.logger.Error("nack failed", zap.String("queue", c.queue), zap.Error(err))
	}
}

func requeueOnFailure(msg amqp091.Delivery) bool {
	return !msg.Redelivered
}
