package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/coltonheil/email-automation/pkg/trace"
)

// Publisher sends domain events to the events exchange. Messages are
// persistent and carry the trace id from the context in their headers.
type Publisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewPublisher(url string) (*Publisher, error) {
	conn, ch, err := dial(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, channel: ch}, nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Publish sends a domain event outside any request context.
func (p *Publisher) Publish(ev Event) error {
	return p.PublishEvent(context.Background(), ev)
}

// PublishEvent marshals ev and sends it under its own routing key.
func (p *Publisher) PublishEvent(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.RoutingKey(), err)
	}
	return p.PublishRaw(ctx, ev.RoutingKey(), body)
}

// PublishRaw sends an already-marshaled body. The outbox dispatcher relays
// stored events through here without re-encoding them.
func (p *Publisher) PublishRaw(ctx context.Context, routingKey string, body []byte) error {
	var headers amqp091.Table
	if traceID := trace.FromContext(ctx); traceID != "" {
		headers = amqp091.Table{trace.HeaderName: traceID}
	}

	return p.channel.PublishWithContext(ctx,
		Exchange,
		routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Headers:      headers,
			Body:         body,
		},
	)
}
