// Package mq carries domain events between the pipeline, the review API and
// the edit worker over RabbitMQ. The topology is two topic exchanges: the
// events exchange for live traffic, and a dead letter exchange holding
// deliveries the worker has given up on.
package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// Exchange carries live domain events.
	Exchange = "events"
	// DeadLetterExchange receives deliveries rejected after a retry.
	DeadLetterExchange = "events.dlq"
)

// Event is any payload that knows where it routes. The contracts package
// implements it for every event type.
type Event interface {
	RoutingKey() string
}

// dial opens a connection and channel with the topology asserted.
// Declaration is idempotent so every process declares what it relies on.
func dial(url string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	for _, exchange := range []string{Exchange, DeadLetterExchange} {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
		}
	}
	return conn, ch, nil
}
