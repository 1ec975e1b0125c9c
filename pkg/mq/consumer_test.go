package mq

import (
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordingAcker struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (a *recordingAcker) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *recordingAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func (a *recordingAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestSettleRequeuesFirstFailure(t *testing.T) {
	c := &Consumer{queue: "draft.edit.requested.q", logger: zap.NewNop()}
	acker := &recordingAcker{}

	c.settle(amqp091.Delivery{Acknowledger: acker, Redelivered: false})
	assert.True(t, acker.nacked)
	assert.True(t, acker.requeued, "first failure gets one more try")
}

func TestSettleDeadLettersRedelivery(t *testing.T) {
	c := &Consumer{queue: "draft.edit.requested.q", logger: zap.NewNop()}
	acker := &recordingAcker{}

	c.settle(amqp091.Delivery{Acknowledger: acker, Redelivered: true})
	assert.True(t, acker.nacked)
	assert.False(t, acker.requeued, "second failure parks in the DLQ")
}
