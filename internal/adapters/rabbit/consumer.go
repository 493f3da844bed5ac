package rabbit

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Consumer struct {
	ch    *amqp.Channel
	queue string
}

// NewConsumer binds a queue to the order-event topics it wants, e.g. the
// notifications service binds "order.payment_succeeded".
func NewConsumer(conn *amqp.Connection, queue string, bindings ...string) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	_, err = ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return nil, err
	}
	for _, key := range bindings {
		if err := ch.QueueBind(queue, key, "mkt.events", false, nil); err != nil {
			return nil, err
		}
	}
	return &Consumer{ch: ch, queue: queue}, nil
}

func (c *Consumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	return c.ch.Consume(c.queue, "", false, false, false, false, nil)
}
