package rabbit

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ChangeBindings are the routing keys a catalog consumer listens on.
var ChangeBindings = []string{"events.*", "meetups.*", "bookings.*"}

type Consumer struct {
	ch    *amqp.Channel
	queue string
}

// NewConsumer declares queue and binds it to the changes exchange under each
// of keys.
func NewConsumer(conn *amqp.Connection, queue string, keys ...string) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := declare(ch, queue, keys); err != nil {
		ch.Close()
		return nil, err
	}
	return &Consumer{ch: ch, queue: queue}, nil
}

func declare(ch *amqp.Channel, queue string, keys []string) error {
	if err := ch.ExchangeDeclare(ChangesExchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return err
	}
	for _, key := range keys {
		if err := ch.QueueBind(queue, key, ChangesExchange, false, nil); err != nil {
			return err
		}
	}
	return ch.Qos(32, 0, false)
}

// Consume starts delivery with manual acks. The channel closes when ctx is
// done or the connection drops.
func (c *Consumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	return c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
}

func (c *Consumer) Close() error {
	return c.ch.Close()
}
