package rabbit

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ChangesExchange carries row-level change notifications, routed by
// "<table>.<type>".
const ChangesExchange = "gatherly.changes"

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(ChangesExchange, "topic", true, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, key string, msg amqp.Publishing) error {
	return p.ch.PublishWithContext(ctx, ChangesExchange, key, false, false, msg)
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}
