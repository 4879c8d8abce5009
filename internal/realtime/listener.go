// Package realtime applies change notifications from the message bus to the
// in-process caches.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/gatherly/internal/domain"
	"github.com/robertarktes/gatherly/internal/observability"
)

type Handler interface {
	HandleChange(ctx context.Context, change domain.ChangeEvent) error
}

type HandlerFunc func(ctx context.Context, change domain.ChangeEvent) error

func (f HandlerFunc) HandleChange(ctx context.Context, change domain.ChangeEvent) error {
	return f(ctx, change)
}

type Source interface {
	Consume(ctx context.Context) (<-chan amqp.Delivery, error)
}

// Listener fans every change out to all handlers.
type Listener struct {
	source   Source
	handlers []Handler
	logger   observability.Logger
}

func NewListener(source Source, logger observability.Logger, handlers ...Handler) *Listener {
	return &Listener{source: source, handlers: handlers, logger: logger}
}

// Run consumes until ctx is done or the delivery channel closes.
func (l *Listener) Run(ctx context.Context) error {
	deliveries, err := l.source.Consume(ctx)
	if err != nil {
		return errors.Wrap(err, "start consuming changes")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("change feed closed")
			}
			l.handle(ctx, d)
		}
	}
}

func (l *Listener) handle(ctx context.Context, d amqp.Delivery) {
	var change domain.ChangeEvent
	if err := json.Unmarshal(d.Body, &change); err != nil || change.Table == "" {
		l.logger.WithField("message_id", d.MessageId).Warn("dropping malformed change message")
		_ = d.Reject(false)
		return
	}
	observability.ChangeEvents.WithLabelValues(change.Table, string(change.Type)).Inc()

	if err := l.Dispatch(ctx, change); err != nil {
		l.logger.WithField("routing_key", d.RoutingKey).Error("change handler failed: ", err)
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

// Dispatch runs every handler and joins their errors.
func (l *Listener) Dispatch(ctx context.Context, change domain.ChangeEvent) error {
	var errs error
	for _, h := range l.handlers {
		if err := h.HandleChange(ctx, change); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}
