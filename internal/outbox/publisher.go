package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/gatherly/internal/adapters/crdb"
	"github.com/robertarktes/gatherly/internal/observability"
)

const (
	batchSize = 10
	// maxAttempts is how many publish failures a record gets before it is
	// marked FAILED and skipped.
	maxAttempts = 5
)

type Repository interface {
	GetUnpublishedOutbox(ctx context.Context, limit int) ([]crdb.OutboxRecord, error)
	MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

type Broker interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

// Publisher relays committed outbox rows to the broker. Delivery is at least
// once; MessageId carries the dedupe key.
type Publisher struct {
	repo     Repository
	broker   Broker
	interval time.Duration
	logger   observability.Logger
	now      func() time.Time
	// failures counts publish errors per record for this process. It is not
	// shared between relays; a restart gives every record a fresh budget.
	failures map[uuid.UUID]int
}

func NewPublisher(repo Repository, broker Broker, interval time.Duration, logger observability.Logger) *Publisher {
	return &Publisher{
		repo:     repo,
		broker:   broker,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		failures: make(map[uuid.UUID]int),
	}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil {
				p.logger.Error("outbox batch failed: ", err)
			}
		}
	}
}

// PublishBatch relays up to one batch and returns how many rows were marked
// published. A record that fails to publish stays NEW and is retried on the
// next tick, until it has failed maxAttempts times. PublishBatch is not safe
// for concurrent use.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	records, err := p.repo.GetUnpublishedOutbox(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, rec := range records {
		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Timestamp:   rec.CreatedAt,
			Body:        rec.Payload,
		}
		if err := p.broker.Publish(ctx, rec.EventType, msg); err != nil {
			p.recordFailure(ctx, rec, err)
			continue
		}
		delete(p.failures, rec.ID)
		now := p.now()
		if err := p.repo.MarkPublished(ctx, rec.ID, now); err != nil {
			p.logger.WithField("outbox_id", rec.ID.String()).Error("mark published failed: ", err)
			continue
		}
		if !rec.CreatedAt.IsZero() {
			observability.OutboxLag.Set(now.Sub(rec.CreatedAt).Seconds())
		}
		published++
	}
	return published, nil
}

func (p *Publisher) recordFailure(ctx context.Context, rec crdb.OutboxRecord, err error) {
	log := p.logger.WithField("outbox_id", rec.ID.String())
	p.failures[rec.ID]++
	if p.failures[rec.ID] < maxAttempts {
		observability.RabbitPublishRetries.Inc()
		log.Warn("publish failed, will retry: ", err)
		return
	}
	if markErr := p.repo.MarkFailed(ctx, rec.ID); markErr != nil {
		log.Error("mark failed failed: ", markErr)
		return
	}
	delete(p.failures, rec.ID)
	log.WithField("event_type", rec.EventType).Error("publish gave up after retries: ", err)
}
