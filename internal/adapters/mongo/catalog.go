package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/gatherly/internal/domain"
	"github.com/robertarktes/gatherly/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CatalogRepository reads the events and meetups collections. The catalog is
// owned by another service; this one never writes to it. Documents use string
// ids.
type CatalogRepository struct {
	events  *mongo.Collection
	meetups *mongo.Collection
	logger  observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		events:  db.Collection(domain.TableEvents),
		meetups: db.Collection(domain.TableMeetups),
		logger:  logger,
	}
}

func (c *CatalogRepository) ListEvents(ctx context.Context) ([]domain.RawEvent, error) {
	var events []domain.RawEvent
	if err := c.findAll(ctx, c.events, &events); err != nil {
		c.logger.Error("failed to list events", err)
		return nil, err
	}
	return events, nil
}

func (c *CatalogRepository) ListMeetups(ctx context.Context) ([]domain.RawMeetup, error) {
	var meetups []domain.RawMeetup
	if err := c.findAll(ctx, c.meetups, &meetups); err != nil {
		c.logger.Error("failed to list meetups", err)
		return nil, err
	}
	return meetups, nil
}

func (c *CatalogRepository) GetEvent(ctx context.Context, id string) (*domain.RawEvent, error) {
	var event domain.RawEvent
	err := c.events.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.Error("failed to get event", err)
		return nil, err
	}
	return &event, nil
}

func (c *CatalogRepository) GetMeetup(ctx context.Context, id string) (*domain.RawMeetup, error) {
	var meetup domain.RawMeetup
	err := c.meetups.FindOne(ctx, bson.M{"_id": id}).Decode(&meetup)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.Error("failed to get meetup", err)
		return nil, err
	}
	return &meetup, nil
}

func (c *CatalogRepository) findAll(ctx context.Context, coll *mongo.Collection, out interface{}) error {
	cur, err := coll.Find(ctx, bson.M{})
	if err != nil {
		return errors.Wrapf(err, "find %s", coll.Name())
	}
	defer cur.Close(ctx)
	return errors.Wrapf(cur.All(ctx, out), "decode %s", coll.Name())
}

// Ping backs /v1/readyz.
func (c *CatalogRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.events.Database().Client().Ping(ctx, nil)
}
