package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robertarktes/gatherly/internal/domain"
)

// Cache holds per-item seat availability.
type Cache struct {
	client       *redis.Client
	availability namespace
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{
		client:       client,
		availability: namespace{client: client, prefix: "avail"},
	}
}

// GetAvailability returns the cached value, or ok=false on a miss.
func (c *Cache) GetAvailability(ctx context.Context, itemID string) (domain.Availability, bool, error) {
	var avail domain.Availability
	ok, err := c.availability.get(ctx, itemID, &avail)
	if err != nil || !ok {
		return domain.Availability{}, false, err
	}
	return avail, true, nil
}

func (c *Cache) SetAvailability(ctx context.Context, itemID string, avail domain.Availability, ttl time.Duration) error {
	return c.availability.set(ctx, itemID, avail, ttl)
}

func (c *Cache) InvalidateAvailability(ctx context.Context, itemID string) error {
	return c.availability.del(ctx, itemID)
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
