package booking

import (
	"context"
	"time"

	"github.com/robertarktes/gatherly/internal/domain"
	"github.com/robertarktes/gatherly/internal/observability"
)

type AvailabilityCache interface {
	GetAvailability(ctx context.Context, itemID string) (domain.Availability, bool, error)
	SetAvailability(ctx context.Context, itemID string, avail domain.Availability, ttl time.Duration) error
	InvalidateAvailability(ctx context.Context, itemID string) error
}

// CachedAvailability reads seat availability through a short-lived cache.
// Cache failures fall back to the source and are only logged.
type CachedAvailability struct {
	source AvailabilityChecker
	cache  AvailabilityCache
	ttl    time.Duration
	logger observability.Logger
}

func NewCachedAvailability(source AvailabilityChecker, cache AvailabilityCache, ttl time.Duration, logger observability.Logger) *CachedAvailability {
	return &CachedAvailability{source: source, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedAvailability) GetSeatAvailability(ctx context.Context, itemID string, maxParticipants *int) (domain.Availability, error) {
	if maxParticipants == nil {
		return domain.NewAvailability(nil, 0), nil
	}

	avail, ok, err := c.cache.GetAvailability(ctx, itemID)
	if err != nil {
		c.logger.WithField("item_id", itemID).Warn("availability cache read failed: ", err)
	}
	if ok {
		return avail, nil
	}

	avail, err = c.source.GetSeatAvailability(ctx, itemID, maxParticipants)
	if err != nil {
		return domain.Availability{}, err
	}
	if err := c.cache.SetAvailability(ctx, itemID, avail, c.ttl); err != nil {
		c.logger.WithField("item_id", itemID).Warn("availability cache write failed: ", err)
	}
	return avail, nil
}

// Invalidate drops the cached value so the next read goes to the source.
func (c *CachedAvailability) Invalidate(ctx context.Context, itemID string) error {
	return c.cache.InvalidateAvailability(ctx, itemID)
}

// HandleChange invalidates the booked item's entry on new or changed bookings.
func (c *CachedAvailability) HandleChange(ctx context.Context, change domain.ChangeEvent) error {
	if change.Table != domain.TableBookings || change.RecordID == "" {
		return nil
	}
	return c.Invalidate(ctx, change.RecordID)
}
