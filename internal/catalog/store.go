package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/gatherly/internal/domain"
	"github.com/robertarktes/gatherly/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Source is the backend the catalog reads from. Both lists are full-table
// reads; filtering happens here, not in the source. The single-record getters
// return domain.ErrNotFound for a missing id.
type Source interface {
	ListEvents(ctx context.Context) ([]domain.RawEvent, error)
	ListMeetups(ctx context.Context) ([]domain.RawMeetup, error)
	GetEvent(ctx context.Context, id string) (*domain.RawEvent, error)
	GetMeetup(ctx context.Context, id string) (*domain.RawMeetup, error)
}

// Catalog owns the latest normalized snapshot of events and meetups. Items are
// replaced whole by id, never edited in place.
type Catalog struct {
	source Source
	logger observability.Logger

	mu       sync.RWMutex
	items    []domain.UnifiedItem
	stale    bool
	loadedAt time.Time
	// generation counts invalidations; a refresh that saw it change while
	// fetching leaves the catalog stale.
	generation uint64
	// inflight holds the per-item changes made while each running refresh was
	// fetching, so that its older result does not undo them.
	inflight map[*pendingChanges]struct{}
}

// pendingChanges maps item id to its replacement; nil means removed.
type pendingChanges map[string]*domain.UnifiedItem

func NewCatalog(source Source, logger observability.Logger) *Catalog {
	return &Catalog{
		source:   source,
		logger:   logger,
		stale:    true,
		inflight: make(map[*pendingChanges]struct{}),
	}
}

// Refresh reloads both tables and swaps the snapshot. On failure the previous
// snapshot is kept. Changes applied while the fetch was running win over the
// fetched rows.
func (c *Catalog) Refresh(ctx context.Context) error {
	started := time.Now()

	pending := &pendingChanges{}
	c.mu.Lock()
	generation := c.generation
	c.inflight[pending] = struct{}{}
	c.mu.Unlock()

	var (
		events  []domain.RawEvent
		meetups []domain.RawMeetup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = c.source.ListEvents(gctx)
		return errors.Wrap(err, "list events")
	})
	g.Go(func() error {
		var err error
		meetups, err = c.source.ListMeetups(gctx)
		return errors.Wrap(err, "list meetups")
	})
	err := g.Wait()

	c.mu.Lock()
	delete(c.inflight, pending)
	if err != nil {
		c.mu.Unlock()
		observability.CatalogRefreshes.WithLabelValues("error").Inc()
		return err
	}

	items := NormalizeAll(events, meetups)
	for id, item := range *pending {
		items = replaceItem(items, id, item)
	}
	c.items = items
	c.stale = c.generation != generation
	c.loadedAt = time.Now()
	c.mu.Unlock()

	observability.CatalogRefreshes.WithLabelValues("ok").Inc()
	observability.CatalogRefreshDuration.Observe(time.Since(started).Seconds())
	c.logger.WithField("items", len(items)).Debug("catalog refreshed")
	return nil
}

// Snapshot returns a copy of the current items.
func (c *Catalog) Snapshot() []domain.UnifiedItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.UnifiedItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Get(id string) (domain.UnifiedItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.UnifiedItem{}, false
}

// Upsert replaces the item with the same id, or appends it.
func (c *Catalog) Upsert(item domain.UnifiedItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = replaceItem(c.items, item.ID, &item)
	c.recordLocked(item.ID, &item)
}

func (c *Catalog) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = replaceItem(c.items, id, nil)
	c.recordLocked(id, nil)
}

// Invalidate marks the snapshot stale; the next Query reloads it. A refresh
// already in flight does not clear the mark.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.stale = true
	c.generation++
	c.mu.Unlock()
}

func (c *Catalog) recordLocked(id string, item *domain.UnifiedItem) {
	for pending := range c.inflight {
		(*pending)[id] = item
	}
}

// replaceItem returns a new slice with id replaced by item, appended when
// absent, or dropped when item is nil.
func replaceItem(items []domain.UnifiedItem, id string, item *domain.UnifiedItem) []domain.UnifiedItem {
	next := make([]domain.UnifiedItem, 0, len(items)+1)
	replaced := false
	for _, existing := range items {
		if existing.ID != id {
			next = append(next, existing)
			continue
		}
		if item != nil && !replaced {
			next = append(next, *item)
		}
		replaced = true
	}
	if !replaced && item != nil {
		next = append(next, *item)
	}
	return next
}

func (c *Catalog) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stale
}

// Query runs the filter engine over a fresh snapshot. A stale catalog is
// reloaded first; if that fails the old snapshot is served and the error is
// logged.
func (c *Catalog) Query(ctx context.Context, f FilterState, order SortOrder, now time.Time) []domain.UnifiedItem {
	if c.Stale() {
		if err := c.Refresh(ctx); err != nil {
			c.logger.Error("catalog refresh failed, serving previous snapshot: ", err)
		}
	}
	return SortItems(FilterItems(c.Snapshot(), f, now), order)
}

// HandleChange reacts to a realtime notification. Deletes drop the item at
// once; inserts and updates re-read the one record and replace it by id. When
// the record cannot be read the whole catalog is marked stale instead.
func (c *Catalog) HandleChange(ctx context.Context, change domain.ChangeEvent) error {
	if change.Table != domain.TableEvents && change.Table != domain.TableMeetups {
		return nil
	}
	if change.RecordID == "" {
		c.Invalidate()
		return nil
	}
	if change.Type == domain.ChangeDelete {
		c.Remove(change.RecordID)
		return nil
	}

	item, err := c.fetch(ctx, change.Table, change.RecordID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.Remove(change.RecordID)
	case err != nil:
		c.logger.WithField("record_id", change.RecordID).Warn("record reload failed, invalidating catalog: ", err)
		c.Invalidate()
	default:
		c.Upsert(item)
	}
	return nil
}

func (c *Catalog) fetch(ctx context.Context, table, id string) (domain.UnifiedItem, error) {
	if table == domain.TableMeetups {
		raw, err := c.source.GetMeetup(ctx, id)
		if err != nil {
			return domain.UnifiedItem{}, err
		}
		return NormalizeMeetup(*raw), nil
	}
	raw, err := c.source.GetEvent(ctx, id)
	if err != nil {
		return domain.UnifiedItem{}, err
	}
	return NormalizeEvent(*raw), nil
}

// RunRefresher reloads the catalog every interval until ctx is done.
func (c *Catalog) RunRefresher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.Error("periodic catalog refresh failed: ", err)
			}
		}
	}
}

// LoadedAt is when the snapshot was last reloaded; zero before the first load.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}
