package http

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/robertarktes/gatherly/internal/catalog"
	"github.com/robertarktes/gatherly/internal/domain"
)

// ItemsResponse carries the matching items and when the snapshot they came
// from was last reloaded.
type ItemsResponse struct {
	Items    []domain.UnifiedItem `json:"items"`
	Count    int                  `json:"count"`
	LoadedAt time.Time            `json:"loaded_at"`
}

// ListItems runs the filter engine over the current catalog snapshot.
func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	filters, order, err := parseItemQuery(r.URL.Query())
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	items := h.catalog.Query(r.Context(), filters, order, h.now())
	render.JSON(w, r, ItemsResponse{Items: items, Count: len(items), LoadedAt: h.catalog.LoadedAt()})
}

func (h *Handlers) GetItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.catalog.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, r, http.StatusNotFound, "item not found")
		return
	}
	render.JSON(w, r, item)
}

func (h *Handlers) GetAvailability(w http.ResponseWriter, r *http.Request) {
	item, ok := h.catalog.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, r, http.StatusNotFound, "item not found")
		return
	}

	avail, err := h.availability.GetSeatAvailability(r.Context(), item.ID, item.MaxParticipants)
	if err != nil {
		h.respondDomainError(w, r, errors.Mark(err, domain.ErrPersistence))
		return
	}
	render.JSON(w, r, avail)
}

// parseItemQuery builds filters from query parameters. Absent parameters keep
// their defaults; a price range is applied when either bound is given.
func parseItemQuery(q url.Values) (catalog.FilterState, catalog.SortOrder, error) {
	f := catalog.DefaultFilters()
	if v := q.Get("category"); v != "" {
		f.Category = v
	}
	f.SearchQuery = q.Get("q")
	f.Location = q.Get("location")

	switch kind := catalog.KindFilter(q.Get("kind")); kind {
	case "":
	case catalog.KindAll, catalog.KindEvent, catalog.KindMeetup:
		f.Kind = kind
	default:
		return f, "", errors.Wrapf(domain.ErrInvalidInput, "unknown kind %q", kind)
	}

	switch window := catalog.DateWindow(q.Get("when")); window {
	case "":
	case catalog.WindowAll, catalog.WindowUpcoming, catalog.WindowPast,
		catalog.WindowToday, catalog.WindowTomorrow, catalog.WindowThisWeek:
		f.DateWindow = window
	default:
		return f, "", errors.Wrapf(domain.ErrInvalidInput, "unknown date window %q", window)
	}

	minRaw, maxRaw := q.Get("min_price"), q.Get("max_price")
	if minRaw != "" || maxRaw != "" {
		pr := catalog.PriceRange{Min: 0, Max: math.MaxFloat64}
		var err error
		if minRaw != "" {
			if pr.Min, err = strconv.ParseFloat(minRaw, 64); err != nil {
				return f, "", errors.Wrap(domain.ErrInvalidInput, "min_price must be a number")
			}
		}
		if maxRaw != "" {
			if pr.Max, err = strconv.ParseFloat(maxRaw, 64); err != nil {
				return f, "", errors.Wrap(domain.ErrInvalidInput, "max_price must be a number")
			}
		}
		f.PriceRange = &pr
	}

	order := catalog.SortOrder(q.Get("sort"))
	switch order {
	case catalog.SortNone, catalog.SortDate, catalog.SortPriceAsc, catalog.SortPriceDesc, catalog.SortFeatured:
	default:
		return f, "", errors.Wrapf(domain.ErrInvalidInput, "unknown sort %q", order)
	}
	return f, order, nil
}
