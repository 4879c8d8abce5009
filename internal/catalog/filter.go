package catalog

import (
	"strings"
	"time"

	"github.com/robertarktes/gatherly/internal/domain"
)

// AllCategories is the literal category value that disables category matching.
const AllCategories = "All"

type KindFilter string

const (
	KindAll    KindFilter = "all"
	KindEvent  KindFilter = "event"
	KindMeetup KindFilter = "meetup"
)

type DateWindow string

const (
	WindowAll      DateWindow = "All"
	WindowUpcoming DateWindow = "Upcoming"
	WindowPast     DateWindow = "Past"
	WindowToday    DateWindow = "Today"
	WindowTomorrow DateWindow = "Tomorrow"
	WindowThisWeek DateWindow = "This Week"
)

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterState holds independent predicates that are applied together. An empty
// Kind or DateWindow matches everything, as does a nil PriceRange.
type FilterState struct {
	Category    string      `json:"category"`
	SearchQuery string      `json:"search_query"`
	Location    string      `json:"location"`
	PriceRange  *PriceRange `json:"price_range,omitempty"`
	Kind        KindFilter  `json:"kind"`
	DateWindow  DateWindow  `json:"date_window"`
}

func DefaultFilters() FilterState {
	return FilterState{
		Category:   AllCategories,
		Kind:       KindAll,
		DateWindow: WindowAll,
	}
}

// FilterItems returns the items that pass every predicate in f, in their
// original order. now is read once by the caller so that every item is judged
// against the same instant. items is not modified.
func FilterItems(items []domain.UnifiedItem, f FilterState, now time.Time) []domain.UnifiedItem {
	m := newMatcher(f, now)
	out := make([]domain.UnifiedItem, 0, len(items))
	for _, item := range items {
		if m.match(item) {
			out = append(out, item)
		}
	}
	return out
}

// Matches reports whether a single item passes f at now.
func Matches(item domain.UnifiedItem, f FilterState, now time.Time) bool {
	return newMatcher(f, now).match(item)
}

type matcher struct {
	category string
	search   string
	location string
	price    *PriceRange
	kind     KindFilter
	window   DateWindow
	bounds   dayBounds
	now      time.Time
}

func newMatcher(f FilterState, now time.Time) matcher {
	m := matcher{
		search:   strings.ToLower(strings.TrimSpace(f.SearchQuery)),
		location: strings.ToLower(strings.TrimSpace(f.Location)),
		price:    f.PriceRange,
		kind:     f.Kind,
		window:   f.DateWindow,
		bounds:   boundsAt(now),
		now:      now,
	}
	if f.Category != AllCategories {
		m.category = strings.ToLower(f.Category)
	}
	return m
}

func (m matcher) match(item domain.UnifiedItem) bool {
	return m.matchCategory(item) &&
		m.matchSearch(item) &&
		m.matchPrice(item) &&
		m.matchKind(item) &&
		m.matchWindow(item) &&
		m.matchLocation(item)
}

func (m matcher) matchCategory(item domain.UnifiedItem) bool {
	if m.category == "" {
		return true
	}
	return strings.ToLower(item.Category) == m.category
}

func (m matcher) matchSearch(item domain.UnifiedItem) bool {
	if m.search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(item.Title), m.search) ||
		strings.Contains(strings.ToLower(item.Description), m.search)
}

func (m matcher) matchPrice(item domain.UnifiedItem) bool {
	if m.price == nil {
		return true
	}
	price := item.Price
	if item.Type == domain.ItemTypeMeetup {
		price = 0
	}
	return price >= m.price.Min && price <= m.price.Max
}

func (m matcher) matchKind(item domain.UnifiedItem) bool {
	switch m.kind {
	case KindEvent:
		return item.Type == domain.ItemTypeEvent
	case KindMeetup:
		return item.Type == domain.ItemTypeMeetup
	default:
		return true
	}
}

func (m matcher) matchWindow(item domain.UnifiedItem) bool {
	start := item.Start
	b := m.bounds
	switch m.window {
	case WindowUpcoming:
		return !start.Before(m.now)
	case WindowPast:
		return start.Before(m.now)
	case WindowToday:
		return within(start, b.today, b.tomorrow)
	case WindowTomorrow:
		return within(start, b.tomorrow, b.dayAfter)
	case WindowThisWeek:
		return within(start, b.weekStart, b.weekEnd)
	default:
		return true
	}
}

func (m matcher) matchLocation(item domain.UnifiedItem) bool {
	if m.location == "" {
		return true
	}
	return strings.Contains(strings.ToLower(item.Location), m.location)
}

// dayBounds are calendar boundaries in now's location. Weeks start on Monday.
type dayBounds struct {
	today     time.Time
	tomorrow  time.Time
	dayAfter  time.Time
	weekStart time.Time
	weekEnd   time.Time
}

func boundsAt(now time.Time) dayBounds {
	y, mo, d := now.Date()
	loc := now.Location()
	day := func(offset int) time.Time {
		return time.Date(y, mo, d+offset, 0, 0, 0, 0, loc)
	}

	// Sunday is 0; shift so Monday is 0.
	sinceMonday := (int(now.Weekday()) + 6) % 7

	return dayBounds{
		today:     day(0),
		tomorrow:  day(1),
		dayAfter:  day(2),
		weekStart: day(-sinceMonday),
		weekEnd:   day(7 - sinceMonday),
	}
}

// within is the half-open interval [from, to).
func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
