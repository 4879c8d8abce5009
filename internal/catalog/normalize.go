package catalog

import (
	"time"

	"github.com/robertarktes/gatherly/internal/domain"
)

const (
	DefaultEventCategory  = "General"
	DefaultMeetupCategory = "Meetup"
	OnlineLocation        = "Online"
)

// NormalizeEvent turns an events row into a UnifiedItem. Missing fields get
// defaults; it never fails.
func NormalizeEvent(raw domain.RawEvent) domain.UnifiedItem {
	start := timeOr(raw.StartDate, domain.Epoch)
	end := timeOr(raw.EndDate, start)

	return domain.UnifiedItem{
		ID:              raw.ID,
		Type:            domain.ItemTypeEvent,
		Category:        nonEmptyOr(raw.Category, DefaultEventCategory),
		Title:           stringOr(raw.Title),
		Description:     stringOr(raw.Description),
		Location:        stringOr(raw.Location),
		Start:           start,
		End:             end,
		Price:           floatOr(raw.Price),
		Featured:        boolOr(raw.Featured),
		ImageURL:        stringOr(raw.ImageURL),
		MemberAvatars:   avatars(raw.MemberAvatars),
		MemberCount:     countOr(raw.MemberCount),
		MaxParticipants: capacity(raw.MaxParticipants),
		Event: &domain.EventDetails{
			Organizer: stringOr(raw.Organizer),
			Venue:     stringOr(raw.Venue),
		},
	}
}

// NormalizeMeetup turns a meetups row into a UnifiedItem. Meetups are free and
// end when they start.
func NormalizeMeetup(raw domain.RawMeetup) domain.UnifiedItem {
	start := timeOr(raw.ScheduledAt, domain.Epoch)
	online := boolOr(raw.IsOnline)

	location := stringOr(raw.Location)
	if online {
		location = OnlineLocation
	}

	return domain.UnifiedItem{
		ID:              raw.ID,
		Type:            domain.ItemTypeMeetup,
		Category:        nonEmptyOr(raw.Category, DefaultMeetupCategory),
		Title:           stringOr(raw.Name),
		Description:     stringOr(raw.Description),
		Location:        location,
		Start:           start,
		End:             start,
		Price:           0,
		Featured:        boolOr(raw.Featured),
		ImageURL:        stringOr(raw.ImageURL),
		MemberAvatars:   avatars(raw.MemberAvatars),
		MemberCount:     countOr(raw.MemberCount),
		MaxParticipants: capacity(raw.MaxParticipants),
		Meetup: &domain.MeetupDetails{
			Host:        stringOr(raw.Host),
			IsOnline:    online,
			MeetingLink: stringOr(raw.MeetingLink),
		},
	}
}

// NormalizeAll builds the unified feed: events first, then meetups, each in
// source order.
func NormalizeAll(events []domain.RawEvent, meetups []domain.RawMeetup) []domain.UnifiedItem {
	items := make([]domain.UnifiedItem, 0, len(events)+len(meetups))
	for _, e := range events {
		items = append(items, NormalizeEvent(e))
	}
	for _, m := range meetups {
		items = append(items, NormalizeMeetup(m))
	}
	return items
}

func stringOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonEmptyOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func floatOr(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func boolOr(b *bool) bool {
	return b != nil && *b
}

func countOr(n *int) int {
	if n == nil || *n < 0 {
		return 0
	}
	return *n
}

func timeOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil || t.IsZero() {
		return fallback
	}
	return *t
}

func avatars(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func capacity(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	if v < 0 {
		v = 0
	}
	return &v
}
