package domain

import "time"

type ItemType string

const (
	ItemTypeEvent  ItemType = "event"
	ItemTypeMeetup ItemType = "meetup"
)

// Epoch stands in for missing dates so that date comparisons never see a zero
// or nil value.
var Epoch = time.Unix(0, 0).UTC()

// UnifiedItem is the one shape the catalog, the filter engine and the list
// views work with. Exactly one of Event and Meetup is set, matching Type.
type UnifiedItem struct {
	ID              string    `json:"id"`
	Type            ItemType  `json:"type"`
	Category        string    `json:"category"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Price           float64   `json:"price"`
	Featured        bool      `json:"featured"`
	ImageURL        string    `json:"image_url"`
	MemberAvatars   []string  `json:"member_avatars"`
	MemberCount     int       `json:"member_count"`
	MaxParticipants *int      `json:"max_participants,omitempty"`

	Event  *EventDetails  `json:"event,omitempty"`
	Meetup *MeetupDetails `json:"meetup,omitempty"`
}

type EventDetails struct {
	Organizer string `json:"organizer"`
	Venue     string `json:"venue"`
}

type MeetupDetails struct {
	Host        string `json:"host"`
	IsOnline    bool   `json:"is_online"`
	MeetingLink string `json:"meeting_link"`
}

// HasCapacity reports whether the item limits the number of participants.
func (i UnifiedItem) HasCapacity() bool {
	return i.MaxParticipants != nil
}
