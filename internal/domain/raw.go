package domain

import "time"

// RawEvent is an events row as the catalog source returns it. Every field
// except the id may be missing.
type RawEvent struct {
	ID              string     `bson:"_id" json:"id"`
	Title           *string    `bson:"title" json:"title"`
	Description     *string    `bson:"description" json:"description"`
	Category        *string    `bson:"category" json:"category"`
	Location        *string    `bson:"location" json:"location"`
	Venue           *string    `bson:"venue" json:"venue"`
	Organizer       *string    `bson:"organizer" json:"organizer"`
	StartDate       *time.Time `bson:"start_date" json:"start_date"`
	EndDate         *time.Time `bson:"end_date" json:"end_date"`
	Price           *float64   `bson:"price" json:"price"`
	Featured        *bool      `bson:"featured" json:"featured"`
	ImageURL        *string    `bson:"image_url" json:"image_url"`
	MemberAvatars   []string   `bson:"member_avatars" json:"member_avatars"`
	MemberCount     *int       `bson:"member_count" json:"member_count"`
	MaxParticipants *int       `bson:"max_participants" json:"max_participants"`
}

// RawMeetup is a meetups row as the catalog source returns it.
type RawMeetup struct {
	ID              string     `bson:"_id" json:"id"`
	Name            *string    `bson:"name" json:"name"`
	Description     *string    `bson:"description" json:"description"`
	Category        *string    `bson:"category" json:"category"`
	Location        *string    `bson:"location" json:"location"`
	Host            *string    `bson:"host" json:"host"`
	ScheduledAt     *time.Time `bson:"scheduled_at" json:"scheduled_at"`
	IsOnline        *bool      `bson:"is_online" json:"is_online"`
	MeetingLink     *string    `bson:"meeting_link" json:"meeting_link"`
	Featured        *bool      `bson:"featured" json:"featured"`
	ImageURL        *string    `bson:"image_url" json:"image_url"`
	MemberAvatars   []string   `bson:"member_avatars" json:"member_avatars"`
	MemberCount     *int       `bson:"member_count" json:"member_count"`
	MaxParticipants *int       `bson:"max_participants" json:"max_participants"`
}
