package domain

import "strings"

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

const (
	TableEvents   = "events"
	TableMeetups  = "meetups"
	TableBookings = "bookings"
)

// ChangeEvent is one notification from the realtime change feed. It only
// says what changed, never the new content.
type ChangeEvent struct {
	Table    string     `json:"table"`
	Type     ChangeType `json:"type"`
	RecordID string     `json:"record_id"`
}

// RoutingKey is the topic the change is published under, e.g. "events.update".
func (c ChangeEvent) RoutingKey() string {
	return c.Table + "." + strings.ToLower(string(c.Type))
}
