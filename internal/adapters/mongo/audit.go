package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/gatherly/internal/domain"
	"github.com/robertarktes/gatherly/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        string    `bson:"_id"`
	Action    string    `bson:"action"`
	UserID    string    `bson:"user_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action, userID string, data bson.M) error {
	entry := AuditLog{
		ID:        uuid.NewString(),
		Action:    action,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	if _, err := a.coll.InsertOne(ctx, entry); err != nil {
		a.logger.Error("failed to insert audit log", err)
		return err
	}
	return nil
}

// LogBooking records a submitted booking. Attendee contact details are left
// out of the audit trail.
func (a *AuditLogger) LogBooking(ctx context.Context, booking domain.BookingPayload) error {
	seats := make([]string, 0, len(booking.SelectedSeats))
	for _, s := range booking.SelectedSeats {
		seats = append(seats, s.SeatID)
	}
	data := bson.M{
		"order_number":   booking.OrderNumber,
		"event_id":       booking.EventID,
		"item_type":      booking.ItemType,
		"seats":          seats,
		"total_amount":   booking.TotalAmount,
		"status":         booking.Status,
		"payment_status": booking.PaymentStatus,
	}
	return a.LogEvent(ctx, "booking.submitted", booking.UserID, data)
}
