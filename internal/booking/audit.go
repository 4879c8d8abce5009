package booking

import (
	"context"

	"github.com/robertarktes/gatherly/internal/domain"
	"github.com/robertarktes/gatherly/internal/observability"
)

type Auditor interface {
	LogBooking(ctx context.Context, booking domain.BookingPayload) error
}

type auditedStore struct {
	next   Store
	audit  Auditor
	logger observability.Logger
}

// WithAudit records every booking the wrapped store accepts. A failed audit
// write is logged and does not fail the booking.
func WithAudit(next Store, audit Auditor, logger observability.Logger) Store {
	return &auditedStore{next: next, audit: audit, logger: logger}
}

func (s *auditedStore) CreateBooking(ctx context.Context, payload domain.BookingPayload) (domain.Booking, error) {
	b, err := s.next.CreateBooking(ctx, payload)
	if err != nil {
		return b, err
	}
	if err := s.audit.LogBooking(ctx, payload); err != nil {
		s.logger.WithField("order_number", payload.OrderNumber).Warn("booking audit failed: ", err)
	}
	return b, nil
}
