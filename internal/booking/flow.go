package booking

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/gatherly/internal/domain"
	"github.com/robertarktes/gatherly/internal/observability"
)

type AvailabilityChecker interface {
	GetSeatAvailability(ctx context.Context, itemID string, maxParticipants *int) (domain.Availability, error)
}

type Store interface {
	CreateBooking(ctx context.Context, payload domain.BookingPayload) (domain.Booking, error)
}

type ItemLookup interface {
	Get(id string) (domain.UnifiedItem, bool)
}

// Flow is one session's booking flow: a single Draft plus the collaborators
// needed to check capacity and persist the result. All methods are safe for
// concurrent use, but at most one Submit runs at a time.
type Flow struct {
	items        ItemLookup
	availability AvailabilityChecker
	store        Store
	logger       observability.Logger
	now          func() time.Time

	mu            sync.Mutex
	draft         *Draft
	inFlight      bool
	generation    uint64
	lastBookingID string
	touched       time.Time
}

func NewFlow(items ItemLookup, availability AvailabilityChecker, store Store, logger observability.Logger) *Flow {
	return &Flow{
		items:        items,
		availability: availability,
		store:        store,
		logger:       logger,
		now:          time.Now,
		draft:        NewDraft(),
		touched:      time.Now(),
	}
}

// Init enters the flow for eventID.
func (f *Flow) Init(eventID string) error {
	if eventID == "" {
		return errors.Wrap(domain.ErrInvalidInput, "event id is required")
	}
	return f.mutate(func(d *Draft) error {
		d.Init(eventID)
		return nil
	})
}

func (f *Flow) SetAttendeeInfo(info domain.AttendeeInfo) error {
	return f.mutate(func(d *Draft) error {
		return d.SetAttendeeInfo(info)
	})
}

// AddSeat re-checks availability for seat-limited items before adding. The
// seats already held by this draft count against what is left.
func (f *Flow) AddSeat(ctx context.Context, seat domain.Seat) error {
	return f.mutate(func(d *Draft) error {
		if d.EventID() == "" {
			return domain.ErrDraftNotStarted
		}
		if d.hasSeat(domain.SeatID(seat.Row, seat.Column)) {
			return domain.ErrDuplicateSeat
		}
		if err := f.checkCapacity(ctx, d.EventID(), len(d.seats)+1); err != nil {
			return err
		}
		return d.AddSeat(seat)
	})
}

// RemoveSeat reports whether the seat was selected.
func (f *Flow) RemoveSeat(seatID string) (bool, error) {
	var removed bool
	err := f.mutate(func(d *Draft) error {
		removed = d.RemoveSeat(seatID)
		return nil
	})
	return removed, err
}

func (f *Flow) SetPromoCode(code string) error {
	return f.mutate(func(d *Draft) error {
		d.SetPromoCode(code)
		return nil
	})
}

func (f *Flow) SetPaymentMethod(method string) error {
	return f.mutate(func(d *Draft) error {
		d.SetPaymentMethod(method)
		return nil
	})
}

func (f *Flow) View() DraftView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.View()
}

// LastBookingID is the id of the most recent successful submit, for display.
func (f *Flow) LastBookingID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBookingID
}

// Abandon clears the draft. A submit still in flight finishes, but its result
// no longer touches the draft.
func (f *Flow) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Reset()
	f.generation++
	f.touched = f.now()
}

// Submit persists the draft as one booking and returns its booking id. On
// success the draft is reset; on any failure it is kept so the caller can
// retry. A second call while one is running fails with ErrSubmitInProgress.
func (f *Flow) Submit(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		observability.BookingSubmissions.WithLabelValues("rejected_in_flight").Inc()
		return "", domain.ErrSubmitInProgress
	}
	if missing := f.draft.Missing(); len(missing) > 0 {
		f.mu.Unlock()
		observability.BookingSubmissions.WithLabelValues("incomplete").Inc()
		return "", &domain.IncompleteDraftError{Missing: missing}
	}
	eventID := f.draft.EventID()
	seatCount := len(f.draft.seats)
	generation := f.generation
	f.inFlight = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight = false
		f.mu.Unlock()
	}()

	if err := f.checkCapacity(ctx, eventID, seatCount); err != nil {
		observability.BookingSubmissions.WithLabelValues(outcome(err)).Inc()
		return "", err
	}

	itemType := domain.ItemTypeEvent
	if item, ok := f.items.Get(eventID); ok {
		itemType = item.Type
	}
	bookingID := NewBookingID(f.now())

	f.mu.Lock()
	payload, err := f.draft.Payload(userID, itemType, bookingID)
	f.mu.Unlock()
	if err != nil {
		observability.BookingSubmissions.WithLabelValues("incomplete").Inc()
		return "", err
	}

	_, err = f.store.CreateBooking(ctx, payload)
	if errors.Is(err, domain.ErrConflict) {
		// order numbers repeat after about a day and collide within a
		// millisecond; one fresh id is tried before giving up
		bookingID = nextBookingID(bookingID, f.now())
		payload.OrderNumber = bookingID
		f.logger.WithField("booking_id", bookingID).Warn("order number taken, retrying with a new one")
		_, err = f.store.CreateBooking(ctx, payload)
	}
	if err != nil {
		observability.BookingSubmissions.WithLabelValues("persistence_error").Inc()
		f.logger.WithField("event_id", eventID).Error("failed to create booking: ", err)
		return "", errors.Mark(errors.Wrap(err, "create booking"), domain.ErrPersistence)
	}

	f.mu.Lock()
	if f.generation == generation {
		f.draft.Reset()
		f.generation++
	}
	f.lastBookingID = bookingID
	f.touched = f.now()
	f.mu.Unlock()

	observability.BookingSubmissions.WithLabelValues("ok").Inc()
	f.logger.WithField("booking_id", bookingID).WithField("event_id", eventID).Info("booking submitted")
	return bookingID, nil
}

// mutate runs fn against the draft unless a submit is in flight.
func (f *Flow) mutate(fn func(d *Draft) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return domain.ErrSubmitInProgress
	}
	f.touched = f.now()
	return fn(f.draft)
}

// checkCapacity fails with ErrCapacityExceeded when the item is seat-limited
// and fewer than want seats are left. Items outside the catalog and items
// without a capacity are not checked.
func (f *Flow) checkCapacity(ctx context.Context, itemID string, want int) error {
	item, ok := f.items.Get(itemID)
	if !ok || !item.HasCapacity() {
		return nil
	}

	avail, err := f.availability.GetSeatAvailability(ctx, itemID, item.MaxParticipants)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "check seat availability"), domain.ErrPersistence)
	}
	if avail.Unlimited {
		return nil
	}
	if avail.IsFullyBooked || avail.AvailableSeats <= 0 || avail.AvailableSeats < want {
		return domain.ErrCapacityExceeded
	}
	return nil
}

func (f *Flow) idleSince() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touched
}

func (f *Flow) busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// NewBookingID is "BK" followed by the last eight digits of the millisecond
// timestamp.
func NewBookingID(t time.Time) string {
	ts := strconv.FormatInt(t.UnixMilli(), 10)
	if len(ts) > 8 {
		ts = ts[len(ts)-8:]
	}
	return "BK" + ts
}

// nextBookingID returns an id for now that differs from taken.
func nextBookingID(taken string, now time.Time) string {
	id := NewBookingID(now)
	if id == taken {
		id = NewBookingID(now.Add(time.Millisecond))
	}
	return id
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence_error"
	default:
		return "error"
	}
}
