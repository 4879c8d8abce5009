package booking

import "github.com/robertarktes/gatherly/internal/domain"

type State int

const (
	StateEmpty State = iota
	StateAttendeeInfoEntered
	StateSeatsSelected
	StatePromoAndPaymentEntered
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAttendeeInfoEntered:
		return "attendee_info_entered"
	case StateSeatsSelected:
		return "seats_selected"
	case StatePromoAndPaymentEntered:
		return "promo_and_payment_entered"
	case StateSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// Draft accumulates one booking across the attendee, seat and payment steps.
// The state is derived from which steps hold data, so going back to an
// earlier step keeps whatever later steps already collected.
//
// Draft is not safe for concurrent use; Flow serializes access.
type Draft struct {
	eventID       string
	attendee      *domain.AttendeeInfo
	seats         []domain.Seat
	totalPrice    float64
	promoCode     *string
	paymentMethod *string
}

func NewDraft() *Draft {
	return &Draft{seats: []domain.Seat{}}
}

// Init points the draft at an event. Entering again for the same event
// resumes; entering for another event starts over, since selected seats
// belong to the old event.
func (d *Draft) Init(eventID string) {
	if d.eventID != "" && d.eventID != eventID {
		d.Reset()
	}
	d.eventID = eventID
}

// SetAttendeeInfo validates info and merges it in. A failed validation leaves
// the draft untouched.
func (d *Draft) SetAttendeeInfo(info domain.AttendeeInfo) error {
	clean, err := ValidateAttendee(info)
	if err != nil {
		return err
	}
	d.attendee = &clean
	return nil
}

func (d *Draft) AddSeat(seat domain.Seat) error {
	if d.eventID == "" {
		return domain.ErrDraftNotStarted
	}
	if seat.Row < 0 || seat.Column < 0 || seat.Price < 0 {
		return domain.ErrInvalidInput
	}
	seat.SeatID = domain.SeatID(seat.Row, seat.Column)
	if d.hasSeat(seat.SeatID) {
		return domain.ErrDuplicateSeat
	}
	d.seats = append(d.seats, seat)
	d.recomputeTotal()
	return nil
}

// RemoveSeat drops the seat with seatID and reports whether it was selected.
func (d *Draft) RemoveSeat(seatID string) bool {
	for i, s := range d.seats {
		if s.SeatID == seatID {
			d.seats = append(d.seats[:i:i], d.seats[i+1:]...)
			d.recomputeTotal()
			return true
		}
	}
	return false
}

// SetPromoCode stores code; an empty code clears it.
func (d *Draft) SetPromoCode(code string) {
	d.promoCode = optional(code)
}

// SetPaymentMethod stores method; an empty method clears it.
func (d *Draft) SetPaymentMethod(method string) {
	d.paymentMethod = optional(method)
}

func (d *Draft) State() State {
	switch {
	case d.attendee == nil:
		return StateEmpty
	case len(d.seats) == 0:
		return StateAttendeeInfoEntered
	case d.paymentMethod == nil:
		return StateSeatsSelected
	default:
		return StatePromoAndPaymentEntered
	}
}

func (d *Draft) EventID() string {
	return d.eventID
}

func (d *Draft) TotalPrice() float64 {
	return d.totalPrice
}

func (d *Draft) Seats() []domain.Seat {
	out := make([]domain.Seat, len(d.seats))
	copy(out, d.seats)
	return out
}

// Missing lists the fields that must be set before the draft can be
// submitted. Empty means complete.
func (d *Draft) Missing() []string {
	var missing []string
	if d.eventID == "" {
		missing = append(missing, "event_id")
	}
	if d.attendee == nil {
		missing = append(missing, "attendee")
	}
	if len(d.seats) == 0 {
		missing = append(missing, "selected_seats")
	}
	if d.paymentMethod == nil {
		missing = append(missing, "payment_method")
	}
	return missing
}

// Payload builds the booking record for persistence. It fails with an
// *domain.IncompleteDraftError if a required step is missing.
func (d *Draft) Payload(userID string, itemType domain.ItemType, bookingID string) (domain.BookingPayload, error) {
	if missing := d.Missing(); len(missing) > 0 {
		return domain.BookingPayload{}, &domain.IncompleteDraftError{Missing: missing}
	}

	status, paymentStatus := domain.BookingStatusConfirmed, domain.PaymentStatusPaid
	if d.totalPrice > 0 && *d.paymentMethod == domain.PaymentMethodCash {
		status, paymentStatus = domain.BookingStatusPending, domain.PaymentStatusUnpaid
	}

	a := d.attendee
	return domain.BookingPayload{
		UserID:        userID,
		EventID:       d.eventID,
		ItemType:      itemType,
		OrderNumber:   bookingID,
		TotalAmount:   d.totalPrice,
		Status:        status,
		PaymentStatus: paymentStatus,
		SelectedSeats: d.Seats(),
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Email:         a.Email,
		Phone:         a.Phone,
		Gender:        a.Gender,
		BirthDate:     a.BirthDate,
		Country:       a.Country,
		PromoCode:     copyString(d.promoCode),
		PaymentMethod: copyString(d.paymentMethod),
	}, nil
}

func (d *Draft) Reset() {
	*d = Draft{seats: []domain.Seat{}}
}

type DraftView struct {
	EventID       string               `json:"event_id"`
	State         string               `json:"state"`
	Attendee      *domain.AttendeeInfo `json:"attendee,omitempty"`
	SelectedSeats []domain.Seat        `json:"selected_seats"`
	TotalPrice    float64              `json:"total_price"`
	PromoCode     *string              `json:"promo_code,omitempty"`
	PaymentMethod *string              `json:"payment_method,omitempty"`
}

func (d *Draft) View() DraftView {
	v := DraftView{
		EventID:       d.eventID,
		State:         d.State().String(),
		SelectedSeats: d.Seats(),
		TotalPrice:    d.totalPrice,
		PromoCode:     copyString(d.promoCode),
		PaymentMethod: copyString(d.paymentMethod),
	}
	if d.attendee != nil {
		a := *d.attendee
		v.Attendee = &a
	}
	return v
}

func (d *Draft) hasSeat(seatID string) bool {
	for _, s := range d.seats {
		if s.SeatID == seatID {
			return true
		}
	}
	return false
}

func (d *Draft) recomputeTotal() {
	var total float64
	for _, s := range d.seats {
		total += s.Price
	}
	d.totalPrice = total
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
