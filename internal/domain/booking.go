package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
)

type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "paid"
	PaymentStatusUnpaid PaymentStatus = "unpaid"
)

const PaymentMethodCash = "cash"

type Seat struct {
	Row      int     `json:"row"`
	Column   int     `json:"column"`
	SeatType string  `json:"seat_type"`
	Price    float64 `json:"price"`
	SeatID   string  `json:"seat_id"`
}

func SeatID(row, column int) string {
	return fmt.Sprintf("%d-%d", row, column)
}

func NewSeat(row, column int, seatType string, price float64) Seat {
	return Seat{
		Row:      row,
		Column:   column,
		SeatType: seatType,
		Price:    price,
		SeatID:   SeatID(row, column),
	}
}

type AttendeeInfo struct {
	FirstName     string `json:"first_name" validate:"required"`
	LastName      string `json:"last_name" validate:"required"`
	Gender        string `json:"gender" validate:"required,oneof=male female"`
	BirthDate     string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required"`
	Country       string `json:"country" validate:"required"`
	AcceptedTerms bool   `json:"accepted_terms" validate:"required"`
}

// BookingPayload is the record handed to the persistence collaborator when a
// draft is submitted.
type BookingPayload struct {
	UserID        string        `json:"user_id"`
	EventID       string        `json:"event_id"`
	ItemType      ItemType      `json:"item_type"`
	OrderNumber   string        `json:"order_number"`
	TotalAmount   float64       `json:"total_amount"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	SelectedSeats []Seat        `json:"selected_seats"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	Gender        string        `json:"gender"`
	BirthDate     string        `json:"birth_date"`
	Country       string        `json:"country"`
	PromoCode     *string       `json:"promo_code,omitempty"`
	PaymentMethod *string       `json:"payment_method,omitempty"`
}

type Booking struct {
	BookingPayload
	CreatedAt time.Time `json:"created_at"`
}

type Availability struct {
	AvailableSeats int  `json:"available_seats"`
	IsFullyBooked  bool `json:"is_fully_booked"`
	Unlimited      bool `json:"unlimited"`
}

// NewAvailability derives availability from a capacity and the number of seats
// already taken. A nil capacity means the item is not seat-limited.
func NewAvailability(capacity *int, taken int) Availability {
	if capacity == nil {
		return Availability{Unlimited: true}
	}
	available := *capacity - taken
	if available < 0 {
		available = 0
	}
	return Availability{AvailableSeats: available, IsFullyBooked: available == 0}
}
