package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/robertarktes/gatherly/internal/booking"
	"github.com/robertarktes/gatherly/internal/domain"
)

type initDraftRequest struct {
	EventID string `json:"event_id"`
}

type addSeatRequest struct {
	Row      int     `json:"row"`
	Column   int     `json:"column"`
	SeatType string  `json:"seat_type"`
	Price    float64 `json:"price"`
}

type promoRequest struct {
	PromoCode string `json:"promo_code"`
}

type paymentRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type SubmitResponse struct {
	BookingID string `json:"booking_id"`
}

func (h *Handlers) flow(r *http.Request) *booking.Flow {
	return h.sessions.Flow(sessionID(r.Context()))
}

func (h *Handlers) InitDraft(w http.ResponseWriter, r *http.Request) {
	var req initDraftRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "failed to decode request")
		return
	}
	f := h.flow(r)
	if err := f.Init(req.EventID); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	render.JSON(w, r, f.View())
}

func (h *Handlers) GetDraft(w http.ResponseWriter, r *http.Request) {
	f, ok := h.sessions.Lookup(sessionID(r.Context()))
	if !ok {
		render.JSON(w, r, booking.NewDraft().View())
		return
	}
	render.JSON(w, r, f.View())
}

func (h *Handlers) SetAttendee(w http.ResponseWriter, r *http.Request) {
	var info domain.AttendeeInfo
	if err := render.DecodeJSON(r.Body, &info); err != nil {
		respondError(w, r, http.StatusBadRequest, "failed to decode request")
		return
	}
	f := h.flow(r)
	if err := f.SetAttendeeInfo(info); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	render.JSON(w, r, f.View())
}

func (h *Handlers) AddSeat(w http.ResponseWriter, r *http.Request) {
	var req addSeatRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "failed to decode request")
		return
	}
	f := h.flow(r)
	seat := domain.NewSeat(req.Row, req.Column, req.SeatType, req.Price)
	if err := f.AddSeat(r.Context(), seat); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, f.View())
}

func (h *Handlers) RemoveSeat(w http.ResponseWriter, r *http.Request) {
	f := h.flow(r)
	removed, err := f.RemoveSeat(chi.URLParam(r, "seatID"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	if !removed {
		respondError(w, r, http.StatusNotFound, "seat not selected")
		return
	}
	render.JSON(w, r, f.View())
}

func (h *Handlers) SetPromoCode(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "failed to decode request")
		return
	}
	f := h.flow(r)
	if err := f.SetPromoCode(req.PromoCode); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	render.JSON(w, r, f.View())
}

func (h *Handlers) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "failed to decode request")
		return
	}
	f := h.flow(r)
	if err := f.SetPaymentMethod(req.PaymentMethod); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	render.JSON(w, r, f.View())
}

// SubmitDraft persists the draft. The draft survives a failed submit so the
// same request can be retried.
func (h *Handlers) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	if uid == "" {
		respondError(w, r, http.StatusUnauthorized, "X-User-ID is required")
		return
	}

	bookingID, err := h.flow(r).Submit(r.Context(), uid)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, SubmitResponse{BookingID: bookingID})
}

func (h *Handlers) AbandonDraft(w http.ResponseWriter, r *http.Request) {
	if f, ok := h.sessions.Lookup(sessionID(r.Context())); ok {
		f.Abandon()
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBooking only returns the caller's own bookings; another user's id reads
// as not found.
func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	if uid == "" {
		respondError(w, r, http.StatusUnauthorized, "X-User-ID is required")
		return
	}
	b, err := h.bookings.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	if b.UserID != uid {
		respondError(w, r, http.StatusNotFound, "not found")
		return
	}
	render.JSON(w, r, b)
}

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	if uid == "" {
		respondError(w, r, http.StatusUnauthorized, "X-User-ID is required")
		return
	}
	bookings, err := h.bookings.ListBookingsByUser(r.Context(), uid)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	render.JSON(w, r, bookings)
}
