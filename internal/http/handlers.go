package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/robertarktes/gatherly/internal/booking"
	"github.com/robertarktes/gatherly/internal/catalog"
	"github.com/robertarktes/gatherly/internal/domain"
	"github.com/robertarktes/gatherly/internal/observability"
)

type BookingReader interface {
	GetBooking(ctx context.Context, orderNumber string) (*domain.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	catalog      *catalog.Catalog
	sessions     *booking.Sessions
	availability booking.AvailabilityChecker
	bookings     BookingReader
	readiness    map[string]Pinger
	logger       observability.Logger
	now          func() time.Time
}

func NewHandlers(
	cat *catalog.Catalog,
	sessions *booking.Sessions,
	availability booking.AvailabilityChecker,
	bookings BookingReader,
	readiness map[string]Pinger,
	logger observability.Logger,
) *Handlers {
	return &Handlers{
		catalog:      cat,
		sessions:     sessions,
		availability: availability,
		bookings:     bookings,
		readiness:    readiness,
		logger:       logger,
		now:          time.Now,
	}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Readyz pings every dependency and reports the ones that failed.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, p := range h.readiness {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]interface{}{"status": "unavailable", "failed": failed})
		return
	}
	render.JSON(w, r, map[string]string{"status": "ready"})
}
