package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/gatherly/internal/idempotency"
	"github.com/robertarktes/gatherly/internal/observability"
)

type RouterOptions struct {
	// Limiter and Idempotency are optional; nil disables the middleware.
	Limiter            Limiter
	RateLimitPerMinute int
	Idempotency        *idempotency.Idempotency
}

func SetupRouter(h *Handlers, logger observability.Logger, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(SessionMiddleware)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		if opts.Limiter != nil {
			perMinute := opts.RateLimitPerMinute
			if perMinute <= 0 {
				perMinute = 120
			}
			r.Use(RateLimitMiddleware(opts.Limiter, perMinute, logger))
		}

		r.Get("/v1/items", h.ListItems)
		r.Get("/v1/items/{id}", h.GetItem)
		r.Get("/v1/items/{id}/availability", h.GetAvailability)

		r.Get("/v1/bookings", h.ListBookings)
		r.Get("/v1/bookings/{id}", h.GetBooking)

		r.Route("/v1/draft", func(r chi.Router) {
			r.Use(RequireSession)

			r.Post("/", h.InitDraft)
			r.Get("/", h.GetDraft)
			r.Delete("/", h.AbandonDraft)
			r.Put("/attendee", h.SetAttendee)
			r.Post("/seats", h.AddSeat)
			r.Delete("/seats/{seatID}", h.RemoveSeat)
			r.Put("/promo", h.SetPromoCode)
			r.Put("/payment", h.SetPaymentMethod)

			if opts.Idempotency != nil {
				r.With(IdempotencyMiddleware(opts.Idempotency, logger)).Post("/submit", h.SubmitDraft)
			} else {
				r.Post("/submit", h.SubmitDraft)
			}
		})
	})

	return r
}
