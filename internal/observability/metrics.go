package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatherly_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	DBTxDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gatherly_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	CatalogRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatherly_catalog_refreshes_total",
			Help: "Catalog reloads by result",
		},
		[]string{"result"},
	)

	CatalogRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gatherly_catalog_refresh_seconds",
			Help:    "Duration of a full catalog reload",
			Buckets: prometheus.DefBuckets,
		},
	)

	BookingSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatherly_booking_submissions_total",
			Help: "Booking draft submissions by outcome",
		},
		[]string{"outcome"},
	)

	ChangeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatherly_change_events_total",
			Help: "Realtime change notifications received",
		},
		[]string{"table", "type"},
	)

	OutboxLag = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gatherly_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)

	RabbitPublishRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gatherly_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)

	RateLimitExceeded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gatherly_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)

var registerOnce sync.Once

func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			DBTxDuration,
			CatalogRefreshes,
			CatalogRefreshDuration,
			BookingSubmissions,
			ChangeEvents,
			OutboxLag,
			RabbitPublishRetries,
			RateLimitExceeded,
		)
	})
}
