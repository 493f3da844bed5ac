package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkt_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	Reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkt_reservations_total",
			Help: "Reservation outcomes",
		},
		[]string{"result"},
	)

	PaymentAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkt_payment_attempts_total",
			Help: "Payment attempt outcomes",
		},
		[]string{"result"},
	)

	OrdersExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mkt_orders_expired_total",
			Help: "Orders moved to EXPIRED",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mkt_sweep_seconds",
			Help:    "Duration of expiry sweeps",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mkt_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mkt_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
