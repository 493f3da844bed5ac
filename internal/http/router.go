package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/marketplace-checkout/internal/idempotency"
	"github.com/robertarktes/marketplace-checkout/internal/observability"
	"github.com/robertarktes/marketplace-checkout/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(JWTMiddleware)
	r.Use(RateLimitMiddleware(rl))

	// Reservation creation is the one route a double submit could duplicate
	// state on, so only it demands an Idempotency-Key.
	r.Group(func(r chi.Router) {
		r.Use(IdempotencyMiddleware(idemp))
		r.Post("/v1/orders/reserve", h.Reserve)
	})

	r.Post("/v1/orders/{id}/confirm", h.Confirm)
	r.Post("/v1/orders/{id}/payment", h.InitiatePayment)
	r.Post("/v1/orders/{id}/cancel", h.Cancel)
	r.Post("/v1/payments/callback", h.PaymentCallback)
	r.Get("/v1/orders/{id}", h.GetOrder)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
