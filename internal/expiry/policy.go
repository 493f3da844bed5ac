// Package expiry holds the single expiry predicate used both eagerly inside
// user-facing operations and by the periodic sweeper. Both paths must agree,
// so neither is allowed its own deadline arithmetic.
package expiry

import (
	"time"

	"github.com/robertarktes/marketplace-checkout/internal/domain"
)

const (
	// ReservationTTL bounds how long a RESERVED order holds its product.
	ReservationTTL = 10 * time.Minute
	// PaymentDeadline bounds how long a confirmed order may stay unpaid.
	PaymentDeadline = 24 * time.Hour
)

// ReservationExpired reports whether a RESERVED order's claim has lapsed.
func ReservationExpired(order domain.Order, now time.Time) bool {
	return order.Status == domain.OrderReserved && now.After(order.ReservationExpiresAt)
}

// PaymentExpired reports whether an order past confirmation has outlived its
// payment deadline. PAYMENT_FAILED counts: the product stays reserved after a
// failed attempt and must still be released once the deadline passes.
func PaymentExpired(order domain.Order, now time.Time) bool {
	switch order.Status {
	case domain.OrderConfirmed, domain.OrderPendingPayment, domain.OrderPaymentFailed:
		return now.After(order.PaymentDeadline)
	}
	return false
}

// Expired reports whether the order's applicable deadline has passed.
func Expired(order domain.Order, now time.Time) bool {
	return ReservationExpired(order, now) || PaymentExpired(order, now)
}
