package expiry_test

import (
	"testing"
	"time"

	"github.com/robertarktes/marketplace-checkout/internal/domain"
	"github.com/robertarktes/marketplace-checkout/internal/expiry"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestReservationExpired(t *testing.T) {
	order := domain.Order{
		Status:               domain.OrderReserved,
		ReservationExpiresAt: t0.Add(10 * time.Minute),
	}

	cases := []struct {
		name   string
		status domain.OrderStatus
		now    time.Time
		want   bool
	}{
		{"inside window", domain.OrderReserved, t0.Add(5 * time.Minute), false},
		{"at the boundary", domain.OrderReserved, t0.Add(10 * time.Minute), false},
		{"past the boundary", domain.OrderReserved, t0.Add(10*time.Minute + time.Second), true},
		{"confirmed orders never reservation-expire", domain.OrderConfirmed, t0.Add(time.Hour), false},
		{"terminal orders never expire", domain.OrderExpired, t0.Add(time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := order
			o.Status = tc.status
			if got := expiry.ReservationExpired(o, tc.now); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPaymentExpired(t *testing.T) {
	order := domain.Order{
		PaymentDeadline: t0.Add(24 * time.Hour),
	}

	cases := []struct {
		name   string
		status domain.OrderStatus
		now    time.Time
		want   bool
	}{
		{"confirmed inside window", domain.OrderConfirmed, t0.Add(time.Hour), false},
		{"confirmed past deadline", domain.OrderConfirmed, t0.Add(25 * time.Hour), true},
		{"pending payment past deadline", domain.OrderPendingPayment, t0.Add(25 * time.Hour), true},
		{"failed payment past deadline", domain.OrderPaymentFailed, t0.Add(25 * time.Hour), true},
		{"reserved orders use the other clock", domain.OrderReserved, t0.Add(25 * time.Hour), false},
		{"paid orders never expire", domain.OrderPaymentSucceeded, t0.Add(25 * time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := order
			o.Status = tc.status
			if got := expiry.PaymentExpired(o, tc.now); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExpired_CoversBothClocks(t *testing.T) {
	reserved := domain.Order{
		Status:               domain.OrderReserved,
		ReservationExpiresAt: t0.Add(10 * time.Minute),
	}
	confirmed := domain.Order{
		Status:          domain.OrderConfirmed,
		PaymentDeadline: t0.Add(24 * time.Hour),
	}

	if !expiry.Expired(reserved, t0.Add(11*time.Minute)) {
		t.Error("reserved order past TTL should be expired")
	}
	if !expiry.Expired(confirmed, t0.Add(25*time.Hour)) {
		t.Error("confirmed order past deadline should be expired")
	}
	if expiry.Expired(confirmed, t0.Add(11*time.Minute)) {
		t.Error("confirmed order inside payment window is not expired")
	}
}
