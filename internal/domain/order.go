package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewOrder creates a RESERVED order for a product claimed at now. The pricing
// snapshot is fixed here and never revisited.
func NewOrder(product Product, buyerID uuid.UUID, pricing Pricing, currency string, now time.Time, ttl time.Duration) Order {
	return Order{
		ID:                   uuid.New(),
		ProductID:            product.ID,
		BuyerID:              buyerID,
		SellerID:             product.SellerID,
		Status:               OrderReserved,
		Pricing:              pricing,
		Currency:             currency,
		ReservationExpiresAt: now.Add(ttl),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// NewPaymentAttempt records a gateway intent opened for an order.
func NewPaymentAttempt(order Order, intentID, clientSecret, method string, now time.Time) PaymentAttempt {
	return PaymentAttempt{
		OrderID:         order.ID,
		GatewayIntentID: intentID,
		ClientSecret:    clientSecret,
		Amount:          order.Pricing.TotalAmount,
		Currency:        order.Currency,
		Status:          PaymentPending,
		Method:          method,
		CreatedAt:       now,
	}
}
