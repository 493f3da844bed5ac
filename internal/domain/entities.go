package domain

import (
	"time"

	"github.com/google/uuid"
)

// Availability is the single contended field on a Product. Every transition
// on it is a conditional swap at the store; there is no in-process lock.
type Availability string

const (
	AvailabilityAvailable Availability = "AVAILABLE"
	AvailabilityReserved  Availability = "RESERVED"
	AvailabilitySold      Availability = "SOLD"
)

type Product struct {
	ID            uuid.UUID
	SellerID      uuid.UUID
	Price         float64
	TestPrice     *float64
	DeliveryPrice float64
	Availability  Availability
}

type OrderStatus string

const (
	OrderReserved         OrderStatus = "RESERVED"
	OrderConfirmed        OrderStatus = "CONFIRMED"
	OrderPendingPayment   OrderStatus = "PENDING_PAYMENT"
	OrderPaymentSucceeded OrderStatus = "PAYMENT_SUCCEEDED"
	OrderPaymentFailed    OrderStatus = "PAYMENT_FAILED"
	OrderExpired          OrderStatus = "EXPIRED"
	OrderCancelled        OrderStatus = "CANCELLED"
)

// Terminal reports whether no further transition may leave the status.
// PAYMENT_FAILED is not terminal: the buyer may retry until the deadline.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderPaymentSucceeded, OrderExpired, OrderCancelled:
		return true
	}
	return false
}

// ActiveStatuses identify the order a buyer can resume instead of creating a
// second one for the same product.
var ActiveStatuses = []OrderStatus{OrderReserved, OrderConfirmed, OrderPendingPayment}

// HoldingStatuses are the statuses under which an Order still holds its
// Product. A failed payment keeps the product reserved until the deadline
// or a retry.
var HoldingStatuses = []OrderStatus{OrderReserved, OrderConfirmed, OrderPendingPayment, OrderPaymentFailed}

// Order is the reservation itself once created. Never deleted; terminal
// statuses are final.
type Order struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	BuyerID   uuid.UUID
	SellerID  uuid.UUID
	Status    OrderStatus

	Pricing  Pricing
	Currency string

	ReservationExpiresAt time.Time
	PaymentDeadline      time.Time

	ShippingAddress string
	PaymentMethod   string

	PaymentIntentID string
	PaymentStatus   PaymentStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// PaymentAttempt is one payment cycle on an Order, owned by the payment
// orchestrator. The Order's PaymentStatus is its externally visible projection.
type PaymentAttempt struct {
	OrderID         uuid.UUID
	GatewayIntentID string
	ClientSecret    string
	Amount          float64
	Currency        string
	Status          PaymentStatus
	Method          string
	CreatedAt       time.Time
}
