// Package checkout is the reservation-and-checkout state machine: claiming a
// product under a time-boxed lease, walking the order through its fixed status
// sequence, coordinating the payment gateway and releasing abandoned claims.
package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/marketplace-checkout/internal/domain"
	"github.com/robertarktes/marketplace-checkout/internal/gateway"
)

// Store is the ledger: the single source of truth for products, orders and
// payment attempts. Every write that changes who owns a product, or advances
// an order, is conditional on the previous value; implementations return
// domain.ErrStoreConflict when the condition no longer holds.
type Store interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	SwapAvailability(ctx context.Context, id uuid.UUID, from, to domain.Availability) error

	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindActiveOrder(ctx context.Context, productID, buyerID uuid.UUID) (*domain.Order, error)
	TransitionOrder(ctx context.Context, order domain.Order, from domain.OrderStatus) error
	ListExpiredOrders(ctx context.Context, now time.Time, limit int) ([]domain.Order, error)
	HasHoldingOrder(ctx context.Context, productID, exclude uuid.UUID) (bool, error)

	CreatePaymentAttempt(ctx context.Context, att domain.PaymentAttempt) error
	PendingPaymentAttempt(ctx context.Context, orderID uuid.UUID) (*domain.PaymentAttempt, error)
	PaymentAttemptByIntent(ctx context.Context, intentID string) (*domain.PaymentAttempt, error)
	SettlePaymentAttempt(ctx context.Context, intentID string, status domain.PaymentStatus) error
}

// Gateway opens payment intents with the external provider.
type Gateway interface {
	OpenIntent(ctx context.Context, amount float64, currency, method string) (gateway.Intent, error)
}

// DiscountSource resolves the buyer's discount at reservation time. The value
// is frozen into the order's pricing snapshot.
type DiscountSource interface {
	DiscountFor(ctx context.Context, buyerID, productID uuid.UUID) (float64, error)
}
