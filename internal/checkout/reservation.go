package checkout

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/marketplace-checkout/internal/domain"
	"github.com/robertarktes/marketplace-checkout/internal/expiry"
	"github.com/robertarktes/marketplace-checkout/internal/observability"
)

// Reserve claims a product for a buyer under the reservation TTL, creating a
// RESERVED order or resuming the buyer's existing active one. The conditional
// availability swap at the store is the single serialization point: of N
// concurrent calls for an AVAILABLE product exactly one wins it.
func (s *Service) Reserve(ctx context.Context, productID, buyerID uuid.UUID, testMode bool) (*domain.Order, error) {
	now := s.now()

	existing, err := s.store.FindActiveOrder(ctx, productID, buyerID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if !expiry.Expired(*existing, now) {
			observability.Reservations.WithLabelValues("resumed").Inc()
			return existing, nil
		}
		// The buyer's own stale claim: retire it before opening a new one.
		if _, err := s.expireAndRelease(ctx, *existing); err != nil {
			return nil, err
		}
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Availability != domain.AvailabilityAvailable {
		observability.Reservations.WithLabelValues("unavailable").Inc()
		return nil, domain.ErrProductUnavailable
	}

	err = s.store.SwapAvailability(ctx, productID, domain.AvailabilityAvailable, domain.AvailabilityReserved)
	if err != nil {
		if errors.Is(err, domain.ErrStoreConflict) {
			observability.Reservations.WithLabelValues("conflict").Inc()
			return nil, domain.ErrReservationConflict
		}
		return nil, err
	}

	// Verify the swap is what this call thinks it is; a mismatch here means a
	// partially applied write and the claim must not stand.
	product, err = s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, s.compensate(ctx, productID, err)
	}
	if product.Availability != domain.AvailabilityReserved {
		return nil, s.compensate(ctx, productID, domain.ErrReservationConflict)
	}

	discount := 0.0
	if s.discounts != nil {
		discount, err = s.discounts.DiscountFor(ctx, buyerID, productID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, s.compensate(ctx, productID, err)
		}
	}

	pricing := domain.NewPricing(product.EffectivePrice(testMode), product.DeliveryPrice, discount)
	order := domain.NewOrder(*product, buyerID, pricing, s.currency, now, s.reservationTTL)

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, s.compensate(ctx, productID, err)
	}

	observability.Reservations.WithLabelValues("reserved").Inc()
	return &order, nil
}

// compensate restores AVAILABLE after a failure between the winning swap and
// the durable order. The restore must not mask the original error, and a
// failed restore is the one thing never allowed to pass silently.
func (s *Service) compensate(ctx context.Context, productID uuid.UUID, cause error) error {
	err := s.store.SwapAvailability(ctx, productID, domain.AvailabilityReserved, domain.AvailabilityAvailable)
	if err != nil && !errors.Is(err, domain.ErrStoreConflict) {
		s.logger.WithField("product_id", productID.String()).WithError(err).Error("failed to restore availability after aborted reservation")
	}
	return cause
}

// Cancel moves any non-terminal order to CANCELLED and releases the product.
func (s *Service) Cancel(ctx context.Context, orderID, buyerID uuid.UUID) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, domain.ErrNotFound
	}
	if order.Status.Terminal() {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "order is %s", order.Status)
	}

	from := order.Status
	order.Status = domain.OrderCancelled
	order.UpdatedAt = s.now()
	if err := s.store.TransitionOrder(ctx, *order, from); err != nil {
		return nil, err
	}
	if err := s.releaseProduct(ctx, *order); err != nil {
		s.logger.WithField("order_id", order.ID.String()).Error("failed to release product on cancel: ", err)
	}
	return order, nil
}

// GetOrder reads an order for the presentation layer to drive countdowns.
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}
