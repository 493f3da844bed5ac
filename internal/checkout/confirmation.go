package checkout

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/marketplace-checkout/internal/domain"
	"github.com/robertarktes/marketplace-checkout/internal/expiry"
)

// Confirm turns a live reservation into a confirmed order carrying shipping
// and payment-method data. This is the only place the 10 minute reservation
// lease is exchanged for the 24 hour payment deadline; the product stays
// RESERVED but is governed by the longer clock afterward.
func (s *Service) Confirm(ctx context.Context, orderID uuid.UUID, shippingAddress, paymentMethod string) (*domain.Order, error) {
	now := s.now()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderReserved {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "order is %s", order.Status)
	}
	if expiry.ReservationExpired(*order, now) {
		// Eager enforcement: do not silently revive a lapsed claim.
		if _, err := s.expireAndRelease(ctx, *order); err != nil {
			s.logger.WithField("order_id", order.ID.String()).Error("failed to expire stale reservation: ", err)
		}
		return nil, domain.ErrReservationExpired
	}
	if shippingAddress == "" || paymentMethod == "" {
		return nil, domain.ErrInvalidInput
	}

	order.Status = domain.OrderConfirmed
	order.PaymentDeadline = now.Add(s.paymentTTL)
	order.ShippingAddress = shippingAddress
	order.PaymentMethod = paymentMethod
	order.UpdatedAt = now

	if err := s.store.TransitionOrder(ctx, *order, domain.OrderReserved); err != nil {
		return nil, err
	}
	return order, nil
}
