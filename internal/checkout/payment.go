package checkout

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/marketplace-checkout/internal/domain"
	"github.com/robertarktes/marketplace-checkout/internal/expiry"
	"github.com/robertarktes/marketplace-checkout/internal/observability"
)

// InitiatePayment opens a gateway intent for the order's total and moves the
// order to PENDING_PAYMENT. While an attempt is still PENDING the same intent
// is returned instead of opening a second one, so retries and re-renders
// cannot double-charge. A PAYMENT_FAILED order re-enters here for a retry
// with a fresh attempt.
func (s *Service) InitiatePayment(ctx context.Context, orderID uuid.UUID) (*domain.PaymentAttempt, error) {
	now := s.now()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case domain.OrderPendingPayment:
		att, err := s.store.PendingPaymentAttempt(ctx, orderID)
		if err == nil {
			return att, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		// PENDING_PAYMENT with no live attempt: the intent row was lost
		// mid-flight; fall through and open a fresh one.
	case domain.OrderConfirmed, domain.OrderPaymentFailed:
	default:
		return nil, errors.Wrapf(domain.ErrInvalidInput, "order is %s", order.Status)
	}

	if expiry.PaymentExpired(*order, now) {
		if _, err := s.expireAndRelease(ctx, *order); err != nil {
			s.logger.WithField("order_id", order.ID.String()).Error("failed to expire unpaid order: ", err)
		}
		return nil, domain.ErrPaymentWindowExpired
	}

	intent, err := s.gateway.OpenIntent(ctx, order.Pricing.TotalAmount, order.Currency, order.PaymentMethod)
	if err != nil {
		observability.PaymentAttempts.WithLabelValues("gateway_error").Inc()
		return nil, err
	}

	from := order.Status
	order.Status = domain.OrderPendingPayment
	order.PaymentIntentID = intent.ID
	order.PaymentStatus = domain.PaymentPending
	order.UpdatedAt = now
	if err := s.store.TransitionOrder(ctx, *order, from); err != nil {
		return nil, err
	}

	att := domain.NewPaymentAttempt(*order, intent.ID, intent.ClientSecret, order.PaymentMethod, now)
	if err := s.store.CreatePaymentAttempt(ctx, att); err != nil {
		return nil, err
	}

	observability.PaymentAttempts.WithLabelValues("opened").Inc()
	return &att, nil
}

// SettlePayment reconciles the gateway's terminal result into the order.
// Called from the gateway-callback boundary. Success is the only path on
// which the product becomes permanently SOLD; failure leaves it RESERVED for
// a retry until the payment deadline.
func (s *Service) SettlePayment(ctx context.Context, orderID uuid.UUID, success bool) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderPendingPayment {
		// Duplicate callback after the first one landed is a clean no-op.
		if order.Status == domain.OrderPaymentSucceeded && success {
			return order, nil
		}
		if order.Status == domain.OrderPaymentFailed && !success {
			return order, nil
		}
		return nil, errors.Wrapf(domain.ErrStoreConflict, "order is %s", order.Status)
	}

	attemptStatus := domain.PaymentFailed
	orderStatus := domain.OrderPaymentFailed
	if success {
		attemptStatus = domain.PaymentSucceeded
		orderStatus = domain.OrderPaymentSucceeded
	}

	if err := s.store.SettlePaymentAttempt(ctx, order.PaymentIntentID, attemptStatus); err != nil {
		if !errors.Is(err, domain.ErrStoreConflict) {
			return nil, err
		}
		// Attempt already terminal; keep reconciling the order below.
	}

	order.Status = orderStatus
	order.PaymentStatus = attemptStatus
	order.UpdatedAt = s.now()
	if err := s.store.TransitionOrder(ctx, *order, domain.OrderPendingPayment); err != nil {
		return nil, err
	}

	if success {
		observability.PaymentAttempts.WithLabelValues("succeeded").Inc()
		err := s.store.SwapAvailability(ctx, order.ProductID, domain.AvailabilityReserved, domain.AvailabilitySold)
		if err != nil && !errors.Is(err, domain.ErrStoreConflict) {
			return nil, err
		}
		if errors.Is(err, domain.ErrStoreConflict) {
			s.logger.WithField("order_id", order.ID.String()).Error("paid order found product not reserved")
		}
	} else {
		observability.PaymentAttempts.WithLabelValues("failed").Inc()
	}

	return order, nil
}

// SettleByIntent resolves the gateway's intent id to the order it belongs to.
// A callback for an intent the order no longer references (a superseded
// attempt) only settles that attempt's row, never the order.
func (s *Service) SettleByIntent(ctx context.Context, intentID string, success bool) (*domain.Order, error) {
	att, err := s.store.PaymentAttemptByIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	order, err := s.store.GetOrder(ctx, att.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentIntentID != intentID {
		status := domain.PaymentFailed
		if success {
			status = domain.PaymentSucceeded
		}
		if err := s.store.SettlePaymentAttempt(ctx, intentID, status); err != nil && !errors.Is(err, domain.ErrStoreConflict) {
			return nil, err
		}
		return order, nil
	}
	return s.SettlePayment(ctx, order.ID, success)
}
