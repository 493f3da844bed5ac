package checkout

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/marketplace-checkout/internal/domain"
	"github.com/robertarktes/marketplace-checkout/internal/expiry"
	"github.com/robertarktes/marketplace-checkout/internal/observability"
)

type Service struct {
	store     Store
	gateway   Gateway
	discounts DiscountSource
	logger    observability.Logger

	currency       string
	reservationTTL time.Duration
	paymentTTL     time.Duration

	// now is the server-side clock for every expiry decision. Client clocks
	// are never trusted.
	now func() time.Time
}

type Option func(*Service)

// WithClock pins the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDiscounts attaches a per-buyer discount source. Without one every
// pricing snapshot carries a zero discount.
func WithDiscounts(d DiscountSource) Option {
	return func(s *Service) { s.discounts = d }
}

func WithTTLs(reservation, payment time.Duration) Option {
	return func(s *Service) {
		s.reservationTTL = reservation
		s.paymentTTL = payment
	}
}

func NewService(store Store, gw Gateway, logger observability.Logger, currency string, opts ...Option) *Service {
	s := &Service{
		store:          store,
		gateway:        gw,
		logger:         logger,
		currency:       currency,
		reservationTTL: expiry.ReservationTTL,
		paymentTTL:     expiry.PaymentDeadline,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// expireAndRelease moves an order past its deadline to EXPIRED and gives the
// product back, conditionally on both sides. A conflict on the order means
// someone else advanced it first and the expiry is void; a conflict on the
// product means another order already owns it. Reports whether this call was
// the one that retired the order.
func (s *Service) expireAndRelease(ctx context.Context, order domain.Order) (bool, error) {
	from := order.Status
	order.Status = domain.OrderExpired
	order.UpdatedAt = s.now()
	if err := s.store.TransitionOrder(ctx, order, from); err != nil {
		if errors.Is(err, domain.ErrStoreConflict) {
			return false, nil
		}
		return false, err
	}
	observability.OrdersExpired.Inc()
	return true, s.releaseProduct(ctx, order)
}

// releaseProduct restores AVAILABLE only while no other order holds the
// product. The swap is conditional, so a reservation created between the
// check and the write still wins.
func (s *Service) releaseProduct(ctx context.Context, order domain.Order) error {
	held, err := s.store.HasHoldingOrder(ctx, order.ProductID, order.ID)
	if err != nil {
		return err
	}
	if held {
		return nil
	}
	err = s.store.SwapAvailability(ctx, order.ProductID, domain.AvailabilityReserved, domain.AvailabilityAvailable)
	if errors.Is(err, domain.ErrStoreConflict) {
		return nil
	}
	return err
}
